package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ErrorResponse is the error body returned by the service. Validation errors
// come back as a field -> messages map instead, which is why callers fall back
// to the raw body when Detail is empty.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Ref is a reference to another resource. The service returns references
// either as plain ids, as names, or as embedded objects, so Ref accepts all
// three and keeps the most human readable form.
type Ref string

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Ref(s)
	case '{':
		var obj struct {
			Name json.RawMessage `json:"name"`
			ID   json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if len(obj.Name) > 0 {
			return r.UnmarshalJSON(obj.Name)
		}
		return r.UnmarshalJSON(obj.ID)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid reference %s: %w", string(data), err)
		}
		*r = Ref(n.String())
	}

	return nil
}

func (r Ref) String() string {
	return string(r)
}

// Int returns the reference as an integer id when it is numeric.
func (r Ref) Int() (int, bool) {
	i, err := strconv.Atoi(string(r))
	if err != nil {
		return 0, false
	}
	return i, true
}
