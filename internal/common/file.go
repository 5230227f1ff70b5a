package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DecodePayload turns a request body given on the command line into a value
// that can be sent as JSON. JSON is used as-is; anything else is read as YAML.
func DecodePayload(data []byte) (any, error) {

	// remove all starting whitespace including newlines to figure out
	// what the first character is
	data = bytes.TrimLeftFunc(data, unicode.IsSpace)

	if len(data) == 0 {
		return nil, fmt.Errorf("no data provided")
	}

	var payload any

	if data[0] == '{' || data[0] == '[' {
		logrus.Debugln("Payload format detected: JSON")
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("payload is not valid json: %w", err)
		}
		return payload, nil
	}

	logrus.Debugln("Payload format detected: YAML")

	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("payload is not valid json or yaml: %w", err)
	}

	// yaml.v3 decodes mappings into map[string]any already, so the result
	// round trips through encoding/json without conversion.
	if _, err := json.Marshal(payload); err != nil {
		return nil, fmt.Errorf("payload cannot be encoded as json: %w", err)
	}

	return payload, nil
}
