// Package variables manages named deployment variables. The service keys
// variables by name, so creating one that exists replaces its value.
package variables

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/valory-xyz/propel-client-go/internal/client"
	"github.com/valory-xyz/propel-client-go/internal/models"
)

type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body any, out any) error
}

type Manager struct {
	api API
}

func NewManager(api API) *Manager {
	return &Manager{api: api}
}

// CreateOrUpdate stores the variable. It always issues a create and relies
// on the service to upsert by name.
func (m *Manager) CreateOrUpdate(ctx context.Context, variable models.Variable) (*models.Variable, error) {
	if len(strings.TrimSpace(variable.Name)) == 0 {
		return nil, fmt.Errorf("variable name is required")
	}

	if len(strings.TrimSpace(variable.Key)) == 0 {
		return nil, fmt.Errorf("variable key is required")
	}

	if len(variable.Type) == 0 {
		variable.Type = models.VarTypeString
	}

	if !variable.Type.IsValid() {
		return nil, fmt.Errorf("invalid variable type %q, expected one of %v", variable.Type, models.VarTypes)
	}

	logrus.WithFields(logrus.Fields{
		"name": variable.Name,
		"key":  variable.Key,
		"type": variable.Type,
	}).Debugln("Storing variable")

	var stored models.Variable
	if err := m.api.Post(ctx, client.VariablesEndpoint+"/", &variable, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

func (m *Manager) List(ctx context.Context) ([]models.Variable, error) {
	var variables []models.Variable
	if err := m.api.Get(ctx, client.VariablesEndpoint+"/", &variables); err != nil {
		return nil, err
	}
	return variables, nil
}

// ParseValue validates an explicit type, or infers one from a JSON literal
// when explicitType is empty. Text that is not JSON is a plain string. A JSON
// string literal stored as str loses its quotes; every other value is
// returned unchanged.
func ParseValue(raw string, explicitType string) (string, models.VarType, error) {
	varType := inferType(raw)

	if len(explicitType) > 0 {
		varType = models.VarType(strings.ToLower(strings.TrimSpace(explicitType)))
		if !varType.IsValid() {
			return "", "", fmt.Errorf("invalid variable type %q, expected one of %v", explicitType, models.VarTypes)
		}
	}

	if varType == models.VarTypeString {
		var unquoted string
		if err := json.Unmarshal([]byte(raw), &unquoted); err == nil {
			return unquoted, varType, nil
		}
	}

	return raw, varType, nil
}

func inferType(raw string) models.VarType {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil || decoder.More() {
		return models.VarTypeString
	}

	switch v := value.(type) {
	case nil:
		return models.VarTypeNone
	case bool:
		return models.VarTypeBool
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return models.VarTypeInt
		}
		return models.VarTypeFloat
	case map[string]any:
		return models.VarTypeDict
	case []any:
		return models.VarTypeList
	default:
		return models.VarTypeString
	}
}
