// Package query filters command output with jq expressions.
package query

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/itchyny/gojq"
	"github.com/sirupsen/logrus"
)

// Evaluate runs a jq expression against input and returns every value it
// emits. input may be any JSON-encodable value; variables are exposed to the
// expression by name, e.g. "$url".
func Evaluate(expression string, input any, variables map[string]any) ([]any, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq expression: %s, error: %w", expression, err)
	}

	// Get the variable names & values in a single pass:
	names, values := getVariableNamesAndValues(variables)

	code, err := gojq.Compile(query, gojq.WithVariables(names))
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %s, error: %w", expression, err)
	}

	normalized, err := Normalize(input)
	if err != nil {
		return nil, err
	}

	var results []any

	iter := code.Run(normalized, values...)
	for {
		result, ok := iter.Next()
		if !ok {
			break
		}

		// If there's an error from the jq engine, report it
		if errVal, isErr := result.(error); isErr {
			logrus.WithFields(logrus.Fields{
				"expression": expression,
			}).WithError(errVal).Debugln("jq evaluation failed")

			return nil, fmt.Errorf("jq evaluation error: %w", errVal)
		}

		results = append(results, result)
	}

	return results, nil
}

// Normalize converts typed values (structs, typed slices, json.RawMessage)
// into the plain maps, slices and scalars gojq operates on.
func Normalize(input any) (any, error) {
	switch v := input.(type) {
	case nil, bool, string, float64, int, map[string]any, []any:
		return v, nil
	case json.RawMessage:
		return decode(v)
	case []byte:
		return decode(v)
	}

	encoded, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query input: %w", err)
	}

	return decode(encoded)
}

func decode(data []byte) (any, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to decode query input: %w", err)
	}
	return value, nil
}

// getVariableNamesAndValues constructs two slices, where 'names[i]' matches
// 'values[i]'. Names are sorted so compilation is deterministic.
func getVariableNamesAndValues(vars map[string]any) ([]string, []any) {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)

	values := make([]any, 0, len(vars))
	for _, k := range names {
		values = append(values, vars[k])
	}
	return names, values
}
