// internal/workers/leads/route-lead/schema.go
package routelead

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// intakeSchema validates the lead intake payload before any state changes.
const intakeSchema = `{
	"type": "object",
	"required": ["leadRef", "kind", "province", "municipality", "name", "phone"],
	"properties": {
		"leadRef":      {"type": "string", "minLength": 1},
		"kind":         {"type": "string", "enum": ["owner", "tenant", "franchise"]},
		"province":     {"type": "string", "minLength": 1},
		"municipality": {"type": "string", "minLength": 1},
		"name":         {"type": "string", "minLength": 1},
		"phone":        {"type": "string", "minLength": 1},
		"email":        {"type": "string"},
		"notes":        {"type": "string"}
	}
}`

func validateInput(input *Input) error {
	schemaLoader := gojsonschema.NewStringLoader(intakeSchema)
	documentLoader := gojsonschema.NewGoLoader(input)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("intake validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
