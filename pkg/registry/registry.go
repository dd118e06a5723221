// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// registrySchema is the meta-schema every registry file must satisfy before
// the worker-manager trusts it.
const registrySchema = `{
	"type": "object",
	"required": ["version", "activities"],
	"properties": {
		"version": {"type": "string", "minLength": 1},
		"lastUpdated": {"type": "string"},
		"activities": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "displayName", "category", "taskType"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"displayName": {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"category": {"type": "string", "minLength": 1},
					"taskType": {"type": "string", "minLength": 1},
					"inputSchema": {"type": "object"},
					"outputSchema": {"type": "object"},
					"errorCodes": {"type": "array", "items": {"type": "string"}},
					"timeout": {"type": "string"},
					"retries": {"type": "integer", "minimum": 0},
					"workflows": {"type": "array", "items": {"type": "string"}},
					"tags": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`

// Load reads and schema-validates a registry file.
func Load(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse validates raw registry JSON against the meta-schema and decodes it.
func Parse(data []byte) (*ActivityRegistry, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(registrySchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("registry schema validation: %w", err)
	}
	if !result.Valid() {
		var details []string
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return nil, fmt.Errorf("registry does not match schema: %s", strings.Join(details, "; "))
	}

	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	if err := reg.checkUnique(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// ByTaskType indexes activities for worker registration lookups.
func (r *ActivityRegistry) ByTaskType() map[string]Activity {
	index := make(map[string]Activity, len(r.Activities))
	for _, a := range r.Activities {
		index[a.TaskType] = a
	}
	return index
}

func (r *ActivityRegistry) checkUnique() error {
	ids := make(map[string]bool, len(r.Activities))
	taskTypes := make(map[string]bool, len(r.Activities))
	for _, a := range r.Activities {
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity id: %s", a.ID)
		}
		if taskTypes[a.TaskType] {
			return fmt.Errorf("duplicate task type: %s", a.TaskType)
		}
		ids[a.ID] = true
		taskTypes[a.TaskType] = true
	}
	return nil
}
