// internal/workers/notification/notify-lead/templates.go
package notifylead

import (
	"encoding/json"
	"os"
	"strings"

	"inmo-workers/internal/models"
)

// defaultTemplates covers the lead_assigned notification when no registry
// file is configured. Placeholders use {{field}} syntax.
var defaultTemplates = []models.NotificationTemplate{
	{
		ID:      "lead_assigned_email",
		Type:    "lead_assigned",
		Subject: "Nuevo lead en {{municipality}} ({{province}})",
		Body:    "Hola {{franchisee}}, tienes un nuevo lead: {{name}}, tel. {{phone}}.",
		Version: "1",
	},
	{
		ID:      "lead_assigned_sms",
		Type:    "lead_assigned",
		Body:    "Nuevo lead en {{municipality}}: {{name}} ({{phone}})",
		Version: "1",
	},
}

type templateRegistry struct {
	templates map[string]models.NotificationTemplate
}

// loadTemplates reads the registry file when configured, falling back to the
// built-in defaults for anything the file does not define.
func loadTemplates(path string) (*templateRegistry, error) {
	reg := &templateRegistry{templates: make(map[string]models.NotificationTemplate)}
	for _, tpl := range defaultTemplates {
		reg.templates[tpl.ID] = tpl
	}

	if path == "" {
		return reg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fileTemplates []models.NotificationTemplate
	if err := json.Unmarshal(raw, &fileTemplates); err != nil {
		return nil, err
	}
	for _, tpl := range fileTemplates {
		reg.templates[tpl.ID] = tpl
	}

	return reg, nil
}

func (r *templateRegistry) get(id string) (models.NotificationTemplate, bool) {
	tpl, ok := r.templates[id]
	return tpl, ok
}

// render substitutes {{field}} placeholders from the lead and franchisee.
func render(text string, lead *models.Lead, franchisee *models.Franchisee) string {
	replacer := strings.NewReplacer(
		"{{name}}", lead.Name,
		"{{phone}}", lead.Phone,
		"{{municipality}}", lead.Municipality,
		"{{province}}", lead.Province,
		"{{kind}}", lead.Kind,
		"{{franchisee}}", franchisee.Name,
	)
	return replacer.Replace(text)
}
