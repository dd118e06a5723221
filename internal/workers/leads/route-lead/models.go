// internal/workers/leads/route-lead/models.go
package routelead

// Input is the intake payload from the voice, web and SMS collaborators.
// LeadRef is the caller-supplied idempotency key: retrying the same intake
// with the same LeadRef returns the already-created lead.
type Input struct {
	LeadRef      string `json:"leadRef"`
	Kind         string `json:"kind"`
	Province     string `json:"province"`
	Municipality string `json:"municipality"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

type Output struct {
	LeadID       string `json:"leadId"`
	LeadRef      string `json:"leadRef"`
	Kind         string `json:"kind"`
	Province     string `json:"province"`
	Municipality string `json:"municipality"`
	AssignedTo   string `json:"assignedTo,omitempty"`
	Status       string `json:"status"`
	Source       string `json:"source,omitempty"`
	Duplicate    bool   `json:"duplicate"`
}
