// internal/models/lead.go
package models

// Lead kinds.
const (
	LeadKindOwner     = "owner"
	LeadKindTenant    = "tenant"
	LeadKindFranchise = "franchise"
)

// Lead statuses.
const (
	LeadStatusNew      = "new"
	LeadStatusAssigned = "assigned"
	LeadStatusDone     = "done"
	LeadStatusInvalid  = "invalid"
)

type Lead struct {
	ID           string `json:"id"`
	LeadRef      string `json:"leadRef"`
	Kind         string `json:"kind"`
	Province     string `json:"province"`
	Municipality string `json:"municipality"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Notes        string `json:"notes,omitempty"`
	AssignedTo   string `json:"assignedTo,omitempty"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}
