// internal/workers/leads/update-lead-status/models.go
package updateleadstatus

// Input moves a lead through its lifecycle. AssignedTo is applied only on
// transitions into the assigned status.
type Input struct {
	LeadID     string `json:"leadId"`
	Status     string `json:"status"`
	AssignedTo string `json:"assignedTo,omitempty"`
}

type Output struct {
	LeadID         string `json:"leadId"`
	PreviousStatus string `json:"previousStatus"`
	Status         string `json:"status"`
	AssignedTo     string `json:"assignedTo,omitempty"`
}
