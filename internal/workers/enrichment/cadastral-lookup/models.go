// internal/workers/enrichment/cadastral-lookup/models.go
package cadastrallookup

type Input struct {
	LeadID       string `json:"leadId,omitempty"`
	Address      string `json:"address,omitempty"`
	Municipality string `json:"municipality"`
	Province     string `json:"province"`
}

// Output returns the task handle immediately; the lookup itself runs
// detached. Status is pending on acceptance, error when the queue is full.
type Output struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}
