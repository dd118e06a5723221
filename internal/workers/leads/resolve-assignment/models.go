// internal/workers/leads/resolve-assignment/models.go
package resolveassignment

// Resolution sources, in lookup order.
const (
	SourceOccupancy = "occupancy"
	SourceFallback  = "fallback"
	SourceNone      = "none"
)

type Input struct {
	Province     string `json:"province"`
	Municipality string `json:"municipality"`
}

// Output reports the responsible franchisee. An empty FranchiseeID with
// Source "none" is a legitimate outcome, not an error.
type Output struct {
	FranchiseeID string `json:"franchiseeId"`
	Source       string `json:"source"`
}
