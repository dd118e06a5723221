// internal/workers/zones/ingest-zone-batch/models.go
package ingestzonebatch

// ZoneRow is one row of the bulk population import, already normalized to
// three fields by the CSV/Excel collaborator.
type ZoneRow struct {
	Province     string `json:"province"`
	Municipality string `json:"municipality"`
	Population   int    `json:"population"`
}

type Input struct {
	Rows []ZoneRow `json:"rows"`
}

// Output reports per-row outcomes. Batches are best-effort: a bad row is
// counted and skipped, never aborts the import.
type Output struct {
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Errors   int      `json:"errors"`
	Failures []string `json:"failures,omitempty"`
}
