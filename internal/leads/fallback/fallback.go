// Package fallback provides the static province routing table used when no
// DB-backed occupancy exists yet (e.g., a freshly provisioned network).
// The table is built from configuration at startup and injected into the
// resolver; it is never mutated afterwards, so concurrent reads are safe.
package fallback

import "inmo-workers/internal/zones/capacity"

// provinces is the canonical list of Spain's 50 provinces plus the two
// autonomous cities. Keys are normalized (lowercase, trimmed).
var provinces = []string{
	"alava", "albacete", "alicante", "almeria", "asturias", "avila",
	"badajoz", "barcelona", "burgos", "caceres", "cadiz", "cantabria",
	"castellon", "ciudad real", "cordoba", "cuenca", "girona", "granada",
	"guadalajara", "guipuzcoa", "huelva", "huesca", "illes balears", "jaen",
	"la coruna", "la rioja", "las palmas", "leon", "lleida", "lugo",
	"madrid", "malaga", "murcia", "navarra", "ourense", "palencia",
	"pontevedra", "salamanca", "santa cruz de tenerife", "segovia",
	"sevilla", "soria", "tarragona", "teruel", "toledo", "valencia",
	"valladolid", "vizcaya", "zamora", "zaragoza",
	"ceuta", "melilla",
}

// Table maps a normalized province to the franchisee responsible for it when
// occupancy lookup finds nothing.
type Table struct {
	entries map[string]string
}

// NewTable builds the fallback table: every known province routes to the
// central bucket unless an override names a specific franchisee. Overrides
// for unknown provinces are kept too, so config can extend coverage without
// a code change.
func NewTable(centralBucketID string, overrides map[string]string) *Table {
	entries := make(map[string]string, len(provinces)+len(overrides))
	for _, p := range provinces {
		entries[p] = centralBucketID
	}
	for province, franchiseeID := range overrides {
		key := capacity.Normalize(province)
		if key == "" || franchiseeID == "" {
			continue
		}
		entries[key] = franchiseeID
	}
	return &Table{entries: entries}
}

// Resolve returns the fallback franchisee for a province. The second return
// is false for unrecognized provinces; absence is a legitimate outcome, not
// an error.
func (t *Table) Resolve(province string) (string, bool) {
	id, ok := t.entries[capacity.Normalize(province)]
	return id, ok
}

// Len returns the number of provinces covered. Used by startup logging.
func (t *Table) Len() int {
	return len(t.entries)
}
