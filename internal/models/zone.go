// internal/models/zone.go
package models

// Zone levels. District-level zones exist only for the big capitals where a
// single municipality is split across several franchise territories.
const (
	ZoneLevelMunicipality = "municipality"
	ZoneLevelDistrict     = "district"
)

// Slot summary statuses.
const (
	ZoneStatusFree    = "free"
	ZoneStatusPartial = "partial"
	ZoneStatusFull    = "full"
)

type Zone struct {
	ID           string `json:"id"`
	Province     string `json:"province"`
	Municipality string `json:"municipality"`
	District     string `json:"district,omitempty"`
	Level        string `json:"level"`
	Population   int    `json:"population"`
	TotalSlots   int    `json:"totalSlots"`
	Occupied     int    `json:"occupied"`
	Free         int    `json:"free"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// ZoneSlotSummary is the aggregate view returned by occupy/release and the
// admin listing routes.
type ZoneSlotSummary struct {
	ZoneID       string `json:"zoneId"`
	Province     string `json:"province"`
	Municipality string `json:"municipality"`
	Population   int    `json:"population"`
	TotalSlots   int    `json:"totalSlots"`
	Occupied     int    `json:"occupied"`
	Free         int    `json:"free"`
	Status       string `json:"status"`
}

// NetworkSummary holds the dashboard totals across every zone.
type NetworkSummary struct {
	TotalMunicipios int `json:"totalMunicipios"`
	Habitantes      int `json:"habitantes"`
	Plazas          int `json:"plazas"`
	Ocupadas        int `json:"ocupadas"`
	Libres          int `json:"libres"`
}

// ZoneAssignment links a franchisee to a zone. Many-to-many: a franchisee may
// cover several zones and a zone holds up to TotalSlots franchisees.
type ZoneAssignment struct {
	ZoneID       string `json:"zoneId"`
	FranchiseeID string `json:"franchiseeId"`
	AssignedAt   string `json:"assignedAt"`
}
