// internal/workers/zones/release-slot/models.go
package releaseslot

// Input carries the release request. Decrement defaults to 1 when omitted.
// When AssignedTo is set, the matching assignment row is removed as well.
type Input struct {
	ZoneID     string `json:"zoneId"`
	Decrement  int    `json:"decrement"`
	AssignedTo string `json:"assignedTo,omitempty"`
}

// Output is the updated slot summary for the zone.
type Output struct {
	ZoneID       string `json:"zoneId"`
	Province     string `json:"province"`
	Municipality string `json:"municipality"`
	TotalSlots   int    `json:"totalSlots"`
	Occupied     int    `json:"occupied"`
	Free         int    `json:"free"`
	Status       string `json:"status"`
	Clamped      bool   `json:"clamped"`
}
