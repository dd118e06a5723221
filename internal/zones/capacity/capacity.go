// Package capacity holds the franchise capacity rules for zones: how many
// franchise slots a municipality supports and how slot occupancy maps to a
// zone status. Everything here is pure; mutable slot state lives in the
// occupancy workers.
package capacity

import "strings"

// Population divisors for the slot rule. Madrid and Barcelona capitals get a
// halved divisor (double the slots per inhabitant) because their districts
// are sold as separate territories.
const (
	StandardDivisor   = 10000
	BigCapitalDivisor = 20000
)

// bigCapitals maps normalized municipality -> normalized province for the
// big-capital rule. The pair must match exactly: a "Madrid" municipality in
// another province is not a big capital.
var bigCapitals = map[string]string{
	"madrid":    "madrid",
	"barcelona": "barcelona",
}

// Normalize lowercases and trims a zone key component.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsBigCapital reports whether the (province, municipality) pair gets the
// halved divisor.
func IsBigCapital(province, municipality string) bool {
	p, ok := bigCapitals[Normalize(municipality)]
	return ok && p == Normalize(province)
}

// PermittedSlots computes the number of franchise slots a zone supports.
// Never returns less than 1: a zone with unknown or zero population must not
// be fully blocked.
func PermittedSlots(province, municipality string, population int) int {
	if population <= 0 {
		return 1
	}

	divisor := StandardDivisor
	if IsBigCapital(province, municipality) {
		divisor = BigCapitalDivisor
	}

	slots := (population + divisor - 1) / divisor
	if slots < 1 {
		slots = 1
	}
	return slots
}

// StatusFor derives the slot summary status from occupancy. It is a pure
// function of (occupied, total); no other state may influence it.
func StatusFor(occupied, total int) string {
	free := total - occupied
	switch {
	case free <= 0:
		return "full"
	case occupied == 0:
		return "free"
	default:
		return "partial"
	}
}

// Clamp bounds occupied into [0, total] and reports whether clamping was
// applied. Overshoot is deliberately permissive policy; callers must log and
// count clamped operations rather than reject them.
func Clamp(occupied, total int) (int, bool) {
	if occupied > total {
		return total, true
	}
	if occupied < 0 {
		return 0, true
	}
	return occupied, false
}
