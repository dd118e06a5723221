// Package statemachine guards lead status transitions. The allowed graph:
//
//	new -> assigned -> done
//	any -> invalid
//
// done and invalid are terminal.
package statemachine

import "inmo-workers/internal/models"

// transitions maps current status -> set of allowed next statuses.
var transitions = map[string]map[string]bool{
	models.LeadStatusNew: {
		models.LeadStatusAssigned: true,
		models.LeadStatusInvalid:  true,
	},
	models.LeadStatusAssigned: {
		models.LeadStatusDone:    true,
		models.LeadStatusInvalid: true,
	},
	models.LeadStatusDone:    {},
	models.LeadStatusInvalid: {},
}

// IsValidStatus reports whether s is a known lead status.
func IsValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a lead may move from current to next.
// An empty current status is treated as a fresh lead that may enter new or
// assigned (router-created leads start directly in assigned).
func CanTransition(current, next string) bool {
	if !IsValidStatus(next) {
		return false
	}
	if current == "" {
		return next == models.LeadStatusNew || next == models.LeadStatusAssigned
	}
	nexts, ok := transitions[current]
	if !ok {
		return false
	}
	return nexts[next]
}

// IsTerminal reports whether no further transitions are allowed from s.
func IsTerminal(s string) bool {
	nexts, ok := transitions[s]
	return ok && len(nexts) == 0
}
