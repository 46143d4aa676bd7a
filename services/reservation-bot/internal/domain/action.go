package domain

import "strings"

// Action is what a button press asks for.
type Action string

const (
	ActionReserve Action = "reserve"
	ActionJoin    Action = "join"
	ActionLeave   Action = "leave"
	ActionCancel  Action = "cancel"
)

// ReserveFormID is the custom id of the reservation modal.
const ReserveFormID = "reserve_modal"

// ParseCustomID splits a button custom id of the form "reserve" or
// "<action>_<reservationID>".
func ParseCustomID(customID string) (Action, string, bool) {
	if customID == string(ActionReserve) {
		return ActionReserve, "", true
	}
	name, id, found := strings.Cut(customID, "_")
	if !found || id == "" {
		return "", "", false
	}
	switch a := Action(name); a {
	case ActionJoin, ActionLeave, ActionCancel:
		return a, id, true
	}
	return "", "", false
}

func FormatCustomID(a Action, reservationID string) string {
	if a == ActionReserve {
		return string(a)
	}
	return string(a) + "_" + reservationID
}
