package model

// Decision is the tri-state outcome the AI attaches to a schedule slot.
// The wire encoding is a string: the literal "confirm" means confirmed, any
// other non-empty value means rejected, and an absent field means the AI has
// not evaluated the slot yet. Undecided is NOT the same as rejected; the
// dashboard shows it as "no decision", the hardware treats it as confirmed.
type Decision int

const (
	Undecided Decision = iota
	Confirmed
	Rejected
)

const wireConfirm = "confirm"

// ParseDecision maps the wire string to the tri-state value.
func ParseDecision(s string) Decision {
	switch s {
	case "":
		return Undecided
	case wireConfirm:
		return Confirmed
	default:
		return Rejected
	}
}

// Dashboard returns the projection for the web UI: true/false when decided,
// nil when the AI has not evaluated the slot.
func (d Decision) Dashboard() *bool {
	switch d {
	case Confirmed:
		v := true
		return &v
	case Rejected:
		v := false
		return &v
	default:
		return nil
	}
}

// Hardware returns the projection for the pump controller, which has no
// concept of "undecided": an unevaluated slot runs as planned.
func (d Decision) Hardware() bool {
	return d != Rejected
}

func (d Decision) String() string {
	switch d {
	case Confirmed:
		return "confirmed"
	case Rejected:
		return "rejected"
	default:
		return "undecided"
	}
}
