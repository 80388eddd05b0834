package median

// Reason tells why a Strategy accepted or refused a split.
type Reason uint8

const (
	// ReasonAccepted means the split is legal.
	ReasonAccepted Reason = iota
	// ReasonWholeDeficient means the run itself fails the balance rule.
	ReasonWholeDeficient
	// ReasonTooFew means the run has fewer than two points.
	ReasonTooFew
	// ReasonDegenerate means the left side would be empty, e.g. when every
	// point ties with the median on all dimensions.
	ReasonDegenerate
	// ReasonLeftDeficient means the points before the median fail the rule.
	ReasonLeftDeficient
	// ReasonRightDeficient means the points after the median fail the rule.
	ReasonRightDeficient
)

var reasonNames = [...]string{
	ReasonAccepted:       "accepted",
	ReasonWholeDeficient: "whole_deficient",
	ReasonTooFew:         "too_few",
	ReasonDegenerate:     "degenerate",
	ReasonLeftDeficient:  "left_deficient",
	ReasonRightDeficient: "right_deficient",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// Accepted reports whether r is ReasonAccepted.
func (r Reason) Accepted() bool { return r == ReasonAccepted }

// Reasons returns all refusal reasons in declaration order, excluding
// ReasonAccepted.
func Reasons() []Reason {
	return []Reason{
		ReasonWholeDeficient,
		ReasonTooFew,
		ReasonDegenerate,
		ReasonLeftDeficient,
		ReasonRightDeficient,
	}
}
