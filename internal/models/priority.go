package models

// Priority is the ordinal class used to arbitrate booking overrides. It does
// not influence allocation scoring.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
	PriorityCEO    Priority = "ceo"
)

var priorityWeights = map[Priority]int{
	PriorityLow:    20,
	PriorityNormal: 40,
	PriorityHigh:   60,
	PriorityUrgent: 80,
	PriorityCEO:    100,
}

// Weight maps the class onto its fixed ordinal weight. Unknown classes fall
// back to normal.
func (p Priority) Weight() int {
	if w, ok := priorityWeights[p]; ok {
		return w
	}
	return priorityWeights[PriorityNormal]
}

// CanOverride reports whether a request of this class may displace a booking
// held at existing. Strictly greater wins; equals never do. The decision is
// advisory only, displacement itself is a separate authorized action.
func (p Priority) CanOverride(existing Priority) bool {
	return p.Weight() > existing.Weight()
}
