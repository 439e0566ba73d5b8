package goalloop

// Goal is the immutable objective supplied to the controller. One controller
// session drives exactly one Goal to a terminal state.
type Goal struct {
	// Objective is the free-form objective text.
	Objective string `json:"objective"`

	// Metadata carries optional caller-supplied context, passed verbatim to
	// the planner. The loop itself never interprets it.
	Metadata map[string]string `json:"metadata,omitempty"`
}
