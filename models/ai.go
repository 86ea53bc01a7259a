package models

// RouteKind is the closed set of router decisions. Every caller must handle
// all five cases, including RouteAmbiguous.
type RouteKind string

const (
	RouteContinue  RouteKind = "continue"
	RouteDetour    RouteKind = "detour"
	RouteConfirm   RouteKind = "confirm"
	RouteReject    RouteKind = "reject"
	RouteAmbiguous RouteKind = "ambiguous"
)

// RouteResult is the structured output of the detection/router agent.
type RouteResult struct {
	Kind       RouteKind `json:"kind"`
	Intent     string    `json:"intent,omitempty"` // detour topic, e.g. "parking"
	Confidence float64   `json:"confidence"`
}

// EventDelta carries only the fields a message newly asserts. Nil means the
// message said nothing about that field; the merge must leave it untouched.
type EventDelta struct {
	Guests        *int     `json:"guests,omitempty"`
	Date          *string  `json:"date,omitempty"`
	RoomType      *string  `json:"room_type,omitempty"`
	Seating       *string  `json:"seating,omitempty"`
	Budget        *float64 `json:"budget,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	DateConfirmed *bool    `json:"date_confirmed,omitempty"`
}

// Empty reports whether the delta asserts nothing.
func (d EventDelta) Empty() bool {
	return d.Guests == nil && d.Date == nil && d.RoomType == nil &&
		d.Seating == nil && d.Budget == nil && d.Notes == nil &&
		d.DateConfirmed == nil
}

// ContextPacket is the minimal, ephemeral input for a single agent call.
// It never contains multi-turn history: one sanitized message, the facts
// relevant to the target step, and (for routing only) the anchor question.
type ContextPacket struct {
	Message string            `json:"message"`
	Step    Step              `json:"step"`
	Goal    string            `json:"goal"`
	Facts   map[string]string `json:"facts,omitempty"`
	Anchor  string            `json:"anchor,omitempty"`
}

// InboundEmail is what the email transport hands over for one received
// message. Thread matching is the transport's responsibility.
type InboundEmail struct {
	From      string `json:"from"`
	Name      string `json:"name,omitempty"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	ThreadKey string `json:"thread_key"`
}
