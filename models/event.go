package models

import "time"

// Step identifies a stage in the booking conversation workflow.
type Step int

const (
	// StepAnswer is the transient sub-step entered during a detour.
	StepAnswer Step = 0

	StepIntake       Step = 1
	StepDateConfirm  Step = 2
	StepRoomSelect   Step = 3
	StepOffer        Step = 4
	StepNegotiation  Step = 5
	StepDeposit      Step = 6
	StepConfirmation Step = 7
)

// Valid reports whether s is one of the defined workflow steps.
func (s Step) Valid() bool {
	return s >= StepAnswer && s <= StepConfirmation
}

// EventStatus is the lifecycle status of an event booking.
type EventStatus string

const (
	StatusLead      EventStatus = "lead"
	StatusOption    EventStatus = "option"
	StatusConfirmed EventStatus = "confirmed"
	StatusCancelled EventStatus = "cancelled"
)

// Terminal reports whether the status ends the workflow.
func (s EventStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// Requirements is the structured snapshot of what the client asked for.
// Zero values mean "not yet known".
type Requirements struct {
	Guests   int     `bson:"guests" json:"guests"`
	Date     string  `bson:"date" json:"date"` // "YYYY-MM-DD"
	RoomType string  `bson:"room_type" json:"room_type"`
	Seating  string  `bson:"seating" json:"seating"`
	Budget   float64 `bson:"budget" json:"budget"`
	Notes    string  `bson:"notes" json:"notes"`
}

// RoomOption is one candidate room produced by room evaluation.
type RoomOption struct {
	RoomID   string  `bson:"room_id" json:"room_id"`
	Name     string  `bson:"name" json:"name"`
	Capacity int     `bson:"capacity" json:"capacity"`
	Price    float64 `bson:"price" json:"price"`
	Currency string  `bson:"currency" json:"currency"`
}

// Event is one workflow instance: a single booking conversation with a client.
type Event struct {
	ID       string `bson:"id" json:"id"`
	ClientID string `bson:"client_id" json:"client_id"`

	CurrentStep Step  `bson:"current_step" json:"current_step"`
	// CallerStep is set only while a detour is in progress; it holds the
	// step to return to and is cleared when the detour resolves.
	CallerStep *Step `bson:"caller_step,omitempty" json:"caller_step,omitempty"`

	DateConfirmed bool   `bson:"date_confirmed" json:"date_confirmed"`
	LockedRoomID  string `bson:"locked_room_id,omitempty" json:"locked_room_id,omitempty"`

	Requirements Requirements `bson:"requirements" json:"requirements"`
	RoomOptions  []RoomOption `bson:"room_options,omitempty" json:"room_options,omitempty"`
	Offer        *Offer       `bson:"offer,omitempty" json:"offer,omitempty"`

	// Content hashes guarding the expensive steps. A matching hash means the
	// cached result is reused; any field change forces recomputation.
	RequirementsHash string `bson:"requirements_hash,omitempty" json:"requirements_hash,omitempty"`
	RoomEvalHash     string `bson:"room_eval_hash,omitempty" json:"room_eval_hash,omitempty"`
	OfferHash        string `bson:"offer_hash,omitempty" json:"offer_hash,omitempty"`

	Status EventStatus `bson:"status" json:"status"`

	// ThreadKey associates inbound mail with this event; supplied by the
	// email transport.
	ThreadKey string `bson:"thread_key" json:"thread_key"`

	// LastQuestion is the anchor: the last question the venue asked the
	// client, used to disambiguate short replies.
	LastQuestion string `bson:"last_question,omitempty" json:"last_question,omitempty"`

	LastInboundAt time.Time `bson:"last_inbound_at" json:"last_inbound_at"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`

	// Version is bumped on every save and used for CAS updates.
	Version int `bson:"version" json:"version"`
}

// InDetour reports whether the event is currently inside a detour.
func (e *Event) InDetour() bool {
	return e.CallerStep != nil
}
