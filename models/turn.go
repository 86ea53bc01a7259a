package models

import "time"

// TurnDirection is the direction of a conversation turn.
type TurnDirection string

const (
	DirectionInbound  TurnDirection = "inbound"
	DirectionOutbound TurnDirection = "outbound"
)

// TurnStatus is the delivery state of a turn. Outbound AI turns start as
// draft and move to sent or discarded exactly once, via the HIL gate.
type TurnStatus string

const (
	TurnReceived  TurnStatus = "received"
	TurnDraft     TurnStatus = "draft"
	TurnSent      TurnStatus = "sent"
	TurnDiscarded TurnStatus = "discarded"
)

// TurnAuthor identifies who authored a turn.
type TurnAuthor string

const (
	AuthorClient  TurnAuthor = "client"
	AuthorAI      TurnAuthor = "ai"
	AuthorManager TurnAuthor = "manager"
)

// ConversationTurn is one inbound or outbound message tied to an event.
type ConversationTurn struct {
	ID        string        `bson:"id" json:"id"`
	EventID   string        `bson:"event_id" json:"event_id"`
	Direction TurnDirection `bson:"direction" json:"direction"`
	Status    TurnStatus    `bson:"status" json:"status"`
	Author    TurnAuthor    `bson:"author" json:"author"`

	Subject       string `bson:"subject,omitempty" json:"subject,omitempty"`
	RawText       string `bson:"raw_text" json:"raw_text"`
	SanitizedText string `bson:"sanitized_text,omitempty" json:"sanitized_text,omitempty"`

	// Question is the question this outbound turn asks the client, if any.
	// When the turn is sent it becomes the event's anchor.
	Question string `bson:"question,omitempty" json:"question,omitempty"`

	// Attachment is an optional rendered document (offer PDF) delivered with
	// the message.
	Attachment     []byte `bson:"attachment,omitempty" json:"-"`
	AttachmentName string `bson:"attachment_name,omitempty" json:"attachment_name,omitempty"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	SentAt    *time.Time `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
}

// UnmatchedMessage is an inbound email the transport could not associate with
// an event. It is kept for manual assignment, never dropped.
type UnmatchedMessage struct {
	ID              string    `bson:"id" json:"id"`
	From            string    `bson:"from" json:"from"`
	Subject         string    `bson:"subject" json:"subject"`
	Text            string    `bson:"text" json:"text"`
	ThreadKey       string    `bson:"thread_key,omitempty" json:"thread_key,omitempty"`
	ReceivedAt      time.Time `bson:"received_at" json:"received_at"`
	AssignedEventID string    `bson:"assigned_event_id,omitempty" json:"assigned_event_id,omitempty"`
}
