package engine

import (
	"context"
	"errors"
	"time"

	clientRepo "venuepilot/database/repository/client"
	eventRepo "venuepilot/database/repository/event"
	roomRepo "venuepilot/database/repository/room"
	turnRepo "venuepilot/database/repository/turn"
	"venuepilot/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OfferRenderer produces the offer document attached to offer emails.
type OfferRenderer interface {
	RenderOffer(ev *models.Event, client *models.Client, room *models.Room) ([]byte, error)
}

// WorkflowService is the engine's public surface, consumed by the HTTP
// handlers and the mail transport.
type WorkflowService interface {
	// ProcessInbound runs one received email through the workflow. The
	// returned turn is the resulting draft, nil when the message was held
	// for manager review instead.
	ProcessInbound(ctx context.Context, mail models.InboundEmail) (*models.ConversationTurn, error)

	ApproveDraft(ctx context.Context, turnID, editedText string) error
	EditDraft(ctx context.Context, turnID, text string) error
	DiscardDraft(ctx context.Context, turnID string) error

	// ResolveConflict collapses a soft conflict; losing events return to
	// room selection and get an alternatives draft.
	ResolveConflict(ctx context.Context, roomID, date, winnerClaimID string) error

	MarkDepositPaid(ctx context.Context, eventID string) error

	// AssignUnmatched attaches a queued unmatched message to an event and
	// processes it.
	AssignUnmatched(ctx context.Context, unmatchedID, eventID string) error
}

// DefaultWorkflowService wires the engine components together.
type DefaultWorkflowService struct {
	Events  eventRepo.EventRepository
	Clients clientRepo.ClientRepository
	Rooms   roomRepo.RoomRepository
	Turns   turnRepo.TurnRepository

	Machine    *Machine
	Gate       *HILGate
	Detector   Detector
	Verbalizer *Verbalizer
	Notifier   Notifier
	OfferDoc   OfferRenderer

	Policy Policy
	Log    *zap.Logger
}

func (s *DefaultWorkflowService) ProcessInbound(ctx context.Context, mail models.InboundEmail) (*models.ConversationTurn, error) {
	log := s.log().With(zap.String("thread", mail.ThreadKey), zap.String("from", mail.From))

	// No thread association from the transport: queue for manual
	// assignment, never drop or guess.
	if mail.ThreadKey == "" {
		return nil, s.queueUnmatched(ctx, mail)
	}

	ev, err := s.Events.GetByThreadKey(ctx, mail.ThreadKey)
	if errors.Is(err, eventRepo.ErrNotFound) {
		// Unknown thread with a valid key is a fresh inquiry.
		ev, err = s.openEvent(ctx, mail)
	}
	if err != nil {
		return nil, err
	}

	log.Info("processing inbound message", zap.String("event", ev.ID), zap.Int("step", int(ev.CurrentStep)))
	return s.processForEvent(ctx, ev, mail)
}

func (s *DefaultWorkflowService) processForEvent(ctx context.Context, ev *models.Event, mail models.InboundEmail) (*models.ConversationTurn, error) {
	sanitized := SanitizeMessage(mail.Text)

	if _, err := RecordInbound(ctx, s.Turns, ev.ID, mail, sanitized); err != nil {
		return nil, err
	}
	ev.LastInboundAt = time.Now()

	client, err := s.Clients.GetByID(ctx, ev.ClientID)
	if err != nil {
		return nil, err
	}

	if ev.Status == models.StatusCancelled {
		s.notify(ctx, func() error {
			return s.Notifier.NotifyAmbiguous(ctx, ev.ID, "message received on a cancelled event")
		})
		return nil, s.Events.Update(ctx, ev)
	}

	packet := BuildRoutingPacket(ev, sanitized)
	route, err := withRetries(ctx, s.log(), s.Policy.ProviderMaxRetries, "detect",
		func(ctx context.Context) (models.RouteResult, error) {
			return s.Detector.Detect(ctx, packet)
		})
	if err != nil {
		// Safe default on provider failure: hold, notify, send nothing.
		s.notify(ctx, func() error {
			return s.Notifier.NotifyAmbiguous(ctx, ev.ID, "detection provider failed: "+err.Error())
		})
		return nil, s.Events.Update(ctx, ev)
	}
	route = s.applyConfidencePolicy(ev, route)

	stepPacket := BuildPacket(ev, sanitized, EffectiveStep(ev))

	// Advance mutates the event in memory; keep a copy so a mid-step
	// failure never persists half-applied mutations.
	snapshot := *ev
	if ev.Offer != nil {
		offer := *ev.Offer
		snapshot.Offer = &offer
	}

	outcome, advErr := s.Machine.Advance(ctx, ev, client, route, stepPacket)
	if advErr != nil && outcome.Kind == "" {
		*ev = snapshot
		return nil, s.holdForReview(ctx, ev, advErr)
	}
	if advErr != nil {
		// RoomUnavailable with an alternatives outcome: report, keep going.
		s.log().Warn("workflow advanced with error", zap.String("event", ev.ID), zap.Error(advErr))
	}

	if err := s.Events.Update(ctx, ev); err != nil {
		return nil, err
	}

	return s.draftOutcome(ctx, ev, client, outcome)
}

// applyConfidencePolicy demotes weak or anchorless results to ambiguous.
// A bare confirmation with no outstanding question cannot be resolved.
func (s *DefaultWorkflowService) applyConfidencePolicy(ev *models.Event, route models.RouteResult) models.RouteResult {
	if route.Confidence < s.Policy.DetectionMinConfidence {
		return models.RouteResult{Kind: models.RouteAmbiguous, Confidence: route.Confidence}
	}
	if route.Kind == models.RouteConfirm && ev.LastQuestion == "" {
		return models.RouteResult{Kind: models.RouteAmbiguous, Confidence: route.Confidence}
	}
	return route
}

// holdForReview is the safe default for every manager-visible failure: the
// event state keeps only the inbound timestamp, nothing is sent, nothing is
// cancelled.
func (s *DefaultWorkflowService) holdForReview(ctx context.Context, ev *models.Event, cause error) error {
	s.log().Info("holding conversation for manager review",
		zap.String("event", ev.ID), zap.Error(cause))

	switch {
	case IsExtractionConflict(cause):
		s.notify(ctx, func() error {
			return s.Notifier.NotifyExtractionConflict(ctx, ev.ID, cause.Error())
		})
	default:
		s.notify(ctx, func() error {
			return s.Notifier.NotifyAmbiguous(ctx, ev.ID, cause.Error())
		})
	}
	return s.Events.Update(ctx, ev)
}

// draftOutcome verbalizes the outcome and submits it through the HIL gate.
func (s *DefaultWorkflowService) draftOutcome(ctx context.Context, ev *models.Event, client *models.Client, outcome Outcome) (*models.ConversationTurn, error) {
	if outcome.Kind == "" {
		return nil, nil
	}

	rendered := s.Verbalizer.Render(ctx, ev, client, outcome.Kind, outcome.Detail)
	if rendered.Text == "" {
		return nil, nil
	}

	var attachment []byte
	var attachmentName string
	if outcome.AttachOffer && s.OfferDoc != nil && ev.Offer != nil {
		room, err := s.Rooms.GetByID(ctx, ev.Offer.RoomID)
		if err == nil {
			if pdf, err := s.OfferDoc.RenderOffer(ev, client, room); err == nil {
				attachment = pdf
				attachmentName = "offer.pdf"
			} else {
				s.log().Warn("offer document rendering failed", zap.String("event", ev.ID), zap.Error(err))
			}
		}
	}

	return s.Gate.Submit(ctx, ev.ID, rendered, attachment, attachmentName)
}

// openEvent starts a new workflow for a fresh inquiry thread.
func (s *DefaultWorkflowService) openEvent(ctx context.Context, mail models.InboundEmail) (*models.Event, error) {
	client, err := s.Clients.UpsertByEmail(ctx, mail.From, mail.Name)
	if err != nil {
		return nil, err
	}
	ev := &models.Event{
		ID:            uuid.New().String(),
		ClientID:      client.ID,
		CurrentStep:   models.StepIntake,
		Status:        models.StatusLead,
		ThreadKey:     mail.ThreadKey,
		LastInboundAt: time.Now(),
	}
	if err := s.Events.Create(ctx, ev); err != nil {
		return nil, err
	}
	s.log().Info("opened new event", zap.String("event", ev.ID), zap.String("client", client.ID))
	return ev, nil
}

func (s *DefaultWorkflowService) queueUnmatched(ctx context.Context, mail models.InboundEmail) error {
	msg := &models.UnmatchedMessage{
		ID:        uuid.New().String(),
		From:      mail.From,
		Subject:   mail.Subject,
		Text:      mail.Text,
		ThreadKey: mail.ThreadKey,
	}
	if err := s.Turns.InsertUnmatched(ctx, msg); err != nil {
		return err
	}
	s.notify(ctx, func() error {
		return s.Notifier.NotifyUnmatched(ctx, *msg)
	})
	return nil
}

func (s *DefaultWorkflowService) ApproveDraft(ctx context.Context, turnID, editedText string) error {
	return s.Gate.Approve(ctx, turnID, editedText)
}

func (s *DefaultWorkflowService) EditDraft(ctx context.Context, turnID, text string) error {
	return s.Gate.Edit(ctx, turnID, text)
}

func (s *DefaultWorkflowService) DiscardDraft(ctx context.Context, turnID string) error {
	return s.Gate.Discard(ctx, turnID)
}

func (s *DefaultWorkflowService) ResolveConflict(ctx context.Context, roomID, date, winnerClaimID string) error {
	losers, err := s.Machine.Resolver.Resolve(ctx, roomID, date, winnerClaimID)
	if err != nil {
		return err
	}

	// Losing events are not cancelled: they return to room selection and
	// get an alternatives draft.
	for _, eventID := range losers {
		ev, err := s.Events.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		client, err := s.Clients.GetByID(ctx, ev.ClientID)
		if err != nil {
			return err
		}
		outcome, err := s.Machine.ReturnToRoomSelection(ctx, ev, roomID)
		if err != nil {
			return err
		}
		if err := s.Events.Update(ctx, ev); err != nil {
			return err
		}
		if _, err := s.draftOutcome(ctx, ev, client, outcome); err != nil {
			return err
		}
	}
	return nil
}

func (s *DefaultWorkflowService) MarkDepositPaid(ctx context.Context, eventID string) error {
	ev, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	client, err := s.Clients.GetByID(ctx, ev.ClientID)
	if err != nil {
		return err
	}

	outcome, err := s.Machine.MarkDepositPaid(ctx, ev)
	if err != nil && outcome.Kind == "" {
		return err
	}
	if err := s.Events.Update(ctx, ev); err != nil {
		return err
	}
	_, draftErr := s.draftOutcome(ctx, ev, client, outcome)
	if draftErr != nil {
		return draftErr
	}
	return err
}

func (s *DefaultWorkflowService) AssignUnmatched(ctx context.Context, unmatchedID, eventID string) error {
	msg, err := s.Turns.AssignUnmatched(ctx, unmatchedID, eventID)
	if err != nil {
		return err
	}
	ev, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	mail := models.InboundEmail{
		From:      msg.From,
		Subject:   msg.Subject,
		Text:      msg.Text,
		ThreadKey: ev.ThreadKey,
	}
	_, err = s.processForEvent(ctx, ev, mail)
	return err
}

func (s *DefaultWorkflowService) notify(ctx context.Context, fn func() error) {
	if err := fn(); err != nil {
		s.log().Error("manager notification failed", zap.Error(err))
	}
}

func (s *DefaultWorkflowService) log() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.L()
}
