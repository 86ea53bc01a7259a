package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	roomRepo "venuepilot/database/repository/room"
	"venuepilot/models"

	"go.uber.org/zap"
)

// Outcome is what the machine wants said next. The caller verbalizes it,
// routes it through the HIL gate and persists the mutated event.
type Outcome struct {
	Kind   MessageKind
	Detail string
	// AttachOffer asks for the rendered offer document to accompany the
	// message.
	AttachOffer bool
	// Done marks the workflow as finished (terminal status reached).
	Done bool
}

// Machine owns the step lifecycle of an event: it is the only component
// that mutates CurrentStep and CallerStep. Transitions are driven by router
// output plus extraction results, never by raw message content.
type Machine struct {
	Rooms     roomRepo.RoomRepository
	Resolver  *ConflictResolver
	Extractor Extractor
	Policy    Policy
	Log       *zap.Logger
}

// maxRoomOptions bounds how many candidate rooms a proposal carries.
const maxRoomOptions = 3

// EffectiveStep is the step an inbound message will be handled at: the
// calling step when a detour is pending, otherwise the current step.
// Extraction packets must be scoped to this step, not to the transient
// answer sub-step.
func EffectiveStep(ev *models.Event) models.Step {
	if ev.InDetour() && ev.CurrentStep == models.StepAnswer {
		return *ev.CallerStep
	}
	return ev.CurrentStep
}

// Advance processes one routed inbound message against the event, mutating
// it in memory. The caller persists the event afterwards.
func (m *Machine) Advance(ctx context.Context, ev *models.Event, client *models.Client, route models.RouteResult, packet models.ContextPacket) (Outcome, error) {
	if ev.Status.Terminal() && ev.Status == models.StatusCancelled {
		return Outcome{}, NewInvalidTransition("event %s is cancelled", ev.ID)
	}

	// A pending detour resolves on the next inbound message: restore the
	// calling step before routing it.
	if step := EffectiveStep(ev); step != ev.CurrentStep {
		ev.CurrentStep = step
		ev.CallerStep = nil
	}

	switch route.Kind {
	case models.RouteAmbiguous:
		return Outcome{}, NewAmbiguousIntent("cannot resolve reply for event %s without manager review", ev.ID)

	case models.RouteReject:
		return m.cancel(ctx, ev)

	case models.RouteDetour:
		return m.detour(ev, route), nil

	case models.RouteContinue, models.RouteConfirm:
		return m.progress(ctx, ev, client, route, packet)

	default:
		return Outcome{}, NewAmbiguousIntent("unknown route kind %q", route.Kind)
	}
}

// detour pushes the current step and switches to the transient answer
// sub-step. Depth is capped at one: a detour while already detoured is
// answered inline without another push.
func (m *Machine) detour(ev *models.Event, route models.RouteResult) Outcome {
	if !ev.InDetour() {
		caller := ev.CurrentStep
		ev.CallerStep = &caller
		ev.CurrentStep = models.StepAnswer
	}
	return Outcome{Kind: MsgAnswerDetour, Detail: route.Intent}
}

func (m *Machine) cancel(ctx context.Context, ev *models.Event) (Outcome, error) {
	if err := m.Resolver.ReleaseEvent(ctx, ev.ID); err != nil {
		return Outcome{}, err
	}
	ev.Status = models.StatusCancelled
	return Outcome{Kind: MsgAcknowledgeCancel, Done: true}, nil
}

// progress runs extraction for state-changing steps, merges the delta, then
// dispatches to the current step's handler.
func (m *Machine) progress(ctx context.Context, ev *models.Event, client *models.Client, route models.RouteResult, packet models.ContextPacket) (Outcome, error) {
	changed := false
	if m.extractableStep(ev.CurrentStep) && strings.TrimSpace(packet.Message) != "" {
		delta, err := withRetries(ctx, m.log(), m.Policy.ProviderMaxRetries, "extract",
			func(ctx context.Context) (models.EventDelta, error) {
				return m.Extractor.Extract(ctx, packet)
			})
		if err != nil {
			return Outcome{}, err
		}
		changed, err = MergeDelta(ev, delta)
		if err != nil {
			return Outcome{}, err
		}
	}

	switch ev.CurrentStep {
	case models.StepIntake:
		return m.stepIntake(ctx, ev)
	case models.StepDateConfirm:
		return m.stepDateConfirm(ctx, ev, route, changed)
	case models.StepRoomSelect:
		return m.stepRoomSelect(ctx, ev, client, packet)
	case models.StepOffer, models.StepNegotiation:
		return m.stepNegotiation(ctx, ev, client, route, changed)
	case models.StepDeposit:
		return m.stepDeposit(ctx, ev, client, route)
	case models.StepConfirmation:
		// Post-confirmation chatter is answered inline.
		return Outcome{Kind: MsgAnswerDetour}, nil
	default:
		return Outcome{}, NewInvalidTransition("event %s is at undefined step %d", ev.ID, ev.CurrentStep)
	}
}

// extractableStep reports whether inbound messages at this step can assert
// new requirement facts.
func (m *Machine) extractableStep(step models.Step) bool {
	switch step {
	case models.StepIntake, models.StepDateConfirm, models.StepOffer, models.StepNegotiation:
		return true
	}
	return false
}

func (m *Machine) stepIntake(ctx context.Context, ev *models.Event) (Outcome, error) {
	if ev.Requirements.Guests == 0 || ev.Requirements.Date == "" {
		return Outcome{Kind: MsgAskMissingInfo}, nil
	}
	ev.CurrentStep = models.StepDateConfirm
	return Outcome{Kind: MsgAskDateConfirm}, nil
}

func (m *Machine) stepDateConfirm(ctx context.Context, ev *models.Event, route models.RouteResult, changed bool) (Outcome, error) {
	if route.Kind == models.RouteConfirm {
		ev.DateConfirmed = true
	}
	if !ev.DateConfirmed {
		if ev.Requirements.Date == "" {
			ev.CurrentStep = models.StepIntake
			return Outcome{Kind: MsgAskMissingInfo}, nil
		}
		return Outcome{Kind: MsgAskDateConfirm}, nil
	}

	ev.CurrentStep = models.StepRoomSelect
	if err := m.evaluateRooms(ctx, ev, ""); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: MsgProposeRooms}, nil
}

func (m *Machine) stepRoomSelect(ctx context.Context, ev *models.Event, client *models.Client, packet models.ContextPacket) (Outcome, error) {
	if !ev.DateConfirmed {
		return Outcome{}, NewInvalidTransition("event %s reached room selection without a confirmed date", ev.ID)
	}
	if err := m.evaluateRooms(ctx, ev, ""); err != nil {
		return Outcome{}, err
	}

	selected := matchRoomOption(ev.RoomOptions, packet.Message)
	if selected == nil {
		return Outcome{Kind: MsgProposeRooms}, nil
	}

	if _, err := m.Resolver.Claim(ctx, selected.RoomID, ev.Requirements.Date, ev.ID, ev.ClientID, models.ClaimOption); err != nil {
		return Outcome{}, err
	}
	ev.LockedRoomID = selected.RoomID
	ev.Status = models.StatusOption
	ev.CurrentStep = models.StepOffer

	if err := m.generateOffer(ctx, ev); err != nil {
		return Outcome{}, err
	}
	ev.CurrentStep = models.StepNegotiation
	return Outcome{Kind: MsgPresentOffer, AttachOffer: true}, nil
}

func (m *Machine) stepNegotiation(ctx context.Context, ev *models.Event, client *models.Client, route models.RouteResult, changed bool) (Outcome, error) {
	if ev.LockedRoomID == "" {
		return Outcome{}, NewInvalidTransition("event %s is negotiating without a locked room", ev.ID)
	}
	// A transient failure between the room lock and offer generation can
	// leave a persisted event at this step without an offer; rebuild it
	// before anything reads it.
	if ev.Offer == nil {
		if err := m.generateOffer(ctx, ev); err != nil {
			return Outcome{}, err
		}
	}

	if changed {
		// Requirements moved under the offer: re-check the locked room and
		// regenerate whatever the hash guards say is stale.
		room, err := m.Rooms.GetByID(ctx, ev.LockedRoomID)
		if err != nil {
			return Outcome{}, err
		}
		if room.Capacity < ev.Requirements.Guests {
			return m.ReturnToRoomSelection(ctx, ev, ev.LockedRoomID)
		}
		if err := m.generateOffer(ctx, ev); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: MsgPresentOffer, AttachOffer: true}, nil
	}

	if route.Kind != models.RouteConfirm {
		return Outcome{Kind: MsgPresentOffer}, nil
	}

	ev.Offer.Confirmed = true
	if ev.Offer.DepositRequired && ev.Offer.DepositStatus != models.DepositPaid {
		ev.CurrentStep = models.StepDeposit
		return Outcome{Kind: MsgAskDeposit}, nil
	}
	return m.FinalizeBooking(ctx, ev)
}

func (m *Machine) stepDeposit(ctx context.Context, ev *models.Event, client *models.Client, route models.RouteResult) (Outcome, error) {
	if ev.Offer == nil {
		return Outcome{}, NewInvalidTransition("event %s is at deposit step without an offer", ev.ID)
	}
	// Deposit status only changes through manager action; the engine never
	// infers payment from conversation content.
	if ev.Offer.DepositStatus == models.DepositPaid {
		return m.FinalizeBooking(ctx, ev)
	}
	return Outcome{Kind: MsgAskDeposit}, nil
}

// FinalizeBooking upgrades the event's claim to confirmed and closes the
// workflow. On a hard conflict the event returns to room selection with
// alternatives and the RoomUnavailable error is surfaced, never swallowed.
func (m *Machine) FinalizeBooking(ctx context.Context, ev *models.Event) (Outcome, error) {
	if ev.LockedRoomID == "" {
		return Outcome{}, NewInvalidTransition("event %s cannot be finalized without a locked room", ev.ID)
	}

	_, err := m.Resolver.Claim(ctx, ev.LockedRoomID, ev.Requirements.Date, ev.ID, ev.ClientID, models.ClaimConfirmed)
	if err != nil {
		if IsRoomUnavailable(err) {
			if _, retErr := m.ReturnToRoomSelection(ctx, ev, ev.LockedRoomID); retErr != nil {
				return Outcome{}, retErr
			}
			return Outcome{Kind: MsgOfferAlternatives}, err
		}
		return Outcome{}, err
	}

	ev.Status = models.StatusConfirmed
	ev.CurrentStep = models.StepConfirmation
	return Outcome{Kind: MsgConfirmBooking, Done: true}, nil
}

// MarkDepositPaid records the manager's deposit signal and finalizes when
// the offer was already confirmed.
func (m *Machine) MarkDepositPaid(ctx context.Context, ev *models.Event) (Outcome, error) {
	if ev.Offer == nil {
		return Outcome{}, NewInvalidTransition("event %s has no offer to pay a deposit on", ev.ID)
	}
	ev.Offer.DepositStatus = models.DepositPaid
	if ev.CurrentStep == models.StepDeposit && ev.Offer.Confirmed {
		return m.FinalizeBooking(ctx, ev)
	}
	return Outcome{}, nil
}

// ReturnToRoomSelection sends the event back to step 3, releasing its
// claims and recomputing alternatives without the excluded room. Used for
// hard conflicts and for the losing side of a resolved soft conflict.
func (m *Machine) ReturnToRoomSelection(ctx context.Context, ev *models.Event, excludeRoomID string) (Outcome, error) {
	if err := m.Resolver.ReleaseEvent(ctx, ev.ID); err != nil {
		return Outcome{}, err
	}
	ev.LockedRoomID = ""
	ev.Offer = nil
	ev.OfferHash = ""
	ev.RoomEvalHash = ""
	ev.RequirementsHash = ""
	ev.Status = models.StatusLead
	ev.CurrentStep = models.StepRoomSelect

	if err := m.evaluateRooms(ctx, ev, excludeRoomID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: MsgOfferAlternatives}, nil
}

// evaluateRooms computes candidate rooms for the current requirements. The
// requirements hash guards the query: an unchanged hash reuses the cached
// options, a changed hash always recomputes.
func (m *Machine) evaluateRooms(ctx context.Context, ev *models.Event, excludeRoomID string) error {
	reqHash := RequirementsHash(ev.Requirements)
	if reqHash == ev.RequirementsHash && len(ev.RoomOptions) > 0 {
		return nil
	}

	rooms, err := m.Rooms.FindCandidates(ctx, ev.Requirements.Guests, ev.Requirements.RoomType)
	if err != nil {
		return fmt.Errorf("room evaluation failed: %w", err)
	}

	var options []models.RoomOption
	for _, room := range rooms {
		if room.ID == excludeRoomID {
			continue
		}
		currency := room.Currency
		if currency == "" {
			currency = "EUR"
		}
		options = append(options, models.RoomOption{
			RoomID:   room.ID,
			Name:     room.Name,
			Capacity: room.Capacity,
			Price:    room.BasePrice + room.PricePerGuest*float64(ev.Requirements.Guests),
			Currency: currency,
		})
		if len(options) == maxRoomOptions {
			break
		}
	}

	ev.RoomOptions = options
	ev.RequirementsHash = reqHash
	ev.RoomEvalHash = RoomEvalHash(options)
	m.log().Debug("room evaluation recomputed",
		zap.String("event", ev.ID),
		zap.String("requirements_hash", reqHash),
		zap.Int("options", len(options)))
	return nil
}

// generateOffer builds the offer from the locked room. The offer hash
// guards regeneration the same way the requirements hash guards room
// evaluation.
func (m *Machine) generateOffer(ctx context.Context, ev *models.Event) error {
	offerHash := OfferHash(ev, m.Policy.DepositPercent)
	if offerHash == ev.OfferHash && ev.Offer != nil {
		return nil
	}

	room, err := m.Rooms.GetByID(ctx, ev.LockedRoomID)
	if err != nil {
		return err
	}

	total := room.BasePrice + room.PricePerGuest*float64(ev.Requirements.Guests)
	currency := room.Currency
	if currency == "" {
		currency = "EUR"
	}
	deposit := total * m.Policy.DepositPercent / 100

	prevStatus := models.DepositPending
	if ev.Offer != nil && ev.Offer.DepositStatus == models.DepositPaid {
		prevStatus = models.DepositPaid
	}

	ev.Offer = &models.Offer{
		RoomID:          ev.LockedRoomID,
		Date:            ev.Requirements.Date,
		Guests:          ev.Requirements.Guests,
		TotalPrice:      total,
		Currency:        currency,
		DepositRequired: m.Policy.DepositPercent > 0,
		DepositPercent:  m.Policy.DepositPercent,
		DepositAmount:   deposit,
		DepositStatus:   prevStatus,
		CreatedAt:       time.Now(),
	}
	ev.OfferHash = offerHash
	m.log().Debug("offer regenerated",
		zap.String("event", ev.ID),
		zap.String("offer_hash", offerHash),
		zap.Float64("total", total))
	return nil
}

// matchRoomOption finds the option a reply refers to: by room name, room ID
// or list position ("1", "option 2").
func matchRoomOption(options []models.RoomOption, message string) *models.RoomOption {
	msg := strings.ToLower(message)
	for i := range options {
		if strings.Contains(msg, strings.ToLower(options[i].Name)) ||
			strings.Contains(msg, strings.ToLower(options[i].RoomID)) {
			return &options[i]
		}
	}
	for i := range options {
		n := strconv.Itoa(i + 1)
		if msg == n || strings.Contains(msg, "option "+n) || strings.Contains(msg, "room "+n) {
			return &options[i]
		}
	}
	return nil
}

func (m *Machine) log() *zap.Logger {
	if m.Log != nil {
		return m.Log
	}
	return zap.L()
}
