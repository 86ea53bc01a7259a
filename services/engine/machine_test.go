package engine

import (
	"context"
	"testing"

	"venuepilot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRooms() *memRooms {
	return newMemRooms(
		models.Room{ID: "salon", Name: "Salon Blanc", Type: "salon", Capacity: 60, BasePrice: 800, PricePerGuest: 10, Currency: "EUR"},
		models.Room{ID: "garden", Name: "Garden Hall", Type: "hall", Capacity: 80, BasePrice: 1000, PricePerGuest: 10, Currency: "EUR"},
		models.Room{ID: "ballroom", Name: "Grand Ballroom", Type: "hall", Capacity: 200, BasePrice: 2500, PricePerGuest: 12, Currency: "EUR"},
	)
}

func newTestMachine(rooms *memRooms, claims *memClaims, extractor Extractor) *Machine {
	if extractor == nil {
		extractor = &stubExtractor{}
	}
	return &Machine{
		Rooms: rooms,
		Resolver: &ConflictResolver{
			Claims:   claims,
			Notifier: &recordingNotifier{},
			Compare:  PreferEarlierClaim,
			Log:      zap.NewNop(),
		},
		Extractor: extractor,
		Policy:    DefaultPolicy(),
		Log:       zap.NewNop(),
	}
}

func leadEvent(step models.Step) *models.Event {
	return &models.Event{
		ID:          "ev1",
		ClientID:    "c1",
		CurrentStep: step,
		Status:      models.StatusLead,
	}
}

func continueRoute() models.RouteResult {
	return models.RouteResult{Kind: models.RouteContinue, Confidence: 0.9}
}

func confirmRoute() models.RouteResult {
	return models.RouteResult{Kind: models.RouteConfirm, Confidence: 0.9}
}

func TestAdvanceIntakeAsksForMissingInfo(t *testing.T) {
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := leadEvent(models.StepIntake)

	out, err := m.Advance(context.Background(), ev, nil, continueRoute(),
		BuildPacket(ev, "hi, we want to book a room", models.StepIntake))
	require.NoError(t, err)
	assert.Equal(t, MsgAskMissingInfo, out.Kind)
	assert.Equal(t, models.StepIntake, ev.CurrentStep)
}

func TestAdvanceIntakeCompletesWithFacts(t *testing.T) {
	extractor := &stubExtractor{deltas: []models.EventDelta{
		{Guests: intPtr(60), Date: strPtr("2026-02-07")},
	}}
	m := newTestMachine(testRooms(), newMemClaims(), extractor)
	ev := leadEvent(models.StepIntake)

	out, err := m.Advance(context.Background(), ev, nil, continueRoute(),
		BuildPacket(ev, "60 guests on 2026-02-07 please", models.StepIntake))
	require.NoError(t, err)
	assert.Equal(t, MsgAskDateConfirm, out.Kind)
	assert.Equal(t, models.StepDateConfirm, ev.CurrentStep)
	assert.Equal(t, 60, ev.Requirements.Guests)
}

func TestAdvanceDateConfirmMovesToRoomSelection(t *testing.T) {
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := leadEvent(models.StepDateConfirm)
	ev.Requirements = models.Requirements{Guests: 60, Date: "2026-02-07"}

	out, err := m.Advance(context.Background(), ev, nil, confirmRoute(),
		BuildPacket(ev, "yes", models.StepDateConfirm))
	require.NoError(t, err)
	assert.True(t, ev.DateConfirmed)
	assert.Equal(t, models.StepRoomSelect, ev.CurrentStep)
	assert.Equal(t, MsgProposeRooms, out.Kind)
	require.NotEmpty(t, ev.RoomOptions)
	// Smallest fitting room first, capped at three.
	assert.Equal(t, "salon", ev.RoomOptions[0].RoomID)
	assert.Equal(t, "EUR", ev.RoomOptions[0].Currency)
	assert.LessOrEqual(t, len(ev.RoomOptions), 3)
}

func TestAdvanceRoomSelectionLocksRoomAndPresentsOffer(t *testing.T) {
	claims := newMemClaims()
	m := newTestMachine(testRooms(), claims, nil)
	ev := leadEvent(models.StepRoomSelect)
	ev.DateConfirmed = true
	ev.Requirements = models.Requirements{Guests: 60, Date: "2026-02-07"}

	out, err := m.Advance(context.Background(), ev, nil, continueRoute(),
		BuildPacket(ev, "we'll take the Garden Hall", models.StepRoomSelect))
	require.NoError(t, err)

	assert.Equal(t, MsgPresentOffer, out.Kind)
	assert.True(t, out.AttachOffer)
	assert.Equal(t, "garden", ev.LockedRoomID)
	assert.Equal(t, models.StatusOption, ev.Status)
	assert.Equal(t, models.StepNegotiation, ev.CurrentStep)

	require.NotNil(t, ev.Offer)
	assert.Equal(t, 1000.0+10*60, ev.Offer.TotalPrice)
	assert.Equal(t, ev.Offer.TotalPrice*0.2, ev.Offer.DepositAmount)

	active, _ := claims.ListActive(context.Background(), "garden", "2026-02-07")
	require.Len(t, active, 1)
	assert.Equal(t, models.ClaimOption, active[0].Strength)
}

func TestAdvanceRoomSelectionRepromptsWithoutChoice(t *testing.T) {
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := leadEvent(models.StepRoomSelect)
	ev.DateConfirmed = true
	ev.Requirements = models.Requirements{Guests: 60, Date: "2026-02-07"}

	out, err := m.Advance(context.Background(), ev, nil, continueRoute(),
		BuildPacket(ev, "hmm, not sure yet", models.StepRoomSelect))
	require.NoError(t, err)
	assert.Equal(t, MsgProposeRooms, out.Kind)
	assert.Empty(t, ev.LockedRoomID)
}

func TestAdvanceRoomSelectionByListPosition(t *testing.T) {
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := leadEvent(models.StepRoomSelect)
	ev.DateConfirmed = true
	ev.Requirements = models.Requirements{Guests: 60, Date: "2026-02-07"}

	_, err := m.Advance(context.Background(), ev, nil, continueRoute(),
		BuildPacket(ev, "option 2 please", models.StepRoomSelect))
	require.NoError(t, err)
	assert.Equal(t, ev.RoomOptions[1].RoomID, ev.LockedRoomID)
}

func TestAdvanceNegotiationConfirmAsksForDeposit(t *testing.T) {
	claims := newMemClaims()
	m := newTestMachine(testRooms(), claims, nil)
	ev := negotiationEvent(t, m)

	out, err := m.Advance(context.Background(), ev, nil, confirmRoute(),
		BuildPacket(ev, "yes, please reserve it", ev.CurrentStep))
	require.NoError(t, err)
	assert.Equal(t, MsgAskDeposit, out.Kind)
	assert.Equal(t, models.StepDeposit, ev.CurrentStep)
	assert.True(t, ev.Offer.Confirmed)
}

// negotiationEvent walks an event to the negotiation step with a locked room.
func negotiationEvent(t *testing.T, m *Machine) *models.Event {
	t.Helper()
	ev := leadEvent(models.StepRoomSelect)
	ev.DateConfirmed = true
	ev.Requirements = models.Requirements{Guests: 60, Date: "2026-02-07"}
	_, err := m.Advance(context.Background(), ev, nil, continueRoute(),
		BuildPacket(ev, "salon blanc", models.StepRoomSelect))
	require.NoError(t, err)
	require.Equal(t, models.StepNegotiation, ev.CurrentStep)
	return ev
}

func TestAdvanceNegotiationRebuildsMissingOffer(t *testing.T) {
	// A transient room lookup failure can persist an event past the room
	// lock but before offer generation. A later confirm must rebuild the
	// offer instead of tripping over its absence.
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := leadEvent(models.StepNegotiation)
	ev.DateConfirmed = true
	ev.Requirements = models.Requirements{Guests: 60, Date: "2026-02-07"}
	ev.LockedRoomID = "salon"
	ev.Status = models.StatusOption

	out, err := m.Advance(context.Background(), ev, nil, confirmRoute(),
		BuildPacket(ev, "sounds good, we accept", ev.CurrentStep))
	require.NoError(t, err)
	require.NotNil(t, ev.Offer)
	assert.True(t, ev.Offer.Confirmed)
	assert.InDelta(t, 1400.0, ev.Offer.TotalPrice, 0.001)
	assert.Equal(t, MsgAskDeposit, out.Kind)
	assert.Equal(t, models.StepDeposit, ev.CurrentStep)
}

func TestAdvanceNegotiationGuestChangeRegeneratesOffer(t *testing.T) {
	extractor := &stubExtractor{deltas: []models.EventDelta{
		{Guests: intPtr(55)},
	}}
	m := newTestMachine(testRooms(), newMemClaims(), &stubExtractor{})
	ev := negotiationEvent(t, m)
	m.Extractor = extractor
	firstTotal := ev.Offer.TotalPrice

	out, err := m.Advance(context.Background(), ev, nil, continueRoute(),
		BuildPacket(ev, "actually we'll be 55 people", ev.CurrentStep))
	require.NoError(t, err)
	assert.Equal(t, MsgPresentOffer, out.Kind)
	assert.Equal(t, 55, ev.Requirements.Guests)
	assert.NotEqual(t, firstTotal, ev.Offer.TotalPrice)
	assert.Equal(t, "salon", ev.LockedRoomID)
}

func TestAdvanceNegotiationGuestsExceedCapacityReturnsToRoomSelection(t *testing.T) {
	extractor := &stubExtractor{deltas: []models.EventDelta{
		{Guests: intPtr(120)},
	}}
	claims := newMemClaims()
	m := newTestMachine(testRooms(), claims, &stubExtractor{})
	ev := negotiationEvent(t, m)
	m.Extractor = extractor

	out, err := m.Advance(context.Background(), ev, nil, continueRoute(),
		BuildPacket(ev, "we grew to 120 people", ev.CurrentStep))
	require.NoError(t, err)
	assert.Equal(t, MsgOfferAlternatives, out.Kind)
	assert.Equal(t, models.StepRoomSelect, ev.CurrentStep)
	assert.Empty(t, ev.LockedRoomID)
	assert.Nil(t, ev.Offer)

	// The old claim is gone and the excluded room is not re-offered.
	remaining, _ := claims.ListByEvent(context.Background(), ev.ID)
	assert.Empty(t, remaining)
	for _, opt := range ev.RoomOptions {
		assert.NotEqual(t, "salon", opt.RoomID)
	}
}

func TestAdvanceDetourPushesAndRestores(t *testing.T) {
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := leadEvent(models.StepDateConfirm)
	ev.Requirements = models.Requirements{Guests: 60, Date: "2026-02-07"}
	ev.LastQuestion = "Does 2026-02-07 work for your event?"

	out, err := m.Advance(context.Background(), ev, nil,
		models.RouteResult{Kind: models.RouteDetour, Intent: "parking", Confidence: 0.85},
		BuildPacket(ev, "do you have parking?", ev.CurrentStep))
	require.NoError(t, err)
	assert.Equal(t, MsgAnswerDetour, out.Kind)
	assert.Equal(t, "parking", out.Detail)
	assert.Equal(t, models.StepAnswer, ev.CurrentStep)
	require.NotNil(t, ev.CallerStep)
	assert.Equal(t, models.StepDateConfirm, *ev.CallerStep)

	// The next message resolves the detour and lands on the calling step.
	out, err = m.Advance(context.Background(), ev, nil, confirmRoute(),
		BuildPacket(ev, "yes the date works", models.StepDateConfirm))
	require.NoError(t, err)
	assert.Nil(t, ev.CallerStep)
	assert.True(t, ev.DateConfirmed)
	assert.Equal(t, models.StepRoomSelect, ev.CurrentStep)
	assert.Equal(t, MsgProposeRooms, out.Kind)
}

func TestAdvanceSecondDetourAnsweredInline(t *testing.T) {
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := leadEvent(models.StepDateConfirm)
	ev.Requirements = models.Requirements{Date: "2026-02-07"}

	detour := models.RouteResult{Kind: models.RouteDetour, Intent: "parking", Confidence: 0.85}
	_, err := m.Advance(context.Background(), ev, nil, detour,
		BuildPacket(ev, "parking?", ev.CurrentStep))
	require.NoError(t, err)
	caller := *ev.CallerStep

	detour.Intent = "catering"
	out, err := m.Advance(context.Background(), ev, nil, detour,
		BuildPacket(ev, "and catering?", ev.CurrentStep))
	require.NoError(t, err)
	assert.Equal(t, MsgAnswerDetour, out.Kind)
	// Depth stays one: same caller, no second push.
	require.NotNil(t, ev.CallerStep)
	assert.Equal(t, caller, *ev.CallerStep)
	assert.Equal(t, models.StepAnswer, ev.CurrentStep)
}

func TestAdvanceRejectCancelsAndReleasesClaims(t *testing.T) {
	claims := newMemClaims()
	m := newTestMachine(testRooms(), claims, nil)
	ev := negotiationEvent(t, m)

	out, err := m.Advance(context.Background(), ev, nil,
		models.RouteResult{Kind: models.RouteReject, Confidence: 0.9},
		BuildPacket(ev, "we found another venue, please cancel", ev.CurrentStep))
	require.NoError(t, err)
	assert.Equal(t, MsgAcknowledgeCancel, out.Kind)
	assert.True(t, out.Done)
	assert.Equal(t, models.StatusCancelled, ev.Status)

	remaining, _ := claims.ListByEvent(context.Background(), ev.ID)
	assert.Empty(t, remaining)
}

func TestAdvanceAmbiguousRouteErrors(t *testing.T) {
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := leadEvent(models.StepDateConfirm)

	_, err := m.Advance(context.Background(), ev, nil,
		models.RouteResult{Kind: models.RouteAmbiguous},
		BuildPacket(ev, "yes", ev.CurrentStep))
	require.Error(t, err)
	assert.True(t, IsAmbiguousIntent(err))
}

func TestAdvanceOnCancelledEventRejected(t *testing.T) {
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := leadEvent(models.StepNegotiation)
	ev.Status = models.StatusCancelled

	_, err := m.Advance(context.Background(), ev, nil, continueRoute(),
		BuildPacket(ev, "hello again", ev.CurrentStep))
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))
}

func TestFinalizeBookingConfirms(t *testing.T) {
	claims := newMemClaims()
	m := newTestMachine(testRooms(), claims, nil)
	ev := negotiationEvent(t, m)
	ev.Offer.Confirmed = true
	ev.Offer.DepositStatus = models.DepositPaid

	out, err := m.FinalizeBooking(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, MsgConfirmBooking, out.Kind)
	assert.True(t, out.Done)
	assert.Equal(t, models.StatusConfirmed, ev.Status)
	assert.Equal(t, models.StepConfirmation, ev.CurrentStep)

	active, _ := claims.ListActive(context.Background(), "salon", "2026-02-07")
	require.Len(t, active, 1)
	assert.Equal(t, models.ClaimConfirmed, active[0].Strength)
}

func TestFinalizeBookingHardConflictOffersAlternatives(t *testing.T) {
	claims := newMemClaims()
	m := newTestMachine(testRooms(), claims, nil)
	ev := negotiationEvent(t, m)

	// Someone else confirmed the salon for the same date in the meantime.
	_, err := m.Resolver.Claim(context.Background(), "salon", "2026-02-07", "ev-other", "c2", models.ClaimConfirmed)
	require.NoError(t, err)

	out, err := m.FinalizeBooking(context.Background(), ev)
	require.Error(t, err)
	assert.True(t, IsRoomUnavailable(err))
	assert.Equal(t, MsgOfferAlternatives, out.Kind)
	assert.Equal(t, models.StepRoomSelect, ev.CurrentStep)
	assert.Empty(t, ev.LockedRoomID)
	for _, opt := range ev.RoomOptions {
		assert.NotEqual(t, "salon", opt.RoomID)
	}
}

func TestMarkDepositPaidFinalizes(t *testing.T) {
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := negotiationEvent(t, m)
	ev.Offer.Confirmed = true
	ev.CurrentStep = models.StepDeposit

	out, err := m.MarkDepositPaid(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, models.DepositPaid, ev.Offer.DepositStatus)
	assert.Equal(t, MsgConfirmBooking, out.Kind)
	assert.Equal(t, models.StatusConfirmed, ev.Status)
}

func TestMarkDepositPaidBeforeConfirmationJustRecords(t *testing.T) {
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := negotiationEvent(t, m)

	out, err := m.MarkDepositPaid(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, models.DepositPaid, ev.Offer.DepositStatus)
	assert.Empty(t, out.Kind)
	assert.Equal(t, models.StepNegotiation, ev.CurrentStep)
}

func TestMarkDepositPaidWithoutOffer(t *testing.T) {
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := leadEvent(models.StepIntake)

	_, err := m.MarkDepositPaid(context.Background(), ev)
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))
}

func TestEvaluateRoomsCachedOnUnchangedRequirements(t *testing.T) {
	rooms := testRooms()
	m := newTestMachine(rooms, newMemClaims(), nil)
	ev := leadEvent(models.StepRoomSelect)
	ev.Requirements = models.Requirements{Guests: 60, Date: "2026-02-07"}

	require.NoError(t, m.evaluateRooms(context.Background(), ev, ""))
	firstHash := ev.RoomEvalHash
	firstOptions := ev.RoomOptions

	// A catalogue change is invisible while the requirements hash matches.
	require.NoError(t, rooms.Upsert(context.Background(), &models.Room{
		ID: "new", Name: "New Annex", Type: "hall", Capacity: 70, BasePrice: 500, Currency: "EUR",
	}))
	require.NoError(t, m.evaluateRooms(context.Background(), ev, ""))
	assert.Equal(t, firstHash, ev.RoomEvalHash)
	assert.Equal(t, firstOptions, ev.RoomOptions)

	// Changing a requirement recomputes.
	ev.Requirements.Guests = 65
	require.NoError(t, m.evaluateRooms(context.Background(), ev, ""))
	assert.NotEqual(t, firstHash, ev.RoomEvalHash)
}

func TestGenerateOfferCachedOnUnchangedInputs(t *testing.T) {
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := negotiationEvent(t, m)
	created := ev.Offer.CreatedAt

	require.NoError(t, m.generateOffer(context.Background(), ev))
	assert.Equal(t, created, ev.Offer.CreatedAt)
}

func TestGenerateOfferPreservesPaidDeposit(t *testing.T) {
	m := newTestMachine(testRooms(), newMemClaims(), nil)
	ev := negotiationEvent(t, m)
	ev.Offer.DepositStatus = models.DepositPaid

	ev.Requirements.Guests = 55
	require.NoError(t, m.generateOffer(context.Background(), ev))
	assert.Equal(t, models.DepositPaid, ev.Offer.DepositStatus)
}

func TestMatchRoomOption(t *testing.T) {
	options := []models.RoomOption{
		{RoomID: "salon", Name: "Salon Blanc"},
		{RoomID: "garden", Name: "Garden Hall"},
	}

	assert.Equal(t, "garden", matchRoomOption(options, "the Garden Hall sounds lovely").RoomID)
	assert.Equal(t, "salon", matchRoomOption(options, "salon blanc please").RoomID)
	assert.Equal(t, "salon", matchRoomOption(options, "1").RoomID)
	assert.Equal(t, "garden", matchRoomOption(options, "we take option 2").RoomID)
	assert.Nil(t, matchRoomOption(options, "neither, honestly"))
}
