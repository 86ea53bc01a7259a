package engine

import (
	"context"
	"fmt"
	"testing"

	"venuepilot/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubPolisher struct {
	out string
	err error
}

func (p *stubPolisher) Polish(ctx context.Context, text, language string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.out, nil
}

func offerEvent() *models.Event {
	return &models.Event{
		ID:           "ev1",
		LockedRoomID: "garden",
		Requirements: models.Requirements{Guests: 60, Date: "2026-02-07"},
		RoomOptions: []models.RoomOption{
			{RoomID: "salon", Name: "Salon Blanc", Capacity: 60, Price: 1400},
			{RoomID: "garden", Name: "Garden Hall", Capacity: 80, Price: 1600},
		},
		Offer: &models.Offer{
			RoomID:          "garden",
			Date:            "2026-02-07",
			Guests:          60,
			TotalPrice:      1600,
			Currency:        "EUR",
			DepositRequired: true,
			DepositPercent:  20,
			DepositAmount:   320,
		},
	}
}

func TestRenderDeterministicWithoutPolisher(t *testing.T) {
	v := &Verbalizer{Log: zap.NewNop()}
	ev := offerEvent()

	a := v.Render(context.Background(), ev, nil, MsgPresentOffer, "")
	b := v.Render(context.Background(), ev, nil, MsgPresentOffer, "")
	assert.Equal(t, a, b)
	assert.Contains(t, a.Text, "1600.00")
	assert.Contains(t, a.Text, "2026-02-07")
	assert.NotEmpty(t, a.Question)
}

func TestRenderProposeRoomsCarriesRoomNames(t *testing.T) {
	v := &Verbalizer{Log: zap.NewNop()}
	r := v.Render(context.Background(), offerEvent(), nil, MsgProposeRooms, "")
	assert.Contains(t, r.Text, "Salon Blanc")
	assert.Contains(t, r.Text, "Garden Hall")
}

func TestRenderProposeRoomsUsesRoomCurrency(t *testing.T) {
	v := &Verbalizer{Log: zap.NewNop()}
	ev := offerEvent()
	ev.RoomOptions = []models.RoomOption{
		{RoomID: "alpine", Name: "Alpine Suite", Capacity: 40, Price: 2000, Currency: "CHF"},
		{RoomID: "salon", Name: "Salon Blanc", Capacity: 60, Price: 1400},
	}

	r := v.Render(context.Background(), ev, nil, MsgProposeRooms, "")
	assert.Contains(t, r.Text, "2000.00 CHF")
	// Options without a catalogue currency fall back the way offers do.
	assert.Contains(t, r.Text, "1400.00 EUR")
}

func TestRenderGermanForGermanClient(t *testing.T) {
	v := &Verbalizer{Log: zap.NewNop()}
	client := &models.Client{Language: "de"}
	r := v.Render(context.Background(), offerEvent(), client, MsgAskDateConfirm, "")
	assert.Contains(t, r.Text, "2026-02-07")
	assert.Contains(t, r.Text, "Passt")
}

func TestRenderPolishKeptWhenFactsSurvive(t *testing.T) {
	polished := "Here is a friendlier offer for 2026-02-07, total 1600.00 EUR. Shall we reserve?"
	v := &Verbalizer{Polisher: &stubPolisher{out: polished}, Log: zap.NewNop()}

	r := v.Render(context.Background(), offerEvent(), nil, MsgPresentOffer, "")
	assert.Equal(t, polished, r.Text)
}

func TestRenderPolishDroppedWhenFactsLost(t *testing.T) {
	v := &Verbalizer{Polisher: &stubPolisher{out: "sounds great, let's do it!"}, Log: zap.NewNop()}
	ev := offerEvent()

	r := v.Render(context.Background(), ev, nil, MsgPresentOffer, "")
	// The polished text lost the price, so the template output stays.
	assert.Contains(t, r.Text, fmt.Sprintf("%.2f", ev.Offer.TotalPrice))
}

func TestRenderPolishFailureFallsBack(t *testing.T) {
	v := &Verbalizer{
		Polisher: &stubPolisher{err: NewProviderFailure("polish backend down")},
		Log:      zap.NewNop(),
	}
	r := v.Render(context.Background(), offerEvent(), nil, MsgPresentOffer, "")
	assert.Contains(t, r.Text, "1600.00")
}

func TestRenderAnswerDetourRestatesAnchor(t *testing.T) {
	v := &Verbalizer{Log: zap.NewNop()}
	ev := offerEvent()
	ev.LastQuestion = "Which room would you prefer?"

	r := v.Render(context.Background(), ev, nil, MsgAnswerDetour, "We have 40 parking spots on site.")
	assert.Contains(t, r.Text, "We have 40 parking spots on site.")
	assert.Contains(t, r.Text, "Which room would you prefer?")
	assert.Equal(t, "Which room would you prefer?", r.Question)
}

func TestRenderClosingMessagesAskNothing(t *testing.T) {
	v := &Verbalizer{Log: zap.NewNop()}
	ev := offerEvent()

	confirm := v.Render(context.Background(), ev, nil, MsgConfirmBooking, "")
	assert.NotEmpty(t, confirm.Text)
	assert.Empty(t, confirm.Question)

	cancel := v.Render(context.Background(), ev, nil, MsgAcknowledgeCancel, "")
	assert.NotEmpty(t, cancel.Text)
	assert.Empty(t, cancel.Question)
}

func TestRenderAskMissingInfoNamesGaps(t *testing.T) {
	v := &Verbalizer{Log: zap.NewNop()}
	ev := &models.Event{Requirements: models.Requirements{Guests: 50}}

	r := v.Render(context.Background(), ev, nil, MsgAskMissingInfo, "")
	assert.Contains(t, r.Text, "the date")
	assert.NotContains(t, r.Text, "number of guests")
}
