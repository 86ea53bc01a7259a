package engine

import (
	"fmt"
	"strconv"

	"venuepilot/models"
)

// Step goals, phrased as the target of the agent call for that step.
var stepGoals = map[models.Step]string{
	models.StepAnswer:       "answer the client's side question, then steer back to the booking",
	models.StepIntake:       "collect guest count, event date and room preferences",
	models.StepDateConfirm:  "get an explicit confirmation of the event date",
	models.StepRoomSelect:   "have the client pick one of the proposed rooms",
	models.StepOffer:        "present the offer and its deposit terms",
	models.StepNegotiation:  "settle open changes to guests, date or price",
	models.StepDeposit:      "obtain the deposit payment",
	models.StepConfirmation: "finalize the booking",
}

// BuildPacket assembles the minimal context for an agent call targeting the
// given step: the sanitized message plus only the event facts that step's
// schema needs. Packets are built fresh per call and never include
// conversation history.
func BuildPacket(ev *models.Event, sanitizedMsg string, step models.Step) models.ContextPacket {
	return models.ContextPacket{
		Message: sanitizedMsg,
		Step:    step,
		Goal:    stepGoals[step],
		Facts:   stepFacts(ev, step),
	}
}

// BuildRoutingPacket is BuildPacket plus the anchor, which only routing
// calls receive. An empty anchor means no question is outstanding; the
// router must answer ambiguous for short replies in that case.
func BuildRoutingPacket(ev *models.Event, sanitizedMsg string) models.ContextPacket {
	p := BuildPacket(ev, sanitizedMsg, ev.CurrentStep)
	p.Anchor = ev.LastQuestion
	return p
}

// stepFacts selects the structured snapshot for a step. Deliberately not
// the whole event: each schema sees only what it needs.
func stepFacts(ev *models.Event, step models.Step) map[string]string {
	facts := map[string]string{}
	req := ev.Requirements

	put := func(k, v string) {
		if v != "" && v != "0" {
			facts[k] = v
		}
	}

	switch step {
	case models.StepIntake:
		put("guests", strconv.Itoa(req.Guests))
		put("date", req.Date)
		put("room_type", req.RoomType)
		put("seating", req.Seating)
	case models.StepDateConfirm:
		put("date", req.Date)
		put("date_confirmed", strconv.FormatBool(ev.DateConfirmed))
	case models.StepRoomSelect:
		put("guests", strconv.Itoa(req.Guests))
		put("date", req.Date)
		put("room_type", req.RoomType)
		for i, opt := range ev.RoomOptions {
			facts[fmt.Sprintf("room_option_%d", i+1)] = fmt.Sprintf("%s (%s, up to %d guests, %.2f)", opt.Name, opt.RoomID, opt.Capacity, opt.Price)
		}
	case models.StepOffer, models.StepNegotiation:
		put("guests", strconv.Itoa(req.Guests))
		put("date", req.Date)
		put("room", ev.LockedRoomID)
		if ev.Offer != nil {
			facts["total_price"] = fmt.Sprintf("%.2f %s", ev.Offer.TotalPrice, ev.Offer.Currency)
		}
	case models.StepDeposit:
		if ev.Offer != nil {
			facts["deposit_amount"] = fmt.Sprintf("%.2f %s", ev.Offer.DepositAmount, ev.Offer.Currency)
			facts["deposit_status"] = string(ev.Offer.DepositStatus)
		}
	case models.StepConfirmation:
		put("date", req.Date)
		put("room", ev.LockedRoomID)
	case models.StepAnswer:
		put("date", req.Date)
		put("room", ev.LockedRoomID)
	}
	return facts
}
