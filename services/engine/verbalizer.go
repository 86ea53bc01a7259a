package engine

import (
	"context"
	"fmt"
	"strings"

	"venuepilot/models"

	"go.uber.org/zap"
)

// MessageKind names the outbound message the machine wants verbalized.
type MessageKind string

const (
	MsgAskMissingInfo    MessageKind = "ask_missing_info"
	MsgAskDateConfirm    MessageKind = "ask_date_confirm"
	MsgProposeRooms      MessageKind = "propose_rooms"
	MsgPresentOffer      MessageKind = "present_offer"
	MsgAskDeposit        MessageKind = "ask_deposit"
	MsgConfirmBooking    MessageKind = "confirm_booking"
	MsgAnswerDetour      MessageKind = "answer_detour"
	MsgOfferAlternatives MessageKind = "offer_alternatives"
	MsgAcknowledgeCancel MessageKind = "acknowledge_cancel"
)

// Rendered is verbalizer output: the body and, separately, the question the
// message asks (the next anchor). Question is empty for closing messages.
type Rendered struct {
	Text     string
	Question string
}

// Verbalizer renders outbound text deterministically from structured event
// state. It never consults conversation history. Dates, prices and room
// names come verbatim from state; an optional polisher may rephrase around
// them but a polish that loses a factual field is discarded.
type Verbalizer struct {
	Polisher   Polisher
	MaxRetries int
	Log        *zap.Logger
}

// Render builds the outbound message for the given kind from event state.
func (v *Verbalizer) Render(ctx context.Context, ev *models.Event, client *models.Client, kind MessageKind, detail string) Rendered {
	r := v.template(ev, client, kind, detail)
	if v.Polisher == nil || r.Text == "" {
		return r
	}

	polished, err := withRetries(ctx, v.log(), v.MaxRetries, "polish", func(ctx context.Context) (string, error) {
		return v.Polisher.Polish(ctx, r.Text, clientLanguage(client))
	})
	if err != nil {
		v.log().Warn("polish failed, keeping template text", zap.Error(err))
		return r
	}
	if !containsAll(polished, v.facts(ev, kind)) {
		v.log().Warn("polished text dropped factual fields, keeping template text",
			zap.String("kind", string(kind)))
		return r
	}
	r.Text = polished
	return r
}

func (v *Verbalizer) log() *zap.Logger {
	if v.Log != nil {
		return v.Log
	}
	return zap.L()
}

// facts lists the literal fragments that must survive any rephrasing.
func (v *Verbalizer) facts(ev *models.Event, kind MessageKind) []string {
	var out []string
	switch kind {
	case MsgAskDateConfirm, MsgConfirmBooking:
		out = append(out, ev.Requirements.Date)
	case MsgProposeRooms:
		for _, opt := range ev.RoomOptions {
			out = append(out, opt.Name)
		}
	case MsgPresentOffer:
		if ev.Offer != nil {
			out = append(out, fmt.Sprintf("%.2f", ev.Offer.TotalPrice))
		}
	case MsgAskDeposit:
		if ev.Offer != nil {
			out = append(out, fmt.Sprintf("%.2f", ev.Offer.DepositAmount))
		}
	}
	return out
}

func containsAll(text string, fragments []string) bool {
	for _, f := range fragments {
		if f == "" {
			continue
		}
		if !strings.Contains(text, f) {
			return false
		}
	}
	return true
}

func clientLanguage(client *models.Client) string {
	if client != nil && client.Language == "de" {
		return "de"
	}
	return "en"
}

func (v *Verbalizer) template(ev *models.Event, client *models.Client, kind MessageKind, detail string) Rendered {
	de := clientLanguage(client) == "de"
	req := ev.Requirements

	switch kind {
	case MsgAskMissingInfo:
		var missing []string
		if req.Guests == 0 {
			missing = append(missing, pick(de, "die Gästezahl", "the number of guests"))
		}
		if req.Date == "" {
			missing = append(missing, pick(de, "das Datum", "the date"))
		}
		q := pick(de,
			fmt.Sprintf("Könnten Sie uns noch %s nennen?", strings.Join(missing, " und ")),
			fmt.Sprintf("Could you let us know %s?", strings.Join(missing, " and ")))
		return Rendered{
			Text:     pick(de, "Vielen Dank für Ihre Anfrage! ", "Thank you for your inquiry! ") + q,
			Question: q,
		}

	case MsgAskDateConfirm:
		q := pick(de,
			fmt.Sprintf("Passt der %s für Ihre Veranstaltung?", req.Date),
			fmt.Sprintf("Does %s work for your event?", req.Date))
		return Rendered{Text: q, Question: q}

	case MsgProposeRooms:
		var b strings.Builder
		b.WriteString(pick(de,
			fmt.Sprintf("Für %d Gäste am %s können wir Ihnen folgende Räume anbieten:\n", req.Guests, req.Date),
			fmt.Sprintf("For %d guests on %s we can offer the following rooms:\n", req.Guests, req.Date)))
		for _, opt := range ev.RoomOptions {
			fmt.Fprintf(&b, "- %s (up to %d guests, %.2f %s)\n", opt.Name, opt.Capacity, opt.Price, optionCurrency(opt))
		}
		q := pick(de, "Welcher Raum sagt Ihnen zu?", "Which room would you prefer?")
		b.WriteString(q)
		return Rendered{Text: b.String(), Question: q}

	case MsgPresentOffer:
		if ev.Offer == nil {
			return Rendered{}
		}
		o := ev.Offer
		var b strings.Builder
		b.WriteString(pick(de,
			fmt.Sprintf("Gerne senden wir Ihnen unser Angebot: Raum %s am %s für %d Gäste, Gesamtpreis %.2f %s.",
				o.RoomID, o.Date, o.Guests, o.TotalPrice, o.Currency),
			fmt.Sprintf("Please find our offer: room %s on %s for %d guests, total %.2f %s.",
				o.RoomID, o.Date, o.Guests, o.TotalPrice, o.Currency)))
		if o.DepositRequired {
			b.WriteString(pick(de,
				fmt.Sprintf(" Zur Bestätigung bitten wir um eine Anzahlung von %.2f %s (%.0f%%).", o.DepositAmount, o.Currency, o.DepositPercent),
				fmt.Sprintf(" A deposit of %.2f %s (%.0f%%) confirms the booking.", o.DepositAmount, o.Currency, o.DepositPercent)))
		}
		q := pick(de, "Dürfen wir den Termin für Sie festhalten?", "Shall we go ahead and reserve this for you?")
		b.WriteString(" ")
		b.WriteString(q)
		return Rendered{Text: b.String(), Question: q}

	case MsgAskDeposit:
		if ev.Offer == nil {
			return Rendered{}
		}
		q := pick(de,
			fmt.Sprintf("Sobald die Anzahlung von %.2f %s bei uns eingeht, ist Ihr Termin verbindlich reserviert. Können wir Ihnen die Zahlungsdaten senden?", ev.Offer.DepositAmount, ev.Offer.Currency),
			fmt.Sprintf("Once the deposit of %.2f %s arrives, your date is firmly reserved. Shall we send the payment details?", ev.Offer.DepositAmount, ev.Offer.Currency))
		return Rendered{Text: q, Question: q}

	case MsgConfirmBooking:
		return Rendered{Text: pick(de,
			fmt.Sprintf("Ihre Buchung für den %s ist hiermit bestätigt. Wir freuen uns auf Ihre Veranstaltung!", req.Date),
			fmt.Sprintf("Your booking for %s is confirmed. We look forward to hosting your event!", req.Date))}

	case MsgAnswerDetour:
		text := detail
		if text == "" {
			text = pick(de,
				"Gerne kümmern wir uns um Ihre Frage, ein Kollege meldet sich dazu in Kürze.",
				"Happy to help with that question, a colleague will get back to you shortly.")
		}
		back := pick(de, "Zurück zu Ihrer Buchung: ", "Back to your booking: ")
		q := ev.LastQuestion
		if q != "" {
			text += "\n\n" + back + q
		}
		return Rendered{Text: text, Question: q}

	case MsgOfferAlternatives:
		var b strings.Builder
		b.WriteString(pick(de,
			fmt.Sprintf("Leider ist der gewünschte Raum am %s inzwischen anderweitig fest gebucht.", req.Date),
			fmt.Sprintf("Unfortunately the requested room is now firmly booked on %s.", req.Date)))
		if len(ev.RoomOptions) > 0 {
			b.WriteString(pick(de, " Als Alternative können wir anbieten:\n", " As an alternative we can offer:\n"))
			for _, opt := range ev.RoomOptions {
				fmt.Fprintf(&b, "- %s (up to %d guests, %.2f %s)\n", opt.Name, opt.Capacity, opt.Price, optionCurrency(opt))
			}
		}
		q := pick(de, "Wäre eine dieser Alternativen interessant?", "Would one of these alternatives work for you?")
		b.WriteString(q)
		return Rendered{Text: b.String(), Question: q}

	case MsgAcknowledgeCancel:
		return Rendered{Text: pick(de,
			"Schade, dass es diesmal nicht geklappt hat. Wir haben Ihre Anfrage geschlossen und freuen uns auf ein nächstes Mal.",
			"Sorry it didn't work out this time. We've closed your inquiry and hope to welcome you another time.")}
	}
	return Rendered{}
}

// optionCurrency mirrors the offer path's EUR fallback for rooms without a
// configured currency.
func optionCurrency(opt models.RoomOption) string {
	if opt.Currency == "" {
		return "EUR"
	}
	return opt.Currency
}

func pick(de bool, german, english string) string {
	if de {
		return german
	}
	return english
}
