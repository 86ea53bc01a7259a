// File: services/intelligence/local.go
package intelligence

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"venuepilot/models"
)

// LocalProvider is the offline detection/extraction implementation, rule
// based and deterministic. Selected via DETECTION_PROVIDER=local; also the
// default so the engine works without an API key.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

var ackWords = map[string]bool{
	"yes": true, "yep": true, "ok": true, "okay": true, "sure": true,
	"sounds good": true, "ja": true, "gerne": true, "passt": true,
}

var rejectPhrases = []string{
	"cancel", "no longer need", "not interested", "found another venue",
	"call it off", "stornieren", "absagen",
}

// Detour topics recognized by keyword; anything conversational outside the
// booking flow itself.
var detourTopics = map[string][]string{
	"parking":       {"parking", "park", "parkplatz"},
	"catering":      {"catering", "menu", "food", "vegan", "essen"},
	"accessibility": {"wheelchair", "accessible", "barrierefrei"},
	"equipment":     {"projector", "sound system", "microphone", "beamer", "technik"},
	"payment":       {"invoice", "payment method", "rechnung", "zahlungsweise"},
}

// Detect routes a message with keyword rules. Short acknowledgements are
// resolved against the anchor only: no anchor, or an anchor offering
// several choices, yields ambiguous rather than a guess.
func (p *LocalProvider) Detect(ctx context.Context, packet models.ContextPacket) (models.RouteResult, error) {
	msg := strings.ToLower(strings.TrimSpace(packet.Message))

	for _, phrase := range rejectPhrases {
		if strings.Contains(msg, phrase) {
			return models.RouteResult{Kind: models.RouteReject, Confidence: 0.9}, nil
		}
	}

	if isAcknowledgement(msg) {
		if packet.Anchor == "" {
			return models.RouteResult{Kind: models.RouteAmbiguous, Confidence: 0.9}, nil
		}
		if offersMultipleChoices(packet.Anchor) {
			// "yes" to "Feb 7 or Feb 8?" selects nothing.
			return models.RouteResult{Kind: models.RouteAmbiguous, Confidence: 0.9}, nil
		}
		return models.RouteResult{Kind: models.RouteConfirm, Confidence: 0.9}, nil
	}

	if strings.Contains(msg, "?") {
		for topic, words := range detourTopics {
			for _, w := range words {
				if strings.Contains(msg, w) {
					return models.RouteResult{Kind: models.RouteDetour, Intent: topic, Confidence: 0.85}, nil
				}
			}
		}
	}

	if extractGuests(msg) != nil || extractDate(msg) != nil || matchesBookingVocabulary(msg) {
		return models.RouteResult{Kind: models.RouteContinue, Confidence: 0.8}, nil
	}

	// Nothing matched: low confidence, the policy demotes this to
	// ambiguous and the manager reviews it.
	return models.RouteResult{Kind: models.RouteContinue, Confidence: 0.4}, nil
}

// Extract pulls only explicitly stated facts out of the message.
func (p *LocalProvider) Extract(ctx context.Context, packet models.ContextPacket) (models.EventDelta, error) {
	msg := strings.ToLower(packet.Message)

	var delta models.EventDelta
	delta.Guests = extractGuests(msg)
	delta.Date = extractDate(msg)
	delta.RoomType = extractRoomType(msg)
	return delta, nil
}

func isAcknowledgement(msg string) bool {
	trimmed := strings.Trim(msg, " .,!")
	if ackWords[trimmed] {
		return true
	}
	// "yes, that works" style.
	for ack := range ackWords {
		if strings.HasPrefix(trimmed, ack+",") || strings.HasPrefix(trimmed, ack+" that") {
			return true
		}
	}
	return false
}

func offersMultipleChoices(anchor string) bool {
	lower := strings.ToLower(anchor)
	return strings.Contains(lower, " or ") || strings.Contains(lower, " oder ")
}

var guestsRe = regexp.MustCompile(`(\d+)\s*(guests?|people|persons?|pax|gäste|personen)`)

func extractGuests(msg string) *int {
	m := guestsRe.FindStringSubmatch(msg)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

var (
	isoDateRe    = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	germanDateRe = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)
)

func extractDate(msg string) *string {
	if m := isoDateRe.FindStringSubmatch(msg); m != nil {
		return &m[1]
	}
	if m := germanDateRe.FindStringSubmatch(msg); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		iso := m[3] + "-" + pad2(month) + "-" + pad2(day)
		return &iso
	}
	return nil
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

var roomTypes = []string{"hall", "conference", "salon", "terrace", "ballroom"}

func extractRoomType(msg string) *string {
	for _, t := range roomTypes {
		if strings.Contains(msg, t) {
			rt := t
			return &rt
		}
	}
	return nil
}

var bookingVocabulary = []string{
	"book", "event", "wedding", "conference", "party", "room", "venue",
	"date", "offer", "price", "quote", "deposit", "veranstaltung", "buchen",
}

func matchesBookingVocabulary(msg string) bool {
	for _, w := range bookingVocabulary {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}
