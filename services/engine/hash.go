package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"venuepilot/models"

	"github.com/cespare/xxhash/v2"
)

// digest hashes a canonicalized field map: keys sorted, one "k=v" line each.
// Map iteration order never leaks into the hash.
func digest(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := xxhash.New()
	for _, k := range keys {
		h.WriteString(k)
		h.WriteString("=")
		h.WriteString(fields[k])
		h.WriteString("\n")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// RequirementsHash digests the requirement fields that drive room
// evaluation. Any change forces the room step to recompute.
func RequirementsHash(req models.Requirements) string {
	return digest(map[string]string{
		"guests":    strconv.Itoa(req.Guests),
		"date":      req.Date,
		"room_type": req.RoomType,
		"seating":   req.Seating,
	})
}

// RoomEvalHash digests a computed set of room options.
func RoomEvalHash(options []models.RoomOption) string {
	ids := make([]string, 0, len(options))
	for _, o := range options {
		ids = append(ids, fmt.Sprintf("%s:%.2f:%s", o.RoomID, o.Price, o.Currency))
	}
	sort.Strings(ids)
	return digest(map[string]string{"rooms": strings.Join(ids, ",")})
}

// OfferHash digests the inputs of offer generation: locked room, date,
// guests and deposit policy.
func OfferHash(ev *models.Event, depositPercent float64) string {
	return digest(map[string]string{
		"room":            ev.LockedRoomID,
		"date":            ev.Requirements.Date,
		"guests":          strconv.Itoa(ev.Requirements.Guests),
		"deposit_percent": fmt.Sprintf("%.2f", depositPercent),
	})
}
