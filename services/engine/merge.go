package engine

import "venuepilot/models"

// MergeDelta applies an extraction delta to the event monotonically: a
// present field overwrites, an absent field never erases a known value.
// It reports whether anything changed and fails with ExtractionConflict
// when the delta contradicts an already confirmed fact instead of silently
// overwriting it.
func MergeDelta(ev *models.Event, delta models.EventDelta) (bool, error) {
	if delta.Date != nil && ev.DateConfirmed && *delta.Date != ev.Requirements.Date {
		return false, NewExtractionConflict(
			"message asserts date %s but %s is already confirmed", *delta.Date, ev.Requirements.Date)
	}

	changed := false
	if delta.Guests != nil && *delta.Guests != ev.Requirements.Guests {
		ev.Requirements.Guests = *delta.Guests
		changed = true
	}
	if delta.Date != nil && *delta.Date != ev.Requirements.Date {
		ev.Requirements.Date = *delta.Date
		ev.DateConfirmed = false
		changed = true
	}
	if delta.RoomType != nil && *delta.RoomType != ev.Requirements.RoomType {
		ev.Requirements.RoomType = *delta.RoomType
		changed = true
	}
	if delta.Seating != nil && *delta.Seating != ev.Requirements.Seating {
		ev.Requirements.Seating = *delta.Seating
		changed = true
	}
	if delta.Budget != nil && *delta.Budget != ev.Requirements.Budget {
		ev.Requirements.Budget = *delta.Budget
		changed = true
	}
	if delta.Notes != nil && *delta.Notes != ev.Requirements.Notes {
		ev.Requirements.Notes = *delta.Notes
		changed = true
	}
	if delta.DateConfirmed != nil && *delta.DateConfirmed != ev.DateConfirmed {
		ev.DateConfirmed = *delta.DateConfirmed
		changed = true
	}
	return changed, nil
}
