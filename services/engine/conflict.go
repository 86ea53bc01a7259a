package engine

import (
	"context"
	"sync"

	claimRepo "venuepilot/database/repository/claim"
	"venuepilot/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// keyedLocks serializes work per (room, date) key. Claims are the single
// cross-event contention point; everything else in the engine is
// per-event.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (s *keyedLocks) get(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// ConflictResolver arbitrates room claims. It exclusively owns all claim
// mutations; concurrent attempts on the same (room, date) are linearized by
// the keyed lock, so one commits and the other observes the committed
// result.
type ConflictResolver struct {
	Claims   claimRepo.ClaimRepository
	Notifier Notifier
	Compare  ClaimComparator
	Log      *zap.Logger

	locks keyedLocks
}

// Claim requests a claim for the event on (roomID, date) at the given
// strength.
//
// No existing claim: accepted. Option against options: both persist (soft
// conflict) and one manager notification goes out. Confirmed against an
// existing confirmed claim of another event: RoomUnavailable.
func (r *ConflictResolver) Claim(ctx context.Context, roomID, date, eventID, clientID string, strength models.ClaimStrength) (*models.RoomClaim, error) {
	key := roomID + "|" + date
	lock := r.locks.get(key)
	lock.Lock()
	defer lock.Unlock()

	existing, err := r.Claims.ListActive(ctx, roomID, date)
	if err != nil {
		return nil, err
	}

	var own *models.RoomClaim
	var foreignConfirmed *models.RoomClaim
	var foreign []models.RoomClaim
	for i := range existing {
		c := existing[i]
		if c.EventID == eventID {
			own = &existing[i]
			continue
		}
		foreign = append(foreign, c)
		if c.Strength == models.ClaimConfirmed {
			foreignConfirmed = &existing[i]
		}
	}

	if strength == models.ClaimConfirmed && foreignConfirmed != nil {
		return nil, NewRoomUnavailable("room %s on %s already confirmed by event %s",
			roomID, date, foreignConfirmed.EventID)
	}

	// Upgrade or no-op on the event's own claim.
	if own != nil {
		if own.Strength == strength {
			return own, nil
		}
		if err := r.Claims.SetStrength(ctx, own.ID, strength); err != nil {
			return nil, err
		}
		own.Strength = strength
		return own, nil
	}

	claim := &models.RoomClaim{
		ID:       uuid.New().String(),
		RoomID:   roomID,
		Date:     date,
		EventID:  eventID,
		ClientID: clientID,
		Strength: strength,
	}
	if err := r.Claims.Insert(ctx, claim); err != nil {
		return nil, err
	}

	// The claim that arrives second observes the holder and raises the soft
	// conflict, so two concurrent options produce exactly one notification.
	if strength == models.ClaimOption && len(foreign) > 0 {
		held := r.preferred(foreign)
		r.log().Info("soft conflict on room claim",
			zap.String("room", roomID),
			zap.String("date", date),
			zap.String("held_by_event", held.EventID),
			zap.String("incoming_event", eventID))
		if err := r.Notifier.NotifySoftConflict(ctx, held, *claim); err != nil {
			r.log().Error("failed to notify soft conflict", zap.Error(err))
		}
	}
	return claim, nil
}

// Resolve collapses a soft conflict on (roomID, date): the winner's claim
// becomes confirmed, every other active claim is released. It returns the
// event IDs of the losing claims so the caller can route those events back
// to room selection with alternatives. Only a manager decision reaches
// this.
func (r *ConflictResolver) Resolve(ctx context.Context, roomID, date, winnerClaimID string) ([]string, error) {
	key := roomID + "|" + date
	lock := r.locks.get(key)
	lock.Lock()
	defer lock.Unlock()

	existing, err := r.Claims.ListActive(ctx, roomID, date)
	if err != nil {
		return nil, err
	}

	var winner *models.RoomClaim
	for i := range existing {
		if existing[i].ID == winnerClaimID {
			winner = &existing[i]
		}
	}
	if winner == nil {
		return nil, claimRepo.ErrNotFound
	}

	if err := r.Claims.SetStrength(ctx, winner.ID, models.ClaimConfirmed); err != nil {
		return nil, err
	}

	var losers []string
	for _, c := range existing {
		if c.ID == winner.ID {
			continue
		}
		if err := r.Claims.Release(ctx, c.ID); err != nil {
			return nil, err
		}
		losers = append(losers, c.EventID)
	}
	return losers, nil
}

// ReleaseEvent drops all active claims held by an event (cancellation,
// or returning to room selection).
func (r *ConflictResolver) ReleaseEvent(ctx context.Context, eventID string) error {
	claims, err := r.Claims.ListByEvent(ctx, eventID)
	if err != nil {
		return err
	}
	for _, c := range claims {
		lock := r.locks.get(c.ClaimKey())
		lock.Lock()
		err := r.Claims.Release(ctx, c.ID)
		lock.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// preferred applies the tie-break comparator; until a manager decides, the
// preferred claim is the one reported as holding the room.
func (r *ConflictResolver) preferred(claims []models.RoomClaim) models.RoomClaim {
	cmp := r.Compare
	if cmp == nil {
		cmp = PreferEarlierClaim
	}
	best := claims[0]
	for _, c := range claims[1:] {
		if cmp(c, best) {
			best = c
		}
	}
	return best
}

func (r *ConflictResolver) log() *zap.Logger {
	if r.Log != nil {
		return r.Log
	}
	return zap.L()
}
