package turnRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venuepilot/database"
	"venuepilot/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no turn matches the query.
var ErrNotFound = errors.New("turn not found")

type mongoTurnRepo struct {
	turns     *mongo.Collection
	unmatched *mongo.Collection
}

// NewMongoTurnRepo returns a TurnRepository backed by MongoDB.
func NewMongoTurnRepo() TurnRepository {
	return &mongoTurnRepo{
		turns:     database.Collection("conversation_turns"),
		unmatched: database.Collection("unmatched_messages"),
	}
}

func (repo *mongoTurnRepo) Insert(ctx context.Context, turn *models.ConversationTurn) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	turn.CreatedAt = time.Now()
	if _, err := repo.turns.InsertOne(ctx, turn); err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

func (repo *mongoTurnRepo) GetByID(ctx context.Context, id string) (*models.ConversationTurn, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var turn models.ConversationTurn
	err := repo.turns.FindOne(ctx, bson.M{"id": id}).Decode(&turn)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch turn %s: %w", id, err)
	}
	return &turn, nil
}

func (repo *mongoTurnRepo) ListByEvent(ctx context.Context, eventID string) ([]models.ConversationTurn, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := repo.turns.Find(ctx, bson.M{"event_id": eventID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list turns for event %s: %w", eventID, err)
	}
	var turns []models.ConversationTurn
	if err := cur.All(ctx, &turns); err != nil {
		return nil, fmt.Errorf("failed to decode turns: %w", err)
	}
	return turns, nil
}

func (repo *mongoTurnRepo) ListDrafts(ctx context.Context) ([]models.ConversationTurn, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := repo.turns.Find(ctx, bson.M{"status": models.TurnDraft},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	var turns []models.ConversationTurn
	if err := cur.All(ctx, &turns); err != nil {
		return nil, fmt.Errorf("failed to decode drafts: %w", err)
	}
	return turns, nil
}

func (repo *mongoTurnRepo) UpdateDraftText(ctx context.Context, id, text string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := repo.turns.UpdateOne(ctx,
		bson.M{"id": id, "status": models.TurnDraft},
		bson.M{"$set": bson.M{"raw_text": text}},
	)
	if err != nil {
		return fmt.Errorf("failed to update draft text: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSent is the one-way draft->sent transition. The status filter makes the
// update a CAS: a second approval matches nothing and reports false.
func (repo *mongoTurnRepo) MarkSent(ctx context.Context, id, finalText string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	res, err := repo.turns.UpdateOne(ctx,
		bson.M{"id": id, "status": models.TurnDraft},
		bson.M{"$set": bson.M{
			"status":   models.TurnSent,
			"raw_text": finalText,
			"sent_at":  now,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark turn sent: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (repo *mongoTurnRepo) MarkDiscarded(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := repo.turns.UpdateOne(ctx,
		bson.M{"id": id, "status": models.TurnDraft},
		bson.M{"$set": bson.M{"status": models.TurnDiscarded}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark turn discarded: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// RevertToDraft is the recovery path for a sent turn that never made it
// into the delivery queue. Same CAS shape as MarkSent, in reverse.
func (repo *mongoTurnRepo) RevertToDraft(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := repo.turns.UpdateOne(ctx,
		bson.M{"id": id, "status": models.TurnSent},
		bson.M{
			"$set":   bson.M{"status": models.TurnDraft},
			"$unset": bson.M{"sent_at": ""},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to revert turn to draft: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (repo *mongoTurnRepo) InsertUnmatched(ctx context.Context, msg *models.UnmatchedMessage) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msg.ReceivedAt = time.Now()
	if _, err := repo.unmatched.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert unmatched message: %w", err)
	}
	return nil
}

func (repo *mongoTurnRepo) ListUnmatched(ctx context.Context) ([]models.UnmatchedMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := repo.unmatched.Find(ctx, bson.M{"assigned_event_id": ""},
		options.Find().SetSort(bson.D{{Key: "received_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list unmatched messages: %w", err)
	}
	var msgs []models.UnmatchedMessage
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode unmatched messages: %w", err)
	}
	return msgs, nil
}

func (repo *mongoTurnRepo) AssignUnmatched(ctx context.Context, id, eventID string) (*models.UnmatchedMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var msg models.UnmatchedMessage
	err := repo.unmatched.FindOneAndUpdate(ctx,
		bson.M{"id": id, "assigned_event_id": ""},
		bson.M{"$set": bson.M{"assigned_event_id": eventID}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to assign unmatched message: %w", err)
	}
	return &msg, nil
}
