package eventRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venuepilot/database"
	"venuepilot/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no event matches the query.
var ErrNotFound = errors.New("event not found")

// ErrVersionConflict is returned when a CAS update lost the race.
var ErrVersionConflict = errors.New("event version conflict")

type mongoEventRepo struct {
	coll *mongo.Collection
}

// NewMongoEventRepo returns an EventRepository backed by MongoDB.
func NewMongoEventRepo() EventRepository {
	return &mongoEventRepo{coll: database.Collection("events")}
}

func (repo *mongoEventRepo) Create(ctx context.Context, ev *models.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ev.Version = 1
	ev.CreatedAt = time.Now()
	ev.UpdatedAt = ev.CreatedAt
	if _, err := repo.coll.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (repo *mongoEventRepo) GetByID(ctx context.Context, id string) (*models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var ev models.Event
	err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&ev)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event %s: %w", id, err)
	}
	return &ev, nil
}

func (repo *mongoEventRepo) GetByThreadKey(ctx context.Context, threadKey string) (*models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var ev models.Event
	err := repo.coll.FindOne(ctx, bson.M{"thread_key": threadKey}).Decode(&ev)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event by thread key: %w", err)
	}
	return &ev, nil
}

// Update saves the event guarded by its version field, mirroring the
// hash-guarded CAS recommended for requirements/room-eval/offer hashes.
func (repo *mongoEventRepo) Update(ctx context.Context, ev *models.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	currentVersion := ev.Version
	ev.Version = currentVersion + 1
	ev.UpdatedAt = time.Now()

	filter := bson.M{"id": ev.ID, "version": currentVersion}
	res, err := repo.coll.ReplaceOne(ctx, filter, ev)
	if err != nil {
		ev.Version = currentVersion
		return fmt.Errorf("failed to update event %s: %w", ev.ID, err)
	}
	if res.MatchedCount == 0 {
		ev.Version = currentVersion
		return ErrVersionConflict
	}
	return nil
}

func (repo *mongoEventRepo) SetAnchor(ctx context.Context, eventID, question string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{"last_question": question, "updated_at": time.Now()},
		"$inc": bson.M{"version": 1},
	}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": eventID}, update)
	if err != nil {
		return fmt.Errorf("failed to set anchor for event %s: %w", eventID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (repo *mongoEventRepo) ListByClient(ctx context.Context, clientID string) ([]models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := repo.coll.Find(ctx, bson.M{"client_id": clientID})
	if err != nil {
		return nil, fmt.Errorf("failed to list events for client %s: %w", clientID, err)
	}
	var events []models.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

func (repo *mongoEventRepo) ListStale(ctx context.Context, before time.Time) ([]models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"status":          bson.M{"$nin": []models.EventStatus{models.StatusConfirmed, models.StatusCancelled}},
		"last_inbound_at": bson.M{"$lt": before},
	}
	cur, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale events: %w", err)
	}
	var events []models.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode stale events: %w", err)
	}
	return events, nil
}
