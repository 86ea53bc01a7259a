package claimRepo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"venuepilot/database"
	"venuepilot/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no claim matches the query.
var ErrNotFound = errors.New("claim not found")

type mongoClaimRepo struct {
	coll *mongo.Collection
}

// NewMongoClaimRepo returns a ClaimRepository backed by MongoDB.
func NewMongoClaimRepo() ClaimRepository {
	return &mongoClaimRepo{coll: database.Collection("room_claims")}
}

// EnsureIndexes creates claim indexes. The partial unique index on confirmed
// claims is the storage-level backstop for the hard-conflict rule.
func EnsureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	coll := database.Collection("room_claims")
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "date", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "date", Value: 1}, {Key: "strength", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"strength": models.ClaimConfirmed,
					"released": false,
				}),
		},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("failed to ensure claim indexes: %v", err)
	}
}

func (repo *mongoClaimRepo) Insert(ctx context.Context, claim *models.RoomClaim) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	claim.CreatedAt = time.Now()
	if _, err := repo.coll.InsertOne(ctx, claim); err != nil {
		return fmt.Errorf("failed to insert claim: %w", err)
	}
	return nil
}

func (repo *mongoClaimRepo) GetByID(ctx context.Context, id string) (*models.RoomClaim, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var claim models.RoomClaim
	err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&claim)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch claim %s: %w", id, err)
	}
	return &claim, nil
}

func (repo *mongoClaimRepo) ListActive(ctx context.Context, roomID, date string) ([]models.RoomClaim, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"room_id": roomID, "date": date, "released": false}
	cur, err := repo.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list active claims: %w", err)
	}
	var claims []models.RoomClaim
	if err := cur.All(ctx, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode claims: %w", err)
	}
	return claims, nil
}

func (repo *mongoClaimRepo) ListByEvent(ctx context.Context, eventID string) ([]models.RoomClaim, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := repo.coll.Find(ctx, bson.M{"event_id": eventID, "released": false})
	if err != nil {
		return nil, fmt.Errorf("failed to list claims for event %s: %w", eventID, err)
	}
	var claims []models.RoomClaim
	if err := cur.All(ctx, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode claims: %w", err)
	}
	return claims, nil
}

// ListContended groups active claims by (room, date) and returns those on
// keys claimed by more than one event.
func (repo *mongoClaimRepo) ListContended(ctx context.Context) ([]models.RoomClaim, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"released": false}}},
		{{Key: "$group", Value: bson.M{
			"_id":    bson.M{"room_id": "$room_id", "date": "$date"},
			"claims": bson.M{"$push": "$$ROOT"},
			"events": bson.M{"$addToSet": "$event_id"},
		}}},
		{{Key: "$match", Value: bson.M{"events.1": bson.M{"$exists": true}}}},
		{{Key: "$unwind", Value: "$claims"}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$claims"}}},
	}
	cur, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list contended claims: %w", err)
	}
	var claims []models.RoomClaim
	if err := cur.All(ctx, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode contended claims: %w", err)
	}
	return claims, nil
}

func (repo *mongoClaimRepo) SetStrength(ctx context.Context, id string, strength models.ClaimStrength) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"id": id, "released": false},
		bson.M{"$set": bson.M{"strength": strength}},
	)
	if err != nil {
		return fmt.Errorf("failed to set claim strength: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (repo *mongoClaimRepo) Release(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"released": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to release claim: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
