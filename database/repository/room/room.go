package roomRepo

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

// ErrNotFound is returned when no room matches the query.
var ErrNotFound = errors.New("room not found")

// RoomRepository is the venue's room catalogue.
type RoomRepository interface {
	GetByID(ctx context.Context, id string) (*models.Room, error)
	List(ctx context.Context) ([]models.Room, error)
	// FindCandidates returns rooms that can host the given guest count,
	// optionally filtered by room type, smallest fitting room first.
	FindCandidates(ctx context.Context, guests int, roomType string) ([]models.Room, error)
	Upsert(ctx context.Context, room *models.Room) error
}

type mongoRoomRepo struct {
	coll *mongo.Collection
}

// NewMongoRoomRepo returns a RoomRepository backed by MongoDB.
func NewMongoRoomRepo() RoomRepository {
	return &mongoRoomRepo{coll: database.Collection("rooms")}
}

func (repo *mongoRoomRepo) GetByID(ctx context.Context, id string) (*models.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var room models.Room
	err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch room %s: %w", id, err)
	}
	return &room, nil
}

func (repo *mongoRoomRepo) List(ctx context.Context) ([]models.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := repo.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	var rooms []models.Room
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}
	return rooms, nil
}

func (repo *mongoRoomRepo) FindCandidates(ctx context.Context, guests int, roomType string) ([]models.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"capacity": bson.M{"$gte": guests}}
	if roomType != "" {
		filter["type"] = roomType
	}
	opts := options.Find().SetSort(bson.D{{Key: "capacity", Value: 1}})
	cur, err := repo.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate rooms: %w", err)
	}
	var rooms []models.Room
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("failed to decode candidate rooms: %w", err)
	}
	return rooms, nil
}

func (repo *mongoRoomRepo) Upsert(ctx context.Context, room *models.Room) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := repo.coll.ReplaceOne(ctx, bson.M{"id": room.ID}, room, opts); err != nil {
		return fmt.Errorf("failed to upsert room %s: %w", room.ID, err)
	}
	return nil
}
