package clientRepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"venuepilot/database"
	"venuepilot/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no client matches the query.
var ErrNotFound = errors.New("client not found")

// ClientRepository manages contact identities across events.
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (*models.Client, error)
	GetByEmail(ctx context.Context, email string) (*models.Client, error)
	// UpsertByEmail returns the existing client for the normalized email or
	// creates one with the given name.
	UpsertByEmail(ctx context.Context, email, name string) (*models.Client, error)
}

type mongoClientRepo struct {
	coll *mongo.Collection
}

// NewMongoClientRepo returns a ClientRepository backed by MongoDB.
func NewMongoClientRepo() ClientRepository {
	return &mongoClientRepo{coll: database.Collection("clients")}
}

// NormalizeEmail lowercases and trims an email address for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (repo *mongoClientRepo) GetByID(ctx context.Context, id string) (*models.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c models.Client
	err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch client %s: %w", id, err)
	}
	return &c, nil
}

func (repo *mongoClientRepo) GetByEmail(ctx context.Context, email string) (*models.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c models.Client
	err := repo.coll.FindOne(ctx, bson.M{"email": NormalizeEmail(email)}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch client by email: %w", err)
	}
	return &c, nil
}

func (repo *mongoClientRepo) UpsertByEmail(ctx context.Context, email, name string) (*models.Client, error) {
	existing, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c := models.Client{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     NormalizeEmail(email),
		Language:  "en",
		CreatedAt: time.Now(),
	}
	if _, err := repo.coll.InsertOne(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to insert client: %w", err)
	}
	return &c, nil
}
