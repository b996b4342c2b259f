package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/furnimall/furnimall_backend/config"
	"github.com/furnimall/furnimall_backend/models"
	"github.com/furnimall/furnimall_backend/services"
)

// CommissionSystemRepository is the Mongo-backed store for the root
// ledgers, one document per manufacturer in commission_systems.
type CommissionSystemRepository struct {
	collection *mongo.Collection
}

func NewCommissionSystemRepository(client *mongo.Client) *CommissionSystemRepository {
	return &CommissionSystemRepository{
		collection: config.GetCollection(client, "commission_systems"),
	}
}

func (r *CommissionSystemRepository) GetByManufacturer(ctx context.Context, manufacturerID primitive.ObjectID) (*models.CommissionSystem, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var system models.CommissionSystem
	err := r.collection.FindOne(ctx, bson.M{"manufacturerId": manufacturerID}).Decode(&system)
	if err == mongo.ErrNoDocuments {
		return nil, services.ErrSystemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &system, nil
}

func (r *CommissionSystemRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.CommissionSystem, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var system models.CommissionSystem
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&system)
	if err == mongo.ErrNoDocuments {
		return nil, services.ErrSystemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &system, nil
}

func (r *CommissionSystemRepository) Insert(ctx context.Context, system *models.CommissionSystem) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, system)
	if mongo.IsDuplicateKeyError(err) {
		// Unique index on manufacturerId
		return services.ErrSystemExists
	}
	if err != nil {
		return err
	}
	system.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// Update writes the system conditionally on the revision the caller
// read and bumps it, so a stale writer fails instead of overwriting.
func (r *CommissionSystemRepository) Update(ctx context.Context, system *models.CommissionSystem) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"_id": system.ID, "revision": system.Revision}
	update := bson.M{
		"$set": bson.M{
			"totalMarginRate":   system.TotalMarginRate,
			"marginType":        system.MarginType,
			"factoryRetainRate": system.FactoryRetainRate,
			"allocatedRate":     system.AllocatedRate,
			"status":            system.Status,
			"version":           system.Version,
			"updatedAt":         system.UpdatedAt,
		},
		"$inc": bson.M{"revision": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return services.ErrRevisionConflict
	}
	system.Revision++
	return nil
}
