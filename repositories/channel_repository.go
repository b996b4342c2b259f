package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/furnimall/furnimall_backend/config"
	"github.com/furnimall/furnimall_backend/models"
	"github.com/furnimall/furnimall_backend/services"
)

// ChannelRepository is the Mongo-backed store for the tree nodes, one
// document per node in channel_nodes, plus the channel_counters
// collection behind the sequential channel codes.
type ChannelRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewChannelRepository(client *mongo.Client) *ChannelRepository {
	return &ChannelRepository{
		collection: config.GetCollection(client, "channel_nodes"),
		counters:   config.GetCollection(client, "channel_counters"),
	}
}

func (r *ChannelRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ChannelNode, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var node models.ChannelNode
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&node)
	if err == mongo.ErrNoDocuments {
		return nil, services.ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (r *ChannelRepository) ListBySystem(ctx context.Context, systemID primitive.ObjectID) ([]models.ChannelNode, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"commissionSystemId": systemID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var nodes []models.ChannelNode
	if err = cursor.All(ctx, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *ChannelRepository) ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]models.ChannelNode, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"parentId": parentID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var nodes []models.ChannelNode
	if err = cursor.All(ctx, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *ChannelRepository) CountChildren(ctx context.Context, parentID primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return r.collection.CountDocuments(ctx, bson.M{"parentId": parentID})
}

func (r *ChannelRepository) Insert(ctx context.Context, node *models.ChannelNode) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, node)
	if err != nil {
		return err
	}
	node.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// Update writes the node conditionally on its revision, same contract
// as the system store.
func (r *ChannelRepository) Update(ctx context.Context, node *models.ChannelNode) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"_id": node.ID, "revision": node.Revision}
	update := bson.M{
		"$set": bson.M{
			"name":           node.Name,
			"contact":        node.Contact,
			"notes":          node.Notes,
			"commissionRate": node.CommissionRate,
			"allocatedRate":  node.AllocatedRate,
			"isActive":       node.IsActive,
			"updatedAt":      node.UpdatedAt,
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
	node.Revision++
	return nil
}

func (r *ChannelRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return services.ErrChannelNotFound
	}
	return nil
}

// NextCodeSeq hands out the next sequence number for codes of one
// channel type inside one system, via an upserted counter document.
func (r *ChannelRepository) NextCodeSeq(ctx context.Context, systemID primitive.ObjectID, channelType string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"commissionSystemId": systemID, "type": channelType}
	update := bson.M{"$inc": bson.M{"seq": 1}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}
