package revision

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps revisions in a Mongo collection.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(ctx context.Context, col *mongo.Collection) (*MongoStore, error) {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "contentId", Value: 1}, {Key: "createdAt", Value: -1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("revision index: %w", err)
	}
	return &MongoStore{col: col}, nil
}

func (m *MongoStore) Append(ctx context.Context, r *Revision) error {
	if _, err := m.col.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

func (m *MongoStore) ListByContent(ctx context.Context, contentID int64, limit int) ([]*Revision, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := m.col.Find(ctx, bson.M{"contentId": contentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find revisions: %w", err)
	}
	defer cur.Close(ctx)
	out := []*Revision{}
	for cur.Next(ctx) {
		var r Revision
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, cur.Err()
}
