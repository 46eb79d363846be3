package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gogotex/pagebuilder/internal/content"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists contents in a MongoDB collection keyed by a numeric
// _id drawn from a counters collection.
type MongoStore struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

// mongoField maps a criteria field to its bson key.
var mongoField = map[string]string{
	"id":             "_id",
	"type":           "type",
	"status":         "status",
	"title":          "title",
	"identifier":     "identifier",
	"store_id":       "storeIds",
	"author_id":      "authorId",
	"last_editor_id": "lastEditorId",
	"created_at":     "createdAt",
	"updated_at":     "updatedAt",
}

func NewMongoStore(ctx context.Context, col, counters *mongo.Collection) (*MongoStore, error) {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "identifier", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := col.Indexes().CreateMany(ctx, idx); err != nil {
		return nil, fmt.Errorf("create content indexes: %w", err)
	}
	return &MongoStore{col: col, counters: counters}, nil
}

func (m *MongoStore) nextID(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.counters.FindOneAndUpdate(ctx, bson.M{"_id": m.col.Name()}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("allocate content id: %w", err)
	}
	return doc.Seq, nil
}

func (m *MongoStore) Load(ctx context.Context, id int64) (*content.Content, error) {
	var c content.Content
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, content.NotFoundf("content %d", id)
		}
		return nil, err
	}
	return &c, nil
}

func (m *MongoStore) Save(ctx context.Context, c *content.Content) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if c.ID == 0 {
		id, err := m.nextID(ctx)
		if err != nil {
			return err
		}
		c.ID = id
		c.CreatedAt = now
		c.UpdatedAt = now
		if _, err := m.col.InsertOne(ctx, c); err != nil {
			c.ID = 0
			return mongoErr(err, c)
		}
		return nil
	}
	set := bson.M{
		"type":         c.Type,
		"status":       c.Status,
		"title":        c.Title,
		"identifier":   c.Identifier,
		"storeIds":     c.StoreIDs,
		"authorId":     c.AuthorID,
		"lastEditorId": c.LastEditorID,
		"elements":     c.Elements,
		"settings":     c.Settings,
		"updatedAt":    now,
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": set})
	if err != nil {
		return mongoErr(err, c)
	}
	if res.MatchedCount == 0 {
		return content.NotFoundf("content %d", c.ID)
	}
	c.UpdatedAt = now
	return nil
}

func mongoErr(err error, c *content.Content) error {
	if mongo.IsDuplicateKeyError(err) {
		return content.Invalidf("duplicate identifier %q", c.Identifier)
	}
	return err
}

func (m *MongoStore) Delete(ctx context.Context, c *content.Content) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": c.ID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return content.NotFoundf("content %d", c.ID)
	}
	return nil
}

func (m *MongoStore) List(ctx context.Context, sc content.SearchCriteria) ([]*content.Content, int, error) {
	filter, err := mongoFilter(sc.Filters)
	if err != nil {
		return nil, 0, err
	}
	total, err := m.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(mongoSort(sc.SortOrders))
	if sc.PageSize > 0 {
		opts.SetSkip(int64(sc.Offset())).SetLimit(int64(sc.PageSize))
	}
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []*content.Content{}
	for cur.Next(ctx) {
		var c content.Content
		if err := cur.Decode(&c); err != nil {
			return nil, 0, err
		}
		out = append(out, &c)
	}
	return out, int(total), cur.Err()
}

func mongoFilter(filters []content.Filter) (bson.M, error) {
	and := bson.A{}
	for _, f := range filters {
		key := mongoField[f.Field]
		v := mongoValue(f.Field, f.Value)
		var cond bson.M
		switch f.Condition {
		case content.CondEq:
			cond = bson.M{key: v}
		case content.CondNeq:
			cond = bson.M{key: bson.M{"$ne": v}}
		case content.CondLike:
			cond = bson.M{key: bson.M{"$regex": likeRegex(fmt.Sprint(f.Value)), "$options": "is"}}
		case content.CondIn:
			vals := bson.A{}
			for _, s := range stringValues(f.Value) {
				vals = append(vals, mongoValue(f.Field, s))
			}
			cond = bson.M{key: bson.M{"$in": vals}}
		case content.CondGteq:
			cond = bson.M{key: bson.M{"$gte": v}}
		case content.CondLteq:
			cond = bson.M{key: bson.M{"$lte": v}}
		default:
			return nil, content.Invalidf("unknown filter condition %q", f.Condition)
		}
		and = append(and, cond)
	}
	if len(and) == 0 {
		return bson.M{}, nil
	}
	return bson.M{"$and": and}, nil
}

// mongoValue converts a criteria value into the bson type stored for field.
func mongoValue(field string, v any) any {
	switch field {
	case "id":
		if n, err := strconv.ParseInt(fmt.Sprint(v), 10, 64); err == nil {
			return n
		}
	case "store_id":
		if n, err := strconv.Atoi(fmt.Sprint(v)); err == nil {
			return n
		}
	case "created_at", "updated_at":
		if t, ok := v.(time.Time); ok {
			return t
		}
		if t, err := time.Parse(time.RFC3339, fmt.Sprint(v)); err == nil {
			return t
		}
	}
	return v
}

func likeRegex(p string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range p {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

func mongoSort(orders []content.SortOrder) bson.D {
	d := bson.D{}
	for _, o := range orders {
		dir := 1
		if o.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: mongoField[o.Field], Value: dir})
	}
	if len(d) == 0 {
		d = append(d, bson.E{Key: "_id", Value: 1})
	}
	return d
}
