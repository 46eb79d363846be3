package users

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EditorRepository defines persistence operations for editors.
// GetBySub returns (nil, nil) for unknown subjects.
type EditorRepository interface {
	UpsertBySub(ctx context.Context, e *Editor) (*Editor, error)
	GetBySub(ctx context.Context, sub string) (*Editor, error)
}

// MongoEditorRepository implements EditorRepository using MongoDB
type MongoEditorRepository struct {
	col *mongo.Collection
}

func NewMongoEditorRepository(col *mongo.Collection) *MongoEditorRepository {
	return &MongoEditorRepository{col: col}
}

func (r *MongoEditorRepository) UpsertBySub(ctx context.Context, e *Editor) (*Editor, error) {
	now := time.Now().UTC()
	e.UpdatedAt = now

	filter := bson.M{"sub": e.Sub}
	update := bson.M{
		"$set": bson.M{
			"email":     e.Email,
			"name":      e.Name,
			"updatedAt": e.UpdatedAt,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated Editor
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return e, nil
		}
		return nil, err
	}
	return &updated, nil
}

func (r *MongoEditorRepository) GetBySub(ctx context.Context, sub string) (*Editor, error) {
	var e Editor
	if err := r.col.FindOne(ctx, bson.M{"sub": sub}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// MemoryEditorRepository is an in-memory EditorRepository.
type MemoryEditorRepository struct {
	mu    sync.RWMutex
	bySub map[string]*Editor
}

func NewMemoryEditorRepository() *MemoryEditorRepository {
	return &MemoryEditorRepository{bySub: make(map[string]*Editor)}
}

func (r *MemoryEditorRepository) UpsertBySub(_ context.Context, e *Editor) (*Editor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	cp := *e
	if prev, ok := r.bySub[e.Sub]; ok {
		cp.ID = prev.ID
		cp.CreatedAt = prev.CreatedAt
	} else {
		cp.ID = uuid.NewString()
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	r.bySub[e.Sub] = &cp
	out := cp
	return &out, nil
}

func (r *MemoryEditorRepository) GetBySub(_ context.Context, sub string) (*Editor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.bySub[sub]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}
