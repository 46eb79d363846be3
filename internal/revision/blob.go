package revision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Blobs is the object storage the archive writes to. Implemented by
// storage.MinIOStorage.
type Blobs interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// BlobStore archives each revision as a JSON object under
// revisions/<contentId>/<unixnano>-<id>.json.
type BlobStore struct {
	blobs Blobs
}

func NewBlobStore(b Blobs) *BlobStore {
	return &BlobStore{blobs: b}
}

func prefixFor(contentID int64) string {
	return fmt.Sprintf("revisions/%d/", contentID)
}

func keyFor(r *Revision) string {
	return fmt.Sprintf("%s%020d-%s.json", prefixFor(r.ContentID), r.CreatedAt.UnixNano(), r.ID)
}

func (b *BlobStore) Append(ctx context.Context, r *Revision) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := b.blobs.Put(ctx, keyFor(r), bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return fmt.Errorf("archive revision %s: %w", r.ID, err)
	}
	return nil
}

func (b *BlobStore) ListByContent(ctx context.Context, contentID int64, limit int) ([]*Revision, error) {
	keys, err := b.blobs.Keys(ctx, prefixFor(contentID))
	if err != nil {
		return nil, err
	}
	out := make([]*Revision, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		r, err := b.read(ctx, keys[i])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	newestFirst(out)
	return out, nil
}

func (b *BlobStore) read(ctx context.Context, key string) (*Revision, error) {
	rc, err := b.blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var r Revision
	if err := json.NewDecoder(rc).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &r, nil
}
