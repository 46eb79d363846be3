package revision

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/stretchr/testify/require"
)

// fakeBlobs implements Blobs in memory
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func (f *fakeBlobs) Put(_ context.Context, key string, r io.Reader, size int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(b)) != size {
		return errors.New("size mismatch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = b
	return nil
}

func (f *fakeBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeBlobs) Keys(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func revisionsOf(id int64, titles ...string) []*Revision {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*Revision, 0, len(titles))
	for i, t := range titles {
		r := FromContent(&content.Content{ID: id, Type: content.TypePage, Status: content.StatusRevision, Title: t})
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		out = append(out, r)
	}
	return out
}

func TestFromContent(t *testing.T) {
	c := &content.Content{ID: 5, Type: content.TypeSection, Status: content.StatusPublished, Title: "Hero", Identifier: "section_x", Elements: `[]`, LastEditorID: "u1"}
	r := FromContent(c)
	require.NotEmpty(t, r.ID)
	require.Equal(t, int64(5), r.ContentID)
	require.Equal(t, "Hero", r.Title)
	require.Equal(t, "u1", r.EditorID)
	require.False(t, r.CreatedAt.IsZero())
}

func TestMemoryStore_NewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, r := range revisionsOf(1, "a", "b", "c") {
		require.NoError(t, s.Append(ctx, r))
	}
	require.NoError(t, s.Append(ctx, revisionsOf(2, "other")[0]))

	got, err := s.ListByContent(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "c", got[0].Title)
	require.Equal(t, "a", got[2].Title)

	got, err = s.ListByContent(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = s.ListByContent(ctx, 99, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestBlobStore_AppendAndList(t *testing.T) {
	blobs := &fakeBlobs{}
	s := NewBlobStore(blobs)
	ctx := context.Background()
	for _, r := range revisionsOf(7, "first", "second", "third") {
		require.NoError(t, s.Append(ctx, r))
	}
	require.Len(t, blobs.objects, 3)
	for k := range blobs.objects {
		require.True(t, strings.HasPrefix(k, "revisions/7/"), k)
		require.True(t, strings.HasSuffix(k, ".json"), k)
	}

	got, err := s.ListByContent(ctx, 7, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "third", got[0].Title)
	require.Equal(t, "second", got[1].Title)
}

func TestTee(t *testing.T) {
	primary := NewMemoryStore()
	archive := NewBlobStore(&fakeBlobs{})
	tee := Tee{Primary: primary, Archives: []Store{archive}}
	ctx := context.Background()
	r := revisionsOf(3, "x")[0]
	require.NoError(t, tee.Append(ctx, r))

	got, err := tee.ListByContent(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	failing := Tee{Primary: NewMemoryStore(), Archives: []Store{NewBlobStore(&fakeBlobs{putErr: errors.New("down")})}}
	err = failing.Append(ctx, r)
	require.Error(t, err)
	kept, _ := failing.Primary.ListByContent(ctx, 3, 0)
	require.Len(t, kept, 1, "primary write is kept when the archive fails")
}
