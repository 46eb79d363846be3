package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(Migrations(), ".")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		b, err := fs.ReadFile(Migrations(), e.Name())
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(string(b), "-- +goose Up"), e.Name())
		require.Contains(t, string(b), "-- +goose Down", e.Name())
	}
}
