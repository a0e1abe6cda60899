package statestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleState struct {
	Epoch     uint64 `json:"epoch"`
	LastSaved int64  `json:"last_saved"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	store := New[sampleState](path)

	want := sampleState{Epoch: 42, LastSaved: 1000}
	require.NoError(t, store.Save(want))

	got, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	store := New[sampleState](filepath.Join(dir, "missing.json"))
	_, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoadCorruptFileMovedAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o600))

	store := New[sampleState](path)
	_, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	foundCorrupt := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "state.json.corrupt.") {
			foundCorrupt = true
		}
	}
	require.True(t, foundCorrupt)
}

func TestSaveCreatesBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	store := New[sampleState](path)

	require.NoError(t, store.Save(sampleState{Epoch: 1}))
	require.NoError(t, store.Save(sampleState{Epoch: 2}))

	_, err := os.Stat(path + ".bak")
	require.NoError(t, err)
}
