// Package statestore persists the orchestrator's state machine snapshot
// atomically: write to a temp file, fsync, rename over the target, fsync
// the containing directory (spec §4.7). On a parse failure the corrupt
// file is moved aside and the caller continues from Idle.
package statestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	copydir "github.com/otiai10/copy"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Store persists one JSON document of type T at path, with a same-epoch
// backup and directory fsync on every save.
type Store[T any] struct {
	path string
}

// New constructs a Store writing to path.
func New[T any](path string) *Store[T] {
	return &Store[T]{path: path}
}

// Save atomically writes state to disk: marshal, write to "<path>.tmp",
// fsync the temp file, back up the previous file to "<path>.bak", rename
// the temp file over path, then fsync the containing directory so the
// rename itself is durable.
func (s *Store[T]) Save(state T) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "statestore: marshal state")
	}

	tmpPath := s.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrap(err, "statestore: open temp file")
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.Wrap(err, "statestore: write temp file")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrap(err, "statestore: fsync temp file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "statestore: close temp file")
	}

	s.backupPrevious()

	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.Wrap(err, "statestore: rename into place")
	}
	if err := fsyncDir(filepath.Dir(s.path)); err != nil {
		return errors.Wrap(err, "statestore: fsync state directory")
	}
	return nil
}

// backupPrevious copies the last-known-good state file aside as
// "<path>.bak" before it is overwritten. Never read back automatically;
// it exists only for incident review (SPEC_FULL §B.6).
func (s *Store[T]) backupPrevious() {
	if _, err := os.Stat(s.path); err != nil {
		return
	}
	_ = copydir.Copy(s.path, s.path+".bak")
}

func fsyncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	return unix.Fsync(fd)
}

// Load reads and decodes the persisted state. If the file does not
// exist, it returns ok=false with no error (first run). If the file
// exists but fails to parse, it is renamed aside as
// "<path>.corrupt.<UTC time as YYYYMMDDTHHMMSS>" and Load returns
// ok=false with no error —
// callers resume from Idle rather than treating this as fatal.
func (s *Store[T]) Load() (state T, ok bool, err error) {
	data, readErr := os.ReadFile(s.path)
	if os.IsNotExist(readErr) {
		return state, false, nil
	}
	if readErr != nil {
		return state, false, errors.Wrap(readErr, "statestore: read state file")
	}

	if err := json.Unmarshal(data, &state); err != nil {
		corruptPath := s.path + ".corrupt." + time.Now().UTC().Format("20060102T150405")
		if renameErr := os.Rename(s.path, corruptPath); renameErr != nil {
			return state, false, errors.Wrap(renameErr, "statestore: move corrupt file aside")
		}
		return state, false, nil
	}
	return state, true, nil
}
