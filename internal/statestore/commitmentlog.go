package statestore

import (
	"encoding/json"
	"strconv"

	badger "github.com/dgraph-io/badger"
	"github.com/pkg/errors"
)

// CommitmentRecord mirrors the orchestrator's commitment record (spec §3).
// Duplicated here (rather than imported) to keep this package free of a
// dependency on the orchestrator package.
type CommitmentRecord struct {
	Epoch      uint64
	Nonce      [8]byte
	Digest     [16]byte
	Salt       [32]byte
	Commitment [32]byte
}

// CommitmentLog is a badger-backed durable store, keyed by epoch, for
// in-flight CommitmentRecords, independent of the JSON state snapshot
// (SPEC_FULL §B.6). It exists purely as defense in depth: if the JSON
// file itself is the thing corrupted mid-write, the commitment for the
// current epoch can still be recovered from here.
type CommitmentLog struct {
	db *badger.DB
}

// OpenCommitmentLog opens (creating if absent) a badger database at dir.
func OpenCommitmentLog(dir string) (*CommitmentLog, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "statestore: open commitment log")
	}
	return &CommitmentLog{db: db}, nil
}

// Close releases the underlying database.
func (l *CommitmentLog) Close() error {
	return l.db.Close()
}

func commitmentKey(epoch uint64) []byte {
	return []byte("commitment:" + strconv.FormatUint(epoch, 10))
}

// Put durably records the commitment for epoch, overwriting any prior
// entry for the same epoch.
func (l *CommitmentLog) Put(record CommitmentRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "statestore: marshal commitment record")
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(commitmentKey(record.Epoch), data)
	})
}

// Get retrieves the commitment record for epoch, if one was recorded.
func (l *CommitmentLog) Get(epoch uint64) (CommitmentRecord, bool, error) {
	var record CommitmentRecord
	var found bool
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(commitmentKey(epoch))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return CommitmentRecord{}, false, errors.Wrap(err, "statestore: read commitment record")
	}
	return record, found, nil
}

// Delete removes the commitment record for epoch. The orchestrator calls
// it once the reveal transaction reaches a terminal status (success or
// failure); records of a missed reveal window or an abandoned commit
// are not deleted.
func (l *CommitmentLog) Delete(epoch uint64) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(commitmentKey(epoch))
	})
}
