// Package audit records one row per terminal QueuedTransaction for
// offline observability (SPEC_FULL §B.7). The orchestrator's behavior
// never depends on reading this back; a write failure is logged and
// otherwise ignored.
package audit

import (
	"time"

	"github.com/gxplatform/powminer/internal/logging"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// TransactionRecord is one terminal submission outcome.
type TransactionRecord struct {
	ID         uint64 `gorm:"primary_key"`
	Kind       string `gorm:"index"`
	Epoch      uint64 `gorm:"index"`
	Status     string
	TxHash     string
	ErrMessage string
	RetryCount uint32
	QueuedAt   time.Time
	FinishedAt time.Time
}

// Log writes TransactionRecords to a backing SQL database.
type Log struct {
	db  *gorm.DB
	log *logging.Logger
}

// OpenSQLite opens (creating if absent) a local SQLite-backed audit log,
// the default dialect for a single-instance miner.
func OpenSQLite(path string) (*Log, error) {
	db, err := gorm.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "audit: open sqlite database")
	}
	return open(db)
}

// OpenMySQL opens a shared-database-backed audit log, for deployments
// running several miner instances against one audit store.
func OpenMySQL(dsn string) (*Log, error) {
	db, err := gorm.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "audit: open mysql database")
	}
	return open(db)
}

func open(db *gorm.DB) (*Log, error) {
	if err := db.AutoMigrate(&TransactionRecord{}).Error; err != nil {
		db.Close()
		return nil, errors.Wrap(err, "audit: migrate schema")
	}
	return &Log{db: db, log: logging.New("audit")}, nil
}

// Close releases the underlying database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

// RecordSuccess appends a Success row. Failures to write are logged and
// swallowed: this is pure observability (spec §7 "failures are logged
// and never block progress").
func (l *Log) RecordSuccess(id uint64, kind string, epoch uint64, txHash string, retryCount uint32, queuedAt time.Time) {
	l.record(TransactionRecord{
		ID: id, Kind: kind, Epoch: epoch, Status: "success",
		TxHash: txHash, RetryCount: retryCount,
		QueuedAt: queuedAt, FinishedAt: time.Now(),
	})
}

// RecordFailure appends a Failed row.
func (l *Log) RecordFailure(id uint64, kind string, epoch uint64, errMessage string, retryCount uint32, queuedAt time.Time) {
	l.record(TransactionRecord{
		ID: id, Kind: kind, Epoch: epoch, Status: "failed",
		ErrMessage: errMessage, RetryCount: retryCount,
		QueuedAt: queuedAt, FinishedAt: time.Now(),
	})
}

func (l *Log) record(rec TransactionRecord) {
	if err := l.db.Create(&rec).Error; err != nil {
		l.log.Warnw("failed to write audit record", "id", rec.ID, "kind", rec.Kind, "err", err)
	}
}
