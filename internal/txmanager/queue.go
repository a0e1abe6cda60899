// Package txmanager serializes all on-chain submissions through a
// bounded FIFO queue, applies retry/backoff, and surfaces terminal
// status by id (spec §4.4).
package txmanager

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	uuid "github.com/satori/go.uuid"
)

// completedCacheSize bounds the completed-status map so a long-running
// miner doesn't accumulate unbounded history for consumed statuses.
const completedCacheSize = 4096

// Kind is the closed set of transaction kinds the manager submits.
type Kind int

const (
	KindCommit Kind = iota
	KindReveal
	KindClaim
	KindFinalizeEpoch
	KindAdvanceEpoch
)

func (k Kind) String() string {
	switch k {
	case KindCommit:
		return "commit"
	case KindReveal:
		return "reveal"
	case KindClaim:
		return "claim"
	case KindFinalizeEpoch:
		return "finalize_epoch"
	case KindAdvanceEpoch:
		return "advance_epoch"
	default:
		return "unknown"
	}
}

// CommitPayload is queue_commit's payload.
type CommitPayload struct {
	Epoch      uint64
	Commitment [32]byte
}

// RevealPayload is queue_reveal's payload.
type RevealPayload struct {
	Epoch  uint64
	Nonce  [8]byte
	Digest [16]byte
	Salt   [32]byte
}

// ClaimPayload is queue_claim's payload.
type ClaimPayload struct {
	Epoch uint64
}

// FinalizeEpochPayload is queue_finalize_epoch's payload.
type FinalizeEpochPayload struct {
	Epoch uint64
}

// StatusState is the closed set of terminal/non-terminal states a queued
// transaction can be in (spec §3 "Queued transaction").
type StatusState int

const (
	StatusPending StatusState = iota
	StatusProcessing
	StatusSuccess
	StatusFailed
)

func (s StatusState) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is the result of get_status(id).
type Status struct {
	State  StatusState
	TxHash string // set when State == StatusSuccess
	Err    string // set when State == StatusFailed
}

// QueuedTransaction is one entry in the FIFO queue (spec §3).
type QueuedTransaction struct {
	ID            uint64
	CorrelationID string
	Kind          Kind
	Payload       interface{}
	Status        Status
	RetryCount    uint32
	QueuedAtUnix  int64
}

// Queue is the bounded FIFO the manager drains strictly one-at-a-time.
// The pending list and the completed-status map are guarded by separate
// mutexes (spec §5 "to avoid lock inversion").
type Queue struct {
	capacity int

	pendingMu sync.Mutex
	pending   []*QueuedTransaction
	nextID    uint64

	statusMu  sync.Mutex
	completed *lru.Cache
}

// NewQueue constructs a Queue bounded to capacity pending entries. The
// completed-status map is a separately-locked, size-bounded LRU (spec §5
// "the completed-status map is guarded by a separate mutex to avoid lock
// inversion"; SPEC_FULL §B.5 for the bounding rationale).
func NewQueue(capacity int) *Queue {
	cache, err := lru.New(completedCacheSize)
	if err != nil {
		panic("txmanager: invalid completed cache size")
	}
	return &Queue{
		capacity:  capacity,
		completed: cache,
	}
}

func (q *Queue) enqueue(kind Kind, payload interface{}) (uint64, error) {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()

	if len(q.pending) >= q.capacity {
		return 0, errQueueFull
	}
	q.nextID++
	id := q.nextID
	tx := &QueuedTransaction{
		ID:            id,
		CorrelationID: uuid.NewV4().String(),
		Kind:          kind,
		Payload:       payload,
		Status:        Status{State: StatusPending},
		QueuedAtUnix:  time.Now().Unix(),
	}
	q.pending = append(q.pending, tx)

	q.statusMu.Lock()
	q.completed.Add(id, Status{State: StatusPending})
	q.statusMu.Unlock()

	return id, nil
}

// QueueCommit enqueues a commit_solution submission.
func (q *Queue) QueueCommit(epoch uint64, commitment [32]byte) (uint64, error) {
	return q.enqueue(KindCommit, CommitPayload{Epoch: epoch, Commitment: commitment})
}

// QueueReveal enqueues a reveal_solution submission.
func (q *Queue) QueueReveal(epoch uint64, nonce [8]byte, digest [16]byte, salt [32]byte) (uint64, error) {
	return q.enqueue(KindReveal, RevealPayload{Epoch: epoch, Nonce: nonce, Digest: digest, Salt: salt})
}

// QueueClaim enqueues a claim_reward submission.
func (q *Queue) QueueClaim(epoch uint64) (uint64, error) {
	return q.enqueue(KindClaim, ClaimPayload{Epoch: epoch})
}

// QueueFinalizeEpoch enqueues a permissionless finalize_epoch submission.
func (q *Queue) QueueFinalizeEpoch(epoch uint64) (uint64, error) {
	return q.enqueue(KindFinalizeEpoch, FinalizeEpochPayload{Epoch: epoch})
}

// QueueAdvanceEpoch enqueues a permissionless advance_epoch submission.
func (q *Queue) QueueAdvanceEpoch() (uint64, error) {
	return q.enqueue(KindAdvanceEpoch, nil)
}

// GetStatus returns the current status for id, or ok=false if id is
// unknown to this queue.
func (q *Queue) GetStatus(id uint64) (Status, bool) {
	q.statusMu.Lock()
	defer q.statusMu.Unlock()
	v, ok := q.completed.Get(id)
	if !ok {
		return Status{}, false
	}
	return v.(Status), true
}

func (q *Queue) setStatus(id uint64, s Status) {
	q.statusMu.Lock()
	q.completed.Add(id, s)
	q.statusMu.Unlock()
}

// next pops the oldest pending transaction, or ok=false if the queue is
// empty. Popped transactions move into Processing immediately.
func (q *Queue) next() (*QueuedTransaction, bool) {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	if len(q.pending) == 0 {
		return nil, false
	}
	tx := q.pending[0]
	q.pending = q.pending[1:]
	tx.Status = Status{State: StatusProcessing}
	q.setStatus(tx.ID, tx.Status)
	return tx, true
}

// requeue pushes tx back onto the front of the pending list for a retry
// (strict FIFO would push to the back, but a retried transaction must be
// reprocessed before any later-queued transaction to preserve sequence
// ordering for this account).
func (q *Queue) requeue(tx *QueuedTransaction) {
	tx.RetryCount++
	tx.Status = Status{State: StatusPending}
	q.pendingMu.Lock()
	q.pending = append([]*QueuedTransaction{tx}, q.pending...)
	q.pendingMu.Unlock()
	q.setStatus(tx.ID, tx.Status)
}

var errQueueFull = queueFullError{}

type queueFullError struct{}

func (queueFullError) Error() string { return "txmanager: queue is full" }
