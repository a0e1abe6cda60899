// Package eventbus publishes a best-effort stream of phase-transition
// events onto redis pub/sub so an out-of-process consumer can observe
// lifecycle progress without polling the state file (SPEC_FULL §B.8).
// Publish failures are logged and never affect the state machine.
package eventbus

import (
	"encoding/json"

	redis "github.com/go-redis/redis/v7"
	"github.com/gxplatform/powminer/internal/logging"
)

// Channel is the single pub/sub channel every transition is published on.
const Channel = "powminer:transitions"

// Transition is one state-machine or epoch-phase change, published as JSON.
type Transition struct {
	Kind        string `json:"kind"` // "epoch_phase" or "mining_phase"
	EpochNumber uint64 `json:"epoch_number"`
	Phase       string `json:"phase"`
	MinerAddress string `json:"miner_address,omitempty"`
}

// Bus wraps a redis client for fire-and-forget publishing.
type Bus struct {
	client *redis.Client
	log    *logging.Logger
}

// New connects to a redis instance at addr.
func New(addr string) *Bus {
	return &Bus{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		log:    logging.New("eventbus"),
	}
}

// Close releases the underlying connection.
func (b *Bus) Close() error {
	return b.client.Close()
}

// Publish best-effort publishes t. Errors are logged, never returned:
// the bus is fire-and-forget (SPEC_FULL §B.8).
func (b *Bus) Publish(t Transition) {
	data, err := json.Marshal(t)
	if err != nil {
		b.log.Warnw("failed to encode transition", "err", err)
		return
	}
	if err := b.client.Publish(Channel, data).Err(); err != nil {
		b.log.Warnw("failed to publish transition", "err", err)
	}
}
