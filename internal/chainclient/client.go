// Package chainclient is the thin facade the rest of this module uses to
// talk to the chain: one typed method per RPC, mirroring the teacher's
// client/bridge_client.go style of a single CallContext line per method,
// but over gRPC instead of JSON-RPC (spec §5 "Chain Client").
package chainclient

import (
	"context"
	"sync"

	"github.com/gxplatform/powminer/internal/logging"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
)

// Client wraps a grpc.ClientConn shared behind a read-write lock: queries
// take the read lock, reconnection takes the write lock (spec §5).
type Client struct {
	endpoint        string
	contractAddress string

	mu   sync.RWMutex
	conn *grpc.ClientConn

	log *logging.Logger
}

// Dial opens the initial connection to endpoint.
func Dial(ctx context.Context, endpoint, contractAddress string) (*Client, error) {
	c := &Client{
		endpoint:        endpoint,
		contractAddress: contractAddress,
		log:             logging.New("chainclient"),
	}
	if err := c.reconnect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	conn, err := grpc.DialContext(ctx, c.endpoint,
		grpc.WithInsecure(),
		grpc.WithBlock(),
	)
	if err != nil {
		return errors.Wrap(err, "chainclient: dial")
	}
	c.conn = conn
	c.log.Infow("connected", "endpoint", c.endpoint)
	return nil
}

// Reconnect tears down and re-establishes the underlying connection. Call
// sites use this after an rpc error classified as connection-level by
// internal/errs.
func (c *Client) Reconnect(ctx context.Context) error {
	return c.reconnect(ctx)
}

// withConn runs fn against the current connection under the read lock.
func (c *Client) withConn(fn func(*grpc.ClientConn) error) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return errors.New("chainclient: not connected")
	}
	return fn(conn)
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// ContractAddress returns the mining contract's bech32 address this
// client was configured with.
func (c *Client) ContractAddress() string {
	return c.contractAddress
}
