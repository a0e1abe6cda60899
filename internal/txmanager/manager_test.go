package txmanager

import (
	"context"
	"testing"
	"time"

	"github.com/gxplatform/powminer/internal/chainclient"
	"github.com/gxplatform/powminer/internal/keyring"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var errReveal = errors.New("connection refused")

type fakeChainClient struct {
	accountSeq uint64
	broadcast  func(txBytes []byte) (chainclient.BroadcastResult, error)
	poll       func(txHash string) (chainclient.TxStatus, error)
	broadcasts int
}

func (f *fakeChainClient) Account(ctx context.Context, address string) (chainclient.AccountInfo, error) {
	return chainclient.AccountInfo{Address: address, AccountNumber: 1, Sequence: f.accountSeq}, nil
}

func (f *fakeChainClient) BroadcastTx(ctx context.Context, txBytes []byte) (chainclient.BroadcastResult, error) {
	f.broadcasts++
	return f.broadcast(txBytes)
}

func (f *fakeChainClient) PollTxStatus(ctx context.Context, restEndpoint, txHash string) (chainclient.TxStatus, error) {
	return f.poll(txHash)
}

func (f *fakeChainClient) ContractAddress() string { return "inj1contractaddr" }

func testKeyring(t *testing.T) *keyring.Keyring {
	t.Helper()
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	kr, err := keyring.FromMnemonic(mnemonic)
	require.NoError(t, err)
	return kr
}

func TestManagerSucceedsOnFirstAttempt(t *testing.T) {
	fake := &fakeChainClient{
		accountSeq: 5,
		broadcast: func(txBytes []byte) (chainclient.BroadcastResult, error) {
			return chainclient.BroadcastResult{TxHash: "ABCD", Code: 0}, nil
		},
		poll: func(txHash string) (chainclient.TxStatus, error) {
			return chainclient.TxStatus{Found: true, Code: 0}, nil
		},
	}
	q := NewQueue(4)
	id, err := q.QueueCommit(1, [32]byte{9})
	require.NoError(t, err)

	m := NewManager(q, fake, testKeyring(t), "inj1miner", "injective-888", 1439, "500000000", "inj", "http://rest", 3, 10*time.Millisecond)
	tx, ok := q.next()
	require.True(t, ok)
	m.process(context.Background(), tx)

	status, ok := q.GetStatus(id)
	require.True(t, ok)
	require.Equal(t, StatusSuccess, status.State)
	require.Equal(t, "ABCD", status.TxHash)
	require.Equal(t, 1, fake.broadcasts)
}

func TestManagerRetriesSequenceMismatchThenSucceeds(t *testing.T) {
	attempts := 0
	fake := &fakeChainClient{
		accountSeq: 5,
		broadcast: func(txBytes []byte) (chainclient.BroadcastResult, error) {
			attempts++
			if attempts == 1 {
				return chainclient.BroadcastResult{Code: 32, RawLog: "account sequence mismatch, expected 6, got 5"}, nil
			}
			return chainclient.BroadcastResult{TxHash: "OK", Code: 0}, nil
		},
		poll: func(txHash string) (chainclient.TxStatus, error) {
			return chainclient.TxStatus{Found: true, Code: 0}, nil
		},
	}
	q := NewQueue(4)
	id, _ := q.QueueClaim(2)

	m := NewManager(q, fake, testKeyring(t), "inj1miner", "injective-888", 1439, "500000000", "inj", "http://rest", 3, time.Millisecond)
	tx, _ := q.next()
	m.process(context.Background(), tx)

	status, ok := q.GetStatus(id)
	require.True(t, ok)
	require.Equal(t, StatusSuccess, status.State)
	require.Equal(t, 2, attempts)
}

func TestManagerFailsPermanentlyOnNonRetryableCode(t *testing.T) {
	fake := &fakeChainClient{
		accountSeq: 1,
		broadcast: func(txBytes []byte) (chainclient.BroadcastResult, error) {
			return chainclient.BroadcastResult{Code: 5, RawLog: "insufficient funds"}, nil
		},
		poll: func(txHash string) (chainclient.TxStatus, error) {
			return chainclient.TxStatus{Found: true, Code: 0}, nil
		},
	}
	q := NewQueue(4)
	id, _ := q.QueueCommit(1, [32]byte{})

	m := NewManager(q, fake, testKeyring(t), "inj1miner", "injective-888", 1439, "500000000", "inj", "http://rest", 3, time.Millisecond)
	tx, _ := q.next()
	m.process(context.Background(), tx)

	status, ok := q.GetStatus(id)
	require.True(t, ok)
	require.Equal(t, StatusFailed, status.State)
	require.Equal(t, "insufficient funds", status.Err)
	require.Equal(t, 1, fake.broadcasts)
}

func TestManagerRevealUsesSingleRetry(t *testing.T) {
	fake := &fakeChainClient{
		accountSeq: 1,
		broadcast: func(txBytes []byte) (chainclient.BroadcastResult, error) {
			return chainclient.BroadcastResult{}, errReveal
		},
		poll: func(txHash string) (chainclient.TxStatus, error) {
			return chainclient.TxStatus{}, nil
		},
	}
	q := NewQueue(4)
	id, _ := q.QueueReveal(1, [8]byte{}, [16]byte{}, [32]byte{})

	m := NewManager(q, fake, testKeyring(t), "inj1miner", "injective-888", 1439, "500000000", "inj", "http://rest", 3, time.Millisecond)
	tx, _ := q.next()
	m.process(context.Background(), tx)

	status, ok := q.GetStatus(id)
	require.True(t, ok)
	require.Equal(t, StatusFailed, status.State)
	require.Equal(t, 2, fake.broadcasts) // initial attempt + 1 retry
}

func TestParseGasPrice(t *testing.T) {
	amount, denom := ParseGasPrice("500000000inj")
	require.Equal(t, "500000000", amount)
	require.Equal(t, "inj", denom)
}
