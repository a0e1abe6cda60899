package txmanager

import (
	"context"
	"strconv"
	"time"

	"github.com/gxplatform/powminer/internal/chainclient"
	"github.com/gxplatform/powminer/internal/contract"
	"github.com/gxplatform/powminer/internal/errs"
	"github.com/gxplatform/powminer/internal/keyring"
	"github.com/gxplatform/powminer/internal/logging"
	"github.com/gxplatform/powminer/internal/signer"
	"github.com/gxplatform/powminer/internal/txbuilder"
	"github.com/pkg/errors"
)

const (
	defaultInitialRetryDelay = time.Second
	maxRetryDelay            = 30 * time.Second
	defaultMaxRetries        = 3

	revealMaxRetries = 1
	revealRetryDelay = 500 * time.Millisecond

	idleSleep = 200 * time.Millisecond
)

// AuditRecorder is the subset of *audit.Log the manager reports to. Left
// unset, no audit trail is written; failures to record are the audit
// package's concern, never the manager's (spec §7 "observability failures
// never block progress").
type AuditRecorder interface {
	RecordSuccess(id uint64, kind string, epoch uint64, txHash string, retryCount uint32, queuedAt time.Time)
	RecordFailure(id uint64, kind string, epoch uint64, errMessage string, retryCount uint32, queuedAt time.Time)
}

// ChainClient is the subset of the chain client facade the manager
// needs: a fresh account snapshot, synchronous broadcast, and inclusion
// polling. Expressed as an interface so tests can substitute a fake
// without a live gRPC connection.
type ChainClient interface {
	Account(ctx context.Context, address string) (chainclient.AccountInfo, error)
	BroadcastTx(ctx context.Context, txBytes []byte) (chainclient.BroadcastResult, error)
	PollTxStatus(ctx context.Context, restEndpoint, txHash string) (chainclient.TxStatus, error)
	ContractAddress() string
}

// Manager drains Queue strictly one transaction at a time, building,
// signing, broadcasting, and polling each to a terminal status (spec
// §4.4, §5 "Transaction manager processes the queue strictly FIFO").
type Manager struct {
	queue *Queue
	chain ChainClient
	keys  *keyring.Keyring

	minerAddress string
	cosmosChainID string // e.g. "injective-888", used in typed-data Tx.chain_id
	ethChainID    uint64 // EIP-712 domain chainId and ExtensionOptionsWeb3Tx
	gasPriceDenom string
	gasPriceAmount string
	restEndpoint  string

	maxRetries        uint32
	initialRetryDelay time.Duration

	audit AuditRecorder

	log *logging.Logger
}

// SetAuditRecorder wires an optional audit trail (SPEC_FULL §B.7). Call
// before Run; nil disables auditing.
func (m *Manager) SetAuditRecorder(a AuditRecorder) {
	m.audit = a
}

func payloadEpoch(payload interface{}) uint64 {
	switch p := payload.(type) {
	case CommitPayload:
		return p.Epoch
	case RevealPayload:
		return p.Epoch
	case ClaimPayload:
		return p.Epoch
	case FinalizeEpochPayload:
		return p.Epoch
	default:
		return 0
	}
}

// NewManager constructs a Manager. gasPrice is "<amount><denom>" as
// consumed from config (spec §6).
func NewManager(
	queue *Queue,
	chain ChainClient,
	keys *keyring.Keyring,
	minerAddress, cosmosChainID string,
	ethChainID uint64,
	gasPriceAmount, gasPriceDenom, restEndpoint string,
	maxRetries uint32,
	initialRetryDelay time.Duration,
) *Manager {
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	if initialRetryDelay == 0 {
		initialRetryDelay = defaultInitialRetryDelay
	}
	return &Manager{
		queue:             queue,
		chain:             chain,
		keys:              keys,
		minerAddress:      minerAddress,
		cosmosChainID:     cosmosChainID,
		ethChainID:        ethChainID,
		gasPriceAmount:    gasPriceAmount,
		gasPriceDenom:     gasPriceDenom,
		restEndpoint:      restEndpoint,
		maxRetries:        maxRetries,
		initialRetryDelay: initialRetryDelay,
		log:               logging.New("txmanager"),
	}
}

// Run drains the queue until ctx is cancelled. Exactly one transaction is
// Processing at any moment (spec §5).
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		tx, ok := m.queue.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idleSleep):
			}
			continue
		}
		m.process(ctx, tx)
	}
}

func (m *Manager) process(ctx context.Context, tx *QueuedTransaction) {
	maxRetries := m.maxRetries
	delay := m.initialRetryDelay
	if tx.Kind == KindReveal {
		maxRetries = revealMaxRetries
		delay = revealRetryDelay
	}

	for attempt := uint32(0); ; attempt++ {
		hash, code, rawLog, err := m.attempt(ctx, tx)
		if err == nil && code == 0 {
			m.log.Infow("transaction succeeded", "id", tx.ID, "kind", tx.Kind, "hash", hash)
			m.queue.setStatus(tx.ID, Status{State: StatusSuccess, TxHash: hash})
			m.recordSuccess(tx, hash)
			return
		}

		if err == nil && code != 0 {
			kind := errs.Classify(errors.New(rawLog))
			if kind == errs.KindSequenceMismatch || kind == errs.KindSignatureVerification {
				if attempt < maxRetries {
					m.log.Warnw("retrying with fresh sequence", "id", tx.ID, "kind", tx.Kind, "code", code)
					continue
				}
			}
			m.log.Warnw("transaction failed on-chain", "id", tx.ID, "kind", tx.Kind, "code", code, "raw_log", rawLog)
			m.queue.setStatus(tx.ID, Status{State: StatusFailed, Err: rawLog})
			m.recordFailure(tx, rawLog)
			return
		}

		kind := errs.Classify(err)
		if kind == errs.KindSequenceMismatch {
			m.log.Warnw("sequence mismatch, retrying immediately", "id", tx.ID, "kind", tx.Kind)
			continue
		}
		if kind.Retryable() && attempt < maxRetries {
			m.log.Warnw("retryable error, backing off", "id", tx.ID, "kind", tx.Kind, "err", err, "delay", delay)
			select {
			case <-ctx.Done():
				m.queue.setStatus(tx.ID, Status{State: StatusFailed, Err: ctx.Err().Error()})
				m.recordFailure(tx, ctx.Err().Error())
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			continue
		}

		m.log.Warnw("transaction attempt failed permanently", "id", tx.ID, "kind", tx.Kind, "err", err)
		m.queue.setStatus(tx.ID, Status{State: StatusFailed, Err: err.Error()})
		m.recordFailure(tx, err.Error())
		return
	}
}

func (m *Manager) recordSuccess(tx *QueuedTransaction, hash string) {
	if m.audit == nil {
		return
	}
	m.audit.RecordSuccess(tx.ID, tx.Kind.String(), payloadEpoch(tx.Payload), hash, tx.RetryCount, time.Unix(tx.QueuedAtUnix, 0))
}

func (m *Manager) recordFailure(tx *QueuedTransaction, errMessage string) {
	if m.audit == nil {
		return
	}
	m.audit.RecordFailure(tx.ID, tx.Kind.String(), payloadEpoch(tx.Payload), errMessage, tx.RetryCount, time.Unix(tx.QueuedAtUnix, 0))
}

// attempt performs exactly one submission cycle: fresh account query,
// build, sign, broadcast, poll (spec §4.4 processing rules). code==0
// with err==nil means on-chain success.
func (m *Manager) attempt(ctx context.Context, tx *QueuedTransaction) (hash string, code uint32, rawLog string, err error) {
	account, err := m.chain.Account(ctx, m.minerAddress)
	if err != nil {
		return "", 0, "", errors.Wrap(err, "txmanager: query account")
	}

	execMsg, gasLimit, skipSimulate := buildExecuteMsg(tx)
	_ = skipSimulate // simulation is always skipped per gas policy (spec §4.4)

	msgValue, err := signer.BuildMsgValue(execMsg, m.minerAddress, m.chain.ContractAddress(), nil)
	if err != nil {
		return "", 0, "", errors.Wrap(err, "txmanager: build msg value")
	}

	feeAmount := gasLimit * mustParseUint(m.gasPriceAmount)
	typedTx := signer.Tx{
		AccountNumber: strconv.FormatUint(account.AccountNumber, 10),
		ChainID:       m.cosmosChainID,
		Fee: signer.Fee{
			Amount: []signer.Coin{{Denom: m.gasPriceDenom, Amount: strconv.FormatUint(feeAmount, 10)}},
			Gas:    strconv.FormatUint(gasLimit, 10),
		},
		Memo:          "",
		Msgs:          []signer.Msg{{Type: signer.MsgTypeExecuteContractCompat, Value: msgValue}},
		Sequence:      strconv.FormatUint(account.Sequence, 10),
		TimeoutHeight: "0",
	}

	domain := signer.TestnetDomain()
	domain.ChainID = m.ethChainID
	signed, err := signer.Sign(m.keys.PrivateKey(), domain, typedTx)
	if err != nil {
		return "", 0, "", errors.Wrap(err, "txmanager: sign typed data")
	}

	body := txbuilder.BuildBody(txbuilder.MsgExecuteContractCompat{
		Sender:   m.minerAddress,
		Contract: m.chain.ContractAddress(),
		Msg:      msgValue.Msg,
		Funds:    msgValue.Funds,
	}, "", 0, m.ethChainID)
	authInfo := txbuilder.BuildAuthInfo(
		m.keys.CompressedPubKey(),
		account.Sequence,
		[]txbuilder.Coin{{Denom: m.gasPriceDenom, Amount: strconv.FormatUint(feeAmount, 10)}},
		gasLimit,
	)
	raw := txbuilder.Assemble(body, authInfo, signed.Signature[:])

	broadcast, err := m.chain.BroadcastTx(ctx, raw.Marshal())
	if err != nil {
		return "", 0, "", errors.Wrap(err, "txmanager: broadcast")
	}
	if broadcast.Code != 0 {
		return broadcast.TxHash, broadcast.Code, broadcast.RawLog, nil
	}

	txStatus, err := m.chain.PollTxStatus(ctx, m.restEndpoint, broadcast.TxHash)
	if err != nil {
		return "", 0, "", errors.Wrap(err, "txmanager: poll tx status")
	}
	if !txStatus.Found {
		// Timeout without inclusion: surfaced Success-with-hash, caller
		// reconciles (spec §5 "Cancellation and timeouts").
		return broadcast.TxHash, 0, "", nil
	}
	return broadcast.TxHash, txStatus.Code, txStatus.RawLog, nil
}

func buildExecuteMsg(tx *QueuedTransaction) (msg contract.ExecuteMsg, gasLimit uint64, skipSimulate bool) {
	switch tx.Kind {
	case KindCommit:
		p := tx.Payload.(CommitPayload)
		return contract.ExecuteMsg{CommitSolution: &contract.CommitSolution{Commitment: p.Commitment}}, GasLimitCommit, true
	case KindReveal:
		p := tx.Payload.(RevealPayload)
		return contract.ExecuteMsg{RevealSolution: &contract.RevealSolution{Nonce: p.Nonce, Digest: p.Digest, Salt: p.Salt}}, GasLimitReveal, true
	case KindClaim:
		p := tx.Payload.(ClaimPayload)
		return contract.ExecuteMsg{ClaimReward: &contract.ClaimReward{EpochNumber: p.Epoch}}, GasLimitClaim, true
	case KindFinalizeEpoch:
		p := tx.Payload.(FinalizeEpochPayload)
		return contract.ExecuteMsg{FinalizeEpoch: &contract.FinalizeEpoch{EpochNumber: p.Epoch}}, GasLimitFinalizeEpoch, true
	case KindAdvanceEpoch:
		return contract.ExecuteMsg{AdvanceEpoch: &contract.AdvanceEpoch{}}, GasLimitAdvanceEpoch, true
	default:
		return contract.ExecuteMsg{}, gasLimitForKind(tx.Kind), true
	}
}

func mustParseUint(s string) uint64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
