package chainclient

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gxplatform/powminer/internal/logging"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	methodTxBroadcast = "/cosmos.tx.v1beta1.Service/BroadcastTx"

	// BroadcastModeSync mirrors cosmos.tx.v1beta1.BroadcastMode_BROADCAST_MODE_SYNC.
	BroadcastModeSync = 2

	txStatusPollInterval = 2500 * time.Millisecond
	txStatusPollTimeout  = 60 * time.Second
)

// BroadcastResult is the mempool's immediate response to a synchronous
// broadcast: a transaction hash and the CheckTx result code.
type BroadcastResult struct {
	TxHash string
	Code   uint32
	RawLog string
}

// TxStatus is the eventual on-chain inclusion outcome (spec §4.4).
type TxStatus struct {
	Found bool
	Code  uint32
	RawLog string
	Height uint64
}

// BroadcastTx submits a signed TxRaw in synchronous mode.
func (c *Client) BroadcastTx(ctx context.Context, txBytes []byte) (BroadcastResult, error) {
	var reqBody []byte
	reqBody = protowire.AppendTag(reqBody, 1, protowire.BytesType)
	reqBody = protowire.AppendBytes(reqBody, txBytes)
	reqBody = protowire.AppendTag(reqBody, 2, protowire.VarintType)
	reqBody = protowire.AppendVarint(reqBody, uint64(BroadcastModeSync))

	respBody, err := c.invoke(ctx, methodTxBroadcast, reqBody)
	if err != nil {
		return BroadcastResult{}, err
	}
	return decodeBroadcastResponse(respBody)
}

// BroadcastTxResponse { 1: tx_response }. tx_response fields decoded
// here: 2 txhash, 4 code, 6 raw_log. Only the fields the transaction
// manager needs are decoded.
func decodeBroadcastResponse(respBody []byte) (BroadcastResult, error) {
	var res BroadcastResult
	for len(respBody) > 0 {
		num, typ, value, rest, ok := consumeField(respBody)
		if !ok {
			return BroadcastResult{}, errors.New("chainclient: malformed BroadcastTxResponse")
		}
		respBody = rest
		if num != 1 || typ != protowire.BytesType {
			continue
		}
		inner := value
		for len(inner) > 0 {
			n2, t2, v2, r2, ok2 := consumeField(inner)
			if !ok2 {
				return BroadcastResult{}, errors.New("chainclient: malformed TxResponse")
			}
			inner = r2
			switch {
			case n2 == 2 && t2 == protowire.BytesType:
				res.TxHash = string(v2)
			case n2 == 4 && t2 == protowire.VarintType:
				v, _ := protowire.ConsumeVarint(v2)
				res.Code = uint32(v)
			case n2 == 6 && t2 == protowire.BytesType:
				res.RawLog = string(v2)
			}
		}
	}
	return res, nil
}

// txStatusRestResponse mirrors the REST gateway's /cosmos/tx/v1beta1/txs/{hash} shape.
type txStatusRestResponse struct {
	TxResponse struct {
		Height string `json:"height"`
		Code   uint32 `json:"code"`
		RawLog string `json:"raw_log"`
	} `json:"tx_response"`
}

// PollTxStatus polls the REST gateway's transaction-by-hash endpoint
// every 2.5s for up to 60s waiting for on-chain inclusion (spec §4.4,
// §5 "Cancellation and timeouts"). A fasthttp client is used for this
// tight poll loop (SPEC_FULL §B.3).
func (c *Client) PollTxStatus(ctx context.Context, restEndpoint, txHash string) (TxStatus, error) {
	deadline := time.Now().Add(txStatusPollTimeout)
	url := fmt.Sprintf("%s/cosmos/tx/v1beta1/txs/%s", restEndpoint, txHash)

	httpClient := &fasthttp.Client{
		Name: "powminer-txpoll",
	}

	for {
		select {
		case <-ctx.Done():
			return TxStatus{}, ctx.Err()
		default:
		}

		status, found, err := pollOnce(httpClient, url)
		if err == nil && found {
			return status, nil
		}

		if time.Now().After(deadline) {
			return TxStatus{Found: false}, nil
		}
		select {
		case <-ctx.Done():
			return TxStatus{}, ctx.Err()
		case <-time.After(txStatusPollInterval):
		}
	}
}

func pollOnce(client *fasthttp.Client, url string) (TxStatus, bool, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := client.Do(req, resp); err != nil {
		return TxStatus{}, false, errors.Wrap(err, "chainclient: tx status poll request")
	}
	if resp.StatusCode() == fasthttp.StatusNotFound {
		return TxStatus{}, false, nil
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return TxStatus{}, false, errors.Errorf("chainclient: tx status poll returned %d", resp.StatusCode())
	}

	var parsed txStatusRestResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return TxStatus{}, false, errors.Wrap(err, "chainclient: decode tx status response")
	}

	var height uint64
	_, _ = fmt.Sscanf(parsed.TxResponse.Height, "%d", &height)

	return TxStatus{
		Found:  true,
		Code:   parsed.TxResponse.Code,
		RawLog: parsed.TxResponse.RawLog,
		Height: height,
	}, true, nil
}

// EncodeTxHashHex is a convenience for logging/debug-API display; the
// mempool already returns a hex tx hash, but broadcast responses over
// gRPC occasionally surface raw bytes depending on server version.
func EncodeTxHashHex(b []byte) string {
	return hex.EncodeToString(b)
}
