package chainclient

import (
	"context"

	"github.com/gxplatform/powminer/internal/contract"
	"github.com/gxplatform/powminer/internal/errs"
	"github.com/gxplatform/powminer/internal/txbuilder"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	methodAuthAccount      = "/cosmos.auth.v1beta1.Query/Account"
	methodTendermintLatest = "/cosmos.base.tendermint.v1beta1.Service/GetLatestBlock"
	methodWasmSmartQuery   = "/cosmwasm.wasm.v1.Query/SmartContractState"
)

func (c *Client) invoke(ctx context.Context, method string, reqBytes []byte) ([]byte, error) {
	req := &rawMessage{bytes: reqBytes}
	resp := &rawMessage{}
	err := c.withConn(func(conn *grpc.ClientConn) error {
		return conn.Invoke(ctx, method, req, resp, invokeOpt())
	})
	if err != nil {
		return nil, errors.Wrapf(err, "chainclient: invoke %s", method)
	}
	return resp.bytes, nil
}

// Account fetches and polymorphically decodes the miner's account (spec
// §4.6). QueryAccountRequest mirrors cosmos.auth.v1beta1.QueryAccountRequest
// {1: address}; QueryAccountResponse mirrors {1: account (Any)}.
func (c *Client) Account(ctx context.Context, address string) (AccountInfo, error) {
	var reqBody []byte
	reqBody = protowire.AppendTag(reqBody, 1, protowire.BytesType)
	reqBody = protowire.AppendString(reqBody, address)

	respBody, err := c.invoke(ctx, methodAuthAccount, reqBody)
	if err != nil {
		if errs.Classify(err) == errs.KindNotFound {
			// Brand-new miner address: the auth module has no account
			// record yet. Sequence/account_number start at zero.
			return AccountInfo{Address: address, Sequence: 0, AccountNumber: 0}, nil
		}
		return AccountInfo{}, err
	}

	any, err := extractAccountAny(respBody)
	if err != nil {
		return AccountInfo{}, err
	}
	decoded := DecodeAccountAny(any)
	if decoded.Kind == AccountKindUnsupported {
		return AccountInfo{}, errors.Errorf("chainclient: unsupported account type_url %q", decoded.TypeURL)
	}
	return decoded.Info, nil
}

func extractAccountAny(respBody []byte) (txbuilder.Any, error) {
	for len(respBody) > 0 {
		num, typ, value, rest, ok := consumeField(respBody)
		if !ok {
			return txbuilder.Any{}, errors.New("chainclient: malformed QueryAccountResponse")
		}
		respBody = rest
		if num == 1 && typ == protowire.BytesType {
			return decodeAny(value)
		}
	}
	return txbuilder.Any{}, errors.New("chainclient: QueryAccountResponse missing account field")
}

func decodeAny(data []byte) (txbuilder.Any, error) {
	var any txbuilder.Any
	for len(data) > 0 {
		num, typ, value, rest, ok := consumeField(data)
		if !ok {
			return txbuilder.Any{}, errors.New("chainclient: malformed Any")
		}
		data = rest
		switch {
		case num == 1 && typ == protowire.BytesType:
			any.TypeURL = string(value)
		case num == 2 && typ == protowire.BytesType:
			any.Value = append([]byte{}, value...)
		}
	}
	return any, nil
}

// LatestBlockHeight queries the current chain tip height, used both for
// epoch deadline estimation (spec §4.3) and transaction timeout_height.
func (c *Client) LatestBlockHeight(ctx context.Context) (uint64, error) {
	respBody, err := c.invoke(ctx, methodTendermintLatest, nil)
	if err != nil {
		return 0, err
	}
	// GetLatestBlockResponse { 2: block { 2: header { 3: height (int64) } } }
	height, ok := findNestedVarint(respBody, []protowire.Number{2, 2, 3})
	if !ok {
		return 0, errors.New("chainclient: GetLatestBlockResponse missing header height")
	}
	return height, nil
}

func findNestedVarint(data []byte, path []protowire.Number) (uint64, bool) {
	for len(data) > 0 {
		num, typ, value, rest, ok := consumeField(data)
		if !ok {
			return 0, false
		}
		data = rest
		if num != path[0] {
			continue
		}
		if len(path) == 1 {
			if typ != protowire.VarintType {
				return 0, false
			}
			v, _ := protowire.ConsumeVarint(value)
			return v, true
		}
		if typ != protowire.BytesType {
			continue
		}
		if v, ok := findNestedVarint(value, path[1:]); ok {
			return v, true
		}
	}
	return 0, false
}

// SmartContractState issues a raw wasm smart-query against the mining
// contract and returns the contract's JSON response bytes.
func (c *Client) SmartContractState(ctx context.Context, queryMsg []byte) ([]byte, error) {
	var reqBody []byte
	reqBody = protowire.AppendTag(reqBody, 1, protowire.BytesType)
	reqBody = protowire.AppendString(reqBody, c.contractAddress)
	reqBody = protowire.AppendTag(reqBody, 2, protowire.BytesType)
	reqBody = protowire.AppendBytes(reqBody, queryMsg)

	respBody, err := c.invoke(ctx, methodWasmSmartQuery, reqBody)
	if err != nil {
		return nil, err
	}
	// QuerySmartContractStateResponse { 1: data (bytes, JSON) }
	for len(respBody) > 0 {
		num, typ, value, rest, ok := consumeField(respBody)
		if !ok {
			return nil, errors.New("chainclient: malformed SmartContractState response")
		}
		respBody = rest
		if num == 1 && typ == protowire.BytesType {
			return value, nil
		}
	}
	return nil, errors.New("chainclient: SmartContractState response missing data field")
}

// CurrentEpoch queries the mining contract's {"current_epoch":{}} view
// and decodes the result. Satisfies epoch.Querier.
func (c *Client) CurrentEpoch(ctx context.Context) (contract.CurrentEpochResponse, error) {
	q := contract.CurrentEpochQuery{}
	msg, err := q.MarshalJSON()
	if err != nil {
		return contract.CurrentEpochResponse{}, errors.Wrap(err, "chainclient: encode current_epoch query")
	}
	data, err := c.SmartContractState(ctx, msg)
	if err != nil {
		return contract.CurrentEpochResponse{}, err
	}
	var resp contract.CurrentEpochResponse
	if err := resp.UnmarshalJSON(data); err != nil {
		return contract.CurrentEpochResponse{}, err
	}
	return resp, nil
}

// MinerStats queries {"miner_stats":{"miner":"<bech32>"}} and returns the
// raw JSON response; the orchestrator decodes the fields it cares about.
func (c *Client) MinerStats(ctx context.Context, minerAddress string) ([]byte, error) {
	q := contract.MinerStatsQuery{Miner: minerAddress}
	msg, err := q.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "chainclient: encode miner_stats query")
	}
	return c.SmartContractState(ctx, msg)
}
