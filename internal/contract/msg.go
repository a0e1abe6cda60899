// Package contract models the mining contract's ExecuteMsg/QueryMsg
// surface (spec §6) as a closed set of tagged variants, replacing the
// free-form JSON-with-runtime-branching the original source used
// (spec §9 "Dynamic JSON payloads -> tagged variants").
package contract

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// ExecuteMsg is the closed union of contract execute variants. Exactly
// one of the pointer fields is non-nil; MarshalJSON/UnmarshalJSON enforce
// the exact wire shapes from spec §6.
type ExecuteMsg struct {
	CommitSolution *CommitSolution
	RevealSolution *RevealSolution
	ClaimReward    *ClaimReward
	FinalizeEpoch  *FinalizeEpoch
	AdvanceEpoch   *AdvanceEpoch
}

type CommitSolution struct {
	Commitment [32]byte `json:"commitment"`
}

type RevealSolution struct {
	Nonce  [8]byte  `json:"nonce"`
	Digest [16]byte `json:"digest"`
	Salt   [32]byte `json:"salt"`
}

type ClaimReward struct {
	EpochNumber uint64 `json:"epoch_number"`
}

type FinalizeEpoch struct {
	EpochNumber uint64 `json:"epoch_number"`
}

type AdvanceEpoch struct{}

// byteArrayAsInts marshals a fixed byte array as a JSON array of unsigned
// integers, never as base64/hex, per spec §6 and §4.5.
func byteArrayAsInts(b []byte) json.RawMessage {
	buf := bytes.NewBufferString("[")
	for i, v := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(int(v)))
	}
	buf.WriteByte(']')
	return json.RawMessage(buf.Bytes())
}

// MarshalJSON produces the amino-style single-variant-key object, e.g.
// {"commit_solution":{"commitment":[1,2,...]}}.
func (m ExecuteMsg) MarshalJSON() ([]byte, error) {
	switch {
	case m.CommitSolution != nil:
		return json.Marshal(map[string]json.RawMessage{
			"commit_solution": rawObject("commitment", byteArrayAsInts(m.CommitSolution.Commitment[:])),
		})
	case m.RevealSolution != nil:
		inner := map[string]json.RawMessage{
			"nonce":  byteArrayAsInts(m.RevealSolution.Nonce[:]),
			"digest": byteArrayAsInts(m.RevealSolution.Digest[:]),
			"salt":   byteArrayAsInts(m.RevealSolution.Salt[:]),
		}
		raw, err := marshalOrdered(inner, []string{"nonce", "digest", "salt"})
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]json.RawMessage{"reveal_solution": raw})
	case m.ClaimReward != nil:
		return json.Marshal(map[string]json.RawMessage{
			"claim_reward": rawObject("epoch_number", json.RawMessage(strconv.FormatUint(m.ClaimReward.EpochNumber, 10))),
		})
	case m.FinalizeEpoch != nil:
		return json.Marshal(map[string]json.RawMessage{
			"finalize_epoch": rawObject("epoch_number", json.RawMessage(strconv.FormatUint(m.FinalizeEpoch.EpochNumber, 10))),
		})
	case m.AdvanceEpoch != nil:
		return []byte(`{"advance_epoch":{}}`), nil
	default:
		return nil, errors.New("contract: empty ExecuteMsg")
	}
}

func rawObject(key string, val json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.WriteByte('"')
	buf.WriteString(key)
	buf.WriteString(`":`)
	buf.Write(val)
	buf.WriteByte('}')
	return buf.Bytes()
}

// marshalOrdered writes fields in the given order into a JSON object,
// since Go map iteration order is random and some downstream consumers
// are order-sensitive for human diffing even though JSON objects are
// unordered by spec.
func marshalOrdered(fields map[string]json.RawMessage, order []string) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range order {
		v, ok := fields[k]
		if !ok {
			return nil, errors.Errorf("contract: missing field %q", k)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(k)
		buf.WriteString(`":`)
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes any of the five ExecuteMsg variants, for
// round-trip tests and for any future contract event consumer.
func (m *ExecuteMsg) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "contract: decode ExecuteMsg envelope")
	}
	if len(raw) != 1 {
		return errors.Errorf("contract: ExecuteMsg must have exactly one variant key, got %d", len(raw))
	}
	for k, v := range raw {
		switch k {
		case "commit_solution":
			var body struct {
				Commitment []byte `json:"commitment"`
			}
			if err := unmarshalByteArrays(v, &body); err != nil {
				return err
			}
			var cs CommitSolution
			if len(body.Commitment) != 32 {
				return errors.New("contract: commitment must be 32 bytes")
			}
			copy(cs.Commitment[:], body.Commitment)
			m.CommitSolution = &cs
		case "reveal_solution":
			var body struct {
				Nonce  []byte `json:"nonce"`
				Digest []byte `json:"digest"`
				Salt   []byte `json:"salt"`
			}
			if err := unmarshalByteArrays(v, &body); err != nil {
				return err
			}
			var rs RevealSolution
			if len(body.Nonce) != 8 || len(body.Digest) != 16 || len(body.Salt) != 32 {
				return errors.New("contract: reveal_solution has wrong field lengths")
			}
			copy(rs.Nonce[:], body.Nonce)
			copy(rs.Digest[:], body.Digest)
			copy(rs.Salt[:], body.Salt)
			m.RevealSolution = &rs
		case "claim_reward":
			var body struct {
				EpochNumber uint64 `json:"epoch_number"`
			}
			if err := json.Unmarshal(v, &body); err != nil {
				return errors.Wrap(err, "contract: decode claim_reward")
			}
			m.ClaimReward = &ClaimReward{EpochNumber: body.EpochNumber}
		case "finalize_epoch":
			var body struct {
				EpochNumber uint64 `json:"epoch_number"`
			}
			if err := json.Unmarshal(v, &body); err != nil {
				return errors.Wrap(err, "contract: decode finalize_epoch")
			}
			m.FinalizeEpoch = &FinalizeEpoch{EpochNumber: body.EpochNumber}
		case "advance_epoch":
			m.AdvanceEpoch = &AdvanceEpoch{}
		default:
			return errors.Errorf("contract: unknown ExecuteMsg variant %q", k)
		}
	}
	return nil
}

func unmarshalByteArrays(data []byte, dst interface{}) error {
	return errors.Wrap(json.Unmarshal(data, dst), "contract: decode byte-array fields")
}

// CurrentEpochQuery is the {"current_epoch":{}} QueryMsg.
type CurrentEpochQuery struct{}

func (CurrentEpochQuery) MarshalJSON() ([]byte, error) {
	return []byte(`{"current_epoch":{}}`), nil
}

// MinerStatsQuery is the {"miner_stats":{"miner":"<bech32>"}} QueryMsg.
type MinerStatsQuery struct {
	Miner string `json:"miner"`
}

func (q MinerStatsQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"miner_stats": map[string]string{"miner": q.Miner},
	})
}

// Phase mirrors the contract's tagged phase response.
type Phase struct {
	Commit     *struct{ EndsAt uint64 `json:"ends_at"` } `json:"commit,omitempty"`
	Reveal     *struct{ EndsAt uint64 `json:"ends_at"` } `json:"reveal,omitempty"`
	Settlement *struct{ EndsAt uint64 `json:"ends_at"` } `json:"settlement,omitempty"`
}

// CurrentEpochResponse is the decoded {"current_epoch":{}} query result.
type CurrentEpochResponse struct {
	EpochNumber uint64   `json:"epoch_number"`
	Phase       Phase    `json:"phase"`
	Difficulty  uint8    `json:"difficulty"`
	TargetHash  [32]byte `json:"-"`
	StartBlock  uint64   `json:"start_block"`
}

// UnmarshalJSON decodes CurrentEpochResponse, lifting target_hash out of
// its raw integer-array JSON form into a fixed array.
func (r *CurrentEpochResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		EpochNumber uint64 `json:"epoch_number"`
		Phase       Phase  `json:"phase"`
		Difficulty  uint8  `json:"difficulty"`
		TargetHash  []byte `json:"target_hash"`
		StartBlock  uint64 `json:"start_block"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "contract: decode current_epoch response")
	}
	if len(raw.TargetHash) != 32 {
		return errors.New("contract: target_hash must be 32 bytes")
	}
	r.EpochNumber = raw.EpochNumber
	r.Phase = raw.Phase
	r.Difficulty = raw.Difficulty
	r.StartBlock = raw.StartBlock
	copy(r.TargetHash[:], raw.TargetHash)
	return nil
}
