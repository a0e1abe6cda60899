package chainclient

import (
	"github.com/gxplatform/powminer/internal/txbuilder"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

var errNotBaseAccount = errors.New("chainclient: could not locate embedded BaseAccount")

// AccountKind is the closed set of account variants this chain's auth
// module can return (spec §4.6). Unsupported type_urls decode to
// AccountKindUnsupported rather than panicking.
type AccountKind int

const (
	AccountKindBase AccountKind = iota
	AccountKindEth
	AccountKindBaseVesting
	AccountKindContinuousVesting
	AccountKindDelayedVesting
	AccountKindPeriodicVesting
	AccountKindContinuousLocked
	AccountKindDelayedLocked
	AccountKindPermanentLocked
	AccountKindUnsupported
)

// recognizedTypeURLs maps every supported type_url to its AccountKind.
// The chain's eth account is mandatory (spec §4.6).
var recognizedTypeURLs = map[string]AccountKind{
	"/cosmos.auth.v1beta1.BaseAccount":              AccountKindBase,
	"/injective.types.v1beta1.EthAccount":           AccountKindEth,
	"/cosmos.vesting.v1beta1.BaseVestingAccount":    AccountKindBaseVesting,
	"/cosmos.vesting.v1beta1.ContinuousVestingAccount": AccountKindContinuousVesting,
	"/cosmos.vesting.v1beta1.DelayedVestingAccount":    AccountKindDelayedVesting,
	"/cosmos.vesting.v1beta1.PeriodicVestingAccount":   AccountKindPeriodicVesting,
	"/cosmos.vesting.v1beta1.ContinuousLockedAccount":  AccountKindContinuousLocked,
	"/cosmos.vesting.v1beta1.DelayedLockedAccount":      AccountKindDelayedLocked,
	"/cosmos.vesting.v1beta1.PermanentLockedAccount":    AccountKindPermanentLocked,
}

// AccountInfo is the information the transaction manager needs from an
// account query (spec §3 "Account snapshot").
type AccountInfo struct {
	Address       string
	AccountNumber uint64
	Sequence      uint64
}

// DecodedAccount is the result of polymorphic account decoding: Kind
// AccountKindUnsupported carries the raw type_url and bytes instead of
// panicking on an unrecognized envelope (spec §4.6, §9).
type DecodedAccount struct {
	Kind    AccountKind
	TypeURL string
	Info    AccountInfo
	Raw     []byte
}

// DecodeAccountAny dispatches on the Any envelope's type_url and extracts
// the embedded BaseAccount fields. Every supported variant nests a
// BaseAccount (directly, or via one or more base_vesting_account-style
// wrapper levels); unwrapBaseAccount peels those levels generically so
// one decoder serves every variant without per-message generated code.
func DecodeAccountAny(any txbuilder.Any) DecodedAccount {
	kind, ok := recognizedTypeURLs[any.TypeURL]
	if !ok {
		return DecodedAccount{Kind: AccountKindUnsupported, TypeURL: any.TypeURL, Raw: any.Value}
	}
	info, err := unwrapBaseAccount(any.Value, 3)
	if err != nil {
		return DecodedAccount{Kind: AccountKindUnsupported, TypeURL: any.TypeURL, Raw: any.Value}
	}
	return DecodedAccount{Kind: kind, TypeURL: any.TypeURL, Info: info}
}

// parseBaseAccount decodes cosmos.auth.v1beta1.BaseAccount: 1 address
// (string), 2 pub_key (Any), 3 account_number (uint64), 4 sequence (uint64).
// A field 1 holding non-printable bytes is a nested message, not an
// address, and makes the parse fail so the caller can unwrap it.
func parseBaseAccount(data []byte) (AccountInfo, bool) {
	var info AccountInfo
	var sawAddress bool
	for len(data) > 0 {
		num, typ, value, rest, ok := consumeField(data)
		if !ok {
			return AccountInfo{}, false
		}
		data = rest
		switch {
		case num == 1 && typ == protowire.BytesType:
			for _, c := range value {
				if c < 0x21 || c > 0x7e {
					return AccountInfo{}, false
				}
			}
			info.Address = string(value)
			sawAddress = true
		case num == 3 && typ == protowire.VarintType:
			v, _ := protowire.ConsumeVarint(value)
			info.AccountNumber = v
		case num == 4 && typ == protowire.VarintType:
			v, _ := protowire.ConsumeVarint(value)
			info.Sequence = v
		}
	}
	return info, sawAddress
}

// unwrapBaseAccount tries parsing data directly as a BaseAccount; if no
// plausible address field was found, it recurses into field 1 (the
// conventional nesting slot for base_account/base_vesting_account), up
// to depth levels.
func unwrapBaseAccount(data []byte, depth int) (AccountInfo, error) {
	if info, ok := parseBaseAccount(data); ok {
		return info, nil
	}
	if depth <= 0 {
		return AccountInfo{}, errNotBaseAccount
	}
	num, typ, value, _, ok := consumeField(data)
	if !ok || num != 1 || typ != protowire.BytesType {
		return AccountInfo{}, errNotBaseAccount
	}
	return unwrapBaseAccount(value, depth-1)
}

func consumeField(b []byte) (num protowire.Number, typ protowire.Type, value []byte, rest []byte, ok bool) {
	n, t, tagLen := protowire.ConsumeTag(b)
	if tagLen < 0 {
		return 0, 0, nil, nil, false
	}
	b = b[tagLen:]
	switch t {
	case protowire.VarintType:
		v, n2 := protowire.ConsumeVarint(b)
		if n2 < 0 {
			return 0, 0, nil, nil, false
		}
		var buf [10]byte
		vn := protowire.AppendVarint(buf[:0], v)
		return n, t, vn, b[n2:], true
	case protowire.BytesType:
		v, n2 := protowire.ConsumeBytes(b)
		if n2 < 0 {
			return 0, 0, nil, nil, false
		}
		return n, t, v, b[n2:], true
	default:
		return 0, 0, nil, nil, false
	}
}
