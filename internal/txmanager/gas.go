package txmanager

import "strings"

// Gas limits are fixed per transaction kind; simulation is skipped for
// every kind because all submissions here are time-critical (spec §4.4
// "Gas policy").
const (
	GasLimitCommit        = 250_000
	GasLimitReveal         = 300_000
	GasLimitClaim          = 400_000
	GasLimitFinalizeEpoch  = 200_000
	GasLimitAdvanceEpoch   = 250_000
)

func gasLimitForKind(k Kind) uint64 {
	switch k {
	case KindCommit:
		return GasLimitCommit
	case KindReveal:
		return GasLimitReveal
	case KindClaim:
		return GasLimitClaim
	case KindFinalizeEpoch:
		return GasLimitFinalizeEpoch
	case KindAdvanceEpoch:
		return GasLimitAdvanceEpoch
	default:
		return GasLimitCommit
	}
}

// ParseGasPrice splits the config's "<amount><denom>" gas_price string
// (spec §6) into its numeric and denom parts, e.g. "500000000inj" ->
// ("500000000", "inj").
func ParseGasPrice(gasPrice string) (amount, denom string) {
	i := strings.IndexFunc(gasPrice, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if i < 0 {
		return gasPrice, ""
	}
	return gasPrice[:i], gasPrice[i:]
}
