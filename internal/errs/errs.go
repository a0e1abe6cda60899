// Package errs classifies chain and transport errors into the closed set
// of kinds the transaction manager and orchestrator branch on (spec §7).
package errs

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Kind is a closed classification of failures observed while talking to
// the chain. It drives retry policy in the transaction manager.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindSequenceMismatch
	KindPhaseMismatch
	KindSignatureVerification
	KindContractParse
	KindNotFound
	KindCorruptState
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindSequenceMismatch:
		return "sequence_mismatch"
	case KindPhaseMismatch:
		return "phase_mismatch"
	case KindSignatureVerification:
		return "signature_verification"
	case KindContractParse:
		return "contract_parse"
	case KindNotFound:
		return "not_found"
	case KindCorruptState:
		return "corrupt_state"
	default:
		return "unknown"
	}
}

var sequenceMismatchRE = regexp.MustCompile(`expected\s+\d+,?\s*got\s+\d+`)

// Classify inspects err and assigns it to one of the Kinds above. Chain
// errors arrive as opaque strings from the REST/gRPC layer, so
// classification is substring/regex driven, matching the on-chain error
// text documented in spec §7.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	msg := errors.Cause(err).Error()

	switch {
	case sequenceMismatchRE.MatchString(msg):
		return KindSequenceMismatch
	case contains(msg, "wrong phase"), contains(msg, "invalid phase"):
		return KindPhaseMismatch
	case contains(msg, "signature verification failed"), contains(msg, "unauthorized"):
		return KindSignatureVerification
	case contains(msg, "invalid type"), contains(msg, "parse error"), contains(msg, "unknown field"):
		return KindContractParse
	case contains(msg, "not found"), contains(msg, "no such account"):
		return KindNotFound
	case contains(msg, "connection"), contains(msg, "timeout"), contains(msg, "unavailable"), contains(msg, "EOF"):
		return KindTransport
	default:
		return KindUnknown
	}
}

// Retryable reports whether an attempt classified as k should be retried
// by the generic backoff policy (sequence mismatches are retried via a
// fresh-sequence path rather than generic backoff, so they report false
// here and are handled by the caller explicitly).
func (k Kind) Retryable() bool {
	return k == KindTransport
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

// Wrap attaches msg as context, preserving the cause for Classify.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}
