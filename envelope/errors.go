package envelope

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	// KindMalformedInput reports a transport or wire decode failure.
	KindMalformedInput Kind = "MalformedInput"
	// KindDigestMismatch reports decrypted or decompressed content that does not hash to the
	// placeholder's stored digest, or an authentication failure (wrong key or tampering).
	KindDigestMismatch Kind = "DigestMismatch"
	// KindTargetNotFound reports a requested digest that does not occur in the tree.
	KindTargetNotFound Kind = "TargetNotFound"
	// KindInsufficientShares reports a threshold recovery that could not reach the threshold.
	KindInsufficientShares Kind = "InsufficientShares"
	// KindVerificationFailed reports a signature or proof check that returned false.
	KindVerificationFailed Kind = "VerificationFailed"
	// KindInvalidStructure reports an operation applied to the wrong node case.
	KindInvalidStructure Kind = "InvalidStructure"
	KindCrypto           Kind = "Crypto"
	KindInternal         Kind = "Internal"
)

// Error is the package's structured error type.
//
// RuleID is a stable identifier (e.g. ENV-CODEC-003, ENV-CRYPTO-201) naming the violated
// invariant. Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
