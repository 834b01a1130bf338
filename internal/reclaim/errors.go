package reclaim

import (
	"errors"
	"fmt"
)

// Sentinel errors for the reclamation engine
var (
	// ErrInvalidAddress marks a malformed owner or account address
	ErrInvalidAddress = errors.New("invalid address")

	// ErrRateLimited marks retry exhaustion against a throttling provider
	ErrRateLimited = errors.New("rate limited by RPC")

	// ErrTimeout marks a confirmation that was not observed within budget;
	// the transaction's true outcome is unknown
	ErrTimeout = errors.New("confirmation timeout")

	// ErrIdentityMismatch marks an action attempted while the connected
	// signer differs from the scanned address
	ErrIdentityMismatch = errors.New("identity mismatch")

	// ErrFeeUnpaid marks a claim attempted before its fee gate is satisfied
	ErrFeeUnpaid = errors.New("claim fee not paid")

	// ErrNoScan marks an action attempted before any scan completed
	ErrNoScan = errors.New("no scan result")

	// ErrNoSigner marks a mutating action attempted in a read-only session
	ErrNoSigner = errors.New("no signer attached")
)

// TransactionFailedError reports a transaction the remote explicitly
// rejected, with the remote-provided detail attached.
type TransactionFailedError struct {
	Signature string
	Detail    interface{}
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Detail)
}

// UserMessage maps engine errors to the message shown to the user. Rate
// limiting gets a friendlier paraphrase; identity mismatches get an
// instructional message; everything else is surfaced verbatim.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return "Rate limited by RPC. Try again shortly (provider throttle)."
	case errors.Is(err, ErrIdentityMismatch):
		return "Connected wallet must match the scanned address."
	case errors.Is(err, ErrFeeUnpaid):
		return "Pay the claim fee (all or this row) to unlock claim."
	default:
		return err.Error()
	}
}
