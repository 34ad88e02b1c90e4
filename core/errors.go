package core

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace under which all relayer errors are registered.
const RelayerCodespace = "relay"

// Errors returned by chains, provers and the relay engine. Components never
// retry on these; callers decide which classes are worth another attempt.
var (
	// ErrConfig indicates an unusable configuration. Raised before any chain
	// interaction takes place.
	ErrConfig = errorsmod.Register(RelayerCodespace, 2, "unusable configuration")

	// ErrConnection indicates that a chain endpoint is unreachable. Retryable.
	ErrConnection = errorsmod.Register(RelayerCodespace, 3, "chain unreachable")

	// ErrQuery indicates that the chain rejected or failed a state query.
	ErrQuery = errorsmod.Register(RelayerCodespace, 4, "query failed")

	// ErrProofNotFound indicates that no commitment proof exists at the
	// requested height.
	ErrProofNotFound = errorsmod.Register(RelayerCodespace, 5, "proof not found")

	// ErrStaleHeight indicates that the requested height has been pruned or is
	// not yet available on the queried chain.
	ErrStaleHeight = errorsmod.Register(RelayerCodespace, 6, "height pruned or not yet produced")

	// ErrPacketNotFound indicates that no commitment exists for the packet.
	// During timeout relaying this is an expected terminal outcome, not a
	// failure.
	ErrPacketNotFound = errorsmod.Register(RelayerCodespace, 7, "packet commitment not found")

	// ErrInsufficientTrust indicates that no verifiable header chain exists
	// from the trusted height to the target height.
	ErrInsufficientTrust = errorsmod.Register(RelayerCodespace, 8, "no verifiable path from trusted height")

	// ErrExpiredClient indicates that the client's trust period has elapsed
	// and it can no longer be updated.
	ErrExpiredClient = errorsmod.Register(RelayerCodespace, 9, "client trust period expired")

	// ErrHeightNotAvailable indicates that a light block at the requested
	// height cannot be fetched.
	ErrHeightNotAvailable = errorsmod.Register(RelayerCodespace, 10, "light block not available")

	// ErrTxFailure indicates that a submitted message was rejected by the
	// target chain. It carries the chain-reported reason.
	ErrTxFailure = errorsmod.Register(RelayerCodespace, 11, "message execution failed")

	// ErrMisbehaviour indicates that two conflicting, validly-signed headers
	// exist for the same height.
	ErrMisbehaviour = errorsmod.Register(RelayerCodespace, 12, "light client misbehaviour")
)

// relayerErrors enumerates every registered error so transports can test
// whether an error has already been classified.
var relayerErrors = []*errorsmod.Error{
	ErrConfig,
	ErrConnection,
	ErrQuery,
	ErrProofNotFound,
	ErrStaleHeight,
	ErrPacketNotFound,
	ErrInsufficientTrust,
	ErrExpiredClient,
	ErrHeightNotAvailable,
	ErrTxFailure,
	ErrMisbehaviour,
}

// IsRelayerError reports whether err wraps one of the registered relayer
// errors.
func IsRelayerError(err error) bool {
	for _, e := range relayerErrors {
		if errorsmod.IsOf(err, e) {
			return true
		}
	}
	return false
}

// Retryable reports whether err belongs to a class that a caller-side retry
// policy may reasonably attempt again. Terminal outcomes such as
// ErrPacketNotFound and ErrTxFailure are excluded.
func Retryable(err error) bool {
	return errorsmod.IsOf(err, ErrConnection, ErrQuery, ErrStaleHeight, ErrHeightNotAvailable)
}
