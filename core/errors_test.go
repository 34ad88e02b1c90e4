package core_test

import (
	"errors"
	"fmt"
	"testing"

	errorsmod "cosmossdk.io/errors"
	"github.com/stretchr/testify/require"

	"github.com/aozora-labs/tsubame-relayer/core"
)

func TestIsRelayerError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"registered error", core.ErrQuery, true},
		{"wrapped registered error", errorsmod.Wrap(core.ErrProofNotFound, "no proof"), true},
		{"doubly wrapped", fmt.Errorf("outer: %w", errorsmod.Wrap(core.ErrTxFailure, "rejected")), true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, core.IsRelayerError(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection", errorsmod.Wrap(core.ErrConnection, "refused"), true},
		{"query", errorsmod.Wrap(core.ErrQuery, "timeout"), true},
		{"stale height", errorsmod.Wrap(core.ErrStaleHeight, "pruned"), true},
		{"height not available", errorsmod.Wrap(core.ErrHeightNotAvailable, "too new"), true},
		{"packet not found is terminal", errorsmod.Wrap(core.ErrPacketNotFound, "gone"), false},
		{"tx failure is terminal", errorsmod.Wrap(core.ErrTxFailure, "rejected"), false},
		{"expired client is terminal", errorsmod.Wrap(core.ErrExpiredClient, "expired"), false},
		{"config is terminal", errorsmod.Wrap(core.ErrConfig, "bad"), false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, core.Retryable(tt.err))
		})
	}
}
