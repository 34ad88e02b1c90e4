package core

import (
	"context"
	"fmt"
)

// StrategyI determines which packets to relay in a relay round and how to
// bundle the resulting messages. Strategies own the retry and batching
// policy; the builders and relayers underneath them never retry.
type StrategyI interface {
	// GetType returns the type of the strategy
	GetType() string

	// SetupRelay performs chain-specific setup on both chains before starting the relay
	SetupRelay(ctx context.Context, src, dst *ProvableChain) error

	// UnrelayedPackets returns packets that are sent but not received (or timed out) yet
	UnrelayedPackets(ctx context.Context, src, dst *ProvableChain, sh SyncHeaders, includeRelayedButUnfinalized bool) (*RelayPackets, error)

	// UnrelayedAcknowledgements returns packets that are received but not acknowledged yet
	UnrelayedAcknowledgements(ctx context.Context, src, dst *ProvableChain, sh SyncHeaders, includeRelayedButUnfinalized bool) (*RelayPackets, error)

	// UpdateClients builds the client update messages that make the proofs of
	// the coming relay round verifiable on their target chains
	UpdateClients(ctx context.Context, src, dst *ProvableChain, needSrc, needDst bool, sh SyncHeaders) (*RelayMsgs, error)

	// RelayPackets builds the receive and timeout messages for the unrelayed packets
	RelayPackets(ctx context.Context, src, dst *ProvableChain, rp *RelayPackets, sh SyncHeaders) (*RelayMsgs, error)

	// RelayAcknowledgements builds the acknowledgement messages for the unrelayed acks
	RelayAcknowledgements(ctx context.Context, src, dst *ProvableChain, rp *RelayPackets, sh SyncHeaders) (*RelayMsgs, error)

	// Send sends all messages to their respective chains
	Send(ctx context.Context, src, dst *ProvableChain, msgs *RelayMsgs)
}

// StrategyCfg defines which relaying strategy to take for a given path
type StrategyCfg struct {
	Type string `json:"type" yaml:"type"`
}

func GetStrategy(cfg StrategyCfg) (StrategyI, error) {
	switch cfg.Type {
	case "naive":
		return NewNaiveStrategy(false, false), nil
	default:
		return nil, fmt.Errorf("unknown strategy type '%v'", cfg.Type)
	}
}
