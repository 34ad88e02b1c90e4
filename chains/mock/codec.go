package mock

import (
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"

	"github.com/aozora-labs/tsubame-relayer/core"
)

// RegisterInterfaces register the module interfaces to protobuf Any.
func RegisterInterfaces(registry codectypes.InterfaceRegistry) {
	registry.RegisterImplementations(
		(*core.ChainConfig)(nil),
		&ChainConfig{},
	)
	registry.RegisterImplementations(
		(*core.ProverConfig)(nil),
		&ProverConfig{},
	)
	registry.RegisterImplementations(
		(*ibcexported.ClientState)(nil),
		&ClientState{},
	)
	registry.RegisterImplementations(
		(*ibcexported.ConsensusState)(nil),
		&ConsensusState{},
	)
	registry.RegisterImplementations(
		(*ibcexported.ClientMessage)(nil),
		&Header{},
	)
}
