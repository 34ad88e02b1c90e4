package core

import (
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
)

// RegisterInterfaces register the module interfaces to protobuf Any.
func RegisterInterfaces(registry codectypes.InterfaceRegistry) {
	registry.RegisterInterface(
		"core.ChainConfig",
		(*ChainConfig)(nil),
	)
	registry.RegisterInterface(
		"core.ProverConfig",
		(*ProverConfig)(nil),
	)
}
