package indexed

import (
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"

	"github.com/aozora-labs/tsubame-relayer/core"
)

// RegisterInterfaces register the module interfaces to protobuf Any.
func RegisterInterfaces(registry codectypes.InterfaceRegistry) {
	registry.RegisterImplementations(
		(*core.ChainConfig)(nil),
		&ChainConfig{},
	)
}
