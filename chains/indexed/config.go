package indexed

import (
	"errors"
	"fmt"
	"strings"

	codectypes "github.com/cosmos/cosmos-sdk/codec/types"

	"github.com/aozora-labs/tsubame-relayer/core"
)

var (
	_ core.ChainConfig                   = (*ChainConfig)(nil)
	_ codectypes.UnpackInterfacesMessage = (*ChainConfig)(nil)
)

func (c ChainConfig) Build() (core.Chain, error) {
	inner, ok := c.Chain.GetCachedValue().(core.ChainConfig)
	if !ok {
		return nil, fmt.Errorf("failed to get the cached value of %v", c.Chain)
	}
	chain, err := inner.Build()
	if err != nil {
		return nil, err
	}
	return NewChain(chain, c.Dsn), nil
}

func (c ChainConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Dsn) == "" {
		errs = append(errs, errors.New("config attribute \"dsn\" is empty"))
	}
	if c.Chain == nil {
		errs = append(errs, errors.New("config attribute \"chain\" is empty"))
	} else if inner, ok := c.Chain.GetCachedValue().(core.ChainConfig); !ok {
		errs = append(errs, fmt.Errorf("config attribute \"chain\" has an unexpected type: %T", c.Chain.GetCachedValue()))
	} else if err := inner.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// UnpackInterfaces implements codectypes.UnpackInterfacesMessage
func (c *ChainConfig) UnpackInterfaces(unpacker codectypes.AnyUnpacker) error {
	var inner core.ChainConfig
	return unpacker.UnpackAny(c.Chain, &inner)
}
