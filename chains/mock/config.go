package mock

import (
	"errors"
	"strings"

	"github.com/aozora-labs/tsubame-relayer/core"
	"github.com/aozora-labs/tsubame-relayer/coreutil"
)

var _ core.ChainConfig = (*ChainConfig)(nil)

func (c ChainConfig) Build() (core.Chain, error) {
	return NewChain(c), nil
}

func (c ChainConfig) Validate() error {
	if strings.TrimSpace(c.ChainId) == "" {
		return errors.New("config attribute \"chain_id\" is empty")
	}
	return nil
}

var _ core.ProverConfig = (*ProverConfig)(nil)

func (c ProverConfig) Build(chain core.Chain) (core.Prover, error) {
	chain_, err := coreutil.UnwrapChain[*Chain](chain)
	if err != nil {
		return nil, err
	}
	return NewProver(chain_), nil
}

func (c ProverConfig) Validate() error {
	return nil
}
