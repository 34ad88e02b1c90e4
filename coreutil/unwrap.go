package coreutil

import (
	"fmt"

	"github.com/aozora-labs/tsubame-relayer/core"
)

// UnwrapChain finds the first struct value in the Chain field that matches the specified
// type argument. Decorator chains expose the wrapped chain via an `Inner() core.Chain`
// method and are peeled off one by one.
//
// In the following example, UnwrapChain returns a *module.Chain value in the Chain field:
//
//	chain, err := coreutil.UnwrapChain[*module.Chain](provableChain)
func UnwrapChain[C core.Chain](c core.Chain) (C, error) {
	chain := c
	for {
		switch unwrapped := chain.(type) {
		case *core.ProvableChain:
			chain = unwrapped.Chain
		case C:
			return unwrapped, nil
		case interface{ Inner() core.Chain }:
			chain = unwrapped.Inner()
		default:
			var zero C
			return zero, fmt.Errorf("failed to unwrap chain: expected=%T, actual=%T", zero, unwrapped)
		}
	}
}

// UnwrapProver finds the first struct value in the Prover field that matches the specified
// type argument. Decorator provers expose the wrapped prover via an `Inner() core.Prover`
// method and are peeled off one by one.
//
// In the following example, UnwrapProver returns a *module.Prover value in the Prover field:
//
//	prover, err := coreutil.UnwrapProver[*module.Prover](provableChain)
func UnwrapProver[P core.Prover](p core.Prover) (P, error) {
	prover := p
	for {
		switch unwrapped := prover.(type) {
		case *core.ProvableChain:
			prover = unwrapped.Prover
		case P:
			return unwrapped, nil
		case interface{ Inner() core.Prover }:
			prover = unwrapped.Inner()
		default:
			var zero P
			return zero, fmt.Errorf("failed to unwrap prover: expected=%T, actual=%T", zero, unwrapped)
		}
	}
}
