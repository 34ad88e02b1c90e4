package tendermint

import (
	"context"
	"errors"
	"time"

	errorsmod "cosmossdk.io/errors"
	cmtmath "github.com/cometbft/cometbft/libs/math"
	"github.com/cometbft/cometbft/light"
	lightprovider "github.com/cometbft/cometbft/light/provider"
	lighthttp "github.com/cometbft/cometbft/light/provider/http"
	tmtypes "github.com/cometbft/cometbft/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
	tmclient "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"

	"github.com/aozora-labs/tsubame-relayer/core"
)

const defaultMaxClockDrift = 10 * time.Second

var _ core.LightBlock = (*lightBlock)(nil)

// lightBlock adapts a CometBFT light block to the relayer's block summary
type lightBlock struct {
	*tmtypes.LightBlock
	revision uint64
}

func (lb *lightBlock) GetHeight() ibcexported.Height {
	return clienttypes.NewHeight(lb.revision, uint64(lb.Height))
}

func (lb *lightBlock) GetTimestamp() time.Time {
	return lb.Time
}

// lightProvider fetches light blocks of the chain. It is a narrowed view of
// the CometBFT provider interface so that tests can substitute their own.
type lightProvider interface {
	LightBlock(ctx context.Context, height int64) (*tmtypes.LightBlock, error)
}

// verifyFunc checks that an untrusted block is verifiable from a trusted one
type verifyFunc func(trusted, untrusted *tmtypes.LightBlock, trustingPeriod time.Duration, now time.Time, trustLevel cmtmath.Fraction) error

func newLightProvider(tmChainID string, chain *Chain) lightProvider {
	return lighthttp.NewWithClient(tmChainID, chain.rpcRemoteClient())
}

func defaultVerify(trusted, untrusted *tmtypes.LightBlock, trustingPeriod time.Duration, now time.Time, trustLevel cmtmath.Fraction) error {
	return light.Verify(
		trusted.SignedHeader, trusted.ValidatorSet,
		untrusted.SignedHeader, untrusted.ValidatorSet,
		trustingPeriod, now, defaultMaxClockDrift, trustLevel,
	)
}

// fetchLightBlock returns the light block at the given height, mapping
// pruned/future heights to ErrHeightNotAvailable
func (pr *Prover) fetchLightBlock(ctx context.Context, height int64) (*tmtypes.LightBlock, error) {
	lb, err := pr.provider.LightBlock(ctx, height)
	if err != nil {
		if errors.Is(err, lightprovider.ErrLightBlockNotFound) || errors.Is(err, lightprovider.ErrHeightTooHigh) {
			return nil, errorsmod.Wrapf(core.ErrHeightNotAvailable, "height %d: %v", height, err)
		}
		return nil, errorsmod.Wrapf(core.ErrConnection, "failed to fetch light block at %d: %v", height, err)
	}
	return lb, nil
}

// verifiedPath returns the chain of light blocks that connects `trusted` to
// `target` such that every adjacent pair is verifiable under the given trust
// parameters. The first element is the trusted block, the last is the target.
//
// The path is found by bisection: whenever the validator set of the candidate
// block has changed too much to be trusted directly, an intermediate block is
// inserted and verification restarts from it.
func (pr *Prover) verifiedPath(ctx context.Context, trusted, target ibcexported.Height, trustingPeriod time.Duration, trustLevel cmtmath.Fraction) ([]*tmtypes.LightBlock, error) {
	if trusted.GetRevisionNumber() != target.GetRevisionNumber() {
		return nil, errorsmod.Wrapf(core.ErrInsufficientTrust, "revision mismatch: trusted=%s target=%s", trusted, target)
	}
	if target.LTE(trusted) {
		return nil, errorsmod.Wrapf(core.ErrInsufficientTrust, "target height %s is not above trusted height %s", target, trusted)
	}

	trustedBlock, err := pr.fetchLightBlock(ctx, int64(trusted.GetRevisionHeight()))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := checkTrustedBlockWithinPeriod(trustedBlock, trustingPeriod, now); err != nil {
		return nil, err
	}
	targetBlock, err := pr.fetchLightBlock(ctx, int64(target.GetRevisionHeight()))
	if err != nil {
		return nil, err
	}

	path := []*tmtypes.LightBlock{trustedBlock}
	cur := trustedBlock
	candidate := targetBlock
	for {
		err := pr.verify(cur, candidate, trustingPeriod, now, trustLevel)
		switch {
		case err == nil:
			path = append(path, candidate)
			if candidate.Height == targetBlock.Height {
				return path, nil
			}
			cur = candidate
			candidate = targetBlock
		case isValSetTrustError(err):
			mid := (cur.Height + candidate.Height) / 2
			if mid == cur.Height {
				return nil, errorsmod.Wrapf(core.ErrInsufficientTrust, "cannot bisect below height %d towards %d", cur.Height, targetBlock.Height)
			}
			midBlock, err := pr.fetchLightBlock(ctx, mid)
			if err != nil {
				return nil, err
			}
			candidate = midBlock
		case isExpiryError(err):
			return nil, errorsmod.Wrapf(core.ErrExpiredClient, "%v", err)
		default:
			return nil, errorsmod.Wrapf(core.ErrInsufficientTrust, "verification from height %d to %d failed: %v", cur.Height, candidate.Height, err)
		}
	}
}

func checkTrustedBlockWithinPeriod(trusted *tmtypes.LightBlock, trustingPeriod time.Duration, now time.Time) error {
	if !now.Before(trusted.Time.Add(trustingPeriod)) {
		return errorsmod.Wrapf(core.ErrExpiredClient, "trusted header at height %d (time %s) is outside the trusting period %s", trusted.Height, trusted.Time, trustingPeriod)
	}
	return nil
}

func isValSetTrustError(err error) bool {
	var e light.ErrNewValSetCantBeTrusted
	return errors.As(err, &e)
}

func isExpiryError(err error) bool {
	var e light.ErrOldHeaderExpired
	return errors.As(err, &e)
}

// headersFromPath builds client update headers out of a verified path. The
// header at path[i] carries path[i-1] as its trusted height and the validator
// set at path[i-1].Height+1 as its trusted validators, which is the set the
// on-chain consensus state at that height commits to.
func (pr *Prover) headersFromPath(ctx context.Context, revision uint64, path []*tmtypes.LightBlock) ([]*tmclient.Header, error) {
	var headers []*tmclient.Header
	for i := 1; i < len(path); i++ {
		header, err := lightBlockToHeader(path[i])
		if err != nil {
			return nil, err
		}
		trustedBlock := path[i-1]
		nextBlock, err := pr.fetchLightBlock(ctx, trustedBlock.Height+1)
		if err != nil {
			return nil, err
		}
		trustedVals, err := nextBlock.ValidatorSet.ToProto()
		if err != nil {
			return nil, err
		}
		header.TrustedHeight = clienttypes.NewHeight(revision, uint64(trustedBlock.Height))
		header.TrustedValidators = trustedVals
		headers = append(headers, header)
	}
	return headers, nil
}

func lightBlockToHeader(lb *tmtypes.LightBlock) (*tmclient.Header, error) {
	vals, err := lb.ValidatorSet.ToProto()
	if err != nil {
		return nil, err
	}
	return &tmclient.Header{
		SignedHeader: lb.SignedHeader.ToProto(),
		ValidatorSet: vals,
	}, nil
}
