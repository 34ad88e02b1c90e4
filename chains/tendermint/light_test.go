package tendermint

import (
	"context"
	"testing"
	"time"

	cmtmath "github.com/cometbft/cometbft/libs/math"
	"github.com/cometbft/cometbft/light"
	lightprovider "github.com/cometbft/cometbft/light/provider"
	tmtypes "github.com/cometbft/cometbft/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	tmclient "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"
	"github.com/stretchr/testify/require"

	"github.com/aozora-labs/tsubame-relayer/core"
)

var testTrustLevel = cmtmath.Fraction{Numerator: 1, Denominator: 3}

// fakeLightProvider serves light blocks from a fixed map
type fakeLightProvider struct {
	blocks map[int64]*tmtypes.LightBlock
}

func (p *fakeLightProvider) LightBlock(ctx context.Context, height int64) (*tmtypes.LightBlock, error) {
	lb, ok := p.blocks[height]
	if !ok {
		return nil, lightprovider.ErrLightBlockNotFound
	}
	return lb, nil
}

func makeLightBlock(height int64, blockTime time.Time) *tmtypes.LightBlock {
	return &tmtypes.LightBlock{
		SignedHeader: &tmtypes.SignedHeader{
			Header: &tmtypes.Header{Height: height, Time: blockTime},
		},
	}
}

func makeLightProver(verify verifyFunc, heights ...int64) *Prover {
	blocks := make(map[int64]*tmtypes.LightBlock, len(heights))
	for _, h := range heights {
		blocks[h] = makeLightBlock(h, time.Now().Add(-time.Minute))
	}
	return &Prover{
		provider: &fakeLightProvider{blocks: blocks},
		verify:   verify,
	}
}

func pathHeights(path []*tmtypes.LightBlock) []int64 {
	var heights []int64
	for _, lb := range path {
		heights = append(heights, lb.Height)
	}
	return heights
}

func TestVerifiedPathDirect(t *testing.T) {
	verifyAll := func(trusted, untrusted *tmtypes.LightBlock, trustingPeriod time.Duration, now time.Time, trustLevel cmtmath.Fraction) error {
		return nil
	}
	pr := makeLightProver(verifyAll, 1, 2, 3, 4, 5)

	path, err := pr.verifiedPath(context.Background(), clienttypes.NewHeight(0, 1), clienttypes.NewHeight(0, 5), time.Hour, testTrustLevel)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 5}, pathHeights(path))
}

func TestVerifiedPathBisection(t *testing.T) {
	// only adjacent blocks verify, so the path must walk every height
	verifyAdjacent := func(trusted, untrusted *tmtypes.LightBlock, trustingPeriod time.Duration, now time.Time, trustLevel cmtmath.Fraction) error {
		if untrusted.Height-trusted.Height > 1 {
			return light.ErrNewValSetCantBeTrusted{Reason: tmtypes.ErrNotEnoughVotingPowerSigned{Got: 1, Needed: 2}}
		}
		return nil
	}
	pr := makeLightProver(verifyAdjacent, 1, 2, 3, 4, 5)

	path, err := pr.verifiedPath(context.Background(), clienttypes.NewHeight(0, 1), clienttypes.NewHeight(0, 5), time.Hour, testTrustLevel)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3, 4, 5}, pathHeights(path))
}

func TestVerifiedPathBisectionFloor(t *testing.T) {
	verifyNothing := func(trusted, untrusted *tmtypes.LightBlock, trustingPeriod time.Duration, now time.Time, trustLevel cmtmath.Fraction) error {
		return light.ErrNewValSetCantBeTrusted{Reason: tmtypes.ErrNotEnoughVotingPowerSigned{Got: 1, Needed: 2}}
	}
	pr := makeLightProver(verifyNothing, 1, 2, 3)

	_, err := pr.verifiedPath(context.Background(), clienttypes.NewHeight(0, 1), clienttypes.NewHeight(0, 3), time.Hour, testTrustLevel)
	require.ErrorIs(t, err, core.ErrInsufficientTrust)
}

func TestVerifiedPathExpiredHeader(t *testing.T) {
	verifyExpired := func(trusted, untrusted *tmtypes.LightBlock, trustingPeriod time.Duration, now time.Time, trustLevel cmtmath.Fraction) error {
		return light.ErrOldHeaderExpired{At: now.Add(-time.Hour), Now: now}
	}
	pr := makeLightProver(verifyExpired, 1, 2, 3)

	_, err := pr.verifiedPath(context.Background(), clienttypes.NewHeight(0, 1), clienttypes.NewHeight(0, 3), time.Hour, testTrustLevel)
	require.ErrorIs(t, err, core.ErrExpiredClient)
}

func TestVerifiedPathTrustedHeaderOutsideTrustingPeriod(t *testing.T) {
	pr := makeLightProver(nil, 2, 3)
	pr.provider.(*fakeLightProvider).blocks[1] = makeLightBlock(1, time.Now().Add(-2*time.Hour))

	_, err := pr.verifiedPath(context.Background(), clienttypes.NewHeight(0, 1), clienttypes.NewHeight(0, 3), time.Hour, testTrustLevel)
	require.ErrorIs(t, err, core.ErrExpiredClient)
}

func TestVerifiedPathTargetNotAboveTrusted(t *testing.T) {
	pr := makeLightProver(nil, 1, 2, 3)

	_, err := pr.verifiedPath(context.Background(), clienttypes.NewHeight(0, 3), clienttypes.NewHeight(0, 3), time.Hour, testTrustLevel)
	require.ErrorIs(t, err, core.ErrInsufficientTrust)
}

func TestVerifiedPathRevisionMismatch(t *testing.T) {
	pr := makeLightProver(nil, 1, 2, 3)

	_, err := pr.verifiedPath(context.Background(), clienttypes.NewHeight(0, 1), clienttypes.NewHeight(1, 3), time.Hour, testTrustLevel)
	require.ErrorIs(t, err, core.ErrInsufficientTrust)
}

func TestVerifyBisection(t *testing.T) {
	verifyAdjacent := func(trusted, untrusted *tmtypes.LightBlock, trustingPeriod time.Duration, now time.Time, trustLevel cmtmath.Fraction) error {
		if untrusted.Height-trusted.Height > 1 {
			return light.ErrNewValSetCantBeTrusted{Reason: tmtypes.ErrNotEnoughVotingPowerSigned{Got: 1, Needed: 2}}
		}
		return nil
	}
	pr := makeLightProver(verifyAdjacent, 1, 2, 3, 4, 5)
	cs := &tmclient.ClientState{TrustingPeriod: time.Hour, TrustLevel: tmclient.NewFractionFromTm(testTrustLevel)}

	vb, err := pr.Verify(context.Background(), clienttypes.NewHeight(0, 1), clienttypes.NewHeight(0, 5), cs)
	require.NoError(t, err)
	require.Equal(t, clienttypes.NewHeight(0, 5), vb.Target.GetHeight())

	// the trusted block and the target are not supporting blocks
	var supporting []uint64
	for _, lb := range vb.Supporting {
		supporting = append(supporting, lb.GetHeight().GetRevisionHeight())
	}
	require.Equal(t, []uint64{2, 3, 4}, supporting)
}

func TestVerifyDirect(t *testing.T) {
	verifyAll := func(trusted, untrusted *tmtypes.LightBlock, trustingPeriod time.Duration, now time.Time, trustLevel cmtmath.Fraction) error {
		return nil
	}
	pr := makeLightProver(verifyAll, 1, 2, 3, 4, 5)
	cs := &tmclient.ClientState{TrustingPeriod: time.Hour, TrustLevel: tmclient.NewFractionFromTm(testTrustLevel)}

	vb, err := pr.Verify(context.Background(), clienttypes.NewHeight(0, 1), clienttypes.NewHeight(0, 5), cs)
	require.NoError(t, err)
	require.Equal(t, clienttypes.NewHeight(0, 5), vb.Target.GetHeight())
	require.Empty(t, vb.Supporting)
}

func TestVerifiedPathMissingBlock(t *testing.T) {
	pr := makeLightProver(nil, 1, 2)

	_, err := pr.verifiedPath(context.Background(), clienttypes.NewHeight(0, 1), clienttypes.NewHeight(0, 5), time.Hour, testTrustLevel)
	require.ErrorIs(t, err, core.ErrHeightNotAvailable)
}
