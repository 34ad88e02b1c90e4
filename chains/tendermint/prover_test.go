package tendermint

import (
	"context"
	"testing"
	"time"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtversion "github.com/cometbft/cometbft/proto/tendermint/version"
	tmtypes "github.com/cometbft/cometbft/types"
	"github.com/cometbft/cometbft/version"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	tmclient "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"
	"github.com/stretchr/testify/require"

	"github.com/aozora-labs/tsubame-relayer/core"
)

func makeValidatorSet() *tmtypes.ValidatorSet {
	val := tmtypes.NewValidator(ed25519.GenPrivKey().PubKey(), 10)
	return tmtypes.NewValidatorSet([]*tmtypes.Validator{val})
}

// makeSignedLightBlock builds a light block whose header hashes and survives a
// proto round trip
func makeSignedLightBlock(height int64, blockTime time.Time, vals *tmtypes.ValidatorSet) *tmtypes.LightBlock {
	return &tmtypes.LightBlock{
		SignedHeader: &tmtypes.SignedHeader{
			Header: &tmtypes.Header{
				Version:            cmtversion.Consensus{Block: version.BlockProtocol},
				ChainID:            "test-chain",
				Height:             height,
				Time:               blockTime,
				ValidatorsHash:     vals.Hash(),
				NextValidatorsHash: vals.Hash(),
				ProposerAddress:    vals.Proposer.Address,
			},
		},
		ValidatorSet: vals,
	}
}

func makeUpdateEvent(t *testing.T, lb *tmtypes.LightBlock) (core.UpdateClientEvent, *tmclient.Header) {
	t.Helper()
	header, err := lightBlockToHeader(lb)
	require.NoError(t, err)
	header.TrustedHeight = clienttypes.NewHeight(0, 5)
	trustedVals, err := lb.ValidatorSet.ToProto()
	require.NoError(t, err)
	header.TrustedValidators = trustedVals

	return core.UpdateClientEvent{
		ClientID:        "07-tendermint-0",
		ConsensusHeight: clienttypes.NewHeight(0, uint64(lb.Height)),
		Header:          header,
	}, header
}

func TestCheckMisbehaviourConsistent(t *testing.T) {
	vals := makeValidatorSet()
	canonical := makeSignedLightBlock(7, time.Unix(0, 1700000000000000000), vals)
	pr := &Prover{provider: &fakeLightProvider{blocks: map[int64]*tmtypes.LightBlock{7: canonical}}}

	// the submitted header is exactly the block the chain produced
	update, _ := makeUpdateEvent(t, canonical)
	evidence, err := pr.CheckMisbehaviour(context.Background(), update, nil)
	require.NoError(t, err)
	require.Nil(t, evidence)
}

func TestCheckMisbehaviourConflict(t *testing.T) {
	vals := makeValidatorSet()
	canonical := makeSignedLightBlock(7, time.Unix(0, 1700000000000000000), vals)
	forged := makeSignedLightBlock(7, time.Unix(0, 1700000009000000000), vals)
	pr := &Prover{provider: &fakeLightProvider{blocks: map[int64]*tmtypes.LightBlock{7: canonical}}}

	update, submitted := makeUpdateEvent(t, forged)
	evidence, err := pr.CheckMisbehaviour(context.Background(), update, nil)
	require.NoError(t, err)
	require.NotNil(t, evidence)
	require.Same(t, submitted, evidence.ConflictingHeader)

	misb, ok := evidence.Misbehaviour.(*tmclient.Misbehaviour)
	require.True(t, ok)
	require.Equal(t, "07-tendermint-0", misb.ClientId)
	require.Same(t, submitted, misb.Header1)
	require.NotNil(t, misb.Header2)
	require.Equal(t, canonical.Header.Time.UnixNano(), misb.Header2.SignedHeader.Header.Time.UnixNano())
	// the canonical header reuses the trust anchors of the submitted one so
	// the evidence is self-contained
	require.Equal(t, submitted.TrustedHeight, misb.Header2.TrustedHeight)
	require.Equal(t, submitted.TrustedValidators, misb.Header2.TrustedValidators)
}

func TestCheckMisbehaviourMissingBlock(t *testing.T) {
	vals := makeValidatorSet()
	forged := makeSignedLightBlock(7, time.Unix(0, 1700000000000000000), vals)
	pr := &Prover{provider: &fakeLightProvider{blocks: map[int64]*tmtypes.LightBlock{}}}

	update, _ := makeUpdateEvent(t, forged)
	_, err := pr.CheckMisbehaviour(context.Background(), update, nil)
	require.ErrorIs(t, err, core.ErrHeightNotAvailable)
}
