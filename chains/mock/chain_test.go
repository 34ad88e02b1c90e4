package mock

import (
	"context"
	"testing"

	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"
	"github.com/stretchr/testify/require"

	"github.com/aozora-labs/tsubame-relayer/core"
)

func testPathEnds() (*core.PathEnd, *core.PathEnd) {
	src := &core.PathEnd{
		ChainID:      "mock-a",
		ClientID:     "mock-client-0",
		ConnectionID: "connection-0",
		ChannelID:    "channel-0",
		PortID:       "transfer",
		Order:        "UNORDERED",
		Version:      "mockapp-1",
	}
	dst := &core.PathEnd{
		ChainID:      "mock-b",
		ClientID:     "mock-client-0",
		ConnectionID: "connection-0",
		ChannelID:    "channel-1",
		PortID:       "transfer",
		Order:        "UNORDERED",
		Version:      "mockapp-1",
	}
	return src, dst
}

func newTestChain(t *testing.T) *Chain {
	t.Helper()
	c := NewChain(ChainConfig{ChainId: "mock-a"})
	src, dst := testPathEnds()
	require.NoError(t, c.SetRelayInfo(src, nil, dst))
	return c
}

func TestVersionedStore(t *testing.T) {
	c := newTestChain(t)

	c.setState("k", 2, []byte("a"))
	c.setState("k", 4, []byte("b"))
	c.setState("k", 6, nil) // deletion

	_, found := c.stateAt("k", 1)
	require.False(t, found)

	for _, h := range []uint64{2, 3} {
		v, found := c.stateAt("k", h)
		require.True(t, found, "height %d", h)
		require.Equal(t, []byte("a"), v)
	}
	for _, h := range []uint64{4, 5} {
		v, found := c.stateAt("k", h)
		require.True(t, found, "height %d", h)
		require.Equal(t, []byte("b"), v)
	}

	_, found = c.stateAt("k", 6)
	require.False(t, found)
	_, found = c.stateAt("k", 100)
	require.False(t, found)
}

func TestTimestampUnknownHeight(t *testing.T) {
	c := newTestChain(t)
	_, err := c.Timestamp(context.Background(), clienttypes.NewHeight(0, 99))
	require.ErrorIs(t, err, core.ErrStaleHeight)
}

func TestProverCheckVerifiable(t *testing.T) {
	c := newTestChain(t)
	c.AdvanceBlocks(4) // latest = 5
	pr := NewProver(c)
	ctx := context.Background()

	require.NoError(t, pr.checkVerifiable(ctx, clienttypes.NewHeight(0, 2), clienttypes.NewHeight(0, 5)))

	err := pr.checkVerifiable(ctx, clienttypes.NewHeight(0, 2), clienttypes.NewHeight(0, 2))
	require.ErrorIs(t, err, core.ErrInsufficientTrust)

	err = pr.checkVerifiable(ctx, clienttypes.NewHeight(0, 2), clienttypes.NewHeight(0, 6))
	require.ErrorIs(t, err, core.ErrHeightNotAvailable)
}

func TestProvePacketTaxonomy(t *testing.T) {
	c := newTestChain(t)
	pr := NewProver(c)
	qctx := core.NewQueryContext(context.Background(), clienttypes.NewHeight(0, 1))

	_, err := pr.ProvePacket(qctx, core.PacketProofCommitment, "transfer", "channel-0", 1)
	require.ErrorIs(t, err, core.ErrPacketNotFound)

	_, err = pr.ProvePacket(qctx, core.PacketProofAcknowledgement, "transfer", "channel-0", 1)
	require.ErrorIs(t, err, core.ErrProofNotFound)

	// absence is provable while no receipt exists, and stops being provable
	// once one does
	proof, err := pr.ProvePacket(qctx, core.PacketProofReceiptAbsence, "transfer", "channel-0", 1)
	require.NoError(t, err)
	require.NotEmpty(t, proof.Proof)

	c.setState(host.PacketReceiptPath("transfer", "channel-0", 1), 1, []byte{0x01})
	_, err = pr.ProvePacket(qctx, core.PacketProofReceiptAbsence, "transfer", "channel-0", 1)
	require.ErrorIs(t, err, core.ErrQuery)
}

func TestProofVerification(t *testing.T) {
	value := []byte("commitment")
	proof := makeProof(value)

	cs := &ClientState{}
	require.NoError(t, cs.VerifyMembership(sdk.Context{}, nil, nil, nil, 0, 0, proof, nil, value))
	require.Error(t, cs.VerifyMembership(sdk.Context{}, nil, nil, nil, 0, 0, proof, nil, []byte("other")))
}

func TestSendPacketRequiresRelayInfo(t *testing.T) {
	c := NewChain(ChainConfig{ChainId: "mock-a"})
	_, err := c.SendPacket([]byte("data"), clienttypes.Height{}, 0)
	require.ErrorIs(t, err, core.ErrConfig)
}

func TestHeaderValidateBasic(t *testing.T) {
	h := clienttypes.NewHeight(0, 3)
	require.NoError(t, (&Header{Height: &h, Timestamp: 1}).ValidateBasic())
	require.Error(t, (&Header{Height: &h}).ValidateBasic())
	require.Error(t, (&Header{Timestamp: 1}).ValidateBasic())

	require.NoError(t, (&ConsensusState{Timestamp: 1}).ValidateBasic())
	require.Error(t, (&ConsensusState{}).ValidateBasic())
}
