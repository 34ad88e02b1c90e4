package core_test

import (
	"context"
	"testing"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	"github.com/stretchr/testify/require"

	"github.com/aozora-labs/tsubame-relayer/chains/mock"
	"github.com/aozora-labs/tsubame-relayer/core"
)

func TestCheckUpdateClientMsgsConsistent(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	env.srcChain.AdvanceBlocks(2)
	header, err := env.src.GetLatestFinalizedHeader(ctx)
	require.NoError(t, err)
	headers, err := env.src.SetupHeadersForUpdate(ctx, env.dst, header)
	require.NoError(t, err)
	require.NotEmpty(t, headers)
	signer, err := env.dst.GetAddress()
	require.NoError(t, err)
	msgs := env.dst.Path().UpdateClients(headers, signer)

	require.NoError(t, core.CheckUpdateClientMsgs(ctx, env.src, env.dst, msgs))
}

func TestCheckUpdateClientMsgsConflict(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	env.srcChain.AdvanceBlocks(2)
	latest, err := env.src.LatestHeight(ctx)
	require.NoError(t, err)

	// a header for an existing height with a timestamp the chain never
	// produced
	h := clienttypes.NewHeight(latest.GetRevisionNumber(), latest.GetRevisionHeight())
	forged := &mock.Header{Height: &h, Timestamp: 1}
	signer, err := env.dst.GetAddress()
	require.NoError(t, err)
	msgs := env.dst.Path().UpdateClients([]core.Header{forged}, signer)

	err = core.CheckUpdateClientMsgs(ctx, env.src, env.dst, msgs)
	require.ErrorIs(t, err, core.ErrMisbehaviour)
}

func TestCheckUpdateClientMsgsIgnoresOtherMsgs(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	packet := env.sendPacket(t, []byte("hello"), clienttypes.Height{}, 0)
	env.updateClient(t, env.dst, env.src)

	qctx, err := core.TrustedProofContext(ctx, env.src, env.dst)
	require.NoError(t, err)
	signer, err := env.dst.GetAddress()
	require.NoError(t, err)
	msg, err := core.BuildRecvPacketMsg(qctx, env.src, packet, signer)
	require.NoError(t, err)

	require.NoError(t, core.CheckUpdateClientMsgs(ctx, env.src, env.dst, []sdk.Msg{msg}))
}

func TestRelayServiceServe(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	packet := env.sendPacket(t, []byte("hello"), clienttypes.Height{}, 0)

	sh, err := core.NewSyncHeaders(ctx, env.src, env.dst)
	require.NoError(t, err)
	srv := core.NewRelayService(core.NewNaiveStrategy(false, false), env.src, env.dst, sh, time.Second)

	// one round updates the client on dst and delivers the packet
	require.NoError(t, srv.Serve(ctx))
	require.True(t, env.packetReceived(t, packet.Sequence))
}
