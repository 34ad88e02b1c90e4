package core_test

import (
	"context"
	"testing"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	"github.com/stretchr/testify/require"

	"github.com/aozora-labs/tsubame-relayer/chains/mock"
	"github.com/aozora-labs/tsubame-relayer/core"
)

func TestGetFinalizedMsgResult(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	cs, cons, err := env.dst.CreateInitialLightClientState(ctx, nil)
	require.NoError(t, err)
	signer, err := env.src.GetAddress()
	require.NoError(t, err)
	msg, err := clienttypes.NewMsgCreateClient(cs, cons, signer.String())
	require.NoError(t, err)

	ids, err := env.src.SendMsgs(ctx, core.NewTrackedMsgs([]sdk.Msg{msg}, "test"))
	require.NoError(t, err)
	require.Len(t, ids, 1)

	// the mock chain finalizes instantly, so the first attempt succeeds
	result, err := core.GetFinalizedMsgResult(ctx, *env.src, ids[0], time.Millisecond, 3)
	require.NoError(t, err)
	ok, reason := result.Status()
	require.True(t, ok, reason)

	latest, err := env.src.LatestHeight(ctx)
	require.NoError(t, err)
	require.False(t, result.BlockHeight().GT(latest))
}

func TestGetFinalizedMsgResultExecutionFailure(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	// acknowledging a packet that was never sent fails on-chain
	signer, err := env.src.GetAddress()
	require.NoError(t, err)
	packet := chantypes.NewPacket([]byte("none"), 1,
		"transfer", "channel-0",
		"transfer", "channel-1",
		clienttypes.Height{}, 0,
	)
	msg := chantypes.NewMsgAcknowledgement(packet, []byte{0x01}, []byte("proof"), clienttypes.NewHeight(0, 1), signer.String())

	ids, err := env.src.SendMsgs(ctx, core.NewTrackedMsgs([]sdk.Msg{msg}, "test"))
	require.NoError(t, err)
	require.Len(t, ids, 1)

	_, err = core.GetFinalizedMsgResult(ctx, *env.src, ids[0], time.Millisecond, 3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "execution failed")
}

func TestGetFinalizedMsgResultUnknownID(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	_, err := core.GetFinalizedMsgResult(ctx, *env.src, &mock.MsgID{TxHash: "ffff", MsgIndex: 0}, time.Millisecond, 3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to get message result")
}
