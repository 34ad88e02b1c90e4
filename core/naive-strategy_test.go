package core_test

import (
	"context"
	"testing"

	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	"github.com/stretchr/testify/require"

	"github.com/aozora-labs/tsubame-relayer/core"
)

func TestNaiveStrategyRelayPackets(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	p1 := env.sendPacket(t, []byte("one"), clienttypes.Height{}, 0)
	p2 := env.sendPacket(t, []byte("two"), clienttypes.Height{}, 0)

	sh, err := core.NewSyncHeaders(ctx, env.src, env.dst)
	require.NoError(t, err)
	st := core.NewNaiveStrategy(false, false)

	rp, err := st.UnrelayedPackets(ctx, env.src, env.dst, sh, false)
	require.NoError(t, err)
	require.Equal(t, []uint64{p1.Sequence, p2.Sequence}, rp.Src.ExtractSequenceList())
	require.Empty(t, rp.Dst)

	msgs, err := st.RelayPackets(ctx, env.src, env.dst, rp, sh)
	require.NoError(t, err)
	require.Empty(t, msgs.Src)
	require.Len(t, msgs.Dst, 2)

	st.Send(ctx, env.src, env.dst, msgs)
	require.True(t, msgs.Success())
	require.Len(t, msgs.DstMsgIDs, 2)
	require.True(t, env.packetReceived(t, p1.Sequence))
	require.True(t, env.packetReceived(t, p2.Sequence))

	// once both receptions are finalized, nothing is left to relay
	require.NoError(t, sh.Updates(ctx, env.src, env.dst))
	rp, err = st.UnrelayedPackets(ctx, env.src, env.dst, sh, false)
	require.NoError(t, err)
	require.Empty(t, rp.Src)
	require.Empty(t, rp.Dst)
}

func TestNaiveStrategyRelayTimedOutPackets(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	dstLatest, err := env.dst.LatestHeight(ctx)
	require.NoError(t, err)
	timeoutHeight := clienttypes.NewHeight(0, dstLatest.GetRevisionHeight()+1)
	p := env.sendPacket(t, []byte("late"), timeoutHeight, 0)
	env.dstChain.AdvanceBlocks(3)

	sh, err := core.NewSyncHeaders(ctx, env.src, env.dst)
	require.NoError(t, err)
	st := core.NewNaiveStrategy(false, false)

	rp, err := st.UnrelayedPackets(ctx, env.src, env.dst, sh, false)
	require.NoError(t, err)
	require.Len(t, rp.Src, 1)
	require.True(t, rp.Src[0].TimedOut)

	// a timed-out packet turns into a timeout msg on the sending chain
	msgs, err := st.RelayPackets(ctx, env.src, env.dst, rp, sh)
	require.NoError(t, err)
	require.Len(t, msgs.Src, 1)
	require.Empty(t, msgs.Dst)

	st.Send(ctx, env.src, env.dst, msgs)
	require.True(t, msgs.Success())
	require.False(t, env.commitmentExists(t, p.Sequence))
}

func TestNaiveStrategyRelayAcknowledgements(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	p := env.sendPacket(t, []byte("hello"), clienttypes.Height{}, 0)

	sh, err := core.NewSyncHeaders(ctx, env.src, env.dst)
	require.NoError(t, err)
	st := core.NewNaiveStrategy(false, false)

	rp, err := st.UnrelayedPackets(ctx, env.src, env.dst, sh, false)
	require.NoError(t, err)
	msgs, err := st.RelayPackets(ctx, env.src, env.dst, rp, sh)
	require.NoError(t, err)
	st.Send(ctx, env.src, env.dst, msgs)
	require.True(t, msgs.Success())

	require.NoError(t, sh.Updates(ctx, env.src, env.dst))
	acks, err := st.UnrelayedAcknowledgements(ctx, env.src, env.dst, sh, false)
	require.NoError(t, err)
	require.Empty(t, acks.Src)
	require.Equal(t, []uint64{p.Sequence}, acks.Dst.ExtractSequenceList())

	ackMsgs, err := st.RelayAcknowledgements(ctx, env.src, env.dst, acks, sh)
	require.NoError(t, err)
	require.Len(t, ackMsgs.Src, 1)
	require.Empty(t, ackMsgs.Dst)

	st.Send(ctx, env.src, env.dst, ackMsgs)
	require.True(t, ackMsgs.Success())
	require.False(t, env.commitmentExists(t, p.Sequence))

	require.NoError(t, sh.Updates(ctx, env.src, env.dst))
	acks, err = st.UnrelayedAcknowledgements(ctx, env.src, env.dst, sh, false)
	require.NoError(t, err)
	require.Empty(t, acks.Src)
	require.Empty(t, acks.Dst)
}

func TestNaiveStrategyNoAck(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	p := env.sendPacket(t, []byte("hello"), clienttypes.Height{}, 0)

	sh, err := core.NewSyncHeaders(ctx, env.src, env.dst)
	require.NoError(t, err)
	st := core.NewNaiveStrategy(true, false)

	rp, err := st.UnrelayedPackets(ctx, env.src, env.dst, sh, false)
	require.NoError(t, err)
	msgs, err := st.RelayPackets(ctx, env.src, env.dst, rp, sh)
	require.NoError(t, err)
	st.Send(ctx, env.src, env.dst, msgs)

	// srcNoAck suppresses acks flowing back to src
	require.NoError(t, sh.Updates(ctx, env.src, env.dst))
	acks, err := st.UnrelayedAcknowledgements(ctx, env.src, env.dst, sh, false)
	require.NoError(t, err)
	require.Empty(t, acks.Dst)

	ackMsgs, err := st.RelayAcknowledgements(ctx, env.src, env.dst, acks, sh)
	require.NoError(t, err)
	require.Empty(t, ackMsgs.Src)
	require.Empty(t, ackMsgs.Dst)
	require.True(t, env.commitmentExists(t, p.Sequence))
}

func TestNaiveStrategyUpdateClients(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	env.srcChain.AdvanceBlocks(3)

	sh, err := core.NewSyncHeaders(ctx, env.src, env.dst)
	require.NoError(t, err)
	st := core.NewNaiveStrategy(false, false)

	msgs, err := st.UpdateClients(ctx, env.src, env.dst, true, true, sh)
	require.NoError(t, err)
	// dst's client of src is behind; src's client of dst is already up to date
	require.Len(t, msgs.Dst, 1)
	require.Empty(t, msgs.Src)

	st.Send(ctx, env.src, env.dst, msgs)
	require.True(t, msgs.Success())

	qctx, err := core.TrustedProofContext(ctx, env.src, env.dst)
	require.NoError(t, err)
	require.Equal(t, sh.GetLatestFinalizedHeader(env.srcChain.ChainID()).GetHeight(), qctx.Height())
}

func TestGetStrategy(t *testing.T) {
	st, err := core.GetStrategy(core.StrategyCfg{Type: "naive"})
	require.NoError(t, err)
	require.Equal(t, "naive", st.GetType())

	_, err = core.GetStrategy(core.StrategyCfg{Type: "greedy"})
	require.Error(t, err)
}
