package core_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	"github.com/stretchr/testify/require"

	"github.com/aozora-labs/tsubame-relayer/chains/mock"
	"github.com/aozora-labs/tsubame-relayer/core"
	"github.com/aozora-labs/tsubame-relayer/log"
	"github.com/aozora-labs/tsubame-relayer/metrics"
)

func TestMain(m *testing.M) {
	if err := log.InitLogger("DEBUG", "text", "stderr", false); err != nil {
		panic(err)
	}
	if err := metrics.InitializeMetrics(metrics.ExporterNull{}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// relayEnv is a pair of mock chains wired as the two ends of a relay path,
// with a light client of each chain created on the other.
type relayEnv struct {
	srcChain *mock.Chain
	dstChain *mock.Chain
	src      *core.ProvableChain
	dst      *core.ProvableChain
}

func newRelayEnv(t *testing.T, order string) *relayEnv {
	t.Helper()

	registry := codectypes.NewInterfaceRegistry()
	core.RegisterInterfaces(registry)
	mock.RegisterInterfaces(registry)
	cdc := codec.NewProtoCodec(registry)

	srcChain := mock.NewChain(mock.ChainConfig{ChainId: "mock-src"})
	dstChain := mock.NewChain(mock.ChainConfig{ChainId: "mock-dst"})
	src := core.NewProvableChain(srcChain, mock.NewProver(srcChain))
	dst := core.NewProvableChain(dstChain, mock.NewProver(dstChain))
	require.NoError(t, src.Init("", time.Second, cdc, false))
	require.NoError(t, dst.Init("", time.Second, cdc, false))

	srcEnd := &core.PathEnd{
		ChainID:      "mock-src",
		ClientID:     "mock-client-0",
		ConnectionID: "connection-0",
		ChannelID:    "channel-0",
		PortID:       "transfer",
		Order:        order,
		Version:      "mockapp-1",
	}
	dstEnd := &core.PathEnd{
		ChainID:      "mock-dst",
		ClientID:     "mock-client-0",
		ConnectionID: "connection-0",
		ChannelID:    "channel-1",
		PortID:       "transfer",
		Order:        order,
		Version:      "mockapp-1",
	}
	require.NoError(t, src.SetRelayInfo(srcEnd, dst, dstEnd))
	require.NoError(t, dst.SetRelayInfo(dstEnd, src, srcEnd))

	env := &relayEnv{srcChain: srcChain, dstChain: dstChain, src: src, dst: dst}
	env.createClient(t, dst, src)
	env.createClient(t, src, dst)
	return env
}

// createClient creates a client on `host` tracking `counterparty` at its
// current latest height
func (env *relayEnv) createClient(t *testing.T, host, counterparty *core.ProvableChain) {
	t.Helper()
	ctx := context.Background()

	cs, cons, err := counterparty.CreateInitialLightClientState(ctx, nil)
	require.NoError(t, err)
	signer, err := host.GetAddress()
	require.NoError(t, err)
	msg, err := clienttypes.NewMsgCreateClient(cs, cons, signer.String())
	require.NoError(t, err)

	results, err := host.SendMsgsAndWaitCommit(ctx, core.NewTrackedMsgs([]sdk.Msg{msg}, "test"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	ok, reason := results[0].Status()
	require.True(t, ok, reason)
}

// updateClient brings the client on `verifier` up to the latest finalized
// height of `target`
func (env *relayEnv) updateClient(t *testing.T, verifier, target *core.ProvableChain) {
	t.Helper()
	ctx := context.Background()

	header, err := target.GetLatestFinalizedHeader(ctx)
	require.NoError(t, err)
	headers, err := target.SetupHeadersForUpdate(ctx, verifier, header)
	require.NoError(t, err)
	if len(headers) == 0 {
		return
	}
	signer, err := verifier.GetAddress()
	require.NoError(t, err)
	msgs := verifier.Path().UpdateClients(headers, signer)

	results, err := verifier.SendMsgsAndWaitCommit(ctx, core.NewTrackedMsgs(msgs, "test"))
	require.NoError(t, err)
	for _, result := range results {
		ok, reason := result.Status()
		require.True(t, ok, reason)
	}
}

// sendPacket commits a packet on the source chain and returns its info
func (env *relayEnv) sendPacket(t *testing.T, data []byte, timeoutHeight clienttypes.Height, timeoutTimestamp uint64) *core.PacketInfo {
	t.Helper()
	ctx := context.Background()

	seq, err := env.srcChain.SendPacket(data, timeoutHeight, timeoutTimestamp)
	require.NoError(t, err)
	latest, err := env.src.LatestHeight(ctx)
	require.NoError(t, err)
	p, err := env.src.QueryPacket(core.NewQueryContext(ctx, latest), seq)
	require.NoError(t, err)
	return &core.PacketInfo{Packet: *p}
}

func (env *relayEnv) packetReceived(t *testing.T, seq uint64) bool {
	t.Helper()
	ctx := context.Background()
	latest, err := env.dst.LatestHeight(ctx)
	require.NoError(t, err)
	received, err := env.dst.QueryPacketReceipt(core.NewQueryContext(ctx, latest), seq)
	require.NoError(t, err)
	return received
}

func (env *relayEnv) commitmentExists(t *testing.T, seq uint64) bool {
	t.Helper()
	ctx := context.Background()
	latest, err := env.src.LatestHeight(ctx)
	require.NoError(t, err)
	unacked, err := env.src.QueryUnreceivedAcknowledgements(core.NewQueryContext(ctx, latest), []uint64{seq})
	require.NoError(t, err)
	return len(unacked) > 0
}

// countingSender records how many messages pass through it
type countingSender struct {
	inner core.MessageSender
	calls int
}

func (s *countingSender) SendMessage(ctx context.Context, target *core.ProvableChain, msg sdk.Msg) (core.MsgResult, error) {
	s.calls++
	return s.inner.SendMessage(ctx, target, msg)
}

func TestReceivePacketRelayer(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	packet := env.sendPacket(t, []byte("hello"), clienttypes.Height{}, 0)
	env.updateClient(t, env.dst, env.src)

	sender := &countingSender{inner: core.NewCommitSender("test")}
	rc := core.NewRelayContext(env.src, env.dst, sender)

	result, err := core.ReceivePacketRelayer{}.RelayPacket(ctx, rc, packet)
	require.NoError(t, err)
	require.Equal(t, 1, sender.calls)

	ok, reason := result.Status()
	require.True(t, ok, reason)

	var wroteAck bool
	for _, ev := range result.Events() {
		if ack, yes := ev.(*core.EventWriteAcknowledgement); yes {
			wroteAck = true
			require.Equal(t, packet.Sequence, ack.Sequence)
			require.Equal(t, mock.SuccessAcknowledgement, ack.Acknowledgement)
		}
	}
	require.True(t, wroteAck)
	require.True(t, env.packetReceived(t, packet.Sequence))
}

func TestReceivePacketRelayerUntrustedHeight(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	// the client on dst still points at a height before the packet was sent,
	// so no commitment proof can be produced at the trusted height
	packet := env.sendPacket(t, []byte("hello"), clienttypes.Height{}, 0)

	sender := &countingSender{inner: core.NewCommitSender("test")}
	rc := core.NewRelayContext(env.src, env.dst, sender)

	result, err := core.ReceivePacketRelayer{}.RelayPacket(ctx, rc, packet)
	require.ErrorIs(t, err, core.ErrPacketNotFound)
	require.Nil(t, result)
	require.Zero(t, sender.calls)
	require.False(t, env.packetReceived(t, packet.Sequence))
}

func TestReceivePacketRelayerRedelivery(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	packet := env.sendPacket(t, []byte("hello"), clienttypes.Height{}, 0)
	env.updateClient(t, env.dst, env.src)

	rc := core.NewRelayContext(env.src, env.dst, core.NewCommitSender("test"))
	_, err := core.ReceivePacketRelayer{}.RelayPacket(ctx, rc, packet)
	require.NoError(t, err)

	// the commitment is still present on src, so the message builds fine but
	// the destination chain rejects the second delivery
	sender := &countingSender{inner: core.NewCommitSender("test")}
	rc = core.NewRelayContext(env.src, env.dst, sender)
	result, err := core.ReceivePacketRelayer{}.RelayPacket(ctx, rc, packet)
	require.ErrorIs(t, err, core.ErrTxFailure)
	require.Equal(t, 1, sender.calls)
	require.NotNil(t, result)

	ok, reason := result.Status()
	require.False(t, ok)
	require.Contains(t, reason, "already received")
}

func TestAcknowledgementPacketRelayer(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	packet := env.sendPacket(t, []byte("hello"), clienttypes.Height{}, 0)
	env.updateClient(t, env.dst, env.src)

	rc := core.NewRelayContext(env.src, env.dst, core.NewCommitSender("test"))
	_, err := core.ReceivePacketRelayer{}.RelayPacket(ctx, rc, packet)
	require.NoError(t, err)

	// make the ack height on dst trusted by src
	env.updateClient(t, env.src, env.dst)

	dstLatest, err := env.dst.LatestHeight(ctx)
	require.NoError(t, err)
	ack, err := env.dst.QueryPacketAcknowledgement(core.NewQueryContext(ctx, dstLatest), packet.Sequence)
	require.NoError(t, err)
	packet.Acknowledgement = ack

	sender := &countingSender{inner: core.NewCommitSender("test")}
	rc = core.NewRelayContext(env.src, env.dst, sender)
	result, err := core.AcknowledgementPacketRelayer{}.RelayPacket(ctx, rc, packet)
	require.NoError(t, err)
	require.Equal(t, 1, sender.calls)

	ok, reason := result.Status()
	require.True(t, ok, reason)
	require.False(t, env.commitmentExists(t, packet.Sequence))
}

func TestAcknowledgementPacketRelayerMissingAck(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	packet := env.sendPacket(t, []byte("hello"), clienttypes.Height{}, 0)

	sender := &countingSender{inner: core.NewCommitSender("test")}
	rc := core.NewRelayContext(env.src, env.dst, sender)
	result, err := core.AcknowledgementPacketRelayer{}.RelayPacket(ctx, rc, packet)
	require.ErrorIs(t, err, core.ErrPacketNotFound)
	require.Nil(t, result)
	require.Zero(t, sender.calls)
}

func TestTimeoutPacketRelayerUnordered(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	dstLatest, err := env.dst.LatestHeight(ctx)
	require.NoError(t, err)
	timeoutHeight := clienttypes.NewHeight(0, dstLatest.GetRevisionHeight()+1)
	packet := env.sendPacket(t, []byte("hello"), timeoutHeight, 0)

	env.dstChain.AdvanceBlocks(3)
	env.updateClient(t, env.src, env.dst)

	sender := &countingSender{inner: core.NewCommitSender("test")}
	rc := core.NewRelayContext(env.src, env.dst, sender)
	result, err := core.TimeoutPacketRelayer{}.RelayPacket(ctx, rc, packet)
	require.NoError(t, err)
	require.Equal(t, 1, sender.calls)

	ok, reason := result.Status()
	require.True(t, ok, reason)
	require.False(t, env.commitmentExists(t, packet.Sequence))

	// an unordered channel stays open after a timeout
	srcLatest, err := env.src.LatestHeight(ctx)
	require.NoError(t, err)
	chanRes, err := env.src.QueryChannel(core.NewQueryContext(ctx, srcLatest))
	require.NoError(t, err)
	require.Equal(t, chantypes.OPEN, chanRes.Channel.State)
}

func TestTimeoutPacketRelayerAlreadyReceived(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	packet := env.sendPacket(t, []byte("hello"), clienttypes.Height{}, 0)
	env.updateClient(t, env.dst, env.src)

	rc := core.NewRelayContext(env.src, env.dst, core.NewCommitSender("test"))
	_, err := core.ReceivePacketRelayer{}.RelayPacket(ctx, rc, packet)
	require.NoError(t, err)

	env.updateClient(t, env.src, env.dst)

	sender := &countingSender{inner: core.NewCommitSender("test")}
	rc = core.NewRelayContext(env.src, env.dst, sender)
	result, err := core.TimeoutPacketRelayer{}.RelayPacket(ctx, rc, packet)
	require.ErrorIs(t, err, core.ErrPacketNotFound)
	require.Nil(t, result)
	require.Zero(t, sender.calls)
}

func TestTimeoutPacketRelayerOrdered(t *testing.T) {
	env := newRelayEnv(t, "ORDERED")
	ctx := context.Background()

	dstLatest, err := env.dst.LatestHeight(ctx)
	require.NoError(t, err)
	timeoutHeight := clienttypes.NewHeight(0, dstLatest.GetRevisionHeight()+1)
	packet := env.sendPacket(t, []byte("hello"), timeoutHeight, 0)

	env.dstChain.AdvanceBlocks(3)
	env.updateClient(t, env.src, env.dst)

	sender := &countingSender{inner: core.NewCommitSender("test")}
	rc := core.NewRelayContext(env.src, env.dst, sender)
	result, err := core.TimeoutPacketRelayer{}.RelayPacket(ctx, rc, packet)
	require.NoError(t, err)
	require.Equal(t, 1, sender.calls)

	ok, reason := result.Status()
	require.True(t, ok, reason)

	// a timeout on an ordered channel closes the channel
	srcLatest, err := env.src.LatestHeight(ctx)
	require.NoError(t, err)
	chanRes, err := env.src.QueryChannel(core.NewQueryContext(ctx, srcLatest))
	require.NoError(t, err)
	require.Equal(t, chantypes.CLOSED, chanRes.Channel.State)
}

func TestTimeoutPacketRelayerOnClose(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	packet := env.sendPacket(t, []byte("hello"), clienttypes.NewHeight(0, 1000), 0)
	env.dstChain.CloseChannel()
	env.updateClient(t, env.src, env.dst)

	packet.ChannelClosed = true
	sender := &countingSender{inner: core.NewCommitSender("test")}
	rc := core.NewRelayContext(env.src, env.dst, sender)
	result, err := core.TimeoutPacketRelayer{}.RelayPacket(ctx, rc, packet)
	require.NoError(t, err)
	require.Equal(t, 1, sender.calls)

	ok, reason := result.Status()
	require.True(t, ok, reason)
	require.False(t, env.commitmentExists(t, packet.Sequence))
}

func TestTrustedProofContext(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	// the trusted height is taken from the verifier's client state, not from
	// the proof chain's latest height
	env.srcChain.AdvanceBlocks(5)
	qctx, err := core.TrustedProofContext(ctx, env.src, env.dst)
	require.NoError(t, err)

	srcLatest, err := env.src.LatestHeight(ctx)
	require.NoError(t, err)
	require.Less(t, qctx.Height().GetRevisionHeight(), srcLatest.GetRevisionHeight())

	env.updateClient(t, env.dst, env.src)
	qctx, err = core.TrustedProofContext(ctx, env.src, env.dst)
	require.NoError(t, err)
	require.Equal(t, srcLatest.GetRevisionHeight(), qctx.Height().GetRevisionHeight())
}

func TestTrustedProofContextLaggingProofChain(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	env.srcChain.AdvanceBlocks(5)
	env.updateClient(t, env.dst, env.src)

	// a chain that never produced the trusted height cannot serve proofs at
	// it; the verifier's client points at a different chain
	stale := mock.NewChain(mock.ChainConfig{ChainId: "mock-src"})
	_, err := core.TrustedProofContext(ctx, core.NewProvableChain(stale, mock.NewProver(stale)), env.dst)
	require.ErrorIs(t, err, core.ErrHeightNotAvailable)
}
