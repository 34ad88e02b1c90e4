package otelcore

import (
	"context"
	"time"

	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aozora-labs/tsubame-relayer/core"
)

type Chain struct {
	core.Chain
	tracer trace.Tracer
}

func NewChain(chain core.Chain, tracer trace.Tracer) *Chain {
	return &Chain{
		Chain:  chain,
		tracer: tracer,
	}
}

// Inner returns the wrapped chain
func (c *Chain) Inner() core.Chain {
	return c.Chain
}

func (c *Chain) SendMsgs(ctx context.Context, msgs core.TrackedMsgs) ([]core.MsgID, error) {
	ctx, span := c.tracer.Start(ctx, "Chain.SendMsgs",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	ids, err := c.Chain.SendMsgs(ctx, msgs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return ids, err
}

func (c *Chain) SendMsgsAndWaitCommit(ctx context.Context, msgs core.TrackedMsgs) ([]core.MsgResult, error) {
	ctx, span := c.tracer.Start(ctx, "Chain.SendMsgsAndWaitCommit",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	results, err := c.Chain.SendMsgsAndWaitCommit(ctx, msgs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return results, err
}

func (c *Chain) GetMsgResult(ctx context.Context, id core.MsgID) (core.MsgResult, error) {
	ctx, span := c.tracer.Start(ctx, "Chain.GetMsgResult",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	result, err := c.Chain.GetMsgResult(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (c *Chain) LatestHeight(ctx context.Context) (ibcexported.Height, error) {
	ctx, span := c.tracer.Start(ctx, "Chain.LatestHeight",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	height, err := c.Chain.LatestHeight(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return height, err
}

func (c *Chain) Timestamp(ctx context.Context, height ibcexported.Height) (time.Time, error) {
	ctx, span := c.tracer.Start(ctx, "Chain.Timestamp",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	t, err := c.Chain.Timestamp(ctx, height)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return t, err
}

func (c *Chain) QueryClientConsensusState(ctx core.QueryContext, dstClientConsHeight ibcexported.Height) (*clienttypes.QueryConsensusStateResponse, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryClientConsensusState",
		core.WithClientAttributes(c),
	)
	defer span.End()

	resp, err := c.Chain.QueryClientConsensusState(ctx, dstClientConsHeight)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (c *Chain) QueryClientState(ctx core.QueryContext) (*clienttypes.QueryClientStateResponse, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryClientState",
		core.WithChainAttributes(c.ChainID()),
	)
	defer span.End()

	resp, err := c.Chain.QueryClientState(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (c *Chain) QueryConnection(ctx core.QueryContext, connectionID string) (*conntypes.QueryConnectionResponse, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryConnection",
		core.WithClientAttributes(c),
		trace.WithAttributes(core.AttributeKeyConnectionID.String(connectionID)),
	)
	defer span.End()

	resp, err := c.Chain.QueryConnection(ctx, connectionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (c *Chain) QueryChannel(ctx core.QueryContext) (*chantypes.QueryChannelResponse, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryChannel",
		core.WithChannelAttributes(c),
	)
	defer span.End()

	resp, err := c.Chain.QueryChannel(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (c *Chain) QueryPacketCommitments(ctx core.QueryContext, paginationParams core.PageRequest) (*chantypes.QueryPacketCommitmentsResponse, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryPacketCommitments",
		core.WithChannelAttributes(c),
	)
	defer span.End()

	resp, err := c.Chain.QueryPacketCommitments(ctx, paginationParams)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (c *Chain) QueryUnreceivedPackets(ctx core.QueryContext, seqs []uint64) ([]uint64, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryUnreceivedPackets",
		core.WithChannelAttributes(c),
	)
	defer span.End()

	packets, err := c.Chain.QueryUnreceivedPackets(ctx, seqs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return packets, err
}

func (c *Chain) QueryUnfinalizedRelayPackets(ctx core.QueryContext, counterparty core.LightClientICS04Querier) (core.PacketInfoList, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryUnfinalizedRelayPackets",
		core.WithChannelAttributes(c),
	)
	defer span.End()

	list, err := c.Chain.QueryUnfinalizedRelayPackets(ctx, counterparty)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return list, err
}

func (c *Chain) QueryPacketAcknowledgements(ctx core.QueryContext, paginationParams core.PageRequest) (*chantypes.QueryPacketAcknowledgementsResponse, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryPacketAcknowledgements",
		core.WithChannelAttributes(c),
	)
	defer span.End()

	resp, err := c.Chain.QueryPacketAcknowledgements(ctx, paginationParams)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (c *Chain) QueryUnreceivedAcknowledgements(ctx core.QueryContext, seqs []uint64) ([]uint64, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryUnreceivedAcknowledgements",
		core.WithChannelAttributes(c),
	)
	defer span.End()

	acks, err := c.Chain.QueryUnreceivedAcknowledgements(ctx, seqs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return acks, err
}

func (c *Chain) QueryUnfinalizedRelayAcknowledgements(ctx core.QueryContext, counterparty core.LightClientICS04Querier) (core.PacketInfoList, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryUnfinalizedRelayAcknowledgements",
		core.WithChannelAttributes(c),
	)
	defer span.End()

	list, err := c.Chain.QueryUnfinalizedRelayAcknowledgements(ctx, counterparty)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return list, err
}

func (c *Chain) QueryNextSequenceReceive(ctx core.QueryContext) (*chantypes.QueryNextSequenceReceiveResponse, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryNextSequenceReceive",
		core.WithChannelAttributes(c),
	)
	defer span.End()

	resp, err := c.Chain.QueryNextSequenceReceive(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (c *Chain) QueryPacket(ctx core.QueryContext, sequence uint64) (*chantypes.Packet, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryPacket",
		core.WithChannelAttributes(c),
	)
	defer span.End()

	packet, err := c.Chain.QueryPacket(ctx, sequence)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return packet, err
}

func (c *Chain) QueryPacketReceipt(ctx core.QueryContext, sequence uint64) (bool, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryPacketReceipt",
		core.WithChannelAttributes(c),
	)
	defer span.End()

	received, err := c.Chain.QueryPacketReceipt(ctx, sequence)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return received, err
}

func (c *Chain) QueryPacketAcknowledgement(ctx core.QueryContext, sequence uint64) ([]byte, error) {
	ctx, span := core.StartTraceWithQueryContext(c.tracer, ctx, "Chain.QueryPacketAcknowledgement",
		core.WithChannelAttributes(c),
	)
	defer span.End()

	ack, err := c.Chain.QueryPacketAcknowledgement(ctx, sequence)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return ack, err
}
