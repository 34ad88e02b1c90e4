package otelcore

import (
	"context"
	"fmt"

	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aozora-labs/tsubame-relayer/core"
)

type Prover struct {
	core.Prover
	chainID string
	tracer  trace.Tracer
}

func NewProver(prover core.Prover, chainID string, tracer trace.Tracer) *Prover {
	return &Prover{
		Prover:  prover,
		chainID: chainID,
		tracer:  tracer,
	}
}

// Inner returns the wrapped prover
func (p *Prover) Inner() core.Prover {
	return p.Prover
}

func (p *Prover) GetLatestFinalizedHeader(ctx context.Context) (core.Header, error) {
	ctx, span := p.tracer.Start(ctx, "Prover.GetLatestFinalizedHeader",
		core.WithChainAttributes(p.chainID),
	)
	defer span.End()

	header, err := p.Prover.GetLatestFinalizedHeader(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return header, err
}

func (p *Prover) CreateInitialLightClientState(ctx context.Context, height ibcexported.Height) (ibcexported.ClientState, ibcexported.ConsensusState, error) {
	ctx, span := p.tracer.Start(ctx, "Prover.CreateInitialLightClientState",
		core.WithChainAttributes(p.chainID),
	)
	defer span.End()

	clientState, consensusState, err := p.Prover.CreateInitialLightClientState(ctx, height)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return clientState, consensusState, err
}

func (p *Prover) SetupHeadersForUpdate(ctx context.Context, counterparty core.ChainInfoICS02Querier, latestFinalizedHeader core.Header) ([]core.Header, error) {
	ctx, span := p.tracer.Start(ctx, "Prover.SetupHeadersForUpdate",
		core.WithChainAttributes(p.chainID),
		trace.WithAttributes(attribute.String("counterparty_chain_id", counterparty.ChainID())),
	)
	defer span.End()

	headers, err := p.Prover.SetupHeadersForUpdate(ctx, counterparty, latestFinalizedHeader)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return headers, err
}

func (p *Prover) HeaderAndMinimalSet(ctx context.Context, trusted, target ibcexported.Height, cs ibcexported.ClientState) (*core.VerifiedHeader, error) {
	ctx, span := p.tracer.Start(ctx, "Prover.HeaderAndMinimalSet",
		core.WithChainAttributes(p.chainID),
		trace.WithAttributes(
			attribute.String("trusted_height", trusted.String()),
			attribute.String("target_height", target.String()),
		),
	)
	defer span.End()

	vh, err := p.Prover.HeaderAndMinimalSet(ctx, trusted, target, cs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return vh, err
}

func (p *Prover) Verify(ctx context.Context, trusted, target ibcexported.Height, cs ibcexported.ClientState) (*core.VerifiedBlock, error) {
	ctx, span := p.tracer.Start(ctx, "Prover.Verify",
		core.WithChainAttributes(p.chainID),
		trace.WithAttributes(
			attribute.String("trusted_height", trusted.String()),
			attribute.String("target_height", target.String()),
		),
	)
	defer span.End()

	vb, err := p.Prover.Verify(ctx, trusted, target, cs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return vb, err
}

func (p *Prover) CheckMisbehaviour(ctx context.Context, update core.UpdateClientEvent, cs ibcexported.ClientState) (*core.MisbehaviourEvidence, error) {
	ctx, span := p.tracer.Start(ctx, "Prover.CheckMisbehaviour",
		core.WithChainAttributes(p.chainID),
		trace.WithAttributes(core.AttributeKeyClientID.String(update.ClientID)),
	)
	defer span.End()

	evidence, err := p.Prover.CheckMisbehaviour(ctx, update, cs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return evidence, err
}

func (p *Prover) Fetch(ctx context.Context, height ibcexported.Height) (core.LightBlock, error) {
	ctx, span := p.tracer.Start(ctx, "Prover.Fetch",
		core.WithChainAttributes(p.chainID),
		trace.WithAttributes(attribute.String("height", height.String())),
	)
	defer span.End()

	block, err := p.Prover.Fetch(ctx, height)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return block, err
}

func (p *Prover) CheckRefreshRequired(ctx context.Context, counterparty core.ChainInfoICS02Querier) (bool, error) {
	ctx, span := p.tracer.Start(ctx, "Prover.CheckRefreshRequired",
		core.WithChainAttributes(p.chainID),
		trace.WithAttributes(attribute.String("counterparty_chain_id", counterparty.ChainID())),
	)
	defer span.End()

	required, err := p.Prover.CheckRefreshRequired(ctx, counterparty)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return required, err
}

func (p *Prover) ProveState(ctx core.QueryContext, path string, value []byte) ([]byte, clienttypes.Height, error) {
	ctx, span := core.StartTraceWithQueryContext(p.tracer, ctx, "Prover.ProveState",
		core.WithChainAttributes(p.chainID),
		trace.WithAttributes(core.AttributeKeyPath.String(path)),
	)
	defer span.End()

	proof, height, err := p.Prover.ProveState(ctx, path, value)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return proof, height, err
}

func (p *Prover) ProvePacket(ctx core.QueryContext, kind core.PacketProofType, portID, channelID string, sequence uint64) (*core.PacketProof, error) {
	ctx, span := core.StartTraceWithQueryContext(p.tracer, ctx, "Prover.ProvePacket",
		core.WithChainAttributes(p.chainID),
		trace.WithAttributes(
			attribute.String("kind", kind.String()),
			core.AttributeKeyPortID.String(portID),
			core.AttributeKeyChannelID.String(channelID),
			attribute.String("sequence", fmt.Sprint(sequence)),
		),
	)
	defer span.End()

	proof, err := p.Prover.ProvePacket(ctx, kind, portID, channelID, sequence)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return proof, err
}

func (p *Prover) ProveHostConsensusState(ctx core.QueryContext, height ibcexported.Height, consensusState ibcexported.ConsensusState) ([]byte, error) {
	ctx, span := core.StartTraceWithQueryContext(p.tracer, ctx, "Prover.ProveHostConsensusState",
		core.WithChainAttributes(p.chainID),
	)
	defer span.End()

	proof, err := p.Prover.ProveHostConsensusState(ctx, height, consensusState)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return proof, err
}
