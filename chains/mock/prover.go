package mock

import (
	"bytes"
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"

	"github.com/aozora-labs/tsubame-relayer/core"
)

// Prover is the light client of the mock chain. The mock chain cannot fork,
// so every produced block is verifiable; a forged client update can still
// carry a header that disagrees with the recorded block at its height.
type Prover struct {
	chain *Chain
}

var _ core.Prover = (*Prover)(nil)

func NewProver(chain *Chain) *Prover {
	return &Prover{chain: chain}
}

func (pr *Prover) Init(homePath string, timeout time.Duration, codec codec.ProtoCodecMarshaler, debug bool) error {
	return nil
}

func (pr *Prover) SetRelayInfo(path *core.PathEnd, counterparty *core.ProvableChain, counterpartyPath *core.PathEnd) error {
	return nil
}

func (pr *Prover) SetupForRelay(ctx context.Context) error {
	return nil
}

func (pr *Prover) GetLatestFinalizedHeader(ctx context.Context) (core.Header, error) {
	height, err := pr.chain.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	return pr.headerAt(ctx, height)
}

func (pr *Prover) CreateInitialLightClientState(ctx context.Context, height ibcexported.Height) (ibcexported.ClientState, ibcexported.ConsensusState, error) {
	if height == nil {
		latest, err := pr.chain.LatestHeight(ctx)
		if err != nil {
			return nil, nil, err
		}
		height = latest
	}
	ts, err := pr.chain.Timestamp(ctx, height)
	if err != nil {
		return nil, nil, err
	}
	h := toHeight(height)
	return &ClientState{LatestHeight: &h}, &ConsensusState{Timestamp: uint64(ts.UnixNano())}, nil
}

func (pr *Prover) SetupHeadersForUpdate(ctx context.Context, counterparty core.ChainInfoICS02Querier, latestFinalizedHeader core.Header) ([]core.Header, error) {
	cpLatest, err := counterparty.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	csRes, err := counterparty.QueryClientState(core.NewQueryContext(ctx, cpLatest))
	if err != nil {
		return nil, err
	}
	cs, err := clienttypes.UnpackClientState(csRes.ClientState)
	if err != nil {
		return nil, err
	}
	mcs, ok := cs.(*ClientState)
	if !ok {
		return nil, errorsmod.Wrapf(core.ErrQuery, "unexpected client state type: %T", cs)
	}
	if mcs.GetLatestHeight().GTE(latestFinalizedHeader.GetHeight()) {
		return nil, nil
	}
	// a single header suffices: any mock block is verifiable from any
	// trusted height
	return []core.Header{latestFinalizedHeader}, nil
}

func (pr *Prover) HeaderAndMinimalSet(ctx context.Context, trusted, target ibcexported.Height, cs ibcexported.ClientState) (*core.VerifiedHeader, error) {
	if err := pr.checkVerifiable(ctx, trusted, target); err != nil {
		return nil, err
	}
	header, err := pr.headerAt(ctx, target)
	if err != nil {
		return nil, err
	}
	return &core.VerifiedHeader{Target: header}, nil
}

func (pr *Prover) Verify(ctx context.Context, trusted, target ibcexported.Height, cs ibcexported.ClientState) (*core.VerifiedBlock, error) {
	if err := pr.checkVerifiable(ctx, trusted, target); err != nil {
		return nil, err
	}
	block, err := pr.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	return &core.VerifiedBlock{Target: block}, nil
}

func (pr *Prover) checkVerifiable(ctx context.Context, trusted, target ibcexported.Height) error {
	if target.LTE(trusted) {
		return errorsmod.Wrapf(core.ErrInsufficientTrust, "target height %s is not above trusted height %s", target, trusted)
	}
	latest, err := pr.chain.LatestHeight(ctx)
	if err != nil {
		return err
	}
	if target.GT(latest) {
		return errorsmod.Wrapf(core.ErrHeightNotAvailable, "target height %s is above the latest height %s", target, latest)
	}
	return nil
}

// CheckMisbehaviour compares the submitted header against the block the chain
// actually produced at that height. The timestamp is the only header field,
// so a mismatch there is the conflict.
func (pr *Prover) CheckMisbehaviour(ctx context.Context, update core.UpdateClientEvent, cs ibcexported.ClientState) (*core.MisbehaviourEvidence, error) {
	header, ok := update.Header.(*Header)
	if !ok {
		return nil, errorsmod.Wrapf(core.ErrMisbehaviour, "unexpected header type: %T", update.Header)
	}
	canonical, err := pr.headerAt(ctx, update.ConsensusHeight)
	if err != nil {
		return nil, err
	}
	if header.Timestamp == canonical.Timestamp {
		return nil, nil
	}
	return &core.MisbehaviourEvidence{
		Misbehaviour:      canonical,
		ConflictingHeader: header,
	}, nil
}

func (pr *Prover) Fetch(ctx context.Context, height ibcexported.Height) (core.LightBlock, error) {
	ts, err := pr.chain.Timestamp(ctx, height)
	if err != nil {
		return nil, errorsmod.Wrapf(core.ErrHeightNotAvailable, "no block at height %s", height)
	}
	return &mockBlock{height: toHeight(height), timestamp: ts}, nil
}

func (pr *Prover) CheckRefreshRequired(ctx context.Context, counterparty core.ChainInfoICS02Querier) (bool, error) {
	return false, nil
}

func (pr *Prover) ProveState(ctx core.QueryContext, path string, value []byte) ([]byte, clienttypes.Height, error) {
	stored, exists := pr.chain.stateAt(path, ctx.Height().GetRevisionHeight())
	if !exists {
		return nil, clienttypes.Height{}, errorsmod.Wrapf(core.ErrProofNotFound, "no value at path %q at height %s", path, ctx.Height())
	}
	if value != nil && !bytes.Equal(stored, value) {
		return nil, clienttypes.Height{}, errorsmod.Wrapf(core.ErrProofNotFound, "value mismatch at path %q at height %s", path, ctx.Height())
	}
	return makeProof(stored), toHeight(ctx.Height()), nil
}

func (pr *Prover) ProvePacket(ctx core.QueryContext, kind core.PacketProofType, portID, channelID string, sequence uint64) (*core.PacketProof, error) {
	var path string
	switch kind {
	case core.PacketProofCommitment:
		path = host.PacketCommitmentPath(portID, channelID, sequence)
	case core.PacketProofAcknowledgement:
		path = host.PacketAcknowledgementPath(portID, channelID, sequence)
	case core.PacketProofReceiptAbsence:
		path = host.PacketReceiptPath(portID, channelID, sequence)
	case core.PacketProofNextSequenceRecv:
		path = host.NextSequenceRecvPath(portID, channelID)
	default:
		return nil, errorsmod.Wrapf(core.ErrQuery, "unknown packet proof type: %v", kind)
	}

	height := ctx.Height().GetRevisionHeight()
	proofHeight := toHeight(ctx.Height())

	if kind == core.PacketProofReceiptAbsence {
		if _, exists := pr.chain.stateAt(path, height); exists {
			return nil, errorsmod.Wrapf(core.ErrQuery, "receipt exists for %s/%s sequence %d; cannot prove absence", portID, channelID, sequence)
		}
		return &core.PacketProof{Proof: makeProof([]byte(path)), ProofHeight: proofHeight}, nil
	}

	if kind == core.PacketProofNextSequenceRecv {
		pr.chain.mu.Lock()
		bz := sdkUint64ToBigEndian(pr.chain.nextSeqRecv)
		pr.chain.mu.Unlock()
		return &core.PacketProof{Value: bz, Proof: makeProof(bz), ProofHeight: proofHeight}, nil
	}

	value, exists := pr.chain.stateAt(path, height)
	if !exists {
		if kind == core.PacketProofCommitment {
			return nil, errorsmod.Wrapf(core.ErrPacketNotFound, "no commitment for %s/%s sequence %d at height %s", portID, channelID, sequence, ctx.Height())
		}
		return nil, errorsmod.Wrapf(core.ErrProofNotFound, "no value at path %q at height %s", path, ctx.Height())
	}
	return &core.PacketProof{Value: value, Proof: makeProof(value), ProofHeight: proofHeight}, nil
}

func (pr *Prover) ProveHostConsensusState(ctx core.QueryContext, height ibcexported.Height, consensusState ibcexported.ConsensusState) ([]byte, error) {
	return clienttypes.MarshalConsensusState(pr.chain.codec, consensusState)
}

// headerAt builds a client update header for the block at `height`
func (pr *Prover) headerAt(ctx context.Context, height ibcexported.Height) (*Header, error) {
	ts, err := pr.chain.Timestamp(ctx, height)
	if err != nil {
		return nil, err
	}
	h := toHeight(height)
	return &Header{Height: &h, Timestamp: uint64(ts.UnixNano())}, nil
}

var _ core.LightBlock = (*mockBlock)(nil)

type mockBlock struct {
	height    clienttypes.Height
	timestamp time.Time
}

func (b *mockBlock) GetHeight() ibcexported.Height {
	return b.height
}

func (b *mockBlock) GetTimestamp() time.Time {
	return b.timestamp
}

func toHeight(height ibcexported.Height) clienttypes.Height {
	return clienttypes.NewHeight(height.GetRevisionNumber(), height.GetRevisionHeight())
}

func sdkUint64ToBigEndian(v uint64) []byte {
	return sdk.Uint64ToBigEndian(v)
}

// packetTimedOut reports whether a packet can no longer be received on the
// counterparty as of the given finalized height and timestamp
func packetTimedOut(p *core.PacketInfo, cpHeight ibcexported.Height, cpTimestamp time.Time) bool {
	if !p.TimeoutHeight.IsZero() && cpHeight.GTE(p.TimeoutHeight) {
		return true
	}
	if p.TimeoutTimestamp != 0 && !cpTimestamp.Before(time.Unix(0, int64(p.TimeoutTimestamp))) {
		return true
	}
	return false
}
