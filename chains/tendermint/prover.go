package tendermint

import (
	"bytes"
	"context"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	rpcclient "github.com/cometbft/cometbft/rpc/client"
	tmtypes "github.com/cometbft/cometbft/types"
	"github.com/cosmos/cosmos-sdk/codec"
	stakingtypes "github.com/cosmos/cosmos-sdk/x/staking/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
	tmclient "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"

	"github.com/aozora-labs/tsubame-relayer/core"
)

var defaultUpgradePath = []string{"upgrade", "upgradedIBCState"}

// Prover is a light client of a CometBFT chain. It keeps no local state:
// trust always originates from an on-chain client or an explicitly given
// trusted height, so concurrent verifications never interfere.
type Prover struct {
	chain  *Chain
	config ProverConfig

	// injectable for tests
	provider lightProvider
	verify   verifyFunc
}

var _ core.Prover = (*Prover)(nil)

func NewProver(chain *Chain, config ProverConfig) *Prover {
	return &Prover{chain: chain, config: config}
}

func (pr *Prover) Init(homePath string, timeout time.Duration, codec codec.ProtoCodecMarshaler, debug bool) error {
	if pr.provider == nil {
		pr.provider = newLightProvider(pr.chain.config.TmChainId, pr.chain)
	}
	if pr.verify == nil {
		pr.verify = defaultVerify
	}
	return nil
}

// SetRelayInfo sets source's path and counterparty's info to the chain
func (pr *Prover) SetRelayInfo(path *core.PathEnd, counterparty *core.ProvableChain, counterpartyPath *core.PathEnd) error {
	return nil
}

func (pr *Prover) SetupForRelay(ctx context.Context) error {
	return nil
}

// GetLatestFinalizedHeader returns the latest finalized header of this chain.
// CometBFT blocks have instant finality, so this is the latest header.
func (pr *Prover) GetLatestFinalizedHeader(ctx context.Context) (core.Header, error) {
	height, err := pr.chain.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	lb, err := pr.fetchLightBlock(ctx, int64(height.GetRevisionHeight()))
	if err != nil {
		return nil, err
	}
	return lightBlockToHeader(lb)
}

// CreateInitialLightClientState returns the client and consensus states for
// bootstrapping an on-chain client of this chain
func (pr *Prover) CreateInitialLightClientState(ctx context.Context, height ibcexported.Height) (ibcexported.ClientState, ibcexported.ConsensusState, error) {
	if height == nil {
		latest, err := pr.chain.LatestHeight(ctx)
		if err != nil {
			return nil, nil, err
		}
		height = latest
	}
	lb, err := pr.fetchLightBlock(ctx, int64(height.GetRevisionHeight()))
	if err != nil {
		return nil, nil, err
	}

	ubdPeriod, err := pr.queryUnbondingPeriod(ctx)
	if err != nil {
		return nil, nil, err
	}

	clientState := tmclient.NewClientState(
		pr.chain.config.TmChainId,
		tmclient.DefaultTrustLevel,
		pr.config.GetTrustingPeriod(),
		ubdPeriod,
		defaultMaxClockDrift,
		clienttypes.NewHeight(height.GetRevisionNumber(), uint64(lb.Height)),
		commitmenttypes.GetSDKSpecs(),
		defaultUpgradePath,
	)
	consensusState := tmclient.NewConsensusState(
		lb.Time,
		commitmenttypes.NewMerkleRoot(lb.AppHash),
		lb.NextValidatorsHash,
	)
	return clientState, consensusState, nil
}

// SetupHeadersForUpdate creates the headers that update the counterparty's
// on-chain client up to `latestFinalizedHeader`. The trusted height is read
// from the client state stored on the counterparty, never from local state.
func (pr *Prover) SetupHeadersForUpdate(ctx context.Context, counterparty core.ChainInfoICS02Querier, latestFinalizedHeader core.Header) ([]core.Header, error) {
	header, ok := latestFinalizedHeader.(*tmclient.Header)
	if !ok {
		return nil, fmt.Errorf("unexpected header type: %T", latestFinalizedHeader)
	}

	cs, err := pr.queryCounterpartyClientState(ctx, counterparty)
	if err != nil {
		return nil, err
	}
	trusted, err := clientStateLatestHeight(cs)
	if err != nil {
		return nil, err
	}

	target := header.GetHeight()
	if trusted.EQ(target) {
		return nil, nil
	}

	vh, err := pr.HeaderAndMinimalSet(ctx, trusted, target, cs)
	if err != nil {
		return nil, err
	}
	return vh.Headers(), nil
}

// HeaderAndMinimalSet verifies the header at `target` against the state
// trusted at `trusted` and returns it with the minimal set of supporting
// headers
func (pr *Prover) HeaderAndMinimalSet(ctx context.Context, trusted, target ibcexported.Height, cs ibcexported.ClientState) (*core.VerifiedHeader, error) {
	tmcs, ok := cs.(*tmclient.ClientState)
	if !ok {
		return nil, fmt.Errorf("unexpected client state type: %T", cs)
	}

	path, err := pr.verifiedPath(ctx, trusted, target, tmcs.TrustingPeriod, tmcs.TrustLevel.ToTendermint())
	if err != nil {
		return nil, err
	}
	headers, err := pr.headersFromPath(ctx, trusted.GetRevisionNumber(), path)
	if err != nil {
		return nil, err
	}

	vh := &core.VerifiedHeader{Target: headers[len(headers)-1]}
	for _, h := range headers[:len(headers)-1] {
		vh.Supporting = append(vh.Supporting, h)
	}
	return vh, nil
}

// Verify checks that the block at `target` is verifiable from `trusted`
// without altering any trusted state
func (pr *Prover) Verify(ctx context.Context, trusted, target ibcexported.Height, cs ibcexported.ClientState) (*core.VerifiedBlock, error) {
	tmcs, ok := cs.(*tmclient.ClientState)
	if !ok {
		return nil, fmt.Errorf("unexpected client state type: %T", cs)
	}

	path, err := pr.verifiedPath(ctx, trusted, target, tmcs.TrustingPeriod, tmcs.TrustLevel.ToTendermint())
	if err != nil {
		return nil, err
	}

	revision := trusted.GetRevisionNumber()
	vb := &core.VerifiedBlock{Target: &lightBlock{path[len(path)-1], revision}}
	for _, lb := range path[1 : len(path)-1] {
		vb.Supporting = append(vb.Supporting, &lightBlock{lb, revision})
	}
	return vb, nil
}

// CheckMisbehaviour compares a client update observed on the counterparty
// against this chain's canonical history and returns freezing evidence iff
// they conflict
func (pr *Prover) CheckMisbehaviour(ctx context.Context, update core.UpdateClientEvent, cs ibcexported.ClientState) (*core.MisbehaviourEvidence, error) {
	header, ok := update.Header.(*tmclient.Header)
	if !ok {
		return nil, fmt.Errorf("unexpected header type: %T", update.Header)
	}

	canonical, err := pr.fetchLightBlock(ctx, int64(update.ConsensusHeight.GetRevisionHeight()))
	if err != nil {
		return nil, err
	}
	submitted, err := tmtypes.HeaderFromProto(header.SignedHeader.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to convert submitted header: %v", err)
	}

	if bytes.Equal(canonical.Header.Hash(), submitted.Hash()) {
		return nil, nil
	}

	canonicalHeader, err := lightBlockToHeader(canonical)
	if err != nil {
		return nil, err
	}
	canonicalHeader.TrustedHeight = header.TrustedHeight
	canonicalHeader.TrustedValidators = header.TrustedValidators

	return &core.MisbehaviourEvidence{
		Misbehaviour: &tmclient.Misbehaviour{
			ClientId: update.ClientID,
			Header1:  header,
			Header2:  canonicalHeader,
		},
		ConflictingHeader: header,
	}, nil
}

// Fetch returns the raw light block at `height`
func (pr *Prover) Fetch(ctx context.Context, height ibcexported.Height) (core.LightBlock, error) {
	lb, err := pr.fetchLightBlock(ctx, int64(height.GetRevisionHeight()))
	if err != nil {
		return nil, err
	}
	return &lightBlock{lb, height.GetRevisionNumber()}, nil
}

// CheckRefreshRequired returns true if the counterparty's on-chain client has
// consumed more than the configured fraction of its trusting period
func (pr *Prover) CheckRefreshRequired(ctx context.Context, counterparty core.ChainInfoICS02Querier) (bool, error) {
	cs, err := pr.queryCounterpartyClientState(ctx, counterparty)
	if err != nil {
		return false, err
	}
	latestHeight, err := clientStateLatestHeight(cs)
	if err != nil {
		return false, err
	}

	cpLatest, err := counterparty.LatestHeight(ctx)
	if err != nil {
		return false, err
	}
	consRes, err := counterparty.QueryClientConsensusState(core.NewQueryContext(ctx, cpLatest), latestHeight)
	if err != nil {
		return false, err
	}
	var cons ibcexported.ConsensusState
	if err := pr.chain.codec.UnpackAny(consRes.ConsensusState, &cons); err != nil {
		return false, fmt.Errorf("failed to unpack consensus state: %v", err)
	}

	elapsed := time.Since(time.Unix(0, int64(cons.GetTimestamp())))
	threshold := time.Duration(uint64(pr.config.GetTrustingPeriod()) * pr.config.RefreshThresholdRate.Numerator / pr.config.RefreshThresholdRate.Denominator)
	return elapsed > threshold, nil
}

// ProveState returns a proof of an IBC state specified by `path` and `value`.
// The ABCI query runs against the previous block's state so that the returned
// proof height equals the height the caller queried at.
func (pr *Prover) ProveState(ctx core.QueryContext, path string, value []byte) ([]byte, clienttypes.Height, error) {
	resp, err := pr.abciQueryWithProof(ctx, []byte(path))
	if err != nil {
		return nil, clienttypes.Height{}, err
	}
	if len(resp.Value) == 0 {
		return nil, clienttypes.Height{}, errorsmod.Wrapf(core.ErrProofNotFound, "no value at path %q at height %s", path, ctx.Height())
	}
	if value != nil && !bytes.Equal(resp.Value, value) {
		return nil, clienttypes.Height{}, errorsmod.Wrapf(core.ErrProofNotFound, "value mismatch at path %q at height %s", path, ctx.Height())
	}
	proof, proofHeight, err := pr.marshalProof(resp)
	if err != nil {
		return nil, clienttypes.Height{}, err
	}
	return proof, proofHeight, nil
}

// ProvePacket returns a proof of a packet-lifecycle state
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
		return nil, fmt.Errorf("unknown packet proof type: %v", kind)
	}

	resp, err := pr.abciQueryWithProof(ctx, []byte(path))
	if err != nil {
		return nil, err
	}

	var value []byte
	switch kind {
	case core.PacketProofReceiptAbsence:
		if len(resp.Value) != 0 {
			return nil, errorsmod.Wrapf(core.ErrQuery, "receipt exists for %s/%s sequence %d; cannot prove absence", portID, channelID, sequence)
		}
	case core.PacketProofCommitment:
		if len(resp.Value) == 0 {
			return nil, errorsmod.Wrapf(core.ErrPacketNotFound, "no commitment for %s/%s sequence %d at height %s", portID, channelID, sequence, ctx.Height())
		}
		value = resp.Value
	default:
		if len(resp.Value) == 0 {
			return nil, errorsmod.Wrapf(core.ErrProofNotFound, "no value at path %q at height %s", path, ctx.Height())
		}
		value = resp.Value
	}

	proof, proofHeight, err := pr.marshalProof(resp)
	if err != nil {
		return nil, err
	}
	return &core.PacketProof{Value: value, Proof: proof, ProofHeight: proofHeight}, nil
}

// ProveHostConsensusState returns a proof of the consensus state of the host chain
func (pr *Prover) ProveHostConsensusState(ctx core.QueryContext, height ibcexported.Height, consensusState ibcexported.ConsensusState) ([]byte, error) {
	return clienttypes.MarshalConsensusState(pr.chain.codec, consensusState)
}

func (pr *Prover) queryCounterpartyClientState(ctx context.Context, counterparty core.ChainInfoICS02Querier) (ibcexported.ClientState, error) {
	cpLatest, err := counterparty.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	csRes, err := counterparty.QueryClientState(core.NewQueryContext(ctx, cpLatest))
	if err != nil {
		return nil, err
	}
	var cs ibcexported.ClientState
	if err := pr.chain.codec.UnpackAny(csRes.ClientState, &cs); err != nil {
		return nil, fmt.Errorf("failed to unpack client state: %v", err)
	}
	return cs, nil
}

func clientStateLatestHeight(cs ibcexported.ClientState) (ibcexported.Height, error) {
	lh, ok := cs.(interface{ GetLatestHeight() ibcexported.Height })
	if !ok {
		return nil, fmt.Errorf("client state %T does not expose its latest height", cs)
	}
	return lh.GetLatestHeight(), nil
}

func (pr *Prover) queryUnbondingPeriod(ctx context.Context) (time.Duration, error) {
	queryClient := stakingtypes.NewQueryClient(pr.chain.CLIContext(0))
	res, err := queryClient.Params(ctx, &stakingtypes.QueryParamsRequest{})
	if err != nil {
		return 0, errorsmod.Wrapf(core.ErrQuery, "failed to query staking params: %v", err)
	}
	return res.Params.UnbondingTime, nil
}

// abciQueryWithProof queries the IBC store with a Merkle proof. The state
// written at height H is reflected in the app hash of the block at H+1, so
// the query runs at ctx.Height()-1 and the response height is the queried
// height.
func (pr *Prover) abciQueryWithProof(ctx core.QueryContext, key []byte) (*abciQueryResponse, error) {
	height := int64(ctx.Height().GetRevisionHeight()) - 1
	if height <= 0 {
		return nil, errorsmod.Wrapf(core.ErrStaleHeight, "cannot query state at height %s", ctx.Height())
	}
	opts := rpcclient.ABCIQueryOptions{Height: height, Prove: true}
	result, err := pr.chain.client.ABCIQueryWithOptions(ctx.Context(), "store/ibc/key", key, opts)
	if err != nil {
		return nil, errorsmod.Wrapf(core.ErrConnection, "abci query failed: %v", err)
	}
	resp := result.Response
	if !resp.IsOK() {
		return nil, errorsmod.Wrapf(core.ErrQuery, "abci query returned error: code=%d log=%s", resp.Code, resp.Log)
	}

	merkleProof, err := commitmenttypes.ConvertProofs(resp.ProofOps)
	if err != nil {
		return nil, errorsmod.Wrapf(core.ErrProofNotFound, "failed to convert proof ops: %v", err)
	}
	return &abciQueryResponse{
		Value:       resp.Value,
		Proof:       merkleProof,
		QueryHeight: resp.Height,
	}, nil
}

type abciQueryResponse struct {
	Value       []byte
	Proof       commitmenttypes.MerkleProof
	QueryHeight int64
}

func (pr *Prover) marshalProof(resp *abciQueryResponse) ([]byte, clienttypes.Height, error) {
	proof, err := pr.chain.codec.Marshal(&resp.Proof)
	if err != nil {
		return nil, clienttypes.Height{}, err
	}
	revision := clienttypes.ParseChainID(pr.chain.config.TmChainId)
	return proof, clienttypes.NewHeight(revision, uint64(resp.QueryHeight)+1), nil
}
