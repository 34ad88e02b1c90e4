package core

import (
	"context"
	"time"

	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"

	"github.com/aozora-labs/tsubame-relayer/log"
)

// Chain represents a chain that supports sending transactions and querying the state
type Chain interface {
	// ChainID returns ID of the chain
	ChainID() string

	// GetAddress returns the address of relayer
	GetAddress() (sdk.AccAddress, error)

	// Codec returns the codec
	Codec() codec.ProtoCodecMarshaler

	// SetRelayInfo sets source's path and counterparty's info to the chain
	SetRelayInfo(path *PathEnd, counterparty *ProvableChain, counterpartyPath *PathEnd) error

	// Path returns the path
	Path() *PathEnd

	// Init initializes the chain
	Init(homePath string, timeout time.Duration, codec codec.ProtoCodecMarshaler, debug bool) error

	// SetupForRelay performs chain-specific setup before starting the relay
	SetupForRelay(ctx context.Context) error

	// SendMsgs sends msgs to the chain and waits for the check-tx results.
	// It returns a message ID per msg as soon as the chain accepts the batch
	// into its mempool; execution results must be obtained via GetMsgResult.
	SendMsgs(ctx context.Context, msgs TrackedMsgs) ([]MsgID, error)

	// SendMsgsAndWaitCommit sends msgs and blocks until every msg is included
	// in a block, returning the per-message execution results.
	SendMsgsAndWaitCommit(ctx context.Context, msgs TrackedMsgs) ([]MsgResult, error)

	// GetMsgResult returns the execution result of a message sent by SendMsgs
	GetMsgResult(ctx context.Context, id MsgID) (MsgResult, error)

	// RegisterMsgEventListener registers a given EventListener to the chain
	RegisterMsgEventListener(MsgEventListener)

	ChainInfo
	IBCQuerier
}

// MsgEventListener is a listener that listens a msg send to the chain
type MsgEventListener interface {
	// OnSentMsg is a callback function that is called when a msg send to the chain
	OnSentMsg(ctx context.Context, msgs []sdk.Msg) error
}

// ChainInfo is an interface to the chain's general information
type ChainInfo interface {
	// ChainID returns ID of the chain
	ChainID() string

	// LatestHeight returns the latest height of the chain
	//
	// NOTE: The returned height does not have to be finalized.
	// If a finalized height is needed, use `Prover.GetLatestFinalizedHeader` instead.
	LatestHeight(ctx context.Context) (ibcexported.Height, error)

	// Timestamp returns the block timestamp
	Timestamp(ctx context.Context, height ibcexported.Height) (time.Time, error)
}

// FinalityAwareChain is ChainInfo + the capability to determine the latest finalized header
type FinalityAwareChain interface {
	ChainInfo

	// GetLatestFinalizedHeader returns the latest finalized header of this chain
	GetLatestFinalizedHeader(ctx context.Context) (latestFinalizedHeader Header, err error)
}

// ChainInfoICS02Querier is ChainInfo + ICS02 querier
type ChainInfoICS02Querier interface {
	ChainInfo
	ICS02Querier
}

// LightClientICS04Querier is LightClient + ICS04 querier
type LightClientICS04Querier interface {
	LightClient
	ICS04Querier
}

// IBCQuerier is an interface to the state of IBC
type IBCQuerier interface {
	ICS02Querier
	ICS03Querier
	ICS04Querier
}

// ICS02Querier is an interface to the state of ICS-02
type ICS02Querier interface {
	// QueryClientConsensusState retrieves the consensus state of the client corresponding
	// to `dstClientConsHeight` on this chain
	QueryClientConsensusState(ctx QueryContext, dstClientConsHeight ibcexported.Height) (*clienttypes.QueryConsensusStateResponse, error)

	// QueryClientState returns the client state of this chain's client for the counterparty chain
	QueryClientState(ctx QueryContext) (*clienttypes.QueryClientStateResponse, error)
}

// ICS03Querier is an interface to the state of ICS-03
type ICS03Querier interface {
	// QueryConnection returns the remote end of a given connection
	QueryConnection(ctx QueryContext, connectionID string) (*conntypes.QueryConnectionResponse, error)
}

// ICS04Querier is an interface to the state of ICS-04
type ICS04Querier interface {
	// QueryChannel returns the channel associated with a channelID
	QueryChannel(ctx QueryContext) (chanRes *chantypes.QueryChannelResponse, err error)

	// QueryPacketCommitments returns an array of packet commitments
	QueryPacketCommitments(ctx QueryContext, paginationParams PageRequest) (*chantypes.QueryPacketCommitmentsResponse, error)

	// QueryUnreceivedPackets returns a list of unrelayed packet commitments
	QueryUnreceivedPackets(ctx QueryContext, seqs []uint64) ([]uint64, error)

	// QueryUnfinalizedRelayPackets returns packets and heights that are sent
	// but not received at the latest finalized block on the counterparty chain
	QueryUnfinalizedRelayPackets(ctx QueryContext, counterparty LightClientICS04Querier) (PacketInfoList, error)

	// QueryPacketAcknowledgements returns an array of packet acks
	QueryPacketAcknowledgements(ctx QueryContext, paginationParams PageRequest) (*chantypes.QueryPacketAcknowledgementsResponse, error)

	// QueryUnreceivedAcknowledgements returns a list of unrelayed packet acks
	QueryUnreceivedAcknowledgements(ctx QueryContext, seqs []uint64) ([]uint64, error)

	// QueryUnfinalizedRelayAcknowledgements returns acks and heights that are
	// received but not acknowledged at the latest finalized block on the
	// counterparty chain
	QueryUnfinalizedRelayAcknowledgements(ctx QueryContext, counterparty LightClientICS04Querier) (PacketInfoList, error)

	// QueryNextSequenceReceive returns the next sequence to be received on the channel
	QueryNextSequenceReceive(ctx QueryContext) (*chantypes.QueryNextSequenceReceiveResponse, error)

	// QueryPacket returns the packet corresponding to a sequence
	QueryPacket(ctx QueryContext, sequence uint64) (*chantypes.Packet, error)

	// QueryPacketReceipt reports whether the packet with the given sequence has been received
	QueryPacketReceipt(ctx QueryContext, sequence uint64) (bool, error)

	// QueryPacketAcknowledgement returns the acknowledgement corresponding to a sequence
	QueryPacketAcknowledgement(ctx QueryContext, sequence uint64) ([]byte, error)
}

// PageRequest carries pagination parameters of a paginated query
type PageRequest struct {
	Offset uint64
	Limit  uint64
}

// QueryContext is a context that contains a height of the target chain for querying states
type QueryContext interface {
	// Context returns `context.Context``
	Context() context.Context

	// Height returns a height of the target chain for querying a state
	Height() ibcexported.Height
}

type queryContext struct {
	ctx    context.Context
	height ibcexported.Height
}

var _ QueryContext = (*queryContext)(nil)

// NewQueryContext returns a new context for querying states
func NewQueryContext(ctx context.Context, height ibcexported.Height) QueryContext {
	return queryContext{ctx: ctx, height: height}
}

// Context returns `context.Context`
func (qc queryContext) Context() context.Context {
	return qc.ctx
}

// Height returns a height of the target chain for querying a state
func (qc queryContext) Height() ibcexported.Height {
	return qc.height
}

func GetChainLogger(chain ChainInfo) *log.RelayLogger {
	return log.GetLogger().
		WithChain(chain.ChainID()).
		WithModule("core.chain")
}

func GetChainPairLogger(src, dst ChainInfo) *log.RelayLogger {
	return log.GetLogger().
		WithChainPair(src.ChainID(), dst.ChainID()).
		WithModule("core.chain")
}
