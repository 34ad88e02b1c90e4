package core

import (
	"context"
	"time"

	"github.com/cosmos/cosmos-sdk/codec"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
)

// Prover represents a prover that supports generating a commitment proof
type Prover interface {
	// Init initializes the chain
	Init(homePath string, timeout time.Duration, codec codec.ProtoCodecMarshaler, debug bool) error

	// SetRelayInfo sets source's path and counterparty's info to the chain
	SetRelayInfo(path *PathEnd, counterparty *ProvableChain, counterpartyPath *PathEnd) error

	// SetupForRelay performs chain-specific setup before starting the relay
	SetupForRelay(ctx context.Context) error

	LightClient
	StateProver
}

// StateProver provides a generic way to generate existence proofs of the chain's state
type StateProver interface {
	// ProveState returns a proof of an IBC state specified by `path` and `value`.
	// The returned height is the one to give as the proof height of the messages
	// that carry the proof.
	ProveState(ctx QueryContext, path string, value []byte) ([]byte, clienttypes.Height, error)

	// ProvePacket returns a proof of a packet-lifecycle state. For existence
	// kinds, the returned proof commits to `Value`; for PacketProofReceiptAbsence
	// it proves that no receipt has been written and `Value` is nil.
	ProvePacket(ctx QueryContext, kind PacketProofType, portID, channelID string, sequence uint64) (*PacketProof, error)

	// ProveHostConsensusState returns a proof of the consensus state of the host chain
	ProveHostConsensusState(ctx QueryContext, height ibcexported.Height, consensusState ibcexported.ConsensusState) ([]byte, error)
}

// LightClient provides the light client functionality for a single chain:
// header verification, minimal update-set construction, misbehaviour
// detection and raw block access.
//
// Implementations advance their trusted view atomically: when two
// HeaderAndMinimalSet calls race, the loser observes either the state before
// or after the winner's full advancement, never a partial one.
type LightClient interface {
	// GetLatestFinalizedHeader returns the latest finalized header of this chain
	GetLatestFinalizedHeader(ctx context.Context) (latestFinalizedHeader Header, err error)

	// CreateInitialLightClientState returns the client and consensus states
	// for bootstrapping an on-chain client of this chain. If `height` is nil,
	// the latest finalized height is used.
	CreateInitialLightClientState(ctx context.Context, height ibcexported.Height) (ibcexported.ClientState, ibcexported.ConsensusState, error)

	// SetupHeadersForUpdate creates the headers that update the counterparty's
	// on-chain client from its current trusted height up to
	// `latestFinalizedHeader`, ordered by height. The set is minimal: only
	// the headers required to keep every adjacent pair verifiable are included.
	SetupHeadersForUpdate(ctx context.Context, counterparty ChainInfoICS02Querier, latestFinalizedHeader Header) ([]Header, error)

	// HeaderAndMinimalSet verifies the header at `target` against the state
	// trusted at `trusted` and returns it together with the minimal set of
	// supporting headers. Returns ErrInsufficientTrust when no verifiable
	// path exists and ErrExpiredClient when `cs` can no longer be updated.
	HeaderAndMinimalSet(ctx context.Context, trusted, target ibcexported.Height, cs ibcexported.ClientState) (*VerifiedHeader, error)

	// Verify checks that the block at `target` is verifiable from `trusted`
	// without altering any trusted state.
	Verify(ctx context.Context, trusted, target ibcexported.Height, cs ibcexported.ClientState) (*VerifiedBlock, error)

	// CheckMisbehaviour inspects a client update observed on the counterparty
	// chain and returns evidence iff the update conflicts with this chain's
	// canonical history. A nil evidence means the update is consistent.
	CheckMisbehaviour(ctx context.Context, update UpdateClientEvent, cs ibcexported.ClientState) (*MisbehaviourEvidence, error)

	// Fetch returns the raw light block at `height`. Returns
	// ErrHeightNotAvailable when the block has been pruned or not yet produced.
	Fetch(ctx context.Context, height ibcexported.Height) (LightBlock, error)

	// CheckRefreshRequired returns true if the on-chain client needs to be
	// refreshed to stay within its trusting period
	CheckRefreshRequired(ctx context.Context, counterparty ChainInfoICS02Querier) (bool, error)
}

// Header is an update message of an on-chain light client
type Header interface {
	ibcexported.ClientMessage

	// GetHeight returns the height of the header
	GetHeight() ibcexported.Height
}

// LightBlock is a block summary sufficient for light verification
type LightBlock interface {
	// GetHeight returns the height of the block
	GetHeight() ibcexported.Height

	// GetTimestamp returns the block timestamp
	GetTimestamp() time.Time
}

// VerifiedHeader is a verified target header along with the minimal set of
// supporting headers that make the trust chain from the trusted height to the
// target contiguous. Supporting headers are ordered by height and all precede
// the target.
type VerifiedHeader struct {
	Target     Header
	Supporting []Header
}

// Headers returns all headers in submission order
func (vh *VerifiedHeader) Headers() []Header {
	return append(append([]Header{}, vh.Supporting...), vh.Target)
}

// VerifiedBlock is the result of a read-only verification
type VerifiedBlock struct {
	Target     LightBlock
	Supporting []LightBlock
}

// UpdateClientEvent is a client update observed in an on-chain event
type UpdateClientEvent struct {
	ClientID        string
	ConsensusHeight clienttypes.Height
	Header          Header
}

// MisbehaviourEvidence is the proof that two conflicting, validly-signed
// headers exist for the same height
type MisbehaviourEvidence struct {
	// Misbehaviour is the message to submit to the on-chain client to freeze it
	Misbehaviour ibcexported.ClientMessage

	// ConflictingHeader is the header that diverges from the canonical chain
	ConflictingHeader Header
}

// PacketProofType selects the packet-lifecycle state to prove
type PacketProofType int

const (
	// PacketProofCommitment proves that a packet commitment exists
	PacketProofCommitment PacketProofType = iota + 1

	// PacketProofAcknowledgement proves that an acknowledgement has been written
	PacketProofAcknowledgement

	// PacketProofReceiptAbsence proves that no packet receipt has been written
	PacketProofReceiptAbsence

	// PacketProofNextSequenceRecv proves the next receive sequence of an ordered channel
	PacketProofNextSequenceRecv
)

func (t PacketProofType) String() string {
	switch t {
	case PacketProofCommitment:
		return "commitment"
	case PacketProofAcknowledgement:
		return "acknowledgement"
	case PacketProofReceiptAbsence:
		return "receipt_absence"
	case PacketProofNextSequenceRecv:
		return "next_sequence_recv"
	default:
		return "unknown"
	}
}

// PacketProof is a commitment proof of a packet-lifecycle state
type PacketProof struct {
	// Value is the proven state: a packet commitment, an acknowledgement or
	// a next-sequence value. Nil for absence proofs.
	Value []byte

	// Proof is the opaque commitment proof
	Proof []byte

	// ProofHeight is the height at which the proof was generated
	ProofHeight clienttypes.Height
}
