package core

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"

	"github.com/aozora-labs/tsubame-relayer/log"
)

// RelayContext supplies everything one relay call borrows: the two chain
// handles and the message sender. Relayers own no chain state of their own;
// two relayers may share a context without coordination because every call
// resolves heights and signers afresh.
type RelayContext struct {
	src    *ProvableChain
	dst    *ProvableChain
	sender MessageSender
}

// NewRelayContext returns a new RelayContext instance
func NewRelayContext(src, dst *ProvableChain, sender MessageSender) *RelayContext {
	return &RelayContext{src: src, dst: dst, sender: sender}
}

// SourceChain returns the chain the packet was sent from
func (rc *RelayContext) SourceChain() *ProvableChain {
	return rc.src
}

// DestinationChain returns the chain the packet is addressed to
func (rc *RelayContext) DestinationChain() *ProvableChain {
	return rc.dst
}

// Sender returns the message sender
func (rc *RelayContext) Sender() MessageSender {
	return rc.sender
}

// PacketRelayer relays a single packet event end to end: resolve the height
// the verifying chain already trusts, build the message with a proof at that
// height, and submit it exactly once through the sender. No step is retried
// internally; on error, nothing has been submitted unless the error came out
// of the sender itself.
type PacketRelayer interface {
	RelayPacket(ctx context.Context, rc *RelayContext, packet *PacketInfo) (MsgResult, error)
}

// TrustedProofContext returns a QueryContext pinned to the `proofChain`
// height that `verifier`'s on-chain client has already verified. A proof
// generated at this height is acceptable to the verifier without a client
// update. Note that this is taken from the verifier's client state, never
// from the proof chain's self-reported latest height. The trusted height is
// cross-checked against `proofChain`: a client that trusts a height the proof
// chain has not produced points at a different chain, and no proof query at
// that height can succeed.
func TrustedProofContext(ctx context.Context, proofChain, verifier *ProvableChain) (QueryContext, error) {
	latest, err := verifier.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	res, err := verifier.QueryClientState(NewQueryContext(ctx, latest))
	if err != nil {
		return nil, err
	}
	cs, err := clienttypes.UnpackClientState(res.ClientState)
	if err != nil {
		return nil, err
	}
	trusted := cs.GetLatestHeight()
	proofLatest, err := proofChain.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	if proofLatest.LT(trusted) {
		return nil, errorsmod.Wrapf(ErrHeightNotAvailable,
			"client %s on %s trusts height %v, which is above the latest height %v of %s",
			verifier.Path().ClientID, verifier.ChainID(), trusted, proofLatest, proofChain.ChainID())
	}
	return NewQueryContext(ctx, trusted), nil
}

// ReceivePacketRelayer relays a send-packet event: the commitment is proven
// on the source chain and MsgRecvPacket is delivered to the destination.
type ReceivePacketRelayer struct{}

var _ PacketRelayer = (*ReceivePacketRelayer)(nil)

func (r ReceivePacketRelayer) RelayPacket(ctx context.Context, rc *RelayContext, packet *PacketInfo) (MsgResult, error) {
	src, dst := rc.SourceChain(), rc.DestinationChain()
	logger := getPacketLogger(src, packet)

	qctx, err := TrustedProofContext(ctx, src, dst)
	if err != nil {
		logger.ErrorContext(ctx, "failed to resolve the trusted proof height", err)
		return nil, err
	}
	signer, err := dst.GetAddress()
	if err != nil {
		return nil, err
	}
	msg, err := BuildRecvPacketMsg(qctx, src, packet, signer)
	if err != nil {
		logger.ErrorContext(ctx, "failed to build MsgRecvPacket", err, "proof_height", qctx.Height())
		return nil, err
	}
	result, err := rc.Sender().SendMessage(ctx, dst, msg)
	if err != nil {
		logger.ErrorContext(ctx, "failed to deliver MsgRecvPacket", err)
		return result, err
	}
	logger.InfoContext(ctx, "relayed packet", "kind", "recv", "proof_height", qctx.Height())
	return result, nil
}

// AcknowledgementPacketRelayer relays a write-acknowledgement event: the ack
// is proven on the destination chain and MsgAcknowledgement is delivered to
// the source.
type AcknowledgementPacketRelayer struct{}

var _ PacketRelayer = (*AcknowledgementPacketRelayer)(nil)

func (r AcknowledgementPacketRelayer) RelayPacket(ctx context.Context, rc *RelayContext, packet *PacketInfo) (MsgResult, error) {
	src, dst := rc.SourceChain(), rc.DestinationChain()
	logger := getPacketLogger(src, packet)

	qctx, err := TrustedProofContext(ctx, dst, src)
	if err != nil {
		logger.ErrorContext(ctx, "failed to resolve the trusted proof height", err)
		return nil, err
	}
	signer, err := src.GetAddress()
	if err != nil {
		return nil, err
	}
	msg, err := BuildAcknowledgementMsg(qctx, dst, packet, signer)
	if err != nil {
		logger.ErrorContext(ctx, "failed to build MsgAcknowledgement", err, "proof_height", qctx.Height())
		return nil, err
	}
	result, err := rc.Sender().SendMessage(ctx, src, msg)
	if err != nil {
		logger.ErrorContext(ctx, "failed to deliver MsgAcknowledgement", err)
		return result, err
	}
	logger.InfoContext(ctx, "relayed packet", "kind", "ack", "proof_height", qctx.Height())
	return result, nil
}

// TimeoutPacketRelayer relays a timed-out packet: non-receipt is proven on
// the destination chain and MsgTimeout is delivered to the source. When the
// destination end of the channel is observed CLOSED, MsgTimeoutOnClose is
// sent instead.
type TimeoutPacketRelayer struct{}

var _ PacketRelayer = (*TimeoutPacketRelayer)(nil)

func (r TimeoutPacketRelayer) RelayPacket(ctx context.Context, rc *RelayContext, packet *PacketInfo) (MsgResult, error) {
	src, dst := rc.SourceChain(), rc.DestinationChain()
	logger := getPacketLogger(src, packet)

	qctx, err := TrustedProofContext(ctx, dst, src)
	if err != nil {
		logger.ErrorContext(ctx, "failed to resolve the trusted proof height", err)
		return nil, err
	}
	signer, err := src.GetAddress()
	if err != nil {
		return nil, err
	}

	var msg sdk.Msg
	kind := "timeout"
	if packet.ChannelClosed {
		kind = "timeout_on_close"
		msg, err = BuildTimeoutOnCloseMsg(qctx, dst, packet, signer)
	} else {
		msg, err = BuildTimeoutMsg(qctx, dst, packet, signer)
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to build the timeout msg", err, "kind", kind, "proof_height", qctx.Height())
		return nil, err
	}

	result, err := rc.Sender().SendMessage(ctx, src, msg)
	if err != nil {
		logger.ErrorContext(ctx, "failed to deliver the timeout msg", err, "kind", kind)
		return result, err
	}
	logger.InfoContext(ctx, "relayed packet", "kind", kind, "proof_height", qctx.Height())
	return result, nil
}

func getPacketLogger(src ChainInfo, packet *PacketInfo) *log.RelayLogger {
	return log.GetLogger().
		WithPacket(src.ChainID(), packet.SourcePort, packet.SourceChannel, packet.Sequence).
		WithModule("core.relay")
}
