package core

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"
)

// The functions in this file build the four packet-lifecycle messages. They
// share one shape: prove the relevant state on the chain passed as
// `proofChain` at the height pinned by `ctx`, then assemble the message for
// the counterparty. `ctx.Height()` must be a height that the counterparty's
// on-chain client has already verified; see TrustedProofContext.
//
// The signer is resolved by the caller per invocation and never cached, so a
// key rotation on the target chain takes effect on the next message.

// BuildRecvPacketMsg builds a MsgRecvPacket for delivery to the packet's
// destination chain. The commitment proof is generated on the source chain.
func BuildRecvPacketMsg(ctx QueryContext, src *ProvableChain, packet *PacketInfo, signer sdk.AccAddress) (sdk.Msg, error) {
	proof, err := src.ProvePacket(ctx, PacketProofCommitment, packet.SourcePort, packet.SourceChannel, packet.Sequence)
	if err != nil {
		return nil, err
	}
	if len(proof.Value) == 0 {
		return nil, errorsmod.Wrap(ErrPacketNotFound, fmt.Sprintf("no commitment for packet %s/%s/%d at height %v",
			packet.SourcePort, packet.SourceChannel, packet.Sequence, ctx.Height()))
	}
	return chantypes.NewMsgRecvPacket(packet.Packet, proof.Proof, proof.ProofHeight, signer.String()), nil
}

// BuildAcknowledgementMsg builds a MsgAcknowledgement for delivery to the
// packet's source chain. The acknowledgement proof is generated on the
// destination chain.
func BuildAcknowledgementMsg(ctx QueryContext, dst *ProvableChain, packet *PacketInfo, signer sdk.AccAddress) (sdk.Msg, error) {
	if len(packet.Acknowledgement) == 0 {
		return nil, errorsmod.Wrap(ErrPacketNotFound, fmt.Sprintf("packet %s/%s/%d has no acknowledgement",
			packet.DestinationPort, packet.DestinationChannel, packet.Sequence))
	}
	proof, err := dst.ProvePacket(ctx, PacketProofAcknowledgement, packet.DestinationPort, packet.DestinationChannel, packet.Sequence)
	if err != nil {
		return nil, err
	}
	if len(proof.Value) == 0 {
		return nil, errorsmod.Wrap(ErrPacketNotFound, fmt.Sprintf("no acknowledgement for packet %s/%s/%d at height %v",
			packet.DestinationPort, packet.DestinationChannel, packet.Sequence, ctx.Height()))
	}
	return chantypes.NewMsgAcknowledgement(packet.Packet, packet.Acknowledgement, proof.Proof, proof.ProofHeight, signer.String()), nil
}

// BuildTimeoutMsg builds a MsgTimeout for delivery to the packet's source
// chain. The non-receipt proof is generated on the destination chain: a
// receipt-absence proof for unordered channels, a next-sequence-recv proof
// for ordered ones.
func BuildTimeoutMsg(ctx QueryContext, dst *ProvableChain, packet *PacketInfo, signer sdk.AccAddress) (sdk.Msg, error) {
	proof, nextSeqRecv, err := proveTimeout(ctx, dst, packet)
	if err != nil {
		return nil, err
	}
	return chantypes.NewMsgTimeout(packet.Packet, nextSeqRecv, proof.Proof, proof.ProofHeight, signer.String()), nil
}

// BuildTimeoutOnCloseMsg builds a MsgTimeoutOnClose for delivery to the
// packet's source chain. It additionally proves that the destination end of
// the channel is CLOSED.
func BuildTimeoutOnCloseMsg(ctx QueryContext, dst *ProvableChain, packet *PacketInfo, signer sdk.AccAddress) (sdk.Msg, error) {
	proof, nextSeqRecv, err := proveTimeout(ctx, dst, packet)
	if err != nil {
		return nil, err
	}

	chanRes, err := dst.QueryChannel(ctx)
	if err != nil {
		return nil, err
	}
	if chanRes.Channel.State != chantypes.CLOSED {
		return nil, errorsmod.Wrap(ErrQuery, fmt.Sprintf("channel %s/%s is not closed: state=%s",
			packet.DestinationPort, packet.DestinationChannel, chanRes.Channel.State))
	}
	value, err := dst.Codec().Marshal(chanRes.Channel)
	if err != nil {
		return nil, err
	}
	proofClose, _, err := dst.ProveState(ctx, host.ChannelPath(packet.DestinationPort, packet.DestinationChannel), value)
	if err != nil {
		return nil, err
	}

	return chantypes.NewMsgTimeoutOnCloseWithCounterpartyUpgradeSequence(packet.Packet, nextSeqRecv, proof.Proof, proofClose, proof.ProofHeight, signer.String(), 0), nil
}

func proveTimeout(ctx QueryContext, dst *ProvableChain, packet *PacketInfo) (*PacketProof, uint64, error) {
	if dst.Path().ChannelOrder() == chantypes.ORDERED {
		res, err := dst.QueryNextSequenceReceive(ctx)
		if err != nil {
			return nil, 0, err
		}
		if res.NextSequenceReceive > packet.Sequence {
			return nil, 0, errorsmod.Wrap(ErrPacketNotFound, fmt.Sprintf("packet %s/%s/%d already received: next_sequence_recv=%d",
				packet.DestinationPort, packet.DestinationChannel, packet.Sequence, res.NextSequenceReceive))
		}
		proof, err := dst.ProvePacket(ctx, PacketProofNextSequenceRecv, packet.DestinationPort, packet.DestinationChannel, packet.Sequence)
		if err != nil {
			return nil, 0, err
		}
		return proof, res.NextSequenceReceive, nil
	}

	received, err := dst.QueryPacketReceipt(ctx, packet.Sequence)
	if err != nil {
		return nil, 0, err
	}
	if received {
		return nil, 0, errorsmod.Wrap(ErrPacketNotFound, fmt.Sprintf("packet %s/%s/%d already received",
			packet.DestinationPort, packet.DestinationChannel, packet.Sequence))
	}
	proof, err := dst.ProvePacket(ctx, PacketProofReceiptAbsence, packet.DestinationPort, packet.DestinationChannel, packet.Sequence)
	if err != nil {
		return nil, 0, err
	}
	// the next_sequence_recv field is ignored for unordered channels
	return proof, packet.Sequence, nil
}
