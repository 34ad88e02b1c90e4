package core

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/gogoproto/proto"
)

// RelayMsgs contains the msgs that need to be sent to both a src and dst chain
// after a given relay round. MaxTxSize and MaxMsgLength are ignored if they are
// set to zero.
type RelayMsgs struct {
	Src          []sdk.Msg `json:"src"`
	Dst          []sdk.Msg `json:"dst"`
	MaxTxSize    uint64    `json:"max_tx_size"`    // maximum permitted size of the msgs in a bundled relay transaction
	MaxMsgLength uint64    `json:"max_msg_length"` // maximum amount of messages in a bundled relay transaction

	// TrackingID tags the batches handed to the chains
	TrackingID string `json:"tracking_id"`

	Succeeded bool `json:"success"`

	// message IDs of the batches, populated by Send
	SrcMsgIDs []MsgID `json:"-"`
	DstMsgIDs []MsgID `json:"-"`
}

// NewRelayMsgs returns an initialized version of relay messages
func NewRelayMsgs() *RelayMsgs {
	return &RelayMsgs{Src: []sdk.Msg{}, Dst: []sdk.Msg{}, Succeeded: false}
}

// Ready returns true if there are messages to relay
func (r *RelayMsgs) Ready() bool {
	if r == nil {
		return false
	}

	if len(r.Src) == 0 && len(r.Dst) == 0 {
		return false
	}
	return true
}

// Success returns the success var
func (r *RelayMsgs) Success() bool {
	return r.Succeeded
}

func (r *RelayMsgs) IsMaxTx(msgLen, txSize uint64) bool {
	return (r.MaxMsgLength != 0 && msgLen > r.MaxMsgLength) ||
		(r.MaxTxSize != 0 && txSize > r.MaxTxSize)
}

// Merge merges the argument into the receiver
func (r *RelayMsgs) Merge(other *RelayMsgs) {
	r.Src = append(r.Src, other.Src...)
	r.Dst = append(r.Dst, other.Dst...)
	if other.MaxTxSize != 0 {
		r.MaxTxSize = other.MaxTxSize
	}
	if other.MaxMsgLength != 0 {
		r.MaxMsgLength = other.MaxMsgLength
	}
	if other.TrackingID != "" {
		r.TrackingID = other.TrackingID
	}
}

// Send sends the messages to their respective chains in batches that respect
// MaxTxSize and MaxMsgLength. It sets Succeeded and collects the message IDs
// returned by the chains.
func (r *RelayMsgs) Send(ctx context.Context, src, dst Chain) {
	r.Succeeded = true
	r.SrcMsgIDs = r.sendBatches(ctx, src, r.Src)
	r.DstMsgIDs = r.sendBatches(ctx, dst, r.Dst)
}

func (r *RelayMsgs) sendBatches(ctx context.Context, chain Chain, allMsgs []sdk.Msg) []MsgID {
	logger := GetChainLogger(chain)

	var (
		msgLen, txSize uint64
		batch          []sdk.Msg
		msgIDs         []MsgID
	)
	send := func() {
		if len(batch) == 0 {
			return
		}
		ids, err := chain.SendMsgs(ctx, NewTrackedMsgs(batch, r.TrackingID))
		if err != nil {
			logger.ErrorContext(ctx, "failed to send msgs", err, "batch_size", len(batch))
			r.Succeeded = false
			ids = make([]MsgID, len(batch))
		}
		msgIDs = append(msgIDs, ids...)
		batch = nil
	}

	for _, msg := range allMsgs {
		bz, err := proto.Marshal(msg)
		if err != nil {
			panic(err)
		}

		msgLen++
		txSize += uint64(len(bz))

		if r.IsMaxTx(msgLen, txSize) {
			send()
			msgLen, txSize = 1, uint64(len(bz))
		}
		batch = append(batch, msg)
	}
	send()

	return msgIDs
}
