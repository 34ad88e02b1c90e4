package core

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
)

// MessageSender submits a single message to a target chain and interprets the
// outcome. Implementations never retry; a failed submission is reported once
// and the caller decides what to do with it.
type MessageSender interface {
	SendMessage(ctx context.Context, target *ProvableChain, msg sdk.Msg) (MsgResult, error)
}

// commitSender waits until the message is included in a block and checks its
// execution result. A chain-rejected message surfaces as ErrTxFailure with
// the chain-reported reason; transport failures surface as ErrConnection so
// that callers can distinguish retryable submissions.
type commitSender struct {
	trackingID string
}

// NewCommitSender returns a MessageSender that waits for block inclusion
func NewCommitSender(trackingID string) MessageSender {
	return commitSender{trackingID: trackingID}
}

func (s commitSender) SendMessage(ctx context.Context, target *ProvableChain, msg sdk.Msg) (MsgResult, error) {
	results, err := target.SendMsgsAndWaitCommit(ctx, NewTrackedMsgs([]sdk.Msg{msg}, s.trackingID))
	if err != nil {
		if IsRelayerError(err) {
			return nil, err
		}
		return nil, errorsmod.Wrap(ErrConnection, err.Error())
	}
	if len(results) != 1 {
		return nil, errorsmod.Wrap(ErrConnection, fmt.Sprintf("chain %s returned %d results for 1 msg", target.ChainID(), len(results)))
	}
	result := results[0]
	if ok, reason := result.Status(); !ok {
		return result, errorsmod.Wrap(ErrTxFailure, fmt.Sprintf("msg 0 rejected by %s: %s", target.ChainID(), reason))
	}
	return result, nil
}

// checkTxSender returns as soon as the target chain accepts the message into
// its mempool. The returned result carries no execution outcome; callers
// poll Chain.GetMsgResult with the embedded message ID.
type checkTxSender struct {
	trackingID string
}

// NewCheckTxSender returns a MessageSender that only waits for mempool acceptance
func NewCheckTxSender(trackingID string) MessageSender {
	return checkTxSender{trackingID: trackingID}
}

func (s checkTxSender) SendMessage(ctx context.Context, target *ProvableChain, msg sdk.Msg) (MsgResult, error) {
	ids, err := target.SendMsgs(ctx, NewTrackedMsgs([]sdk.Msg{msg}, s.trackingID))
	if err != nil {
		if IsRelayerError(err) {
			return nil, err
		}
		return nil, errorsmod.Wrap(ErrConnection, err.Error())
	}
	if len(ids) != 1 {
		return nil, errorsmod.Wrap(ErrConnection, fmt.Sprintf("chain %s returned %d msg IDs for 1 msg", target.ChainID(), len(ids)))
	}
	return &pendingMsgResult{id: ids[0]}, nil
}

// pendingMsgResult is returned by checkTxSender. Status reports acceptance
// into the mempool only, not execution.
type pendingMsgResult struct {
	id MsgID
}

var _ MsgResult = (*pendingMsgResult)(nil)

func (r *pendingMsgResult) ID() MsgID { return r.id }

func (r *pendingMsgResult) BlockHeight() clienttypes.Height { return clienttypes.ZeroHeight() }

func (r *pendingMsgResult) Status() (bool, string) { return true, "" }

func (r *pendingMsgResult) Events() []MsgEventLog { return nil }
