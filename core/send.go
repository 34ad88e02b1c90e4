package core

import (
	"context"
	"fmt"
	"time"

	retry "github.com/avast/retry-go"
)

// Caller-side retry policy. Components below this file never retry; these
// vars are used only by the relay service loop and by utilities explicitly
// documented as retrying.
var (
	rtyAttNum = uint(5)
	rtyAtt    = retry.Attempts(rtyAttNum)
	rtyDel    = retry.Delay(time.Millisecond * 400)
	rtyErr    = retry.LastErrorOnly(true)
)

// GetFinalizedMsgResult is an utility function that waits for the finalization of the message execution and then returns the result.
func GetFinalizedMsgResult(ctx context.Context, chain ProvableChain, msgID MsgID, retryInterval time.Duration, maxRetry uint) (MsgResult, error) {
	var msgRes MsgResult

	if err := retry.Do(func() error {
		// query LFH for each retry because it can proceed.
		lfHeader, err := chain.GetLatestFinalizedHeader(ctx)
		if err != nil {
			return fmt.Errorf("failed to get latest finalized header: %v", err)
		}

		// query MsgResult for each retry because it can be included in a different block because of reorg
		msgRes, err = chain.GetMsgResult(ctx, msgID)
		if err != nil {
			return retry.Unrecoverable(fmt.Errorf("failed to get message result: %v", err))
		} else if ok, failureReason := msgRes.Status(); !ok {
			return retry.Unrecoverable(fmt.Errorf("msg(id=%v) execution failed: %v", msgID, failureReason))
		}

		// check whether the block that includes the message has been finalized, or not
		if msgHeight, lfHeight := msgRes.BlockHeight(), lfHeader.GetHeight(); msgHeight.GT(lfHeight) {
			return fmt.Errorf("msg(id=%v) not finalized: msg.height(%v) > lfh.height(%v)", msgID, msgHeight, lfHeight)
		}

		return nil
	}, retry.Attempts(maxRetry), retry.Delay(retryInterval), retry.Context(ctx), rtyErr); err != nil {
		return nil, err
	}

	return msgRes, nil
}
