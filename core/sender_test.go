package core_test

import (
	"context"
	"errors"
	"testing"

	errorsmod "cosmossdk.io/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	"github.com/stretchr/testify/require"

	"github.com/aozora-labs/tsubame-relayer/core"
)

// brokenChain fails every submission with a transport-level error
type brokenChain struct {
	core.Chain
	err error
}

func (c brokenChain) ChainID() string { return "broken" }

func (c brokenChain) SendMsgs(ctx context.Context, msgs core.TrackedMsgs) ([]core.MsgID, error) {
	return nil, c.err
}

func (c brokenChain) SendMsgsAndWaitCommit(ctx context.Context, msgs core.TrackedMsgs) ([]core.MsgResult, error) {
	return nil, c.err
}

func TestCheckTxSender(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	cs, cons, err := env.dst.CreateInitialLightClientState(ctx, nil)
	require.NoError(t, err)
	signer, err := env.src.GetAddress()
	require.NoError(t, err)
	msg, err := clienttypes.NewMsgCreateClient(cs, cons, signer.String())
	require.NoError(t, err)

	sender := core.NewCheckTxSender("test")
	result, err := sender.SendMessage(ctx, env.src, msg)
	require.NoError(t, err)

	// the result only reports mempool acceptance
	ok, reason := result.Status()
	require.True(t, ok)
	require.Empty(t, reason)
	require.True(t, result.BlockHeight().EQ(clienttypes.ZeroHeight()))
	require.Empty(t, result.Events())

	// the execution outcome is available through the embedded message ID
	idHolder, ok := result.(interface{ ID() core.MsgID })
	require.True(t, ok)
	executed, err := env.src.GetMsgResult(ctx, idHolder.ID())
	require.NoError(t, err)
	ok, reason = executed.Status()
	require.True(t, ok, reason)
}

func TestCommitSenderClassifiesTransportError(t *testing.T) {
	ctx := context.Background()
	pc := core.NewProvableChain(brokenChain{err: errors.New("connection refused")}, nil)

	result, err := core.NewCommitSender("test").SendMessage(ctx, pc, nil)
	require.ErrorIs(t, err, core.ErrConnection)
	require.Nil(t, result)
}

func TestCommitSenderKeepsClassifiedError(t *testing.T) {
	ctx := context.Background()
	wrapped := errorsmod.Wrap(core.ErrQuery, "bad request")
	pc := core.NewProvableChain(brokenChain{err: wrapped}, nil)

	result, err := core.NewCommitSender("test").SendMessage(ctx, pc, nil)
	require.ErrorIs(t, err, core.ErrQuery)
	require.NotErrorIs(t, err, core.ErrConnection)
	require.Nil(t, result)
}

func TestCheckTxSenderClassifiesTransportError(t *testing.T) {
	ctx := context.Background()
	pc := core.NewProvableChain(brokenChain{err: errors.New("connection refused")}, nil)

	result, err := core.NewCheckTxSender("test").SendMessage(ctx, pc, nil)
	require.ErrorIs(t, err, core.ErrConnection)
	require.Nil(t, result)
}
