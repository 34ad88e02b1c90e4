package core

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"

	"github.com/aozora-labs/tsubame-relayer/log"
)

// CheckUpdateClientMsgs screens the client updates bound for `host` against
// the canonical history of `tracked`, the chain the client follows. The first
// conflicting update freezes the client: its evidence is submitted back to
// `host` and ErrMisbehaviour is returned so the caller aborts the round.
func CheckUpdateClientMsgs(ctx context.Context, tracked, host *ProvableChain, msgs []sdk.Msg) error {
	for _, msg := range msgs {
		mu, ok := msg.(*clienttypes.MsgUpdateClient)
		if !ok {
			continue
		}
		cm, err := clienttypes.UnpackClientMessage(mu.ClientMessage)
		if err != nil {
			return err
		}
		header, ok := cm.(Header)
		if !ok {
			// misbehaviour submissions and non-header client messages
			// are not update events
			continue
		}
		update := UpdateClientEvent{
			ClientID:        mu.ClientId,
			ConsensusHeight: clienttypes.NewHeight(header.GetHeight().GetRevisionNumber(), header.GetHeight().GetRevisionHeight()),
			Header:          header,
		}
		evidence, err := CheckForMisbehaviour(ctx, tracked, host, update)
		if err != nil {
			return err
		}
		if evidence == nil {
			continue
		}
		if _, err := SubmitMisbehaviour(ctx, host, mu.ClientId, evidence, NewCommitSender("misbehaviour")); err != nil {
			return err
		}
		return errorsmod.Wrapf(ErrMisbehaviour, "client %s on %s frozen at height %v", mu.ClientId, host.ChainID(), update.ConsensusHeight)
	}
	return nil
}

// CheckForMisbehaviour hands a client update observed on `host` to the light
// client of the tracked chain. `tracked` is the chain whose canonical history
// the update claims to extend. A nil evidence means the update is consistent;
// evidence is returned without being submitted anywhere.
func CheckForMisbehaviour(ctx context.Context, tracked, host *ProvableChain, update UpdateClientEvent) (*MisbehaviourEvidence, error) {
	logger := getMisbehaviourLogger(tracked, host)

	latest, err := host.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	res, err := host.QueryClientState(NewQueryContext(ctx, latest))
	if err != nil {
		return nil, err
	}
	cs, err := clienttypes.UnpackClientState(res.ClientState)
	if err != nil {
		return nil, err
	}

	evidence, err := tracked.CheckMisbehaviour(ctx, update, cs)
	if err != nil {
		return nil, err
	}
	if evidence != nil {
		logger.ErrorContext(ctx, "conflicting header detected",
			errorsmod.Wrapf(ErrMisbehaviour, "client %s, height %v", update.ClientID, update.ConsensusHeight),
		)
	}
	return evidence, nil
}

// SubmitMisbehaviour freezes the client on `host` by submitting the evidence
// as a client message.
func SubmitMisbehaviour(ctx context.Context, host *ProvableChain, clientID string, evidence *MisbehaviourEvidence, sender MessageSender) (MsgResult, error) {
	signer, err := host.GetAddress()
	if err != nil {
		return nil, err
	}
	msg, err := clienttypes.NewMsgUpdateClient(clientID, evidence.Misbehaviour, signer.String())
	if err != nil {
		return nil, err
	}
	return sender.SendMessage(ctx, host, msg)
}

func getMisbehaviourLogger(tracked, host Chain) *log.RelayLogger {
	return log.GetLogger().
		WithChainPair(tracked.ChainID(), host.ChainID()).
		WithModule("core.misbehaviour")
}
