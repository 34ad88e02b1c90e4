package core

import (
	"context"
	"fmt"
	"time"

	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"

	"github.com/aozora-labs/tsubame-relayer/log"
)

// CreateClients creates a client on each chain tracking the counterparty and
// records the generated client identifiers in the path config.
func CreateClients(ctx context.Context, pathName string, src, dst *ProvableChain, srcHeight, dstHeight ibcexported.Height) error {
	logger := GetChainPairLogger(src, dst)
	defer logger.TimeTrack(time.Now(), "CreateClients")
	clients := NewRelayMsgs()
	clients.TrackingID = "create-clients"

	srcAddr, err := src.GetAddress()
	if err != nil {
		logger.ErrorContext(ctx, "failed to get address for create client", err)
		return err
	}
	dstAddr, err := dst.GetAddress()
	if err != nil {
		logger.ErrorContext(ctx, "failed to get address for create client", err)
		return err
	}

	{
		cs, cons, err := dst.CreateInitialLightClientState(ctx, dstHeight)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create initial light client state", err)
			return err
		}
		msg, err := clienttypes.NewMsgCreateClient(cs, cons, srcAddr.String())
		if err != nil {
			return fmt.Errorf("failed to create MsgCreateClient: %v", err)
		}
		clients.Src = append(clients.Src, msg)
	}

	{
		cs, cons, err := src.CreateInitialLightClientState(ctx, srcHeight)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create initial light client state", err)
			return err
		}
		msg, err := clienttypes.NewMsgCreateClient(cs, cons, dstAddr.String())
		if err != nil {
			return fmt.Errorf("failed to create MsgCreateClient: %v", err)
		}
		clients.Dst = append(clients.Dst, msg)
	}

	// Send msgs to both chains
	if clients.Ready() {
		clients.Send(ctx, src, dst)
		if clients.Success() {
			logger.InfoContext(ctx, "★ Clients created")
			if err := SyncChainConfigsFromEvents(ctx, pathName, clients.SrcMsgIDs, clients.DstMsgIDs, src, dst); err != nil {
				return err
			}
		}
	}
	return nil
}

// UpdateClients brings both on-chain clients up to the latest finalized
// header of the chain they track.
func UpdateClients(ctx context.Context, src, dst *ProvableChain) error {
	logger := GetClientPairLogger(src, dst)
	defer logger.TimeTrack(time.Now(), "UpdateClients")
	clients := NewRelayMsgs()
	clients.TrackingID = "update-clients"

	// First, update the light clients to the latest header and return the header
	sh, err := NewSyncHeaders(ctx, src, dst)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create sync headers for update client", err)
		return err
	}
	srcUpdateHeaders, dstUpdateHeaders, err := sh.SetupBothHeadersForUpdate(ctx, src, dst)
	if err != nil {
		logger.ErrorContext(ctx, "failed to setup both headers for update client", err)
		return err
	}
	if len(dstUpdateHeaders) > 0 {
		addr, err := src.GetAddress()
		if err != nil {
			return err
		}
		clients.Src = append(clients.Src, src.Path().UpdateClients(dstUpdateHeaders, addr)...)
	}
	if len(srcUpdateHeaders) > 0 {
		addr, err := dst.GetAddress()
		if err != nil {
			return err
		}
		clients.Dst = append(clients.Dst, dst.Path().UpdateClients(srcUpdateHeaders, addr)...)
	}

	// Send msgs to both chains
	if clients.Ready() {
		if clients.Send(ctx, src, dst); clients.Success() {
			logger.InfoContext(ctx, "★ Clients updated")
		}
	}
	return nil
}

func GetClientPairLogger(src, dst Chain) *log.RelayLogger {
	return log.GetLogger().
		WithClientPair(
			src.ChainID(), src.Path().ClientID,
			dst.ChainID(), dst.Path().ClientID,
		).
		WithModule("core.client")
}
