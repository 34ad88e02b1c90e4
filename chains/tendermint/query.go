package tendermint

import (
	"context"
	"fmt"
	"sort"
	"time"

	errorsmod "cosmossdk.io/errors"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	querytypes "github.com/cosmos/cosmos-sdk/types/query"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"

	"github.com/aozora-labs/tsubame-relayer/core"
)

const (
	txSearchPerPage = 100
)

var _ core.IBCQuerier = (*Chain)(nil)

// QueryClientState returns the client state of this chain's client for the
// counterparty chain
func (c *Chain) QueryClientState(ctx core.QueryContext) (*clienttypes.QueryClientStateResponse, error) {
	queryClient := clienttypes.NewQueryClient(c.CLIContext(int64(ctx.Height().GetRevisionHeight())))
	res, err := queryClient.ClientState(ctx.Context(), &clienttypes.QueryClientStateRequest{
		ClientId: c.pathEnd.ClientID,
	})
	if err != nil {
		return nil, errorsmod.Wrapf(core.ErrQuery, "failed to query client state %s: %v", c.pathEnd.ClientID, err)
	}
	return res, nil
}

// QueryClientConsensusState retrieves the consensus state of the client at
// `dstClientConsHeight` on this chain
func (c *Chain) QueryClientConsensusState(ctx core.QueryContext, dstClientConsHeight ibcexported.Height) (*clienttypes.QueryConsensusStateResponse, error) {
	queryClient := clienttypes.NewQueryClient(c.CLIContext(int64(ctx.Height().GetRevisionHeight())))
	res, err := queryClient.ConsensusState(ctx.Context(), &clienttypes.QueryConsensusStateRequest{
		ClientId:       c.pathEnd.ClientID,
		RevisionNumber: dstClientConsHeight.GetRevisionNumber(),
		RevisionHeight: dstClientConsHeight.GetRevisionHeight(),
	})
	if err != nil {
		return nil, errorsmod.Wrapf(core.ErrQuery, "failed to query consensus state %s at %s: %v", c.pathEnd.ClientID, dstClientConsHeight, err)
	}
	return res, nil
}

// QueryConnection returns the remote end of a given connection
func (c *Chain) QueryConnection(ctx core.QueryContext, connectionID string) (*conntypes.QueryConnectionResponse, error) {
	queryClient := conntypes.NewQueryClient(c.CLIContext(int64(ctx.Height().GetRevisionHeight())))
	res, err := queryClient.Connection(ctx.Context(), &conntypes.QueryConnectionRequest{
		ConnectionId: connectionID,
	})
	if err != nil {
		return nil, errorsmod.Wrapf(core.ErrQuery, "failed to query connection %s: %v", connectionID, err)
	}
	return res, nil
}

// QueryChannel returns the channel associated with the path's channelID
func (c *Chain) QueryChannel(ctx core.QueryContext) (*chantypes.QueryChannelResponse, error) {
	queryClient := chantypes.NewQueryClient(c.CLIContext(int64(ctx.Height().GetRevisionHeight())))
	res, err := queryClient.Channel(ctx.Context(), &chantypes.QueryChannelRequest{
		PortId:    c.pathEnd.PortID,
		ChannelId: c.pathEnd.ChannelID,
	})
	if err != nil {
		return nil, errorsmod.Wrapf(core.ErrQuery, "failed to query channel %s/%s: %v", c.pathEnd.PortID, c.pathEnd.ChannelID, err)
	}
	return res, nil
}

// QueryPacketCommitments returns an array of packet commitments
func (c *Chain) QueryPacketCommitments(ctx core.QueryContext, paginationParams core.PageRequest) (*chantypes.QueryPacketCommitmentsResponse, error) {
	queryClient := chantypes.NewQueryClient(c.CLIContext(int64(ctx.Height().GetRevisionHeight())))
	res, err := queryClient.PacketCommitments(ctx.Context(), &chantypes.QueryPacketCommitmentsRequest{
		PortId:    c.pathEnd.PortID,
		ChannelId: c.pathEnd.ChannelID,
		Pagination: &querytypes.PageRequest{
			Offset:     paginationParams.Offset,
			Limit:      paginationParams.Limit,
			CountTotal: true,
		},
	})
	if err != nil {
		return nil, errorsmod.Wrapf(core.ErrQuery, "failed to query packet commitments: %v", err)
	}
	return res, nil
}

// QueryUnreceivedPackets returns a list of unrelayed packet commitments
func (c *Chain) QueryUnreceivedPackets(ctx core.QueryContext, seqs []uint64) ([]uint64, error) {
	if len(seqs) == 0 {
		return nil, nil
	}
	queryClient := chantypes.NewQueryClient(c.CLIContext(int64(ctx.Height().GetRevisionHeight())))
	res, err := queryClient.UnreceivedPackets(ctx.Context(), &chantypes.QueryUnreceivedPacketsRequest{
		PortId:                    c.pathEnd.PortID,
		ChannelId:                 c.pathEnd.ChannelID,
		PacketCommitmentSequences: seqs,
	})
	if err != nil {
		return nil, errorsmod.Wrapf(core.ErrQuery, "failed to query unreceived packets: %v", err)
	}
	return res.Sequences, nil
}

// QueryPacketAcknowledgements returns an array of packet acks
func (c *Chain) QueryPacketAcknowledgements(ctx core.QueryContext, paginationParams core.PageRequest) (*chantypes.QueryPacketAcknowledgementsResponse, error) {
	queryClient := chantypes.NewQueryClient(c.CLIContext(int64(ctx.Height().GetRevisionHeight())))
	res, err := queryClient.PacketAcknowledgements(ctx.Context(), &chantypes.QueryPacketAcknowledgementsRequest{
		PortId:    c.pathEnd.PortID,
		ChannelId: c.pathEnd.ChannelID,
		Pagination: &querytypes.PageRequest{
			Offset:     paginationParams.Offset,
			Limit:      paginationParams.Limit,
			CountTotal: true,
		},
	})
	if err != nil {
		return nil, errorsmod.Wrapf(core.ErrQuery, "failed to query packet acknowledgements: %v", err)
	}
	return res, nil
}

// QueryUnreceivedAcknowledgements returns a list of unrelayed packet acks
func (c *Chain) QueryUnreceivedAcknowledgements(ctx core.QueryContext, seqs []uint64) ([]uint64, error) {
	if len(seqs) == 0 {
		return nil, nil
	}
	queryClient := chantypes.NewQueryClient(c.CLIContext(int64(ctx.Height().GetRevisionHeight())))
	res, err := queryClient.UnreceivedAcks(ctx.Context(), &chantypes.QueryUnreceivedAcksRequest{
		PortId:             c.pathEnd.PortID,
		ChannelId:          c.pathEnd.ChannelID,
		PacketAckSequences: seqs,
	})
	if err != nil {
		return nil, errorsmod.Wrapf(core.ErrQuery, "failed to query unreceived acks: %v", err)
	}
	return res.Sequences, nil
}

// QueryNextSequenceReceive returns the next sequence to be received on the channel
func (c *Chain) QueryNextSequenceReceive(ctx core.QueryContext) (*chantypes.QueryNextSequenceReceiveResponse, error) {
	queryClient := chantypes.NewQueryClient(c.CLIContext(int64(ctx.Height().GetRevisionHeight())))
	res, err := queryClient.NextSequenceReceive(ctx.Context(), &chantypes.QueryNextSequenceReceiveRequest{
		PortId:    c.pathEnd.PortID,
		ChannelId: c.pathEnd.ChannelID,
	})
	if err != nil {
		return nil, errorsmod.Wrapf(core.ErrQuery, "failed to query next sequence receive: %v", err)
	}
	return res, nil
}

// QueryPacketReceipt reports whether the packet with the given sequence has been received
func (c *Chain) QueryPacketReceipt(ctx core.QueryContext, sequence uint64) (bool, error) {
	queryClient := chantypes.NewQueryClient(c.CLIContext(int64(ctx.Height().GetRevisionHeight())))
	res, err := queryClient.PacketReceipt(ctx.Context(), &chantypes.QueryPacketReceiptRequest{
		PortId:    c.pathEnd.PortID,
		ChannelId: c.pathEnd.ChannelID,
		Sequence:  sequence,
	})
	if err != nil {
		return false, errorsmod.Wrapf(core.ErrQuery, "failed to query packet receipt: %v", err)
	}
	return res.Received, nil
}

// QueryPacket reconstructs the packet corresponding to a sequence from the
// send_packet event that emitted it. On-chain state only keeps the packet
// commitment, so the full packet must be recovered from the tx history.
func (c *Chain) QueryPacket(ctx core.QueryContext, sequence uint64) (*chantypes.Packet, error) {
	packets, err := c.findSentPackets(ctx, []uint64{sequence})
	if err != nil {
		return nil, err
	}
	if len(packets) == 0 {
		return nil, errorsmod.Wrapf(core.ErrQuery, "no send_packet event found: port=%s channel=%s sequence=%d", c.pathEnd.PortID, c.pathEnd.ChannelID, sequence)
	}
	return &packets[0].Packet, nil
}

// QueryPacketAcknowledgement reconstructs the acknowledgement corresponding to
// a sequence from the write_acknowledgement event. On-chain state only keeps a
// hash of the acknowledgement.
func (c *Chain) QueryPacketAcknowledgement(ctx core.QueryContext, sequence uint64) ([]byte, error) {
	packets, err := c.findReceivedPackets(ctx, []uint64{sequence})
	if err != nil {
		return nil, err
	}
	if len(packets) == 0 {
		return nil, errorsmod.Wrapf(core.ErrQuery, "no write_acknowledgement event found: port=%s channel=%s sequence=%d", c.pathEnd.PortID, c.pathEnd.ChannelID, sequence)
	}
	return packets[0].Acknowledgement, nil
}

// QueryUnfinalizedRelayPackets returns packets sent from this chain that the
// counterparty has not received as of its latest finalized block.
func (c *Chain) QueryUnfinalizedRelayPackets(ctx core.QueryContext, counterparty core.LightClientICS04Querier) (core.PacketInfoList, error) {
	res, err := c.QueryPacketCommitments(ctx, core.PageRequest{Limit: 1000})
	if err != nil {
		return nil, err
	}
	var seqs []uint64
	for _, commitment := range res.Commitments {
		seqs = append(seqs, commitment.Sequence)
	}
	if len(seqs) == 0 {
		return core.PacketInfoList{}, nil
	}

	cpHeader, err := counterparty.GetLatestFinalizedHeader(ctx.Context())
	if err != nil {
		return nil, err
	}
	cpCtx := core.NewQueryContext(ctx.Context(), cpHeader.GetHeight())

	unreceived, err := counterparty.QueryUnreceivedPackets(cpCtx, seqs)
	if err != nil {
		return nil, err
	}
	if len(unreceived) == 0 {
		return core.PacketInfoList{}, nil
	}

	packets, err := c.findSentPackets(ctx, unreceived)
	if err != nil {
		return nil, err
	}

	cpBlock, err := counterparty.Fetch(ctx.Context(), cpHeader.GetHeight())
	if err != nil {
		return nil, err
	}
	channelClosed, err := counterpartyChannelClosed(cpCtx, counterparty)
	if err != nil {
		return nil, err
	}
	for _, p := range packets {
		p.TimedOut = packetTimedOut(p, cpHeader.GetHeight(), cpBlock.GetTimestamp())
		p.ChannelClosed = channelClosed
	}
	return packets, nil
}

// QueryUnfinalizedRelayAcknowledgements returns acknowledgements written on
// this chain that the counterparty has not processed as of its latest
// finalized block.
func (c *Chain) QueryUnfinalizedRelayAcknowledgements(ctx core.QueryContext, counterparty core.LightClientICS04Querier) (core.PacketInfoList, error) {
	res, err := c.QueryPacketAcknowledgements(ctx, core.PageRequest{Limit: 1000})
	if err != nil {
		return nil, err
	}
	var seqs []uint64
	for _, ack := range res.Acknowledgements {
		seqs = append(seqs, ack.Sequence)
	}
	if len(seqs) == 0 {
		return core.PacketInfoList{}, nil
	}

	cpHeader, err := counterparty.GetLatestFinalizedHeader(ctx.Context())
	if err != nil {
		return nil, err
	}
	cpCtx := core.NewQueryContext(ctx.Context(), cpHeader.GetHeight())

	unreceived, err := counterparty.QueryUnreceivedAcknowledgements(cpCtx, seqs)
	if err != nil {
		return nil, err
	}
	if len(unreceived) == 0 {
		return core.PacketInfoList{}, nil
	}

	return c.findReceivedPackets(ctx, unreceived)
}

// packetTimedOut reports whether a packet can no longer be received on the
// counterparty as of the given finalized height and timestamp
func packetTimedOut(p *core.PacketInfo, cpHeight ibcexported.Height, cpTimestamp time.Time) bool {
	if !p.TimeoutHeight.IsZero() && cpHeight.GTE(p.TimeoutHeight) {
		return true
	}
	if p.TimeoutTimestamp != 0 && !cpTimestamp.Before(time.Unix(0, int64(p.TimeoutTimestamp))) {
		return true
	}
	return false
}

func counterpartyChannelClosed(cpCtx core.QueryContext, counterparty core.LightClientICS04Querier) (bool, error) {
	chanRes, err := counterparty.QueryChannel(cpCtx)
	if err != nil {
		return false, err
	}
	return chanRes.Channel != nil && chanRes.Channel.State == chantypes.CLOSED, nil
}

// findSentPackets searches the tx history for send_packet events of the given
// sequences emitted up to the query height
func (c *Chain) findSentPackets(ctx core.QueryContext, seqs []uint64) (core.PacketInfoList, error) {
	query := fmt.Sprintf(
		"%s.%s='%s' AND %s.%s='%s' AND tx.height<=%d",
		chantypes.EventTypeSendPacket, chantypes.AttributeKeySrcPort, c.pathEnd.PortID,
		chantypes.EventTypeSendPacket, chantypes.AttributeKeySrcChannel, c.pathEnd.ChannelID,
		ctx.Height().GetRevisionHeight(),
	)
	txs, err := c.txSearchAll(ctx.Context(), query)
	if err != nil {
		return nil, err
	}

	version := clienttypes.ParseChainID(c.config.TmChainId)
	wanted := sequenceSet(seqs)
	var packets core.PacketInfoList
	for _, tx := range txs {
		for _, ev := range tx.TxResult.Events {
			if ev.Type != chantypes.EventTypeSendPacket {
				continue
			}
			event, err := parseMsgEventLog(c.codec, ev)
			if err != nil {
				return nil, errorsmod.Wrapf(core.ErrQuery, "failed to parse send_packet event: %v", err)
			}
			sendPacket, ok := event.(*core.EventSendPacket)
			if !ok {
				continue
			}
			if sendPacket.SrcPort != c.pathEnd.PortID || sendPacket.SrcChannel != c.pathEnd.ChannelID {
				continue
			}
			if _, ok := wanted[sendPacket.Sequence]; !ok {
				continue
			}
			packets = append(packets, &core.PacketInfo{
				Packet: chantypes.NewPacket(
					sendPacket.Data,
					sendPacket.Sequence,
					sendPacket.SrcPort,
					sendPacket.SrcChannel,
					c.cpEnd.PortID,
					c.cpEnd.ChannelID,
					sendPacket.TimeoutHeight,
					uint64(sendPacket.TimeoutTimestamp.UnixNano()),
				),
				EventHeight: clienttypes.NewHeight(version, uint64(tx.Height)),
			})
		}
	}
	sortPacketInfoList(packets)
	return packets, nil
}

// findReceivedPackets searches the tx history for recv_packet and
// write_acknowledgement event pairs of the given sequences
func (c *Chain) findReceivedPackets(ctx core.QueryContext, seqs []uint64) (core.PacketInfoList, error) {
	query := fmt.Sprintf(
		"%s.%s='%s' AND %s.%s='%s' AND tx.height<=%d",
		chantypes.EventTypeWriteAck, chantypes.AttributeKeyDstPort, c.pathEnd.PortID,
		chantypes.EventTypeWriteAck, chantypes.AttributeKeyDstChannel, c.pathEnd.ChannelID,
		ctx.Height().GetRevisionHeight(),
	)
	txs, err := c.txSearchAll(ctx.Context(), query)
	if err != nil {
		return nil, err
	}

	version := clienttypes.ParseChainID(c.config.TmChainId)
	wanted := sequenceSet(seqs)
	var packets core.PacketInfoList
	for _, tx := range txs {
		recvPackets := map[uint64]*core.EventRecvPacket{}
		for _, ev := range tx.TxResult.Events {
			if ev.Type != chantypes.EventTypeRecvPacket {
				continue
			}
			event, err := parseMsgEventLog(c.codec, ev)
			if err != nil {
				return nil, errorsmod.Wrapf(core.ErrQuery, "failed to parse recv_packet event: %v", err)
			}
			if recvPacket, ok := event.(*core.EventRecvPacket); ok {
				recvPackets[recvPacket.Sequence] = recvPacket
			}
		}
		for _, ev := range tx.TxResult.Events {
			if ev.Type != chantypes.EventTypeWriteAck {
				continue
			}
			event, err := parseMsgEventLog(c.codec, ev)
			if err != nil {
				return nil, errorsmod.Wrapf(core.ErrQuery, "failed to parse write_acknowledgement event: %v", err)
			}
			writeAck, ok := event.(*core.EventWriteAcknowledgement)
			if !ok {
				continue
			}
			if writeAck.DstPort != c.pathEnd.PortID || writeAck.DstChannel != c.pathEnd.ChannelID {
				continue
			}
			if _, ok := wanted[writeAck.Sequence]; !ok {
				continue
			}
			recvPacket, ok := recvPackets[writeAck.Sequence]
			if !ok {
				return nil, errorsmod.Wrapf(core.ErrQuery, "write_acknowledgement event without matching recv_packet: sequence=%d", writeAck.Sequence)
			}
			packets = append(packets, &core.PacketInfo{
				Packet: chantypes.NewPacket(
					recvPacket.Data,
					recvPacket.Sequence,
					c.cpEnd.PortID,
					c.cpEnd.ChannelID,
					recvPacket.DstPort,
					recvPacket.DstChannel,
					recvPacket.TimeoutHeight,
					uint64(recvPacket.TimeoutTimestamp.UnixNano()),
				),
				Acknowledgement: writeAck.Acknowledgement,
				EventHeight:     clienttypes.NewHeight(version, uint64(tx.Height)),
			})
		}
	}
	sortPacketInfoList(packets)
	return packets, nil
}

func (c *Chain) txSearchAll(ctx context.Context, query string) ([]*coretypes.ResultTx, error) {
	var txs []*coretypes.ResultTx
	perPage := txSearchPerPage
	for page := 1; ; page++ {
		p := page
		res, err := c.client.TxSearch(ctx, query, false, &p, &perPage, "asc")
		if err != nil {
			return nil, errorsmod.Wrapf(core.ErrQuery, "tx search failed: %v", err)
		}
		txs = append(txs, res.Txs...)
		if len(txs) >= res.TotalCount || len(res.Txs) == 0 {
			return txs, nil
		}
	}
}

func sequenceSet(seqs []uint64) map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(seqs))
	for _, seq := range seqs {
		set[seq] = struct{}{}
	}
	return set
}

func sortPacketInfoList(packets core.PacketInfoList) {
	sort.Slice(packets, func(i, j int) bool {
		return packets[i].Sequence < packets[j].Sequence
	})
}
