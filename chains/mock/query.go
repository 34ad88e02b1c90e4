package mock

import (
	"sort"

	errorsmod "cosmossdk.io/errors"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"

	"github.com/aozora-labs/tsubame-relayer/core"
)

var _ core.IBCQuerier = (*Chain)(nil)

func (c *Chain) QueryClientState(ctx core.QueryContext) (*clienttypes.QueryClientStateResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	height, ok := c.clientHeights[c.pathEnd.ClientID]
	if !ok {
		return nil, errorsmod.Wrapf(core.ErrQuery, "client %s not found", c.pathEnd.ClientID)
	}
	cs := &ClientState{LatestHeight: &height}
	anyClientState, err := codectypes.NewAnyWithValue(cs)
	if err != nil {
		return nil, err
	}
	bz, err := c.codec.Marshal(cs)
	if err != nil {
		return nil, err
	}
	return &clienttypes.QueryClientStateResponse{
		ClientState: anyClientState,
		Proof:       makeProof(bz),
		ProofHeight: toHeight(ctx.Height()),
	}, nil
}

func (c *Chain) QueryClientConsensusState(ctx core.QueryContext, dstClientConsHeight ibcexported.Height) (*clienttypes.QueryConsensusStateResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cons, ok := c.clientCons[c.pathEnd.ClientID]
	if !ok {
		return nil, errorsmod.Wrapf(core.ErrQuery, "client %s not found", c.pathEnd.ClientID)
	}
	ts, ok := cons[dstClientConsHeight.GetRevisionHeight()]
	if !ok {
		return nil, errorsmod.Wrapf(core.ErrQuery, "consensus state of client %s at %s not found", c.pathEnd.ClientID, dstClientConsHeight)
	}
	consState := &ConsensusState{Timestamp: ts}
	anyConsState, err := codectypes.NewAnyWithValue(consState)
	if err != nil {
		return nil, err
	}
	bz, err := c.codec.Marshal(consState)
	if err != nil {
		return nil, err
	}
	return &clienttypes.QueryConsensusStateResponse{
		ConsensusState: anyConsState,
		Proof:          makeProof(bz),
		ProofHeight:    toHeight(ctx.Height()),
	}, nil
}

func (c *Chain) QueryConnection(ctx core.QueryContext, connectionID string) (*conntypes.QueryConnectionResponse, error) {
	connection := conntypes.NewConnectionEnd(
		conntypes.OPEN,
		c.pathEnd.ClientID,
		conntypes.NewCounterparty(c.cpEnd.ClientID, c.cpEnd.ConnectionID, commitmenttypes.NewMerklePrefix([]byte("ibc"))),
		[]*conntypes.Version{conntypes.DefaultIBCVersion},
		0,
	)
	bz, err := c.codec.Marshal(&connection)
	if err != nil {
		return nil, err
	}
	return &conntypes.QueryConnectionResponse{
		Connection:  &connection,
		Proof:       makeProof(bz),
		ProofHeight: toHeight(ctx.Height()),
	}, nil
}

func (c *Chain) QueryChannel(ctx core.QueryContext) (*chantypes.QueryChannelResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	channel := c.channelEndLocked()
	bz, err := c.codec.Marshal(&channel)
	if err != nil {
		return nil, err
	}
	return &chantypes.QueryChannelResponse{
		Channel:     &channel,
		Proof:       makeProof(bz),
		ProofHeight: toHeight(ctx.Height()),
	}, nil
}

func (c *Chain) QueryPacketCommitments(ctx core.QueryContext, paginationParams core.PageRequest) (*chantypes.QueryPacketCommitmentsResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	height := ctx.Height().GetRevisionHeight()
	var commitments []*chantypes.PacketState
	for seq, p := range c.sentPackets {
		path := host.PacketCommitmentPath(p.SourcePort, p.SourceChannel, seq)
		value, exists := c.stateAtLocked(path, height)
		if !exists {
			continue
		}
		commitments = append(commitments, &chantypes.PacketState{
			PortId:    p.SourcePort,
			ChannelId: p.SourceChannel,
			Sequence:  seq,
			Data:      value,
		})
	}
	sort.Slice(commitments, func(i, j int) bool {
		return commitments[i].Sequence < commitments[j].Sequence
	})
	return &chantypes.QueryPacketCommitmentsResponse{
		Commitments: commitments,
		Height:      toHeight(ctx.Height()),
	}, nil
}

func (c *Chain) QueryUnreceivedPackets(ctx core.QueryContext, seqs []uint64) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	height := ctx.Height().GetRevisionHeight()
	var unreceived []uint64
	for _, seq := range seqs {
		path := host.PacketReceiptPath(c.pathEnd.PortID, c.pathEnd.ChannelID, seq)
		if _, exists := c.stateAtLocked(path, height); !exists {
			unreceived = append(unreceived, seq)
		}
	}
	return unreceived, nil
}

func (c *Chain) QueryPacketAcknowledgements(ctx core.QueryContext, paginationParams core.PageRequest) (*chantypes.QueryPacketAcknowledgementsResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	height := ctx.Height().GetRevisionHeight()
	var acks []*chantypes.PacketState
	for seq, p := range c.recvPackets {
		path := host.PacketAcknowledgementPath(p.DestinationPort, p.DestinationChannel, seq)
		value, exists := c.stateAtLocked(path, height)
		if !exists {
			continue
		}
		acks = append(acks, &chantypes.PacketState{
			PortId:    p.DestinationPort,
			ChannelId: p.DestinationChannel,
			Sequence:  seq,
			Data:      value,
		})
	}
	sort.Slice(acks, func(i, j int) bool {
		return acks[i].Sequence < acks[j].Sequence
	})
	return &chantypes.QueryPacketAcknowledgementsResponse{
		Acknowledgements: acks,
		Height:           toHeight(ctx.Height()),
	}, nil
}

func (c *Chain) QueryUnreceivedAcknowledgements(ctx core.QueryContext, seqs []uint64) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	height := ctx.Height().GetRevisionHeight()
	var unreceived []uint64
	for _, seq := range seqs {
		path := host.PacketCommitmentPath(c.pathEnd.PortID, c.pathEnd.ChannelID, seq)
		if _, exists := c.stateAtLocked(path, height); exists {
			unreceived = append(unreceived, seq)
		}
	}
	return unreceived, nil
}

func (c *Chain) QueryNextSequenceReceive(ctx core.QueryContext) (*chantypes.QueryNextSequenceReceiveResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bz := sdkUint64ToBigEndian(c.nextSeqRecv)
	return &chantypes.QueryNextSequenceReceiveResponse{
		NextSequenceReceive: c.nextSeqRecv,
		Proof:               makeProof(bz),
		ProofHeight:         toHeight(ctx.Height()),
	}, nil
}

func (c *Chain) QueryPacket(ctx core.QueryContext, sequence uint64) (*chantypes.Packet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.sentPackets[sequence]
	if !ok || p.EventHeight.GetRevisionHeight() > ctx.Height().GetRevisionHeight() {
		return nil, errorsmod.Wrapf(core.ErrQuery, "packet sequence %d not found", sequence)
	}
	packet := p.Packet
	return &packet, nil
}

func (c *Chain) QueryPacketReceipt(ctx core.QueryContext, sequence uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path := host.PacketReceiptPath(c.pathEnd.PortID, c.pathEnd.ChannelID, sequence)
	_, exists := c.stateAtLocked(path, ctx.Height().GetRevisionHeight())
	return exists, nil
}

func (c *Chain) QueryPacketAcknowledgement(ctx core.QueryContext, sequence uint64) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.recvPackets[sequence]
	if !ok || p.EventHeight.GetRevisionHeight() > ctx.Height().GetRevisionHeight() {
		return nil, errorsmod.Wrapf(core.ErrQuery, "acknowledgement for sequence %d not found", sequence)
	}
	return p.Acknowledgement, nil
}

func (c *Chain) QueryUnfinalizedRelayPackets(ctx core.QueryContext, counterparty core.LightClientICS04Querier) (core.PacketInfoList, error) {
	commitments, err := c.QueryPacketCommitments(ctx, core.PageRequest{Limit: 1000})
	if err != nil {
		return nil, err
	}
	var seqs []uint64
	for _, commitment := range commitments.Commitments {
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

	cpBlock, err := counterparty.Fetch(ctx.Context(), cpHeader.GetHeight())
	if err != nil {
		return nil, err
	}
	cpChannel, err := counterparty.QueryChannel(cpCtx)
	if err != nil {
		return nil, err
	}
	channelClosed := cpChannel.Channel != nil && cpChannel.Channel.State == chantypes.CLOSED

	c.mu.Lock()
	defer c.mu.Unlock()
	var packets core.PacketInfoList
	for _, seq := range unreceived {
		p, ok := c.sentPackets[seq]
		if !ok {
			continue
		}
		info := *p
		info.TimedOut = packetTimedOut(&info, cpHeader.GetHeight(), cpBlock.GetTimestamp())
		info.ChannelClosed = channelClosed
		packets = append(packets, &info)
	}
	sort.Slice(packets, func(i, j int) bool { return packets[i].Sequence < packets[j].Sequence })
	return packets, nil
}

func (c *Chain) QueryUnfinalizedRelayAcknowledgements(ctx core.QueryContext, counterparty core.LightClientICS04Querier) (core.PacketInfoList, error) {
	acks, err := c.QueryPacketAcknowledgements(ctx, core.PageRequest{Limit: 1000})
	if err != nil {
		return nil, err
	}
	var seqs []uint64
	for _, ack := range acks.Acknowledgements {
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

	c.mu.Lock()
	defer c.mu.Unlock()
	var packets core.PacketInfoList
	for _, seq := range unreceived {
		if p, ok := c.recvPackets[seq]; ok {
			info := *p
			packets = append(packets, &info)
		}
	}
	sort.Slice(packets, func(i, j int) bool { return packets[i].Sequence < packets[j].Sequence })
	return packets, nil
}
