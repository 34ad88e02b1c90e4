package mock

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"

	"github.com/aozora-labs/tsubame-relayer/core"
)

// SuccessAcknowledgement is the acknowledgement the mock chain writes for
// every received packet
var SuccessAcknowledgement = []byte{0x01}

var _ core.Chain = (*Chain)(nil)

// version is one write to a store path. A nil value records a deletion.
type version struct {
	height uint64
	value  []byte
}

// Chain is an in-memory chain. Every store write is versioned by height so
// that queries and proofs reflect the state at the requested height, the same
// way an ABCI query against a real node would.
type Chain struct {
	config  ChainConfig
	pathEnd *core.PathEnd
	cpEnd   *core.PathEnd

	codec    codec.ProtoCodecMarshaler
	listener core.MsgEventListener

	mu            sync.Mutex
	latestHeight  uint64
	blockTimes    map[uint64]time.Time
	store         map[string][]version
	clientHeights map[string]clienttypes.Height
	clientCons    map[string]map[uint64]uint64
	channelState  chantypes.State
	nextClientSeq uint64
	nextSendSeq   uint64
	nextSeqRecv   uint64
	sentPackets   map[uint64]*core.PacketInfo
	recvPackets   map[uint64]*core.PacketInfo
	txResults     map[string][]core.MsgResult
	nextTxSeq     uint64
}

func NewChain(config ChainConfig) *Chain {
	genesis := time.Now()
	if config.GenesisTimeNanos != 0 {
		genesis = time.Unix(0, int64(config.GenesisTimeNanos))
	}
	return &Chain{
		config:        config,
		latestHeight:  1,
		blockTimes:    map[uint64]time.Time{1: genesis},
		store:         map[string][]version{},
		clientHeights: map[string]clienttypes.Height{},
		clientCons:    map[string]map[uint64]uint64{},
		channelState:  chantypes.OPEN,
		nextSeqRecv:   1,
		sentPackets:   map[uint64]*core.PacketInfo{},
		recvPackets:   map[uint64]*core.PacketInfo{},
		txResults:     map[string][]core.MsgResult{},
	}
}

func (c *Chain) ChainID() string {
	return c.config.ChainId
}

func (c *Chain) Codec() codec.ProtoCodecMarshaler {
	return c.codec
}

// GetAddress returns a deterministic address derived from the chain ID
func (c *Chain) GetAddress() (sdk.AccAddress, error) {
	h := sha256.Sum256([]byte(c.config.ChainId))
	return sdk.AccAddress(h[:20]), nil
}

func (c *Chain) SetRelayInfo(p *core.PathEnd, _ *core.ProvableChain, counterpartyPath *core.PathEnd) error {
	c.pathEnd = p
	c.cpEnd = counterpartyPath
	return nil
}

func (c *Chain) Path() *core.PathEnd {
	return c.pathEnd
}

func (c *Chain) Init(homePath string, timeout time.Duration, codec codec.ProtoCodecMarshaler, debug bool) error {
	c.codec = codec
	return nil
}

func (c *Chain) SetupForRelay(ctx context.Context) error {
	return nil
}

func (c *Chain) LatestHeight(ctx context.Context) (ibcexported.Height, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clienttypes.NewHeight(0, c.latestHeight), nil
}

func (c *Chain) Timestamp(ctx context.Context, height ibcexported.Height) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.blockTimes[height.GetRevisionHeight()]
	if !ok {
		return time.Time{}, errorsmod.Wrapf(core.ErrStaleHeight, "no block at height %s", height)
	}
	return t, nil
}

func (c *Chain) AverageBlockTime() time.Duration {
	return 10 * time.Millisecond
}

func (c *Chain) RegisterMsgEventListener(listener core.MsgEventListener) {
	c.listener = listener
}

// advanceBlock produces a new block. Callers must hold the lock.
func (c *Chain) advanceBlock() uint64 {
	c.latestHeight++
	c.blockTimes[c.latestHeight] = time.Now()
	return c.latestHeight
}

// AdvanceBlocks produces n empty blocks
func (c *Chain) AdvanceBlocks(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := uint64(0); i < n; i++ {
		c.advanceBlock()
	}
}

// CloseChannel marks the channel end as CLOSED and commits the updated
// channel end so that closure becomes provable
func (c *Chain) CloseChannel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channelState = chantypes.CLOSED
	height := c.advanceBlock()
	channel := c.channelEndLocked()
	bz, err := c.codec.Marshal(&channel)
	if err != nil {
		panic(err)
	}
	c.setState(host.ChannelPath(c.pathEnd.PortID, c.pathEnd.ChannelID), height, bz)
}

// channelEndLocked builds the current channel end. Callers must hold the lock.
func (c *Chain) channelEndLocked() chantypes.Channel {
	return chantypes.NewChannel(
		c.channelState,
		c.pathEnd.ChannelOrder(),
		chantypes.NewCounterparty(c.cpEnd.PortID, c.cpEnd.ChannelID),
		[]string{c.pathEnd.ConnectionID},
		c.pathEnd.Version,
	)
}

// setState writes a value at the current height. Callers must hold the lock.
func (c *Chain) setState(path string, height uint64, value []byte) {
	c.store[path] = append(c.store[path], version{height: height, value: value})
}

// stateAt returns the value at `path` visible at `height`. Callers need not
// hold the lock.
func (c *Chain) stateAt(path string, height uint64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateAtLocked(path, height)
}

func (c *Chain) stateAtLocked(path string, height uint64) ([]byte, bool) {
	var value []byte
	found := false
	for _, v := range c.store[path] {
		if v.height > height {
			break
		}
		value = v.value
		found = v.value != nil
	}
	return value, found
}

// SendPacket commits an outgoing packet on the channel and returns its
// sequence. It is the mock counterpart of an application sending a packet.
func (c *Chain) SendPacket(data []byte, timeoutHeight clienttypes.Height, timeoutTimestamp uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pathEnd == nil || c.cpEnd == nil {
		return 0, errorsmod.Wrap(core.ErrConfig, "relay info is not set")
	}
	c.nextSendSeq++
	seq := c.nextSendSeq
	packet := chantypes.NewPacket(
		data, seq,
		c.pathEnd.PortID, c.pathEnd.ChannelID,
		c.cpEnd.PortID, c.cpEnd.ChannelID,
		timeoutHeight, timeoutTimestamp,
	)
	height := c.advanceBlock()
	commitment := chantypes.CommitPacket(c.codec, packet)
	c.setState(host.PacketCommitmentPath(packet.SourcePort, packet.SourceChannel, seq), height, commitment)
	c.sentPackets[seq] = &core.PacketInfo{
		Packet:      packet,
		EventHeight: clienttypes.NewHeight(0, height),
	}
	return seq, nil
}

// SendMsgs applies the msgs in a single new block. The batch is always
// accepted; per-message outcomes are reported via GetMsgResult.
func (c *Chain) SendMsgs(ctx context.Context, msgs core.TrackedMsgs) ([]core.MsgID, error) {
	c.mu.Lock()
	height := c.advanceBlock()
	c.nextTxSeq++
	txHash := fmt.Sprintf("%064X", c.nextTxSeq)

	var results []core.MsgResult
	for _, msg := range msgs.Msgs {
		results = append(results, c.applyMsg(height, msg))
	}
	c.txResults[txHash] = results
	c.mu.Unlock()

	if c.listener != nil {
		if err := c.listener.OnSentMsg(ctx, msgs.Msgs); err != nil {
			return nil, err
		}
	}

	var ids []core.MsgID
	for i := range msgs.Msgs {
		ids = append(ids, &MsgID{TxHash: txHash, MsgIndex: uint32(i)})
	}
	return ids, nil
}

func (c *Chain) SendMsgsAndWaitCommit(ctx context.Context, msgs core.TrackedMsgs) ([]core.MsgResult, error) {
	ids, err := c.SendMsgs(ctx, msgs)
	if err != nil {
		return nil, err
	}
	var results []core.MsgResult
	for _, id := range ids {
		result, err := c.GetMsgResult(ctx, id)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (c *Chain) GetMsgResult(ctx context.Context, id core.MsgID) (core.MsgResult, error) {
	msgID, ok := id.(*MsgID)
	if !ok {
		return nil, fmt.Errorf("unexpected message id type: %T", id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	results, ok := c.txResults[msgID.TxHash]
	if !ok {
		return nil, errorsmod.Wrapf(core.ErrQuery, "tx %s not found", msgID.TxHash)
	}
	if int(msgID.MsgIndex) >= len(results) {
		return nil, errorsmod.Wrapf(core.ErrQuery, "tx %s has no msg at index %d", msgID.TxHash, msgID.MsgIndex)
	}
	return results[msgID.MsgIndex], nil
}

// applyMsg executes a single message. Callers must hold the lock.
func (c *Chain) applyMsg(height uint64, msg sdk.Msg) core.MsgResult {
	h := clienttypes.NewHeight(0, height)
	ok := func(events ...core.MsgEventLog) core.MsgResult {
		return &MsgResult{height: h, status: true, events: events}
	}
	fail := func(format string, args ...any) core.MsgResult {
		return &MsgResult{height: h, status: false, failureReason: fmt.Sprintf(format, args...)}
	}

	switch m := msg.(type) {
	case *clienttypes.MsgCreateClient:
		cs, err := clienttypes.UnpackClientState(m.ClientState)
		if err != nil {
			return fail("failed to unpack client state: %v", err)
		}
		mcs, okType := cs.(*ClientState)
		if !okType {
			return fail("unexpected client state type: %T", cs)
		}
		cons, err := clienttypes.UnpackConsensusState(m.ConsensusState)
		if err != nil {
			return fail("failed to unpack consensus state: %v", err)
		}
		clientID := fmt.Sprintf("%s-%d", ClientType, c.nextClientSeq)
		c.nextClientSeq++
		c.clientHeights[clientID] = *mcs.LatestHeight
		c.clientCons[clientID] = map[uint64]uint64{
			mcs.LatestHeight.RevisionHeight: cons.GetTimestamp(),
		}
		return ok(&core.EventGenerateClientIdentifier{ID: clientID})

	case *clienttypes.MsgUpdateClient:
		header, err := clienttypes.UnpackClientMessage(m.ClientMessage)
		if err != nil {
			return fail("failed to unpack client message: %v", err)
		}
		mh, okType := header.(*Header)
		if !okType {
			return fail("unexpected client message type: %T", header)
		}
		if _, exists := c.clientHeights[m.ClientId]; !exists {
			return fail("client %s not found", m.ClientId)
		}
		if c.clientHeights[m.ClientId].LT(*mh.Height) {
			c.clientHeights[m.ClientId] = *mh.Height
		}
		if c.clientCons[m.ClientId] == nil {
			c.clientCons[m.ClientId] = map[uint64]uint64{}
		}
		c.clientCons[m.ClientId][mh.Height.RevisionHeight] = mh.Timestamp
		return ok(&core.EventUpdateClient{ClientID: m.ClientId, ConsensusHeight: *mh.Height})

	case *chantypes.MsgRecvPacket:
		p := m.Packet
		receiptPath := host.PacketReceiptPath(p.DestinationPort, p.DestinationChannel, p.Sequence)
		if _, exists := c.stateAtLocked(receiptPath, height); exists {
			return fail("packet sequence %d already received", p.Sequence)
		}
		if c.channelState != chantypes.OPEN {
			return fail("channel is not open")
		}
		c.setState(receiptPath, height, []byte{0x01})
		ack := SuccessAcknowledgement
		ackPath := host.PacketAcknowledgementPath(p.DestinationPort, p.DestinationChannel, p.Sequence)
		c.setState(ackPath, height, chantypes.CommitAcknowledgement(ack))
		if p.Sequence >= c.nextSeqRecv {
			c.nextSeqRecv = p.Sequence + 1
		}
		c.recvPackets[p.Sequence] = &core.PacketInfo{
			Packet:          p,
			Acknowledgement: ack,
			EventHeight:     h,
		}
		return ok(
			&core.EventRecvPacket{
				Sequence:         p.Sequence,
				DstPort:          p.DestinationPort,
				DstChannel:       p.DestinationChannel,
				TimeoutHeight:    p.TimeoutHeight,
				TimeoutTimestamp: time.Unix(0, int64(p.TimeoutTimestamp)),
				Data:             p.Data,
			},
			&core.EventWriteAcknowledgement{
				Sequence:        p.Sequence,
				DstPort:         p.DestinationPort,
				DstChannel:      p.DestinationChannel,
				Acknowledgement: ack,
			},
		)

	case *chantypes.MsgAcknowledgement:
		p := m.Packet
		commitmentPath := host.PacketCommitmentPath(p.SourcePort, p.SourceChannel, p.Sequence)
		if _, exists := c.stateAtLocked(commitmentPath, height); !exists {
			return fail("packet commitment for sequence %d not found", p.Sequence)
		}
		c.setState(commitmentPath, height, nil)
		return ok(&core.EventAcknowledgePacket{
			Sequence:         p.Sequence,
			SrcPort:          p.SourcePort,
			SrcChannel:       p.SourceChannel,
			TimeoutHeight:    p.TimeoutHeight,
			TimeoutTimestamp: time.Unix(0, int64(p.TimeoutTimestamp)),
		})

	case *chantypes.MsgTimeout:
		return c.applyTimeout(h, height, m.Packet)

	case *chantypes.MsgTimeoutOnClose:
		return c.applyTimeout(h, height, m.Packet)

	default:
		return ok(&core.EventUnknown{Value: msg})
	}
}

func (c *Chain) applyTimeout(h clienttypes.Height, height uint64, p chantypes.Packet) core.MsgResult {
	commitmentPath := host.PacketCommitmentPath(p.SourcePort, p.SourceChannel, p.Sequence)
	if _, exists := c.stateAtLocked(commitmentPath, height); !exists {
		return &MsgResult{height: h, status: false, failureReason: fmt.Sprintf("packet commitment for sequence %d not found", p.Sequence)}
	}
	c.setState(commitmentPath, height, nil)
	if c.pathEnd.ChannelOrder() == chantypes.ORDERED {
		c.channelState = chantypes.CLOSED
	}
	return &MsgResult{height: h, status: true, events: []core.MsgEventLog{
		&core.EventTimeoutPacket{
			Sequence:   p.Sequence,
			SrcPort:    p.SourcePort,
			SrcChannel: p.SourceChannel,
		},
	}}
}

var _ core.MsgID = (*MsgID)(nil)

type MsgID struct {
	TxHash   string `json:"tx_hash"`
	MsgIndex uint32 `json:"msg_index"`
}

func (i *MsgID) IsMsgID() {}

var _ core.MsgResult = (*MsgResult)(nil)

type MsgResult struct {
	height        clienttypes.Height
	status        bool
	failureReason string
	events        []core.MsgEventLog
}

func (r *MsgResult) BlockHeight() clienttypes.Height {
	return r.height
}

func (r *MsgResult) Status() (bool, string) {
	return r.status, r.failureReason
}

func (r *MsgResult) Events() []core.MsgEventLog {
	return r.events
}
