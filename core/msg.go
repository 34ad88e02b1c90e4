package core

import (
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
)

// TrackedMsgs is a batch of messages tagged with the identifier of the relay
// round that produced them. Chains report per-message outcomes against it.
type TrackedMsgs struct {
	Msgs       []sdk.Msg `json:"msgs"`
	TrackingID string    `json:"tracking_id"`
}

// NewTrackedMsgs returns a new TrackedMsgs instance
func NewTrackedMsgs(msgs []sdk.Msg, trackingID string) TrackedMsgs {
	return TrackedMsgs{Msgs: msgs, TrackingID: trackingID}
}

func (tm TrackedMsgs) Len() int {
	return len(tm.Msgs)
}

type MsgID interface {
	IsMsgID()
}

type MsgResult interface {
	// BlockHeight returns the height of the block that includes the message
	BlockHeight() clienttypes.Height

	// Status returns a boolean of whether the message execution succeeded and,
	// if it failed, the chain-reported reason
	Status() (bool, string)

	// Events returns the events emitted by the message execution
	Events() []MsgEventLog
}

type MsgEventLog interface {
	isMsgEventLog()
}

var (
	_ MsgEventLog = (*EventGenerateClientIdentifier)(nil)
	_ MsgEventLog = (*EventGenerateConnectionIdentifier)(nil)
	_ MsgEventLog = (*EventGenerateChannelIdentifier)(nil)
	_ MsgEventLog = (*EventSendPacket)(nil)
	_ MsgEventLog = (*EventRecvPacket)(nil)
	_ MsgEventLog = (*EventWriteAcknowledgement)(nil)
	_ MsgEventLog = (*EventAcknowledgePacket)(nil)
	_ MsgEventLog = (*EventTimeoutPacket)(nil)
	_ MsgEventLog = (*EventUpdateClient)(nil)
	_ MsgEventLog = (*EventUnknown)(nil)
)

func (*EventGenerateClientIdentifier) isMsgEventLog()     {}
func (*EventGenerateConnectionIdentifier) isMsgEventLog() {}
func (*EventGenerateChannelIdentifier) isMsgEventLog()    {}
func (*EventSendPacket) isMsgEventLog()                   {}
func (*EventRecvPacket) isMsgEventLog()                   {}
func (*EventWriteAcknowledgement) isMsgEventLog()         {}
func (*EventAcknowledgePacket) isMsgEventLog()            {}
func (*EventTimeoutPacket) isMsgEventLog()                {}
func (*EventUpdateClient) isMsgEventLog()                 {}
func (*EventUnknown) isMsgEventLog()                      {}

type EventGenerateClientIdentifier struct {
	ID string
}

type EventGenerateConnectionIdentifier struct {
	ID string
}

type EventGenerateChannelIdentifier struct {
	ID string
}

type EventSendPacket struct {
	Sequence         uint64
	SrcPort          string
	SrcChannel       string
	TimeoutHeight    clienttypes.Height
	TimeoutTimestamp time.Time
	Data             []byte
}

type EventRecvPacket struct {
	Sequence         uint64
	DstPort          string
	DstChannel       string
	TimeoutHeight    clienttypes.Height
	TimeoutTimestamp time.Time
	Data             []byte
}

type EventWriteAcknowledgement struct {
	Sequence        uint64
	DstPort         string
	DstChannel      string
	Acknowledgement []byte
}

type EventAcknowledgePacket struct {
	Sequence         uint64
	SrcPort          string
	SrcChannel       string
	TimeoutHeight    clienttypes.Height
	TimeoutTimestamp time.Time
}

type EventTimeoutPacket struct {
	Sequence   uint64
	SrcPort    string
	SrcChannel string
}

// EventUpdateClient is emitted when an on-chain client accepts a new header.
// Every occurrence is handed to the counterparty's light client for
// misbehaviour evaluation.
type EventUpdateClient struct {
	ClientID        string
	ConsensusHeight clienttypes.Height
}

type EventUnknown struct {
	Value any
}
