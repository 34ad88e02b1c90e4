package tendermint

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cosmos/cosmos-sdk/codec"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"

	"github.com/aozora-labs/tsubame-relayer/core"
)

var (
	_ core.MsgID     = (*MsgID)(nil)
	_ core.MsgResult = (*MsgResult)(nil)
)

// MsgID identifies a message by the hash of the tx that carried it and the
// index of the message within the tx.
type MsgID struct {
	TxHash     string `json:"tx_hash"`
	MsgIndex   uint32 `json:"msg_index"`
	TrackingID string `json:"tracking_id,omitempty"`
}

func (i *MsgID) IsMsgID() {}

func (i *MsgID) String() string {
	return fmt.Sprintf("%s:%d", i.TxHash, i.MsgIndex)
}

type MsgResult struct {
	height          clienttypes.Height
	txStatus        bool
	txFailureReason string
	events          []core.MsgEventLog
}

func (r *MsgResult) BlockHeight() clienttypes.Height {
	return r.height
}

func (r *MsgResult) Status() (bool, string) {
	return r.txStatus, r.txFailureReason
}

func (r *MsgResult) Events() []core.MsgEventLog {
	return r.events
}

// parseMsgEventLogs extracts the events emitted by the msgIndex-th message of
// a tx. Since cosmos-sdk v0.50 the ABCI log is empty and each event instead
// carries a "msg_index" attribute.
func parseMsgEventLogs(cdc codec.Codec, events []abci.Event, msgIndex uint32) ([]core.MsgEventLog, error) {
	var msgEventLogs []core.MsgEventLog
	for _, ev := range events {
		index, ok, err := getMsgIndex(ev)
		if err != nil {
			return nil, err
		}
		if !ok || index != msgIndex {
			continue
		}
		event, err := parseMsgEventLog(cdc, ev)
		if err != nil {
			return nil, fmt.Errorf("failed to parse msg event log: %v", err)
		}
		msgEventLogs = append(msgEventLogs, event)
	}
	return msgEventLogs, nil
}

func parseMsgEventLog(cdc codec.Codec, ev abci.Event) (core.MsgEventLog, error) {
	switch ev.Type {
	case clienttypes.EventTypeCreateClient:
		var event core.EventGenerateClientIdentifier
		var err error
		event.ID, err = getAttributeString(ev, clienttypes.AttributeKeyClientID)
		if err != nil {
			return nil, err
		}
		return &event, nil
	case conntypes.EventTypeConnectionOpenInit, conntypes.EventTypeConnectionOpenTry:
		var event core.EventGenerateConnectionIdentifier
		var err error
		event.ID, err = getAttributeString(ev, conntypes.AttributeKeyConnectionID)
		if err != nil {
			return nil, err
		}
		return &event, nil
	case chantypes.EventTypeChannelOpenInit, chantypes.EventTypeChannelOpenTry:
		var event core.EventGenerateChannelIdentifier
		var err error
		event.ID, err = getAttributeString(ev, chantypes.AttributeKeyChannelID)
		if err != nil {
			return nil, err
		}
		return &event, nil
	case chantypes.EventTypeSendPacket:
		var event core.EventSendPacket
		var err0, err1, err2, err3, err4, err5 error
		event.Sequence, err0 = getAttributeUint64(ev, chantypes.AttributeKeySequence)
		event.SrcPort, err1 = getAttributeString(ev, chantypes.AttributeKeySrcPort)
		event.SrcChannel, err2 = getAttributeString(ev, chantypes.AttributeKeySrcChannel)
		event.TimeoutHeight, err3 = getAttributeHeight(ev, chantypes.AttributeKeyTimeoutHeight)
		event.TimeoutTimestamp, err4 = getAttributeTimestamp(ev, chantypes.AttributeKeyTimeoutTimestamp)
		event.Data, err5 = getAttributeBytes(ev, chantypes.AttributeKeyDataHex)
		if err := errors.Join(err0, err1, err2, err3, err4, err5); err != nil {
			return nil, err
		}
		return &event, nil
	case chantypes.EventTypeRecvPacket:
		var event core.EventRecvPacket
		var err0, err1, err2, err3, err4, err5 error
		event.Sequence, err0 = getAttributeUint64(ev, chantypes.AttributeKeySequence)
		event.DstPort, err1 = getAttributeString(ev, chantypes.AttributeKeyDstPort)
		event.DstChannel, err2 = getAttributeString(ev, chantypes.AttributeKeyDstChannel)
		event.TimeoutHeight, err3 = getAttributeHeight(ev, chantypes.AttributeKeyTimeoutHeight)
		event.TimeoutTimestamp, err4 = getAttributeTimestamp(ev, chantypes.AttributeKeyTimeoutTimestamp)
		event.Data, err5 = getAttributeBytes(ev, chantypes.AttributeKeyDataHex)
		if err := errors.Join(err0, err1, err2, err3, err4, err5); err != nil {
			return nil, err
		}
		return &event, nil
	case chantypes.EventTypeWriteAck:
		var event core.EventWriteAcknowledgement
		var err0, err1, err2, err3 error
		event.Sequence, err0 = getAttributeUint64(ev, chantypes.AttributeKeySequence)
		event.DstPort, err1 = getAttributeString(ev, chantypes.AttributeKeyDstPort)
		event.DstChannel, err2 = getAttributeString(ev, chantypes.AttributeKeyDstChannel)
		event.Acknowledgement, err3 = getAttributeBytes(ev, chantypes.AttributeKeyAckHex)
		if err := errors.Join(err0, err1, err2, err3); err != nil {
			return nil, err
		}
		return &event, nil
	case chantypes.EventTypeAcknowledgePacket:
		var event core.EventAcknowledgePacket
		var err0, err1, err2, err3, err4 error
		event.Sequence, err0 = getAttributeUint64(ev, chantypes.AttributeKeySequence)
		event.SrcPort, err1 = getAttributeString(ev, chantypes.AttributeKeySrcPort)
		event.SrcChannel, err2 = getAttributeString(ev, chantypes.AttributeKeySrcChannel)
		event.TimeoutHeight, err3 = getAttributeHeight(ev, chantypes.AttributeKeyTimeoutHeight)
		event.TimeoutTimestamp, err4 = getAttributeTimestamp(ev, chantypes.AttributeKeyTimeoutTimestamp)
		if err := errors.Join(err0, err1, err2, err3, err4); err != nil {
			return nil, err
		}
		return &event, nil
	case chantypes.EventTypeTimeoutPacket:
		var event core.EventTimeoutPacket
		var err0, err1, err2 error
		event.Sequence, err0 = getAttributeUint64(ev, chantypes.AttributeKeySequence)
		event.SrcPort, err1 = getAttributeString(ev, chantypes.AttributeKeySrcPort)
		event.SrcChannel, err2 = getAttributeString(ev, chantypes.AttributeKeySrcChannel)
		if err := errors.Join(err0, err1, err2); err != nil {
			return nil, err
		}
		return &event, nil
	case clienttypes.EventTypeUpdateClient:
		var event core.EventUpdateClient
		var err0, err1 error
		event.ClientID, err0 = getAttributeString(ev, clienttypes.AttributeKeyClientID)
		event.ConsensusHeight, err1 = getAttributeLastHeight(ev, clienttypes.AttributeKeyConsensusHeights)
		if err := errors.Join(err0, err1); err != nil {
			return nil, err
		}
		return &event, nil
	default:
		return &core.EventUnknown{Value: ev}, nil
	}
}

func getMsgIndex(ev abci.Event) (uint32, bool, error) {
	for _, attr := range ev.Attributes {
		if attr.Key == "msg_index" {
			index, err := strconv.ParseUint(attr.Value, 10, 32)
			if err != nil {
				return 0, false, fmt.Errorf("failed to parse msg_index: %v", err)
			}
			return uint32(index), true, nil
		}
	}
	return 0, false, nil
}

func getAttributeString(ev abci.Event, key string) (string, error) {
	for _, attr := range ev.Attributes {
		if attr.Key == key {
			return attr.Value, nil
		}
	}
	return "", fmt.Errorf("failed to find attribute of key %q in event %q", key, ev.Type)
}

func getAttributeBytes(ev abci.Event, key string) ([]byte, error) {
	v, err := getAttributeString(ev, key)
	if err != nil {
		return nil, err
	}
	bz, err := hex.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex string: %v", err)
	}
	return bz, nil
}

func getAttributeHeight(ev abci.Event, key string) (clienttypes.Height, error) {
	v, err := getAttributeString(ev, key)
	if err != nil {
		return clienttypes.Height{}, err
	}
	height, err := clienttypes.ParseHeight(v)
	if err != nil {
		return clienttypes.Height{}, fmt.Errorf("failed to parse height: %v", err)
	}
	return height, nil
}

// getAttributeLastHeight parses a comma-separated height list and returns the
// last entry
func getAttributeLastHeight(ev abci.Event, key string) (clienttypes.Height, error) {
	v, err := getAttributeString(ev, key)
	if err != nil {
		return clienttypes.Height{}, err
	}
	parts := strings.Split(v, ",")
	height, err := clienttypes.ParseHeight(parts[len(parts)-1])
	if err != nil {
		return clienttypes.Height{}, fmt.Errorf("failed to parse height list %q: %v", v, err)
	}
	return height, nil
}

func getAttributeUint64(ev abci.Event, key string) (uint64, error) {
	v, err := getAttributeString(ev, key)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse uint: %v", err)
	}
	return d, nil
}

func getAttributeTimestamp(ev abci.Event, key string) (time.Time, error) {
	d, err := getAttributeUint64(ev, key)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, int64(d)), nil
}
