package tendermint

import (
	"encoding/hex"
	"testing"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	"github.com/stretchr/testify/require"

	"github.com/aozora-labs/tsubame-relayer/core"
)

func attr(key, value string) abci.EventAttribute {
	return abci.EventAttribute{Key: key, Value: value}
}

func TestParseMsgEventLogs(t *testing.T) {
	events := []abci.Event{
		{
			Type: chantypes.EventTypeSendPacket,
			Attributes: []abci.EventAttribute{
				attr("msg_index", "0"),
				attr(chantypes.AttributeKeySequence, "7"),
				attr(chantypes.AttributeKeySrcPort, "transfer"),
				attr(chantypes.AttributeKeySrcChannel, "channel-0"),
				attr(chantypes.AttributeKeyTimeoutHeight, "1-100"),
				attr(chantypes.AttributeKeyTimeoutTimestamp, "1700000000000000000"),
				attr(chantypes.AttributeKeyDataHex, hex.EncodeToString([]byte("payload"))),
			},
		},
		{
			Type: chantypes.EventTypeWriteAck,
			Attributes: []abci.EventAttribute{
				attr("msg_index", "1"),
				attr(chantypes.AttributeKeySequence, "7"),
				attr(chantypes.AttributeKeyDstPort, "transfer"),
				attr(chantypes.AttributeKeyDstChannel, "channel-1"),
				attr(chantypes.AttributeKeyAckHex, hex.EncodeToString([]byte{0x01})),
			},
		},
		{
			// no msg_index attribute; must be skipped
			Type:       "coin_spent",
			Attributes: []abci.EventAttribute{attr("spender", "cosmos1xyz")},
		},
	}

	logs, err := parseMsgEventLogs(nil, events, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	send, ok := logs[0].(*core.EventSendPacket)
	require.True(t, ok)
	require.Equal(t, uint64(7), send.Sequence)
	require.Equal(t, "transfer", send.SrcPort)
	require.Equal(t, "channel-0", send.SrcChannel)
	require.Equal(t, clienttypes.NewHeight(1, 100), send.TimeoutHeight)
	require.Equal(t, time.Unix(0, 1700000000000000000), send.TimeoutTimestamp)
	require.Equal(t, []byte("payload"), send.Data)

	logs, err = parseMsgEventLogs(nil, events, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	ack, ok := logs[0].(*core.EventWriteAcknowledgement)
	require.True(t, ok)
	require.Equal(t, uint64(7), ack.Sequence)
	require.Equal(t, "transfer", ack.DstPort)
	require.Equal(t, "channel-1", ack.DstChannel)
	require.Equal(t, []byte{0x01}, ack.Acknowledgement)

	logs, err = parseMsgEventLogs(nil, events, 2)
	require.NoError(t, err)
	require.Empty(t, logs)
}

func TestParseMsgEventLogCreateClient(t *testing.T) {
	ev := abci.Event{
		Type: clienttypes.EventTypeCreateClient,
		Attributes: []abci.EventAttribute{
			attr(clienttypes.AttributeKeyClientID, "07-tendermint-3"),
		},
	}
	event, err := parseMsgEventLog(nil, ev)
	require.NoError(t, err)
	created, ok := event.(*core.EventGenerateClientIdentifier)
	require.True(t, ok)
	require.Equal(t, "07-tendermint-3", created.ID)
}

func TestParseMsgEventLogUpdateClient(t *testing.T) {
	ev := abci.Event{
		Type: clienttypes.EventTypeUpdateClient,
		Attributes: []abci.EventAttribute{
			attr(clienttypes.AttributeKeyClientID, "07-tendermint-0"),
			attr(clienttypes.AttributeKeyConsensusHeights, "0-3,0-5"),
		},
	}
	event, err := parseMsgEventLog(nil, ev)
	require.NoError(t, err)
	updated, ok := event.(*core.EventUpdateClient)
	require.True(t, ok)
	require.Equal(t, "07-tendermint-0", updated.ClientID)
	require.Equal(t, clienttypes.NewHeight(0, 5), updated.ConsensusHeight)
}

func TestParseMsgEventLogUnknownEvent(t *testing.T) {
	ev := abci.Event{Type: "transfer", Attributes: []abci.EventAttribute{attr("recipient", "cosmos1abc")}}
	event, err := parseMsgEventLog(nil, ev)
	require.NoError(t, err)
	_, ok := event.(*core.EventUnknown)
	require.True(t, ok)
}

func TestParseMsgEventLogMissingAttribute(t *testing.T) {
	ev := abci.Event{
		Type: chantypes.EventTypeSendPacket,
		Attributes: []abci.EventAttribute{
			attr(chantypes.AttributeKeySrcPort, "transfer"),
		},
	}
	_, err := parseMsgEventLog(nil, ev)
	require.Error(t, err)
}

func TestParseMsgEventLogsBadMsgIndex(t *testing.T) {
	events := []abci.Event{
		{
			Type:       chantypes.EventTypeSendPacket,
			Attributes: []abci.EventAttribute{attr("msg_index", "not-a-number")},
		},
	}
	_, err := parseMsgEventLogs(nil, events, 0)
	require.Error(t, err)
}
