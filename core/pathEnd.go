package core

import (
	"fmt"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
)

// PathEnd holds the identifiers of one end of a relay path
type PathEnd struct {
	ChainID      string `yaml:"chain-id" json:"chain-id"`
	ClientID     string `yaml:"client-id" json:"client-id"`
	ConnectionID string `yaml:"connection-id" json:"connection-id"`
	ChannelID    string `yaml:"channel-id" json:"channel-id"`
	PortID       string `yaml:"port-id" json:"port-id"`
	Order        string `yaml:"order" json:"order"`
	Version      string `yaml:"version" json:"version"`
}

func (pe PathEnd) String() string {
	return fmt.Sprintf("%s:cl(%s):co(%s):ch(%s):pt(%s)", pe.ChainID, pe.ClientID, pe.ConnectionID, pe.ChannelID, pe.PortID)
}

// ChannelOrder returns the channel order of the path end
func (pe PathEnd) ChannelOrder() chantypes.Order {
	return OrderFromString(strings.ToUpper(pe.Order))
}

// OrderFromString parses a string into a channel order byte
func OrderFromString(order string) chantypes.Order {
	switch order {
	case "UNORDERED":
		return chantypes.UNORDERED
	case "ORDERED":
		return chantypes.ORDERED
	default:
		return chantypes.NONE
	}
}

// UpdateClients constructs a MsgUpdateClient per header for the client
// identified by this path end. Headers must be ordered so that each one is
// verifiable against the state established by its predecessors.
func (pe *PathEnd) UpdateClients(headers []Header, signer sdk.AccAddress) []sdk.Msg {
	var msgs []sdk.Msg
	for _, header := range headers {
		if err := header.ValidateBasic(); err != nil {
			panic(err)
		}
		msg, err := clienttypes.NewMsgUpdateClient(
			pe.ClientID,
			header,
			signer.String(),
		)
		if err != nil {
			panic(err)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
