package core

import (
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"
)

// Vclient validates the client identifier in the path
func (pe *PathEnd) Vclient() error {
	return host.ClientIdentifierValidator(pe.ClientID)
}

// Vconn validates the connection identifier in the path
func (pe *PathEnd) Vconn() error {
	return host.ConnectionIdentifierValidator(pe.ConnectionID)
}

// Vchan validates the channel identifier in the path
func (pe *PathEnd) Vchan() error {
	return host.ChannelIdentifierValidator(pe.ChannelID)
}

// Vport validates the port identifier in the path
func (pe *PathEnd) Vport() error {
	return host.PortIdentifierValidator(pe.PortID)
}

// Validate returns errors about invalid identifiers as well as
// unset path variables for the appropriate type
func (pe *PathEnd) Validate() error {
	if err := pe.Vclient(); err != nil {
		return errorsmod.Wrap(ErrConfig, err.Error())
	}
	if err := pe.Vconn(); err != nil {
		return errorsmod.Wrap(ErrConfig, err.Error())
	}
	if err := pe.Vchan(); err != nil {
		return errorsmod.Wrap(ErrConfig, err.Error())
	}
	if err := pe.Vport(); err != nil {
		return errorsmod.Wrap(ErrConfig, err.Error())
	}
	if order := strings.ToUpper(pe.Order); order != "ORDERED" && order != "UNORDERED" {
		return errorsmod.Wrap(ErrConfig, fmt.Sprintf("channel must be either 'ORDERED' or 'UNORDERED' is '%s'", pe.Order))
	}
	return nil
}
