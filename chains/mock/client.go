package mock

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
)

const ClientType = "mock-client"

var (
	_ ibcexported.ClientState    = (*ClientState)(nil)
	_ ibcexported.ConsensusState = (*ConsensusState)(nil)
	_ ibcexported.ClientMessage  = (*Header)(nil)
)

// makeProof is the commitment scheme of the mock client: a proof is simply
// the hash of the proven value
func makeProof(bz []byte) []byte {
	h := sha256.Sum256(bz)
	return h[:]
}

func (cs *ClientState) ClientType() string {
	return ClientType
}

func (cs *ClientState) GetLatestHeight() ibcexported.Height {
	if cs.LatestHeight == nil {
		return clienttypes.ZeroHeight()
	}
	return *cs.LatestHeight
}

func (cs *ClientState) Validate() error {
	if cs.LatestHeight == nil || cs.LatestHeight.IsZero() {
		return errors.New("latest height must not be zero")
	}
	return nil
}

func (cs *ClientState) Status(ctx sdk.Context, clientStore storetypes.KVStore, cdc codec.BinaryCodec) ibcexported.Status {
	return ibcexported.Active
}

func (cs *ClientState) ExportMetadata(clientStore storetypes.KVStore) []ibcexported.GenesisMetadata {
	return nil
}

func (cs *ClientState) ZeroCustomFields() ibcexported.ClientState {
	return &ClientState{LatestHeight: cs.LatestHeight}
}

func (cs *ClientState) GetTimestampAtHeight(ctx sdk.Context, clientStore storetypes.KVStore, cdc codec.BinaryCodec, height ibcexported.Height) (uint64, error) {
	return 0, errors.New("not supported")
}

func (cs *ClientState) Initialize(ctx sdk.Context, cdc codec.BinaryCodec, clientStore storetypes.KVStore, consensusState ibcexported.ConsensusState) error {
	if _, ok := consensusState.(*ConsensusState); !ok {
		return fmt.Errorf("unexpected consensus state type: %T", consensusState)
	}
	return nil
}

func (cs *ClientState) VerifyMembership(ctx sdk.Context, clientStore storetypes.KVStore, cdc codec.BinaryCodec, height ibcexported.Height, delayTimePeriod uint64, delayBlockPeriod uint64, proof []byte, path ibcexported.Path, value []byte) error {
	if !bytes.Equal(proof, makeProof(value)) {
		return errors.New("invalid proof")
	}
	return nil
}

func (cs *ClientState) VerifyNonMembership(ctx sdk.Context, clientStore storetypes.KVStore, cdc codec.BinaryCodec, height ibcexported.Height, delayTimePeriod uint64, delayBlockPeriod uint64, proof []byte, path ibcexported.Path) error {
	if !bytes.Equal(proof, makeProof([]byte(path.(fmt.Stringer).String()))) {
		return errors.New("invalid absence proof")
	}
	return nil
}

func (cs *ClientState) VerifyClientMessage(ctx sdk.Context, cdc codec.BinaryCodec, clientStore storetypes.KVStore, clientMsg ibcexported.ClientMessage) error {
	if _, ok := clientMsg.(*Header); !ok {
		return fmt.Errorf("unexpected client message type: %T", clientMsg)
	}
	return nil
}

func (cs *ClientState) CheckForMisbehaviour(ctx sdk.Context, cdc codec.BinaryCodec, clientStore storetypes.KVStore, clientMsg ibcexported.ClientMessage) bool {
	return false
}

func (cs *ClientState) UpdateStateOnMisbehaviour(ctx sdk.Context, cdc codec.BinaryCodec, clientStore storetypes.KVStore, clientMsg ibcexported.ClientMessage) {
}

func (cs *ClientState) UpdateState(ctx sdk.Context, cdc codec.BinaryCodec, clientStore storetypes.KVStore, clientMsg ibcexported.ClientMessage) []ibcexported.Height {
	header, ok := clientMsg.(*Header)
	if !ok {
		return nil
	}
	return []ibcexported.Height{*header.Height}
}

func (cs *ClientState) CheckSubstituteAndUpdateState(ctx sdk.Context, cdc codec.BinaryCodec, subjectClientStore, substituteClientStore storetypes.KVStore, substituteClient ibcexported.ClientState) error {
	return errors.New("not supported")
}

func (cs *ClientState) VerifyUpgradeAndUpdateState(ctx sdk.Context, cdc codec.BinaryCodec, store storetypes.KVStore, newClient ibcexported.ClientState, newConsState ibcexported.ConsensusState, upgradeClientProof, upgradeConsensusStateProof []byte) error {
	return errors.New("not supported")
}

func (cs *ConsensusState) ClientType() string {
	return ClientType
}

func (cs *ConsensusState) GetTimestamp() uint64 {
	return cs.Timestamp
}

func (cs *ConsensusState) ValidateBasic() error {
	if cs.Timestamp == 0 {
		return errors.New("timestamp must not be zero")
	}
	return nil
}

func (h *Header) ClientType() string {
	return ClientType
}

// GetHeight returns the height of the header
func (h *Header) GetHeight() ibcexported.Height {
	if h.Height == nil {
		return clienttypes.ZeroHeight()
	}
	return *h.Height
}

func (h *Header) ValidateBasic() error {
	if h.Height == nil || h.Height.IsZero() {
		return errors.New("height must not be zero")
	}
	if h.Timestamp == 0 {
		return errors.New("timestamp must not be zero")
	}
	return nil
}
