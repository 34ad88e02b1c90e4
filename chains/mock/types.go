package mock

import (
	proto "github.com/cosmos/gogoproto/proto"

	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
)

// ChainConfig configures an in-memory chain used for local development and
// testing
type ChainConfig struct {
	ChainId string `protobuf:"bytes,1,opt,name=chain_id,json=chainId,proto3" json:"chain_id,omitempty"`
	// initial block timestamp in unix nanoseconds; zero means process start time
	GenesisTimeNanos uint64 `protobuf:"varint,2,opt,name=genesis_time_nanos,json=genesisTimeNanos,proto3" json:"genesis_time_nanos,omitempty"`
}

func (m *ChainConfig) Reset()         { *m = ChainConfig{} }
func (m *ChainConfig) String() string { return proto.CompactTextString(m) }
func (*ChainConfig) ProtoMessage()    {}

// ProverConfig configures the mock prover. It has no parameters.
type ProverConfig struct{}

func (m *ProverConfig) Reset()         { *m = ProverConfig{} }
func (m *ProverConfig) String() string { return proto.CompactTextString(m) }
func (*ProverConfig) ProtoMessage()    {}

// ClientState is the client state of the mock light client. It only tracks
// the latest height of the target chain.
type ClientState struct {
	LatestHeight *clienttypes.Height `protobuf:"bytes,1,opt,name=latest_height,json=latestHeight,proto3" json:"latest_height,omitempty"`
}

func (m *ClientState) Reset()         { *m = ClientState{} }
func (m *ClientState) String() string { return proto.CompactTextString(m) }
func (*ClientState) ProtoMessage()    {}

// ConsensusState is the consensus state of the mock light client
type ConsensusState struct {
	Timestamp uint64 `protobuf:"varint,1,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

func (m *ConsensusState) Reset()         { *m = ConsensusState{} }
func (m *ConsensusState) String() string { return proto.CompactTextString(m) }
func (*ConsensusState) ProtoMessage()    {}

// Header is the update message of the mock light client
type Header struct {
	Height    *clienttypes.Height `protobuf:"bytes,1,opt,name=height,proto3" json:"height,omitempty"`
	Timestamp uint64              `protobuf:"varint,2,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

func (m *Header) Reset()         { *m = Header{} }
func (m *Header) String() string { return proto.CompactTextString(m) }
func (*Header) ProtoMessage()    {}

func init() {
	proto.RegisterType((*ChainConfig)(nil), "tsubame.chains.mock.config.ChainConfig")
	proto.RegisterType((*ProverConfig)(nil), "tsubame.chains.mock.config.ProverConfig")
	proto.RegisterType((*ClientState)(nil), "tsubame.lightclients.mock.ClientState")
	proto.RegisterType((*ConsensusState)(nil), "tsubame.lightclients.mock.ConsensusState")
	proto.RegisterType((*Header)(nil), "tsubame.lightclients.mock.Header")
}
