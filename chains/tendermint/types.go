package tendermint

import (
	fmt "fmt"

	proto "github.com/cosmos/gogoproto/proto"
)

// ChainConfig defines the connection parameters of a CometBFT chain.
// It is registered as a protobuf Any implementation of core.ChainConfig
// and marshaled with gogoproto's reflection-based codec.
type ChainConfig struct {
	Key            string `protobuf:"bytes,1,opt,name=key,proto3" json:"key,omitempty"`
	KeyringBackend string `protobuf:"bytes,2,opt,name=keyring_backend,json=keyringBackend,proto3" json:"keyring_backend,omitempty"`
	ChainId        string `protobuf:"bytes,3,opt,name=chain_id,json=chainId,proto3" json:"chain_id,omitempty"`
	// chain ID used by the CometBFT consensus layer; usually equals chain_id
	TmChainId            string  `protobuf:"bytes,4,opt,name=tm_chain_id,json=tmChainId,proto3" json:"tm_chain_id,omitempty"`
	RpcAddr              string  `protobuf:"bytes,5,opt,name=rpc_addr,json=rpcAddr,proto3" json:"rpc_addr,omitempty"`
	AccountPrefix        string  `protobuf:"bytes,6,opt,name=account_prefix,json=accountPrefix,proto3" json:"account_prefix,omitempty"`
	GasAdjustment        float64 `protobuf:"fixed64,7,opt,name=gas_adjustment,json=gasAdjustment,proto3" json:"gas_adjustment,omitempty"`
	GasPrices            string  `protobuf:"bytes,8,opt,name=gas_prices,json=gasPrices,proto3" json:"gas_prices,omitempty"`
	AverageBlockTimeMsec uint64  `protobuf:"varint,9,opt,name=average_block_time_msec,json=averageBlockTimeMsec,proto3" json:"average_block_time_msec,omitempty"`
	MaxRetryForCommit    uint64  `protobuf:"varint,10,opt,name=max_retry_for_commit,json=maxRetryForCommit,proto3" json:"max_retry_for_commit,omitempty"`
}

func (m *ChainConfig) Reset()         { *m = ChainConfig{} }
func (m *ChainConfig) String() string { return proto.CompactTextString(m) }
func (*ChainConfig) ProtoMessage()    {}

// ProverConfig defines the light client parameters of a CometBFT chain
type ProverConfig struct {
	TrustingPeriod string `protobuf:"bytes,1,opt,name=trusting_period,json=trustingPeriod,proto3" json:"trusting_period,omitempty"`
	// the client is refreshed when refresh_threshold_rate of the trusting
	// period has elapsed since the last on-chain consensus state
	RefreshThresholdRate *Fraction `protobuf:"bytes,2,opt,name=refresh_threshold_rate,json=refreshThresholdRate,proto3" json:"refresh_threshold_rate,omitempty"`
}

func (m *ProverConfig) Reset()         { *m = ProverConfig{} }
func (m *ProverConfig) String() string { return proto.CompactTextString(m) }
func (*ProverConfig) ProtoMessage()    {}

// Fraction is a positive rational number
type Fraction struct {
	Numerator   uint64 `protobuf:"varint,1,opt,name=numerator,proto3" json:"numerator,omitempty"`
	Denominator uint64 `protobuf:"varint,2,opt,name=denominator,proto3" json:"denominator,omitempty"`
}

func (m *Fraction) Reset()         { *m = Fraction{} }
func (m *Fraction) String() string { return fmt.Sprintf("%d/%d", m.Numerator, m.Denominator) }
func (*Fraction) ProtoMessage()    {}

func init() {
	proto.RegisterType((*ChainConfig)(nil), "tsubame.chains.tendermint.config.ChainConfig")
	proto.RegisterType((*ProverConfig)(nil), "tsubame.chains.tendermint.config.ProverConfig")
	proto.RegisterType((*Fraction)(nil), "tsubame.chains.tendermint.config.Fraction")
}
