package tendermint

import (
	"testing"

	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	"github.com/stretchr/testify/require"
)

func validChainConfig() ChainConfig {
	return ChainConfig{
		Key:                  "relayer",
		KeyringBackend:       keyring.BackendTest,
		ChainId:              "ibc0",
		TmChainId:            "ibc0",
		RpcAddr:              "http://localhost:26657",
		AccountPrefix:        "cosmos",
		GasAdjustment:        1.5,
		GasPrices:            "0.025stake",
		AverageBlockTimeMsec: 1000,
		MaxRetryForCommit:    5,
	}
}

func TestChainConfigValidate(t *testing.T) {
	require.NoError(t, validChainConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*ChainConfig)
	}{
		{"unknown keyring backend", func(c *ChainConfig) { c.KeyringBackend = "vault" }},
		{"empty key", func(c *ChainConfig) { c.Key = "" }},
		{"empty chain id", func(c *ChainConfig) { c.ChainId = " " }},
		{"empty tm chain id", func(c *ChainConfig) { c.TmChainId = "" }},
		{"empty rpc addr", func(c *ChainConfig) { c.RpcAddr = "" }},
		{"empty account prefix", func(c *ChainConfig) { c.AccountPrefix = "" }},
		{"non-positive gas adjustment", func(c *ChainConfig) { c.GasAdjustment = 0 }},
		{"empty gas prices", func(c *ChainConfig) { c.GasPrices = "" }},
		{"zero average block time", func(c *ChainConfig) { c.AverageBlockTimeMsec = 0 }},
		{"zero max retry", func(c *ChainConfig) { c.MaxRetryForCommit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validChainConfig()
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestChainConfigValidateCollectsAllErrors(t *testing.T) {
	c := validChainConfig()
	c.Key = ""
	c.RpcAddr = ""
	err := c.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), `config attribute "key" is empty`)
	require.Contains(t, err.Error(), `config attribute "rpc_addr" is empty`)
}

func TestProverConfigValidate(t *testing.T) {
	valid := ProverConfig{
		TrustingPeriod:       "336h",
		RefreshThresholdRate: &Fraction{Numerator: 2, Denominator: 3},
	}
	require.NoError(t, valid.Validate())
	require.Equal(t, "336h0m0s", valid.GetTrustingPeriod().String())

	tests := []struct {
		name   string
		config ProverConfig
	}{
		{"invalid trusting period", ProverConfig{TrustingPeriod: "two weeks", RefreshThresholdRate: &Fraction{Numerator: 2, Denominator: 3}}},
		{"missing rate", ProverConfig{TrustingPeriod: "336h"}},
		{"zero denominator", ProverConfig{TrustingPeriod: "336h", RefreshThresholdRate: &Fraction{Numerator: 1, Denominator: 0}}},
		{"zero numerator", ProverConfig{TrustingPeriod: "336h", RefreshThresholdRate: &Fraction{Numerator: 0, Denominator: 3}}},
		{"rate above one", ProverConfig{TrustingPeriod: "336h", RefreshThresholdRate: &Fraction{Numerator: 4, Denominator: 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.config.Validate())
		})
	}
}
