package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/cosmos/cosmos-sdk/codec"
	"github.com/spf13/cobra"

	"github.com/aozora-labs/tsubame-relayer/chains/tendermint"
	"github.com/aozora-labs/tsubame-relayer/core"
)

func configCmd(m codec.Codec) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "manage configuration file",
	}

	cmd.AddCommand(
		generateChainConfigCmd(m),
	)

	return cmd
}

func generateChainConfigCmd(m codec.Codec) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [chain-id]",
		Short: "print a chain config template for a chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// TODO make it configurable
			chainConfig := tendermint.ChainConfig{
				Key:                  "testkey",
				KeyringBackend:       "test",
				ChainId:              args[0],
				TmChainId:            args[0],
				RpcAddr:              "http://localhost:26657",
				AccountPrefix:        "cosmos",
				GasAdjustment:        1.5,
				GasPrices:            "0.025stake",
				AverageBlockTimeMsec: 1000,
				MaxRetryForCommit:    5,
			}
			proverConfig := tendermint.ProverConfig{
				TrustingPeriod: "336h",
				RefreshThresholdRate: &tendermint.Fraction{
					Numerator:   2,
					Denominator: 3,
				},
			}
			config, err := core.NewChainProverConfig(m, &chainConfig, &proverConfig)
			if err != nil {
				return err
			}
			bz, err := json.MarshalIndent(config, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return nil
		},
	}
	return cmd
}
