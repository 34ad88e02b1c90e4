package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aozora-labs/tsubame-relayer/chains/tendermint"
	"github.com/aozora-labs/tsubame-relayer/config"
	"github.com/aozora-labs/tsubame-relayer/coreutil"
)

func keysCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "manage keys held by the relayer for each chain",
	}

	cmd.AddCommand(
		keysAddCmd(ctx),
		keysRestoreCmd(ctx),
		keysDeleteCmd(ctx),
		keysListCmd(ctx),
		keysShowCmd(ctx),
	)

	return cmd
}

func keysAddCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "add [chain-id] [name]",
		Short: "add a key to the keychain associated with a particular chain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := getTendermintChain(ctx, args[0])
			if err != nil {
				return err
			}
			if chain.KeyExists(args[1]) {
				return errKeyExists(args[1])
			}
			addr, mnemonic, err := chain.AddKey(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "{\"name\":%q,\"address\":%q,\"mnemonic\":%q}\n", args[1], addr.String(), mnemonic)
			return nil
		},
	}
}

func keysRestoreCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "restore [chain-id] [name] [mnemonic]",
		Short: "restore a mnemonic to the keychain associated with a particular chain",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := getTendermintChain(ctx, args[0])
			if err != nil {
				return err
			}
			if chain.KeyExists(args[1]) {
				return errKeyExists(args[1])
			}
			addr, err := chain.RestoreKey(args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr.String())
			return nil
		},
	}
}

func keysDeleteCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [chain-id] [name]",
		Short: "delete a key from the keychain associated with a particular chain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := getTendermintChain(ctx, args[0])
			if err != nil {
				return err
			}
			if !chain.KeyExists(args[1]) {
				return errKeyDoesntExist(args[1])
			}
			return chain.DeleteKey(args[1])
		},
	}
}

func keysListCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "list [chain-id]",
		Short: "list keys associated with a particular chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := getTendermintChain(ctx, args[0])
			if err != nil {
				return err
			}
			records, err := chain.ListKeys()
			if err != nil {
				return err
			}
			for _, record := range records {
				addr, err := record.GetAddress()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", record.Name, addr.String())
			}
			return nil
		},
	}
}

func keysShowCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "show [chain-id] [name]",
		Short: "show the address of a key associated with a particular chain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := getTendermintChain(ctx, args[0])
			if err != nil {
				return err
			}
			if !chain.KeyExists(args[1]) {
				return errKeyDoesntExist(args[1])
			}
			records, err := chain.ListKeys()
			if err != nil {
				return err
			}
			for _, record := range records {
				if record.Name != args[1] {
					continue
				}
				addr, err := record.GetAddress()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), addr.String())
				return nil
			}
			return errKeyDoesntExist(args[1])
		},
	}
}

func getTendermintChain(ctx *config.Context, chainID string) (*tendermint.Chain, error) {
	pc, err := ctx.Config.GetChain(chainID)
	if err != nil {
		return nil, err
	}
	chain, err := coreutil.UnwrapChain[*tendermint.Chain](pc)
	if err != nil {
		return nil, fmt.Errorf("chain %s is not a tendermint chain: %v", chainID, err)
	}
	return chain, nil
}
