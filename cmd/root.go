package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aozora-labs/tsubame-relayer/config"
	"github.com/aozora-labs/tsubame-relayer/core"
	"github.com/aozora-labs/tsubame-relayer/log"
	"github.com/aozora-labs/tsubame-relayer/metrics"
)

const configPath = "config/config.yaml"

var (
	homePath    string
	debug       bool
	defaultHome = filepath.Join(os.Getenv("HOME"), ".tsubame-relayer")
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(modules ...config.ModuleI) error {
	cobra.EnableCommandSorting = false

	ctx := &config.Context{
		Modules: modules,
		Codec:   makeCodec(modules),
	}

	// rootCmd represents the base command when called without any subcommands
	rootCmd := &cobra.Command{
		Use:          "tsubame",
		Short:        "This application relays data between configured IBC enabled chains",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&homePath, flags.FlagHome, defaultHome, "set home directory")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug output")
	if err := viper.BindPFlag(flags.FlagHome, rootCmd.PersistentFlags().Lookup(flags.FlagHome)); err != nil {
		return err
	}
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return err
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// reads `homeDir/config/config.yaml` into `ctx.Config` before each command
		if err := initConfig(ctx, cmd); err != nil {
			return err
		}
		if err := initLogger(ctx); err != nil {
			return err
		}
		if err := initMetrics(ctx); err != nil {
			return err
		}
		return nil
	}

	rootCmd.AddCommand(
		configCmd(ctx),
		chainsCmd(ctx),
		pathsCmd(ctx),
		transactionCmd(ctx),
		queryCmd(ctx),
		serviceCmd(ctx),
		modulesCmd(ctx),
	)

	// Register each module's subcommand if it provides one
	for _, module := range modules {
		if cmd := module.GetCmd(ctx); cmd != nil {
			rootCmd.AddCommand(cmd)
		}
	}

	return rootCmd.Execute()
}

func makeCodec(modules []config.ModuleI) codec.ProtoCodecMarshaler {
	registry := codectypes.NewInterfaceRegistry()
	core.RegisterInterfaces(registry)
	for _, m := range modules {
		m.RegisterInterfaces(registry)
	}
	return codec.NewProtoCodec(registry)
}

func initLogger(ctx *config.Context) error {
	c := ctx.Config.Global.LoggerConfig
	return log.InitLogger(c.Level, c.Format, c.Output, debug)
}

func initMetrics(ctx *config.Context) error {
	c := ctx.Config.Global.MetricsConfig
	switch c.Exporter {
	case "", "null":
		return metrics.InitializeMetrics(metrics.ExporterNull{})
	case "prometheus":
		return metrics.InitializeMetrics(metrics.ExporterProm{Addr: c.Address})
	default:
		return fmt.Errorf("unknown metrics exporter: %s", c.Exporter)
	}
}

func noCommand(cmd *cobra.Command, args []string) error {
	cmd.Help()
	return fmt.Errorf("unknown command: %s", cmd.Use)
}
