package cmd

import (
	"strings"

	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
	"github.com/spf13/cobra"

	"github.com/aozora-labs/tsubame-relayer/config"
	"github.com/aozora-labs/tsubame-relayer/core"
)

// transactionCmd represents the tx command
func transactionCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "IBC Transaction Commands",
		Long: strings.TrimSpace(`Commands to create IBC transactions on configured chains.
		Most of these commands take a '[path]' argument. Make sure:
	1. Chains are properly configured to relay over by using the 'tsubame chains list' command
	2. Path is properly configured to relay over by using the 'tsubame paths list' command`),
	}

	cmd.AddCommand(
		createClientsCmd(ctx),
		updateClientsCmd(ctx),
		relayMsgsCmd(ctx),
		relayAcksCmd(ctx),
	)

	return cmd
}

func createClientsCmd(ctx *config.Context) *cobra.Command {
	const (
		flagSrcHeight = "src-height"
		flagDstHeight = "dst-height"
	)
	cmd := &cobra.Command{
		Use:   "clients [path-name]",
		Short: "create a clients between two configured chains with a configured path",
		Long: "Creates a working ibc client for chain configured on each end of the" +
			" path by querying headers from each chain and then sending the corresponding create-client messages",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, src, dst, err := ctx.Config.ChainsFromPath(args[0])
			if err != nil {
				return err
			}

			// ensure that keys exist
			if _, err = c[src].GetAddress(); err != nil {
				return err
			}
			if _, err = c[dst].GetAddress(); err != nil {
				return err
			}

			var srcHeight, dstHeight ibcexported.Height
			if h, err := cmd.Flags().GetUint64(flagSrcHeight); err != nil {
				return err
			} else if h > 0 {
				latest, err := c[src].LatestHeight(cmd.Context())
				if err != nil {
					return err
				}
				srcHeight = clienttypes.NewHeight(latest.GetRevisionNumber(), h)
			}
			if h, err := cmd.Flags().GetUint64(flagDstHeight); err != nil {
				return err
			} else if h > 0 {
				latest, err := c[dst].LatestHeight(cmd.Context())
				if err != nil {
					return err
				}
				dstHeight = clienttypes.NewHeight(latest.GetRevisionNumber(), h)
			}

			return core.CreateClients(cmd.Context(), args[0], c[src], c[dst], srcHeight, dstHeight)
		},
	}
	cmd.Flags().Uint64(flagSrcHeight, 0, "src chain height at which the client state of the dst chain is created")
	cmd.Flags().Uint64(flagDstHeight, 0, "dst chain height at which the client state of the src chain is created")
	return cmd
}

func updateClientsCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-clients [path-name]",
		Short: "update the clients on both ends of the path to the latest finalized headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, src, dst, err := ctx.Config.ChainsFromPath(args[0])
			if err != nil {
				return err
			}
			return core.UpdateClients(cmd.Context(), c[src], c[dst])
		},
	}
	return cmd
}

func relayMsgsCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay [path-name]",
		Short: "relay any packets that remain to be relayed on a given path, in both directions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, src, dst, err := ctx.Config.ChainsFromPath(args[0])
			if err != nil {
				return err
			}
			path, err := ctx.Config.Paths.Get(args[0])
			if err != nil {
				return err
			}
			st, err := core.GetStrategy(*path.Strategy)
			if err != nil {
				return err
			}
			sh, err := core.NewSyncHeaders(cmd.Context(), c[src], c[dst])
			if err != nil {
				return err
			}
			sp, err := st.UnrelayedPackets(cmd.Context(), c[src], c[dst], sh, false)
			if err != nil {
				return err
			}

			msgs := core.NewRelayMsgs()

			// a timed-out packet sends its proof back to the chain it was sent from
			needSrc := len(sp.Dst) > 0
			needDst := len(sp.Src) > 0
			for _, p := range sp.Src {
				if p.TimedOut {
					needSrc = true
				}
			}
			for _, p := range sp.Dst {
				if p.TimedOut {
					needDst = true
				}
			}
			if m, err := st.UpdateClients(cmd.Context(), c[src], c[dst], needSrc, needDst, sh); err != nil {
				return err
			} else {
				msgs.Merge(m)
			}

			if m, err := st.RelayPackets(cmd.Context(), c[src], c[dst], sp, sh); err != nil {
				return err
			} else {
				msgs.Merge(m)
			}

			st.Send(cmd.Context(), c[src], c[dst], msgs)
			return nil
		},
	}
	return cmd
}

func relayAcksCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "relay-acknowledgements [path-name]",
		Aliases: []string{"acks"},
		Short:   "relay any acknowledgements that remain to be relayed on a given path, in both directions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, src, dst, err := ctx.Config.ChainsFromPath(args[0])
			if err != nil {
				return err
			}
			path, err := ctx.Config.Paths.Get(args[0])
			if err != nil {
				return err
			}
			st, err := core.GetStrategy(*path.Strategy)
			if err != nil {
				return err
			}
			sh, err := core.NewSyncHeaders(cmd.Context(), c[src], c[dst])
			if err != nil {
				return err
			}
			sp, err := st.UnrelayedAcknowledgements(cmd.Context(), c[src], c[dst], sh, false)
			if err != nil {
				return err
			}

			msgs := core.NewRelayMsgs()

			if m, err := st.UpdateClients(cmd.Context(), c[src], c[dst], len(sp.Dst) > 0, len(sp.Src) > 0, sh); err != nil {
				return err
			} else {
				msgs.Merge(m)
			}

			if m, err := st.RelayAcknowledgements(cmd.Context(), c[src], c[dst], sp, sh); err != nil {
				return err
			} else {
				msgs.Merge(m)
			}

			st.Send(cmd.Context(), c[src], c[dst], msgs)
			return nil
		},
	}
	return cmd
}
