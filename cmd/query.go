package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/cosmos/cosmos-sdk/client/flags"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
	"github.com/spf13/cobra"

	"github.com/aozora-labs/tsubame-relayer/config"
	"github.com/aozora-labs/tsubame-relayer/core"
)

// queryCmd represents the chain command
func queryCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "IBC Query Commands",
		Long:  "Commands to query IBC primitives, and other useful data on configured chains.",
	}

	cmd.AddCommand(
		queryUnrelayedPackets(ctx),
		queryUnrelayedAcknowledgements(ctx),
		queryClientCmd(ctx),
		queryConnection(ctx),
		queryChannel(ctx),
	)

	return cmd
}

func queryHeight(cmd *cobra.Command, chain *core.ProvableChain) (ibcexported.Height, error) {
	height, err := cmd.Flags().GetUint64(flags.FlagHeight)
	if err != nil {
		return nil, err
	}
	latestHeight, err := chain.LatestHeight(cmd.Context())
	if err != nil {
		return nil, err
	}
	if height == 0 {
		return latestHeight, nil
	}
	return clienttypes.NewHeight(latestHeight.GetRevisionNumber(), height), nil
}

func queryClientCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client [path-name] [chain-id]",
		Short: "Query the state of a client in a given path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chains, _, _, err := ctx.Config.ChainsFromPath(args[0])
			if err != nil {
				return err
			}
			c := chains[args[1]]

			height, err := queryHeight(cmd, c)
			if err != nil {
				return err
			}
			res, err := c.QueryClientState(core.NewQueryContext(cmd.Context(), height))
			if err != nil {
				return err
			}
			var cs ibcexported.ClientState
			if err := c.Codec().UnpackAny(res.ClientState, &cs); err != nil {
				return err
			}
			fmt.Println(cs)
			return nil
		},
	}

	return heightFlag(cmd)
}

func queryConnection(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connection [path-name] [chain-id]",
		Short: "Query the connection state for the given connection id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chains, _, _, err := ctx.Config.ChainsFromPath(args[0])
			if err != nil {
				return err
			}
			c := chains[args[1]]

			height, err := queryHeight(cmd, c)
			if err != nil {
				return err
			}
			res, err := c.QueryConnection(core.NewQueryContext(cmd.Context(), height), c.Path().ConnectionID)
			if err != nil {
				return err
			}
			fmt.Println(res.Connection.String())
			return nil
		},
	}

	return heightFlag(cmd)
}

func queryChannel(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel [path-name] [chain-id]",
		Short: "Query the channel state for the given channel id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chains, _, _, err := ctx.Config.ChainsFromPath(args[0])
			if err != nil {
				return err
			}
			c := chains[args[1]]

			height, err := queryHeight(cmd, c)
			if err != nil {
				return err
			}
			res, err := c.QueryChannel(core.NewQueryContext(cmd.Context(), height))
			if err != nil {
				return err
			}
			fmt.Println(res.Channel.String())
			return nil
		},
	}

	return heightFlag(cmd)
}

func queryUnrelayedPackets(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unrelayed-packets [path]",
		Short: "Query for the packet sequence numbers that remain to be relayed on a given path",
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
			sh, err := core.NewSyncHeaders(cmd.Context(), c[src], c[dst])
			if err != nil {
				return err
			}
			st, err := core.GetStrategy(*path.Strategy)
			if err != nil {
				return err
			}
			sp, err := st.UnrelayedPackets(cmd.Context(), c[src], c[dst], sh, true)
			if err != nil {
				return err
			}

			// Some use cases need `{"src":[],"dst":[]}` instead of `{"src":null,"dst":null}`
			if sp.Src == nil {
				sp.Src = core.PacketInfoList{}
			}
			if sp.Dst == nil {
				sp.Dst = core.PacketInfoList{}
			}

			out, err := json.Marshal(sp)
			if err != nil {
				return err
			}

			fmt.Println(string(out))
			return nil
		},
	}

	return cmd
}

func queryUnrelayedAcknowledgements(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unrelayed-acknowledgements [path]",
		Short: "Query for the acknowledgement sequence numbers that remain to be relayed on a given path",
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
			sh, err := core.NewSyncHeaders(cmd.Context(), c[src], c[dst])
			if err != nil {
				return err
			}
			st, err := core.GetStrategy(*path.Strategy)
			if err != nil {
				return err
			}

			sp, err := st.UnrelayedAcknowledgements(cmd.Context(), c[src], c[dst], sh, true)
			if err != nil {
				return err
			}

			// Some use cases need `{"src":[],"dst":[]}` instead of `{"src":null,"dst":null}`
			if sp.Src == nil {
				sp.Src = core.PacketInfoList{}
			}
			if sp.Dst == nil {
				sp.Dst = core.PacketInfoList{}
			}

			out, err := json.Marshal(sp)
			if err != nil {
				return err
			}

			fmt.Println(string(out))
			return nil
		},
	}

	return cmd
}
