package main

import (
	"fmt"

	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/spf13/cobra"
)

var mutationCmd = &cobra.Command{
	Use:   "mutation",
	Short: "Inspect submitted mutations",
}

var mutationStatusCmd = &cobra.Command{
	Use:   "status <trace-id>",
	Short: "Resolve the outcome of a submitted mutation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := openNode(cmd)
		if err != nil {
			return err
		}
		defer n.Close()

		status, err := n.client.MutationStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], status)
		return nil
	},
}

var mutationListFlags struct {
	state string
	limit int
}

var mutationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mutations in a state, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := ledger.ParseMutationState(mutationListFlags.state)
		if err != nil {
			return err
		}
		n, err := openNode(cmd)
		if err != nil {
			return err
		}
		defer n.Close()

		ms, err := n.ledger.ListMutations(cmd.Context(), state, mutationListFlags.limit)
		if err != nil {
			return err
		}
		printMutations(cmd.OutOrStdout(), ms)
		return nil
	},
}

func init() {
	mutationListCmd.Flags().StringVar(&mutationListFlags.state, "state", "confirmed", "pending, confirmed or rejected")
	mutationListCmd.Flags().IntVar(&mutationListFlags.limit, "limit", 100, "maximum number of mutations")

	mutationCmd.AddCommand(mutationStatusCmd, mutationListCmd)
	rootCmd.AddCommand(mutationCmd)
}
