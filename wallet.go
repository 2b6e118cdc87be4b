package main

import (
	"encoding/hex"
	"fmt"

	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a keypair and print its address and seed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := ledger.NewKeypair()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "address: %s\n", kp.Address())
		fmt.Fprintf(out, "seed:    %s\n", hex.EncodeToString(kp.Seed()))
		return nil
	},
}

var airdropCmd = &cobra.Command{
	Use:   "airdrop <address> <amount>",
	Short: "Credit an address on the local ledger so it can pay fees",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress("address", args[0])
		if err != nil {
			return err
		}
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %s: %w", args[1], err)
		}

		n, err := openNode(cmd)
		if err != nil {
			return err
		}
		defer n.Close()

		balance, err := n.ledger.Airdrop(cmd.Context(), addr, amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s balance %s\n", addr, balance)
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Show the fee balance of an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress("address", args[0])
		if err != nil {
			return err
		}
		n, err := openNode(cmd)
		if err != nil {
			return err
		}
		defer n.Close()

		balance, err := n.ledger.Balance(cmd.Context(), addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s balance %s\n", addr, balance)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd, airdropCmd, balanceCmd)
}
