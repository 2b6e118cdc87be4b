package main

import (
	"fmt"

	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/MixinNetwork/nfcore/nft"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Mint, transfer and query assets",
}

var assetMintFlags struct {
	name       string
	uri        string
	collection string
	authority  string
	owner      string
}

var assetMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint an asset into a collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := assetMintFlags
		caddr, err := parseAddress("collection", f.collection)
		if err != nil {
			return err
		}
		var owner ledger.Address
		if f.owner != "" {
			owner, err = parseAddress("owner", f.owner)
			if err != nil {
				return err
			}
		}

		n, err := openNode(cmd)
		if err != nil {
			return err
		}
		defer n.Close()

		payer, err := n.payer()
		if err != nil {
			return err
		}
		authority := payer
		if f.authority != "" {
			authority, err = parseKeypair("authority", f.authority)
			if err != nil {
				return err
			}
		}
		coll, err := n.client.FetchCollection(cmd.Context(), caddr)
		if err != nil {
			return err
		}

		a, err := n.client.Assets.MintAsset(cmd.Context(), payer, authority, nft.MintRequest{
			Name:       f.name,
			URI:        f.uri,
			Collection: coll,
			Owner:      owner,
		})
		if err != nil {
			return err
		}
		printAsset(cmd.OutOrStdout(), a)
		return nil
	},
}

var assetShowCmd = &cobra.Command{
	Use:   "show <address>",
	Short: "Show an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress("asset", args[0])
		if err != nil {
			return err
		}
		n, err := openNode(cmd)
		if err != nil {
			return err
		}
		defer n.Close()

		a, err := n.client.FetchAsset(cmd.Context(), addr)
		if err != nil {
			return err
		}
		printAsset(cmd.OutOrStdout(), a)
		return nil
	},
}

var assetTransferFlags struct {
	owner   string
	program string
	price   string
}

var assetTransferCmd = &cobra.Command{
	Use:   "transfer <asset> <new-owner>",
	Short: "Transfer an asset to a new owner",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := assetTransferFlags
		aaddr, err := parseAddress("asset", args[0])
		if err != nil {
			return err
		}
		to, err := parseAddress("new owner", args[1])
		if err != nil {
			return err
		}
		var program ledger.Address
		if f.program != "" {
			program, err = parseAddress("program", f.program)
			if err != nil {
				return err
			}
		}

		n, err := openNode(cmd)
		if err != nil {
			return err
		}
		defer n.Close()

		owner, err := n.payer()
		if err != nil {
			return err
		}
		if f.owner != "" {
			owner, err = parseKeypair("owner", f.owner)
			if err != nil {
				return err
			}
		}
		a, err := n.client.FetchAsset(cmd.Context(), aaddr)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if f.price != "" {
			price, err := decimal.NewFromString(f.price)
			if err != nil {
				return fmt.Errorf("invalid price %s: %w", f.price, err)
			}
			fee, payouts, err := n.client.Transfers.QuoteRoyalties(cmd.Context(), a, price)
			if err != nil {
				return err
			}
			printRoyalties(out, fee, payouts)
		}

		moved, err := n.client.Transfers.Transfer(cmd.Context(), owner, nft.TransferRequest{
			Asset:    a,
			NewOwner: to,
			Program:  program,
		})
		if err != nil {
			return err
		}
		printAsset(out, moved)
		return nil
	},
}

var assetListFlags struct {
	owner      string
	collection string
	limit      int
}

var assetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assets by owner, collection or both",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := assetListFlags
		filter := nft.Filter{Limit: f.limit}
		if f.owner != "" {
			addr, err := parseAddress("owner", f.owner)
			if err != nil {
				return err
			}
			filter.Clauses = append(filter.Clauses, nft.ByOwner(addr))
		}
		if f.collection != "" {
			addr, err := parseAddress("collection", f.collection)
			if err != nil {
				return err
			}
			filter.Clauses = append(filter.Clauses, nft.ByCollection(addr))
		}
		if len(filter.Clauses) == 0 {
			return fmt.Errorf("set --owner, --collection or both")
		}

		n, err := openNode(cmd)
		if err != nil {
			return err
		}
		defer n.Close()

		assets, err := n.client.Index.Find(cmd.Context(), filter)
		if err != nil {
			return err
		}
		printAssets(cmd.OutOrStdout(), assets)
		return nil
	},
}

func init() {
	mf := assetMintCmd.Flags()
	mf.StringVar(&assetMintFlags.name, "name", "", "asset name")
	mf.StringVar(&assetMintFlags.uri, "uri", "", "asset metadata uri")
	mf.StringVar(&assetMintFlags.collection, "collection", "", "collection address")
	mf.StringVar(&assetMintFlags.authority, "authority", "", "collection update authority seed in hex, defaults to the payer")
	mf.StringVar(&assetMintFlags.owner, "owner", "", "initial owner address, defaults to the payer")
	assetMintCmd.MarkFlagRequired("name")
	assetMintCmd.MarkFlagRequired("uri")
	assetMintCmd.MarkFlagRequired("collection")

	tf := assetTransferCmd.Flags()
	tf.StringVar(&assetTransferFlags.owner, "owner", "", "current owner seed in hex, defaults to the payer")
	tf.StringVar(&assetTransferFlags.program, "program", "", "program executing the transfer")
	tf.StringVar(&assetTransferFlags.price, "price", "", "sale price to quote royalties for")

	lf := assetListCmd.Flags()
	lf.StringVar(&assetListFlags.owner, "owner", "", "owner address")
	lf.StringVar(&assetListFlags.collection, "collection", "", "collection address")
	lf.IntVar(&assetListFlags.limit, "limit", 0, "maximum number of assets, 0 for all")

	assetCmd.AddCommand(assetMintCmd, assetShowCmd, assetTransferCmd, assetListCmd)
	rootCmd.AddCommand(assetCmd)
}
