package main

import (
	"context"
	"fmt"
	"io"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/MixinNetwork/nfcore/nft"
	"github.com/MixinNetwork/nfcore/store"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var demoPersist bool

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the collection, mint, query and transfer walkthrough",
	Long: `Runs every core operation end to end with fresh keypairs:
airdrop, create a royalties collection, mint, query by owner and by
collection, transfer, then verify the new owner.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var n *node
		var err error
		if demoPersist {
			n, err = openNode(cmd)
		} else {
			n, err = openMemoryNode(cmd)
		}
		if err != nil {
			return err
		}
		defer n.Close()
		return runDemo(cmd.Context(), n, cmd.OutOrStdout())
	},
}

func init() {
	demoCmd.Flags().BoolVar(&demoPersist, "persist", false, "run against the configured database instead of memory")
	rootCmd.AddCommand(demoCmd)
}

func openMemoryNode(cmd *cobra.Command) (*node, error) {
	conf, err := loadConfiguration(cmd)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(conf.Log.Level)
	ctx, cancel := context.WithCancel(cmd.Context())
	db, err := store.OpenBadgerInMemory(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	return startNode(ctx, cancel, conf, db)
}

func runDemo(ctx context.Context, n *node, out io.Writer) error {
	keys := make([]*ledger.Keypair, 5)
	for i := range keys {
		kp, err := ledger.NewKeypair()
		if err != nil {
			return err
		}
		keys[i] = kp
	}
	payer, authority, creator1, creator2, recipient := keys[0], keys[1], keys[2], keys[3], keys[4]

	fmt.Fprintln(out, "1. Airdropping to:", payer.Address())
	balance, err := n.ledger.Airdrop(ctx, payer.Address(), decimal.NewFromInt(100))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "   balance", balance)

	fmt.Fprintln(out, "2. Creating collection")
	coll, err := n.client.Collections.CreateCollection(ctx, payer, nft.CollectionRequest{
		Name:            "Quick Collection",
		URI:             "https://example.com/collection.json",
		UpdateAuthority: authority.Address(),
		Plugins: []nft.Plugin{nft.RoyaltiesPlugin(nft.Royalties{
			BasisPoints: 500,
			Creators: []nft.Creator{
				{Address: creator1.Address(), Percentage: 20},
				{Address: creator2.Address(), Percentage: 80},
			},
			RuleSet: nft.NoRuleSet(),
		})},
	})
	if err != nil {
		return err
	}
	printCollection(out, coll)

	fmt.Fprintln(out, "3. Minting asset into", coll.Address)
	asset, err := n.client.Assets.MintAsset(ctx, payer, authority, nft.MintRequest{
		Name:       "Quick Asset #1",
		URI:        "https://example.com/asset-1.json",
		Collection: coll,
	})
	if err != nil {
		return err
	}
	printAsset(out, asset)

	fmt.Fprintln(out, "4. Fetching assets by owner:", payer.Address())
	owned, err := n.client.Index.FindByOwner(ctx, payer.Address())
	if err != nil {
		return err
	}
	printAssets(out, owned)

	fmt.Fprintln(out, "5. Fetching assets by collection:", coll.Address)
	members, err := n.client.Index.FindByCollection(ctx, coll.Address)
	if err != nil {
		return err
	}
	printAssets(out, members)

	fmt.Fprintln(out, "6. Transferring asset to:", recipient.Address())
	fee, payouts, err := n.client.Transfers.QuoteRoyalties(ctx, asset, decimal.NewFromInt(10))
	if err != nil {
		return err
	}
	printRoyalties(out, fee, payouts)
	moved, err := n.client.Transfers.Transfer(ctx, payer, nft.TransferRequest{
		Asset:    asset,
		NewOwner: recipient.Address(),
	})
	if err != nil {
		return err
	}
	printAsset(out, moved)

	fmt.Fprintln(out, "7. Verifying transfer for:", recipient.Address())
	fetched, err := n.client.FetchAsset(ctx, asset.Address)
	if err != nil {
		return err
	}
	if fetched.Owner != recipient.Address() {
		return fmt.Errorf("transfer failed: owner %s", fetched.Owner)
	}
	fmt.Fprintln(out, "Success !!!")
	return nil
}
