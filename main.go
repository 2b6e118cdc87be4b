package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/MixinNetwork/nfcore/nft"
	"github.com/MixinNetwork/nfcore/store"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "~/.nfcore/config.toml"

var (
	configPath string
	dataPath   string
	payerSeed  string
)

var rootCmd = &cobra.Command{
	Use:           "nfcore",
	Short:         "Collections, assets and royalty enforced transfers on a local ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "configuration file path")
	rootCmd.PersistentFlags().StringVarP(&dataPath, "data", "d", "", "database directory path, overrides the configuration")
	rootCmd.PersistentFlags().StringVar(&payerSeed, "payer", "", "payer seed in hex, overrides the configuration")
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type node struct {
	conf   *ledger.Configuration
	store  *store.BadgerStore
	ledger *ledger.Local
	client *nft.Client
	cancel context.CancelFunc
}

func loadConfiguration(cmd *cobra.Command) (*ledger.Configuration, error) {
	path := ledger.ExpandHome(configPath)
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return ledger.Setup(path)
	case os.IsNotExist(err) && !cmd.Flags().Changed("config"):
		return ledger.DefaultConfiguration(), nil
	}
	return nil, fmt.Errorf("config load failed (%s): %w", configPath, err)
}

func openNode(cmd *cobra.Command) (*node, error) {
	conf, err := loadConfiguration(cmd)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(conf.Log.Level)
	if dataPath != "" {
		conf.Store.Path = ledger.ExpandHome(dataPath)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	db, err := store.OpenBadger(ctx, conf.Store.Path)
	if err != nil {
		cancel()
		return nil, err
	}
	return startNode(ctx, cancel, conf, db)
}

func startNode(ctx context.Context, cancel context.CancelFunc, conf *ledger.Configuration, db *store.BadgerStore) (*node, error) {
	local, err := ledger.NewLocal(db, conf)
	if err != nil {
		cancel()
		db.Close()
		return nil, err
	}
	go local.Run(ctx)
	return &node{
		conf:   conf,
		store:  db,
		ledger: local,
		client: nft.NewClient(local, nft.OptionsFromConfiguration(conf)),
		cancel: cancel,
	}, nil
}

func (n *node) Close() {
	n.cancel()
	err := n.store.Close()
	if err != nil {
		logger.Printf("node.Close() => %v\n", err)
	}
}

func (n *node) payer() (*ledger.Keypair, error) {
	if payerSeed != "" {
		return parseKeypair("payer", payerSeed)
	}
	kp, err := n.conf.PayerKeypair()
	if err != nil {
		return nil, fmt.Errorf("payer unavailable, set --payer or [payer] seed: %w", err)
	}
	return kp, nil
}

func parseKeypair(name, seed string) (*ledger.Keypair, error) {
	b, err := hex.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid %s seed: %w", name, err)
	}
	kp, err := ledger.KeypairFromSeed(b)
	if err != nil {
		return nil, fmt.Errorf("invalid %s seed: %w", name, err)
	}
	return kp, nil
}

func parseAddress(name, s string) (ledger.Address, error) {
	addr, err := ledger.AddressFromString(s)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", name, err)
	}
	return addr, nil
}
