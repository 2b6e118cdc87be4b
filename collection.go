package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/MixinNetwork/nfcore/nft"
	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Create and inspect collections",
}

var collectionCreateFlags struct {
	name        string
	uri         string
	authority   string
	basisPoints int
	creators    []string
	ruleSet     string
	programs    []string
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a collection, optionally enforcing royalties",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := collectionCreateFlags
		plugins, err := royaltiesFromFlags(f.basisPoints, f.creators, f.ruleSet, f.programs)
		if err != nil {
			return err
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
		authority := payer.Address()
		if f.authority != "" {
			authority, err = parseAddress("authority", f.authority)
			if err != nil {
				return err
			}
		}

		c, err := n.client.Collections.CreateCollection(cmd.Context(), payer, nft.CollectionRequest{
			Name:            f.name,
			URI:             f.uri,
			UpdateAuthority: authority,
			Plugins:         plugins,
		})
		if err != nil {
			return err
		}
		printCollection(cmd.OutOrStdout(), c)
		return nil
	},
}

var collectionShowCmd = &cobra.Command{
	Use:   "show <address>",
	Short: "Show a collection and its plugins",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress("collection", args[0])
		if err != nil {
			return err
		}
		n, err := openNode(cmd)
		if err != nil {
			return err
		}
		defer n.Close()

		c, err := n.client.FetchCollection(cmd.Context(), addr)
		if err != nil {
			return err
		}
		printCollection(cmd.OutOrStdout(), c)
		return nil
	},
}

func init() {
	f := collectionCreateCmd.Flags()
	f.StringVar(&collectionCreateFlags.name, "name", "", "collection name")
	f.StringVar(&collectionCreateFlags.uri, "uri", "", "collection metadata uri")
	f.StringVar(&collectionCreateFlags.authority, "authority", "", "update authority address, defaults to the payer")
	f.IntVar(&collectionCreateFlags.basisPoints, "royalty-bp", 0, "royalty basis points")
	f.StringArrayVar(&collectionCreateFlags.creators, "creator", nil, "royalty creator as address:percentage, repeatable")
	f.StringVar(&collectionCreateFlags.ruleSet, "rule-set", "none", "royalty rule set: none, allow or deny")
	f.StringArrayVar(&collectionCreateFlags.programs, "program", nil, "program listed by the rule set, repeatable")
	collectionCreateCmd.MarkFlagRequired("name")
	collectionCreateCmd.MarkFlagRequired("uri")

	collectionCmd.AddCommand(collectionCreateCmd, collectionShowCmd)
	rootCmd.AddCommand(collectionCmd)
}

// royaltiesFromFlags builds the royalties plugin when any creator is given.
// Validation of the values is left to the plugin registry.
func royaltiesFromFlags(bp int, creators []string, ruleSet string, programs []string) ([]nft.Plugin, error) {
	if len(creators) == 0 {
		if len(programs) > 0 || bp != 0 {
			return nil, fmt.Errorf("royalties need at least one --creator")
		}
		return nil, nil
	}
	r := nft.Royalties{BasisPoints: bp}
	for _, c := range creators {
		addr, pct, found := strings.Cut(c, ":")
		if !found {
			return nil, fmt.Errorf("invalid creator %s, want address:percentage", c)
		}
		p, err := strconv.Atoi(pct)
		if err != nil {
			return nil, fmt.Errorf("invalid creator percentage %s: %w", c, err)
		}
		r.Creators = append(r.Creators, nft.Creator{Address: ledger.Address(addr), Percentage: p})
	}

	var list []ledger.Address
	for _, p := range programs {
		list = append(list, ledger.Address(p))
	}
	switch strings.ToLower(ruleSet) {
	case "", "none":
		r.RuleSet = nft.NoRuleSet()
	case "allow":
		r.RuleSet = nft.ProgramAllowList(list...)
	case "deny":
		r.RuleSet = nft.ProgramDenyList(list...)
	default:
		return nil, fmt.Errorf("invalid rule set %s", ruleSet)
	}
	return []nft.Plugin{nft.RoyaltiesPlugin(r)}, nil
}
