package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/MixinNetwork/nfcore/nft"
	"github.com/shopspring/decimal"
)

func printCollection(out io.Writer, c *nft.Collection) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "collection\t%s\n", c.Address)
	fmt.Fprintf(w, "name\t%s\n", c.Name)
	fmt.Fprintf(w, "uri\t%s\n", c.URI)
	fmt.Fprintf(w, "update authority\t%s\n", c.UpdateAuthority)
	fmt.Fprintf(w, "circulation\t%d\n", c.Circulation)
	fmt.Fprintf(w, "version\t%d (slot %d)\n", c.Version, c.Slot)
	if r := c.Royalties(); r != nil {
		fmt.Fprintf(w, "royalties\t%d bp, rule set %s %v\n", r.BasisPoints, r.RuleSet.Kind, r.RuleSet.Programs)
		for _, cr := range r.Creators {
			fmt.Fprintf(w, "  creator\t%s %d%%\n", cr.Address, cr.Percentage)
		}
	}
	w.Flush()
}

func printAsset(out io.Writer, a *nft.Asset) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "asset\t%s\n", a.Address)
	fmt.Fprintf(w, "name\t%s\n", a.Name)
	fmt.Fprintf(w, "uri\t%s\n", a.URI)
	fmt.Fprintf(w, "collection\t%s\n", a.Collection)
	fmt.Fprintf(w, "owner\t%s\n", a.Owner)
	fmt.Fprintf(w, "version\t%d (slot %d)\n", a.Version, a.Slot)
	w.Flush()
}

func printAssets(out io.Writer, assets []*nft.Asset) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ASSET\tNAME\tCOLLECTION\tOWNER\tVERSION")
	for _, a := range assets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", a.Address, a.Name, a.Collection, a.Owner, a.Version)
	}
	w.Flush()
	fmt.Fprintf(out, "%d assets\n", len(assets))
}

func printRoyalties(out io.Writer, fee decimal.Decimal, payouts []nft.Payout) {
	fmt.Fprintf(out, "royalty fee %s\n", fee)
	for _, p := range payouts {
		fmt.Fprintf(out, "  %s %s\n", p.Creator, p.Amount)
	}
}

func printMutations(out io.Writer, ms []*ledger.Mutation) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].UpdatedAt.Before(ms[j].UpdatedAt) })
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRACE\tSTATE\tSLOT\tWRITES\tREASON\tUPDATED")
	for _, m := range ms {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", m.TraceId, m.StateName(), m.Slot, len(m.Writes), m.Reason, m.UpdatedAt.Format(time.RFC3339))
	}
	w.Flush()
}
