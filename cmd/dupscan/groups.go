package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/michaelscutari/dupscan/internal/entry"
	"github.com/spf13/cobra"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List duplicate groups non-interactively",
	Long:  `List exact or potential duplicate groups from the database for scripting.`,
	RunE:  runGroups,
}

var (
	groupsKind  string
	groupsLimit int
)

func init() {
	groupsCmd.Flags().StringVarP(&groupsKind, "kind", "k", "exact", "Group kind: exact, potential")
	groupsCmd.Flags().IntVarP(&groupsLimit, "limit", "n", 20, "Maximum number of groups (0 = all)")
}

func runGroups(cmd *cobra.Command, args []string) error {
	var kind entry.MatchKind
	switch strings.ToLower(groupsKind) {
	case "exact":
		kind = entry.MatchExact
	case "potential":
		kind = entry.MatchPotential
	default:
		return fmt.Errorf("invalid kind %q (expected exact|potential)", groupsKind)
	}

	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	groups, err := store.DuplicateGroups(context.Background(), kind)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if groupsLimit > 0 && len(groups) > groupsLimit {
		groups = groups[:groupsLimit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "FINGERPRINT\tSIZE\tCOPIES\tPATH\n")
	for _, g := range groups {
		for i, m := range g.Members {
			if i == 0 {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					shortHash(g.Fingerprint),
					humanize.Bytes(uint64(m.Size)),
					humanize.Comma(int64(len(g.Members))),
					m.Path,
				)
				continue
			}
			fmt.Fprintf(w, "\t\t\t%s\n", m.Path)
		}
	}
	w.Flush()

	return nil
}

func shortHash(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
