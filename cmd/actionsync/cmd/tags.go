package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/surjbayarea/actionsync/pkg/rows"
	"github.com/surjbayarea/actionsync/pkg/tagmap"
)

// tagsCmd groups local tag utilities.
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Work with the tags in an Action Network export",
}

// tagsCountCmd represents the tags count command.
var tagsCountCmd = &cobra.Command{
	Use:   "count [file]",
	Short: "Count tag occurrences in an export",
	Long: `Count tallies every tag in the export's tag column and prints a
histogram, most frequent first. Handy for deciding which legacy tags
are worth a mapping entry.

The input file defaults to $ACTIONNETWORK_ACTIVIST_CSV.`,
	Example: `  actionsync tags count export.csv`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runTagsCount,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.AddCommand(tagsCountCmd)
}

func runTagsCount(cmd *cobra.Command, args []string) error {
	input := viper.GetString(EnvCSV)
	if len(args) > 0 {
		input = args[0]
	}
	if input == "" {
		return fmt.Errorf("no input file: pass one or set %s", EnvCSV)
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening %s: %w", input, err)
	}
	defer func() { _ = f.Close() }()

	src, err := rows.Open(f, input)
	if err != nil {
		return err
	}
	if !src.Columns().Tags {
		return fmt.Errorf("%s has no %q column", input, rows.ColTags)
	}

	counts := make(map[string]int)
	total := 0
	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		for _, tag := range tagmap.SplitTags(row.Get(rows.ColTags)) {
			counts[tag]++
			total++
		}
	}

	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, tag := range tags {
		fmt.Fprintf(w, "%d\t%s\n", counts[tag], tag)
	}
	fmt.Fprintf(w, "%d\tTOTAL\n", total)
	return w.Flush()
}
