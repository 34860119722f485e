package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/surjbayarea/actionsync/pkg/everyaction"
)

var codesType string

// codesCmd represents the codes command.
var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "List the committee's activist and tag codes",
	Long: `Codes lists the remote code catalogs that legacy tags are mapped
against: activist codes, generic codes of type Tag, or both.

Useful when writing a tag mapping file, since mapping targets are
matched by exact code name.`,
	Example: `  actionsync codes
  actionsync codes --type activist`,
	RunE: runCodes,
}

func init() {
	rootCmd.AddCommand(codesCmd)

	codesCmd.Flags().StringVarP(&codesType, "type", "t", "all", "code catalog to list (activist, tag, all)")
}

// kindTitle renders code kinds as display labels.
var kindTitle = cases.Title(language.AmericanEnglish)

func kindLabel(kind everyaction.CodeKind) string {
	if kind == everyaction.CodeKindGeneric {
		return "Tag"
	}
	return kindTitle.String(string(kind))
}

func runCodes(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var codes []everyaction.CodeRef
	switch codesType {
	case "activist":
		codes, err = client.ListActivistCodes(ctx)
	case "tag":
		codes, err = client.ListTagCodes(ctx)
	case "all":
		codes, err = client.ListActivistCodes(ctx)
		if err == nil {
			var tags []everyaction.CodeRef
			tags, err = client.ListTagCodes(ctx)
			codes = append(codes, tags...)
		}
	default:
		return fmt.Errorf("unknown code type %q (want activist, tag or all)", codesType)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tNAME")
	for _, code := range codes {
		fmt.Fprintf(w, "%d\t%s\t%s\n", code.ID, kindLabel(code.Kind), code.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	cmd.Printf("\n%d codes\n", len(codes))
	return nil
}
