package cmd

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/surjbayarea/actionsync/pkg/everyaction"
)

var (
	inspectCodes  bool
	inspectOutput string
)

// inspectCmd represents the inspect command.
var inspectCmd = &cobra.Command{
	Use:   "inspect <email>...",
	Short: "Show the EveryAction record matching an email",
	Long: `Inspect looks up contacts by email and prints the matched record:
VAN id, name, emails with subscription status, phones, addresses and
external identifiers. With --codes the applied activist and tag codes
are fetched too.

Pass '-' to read emails from stdin, one per line.`,
	Example: `  actionsync inspect ana@example.com
  actionsync inspect --codes ana@example.com ben@example.com
  cut -d, -f1 export.csv | actionsync inspect --output csv -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectCodes, "codes", false, "also fetch applied activist and tag codes")
	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", "text", "output format (text, csv)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	emails, err := gatherEmails(args)
	if err != nil {
		return err
	}

	switch inspectOutput {
	case "text":
		return inspectText(cmd.Context(), cmd, client, emails)
	case "csv":
		return inspectCSV(cmd.Context(), cmd, client, emails)
	default:
		return fmt.Errorf("unknown output format %q (want text or csv)", inspectOutput)
	}
}

// gatherEmails expands a '-' argument into stdin lines.
func gatherEmails(args []string) ([]string, error) {
	var emails []string
	for _, arg := range args {
		if arg != "-" {
			emails = append(emails, arg)
			continue
		}
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				emails = append(emails, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
	}
	return emails, nil
}

func inspectText(ctx context.Context, cmd *cobra.Command, client *everyaction.Client, emails []string) error {
	for i, email := range emails {
		if i > 0 {
			cmd.Println()
		}

		person, err := client.Lookup(ctx, email, everyaction.DefaultExpand)
		if err != nil {
			return err
		}
		if person == nil {
			cmd.Printf("%s: not found\n", email)
			continue
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "VanID:\t%d\n", person.VanID)
		fmt.Fprintf(w, "Name:\t%s %s\n", person.FirstName, person.LastName)
		for _, e := range person.Emails {
			fmt.Fprintf(w, "Email:\t%s\tpreferred=%t sub=%s\n", e.Address, e.IsPreferred, subscriptionLabel(e.SubscriptionStatus))
		}
		for _, p := range person.Phones {
			fmt.Fprintf(w, "Phone:\t%s\ttype=%s optin=%s\n", p.Number, p.Type, p.OptInStatus)
		}
		for _, a := range person.Addresses {
			fmt.Fprintf(w, "Address:\t%s\n", formatAddress(a))
		}
		for _, id := range person.Identifiers {
			fmt.Fprintf(w, "Identifier:\t%s\t%s\n", id.Type, id.ExternalID)
		}

		if inspectCodes {
			codes, err := client.AppliedCodes(ctx, person.VanID)
			if err != nil {
				return err
			}
			for _, code := range codes {
				fmt.Fprintf(w, "Code:\t%s\t%s (%d)\n", kindLabel(code.Kind), code.Name, code.ID)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func inspectCSV(ctx context.Context, cmd *cobra.Command, client *everyaction.Client, emails []string) error {
	w := csv.NewWriter(cmd.OutOrStdout())
	header := []string{"email", "vanId", "firstName", "lastName", "subscription", "phones", "identifiers"}
	if inspectCodes {
		header = append(header, "codes")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, email := range emails {
		person, err := client.Lookup(ctx, email, everyaction.DefaultExpand)
		if err != nil {
			return err
		}
		if person == nil {
			if err := w.Write([]string{email, "", "", "", "", "", ""}); err != nil {
				return err
			}
			continue
		}

		sub := ""
		if pref := person.PreferredEmail(); pref != nil {
			sub = pref.SubscriptionStatus
		}
		var phones []string
		for _, p := range person.Phones {
			phones = append(phones, p.Number)
		}
		var ids []string
		for _, id := range person.Identifiers {
			ids = append(ids, id.Type+"="+id.ExternalID)
		}

		record := []string{
			email,
			strconv.Itoa(person.VanID),
			person.FirstName,
			person.LastName,
			sub,
			strings.Join(phones, ";"),
			strings.Join(ids, ";"),
		}
		if inspectCodes {
			codes, err := client.AppliedCodes(ctx, person.VanID)
			if err != nil {
				return err
			}
			var names []string
			for _, code := range codes {
				names = append(names, code.Name)
			}
			record = append(record, strings.Join(names, ";"))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func subscriptionLabel(status string) string {
	switch status {
	case everyaction.SubscriptionSubscribed:
		return "subscribed"
	case everyaction.SubscriptionUnsubscribed:
		return "unsubscribed"
	case "":
		return "none"
	default:
		return status
	}
}

func formatAddress(a everyaction.Address) string {
	parts := []string{a.Line1, a.Line2, a.City, a.State, a.Zip, a.Country}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
