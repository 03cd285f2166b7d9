package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docmerge/internal/app"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates available for the given placeholders",
	Long: `List prints the templates whose required placeholders are all supplied
with --set or --data. Without either only templates that need nothing are
listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := placeholderInput(cmd)
		if err != nil {
			return err
		}
		a, err := app.Build(cmd.Context(), cliConfig(), newLogger())
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.Manager.DocumentList(cmd.Context(), input)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(docs)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tREQUIRES\tORIGIN")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%s\t%v\t%s\n", d.ID, d.Title, d.Requires, d.Origin)
		}
		return tw.Flush()
	},
}

func init() {
	addPlaceholderFlags(listCmd)
	listCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(listCmd)
}
