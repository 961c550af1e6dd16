package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plipowczan/google-file-search-agent/internal/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List remote models that can answer chat requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}

		found, err := remoteClient(cfg).ListModels(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing models: %w", err)
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		return printModels(cmd, found, asJSON)
	},
}

func init() {
	modelsCmd.Flags().Bool("json", false, "output models as JSON")
	rootCmd.AddCommand(modelsCmd)
}

func printModels(cmd *cobra.Command, found []models.Model, asJSON bool) error {
	out := cmd.OutOrStdout()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDISPLAY NAME")
	for _, m := range found {
		fmt.Fprintf(tw, "%s\t%s\n", m.Name, m.DisplayName)
	}
	return tw.Flush()
}
