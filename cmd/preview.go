package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gruppenwerk/outreach-cli/internal/campaign"
	"github.com/gruppenwerk/outreach-cli/internal/leads"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the rendered emails for the first N assignments",
	Long:  "Renders the first N assignments with rule-based icebreakers. No text generator is called and nothing is written.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, _ := cmd.Flags().GetString("input")
		count, _ := cmd.Flags().GetInt("count")

		list, _, err := leads.Load(cmd.Context(), input, cfg.DuplicateCheck)
		if err != nil {
			return eris.Wrap(err, "preview")
		}
		runner, err := campaign.Setup(cfg, true)
		if err != nil {
			return eris.Wrap(err, "preview")
		}

		items, err := runner.Preview(list, count)
		if err != nil {
			return eris.Wrap(err, "preview")
		}
		formatPreview(os.Stdout, items)
		return nil
	},
}

func formatPreview(w io.Writer, items []campaign.PreviewItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Nothing to preview.")
		return
	}
	rule := strings.Repeat("=", 60)
	for i, it := range items {
		a := it.Assignment
		fmt.Fprintf(w, "\n%s\n", rule)
		fmt.Fprintf(w, "Preview %d/%d\n", i+1, len(items))
		fmt.Fprintf(w, "Lead: %s %s (%s)\n", a.Lead.FirstName, a.Lead.LastName, a.Email())
		fmt.Fprintf(w, "Company: %s -> %s\n", a.CompanyID, a.SegmentID)
		fmt.Fprintf(w, "Score: %.1f\n", a.Score)
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Subject: %s\n---\n%s\n", it.Message.Subject, it.Message.Body)
	}
}

func init() {
	previewCmd.Flags().String("input", "", "lead export (.csv/.xlsx path or http(s)/ftp URL)")
	previewCmd.Flags().Int("count", 5, "number of assignments to show")
	_ = previewCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(previewCmd)
}
