package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gruppenwerk/outreach-cli/internal/campaign"
	"github.com/gruppenwerk/outreach-cli/internal/leads"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Full run: lead export to campaign CSV files",
	Long:  "Reads a CSV or XLSX lead export (local path, http(s):// or ftp:// URL), assigns and personalizes every lead and writes one campaign CSV per company.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		input, _ := cmd.Flags().GetString("input")
		noAI, _ := cmd.Flags().GetBool("no-ai")
		company, _ := cmd.Flags().GetString("company")

		list, report, err := leads.Load(ctx, input, cfg.DuplicateCheck)
		if err != nil {
			return eris.Wrap(err, "generate")
		}
		fmt.Fprintf(os.Stdout, "Leads: %s\n", report)

		runner, err := campaign.Setup(cfg, noAI)
		if err != nil {
			return eris.Wrap(err, "generate")
		}

		sum, err := runner.Run(ctx, list, company)
		if err != nil {
			return eris.Wrap(err, "generate")
		}

		formatSummary(os.Stdout, sum)
		return nil
	},
}

func formatSummary(w io.Writer, sum *campaign.Summary) {
	if sum.Assignments == 0 {
		fmt.Fprintln(w, "No lead could be assigned to any company.")
		return
	}
	if sum.Emails == 0 {
		fmt.Fprintf(w, "No emails generated (%d skipped). Check the logs.\n", sum.SkippedTemplates)
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "Assignments:       %d\n", sum.Assignments)
	fmt.Fprintf(w, "Emails generated:  %d\n", sum.Emails)
	fmt.Fprintf(w, "Skipped (template): %d\n", sum.SkippedTemplates)
	fmt.Fprintf(w, "Fallback texts:    %d\n", sum.Fallbacks)
	fmt.Fprintf(w, "Exported rows:     %d\n", sum.Exported)
	fmt.Fprintf(w, "Files written:     %d\n", len(sum.Files))
	for _, f := range sum.Files {
		fmt.Fprintf(w, "  -> %s\n", f)
	}
}

func init() {
	generateCmd.Flags().String("input", "", "lead export (.csv/.xlsx path or http(s)/ftp URL)")
	generateCmd.Flags().Bool("no-ai", false, "use rule-based icebreakers only")
	generateCmd.Flags().String("company", "", "only generate for this company id")
	_ = generateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(generateCmd)
}
