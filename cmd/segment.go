package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gruppenwerk/outreach-cli/internal/leads"
	"github.com/gruppenwerk/outreach-cli/internal/rules"
	"github.com/gruppenwerk/outreach-cli/internal/segment"
)

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Show how leads are assigned, without generating emails",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, _ := cmd.Flags().GetString("input")

		list, _, err := leads.Load(cmd.Context(), input, cfg.DuplicateCheck)
		if err != nil {
			return eris.Wrap(err, "segment")
		}
		rs, err := rules.Load(cfg.RulesPath)
		if err != nil {
			return eris.Wrap(err, "segment")
		}

		_, stats, err := segment.AssignAll(list, rs, "")
		if err != nil {
			return eris.Wrap(err, "segment")
		}

		formatSegmentStats(os.Stdout, stats)
		return nil
	},
}

func formatSegmentStats(w io.Writer, s *segment.Stats) {
	fmt.Fprintln(w, "=== Segmentation ===")
	fmt.Fprintf(w, "Leads:       %d\n", s.TotalLeads)
	fmt.Fprintf(w, "Assignments: %d\n", s.Assignments)
	fmt.Fprintf(w, "Unmatched:   %d\n\n", s.UnmatchedLeads)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPANY\tSEGMENT\tLEADS")
	for _, company := range s.Companies() {
		segs := s.BySegment[company]
		ids := make([]string, 0, len(segs))
		for id := range segs {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		fmt.Fprintf(tw, "%s\t\t%d\n", company, s.ByCompany[company])
		for _, id := range ids {
			fmt.Fprintf(tw, "\t%s\t%d\n", id, segs[id])
		}
	}
	_ = tw.Flush()
}

func init() {
	segmentCmd.Flags().String("input", "", "lead export (.csv/.xlsx path or http(s)/ftp URL)")
	_ = segmentCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(segmentCmd)
}
