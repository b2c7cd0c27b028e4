package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gruppenwerk/outreach-cli/internal/export"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count rows in exported campaign files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, _ := cmd.Flags().GetString("output")
		if dir == "" {
			dir = cfg.OutputDir
		}

		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			fmt.Fprintf(os.Stderr, "Directory not found: %s\n", dir)
			return nil
		}

		sep := ','
		for _, r := range cfg.Export.Separator {
			sep = r
			break
		}
		files, err := export.Stats(cmd.Context(), dir, sep)
		if err != nil {
			return eris.Wrap(err, "stats")
		}
		formatStats(os.Stdout, dir, files)
		return nil
	},
}

func formatStats(w io.Writer, dir string, files []export.FileStats) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No CSV files in the output directory.")
		return
	}

	fmt.Fprintf(w, "=== Export statistics ===\nDirectory: %s\n\n", dir)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tLEADS")
	total := 0
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%d\n", f.Name, f.Rows)
		total += f.Rows
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\nTotal: %d leads in %d files\n", total, len(files))
}

func init() {
	statsCmd.Flags().String("output", "", "output directory (default from config)")
	rootCmd.AddCommand(statsCmd)
}
