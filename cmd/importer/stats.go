package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/salesdash/internal/database"
)

var statsImports int

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row counts and recent imports",
	Long:  `Display the number of rows in every table followed by the most recent import runs.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, closeDB, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		counts, err := db.Counts(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := printCounts(out, counts); err != nil {
			return err
		}

		runs, err := db.ListImports(ctx, statsImports)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return nil
		}

		fmt.Fprintln(out)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tFILE\tSTATUS\tROWS\tLINES\tSKIPPED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04"), r.FileName, r.Status,
				r.RowsRead, r.DetailsInserted, r.RowsSkipped)
		}
		return tw.Flush()
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsImports, "imports", database.DefaultImportListLimit, "Number of recent imports to list")
}
