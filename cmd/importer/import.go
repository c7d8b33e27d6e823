package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/salesdash/internal/config"
	"github.com/JonMunkholm/salesdash/internal/core"
	"github.com/JonMunkholm/salesdash/internal/domain"
	"github.com/JonMunkholm/salesdash/internal/localstore"
)

var dryRun bool

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a CSV or XLSX sales sheet",
	Long: `Import one sales sheet in a single transaction. Either every row is
stored or nothing is. With --dry-run the sheet is loaded into a throwaway
in-memory database instead, so it can be checked without a Postgres server.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, args[0])
	},
}

func init() {
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Import into an in-memory SQLite database and discard it")
}

func runImport(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		store   domain.Store
		history domain.ImportHistory
		cfg     *config.Config
	)
	if dryRun {
		cfg, err = config.LoadOffline()
		if err != nil {
			return err
		}
		setupLogging(cfg)

		mem, err := localstore.OpenMemory("dry-run")
		if err != nil {
			return err
		}
		defer mem.Close()
		store, history = mem, mem
	} else {
		db, dbCfg, closeDB, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer closeDB()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		store, history, cfg = db, db, dbCfg
	}

	svc := core.NewService(store, history, core.ServiceOptions{
		Timeout:           cfg.Import.Timeout,
		MaxWait:           cfg.Import.MaxWaitTime,
		SkippedLineSample: cfg.Import.SkippedLineSample,
	})

	res := svc.Import(ctx, filepath.Base(path), f)
	out := cmd.OutOrStdout()
	printResult(out, res)
	if !res.Success {
		return importError(res)
	}

	counts, err := svc.Counts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	return printCounts(out, counts)
}

// importError phrases a failed import for the terminal. Known failures
// carry their code and suggested action.
func importError(res *core.Result) error {
	if core.IsUserFacing(res.Err) {
		return fmt.Errorf("%s\n%s", res.Message, core.FormatUserError(res.Err))
	}
	return errors.New(res.Message)
}

func printResult(w io.Writer, res *core.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "File:\t%s\n", res.FileName)
	fmt.Fprintf(tw, "Result:\t%s\n", res.Message)
	fmt.Fprintf(tw, "Rows read:\t%d\n", res.RowsRead)
	if res.Success {
		fmt.Fprintf(tw, "Order lines:\t%d\n", res.DetailsInserted)
		fmt.Fprintf(tw, "Orders:\t%d\n", res.Orders)
		fmt.Fprintf(tw, "Rows skipped:\t%d\n", res.RowsSkipped)
		for reason, n := range res.SkippedBy {
			fmt.Fprintf(tw, "  %s:\t%d\n", reason, n)
		}
		if len(res.SkippedLines) > 0 {
			fmt.Fprintf(tw, "Skipped lines:\t%v\n", res.SkippedLines)
		}
	}
	fmt.Fprintf(tw, "Duration:\t%s\n", res.Duration)
	tw.Flush()
}

func printCounts(w io.Writer, c domain.Counts) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS")
	for _, tc := range c.Tables() {
		fmt.Fprintf(tw, "%s\t%d\n", tc.Table, tc.Rows)
	}
	return tw.Flush()
}
