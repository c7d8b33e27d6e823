package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var confirmReset bool

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all imported data",
	Long:  `Delete every imported row and the import history. This cannot be undone; pass --yes to confirm.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmReset {
			return errors.New("refusing to reset without --yes")
		}

		ctx := cmd.Context()
		db, _, closeDB, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := db.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "all data deleted")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&confirmReset, "yes", false, "Confirm the reset")
}
