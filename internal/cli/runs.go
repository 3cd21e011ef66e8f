package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/logsift/internal/storage"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs DB",
	Short: "List extraction runs stored in a SQLite database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRuns(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

func listRuns(out io.Writer, dbPath string) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := storage.NewRecordReader(db).ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tFILES\tFAILED\tRECORDS\tRESOLVED\tROOT")
	for _, run := range runs {
		started := run.StartedAt.Local().Format(time.DateTime)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			run.ID, started, run.FilesTotal, run.FilesFailed,
			run.RecordsTotal, run.RecordsResolved, run.RootPath)
	}
	return tw.Flush()
}
