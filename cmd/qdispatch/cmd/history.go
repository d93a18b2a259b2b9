package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/qdispatch/qdispatch/pkg/store"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse the local execution history",
	Long:  `List executions recorded with "run --save", newest first.`,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of records to show (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := store.NewStore(store.Config{Type: "sqlite", Path: GetHistoryDB()})
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.ListExecutions(historyLimit)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No executions recorded")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Circuit", "Worker", "Shots", "Time (s)", "When")
	for _, rec := range records {
		table.Append(
			rec.ID,
			rec.CircuitID,
			rec.WorkerID,
			fmt.Sprintf("%d", rec.Shots),
			fmt.Sprintf("%g", rec.TimeTaken),
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	table.Render()
	return nil
}
