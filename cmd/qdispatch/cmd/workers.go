package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/qdispatch/qdispatch/pkg/worker"
)

var workersFamily string

// workersCmd represents the workers command
var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "Inspect deployed workers",
	Long:  `Commands for inspecting the simulation workers recorded in the registry file.`,
}

// workersListCmd represents the workers list command
var workersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployed workers",
	Long:  `List the workers from the registry file, optionally filtered by family.`,
	RunE:  runWorkersList,
}

func init() {
	rootCmd.AddCommand(workersCmd)
	workersCmd.AddCommand(workersListCmd)

	workersListCmd.Flags().StringVar(&workersFamily, "family", "", "only show workers of this family")
}

func runWorkersList(cmd *cobra.Command, args []string) error {
	reg, err := worker.LoadRegistry(GetRegistryPath())
	if err != nil {
		return err
	}

	records := reg.Filter(workersFamily)

	if IsJSONOutput() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No workers found")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Family", "Endpoint", "Simulator", "Qubits")
	for _, rec := range records {
		table.Append(
			rec.ID,
			rec.Name,
			rec.Family,
			rec.Endpoint,
			rec.Backend.Simulator,
			fmt.Sprintf("%d", rec.Backend.NQubits),
		)
	}
	table.Render()
	return nil
}
