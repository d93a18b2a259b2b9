package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/qdispatch/qdispatch/pkg/store"
	"github.com/qdispatch/qdispatch/pkg/tracing"
	"github.com/qdispatch/qdispatch/pkg/worker"
)

var (
	runWorkerID string
	runShots    int
	runMethod   string
	runSave     bool
	runTraceTo  string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <circuit-file>",
	Short: "Run a circuit on a worker",
	Long:  `Submit a circuit document to a worker from the registry, wait for the result and print the measurement counts.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runWorkerID, "worker", "", "worker id (default: first worker in the registry)")
	runCmd.Flags().IntVar(&runShots, "shots", 0, "number of shots (default: worker default)")
	runCmd.Flags().StringVar(&runMethod, "method", "", "simulation method")
	runCmd.Flags().BoolVar(&runSave, "save", false, "record the execution in the local history")
	runCmd.Flags().StringVar(&runTraceTo, "trace-endpoint", "", "OTLP/HTTP collector endpoint to export traces to")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := NewLogger()

	provider, err := tracing.Init(tracing.Config{
		ServiceName:    "qdispatch",
		ServiceVersion: Version,
		Environment:    "cli",
		OTLPEndpoint:   runTraceTo,
		Enabled:        runTraceTo != "",
	})
	if err != nil {
		return err
	}
	defer provider.Shutdown(context.Background())

	reg, err := worker.LoadRegistry(GetRegistryPath())
	if err != nil {
		return err
	}
	if len(reg.Workers) == 0 {
		return fmt.Errorf("worker registry %s is empty", GetRegistryPath())
	}

	rec := reg.Workers[0]
	if runWorkerID != "" {
		var ok bool
		rec, ok = reg.Get(runWorkerID)
		if !ok {
			return fmt.Errorf("worker %q not found in registry %s", runWorkerID, GetRegistryPath())
		}
	}

	doc, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read circuit file: %w", err)
	}

	params := map[string]interface{}{}
	if runShots > 0 {
		params["shots"] = runShots
	}
	if runMethod != "" {
		params["method"] = runMethod
	}

	workers := reg.Build("", logger)
	var target *worker.Worker
	for _, w := range workers {
		if w.ID == rec.ID {
			target = w
			break
		}
	}

	ctx, span := provider.StartSpan(context.Background(), "qdispatch.run",
		attribute.String("worker.id", rec.ID))
	defer span.End()

	job, err := target.Run(doc, &worker.RunOptions{Params: params})
	if err != nil {
		tracing.SetError(ctx, err)
		return err
	}

	res, err := job.Result()
	if err != nil {
		tracing.SetError(ctx, err)
		return err
	}

	counts, err := res.Counts()
	if err != nil {
		tracing.SetError(ctx, err)
		return err
	}
	seconds, err := res.TimeTaken()
	if err != nil {
		tracing.SetError(ctx, err)
		return err
	}

	if runSave {
		db, err := store.NewStore(store.Config{Type: "sqlite", Path: GetHistoryDB()})
		if err != nil {
			return err
		}
		defer db.Close()

		err = db.SaveExecution(&store.ExecutionRecord{
			ID:        uuid.NewString(),
			CircuitID: job.CircuitID(),
			WorkerID:  rec.ID,
			Shots:     job.Config().Shots,
			Method:    job.Config().Method,
			Counts:    counts,
			TimeTaken: seconds,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to save execution: %w", err)
		}
	}

	if IsJSONOutput() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"circuit_id": job.CircuitID(),
			"worker_id":  rec.ID,
			"counts":     counts,
			"time_taken": seconds,
		})
	}

	bitstrings := make([]string, 0, len(counts))
	for bs := range counts {
		bitstrings = append(bitstrings, bs)
	}
	sort.Strings(bitstrings)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Bitstring", "Count")
	for _, bs := range bitstrings {
		table.Append(bs, fmt.Sprintf("%d", counts[bs]))
	}
	table.Render()
	fmt.Printf("Simulation time: %g s\n", seconds)
	return nil
}
