package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"fermentation-backend/internal/db"
	"fermentation-backend/internal/poller"
	"fermentation-backend/internal/store"
)

var pollBatchID string

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run one ingestion pass over every active batch, or one batch with --batch",
	RunE:  runPoll,
}

func init() {
	pollCmd.Flags().StringVar(&pollBatchID, "batch", "", "poll only this batch id")
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	appStore := store.NewGormStore(gormDB)
	pipeline := newPipeline(appStore, nil)

	var outcomes []poller.PollOutcome
	if pollBatchID != "" {
		id, err := uuid.Parse(pollBatchID)
		if err != nil {
			return fmt.Errorf("invalid batch id %q: %w", pollBatchID, err)
		}
		outcomes = append(outcomes, pipeline.PollBatch(cmd.Context(), id))
	} else {
		scheduler := poller.NewScheduler(appStore, pipeline, cfg.Poller.Interval, cfg.Poller.Concurrency)
		outcomes, err = scheduler.PollAllActiveBatches(cmd.Context())
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(outcomes)
}
