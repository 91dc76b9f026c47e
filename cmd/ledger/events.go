package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alem-hub/academy-ledger/internal/infrastructure/persistence/postgres"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print committed ledger events from the outbox as JSON lines",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

func init() {
	eventsCmd.Flags().Int64("after", 0, "print events with a sequence number above this one")
	eventsCmd.Flags().Int("limit", 100, "maximum number of events to print")
	rootCmd.AddCommand(eventsCmd)
}

type eventLine struct {
	Seq         int64                  `json:"seq"`
	EventID     string                 `json:"event_id"`
	EventType   string                 `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  string                 `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

func runEvents(cmd *cobra.Command, args []string) error {
	after, _ := cmd.Flags().GetInt64("after")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	log := setupLogger(cfg)
	conn, err := openDatabase(cmd.Context(), cfg.Database.ConnectTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	records, err := postgres.NewStore(conn, log).EventsAfter(cmd.Context(), after, limit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, rec := range records {
		if err := enc.Encode(toEventLine(rec)); err != nil {
			return err
		}
	}
	return nil
}

func toEventLine(rec postgres.OutboxRecord) eventLine {
	return eventLine{
		Seq:         rec.Seq,
		EventID:     rec.EventID,
		EventType:   string(rec.EventType),
		AggregateID: rec.AggregateID,
		OccurredAt:  rec.OccurredAt.Format(time.RFC3339Nano),
		Payload:     rec.Payload,
	}
}
