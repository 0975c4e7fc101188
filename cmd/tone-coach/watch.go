package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tone-coach-service/internal/config"
	"tone-coach-service/internal/events"
	"tone-coach-service/internal/models"
)

var watchSince time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail the coaching analysis and recap topics",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchSince, "since", time.Hour, "start this far back in each topic")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	consumer, err := events.NewConsumer(events.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		TopicAnalysis: cfg.Kafka.TopicAnalysis,
		TopicRecap:    cfg.Kafka.TopicRecap,
		Since:         watchSince,
	})
	if err != nil {
		return err
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink := newPrintSink(cmd.OutOrStdout())
	consumer.Run(ctx, func(a *models.AnalysisEvent, r *models.RecapEvent) {
		if a != nil {
			sink.OnAnalysis(*a)
		}
		if r != nil {
			sink.OnRecap(*r)
		}
	})
	return nil
}
