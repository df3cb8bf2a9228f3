package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/csveer/csveer"
	"github.com/csveer/csveer/internal/awsclient"
	"github.com/csveer/csveer/internal/queue"
)

// listenCommands runs the ingestion listener together with the dispatch recovery
// sweep until SIGINT or SIGTERM. Messages being processed at that point are finished
// and acknowledged.
func listenCommands(app *csveerInstance) *cobra.Command {
	var withoutRecovery bool

	cmd := &cobra.Command{
		Use:         "listen",
		Short:       "consume storage notifications and fan them out to file destinations",
		Annotations: map[string]string{"service": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdown, err := initializeTracing(ctx, app.cnf, "csveer-listener")
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logrus.Errorf("Error during tracer shutdown: %v", err)
				}
			}()

			awsCfg, err := awsclient.LoadConfig(ctx, app.cnf.Aws)
			if err != nil {
				return err
			}
			consumer, err := queue.NewConsumer(
				awsclient.NewSQS(awsCfg, app.cnf.Aws.Endpoint),
				app.cnf.Ingestion.QueueUrl,
				queue.WithWaitTime(app.cnf.Ingestion.WaitTimeSeconds),
				queue.WithMaxMessages(app.cnf.Ingestion.MaxMessages),
			)
			if err != nil {
				return err
			}

			if !withoutRecovery {
				recovery := csveer.NewDispatchRecoveryProcessor(app.csveer)
				recovery.Start(ctx)
				defer recovery.Stop()
			}

			listener := csveer.NewIngestionListener(consumer, app.csveer,
				time.Duration(app.cnf.Ingestion.ErrorBackoffSeconds)*time.Second)
			logrus.WithField("queue_url", app.cnf.Ingestion.QueueUrl).Info("ingestion listener started")
			listener.Run(ctx)
			logrus.Info("ingestion listener stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withoutRecovery, "without-recovery", false, "do not run the dispatch recovery sweep in this process")

	return cmd
}
