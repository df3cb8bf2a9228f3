package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/csveer/csveer/config"
)

const redacted = "********"

// redactedConfig copies cnf with credentials masked so it can be printed.
func redactedConfig(cnf config.Configuration) config.Configuration {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&cnf.Server.SecretKey)
	mask(&cnf.DataSource.Dns)
	mask(&cnf.Redis.Dns)
	mask(&cnf.Aws.SecretAccessKey)
	mask(&cnf.Notification.Slack.WebhookUrl)
	mask(&cnf.Otlp.Headers)
	return cnf
}

func configCommands(app *csveerInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "print the computed configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(redactedConfig(*app.cnf), "", "    ")
			if err != nil {
				return fmt.Errorf("error printing config: %w", err)
			}
			fmt.Println(string(data))
			return nil
		},
	}
}
