/*
Copyright 2024 Csveer Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/csveer/csveer"
	"github.com/csveer/csveer/config"
	"github.com/csveer/csveer/database"
	"github.com/csveer/csveer/internal/notification"
)

type Csveer struct {
	cmd *cobra.Command
}

// csveerInstance is filled by the root pre-run hook and shared by every subcommand.
type csveerInstance struct {
	csveer *csveer.Csveer
	cnf    *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and, for commands that need it, the service.
func preRun(app *csveerInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf

		if cmd.Annotations["service"] != "true" {
			return nil
		}

		service, err := setupCsveer(cnf)
		if err != nil {
			notification.NotifyError(err)
			return err
		}
		app.csveer = service
		return nil
	}
}

func setupCsveer(cfg *config.Configuration) (*csveer.Csveer, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	service, err := csveer.NewCsveer(db)
	if err != nil {
		return nil, fmt.Errorf("error creating csveer: %v", err)
	}
	return service, nil
}

func NewCLI() *Csveer {
	var configFile string
	app := &csveerInstance{}

	rootCmd := &cobra.Command{
		Use:          "csveer",
		Short:        "CSV ingestion and dispatch fan-out",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./csveer.json", "Configuration file for csveer")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(listenCommands(app))
	rootCmd.AddCommand(recoverCommands(app))
	rootCmd.AddCommand(migrateCommands(app))
	rootCmd.AddCommand(configCommands(app))

	return &Csveer{cmd: rootCmd}
}

func (c Csveer) executeCLI() {
	if err := c.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	NewCLI().executeCLI()
}
