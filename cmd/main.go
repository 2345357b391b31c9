/*
Copyright 2025 Nivasa Authors.

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
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nivasa/nivasa"
	"github.com/nivasa/nivasa/config"
	"github.com/nivasa/nivasa/database"
)

// Nivasa wraps the root Cobra command of the CLI.
type Nivasa struct {
	cmd *cobra.Command
}

// nivasaInstance holds the service and its configuration for subcommands.
type nivasaInstance struct {
	nivasa *nivasa.Nivasa
	cnf    *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and initializes the service before any
// subcommand executes.
func preRun(app *nivasaInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		svc, err := setupNivasa(cnf)
		if err != nil {
			log.Fatal(err)
		}

		app.nivasa = svc
		app.cnf = cnf

		return nil
	}
}

func setupNivasa(cfg *config.Configuration) (*nivasa.Nivasa, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	svc, err := nivasa.NewNivasa(db)
	if err != nil {
		return nil, fmt.Errorf("error creating nivasa: %v", err)
	}
	return svc, nil
}

// NewCLI builds the command tree: server and migration commands hang off the
// root.
func NewCLI() *Nivasa {
	var configFile string
	b := &nivasaInstance{}

	var rootCmd = &cobra.Command{
		Use:   "nivasa",
		Short: "Property back-office ledger",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./nivasa.json", "Configuration file for the nivasa server")

	rootCmd.PersistentPreRunE = preRun(b, &configFile)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(migrateCommands(b))

	return &Nivasa{cmd: rootCmd}
}

func (w Nivasa) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
