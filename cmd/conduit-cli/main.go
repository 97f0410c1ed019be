// Conduit CLI — инструмент командной строки для управления
// workflows, jobs и schedules через HTTP API.
//
// Использование:
//
//	conduit [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	workflow  Управление workflows
//	job       Управление jobs (включая watch через RabbitMQ)
//	schedule  Управление schedules
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Conduit/internal/cli"
	"github.com/shaiso/Conduit/internal/mq"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var amqpURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "conduit",
		Short:         "Conduit CLI — workflow execution tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().StringVar(&amqpURL, "amqp-url", mq.DefaultURL(), "RabbitMQ URL (for job watch)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	amqpURLFn := func() string { return amqpURL }

	rootCmd.AddCommand(
		cli.NewWorkflowCmd(clientFn, outputFn),
		cli.NewJobCmd(clientFn, outputFn, amqpURLFn),
		cli.NewScheduleCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
