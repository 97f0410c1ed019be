package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/mq"
)

// NewJobCmd создаёт группу команд для управления jobs.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output, amqpURLFn func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage jobs",
	}

	cmd.AddCommand(
		newJobListCmd(clientFn, outputFn),
		newJobStartCmd(clientFn, outputFn),
		newJobShowCmd(clientFn, outputFn),
		newJobCancelCmd(clientFn, outputFn),
		newJobWatchCmd(clientFn, outputFn, amqpURLFn),
	)

	return cmd
}

func newJobListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var workflowID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			jobs, err := client.ListJobs(ListJobsOpts{
				WorkflowID: workflowID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "WORKFLOW_ID", "STATUS", "CREATED"}
			rows := make([][]string, len(jobs))
			for i, j := range jobs {
				rows[i] = []string{j.ID, j.WorkflowID, j.Status, j.CreatedAt}
			}

			out.Print(headers, rows, jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "Filter by workflow ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED, CANCELLED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newJobStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var inputs []string
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "start WORKFLOW_ID",
		Short: "Start a new job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := ExecuteWorkflowRequest{
				IdempotencyKey: idempotencyKey,
			}

			if len(inputs) > 0 {
				req.Input = make(map[string]any)
				for _, kv := range inputs {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid input format %q, expected KEY=VALUE", kv)
					}
					req.Input[parts[0]] = parts[1]
				}
			}

			job, err := client.ExecuteWorkflow(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job started: %s", job.ID))
			out.Print(
				[]string{"ID", "WORKFLOW_ID", "STATUS", "CREATED"},
				[][]string{{job.ID, job.WorkflowID, job.Status, job.CreatedAt}},
				job,
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Input values as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key (reuses existing job on match)")

	return cmd
}

func newJobShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var nodes bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.GetJob(args[0])
			if err != nil {
				return err
			}

			if nodes {
				headers := []string{"NODE", "STATUS", "ATTEMPT", "ERROR"}
				rows := make([][]string, 0, len(job.NodeResults))
				for nodeID, nr := range job.NodeResults {
					rows = append(rows, []string{nodeID, nr.Status, strconv.Itoa(nr.Attempt), nr.Error})
				}
				out.Print(headers, rows, job.NodeResults)
				return nil
			}

			out.Print(
				[]string{"ID", "WORKFLOW_ID", "STATUS", "FAILED_NODE", "ERROR", "CREATED"},
				[][]string{{job.ID, job.WorkflowID, job.Status, job.FailedNode, job.Error, job.CreatedAt}},
				job,
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&nodes, "nodes", false, "Show per-node results")

	return cmd
}

func newJobCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.CancelJob(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job cancelled: %s", job.ID))
			return nil
		},
	}
}

// newJobWatchCmd подписывается на поток событий job через RabbitMQ.
// Единственная команда CLI, которая ходит не в API, а напрямую в брокер.
func newJobWatchCmd(clientFn func() *Client, outputFn func() *Output, amqpURLFn func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch ID",
		Short: "Stream job events until the job finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()
			jobID := args[0]

			// Если job уже завершён, событий не будет — показываем итог сразу
			job, err := client.GetJob(jobID)
			if err != nil {
				return err
			}
			if job.Status != "PENDING" && job.Status != "RUNNING" {
				out.Success(fmt.Sprintf("Job already finished: %s", job.Status))
				out.Print(
					[]string{"ID", "STATUS", "FAILED_NODE", "ERROR"},
					[][]string{{job.ID, job.Status, job.FailedNode, job.Error}},
					job,
				)
				return nil
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError,
			}))

			conn, err := mq.NewConnection(amqpURLFn(), logger)
			if err != nil {
				return fmt.Errorf("connect to broker: %w", err)
			}
			defer conn.Close()

			return mq.WatchJob(cmd.Context(), conn, jobID, func(ctx context.Context, event *domain.Event) error {
				printEvent(out, event)
				return nil
			})
		},
	}
}

// printEvent выводит одно событие job.
func printEvent(out *Output, event *domain.Event) {
	if out.JSONMode() {
		out.JSON(event)
		return
	}

	line := fmt.Sprintf("%s  %-15s", event.Timestamp.Format("15:04:05"), event.Type)
	if event.NodeID != "" {
		line += "  node=" + event.NodeID
	}
	if errMsg, ok := event.Payload["error"].(string); ok && errMsg != "" {
		line += "  error=" + errMsg
	}
	fmt.Fprintln(os.Stdout, line)
}
