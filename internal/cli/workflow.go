package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflows.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(clientFn, outputFn),
		newWorkflowCreateCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
		newWorkflowDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newWorkflowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflows, err := client.ListWorkflows()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "NODES", "CREATED"}
			rows := make([][]string, len(workflows))
			for i, w := range workflows {
				rows[i] = []string{w.ID, w.Name, strconv.Itoa(len(w.Nodes)), w.CreatedAt}
			}

			out.Print(headers, rows, workflows)
			return nil
		},
	}
}

func newWorkflowCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var defFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow from a definition file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(defFile)
			if err != nil {
				return fmt.Errorf("failed to read definition file: %w", err)
			}

			// Валидируем что это валидный JSON
			if !json.Valid(data) {
				return fmt.Errorf("definition file is not valid JSON")
			}

			workflow, err := client.CreateWorkflow(json.RawMessage(data))
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow created: %s", workflow.ID))
			out.Print(
				[]string{"ID", "NAME", "NODES", "CREATED"},
				[][]string{{workflow.ID, workflow.Name, strconv.Itoa(len(workflow.Nodes)), workflow.CreatedAt}},
				workflow,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&defFile, "file", "", "Path to workflow definition JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflow, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "NAME", "NODES", "EDGES", "CREATED"},
				[][]string{{
					workflow.ID, workflow.Name,
					strconv.Itoa(len(workflow.Nodes)), strconv.Itoa(len(workflow.Edges)),
					workflow.CreatedAt,
				}},
				workflow,
			)
			return nil
		},
	}
}

func newWorkflowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteWorkflow(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deleted: %s", args[0]))
			return nil
		},
	}
}
