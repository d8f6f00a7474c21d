package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewRunCmd создаёт группу команд для управления runs.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage runs",
	}

	cmd.AddCommand(
		newRunListCmd(clientFn, outputFn),
		newRunSubmitCmd(clientFn, outputFn),
		newRunShowCmd(clientFn, outputFn),
		newRunReportCmd(clientFn, outputFn),
		newRunCancelCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns()
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATUS", "STEPS", "OUTCOME", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{r.ID, r.Status, strconv.Itoa(r.Steps), r.Outcome, r.CreatedAt}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}
}

func newRunSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var policy string
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit PLAN_FILE",
		Short: "Submit a plan for execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			steps, err := readPlanSteps(args[0])
			if err != nil {
				return err
			}

			run, err := client.CreateRun(steps, policy)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run started: %s", run.ID))

			if !wait {
				out.Print(
					[]string{"ID", "STATUS", "STEPS", "CREATED"},
					[][]string{{run.ID, run.Status, strconv.Itoa(run.Steps), run.CreatedAt}},
					run,
				)
				return nil
			}

			report, err := waitForReport(client, run.ID)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run finished: %s", report.Outcome))
			printReport(out, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&policy, "failure-policy", "", "Failure policy override (best_effort, fail_fast)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the run to finish and print the report")

	return cmd
}

func newRunShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			out.Fields([][2]string{
				{"ID", run.ID},
				{"Status", run.Status},
				{"Steps", strconv.Itoa(run.Steps)},
				{"Outcome", run.Outcome},
				{"Error", run.Error},
				{"Started", run.StartedAt},
				{"Finished", run.FinishedAt},
			}, run)
			return nil
		},
	}
}

func newRunReportCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "report ID",
		Short: "Show the execution report of a finished run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			report, err := client.GetReport(args[0])
			if err != nil {
				return err
			}

			printReport(out, report)
			return nil
		},
	}
}

func newRunCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a running run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.CancelRun(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run cancelled: %s", run.ID))
			return nil
		},
	}
}

// readPlanSteps читает файл плана и возвращает массив шагов.
func readPlanSteps(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}

	var pf planFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse plan file: %w", err)
	}
	if pf.Plan == nil {
		return nil, fmt.Errorf("plan file %s has no \"plan\" key", path)
	}

	return pf.Plan, nil
}

// waitForReport опрашивает API до появления отчёта.
func waitForReport(client *Client, runID string) (*ReportResponse, error) {
	for {
		run, err := client.GetRun(runID)
		if err != nil {
			return nil, err
		}

		switch run.Status {
		case "SUCCEEDED", "FAILED":
			return client.GetReport(runID)
		case "CANCELLED":
			return nil, fmt.Errorf("run was cancelled")
		}

		time.Sleep(500 * time.Millisecond)
	}
}

// printReport выводит отчёт: шаги в порядке завершения плюс сводка.
func printReport(out *Output, report *ReportResponse) {
	headers := []string{"STEP", "STATUS", "RESULT", "ERROR"}
	rows := make([][]string, len(report.Steps))
	for i, s := range report.Steps {
		rows[i] = []string{s.ID, s.Status, truncate(s.Result, 60), s.Error}
	}
	out.Print(headers, rows, report)

	out.Success(fmt.Sprintf("Outcome: %s (completed %d, failed %d, blocked %d)",
		report.Outcome,
		report.Summary.Completed,
		report.Summary.Failed,
		report.Summary.Blocked,
	))
}

// truncate обрезает строку до limit символов.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
