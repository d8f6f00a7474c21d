package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPlanCmd создаёт группу команд для работы с планами.
func NewPlanCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Work with plans",
	}

	cmd.AddCommand(newPlanValidateCmd(clientFn, outputFn))

	return cmd
}

func newPlanValidateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate PLAN_FILE",
		Short: "Validate a plan without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			steps, err := readPlanSteps(args[0])
			if err != nil {
				return err
			}

			result, err := client.ValidatePlan(steps)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Plan is valid: %d steps", result.Steps))
			if out.jsonMode {
				out.JSON(result)
			}
			return nil
		},
	}
}

// NewCapabilitiesCmd создаёт команду списка capabilities.
func NewCapabilitiesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "List supported capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			capabilities, err := client.ListCapabilities()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "MAX_CONCURRENT", "TIMEOUT_SEC"}
			rows := make([][]string, len(capabilities))
			for i, c := range capabilities {
				maxConcurrent := "unlimited"
				if c.MaxConcurrent > 0 {
					maxConcurrent = fmt.Sprintf("%d", c.MaxConcurrent)
				}
				timeout := "none"
				if c.TimeoutSec > 0 {
					timeout = fmt.Sprintf("%d", c.TimeoutSec)
				}
				rows[i] = []string{c.Name, maxConcurrent, timeout}
			}

			out.Print(headers, rows, capabilities)
			return nil
		},
	}
}
