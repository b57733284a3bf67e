package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srtux/sre-agent-sub000/internal/agent/model"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Work with mock scenario files",
}

var scenarioValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a mock scenario YAML file",
	Long: `Validate a mock scenario file and print a summary of its steps.

Scenario files script the mock provider: each step matches a trigger
(user message, tool result, or substring) and replays canned text and
tool calls. Useful for demos and end-to-end tests without a model
backend.`,
	Args: cobra.ExactArgs(1),
	RunE: runScenarioValidate,
}

func init() {
	scenarioCmd.AddCommand(scenarioValidateCmd)
}

func runScenarioValidate(cmd *cobra.Command, args []string) error {
	scenario, err := model.LoadScenario(args[0])
	if err != nil {
		return fmt.Errorf("scenario is invalid: %w", err)
	}

	fmt.Printf("Scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Printf("Description: %s\n", scenario.Description)
	}
	fmt.Printf("Steps: %d\n", len(scenario.Steps))
	for i, step := range scenario.Steps {
		trigger := step.Trigger
		if trigger == "" {
			trigger = "(auto)"
		}
		fmt.Printf("  %2d. trigger=%s tool_calls=%d\n", i+1, trigger, len(step.ToolCalls))
	}

	fmt.Println("Scenario is valid.")
	return nil
}
