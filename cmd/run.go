// cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/internal/agent"
	"github.com/xkilldash9x/pathfinder/internal/config"
	"github.com/xkilldash9x/pathfinder/internal/observability"
)

func newRunCmd() *cobra.Command {
	var goal string

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Pursue a goal in the attached browser",
		Long: `Run attaches to a browser started with --remote-debugging-port and loops:
scan the page, ask the planning oracle for steps, and act on them. In guided
mode the steps are shown to a human on the overlay instead of being performed.`,
		Example: `  pathfinder run --goal "Send an email to bob@example.com saying hi"
  pathfinder run --goal "Log in as demo" --mode guided --url https://example.com/login`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if strings.TrimSpace(goal) == "" {
				return errors.New("--goal is required")
			}

			c, err := initializeRunComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			res, err := c.Controller.Run(ctx, goal)
			if err != nil {
				return err
			}
			return reportRun(cmd, res, logger)
		},
	}

	runCmd.Flags().StringVarP(&goal, "goal", "g", "", "what the agent should accomplish")
	runCmd.Flags().StringP("mode", "m", config.ModeDirect, "execution mode: direct or guided")
	runCmd.Flags().StringP("url", "u", "", "navigate the attached tab here before starting")
	runCmd.Flags().String("debugger", "", "remote debugging endpoint of the browser")
	runCmd.Flags().String("planner", "", "planning oracle endpoint")
	runCmd.Flags().String("guidance", "", "guidance overlay base URL")
	return runCmd
}

// reportRun prints the outcome and converts unsuccessful endings into a
// non-zero exit.
func reportRun(cmd *cobra.Command, res agent.RunResult, logger *zap.Logger) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nRun %s finished: %s after %d step(s).\n", res.RunID, res.Status, res.Steps)
	if res.History != "" {
		fmt.Fprintf(out, "History: %s\n", strings.TrimSpace(res.History))
	}

	switch res.Status {
	case agent.RunSucceeded:
		return nil
	case agent.RunCancelled:
		logger.Warn("Run aborted by signal.", zap.String("run_id", res.RunID))
		return context.Canceled
	default:
		return fmt.Errorf("run %s ended without reaching the goal: %s", res.RunID, res.Status)
	}
}
