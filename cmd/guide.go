// cmd/guide.go
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pathfinder/internal/guidance"
	"github.com/xkilldash9x/pathfinder/internal/observability"
)

func newGuideCmd() *cobra.Command {
	guideCmd := &cobra.Command{
		Use:   "guide",
		Short: "Talk to a running guidance overlay",
	}
	guideCmd.PersistentFlags().String("guidance", "", "guidance overlay base URL")
	guideCmd.AddCommand(newGuideClearCmd(), newGuideWatchCmd())
	return guideCmd
}

func newGuideClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Hide the current cue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
			defer cancel()

			client := guidance.NewClient(cfg.Guidance(), nil, observability.GetLogger())
			if err := client.Clear(ctx); err != nil {
				return fmt.Errorf("overlay at %s did not clear: %w", cfg.Guidance().URL, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cue cleared.")
			return nil
		},
	}
}

func newGuideWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream overlay frames as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			err = guidance.Watch(ctx, cfg.Guidance().URL, func(f guidance.Frame) {
				_ = enc.Encode(f)
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}
