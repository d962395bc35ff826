// cmd/scan.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/api/schemas"
	"github.com/xkilldash9x/pathfinder/internal/browser/calibration"
	"github.com/xkilldash9x/pathfinder/internal/browser/scanner"
	"github.com/xkilldash9x/pathfinder/internal/observability"
	"github.com/xkilldash9x/pathfinder/internal/store"
)

func newScanCmd() *cobra.Command {
	var all bool

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Print the element map and screen calibration of the attached tab",
		Long: `Scan performs a single SENSE pass without planning or acting. It is useful
for checking what the oracle would be shown and where guided cues would land.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			sess, err := attachBrowser(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to attach to browser: %w", err)
			}
			defer sess.Close()

			elements, err := scanner.New(sess, logger).Scan(ctx)
			if err != nil {
				return err
			}
			off, err := calibration.New(sess, logger).Calibrate(ctx)
			if err != nil {
				logger.Warn("Calibration failed.", zap.Error(err))
			}

			if cfg.Artifacts().Enabled {
				artifacts, err := store.NewArtifacts(cfg.Artifacts(), logger)
				if err != nil {
					return err
				}
				if err := artifacts.WritePageMap(elements); err != nil {
					logger.Warn("Failed to write page map.", zap.Error(err))
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Page map written to %s\n", artifacts.PageMapPath())
				}
			}

			printElements(cmd, elements, all)
			fmt.Fprintf(cmd.OutOrStdout(), "\nScreen offset: x=%.0f y=%.0f chrome=%.0f dpr=%.2f\n",
				off.ScreenX, off.ScreenY, off.ChromeHeight, off.DevicePixelRatio)
			return nil
		},
	}

	scanCmd.Flags().BoolVarP(&all, "all", "a", false, "list every element, not only text inputs")
	scanCmd.Flags().StringP("url", "u", "", "navigate the attached tab here before scanning")
	scanCmd.Flags().String("debugger", "", "remote debugging endpoint of the browser")
	return scanCmd
}

func printElements(cmd *cobra.Command, elements []schemas.Element, all bool) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tVALUE\tCENTER")
	shown := 0
	for _, el := range elements {
		if !all && !el.AcceptsText() {
			continue
		}
		shown++
		fmt.Fprintf(w, "%d\t%s\t%s\t(%d, %d)\n", el.ID, el.Label, el.Value, el.Center.X, el.Center.Y)
	}
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d element(s) shown.\n", shown, len(elements))
}
