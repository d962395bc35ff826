// cmd/overlay.go
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/pathfinder/internal/guidance"
	"github.com/xkilldash9x/pathfinder/internal/observability"
)

func newOverlayCmd() *cobra.Command {
	overlayCmd := &cobra.Command{
		Use:   "overlay",
		Short: "Serve the guidance overlay",
		Long: `Overlay runs the guidance server that guided runs post their cues to. Cues
are rendered as spotlight frames, logged, and streamed to any page that opens
the overlay URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			gcfg := cfg.Guidance()

			queue := guidance.NewQueue()
			hub := guidance.NewHub(logger)
			defer hub.Close()

			renderer := guidance.MultiRenderer{guidance.NewLogRenderer(logger), hub}
			loop := guidance.NewRenderLoop(queue, renderer, gcfg.ScreenWidth, gcfg.ScreenHeight, gcfg.PollInterval, logger)
			server := guidance.NewServer(gcfg, queue, hub, logger)

			logger.Info("Guidance overlay starting.", zap.String("listen", gcfg.ListenAddr))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return server.ListenAndServe(gctx) })
			g.Go(func() error { return loop.Run(gctx) })
			return g.Wait()
		},
	}
	overlayCmd.Flags().StringP("listen", "l", "", "address to listen on (default from guidance.listen_addr)")
	return overlayCmd
}
