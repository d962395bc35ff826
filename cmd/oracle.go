// cmd/oracle.go
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/internal/observability"
	"github.com/xkilldash9x/pathfinder/internal/oracle"
)

func newOracleCmd() *cobra.Command {
	oracleCmd := &cobra.Command{
		Use:   "oracle",
		Short: "Serve the planning oracle backed by a hosted model",
		Long: `Oracle exposes POST /generate-steps, turning the goal, page map and
screenshot into a plan using Gemini or an OpenAI-compatible model. The API key
is read from oracle.api_key (PATHFINDER_ORACLE_API_KEY).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			ocfg := cfg.Oracle()

			model, err := oracle.NewModel(ctx, ocfg, nil)
			if err != nil {
				return err
			}

			logger.Info("Planning oracle starting.",
				zap.String("listen", ocfg.ListenAddr),
				zap.String("provider", ocfg.Provider),
				zap.String("model", ocfg.Model),
			)
			return oracle.NewServer(ocfg, model, logger).ListenAndServe(ctx)
		},
	}
	oracleCmd.Flags().StringP("listen", "l", "", "address to listen on (default from oracle.listen_addr)")
	oracleCmd.Flags().String("provider", "", "model provider: gemini or openai")
	oracleCmd.Flags().String("model", "", "model name")
	return oracleCmd
}
