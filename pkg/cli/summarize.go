package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/contech-ims/binsight/pkg/cli/config"
	"github.com/contech-ims/binsight/pkg/service/llm"
	"github.com/contech-ims/binsight/pkg/service/source"
	"github.com/contech-ims/binsight/pkg/usecase"
	"github.com/contech-ims/binsight/pkg/utils/logging"
)

// Summaries are short, so the completion budget is much smaller than the
// chat default.
const summarizeMaxTokens = 250

func cmdSummarize() *cli.Command {
	var dataDir string
	var building string
	var openaiCfg config.OpenAI

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "Building data directory (local path or gs:// URL)",
			Required:    true,
			Sources:     cli.EnvVars("BINSIGHT_DATA_DIR"),
			Destination: &dataDir,
		},
		&cli.StringFlag{
			Name:        "building",
			Usage:       "Summarize only the given BIN instead of all buildings",
			Sources:     cli.EnvVars("BINSIGHT_BUILDING"),
			Destination: &building,
		},
	}
	flags = append(flags, openaiCfg.Flags()...)

	return &cli.Command{
		Name:  "summarize",
		Usage: "Generate summaries for extracted CO document contents",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			src, err := source.FromPath(ctx, dataDir)
			if err != nil {
				return goerr.Wrap(err, "failed to open data source", goerr.V("data_dir", dataDir))
			}
			defer func() {
				if err := src.Close(); err != nil {
					logging.Default().Error("failed to close data source", "error", err.Error())
				}
			}()

			buildings, err := selectBuildings(ctx, src, building)
			if err != nil {
				return err
			}

			llmClient, err := openaiCfg.ConfigureWithMaxTokens(ctx, summarizeMaxTokens)
			if err != nil {
				return goerr.Wrap(err, "failed to configure OpenAI client")
			}

			uc := usecase.NewSummarizeUseCase(llm.New(llmClient))
			logger := logging.From(ctx)

			var total int
			for _, b := range buildings {
				co, err := src.COData(ctx, b.Number)
				if err != nil {
					logger.Warn("no CO records for building, skipping",
						"building", b.Number, "error", err.Error())
					continue
				}

				updated, err := uc.SummarizeCO(ctx, co)
				if err != nil {
					return goerr.Wrap(err, "failed to summarize CO records", goerr.V("building", b.Number))
				}
				if updated == 0 {
					continue
				}

				if err := src.SaveCOData(ctx, co); err != nil {
					return goerr.Wrap(err, "failed to save CO records", goerr.V("building", b.Number))
				}
				logger.Info("Summarized CO documents", "building", b.Number, "updated", updated)
				total += updated
			}

			logger.Info("Summarization completed", "updated", total)
			return nil
		},
	}
}
