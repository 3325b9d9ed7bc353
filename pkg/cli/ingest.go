package cli

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/contech-ims/binsight/pkg/cli/config"
	"github.com/contech-ims/binsight/pkg/service/source"
	"github.com/contech-ims/binsight/pkg/usecase"
	"github.com/contech-ims/binsight/pkg/utils/logging"
)

func cmdIngest() *cli.Command {
	var dataDir string
	var building string
	var openaiCfg config.OpenAI
	var repoCfg config.Repository
	var ingestCfg config.Ingest

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
			Usage:       "Ingest only the given BIN instead of all buildings",
			Sources:     cli.EnvVars("BINSIGHT_BUILDING"),
			Destination: &building,
		},
	}
	flags = append(flags, openaiCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, ingestCfg.Flags()...)

	return &cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Build per-building vector indexes from extracted CO documents",
		Flags:   flags,
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

			store, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize vector store")
			}
			defer func() {
				if err := store.Close(); err != nil {
					logging.Default().Error("failed to close vector store", "error", err.Error())
				}
			}()

			llmClient, err := openaiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure OpenAI client")
			}

			uc := usecase.NewIndexUseCase(store, llmClient, ingestCfg.IndexConfig())
			logger := logging.From(ctx)

			var indexed, incomplete, skipped int
			for _, b := range buildings {
				if b.Address == "" {
					logger.Warn("building has no address, skipping", "building", b.Number)
					skipped++
					continue
				}

				co, err := src.COData(ctx, b.Number)
				if err != nil {
					if errors.Is(err, source.ErrNotFound) {
						logger.Warn("no CO records for building, skipping", "building", b.Number)
						skipped++
						continue
					}
					return goerr.Wrap(err, "failed to load CO records", goerr.V("building", b.Number))
				}

				result, err := uc.BuildIndex(ctx, b.Number, co.DocumentUnits(b.Address))
				switch {
				case errors.Is(err, usecase.ErrIncompleteIndex):
					logger.Error("index build incomplete",
						"building", b.Number,
						"verified", result.Verified,
						"failed", result.Failed)
					incomplete++
				case err != nil:
					return goerr.Wrap(err, "failed to build index", goerr.V("building", b.Number))
				case result.Skipped:
					logger.Warn("no valid CO documents, index skipped",
						"building", b.Number, "dropped", result.Dropped)
					skipped++
				default:
					logger.Info("Index built",
						"building", b.Number,
						"verified", result.Verified,
						"dropped", result.Dropped)
					indexed++
				}
			}

			logger.Info("Ingestion completed",
				"indexed", indexed, "incomplete", incomplete, "skipped", skipped)
			if incomplete > 0 {
				return goerr.New("some indexes are incomplete",
					goerr.V("incomplete", incomplete), goerr.V("indexed", indexed))
			}
			return nil
		},
	}
}
