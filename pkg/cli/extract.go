package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/contech-ims/binsight/pkg/domain/model"
	"github.com/contech-ims/binsight/pkg/service/extract"
	"github.com/contech-ims/binsight/pkg/service/source"
	"github.com/contech-ims/binsight/pkg/utils/logging"
)

func cmdExtract() *cli.Command {
	var dataDir string
	var building string
	var force bool

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
			Usage:       "Extract only the given BIN instead of all buildings",
			Sources:     cli.EnvVars("BINSIGHT_BUILDING"),
			Destination: &building,
		},
		&cli.BoolFlag{
			Name:        "force",
			Usage:       "Re-extract records that already have contents",
			Destination: &force,
		},
	}

	return &cli.Command{
		Name:  "extract",
		Usage: "Extract text from CO document PDFs",
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

			svc := extract.New()
			logger := logging.From(ctx)

			var extracted, failed int
			for _, b := range buildings {
				co, err := src.COData(ctx, b.Number)
				if err != nil {
					logger.Warn("no CO records for building, skipping",
						"building", b.Number, "error", err.Error())
					continue
				}

				updated := 0
				for _, rec := range co.Records {
					if rec.Contents != "" && !force {
						continue
					}
					if rec.FileLink == "" {
						continue
					}

					rec.Contents = svc.ExtractFromURL(ctx, rec.FileLink)
					if rec.Contents == model.ExtractionFailedSentinel {
						failed++
					} else {
						extracted++
					}
					updated++
				}

				if updated == 0 {
					continue
				}
				if err := src.SaveCOData(ctx, co); err != nil {
					return goerr.Wrap(err, "failed to save CO records", goerr.V("building", b.Number))
				}
				logger.Info("Extracted CO documents", "building", b.Number, "updated", updated)
			}

			logger.Info("Extraction completed", "extracted", extracted, "failed", failed)
			return nil
		},
	}
}
