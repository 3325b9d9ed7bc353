package cli

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/contech-ims/binsight/pkg/domain/model"
	"github.com/contech-ims/binsight/pkg/service/ims"
	"github.com/contech-ims/binsight/pkg/service/source"
	"github.com/contech-ims/binsight/pkg/utils/logging"
)

func cmdFetch() *cli.Command {
	var dataDir string
	var building string
	var imsBaseURL string

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
			Usage:       "Fetch only the given BIN instead of all buildings",
			Sources:     cli.EnvVars("BINSIGHT_BUILDING"),
			Destination: &building,
		},
		&cli.StringFlag{
			Name:        "ims-url",
			Usage:       "IMS API base URL",
			Value:       ims.DefaultBaseURL,
			Sources:     cli.EnvVars("BINSIGHT_IMS_URL"),
			Destination: &imsBaseURL,
		},
	}

	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch CO and violation records from the IMS API",
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

			client := ims.New(ims.WithBaseURL(imsBaseURL))
			logger := logging.From(ctx)

			var fetched, failed int
			for _, b := range buildings {
				if err := fetchBuilding(ctx, client, src, b.Number); err != nil {
					logger.Error("failed to fetch building records",
						"building", b.Number, "error", err.Error())
					failed++
					continue
				}
				fetched++
			}

			logger.Info("Fetch completed", "fetched", fetched, "failed", failed)
			if failed > 0 {
				return goerr.New("some buildings could not be fetched",
					goerr.V("failed", failed), goerr.V("fetched", fetched))
			}
			return nil
		},
	}
}

func fetchBuilding(ctx context.Context, client *ims.Client, src *source.Service, bin string) error {
	rawCO, err := client.COByBIN(ctx, bin)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch CO records")
	}

	var co model.COData
	if err := json.Unmarshal(rawCO, &co); err != nil {
		return goerr.Wrap(err, "failed to parse CO response")
	}
	if co.BIN == "" {
		co.BIN = bin
	}
	if err := src.SaveCOData(ctx, &co); err != nil {
		return goerr.Wrap(err, "failed to save CO records")
	}

	rawViolations, err := client.ViolationsByBIN(ctx, bin)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch violation records")
	}
	if err := src.SaveViolations(ctx, bin, rawViolations); err != nil {
		return goerr.Wrap(err, "failed to save violation records")
	}

	logging.From(ctx).Info("Fetched building records",
		"building", bin, "co_records", len(co.Records))
	return nil
}

// selectBuildings loads buildings.json and optionally narrows it down to a
// single BIN.
func selectBuildings(ctx context.Context, src *source.Service, bin string) ([]*model.Building, error) {
	buildings, err := src.Buildings(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load buildings")
	}

	if bin == "" {
		return buildings, nil
	}
	for _, b := range buildings {
		if b.Number == bin {
			return []*model.Building{b}, nil
		}
	}
	return nil, goerr.New("building not found", goerr.V("building", bin))
}
