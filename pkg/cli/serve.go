package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/contech-ims/binsight/pkg/cli/config"
	httpctrl "github.com/contech-ims/binsight/pkg/controller/http"
	"github.com/contech-ims/binsight/pkg/service/llm"
	"github.com/contech-ims/binsight/pkg/service/source"
	"github.com/contech-ims/binsight/pkg/usecase"
	"github.com/contech-ims/binsight/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var dataDir string
	var appCfg config.AppConfig
	var openaiCfg config.OpenAI
	var repoCfg config.Repository
	var geocodeCfg config.Geocode

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("BINSIGHT_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "Building data directory (local path or gs:// URL)",
			Sources:     cli.EnvVars("BINSIGHT_DATA_DIR"),
			Destination: &dataDir,
		},
	}

	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, openaiCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geocodeCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			appConf, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load application configuration")
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

			ucOpts := []usecase.Option{}
			if len(appConf.Chat.Rules) > 0 {
				ucOpts = append(ucOpts, usecase.WithPromptRules(appConf.Chat.Rules))
				logging.Default().Info("Chat prompt rules loaded", "count", len(appConf.Chat.Rules))
			}

			uc := usecase.New(store, llmClient, llm.New(llmClient), ucOpts...)

			httpOpts := []httpctrl.Options{}
			if dataDir != "" {
				src, err := source.FromPath(ctx, dataDir)
				if err != nil {
					return goerr.Wrap(err, "failed to open data source", goerr.V("data_dir", dataDir))
				}
				defer func() {
					if err := src.Close(); err != nil {
						logging.Default().Error("failed to close data source", "error", err.Error())
					}
				}()
				httpOpts = append(httpOpts, httpctrl.WithSource(src))
				logging.Default().Info("Building listing enabled", "data_dir", dataDir)
			}

			if geocoder := geocodeCfg.Configure(); geocoder != nil {
				httpOpts = append(httpOpts, httpctrl.WithGeocoder(geocoder))
				logging.Default().Info("Geocoding enabled")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}
				logging.Default().Info("Server stopped")
			}

			return nil
		},
	}
}
