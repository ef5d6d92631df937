package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/brigade/internal/api"
	"github.com/abhisek/brigade/internal/blob"
	"github.com/abhisek/brigade/internal/config"
	"github.com/abhisek/brigade/internal/discovery"
	"github.com/abhisek/brigade/internal/events"
	"github.com/abhisek/brigade/internal/guard"
	"github.com/abhisek/brigade/internal/llm"
	"github.com/abhisek/brigade/internal/voice"
)

const shutdownGrace = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assessment and practice API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTPAddr = addr
		}
		if cfg.JWTSecret == "" {
			return fmt.Errorf("BRIGADE_JWT_SECRET is required to serve the API")
		}
		logger := cfg.Logger()

		provider, err := newLLMProvider(ctx, st, logger)
		if err != nil {
			return err
		}

		var g guard.Guard
		if cfg.RedisURL != "" {
			client, err := guard.DialRedis(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			defer client.Close()
			g = guard.NewRedis(client, cfg.ServiceName+":guard:", logger)
		}

		var pub events.Publisher
		if cfg.AMQPURL != "" {
			amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
			if err != nil {
				return err
			}
			defer amqpPub.Close()
			d := events.NewDispatcher(amqpPub, 256, logger)
			defer d.Close()
			pub = d
		}

		svc := newServices(cfg, st, provider, g, pub, logger)

		vs, err := newVoiceService(ctx, cfg, logger)
		if err != nil {
			return err
		}

		srv := api.NewServer(api.Deps{
			Assessment:  svc.assessment,
			Tutor:       svc.tutor,
			Bank:        svc.bank,
			Voice:       vs,
			Auth:        api.NewAuth(cfg.JWTSecret),
			Logger:      logger,
			CORSOrigins: cfg.CORSOrigins,
			Ready:       st.Ping,
		})

		if cfg.ConsulAddr != "" {
			reg, err := discovery.RegistrationFor(cfg.ServiceName, cfg.HTTPAddr)
			if err != nil {
				return err
			}
			registry, err := discovery.NewRegistry(cfg.ConsulAddr, reg, logger)
			if err != nil {
				return err
			}
			if err := registry.Register(); err != nil {
				return err
			}
			defer func() {
				if err := registry.Deregister(); err != nil {
					logger.Warn("consul deregistration failed", "error", err)
				}
			}()
		}

		return listenAndServe(ctx, &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}, logger)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides BRIGADE_HTTP_ADDR)")
}

// listenAndServe runs hs until ctx is cancelled, then drains in-flight
// requests.
func listenAndServe(ctx context.Context, hs *http.Server, logger *slog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", hs.Addr)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newVoiceService returns nil when no OpenAI key is configured; voice
// answers are then rejected by the API.
func newVoiceService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*voice.Service, error) {
	oa := llm.ConfigFromEnv().OpenAI
	if oa.APIKey == "" {
		oa.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if oa.APIKey == "" {
		logger.Info("voice answers disabled: no OpenAI API key")
		return nil, nil
	}

	var archive blob.Store
	switch {
	case cfg.BlobBackend == "minio":
		m, err := blob.NewMinIO(ctx, blob.MinIOConfig(cfg.MinIO))
		if err != nil {
			return nil, err
		}
		archive = m
	case cfg.BlobDir != "":
		fs, err := blob.NewFS(cfg.BlobDir)
		if err != nil {
			return nil, err
		}
		archive = fs
	}
	return voice.NewService(voice.NewOpenAITranscriber(oa.APIKey, oa.BaseURL), archive, logger), nil
}
