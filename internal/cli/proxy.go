package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/infra/gemini"
	transport "timed-quiz-service/internal/transport/http"
)

const defaultProxyPort = "3001"

// NewProxyCmd starts the prompt relay in front of the Gemini API.
func NewProxyCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "proxy",
		Short: "Start the Gemini prompt proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProxy(cmd.Context(), *configPath, *port)
		},
	}
}

func runProxy(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := cfg.NewLogger()

	gen, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + firstNonEmpty(portFlag, cfg.Gemini.Port, defaultProxyPort),
		Handler:      transport.NewProxyRouter(gen, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
	}
	log.Info("starting gemini proxy", "addr", server.Addr, "model", firstNonEmpty(cfg.Gemini.Model, gemini.DefaultModel))
	return serve(ctx, server, log)
}
