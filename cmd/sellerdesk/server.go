package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"sellerdesk/internal/answer"
	"sellerdesk/internal/api"
	"sellerdesk/internal/completion"
	"sellerdesk/internal/config"
	"sellerdesk/internal/dispatch"
	"sellerdesk/internal/gate"
	"sellerdesk/internal/knowledge"
	"sellerdesk/internal/logging"
	"sellerdesk/internal/marketplace"
	"sellerdesk/internal/panel"
	"sellerdesk/internal/relay"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the automation loop and operator API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.Info().Str("version", version).Msg("starting sellerdesk")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := knowledge.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening knowledge store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("closing knowledge store")
		}
	}()

	stores := make([]panel.Store, len(cfg.Stores))
	for i, sc := range cfg.Stores {
		stores[i] = panel.Store{
			Config: sc,
			Client: marketplace.NewClient(marketplace.Credentials{
				SellerID:  sc.SellerID,
				APIKey:    sc.APIKey,
				APISecret: sc.APISecret,
			}),
		}
	}

	completer := completion.NewClient(cfg.Completion.APIKey, cfg.Completion.BaseURL)
	generator := answer.NewGenerator(completer, store, answer.Options{
		Model:       cfg.Completion.Model,
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
		MinExamples: cfg.Answering.MinExamples,
		MaxAttempts: cfg.Answering.MaxAttempts,
	}, log)

	delayGate := gate.New(nil)
	tracker := dispatch.New(store, nil, log)
	corr := relay.NewCorrelation()

	// The bot is optional; without a token both notifications and the
	// operator relay stay off.
	var bot *relay.Bot
	var notifier panel.QuestionNotifier
	if cfg.Bot.Token != "" {
		bot = relay.NewBot(cfg.Bot.Token)
		notifier = relay.NewNotifier(bot, cfg.Bot.ChatIDs, corr, log)
	}

	p := panel.New(stores, delayGate, tracker, generator, notifier,
		time.Duration(cfg.Answering.TickSeconds)*time.Second, log)
	go p.Run(ctx)

	if bot != nil {
		clientFor := make(map[string]panel.StoreClient, len(stores))
		for _, st := range stores {
			clientFor[st.Config.Name] = st.Client
		}
		dispatchFn := func(dctx context.Context, storeName string, questionID int64, text, origin string) dispatch.Outcome {
			client, ok := clientFor[storeName]
			if !ok {
				return dispatch.Outcome{Status: dispatch.StatusFailed, Err: fmt.Errorf("unknown store %q", storeName)}
			}
			return tracker.DispatchAnswer(dctx, client, storeName, questionID, text, origin)
		}
		r := relay.New(bot, cfg.Bot.ChatIDs, store, dispatchFn, corr, 5*time.Second, log)
		go r.Run(ctx)
		log.Info().Int("chats", len(cfg.Bot.ChatIDs)).Msg("operator chat relay started")
	}

	deps := api.Deps{
		Token:     cfg.Server.APIToken,
		Stores:    stores,
		Snapshots: p,
		Tracker:   tracker,
		Generator: generator,
		Knowledge: store,
	}

	mcpSrv := api.NewMCPServer(deps)
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("MCP stdio server error")
		}
	}()
	log.Info().Msg("MCP server started (stdio transport)")

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewHandler(deps),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("operator API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
