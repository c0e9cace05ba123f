package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"multiapi/internal/api"
	"multiapi/internal/api/handler/v1handler"
	"multiapi/internal/caption"
	"multiapi/internal/config"
	"multiapi/internal/expander"
	"multiapi/internal/mailbot"
	"multiapi/pkg/captcha"
	"multiapi/pkg/captcha/turnstile"
	"multiapi/pkg/fetcher/httpfetch"
	"multiapi/pkg/logger"
	"multiapi/pkg/mailer"
	"multiapi/pkg/mailer/gomail"
)

func newFetcher(cfg *config.Config) *httpfetch.Client {
	return httpfetch.New(httpfetch.Options{
		Timeout:      cfg.Fetch.Timeout,
		MaxRedirects: cfg.Fetch.MaxRedirects,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		UserAgent:    cfg.Fetch.UserAgent,
	})
}

func newVerifier(ctx context.Context, cfg *config.Config) captcha.Verifier {
	if cfg.Captcha.Secret == "" {
		logger.Info(ctx, "captcha secret not set, caption requests are not verified")

		return captcha.Noop{}
	}

	return turnstile.New(&http.Client{Timeout: cfg.Fetch.Timeout}, cfg.Captcha.Secret, cfg.Captcha.VerifyURL)
}

func newDispatcher(ctx context.Context, cfg *config.Config) *mailer.Dispatcher {
	if !cfg.MailConfigured() {
		logger.Warn(ctx, "smtp credentials not set, mail endpoints will fail")

		return mailer.NewDispatcher(nil, mailer.Config{FromName: cfg.SMTP.FromName})
	}

	sender := gomail.New(gomail.Options{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		Timeout:  cfg.SMTP.Timeout,
	})

	return mailer.NewDispatcher(sender, mailer.Config{From: cfg.SMTP.Username, FromName: cfg.SMTP.FromName})
}

func setupServer(ctx context.Context, cfg *config.Config) func(ctx context.Context) {
	if err := os.MkdirAll(cfg.Uploads.Dir, 0o750); err != nil {
		logger.Fatal(ctx, "could not create upload directory", zap.Error(err))
	}

	fetch := newFetcher(cfg)
	deps := api.Deps{Deps: v1handler.Deps{
		Caption:  caption.New(fetch, newVerifier(ctx, cfg)),
		Expander: expander.New(fetch),
		Mail:     mailbot.New(newDispatcher(ctx, cfg), mailbot.NewOptions(cfg)),
	}}

	opts := api.NewOptions(cfg)
	server, err := api.NewServer(deps, opts)
	if err != nil {
		logger.Fatal(ctx, "could not create webserver", zap.Error(err))
	}
	servers := []*http.Server{server}
	if opts.AdminAddr != "" {
		servers = append(servers, api.NewAdminServer(opts))
	}

	for _, srv := range servers {
		go func() {
			logger.Info(ctx, "starting webserver...", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil {
				if !errors.Is(err, http.ErrServerClosed) {
					logger.Error(ctx, "could not start webserver", zap.String("addr", srv.Addr), zap.Error(err))
				}
			}
		}()
	}

	return func(ctx context.Context) {
		for _, srv := range servers {
			logger.Info(ctx, "stopping webserver...", zap.String("addr", srv.Addr))
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error(ctx, "could not stop webserver", zap.String("addr", srv.Addr), zap.Error(err))
			}
		}
	}
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the API server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stopWebserver := setupServer(ctx, cfg)

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			stopWebserver(shutdownCtx)
		},
	}

	return cmd
}
