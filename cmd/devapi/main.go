// Command devapi serves the login, signup and laptop endpoints from memory for
// local development. All data is lost when it stops.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/chi-demo/app"

	"github.com/tendant/idm-forms/pkg/config"
	"github.com/tendant/idm-forms/pkg/devapi"
	"github.com/tendant/idm-forms/pkg/ratelimit"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadServer(os.Getenv("DEVAPI_CONFIG"))
	if err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}
	tokenTTL, _ := cfg.TokenTTL()
	rememberTTL, _ := cfg.RememberTTL()

	limit, err := devapi.LoginLimitFromConfig(cfg.LoginRateLimit)
	if err != nil {
		slog.Error("Failed to configure login rate limit", "err", err)
		os.Exit(1)
	}
	loginLimiter := devapi.NewLoginLimiter(limit)
	ipLimiter := ratelimit.New(100, 600*time.Millisecond, ratelimit.WithTTL(time.Hour))
	userLimiter := ratelimit.New(60, time.Second, ratelimit.WithTTL(time.Hour))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go ipLimiter.Run(ctx)
	go userLimiter.Run(ctx)
	if loginLimiter != nil {
		go loginLimiter.Run(ctx)
	}

	laptops := devapi.NewLaptopStore()
	if cfg.SeedCatalog {
		laptops = devapi.NewLaptopStore(devapi.SeedLaptops...)
	}

	srv := devapi.NewServer(
		devapi.WithTokenIssuer(devapi.NewTokenIssuer(cfg.JwtSecret, cfg.JwtIssuer)),
		devapi.WithTokenTTL(tokenTTL, rememberTTL),
		devapi.WithLoginLimiter(loginLimiter),
		devapi.WithUserLimiter(userLimiter),
		devapi.WithLaptopStore(laptops),
		devapi.WithLogger(logger),
	)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	server.R.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(ipLimiter, "ip", ratelimit.KeyByIP))
		srv.Routes(r)
	})

	slog.Info("Dev API ready",
		"login", devapi.LoginPath,
		"signup", devapi.SignupPath,
		"laptops", devapi.LaptopsPath,
		"seeded", cfg.SeedCatalog,
		"login_rate_limit", loginLimiter != nil,
	)
	server.Run()
}
