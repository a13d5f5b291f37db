package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/iudanet/aiinterview/internal/client/api"
	"github.com/iudanet/aiinterview/internal/client/auth"
	"github.com/iudanet/aiinterview/internal/client/cli"
	"github.com/iudanet/aiinterview/internal/client/config"
	"github.com/iudanet/aiinterview/internal/client/interview"
	"github.com/iudanet/aiinterview/internal/client/iocli"
	"github.com/iudanet/aiinterview/internal/client/notify"
	"github.com/iudanet/aiinterview/internal/client/router"
	"github.com/iudanet/aiinterview/internal/client/storage"
	"github.com/iudanet/aiinterview/internal/client/storage/boltdb"
	"github.com/iudanet/aiinterview/internal/client/storage/memory"
	"github.com/iudanet/aiinterview/internal/client/user"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			cli.PrintUsage(os.Stdout)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Show version and exit if requested
	if cfg.ShowVersion {
		printVersion()
		os.Exit(0)
	}

	if len(cfg.Args) == 0 {
		cli.PrintUsage(os.Stderr)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, cli.ErrUnknownCommand) || errors.Is(err, cli.ErrUsage) {
			cli.PrintUsage(os.Stderr)
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Ctrl+C прерывает интервью и текущие запросы
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	httpClient := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: api.NewLoggingTransport(http.DefaultTransport, logger),
	}
	terminal := iocli.NewStdio()

	authStore := auth.NewStore(st, httpClient, cfg.ServerURL, logger)
	r := router.New(authStore, logger)
	authStore.SetNavigator(r)

	notifier := notify.Multi{
		notify.Log{Logger: logger},
		notify.Console{IO: terminal, Verbose: cfg.Verbose},
	}

	client := api.NewClient(cfg.ServerURL, authStore,
		api.WithHTTPClient(httpClient),
		api.WithNotifier(notifier),
		api.WithLogger(logger),
		api.WithDownloadDir(cfg.DownloadDir),
	)
	// гостевая страница интервью: без индикатора загрузки
	guestClient := api.NewClient(cfg.ServerURL, authStore,
		api.WithHTTPClient(httpClient),
		api.WithNotifier(notify.Log{Logger: logger}),
		api.WithLogger(logger),
		api.WithGuestMode(true),
	)

	app := cli.New(cli.Deps{
		IO:          terminal,
		Auth:        authStore,
		Users:       user.NewStore(ctx, authStore, client, logger),
		Client:      client,
		GuestClient: guestClient,
		Router:      r,
		Storage:     st,
		Logger:      logger,
		Version:     Version,
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		InterviewOptions: []interview.Option{
			interview.WithOpeningDelay(cfg.OpeningDelay),
			interview.WithEndDelay(cfg.EndDelay),
		},
	})

	return app.Run(ctx, cfg.Args)
}

// openStorage открывает профиль пользователя: BoltDB или память
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
	if cfg.InMemory() {
		return memory.New(), func() {}, nil
	}

	boltStorage, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return boltStorage, func() {
		if err := boltStorage.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}, nil
}

func printVersion() {
	fmt.Printf("AI Interview Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
