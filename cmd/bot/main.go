package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/TheUnknownIndividual/solbeck/internal/batch"
	"github.com/TheUnknownIndividual/solbeck/internal/client"
	"github.com/TheUnknownIndividual/solbeck/internal/config"
	"github.com/TheUnknownIndividual/solbeck/internal/fees"
	"github.com/TheUnknownIndividual/solbeck/internal/logger"
	"github.com/TheUnknownIndividual/solbeck/internal/metadata"
	"github.com/TheUnknownIndividual/solbeck/internal/rates"
	"github.com/TheUnknownIndividual/solbeck/internal/referral"
	"github.com/TheUnknownIndividual/solbeck/internal/scanner"
	"github.com/TheUnknownIndividual/solbeck/internal/settle"
	"github.com/TheUnknownIndividual/solbeck/internal/storage"
	"github.com/TheUnknownIndividual/solbeck/internal/telegram"
	"github.com/TheUnknownIndividual/solbeck/internal/wallet"
)

const Version = "1.0.0"

// CLI flags
var (
	network    = flag.String("network", "", "Network to use (mainnet/devnet)")
	logLevel   = flag.String("log-level", "", "Log level (debug/info/warn/error)")
	configFile = flag.String("config", "", "Path to config file")
	envFile    = flag.String("env", "", "Path to .env file")
)

// App ties the scan and settlement pipeline to the telegram transport.
type App struct {
	config *config.Config
	logger *logger.Logger
	store  *storage.Storage
	bot    *telegram.Bot
	cancel context.CancelFunc
}

func main() {
	flag.Parse()

	cfg := loadConfiguration()
	log := initializeLogger(cfg)

	app, err := NewApp(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create application")
	}

	if err := app.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start application")
	}
}

func loadConfiguration() *config.Config {
	cfg, err := config.LoadConfig(*configFile, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *network != "" {
		cfg.Network = *network
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	return cfg
}

func initializeLogger(cfg *config.Config) *logger.Logger {
	log, err := logger.NewLogger(logger.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		LogToFile:   cfg.Logging.LogToFile,
		LogFilePath: cfg.Logging.LogFilePath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return log
}

func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	feePayer, err := solana.PrivateKeyFromBase58(cfg.FeePayerSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid fee payer secret: %w", err)
	}

	feeCollector, err := wallet.ParseDestination(cfg.FeeCollector)
	if err != nil {
		return nil, fmt.Errorf("invalid fee collector address: %w", err)
	}

	rpcEndpoint := cfg.RPCUrl
	if rpcEndpoint == "" {
		rpcEndpoint = config.GetRPCEndpoint(cfg.Network)
	}
	chain := client.NewClient(client.ClientConfig{
		RPCEndpoint: rpcEndpoint,
		APIKey:      cfg.RPCAPIKey,
		Timeout:     30 * time.Second,
	}, log.Logger)

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	tracker, err := referral.NewTracker(store, log.Logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load referral ledger: %w", err)
	}

	resolver := metadata.NewResolver(chain, log.Logger, cfg.RegistryTimeout())
	scan := scanner.New(chain, resolver, log, cfg.StalenessWindow(), cfg.Scan.SignatureProbeLimit)

	calculator := fees.NewCalculator(cfg.Fees.Rate, feeCollector, cfg.Fees.DustLamports, tracker, log.Logger)
	submitter := batch.NewSubmitter(chain, feePayer, log,
		uint(cfg.Batch.MaxSendRetries), cfg.Batch.ConfirmPollAttempts, cfg.ConfirmPollInterval())
	engine := settle.NewEngine(chain, submitter, calculator, tracker, store, log,
		cfg.Batch.BurnBatchSize, cfg.Batch.CloseBatchSize, cfg.Fees.EstimatedRent)

	tgBot, err := telegram.New(telegram.Deps{
		Token:         cfg.BotToken,
		Scanner:       scan,
		Engine:        engine,
		Referrals:     tracker,
		Stats:         store,
		Rates:         rates.NewClient(log.Logger),
		FeeRate:       calculator.Rate(),
		EstimatedRent: cfg.Fees.EstimatedRent,
		Logger:        log.Logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &App{
		config: cfg,
		logger: log,
		store:  store,
		bot:    tgBot,
	}, nil
}

func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.logger.LogStartup(Version, a.config.Network, a.config.RPCUrl)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		a.logger.LogShutdown(sig.String())
		cancel()
	}()

	a.bot.Start(ctx)

	return a.store.Close()
}
