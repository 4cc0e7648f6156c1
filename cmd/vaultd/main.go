package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"restakevault/config"
	gwconfig "restakevault/gateway/config"
	"restakevault/native/custodian"
	"restakevault/native/strategy"
	"restakevault/native/vault"
	"restakevault/observability/logging"
	telemetry "restakevault/observability/otel"
	"restakevault/rpc"
	"restakevault/state"
	"restakevault/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.toml", "path to vaultd config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("VAULT_ENV"))
	logger := logging.Setup("vaultd", env)

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	otlpHeaders := telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "vaultd",
		Environment: env,
		Endpoint:    otlpEndpoint,
		Insecure:    insecure,
		Headers:     otlpHeaders,
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		logger.Error("init telemetry", "err", err)
		os.Exit(1)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	gwCfg := gwconfig.Default()
	if path := strings.TrimSpace(cfg.GatewayConfigFile); path != "" {
		gwCfg, err = gwconfig.Load(path)
		if err != nil {
			logger.Error("load gateway config", "err", err)
			os.Exit(1)
		}
	}

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("open database", "backend", cfg.StorageBackend, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	collateral := state.NewCollateralLedger(manager)
	rewards := state.NewRewardLedger(manager)

	vaultAddr, err := config.ParseAddress(cfg.VaultAddress)
	if err != nil {
		logger.Error("parse vault address", "err", err)
		os.Exit(1)
	}
	strategyAddr, err := config.ParseAddress(cfg.StrategyAddress)
	if err != nil {
		logger.Error("parse strategy address", "err", err)
		os.Exit(1)
	}
	custodianAddr, err := config.ParseAddress(cfg.CustodianAddress)
	if err != nil {
		logger.Error("parse custodian address", "err", err)
		os.Exit(1)
	}

	venue := strategy.NewVenue(strategyAddr)
	venue.SetState(manager)
	venue.SetCollateral(collateral)

	queue := custodian.NewQueue(custodianAddr)
	queue.SetState(manager)
	queue.SetCollateral(collateral)

	hub := rpc.NewEventHub()

	engine := vault.NewEngine(vaultAddr)
	engine.SetState(manager)
	engine.SetEmitter(hub)
	engine.SetCollaborators(collateral, rewards, venue, queue)
	engine.SetStrategyAddress(strategyAddr)
	engine.SetRewardsDuration(cfg.RewardsDurationSeconds)
	if raw := strings.TrimSpace(cfg.OperatorAddress); raw != "" {
		operator, err := config.ParseAddress(raw)
		if err != nil {
			logger.Error("parse operator address", "err", err)
			os.Exit(1)
		}
		engine.SetOperator(operator)
	}
	if raw := strings.TrimSpace(cfg.RewardSourceAddress); raw != "" {
		source, err := config.ParseAddress(raw)
		if err != nil {
			logger.Error("parse reward source address", "err", err)
			os.Exit(1)
		}
		engine.SetRewardSource(source)
	}
	if raw := strings.TrimSpace(cfg.StrategyID); raw != "" {
		strategyID, err := config.ParseStrategyID(raw)
		if err != nil {
			logger.Error("parse strategy id", "err", err)
			os.Exit(1)
		}
		engine.SetStrategyID(strategyID)
	}

	server := rpc.NewServer(engine, venue, queue, gwCfg, hub, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("vaultd starting",
		"network", cfg.NetworkName,
		"rpc", cfg.RPCAddress,
		"backend", cfg.StorageBackend,
	)
	if err := server.Serve(ctx, cfg.RPCAddress, gwCfg); err != nil {
		logger.Error("rpc server", "err", err)
		os.Exit(1)
	}
	logger.Info("vaultd stopped")
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.StorageBackend)) {
	case "bolt":
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "vault.db"))
	default:
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "leveldb"))
	}
}
