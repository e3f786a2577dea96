package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"quickbuck/internal/engine"
)

// Config carries everything the api and worker binaries need. Values come
// from QB_* env vars, with a .env file loaded first when present.
type Config struct {
	Addr          string
	DatabaseURL   string
	RedisAddr     string
	AdminToken    string
	TickEvery     time.Duration
	WorkerRunOnce bool
	StartupSeed   bool

	Engine engine.Params
}

type CLIConfig struct {
	APIBaseURL string
	AdminToken string
}

func LoadFromEnv() (Config, error) {
	_ = godotenv.Load()

	addr := strings.TrimSpace(os.Getenv("PORT"))
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("QB_API_ADDR", ":8080")
	}

	cfg := Config{
		Addr:          addr,
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisAddr:     strings.TrimSpace(os.Getenv("QB_REDIS_ADDR")),
		AdminToken:    strings.TrimSpace(os.Getenv("QB_ADMIN_TOKEN")),
		TickEvery:     envDurationDefault("QB_TICK_EVERY", 5*time.Minute),
		WorkerRunOnce: envBoolDefault("QB_WORKER_RUN_ONCE", false),
		StartupSeed:   envBoolDefault("QB_STARTUP_SEED", true),
		Engine:        engineParamsFromEnv(),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	_ = godotenv.Load()
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("QB_API_BASE_URL", "http://localhost:8080"), "/"),
		AdminToken: strings.TrimSpace(os.Getenv("QB_ADMIN_TOKEN")),
	}
}

// engineParamsFromEnv starts from the engine defaults and applies the
// operator-facing overrides. Batch sizes stay configurable because they are
// tuned against the database's per-call read ceiling, not the game rules.
func engineParamsFromEnv() engine.Params {
	p := engine.DefaultParams()
	p.LockStaleAfter = envDurationDefault("QB_LOCK_STALE_AFTER", p.LockStaleAfter)

	p.Demand.TotalBudgetCents = envInt64Default("QB_BOT_BUDGET_CENTS", p.Demand.TotalBudgetCents)
	p.Demand.CompanyWindow = envIntDefault("QB_COMPANY_WINDOW", p.Demand.CompanyWindow)
	p.Demand.MaxProductsPerCompany = envIntDefault("QB_MAX_PRODUCTS_PER_COMPANY", p.Demand.MaxProductsPerCompany)

	p.Costs.Window = envIntDefault("QB_COST_WINDOW", p.Costs.Window)

	p.Stocks.Window = envIntDefault("QB_STOCK_WINDOW", p.Stocks.Window)
	p.Crypto.Window = envIntDefault("QB_CRYPTO_WINDOW", p.Crypto.Window)

	p.Interest.BatchLimit = envIntDefault("QB_INTEREST_BATCH", p.Interest.BatchLimit)
	p.Interest.Batches = envIntDefault("QB_INTEREST_BATCHES", p.Interest.Batches)

	p.NetWorth.BatchLimit = envIntDefault("QB_NETWORTH_BATCH", p.NetWorth.BatchLimit)
	p.NetWorth.Batches = envIntDefault("QB_NETWORTH_BATCHES", p.NetWorth.Batches)
	return p
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
