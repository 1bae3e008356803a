package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Config is the server configuration, read from the environment (an optional
// .env file is honored).
type Config struct {
	HTTPAddr     string
	DatabaseURL  string   // empty selects the in-memory store
	KafkaBrokers []string // empty disables the Kafka publisher and relay
	ChainID      uint64
	Owner        string
	PoolAddress  string
	GlobalRate   decimal.Decimal // per-second simple interest for new accounts
}

// MustLoad reads the configuration or exits.
func MustLoad() Config {
	// Missing .env is fine; real env vars still apply.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Owner:       getEnv("LEDGER_OWNER", "owner"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	chainID, err := strconv.ParseUint(getEnv("CHAIN_ID", "1"), 10, 64)
	if err != nil {
		logrus.WithError(err).Fatal("invalid CHAIN_ID")
	}
	cfg.ChainID = chainID
	cfg.PoolAddress = getEnv("POOL_ADDRESS", fmt.Sprintf("pool-%d", chainID))

	rate, err := decimal.NewFromString(getEnv("GLOBAL_RATE", "0.0000000005"))
	if err != nil || rate.IsNegative() {
		logrus.WithError(err).Fatal("invalid GLOBAL_RATE")
	}
	cfg.GlobalRate = rate

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
