package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the validator watcher.
type Config struct {
	BeaconEndpoint  string
	PubkeysFile     string
	Web3SignerURLs  []string
	LivenessFile    string
	SlackWebhookURL string
	HistoryDBPath   string
	MetricsPort     int
	Network         string

	GenesisTimestamp int64
	SlotDuration     time.Duration

	// TickDriver selects how slot ticks are produced: "sse" subscribes to
	// the beacon node's block event stream, "clock" derives ticks from the
	// genesis timestamp and wall-clock time.
	TickDriver string
}

// Known network genesis timestamps. GENESIS_TIMESTAMP overrides them for
// networks not listed here.
var networkGenesis = map[string]int64{
	"mainnet": 1606824023,
	"holesky": 1695902400,
	"hoodi":   1742213400,
}

// Load reads configuration from environment variables. CLI flags in cmd/
// override individual fields afterwards.
func Load() (*Config, error) {
	cfg := &Config{
		BeaconEndpoint:  strings.TrimSpace(os.Getenv("BEACON_ENDPOINT")),
		PubkeysFile:     strings.TrimSpace(os.Getenv("PUBKEYS_FILE")),
		LivenessFile:    strings.TrimSpace(os.Getenv("LIVENESS_FILE")),
		SlackWebhookURL: strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL")),
		HistoryDBPath:   strings.TrimSpace(os.Getenv("HISTORY_DB_PATH")),
		Network:         strings.ToLower(strings.TrimSpace(os.Getenv("NETWORK"))),
		MetricsPort:     8000,
		SlotDuration:    12 * time.Second,
		TickDriver:      "sse",
	}

	if cfg.Network == "" {
		cfg.Network = "mainnet"
	}

	if raw := strings.TrimSpace(os.Getenv("WEB3SIGNER_URLS")); raw != "" {
		for _, u := range strings.Split(raw, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.Web3SignerURLs = append(cfg.Web3SignerURLs, u)
			}
		}
	}

	if raw := strings.TrimSpace(os.Getenv("METRICS_PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid METRICS_PORT: %q", raw)
		}
		cfg.MetricsPort = port
	}

	if raw := strings.TrimSpace(os.Getenv("GENESIS_TIMESTAMP")); raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ts < 0 {
			return nil, fmt.Errorf("invalid GENESIS_TIMESTAMP: %q", raw)
		}
		cfg.GenesisTimestamp = ts
	} else if ts, ok := networkGenesis[cfg.Network]; ok {
		cfg.GenesisTimestamp = ts
	}

	if raw := strings.TrimSpace(os.Getenv("SLOT_DURATION_SECONDS")); raw != "" {
		sec, err := strconv.Atoi(raw)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid SLOT_DURATION_SECONDS: %q", raw)
		}
		cfg.SlotDuration = time.Duration(sec) * time.Second
	}

	if driver := strings.ToLower(strings.TrimSpace(os.Getenv("TICK_DRIVER"))); driver != "" {
		cfg.TickDriver = driver
	}

	return cfg, nil
}

// Validate checks the fields required to actually run.
func (c *Config) Validate() error {
	if c.BeaconEndpoint == "" {
		return fmt.Errorf("beacon endpoint is required")
	}
	if c.PubkeysFile == "" && len(c.Web3SignerURLs) == 0 {
		return fmt.Errorf("at least one pubkey source is required (pubkeys file or web3signer URL)")
	}
	switch c.TickDriver {
	case "sse", "clock":
	default:
		return fmt.Errorf("unknown tick driver: %q", c.TickDriver)
	}
	if c.TickDriver == "clock" && c.GenesisTimestamp == 0 {
		return fmt.Errorf("genesis timestamp is required for the clock tick driver")
	}
	return nil
}
