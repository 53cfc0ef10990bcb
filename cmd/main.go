package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/stakewatch/validator-watcher/internal/adapters/beacon"
	"github.com/stakewatch/validator-watcher/internal/adapters/console"
	"github.com/stakewatch/validator-watcher/internal/adapters/keyfile"
	"github.com/stakewatch/validator-watcher/internal/adapters/liveness"
	"github.com/stakewatch/validator-watcher/internal/adapters/metrics"
	"github.com/stakewatch/validator-watcher/internal/adapters/slack"
	ssesource "github.com/stakewatch/validator-watcher/internal/adapters/sse"
	"github.com/stakewatch/validator-watcher/internal/adapters/sqlite"
	"github.com/stakewatch/validator-watcher/internal/adapters/web3signer"
	"github.com/stakewatch/validator-watcher/internal/application/ports"
	"github.com/stakewatch/validator-watcher/internal/application/services"
	"github.com/stakewatch/validator-watcher/internal/config"
	"github.com/stakewatch/validator-watcher/internal/logger"
)

func main() {
	app := &cli.App{
		Name:  "validator-watcher",
		Usage: "watch a beacon chain and alert on missed duties and slashings for your validators",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "beacon-url", Usage: "URL of the beacon node"},
			&cli.StringFlag{Name: "pubkeys-file", Usage: "file with one validator pubkey per line"},
			&cli.StringSliceFlag{Name: "web3signer-url", Usage: "URL of a web3signer managing keys to watch (repeatable)"},
			&cli.StringFlag{Name: "liveness-file", Usage: "file overwritten after each completed tick"},
			&cli.StringFlag{Name: "slack-webhook-url", Usage: "Slack incoming webhook for critical alerts"},
			&cli.StringFlag{Name: "history-db", Usage: "sqlite file recording duty history"},
			&cli.IntFlag{Name: "metrics-port", Usage: "port for the Prometheus /metrics listener"},
			&cli.StringFlag{Name: "tick-driver", Usage: "slot tick driver: sse or clock"},
			&cli.Int64Flag{Name: "genesis-timestamp", Usage: "chain genesis unix timestamp (clock driver)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal("%v", err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Info("Starting validator-watcher: network=%s, beaconEndpoint=%s, tickDriver=%s",
		cfg.Network, cfg.BeaconEndpoint, cfg.TickDriver)

	beaconAdapter, err := beacon.NewBeaconAdapter(cfg.BeaconEndpoint)
	if err != nil {
		return err
	}

	var pubkeySources []ports.PubkeySource
	if cfg.PubkeysFile != "" {
		pubkeySources = append(pubkeySources, keyfile.NewFileAdapter(cfg.PubkeysFile))
	}
	for _, url := range cfg.Web3SignerURLs {
		pubkeySources = append(pubkeySources, web3signer.NewWeb3SignerAdapter(url))
	}

	alertSinks := []ports.AlertSink{console.NewSink()}
	if cfg.SlackWebhookURL != "" {
		alertSinks = append(alertSinks, slack.NewNotifier(cfg.SlackWebhookURL))
	}
	alerts := &services.MultiSink{Sinks: alertSinks}

	var history ports.HistoryStore
	if cfg.HistoryDBPath != "" {
		store, err := sqlite.NewSQLiteStorage(cfg.HistoryDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		history = store
	}

	var livenessWriter ports.LivenessWriter
	if cfg.LivenessFile != "" {
		livenessWriter = liveness.NewFileWriter(cfg.LivenessFile)
	}

	metricsSink := metrics.NewPrometheusSink()

	duties := services.NewDutyReconciler(beaconAdapter)
	watcher := &services.Watcher{
		Duties: duties,
		Proposals: &services.BlockProposalMonitor{
			Duties:  duties,
			Blocks:  beaconAdapter,
			Alerts:  alerts,
			Metrics: metricsSink,
			History: history,
		},
		Attests: &services.AttestationMonitor{
			Evaluator: beaconAdapter,
			Alerts:    alerts,
			Metrics:   metricsSink,
			History:   history,
		},
		Slashings: &services.SlashingMonitor{
			Provider: beaconAdapter,
			Alerts:   alerts,
			Metrics:  metricsSink,
			History:  history,
		},
		PubkeySources: pubkeySources,
		Resolver:      beaconAdapter,
		Metrics:       metricsSink,
		Liveness:      livenessWriter,
		State:         services.NewStateStore(),
	}

	var tickSource ports.TickSource
	switch cfg.TickDriver {
	case "clock":
		tickSource = services.NewSlotClock(cfg.GenesisTimestamp, cfg.SlotDuration)
	default:
		tickSource = ssesource.NewEventSource(cfg.BeaconEndpoint)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handleShutdown(cancel)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		metricsSink.Serve(ctx, cfg.MetricsPort)
	}()

	ticks, err := tickSource.Ticks(ctx)
	if err != nil {
		return err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.Run(ctx, ticks)
	}()

	wg.Wait()
	logger.Info("All services stopped. Shutting down.")
	return nil
}

// applyFlags overlays CLI flags on top of the environment configuration.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if v := c.String("beacon-url"); v != "" {
		cfg.BeaconEndpoint = v
	}
	if v := c.String("pubkeys-file"); v != "" {
		cfg.PubkeysFile = v
	}
	if v := c.StringSlice("web3signer-url"); len(v) > 0 {
		cfg.Web3SignerURLs = v
	}
	if v := c.String("liveness-file"); v != "" {
		cfg.LivenessFile = v
	}
	if v := c.String("slack-webhook-url"); v != "" {
		cfg.SlackWebhookURL = v
	}
	if v := c.String("history-db"); v != "" {
		cfg.HistoryDBPath = v
	}
	if v := c.Int("metrics-port"); v != 0 {
		cfg.MetricsPort = v
	}
	if v := c.String("tick-driver"); v != "" {
		cfg.TickDriver = v
	}
	if v := c.Int64("genesis-timestamp"); v != 0 {
		cfg.GenesisTimestamp = v
	}
}

// handleShutdown listens for SIGINT/SIGTERM and cancels the context
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received signal: %s. Initiating shutdown...", sig)
		cancel()
	}()
}
