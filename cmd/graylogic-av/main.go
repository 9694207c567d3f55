// Gray Logic AV - command gating for projectors, displays and receivers.
//
// The service loads device manifests, builds one dispatcher per device and
// gates every command against the device's power, warm-up and cool-down
// state before it reaches the transport. Commands arrive over the REST API;
// dispatcher events are recorded to SQLite and optionally mirrored to
// InfluxDB, MQTT and WebSocket subscribers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/gray-logic-av/migrations"

	"github.com/nerrad567/gray-logic-av/internal/api"
	"github.com/nerrad567/gray-logic-av/internal/audit"
	"github.com/nerrad567/gray-logic-av/internal/auth"
	"github.com/nerrad567/gray-logic-av/internal/dispatch"
	"github.com/nerrad567/gray-logic-av/internal/driver"
	"github.com/nerrad567/gray-logic-av/internal/history"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-av/internal/transport"
	"github.com/nerrad567/gray-logic-av/internal/transport/loopback"
	"github.com/nerrad567/gray-logic-av/internal/transport/mqttlink"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnvVar      = "GRAYLOGIC_AV_CONFIG"
)

// options holds the parsed command line.
type options struct {
	configPath  string
	showVersion bool
	issueToken  string
	role        string
	tokenTTL    time.Duration
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Printf("graylogic-av %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	if opts.issueToken != "" {
		if err := issueToken(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads the command line. The config path falls back to
// GRAYLOGIC_AV_CONFIG, then configs/config.yaml.
func parseFlags(args []string) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("graylogic-av", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml (env "+configEnvVar+")")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	fs.StringVar(&opts.issueToken, "issue-token", "", "print an access token for SUBJECT and exit")
	fs.StringVar(&opts.role, "role", string(auth.RoleOperator), "role for --issue-token (viewer, operator, admin)")
	fs.DurationVar(&opts.tokenTTL, "ttl", 0, "lifetime for --issue-token (default security.jwt.access_token_ttl)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if opts.configPath == "" {
		opts.configPath = getConfigPath()
	}
	return opts, nil
}

// getConfigPath returns GRAYLOGIC_AV_CONFIG if set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// issueToken prints a signed access token. Used to provision touch panels
// and scripts; there is no login endpoint.
func issueToken(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	role, err := auth.ParseRole(opts.role)
	if err != nil {
		return err
	}

	ttl := opts.tokenTTL
	if ttl <= 0 {
		ttl = time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
	}
	token, err := auth.GenerateAccessToken(opts.issueToken, role, cfg.Security.JWT.Secret, ttl)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	fmt.Println(token)
	return nil
}

func run(ctx context.Context, opts options) error {
	log := logging.Default()
	log.Info("starting Gray Logic AV",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", opts.configPath, "site", cfg.Site.ID)

	db, err := database.Open(database.FromConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", db.Path())

	manifests, err := driver.LoadManifestDir(cfg.Drivers.ManifestDir)
	if err != nil {
		return fmt.Errorf("loading device manifests: %w", err)
	}
	devices, err := driver.DefaultRegistry().ResolveAll(manifests)
	if err != nil {
		return fmt.Errorf("resolving drivers: %w", err)
	}
	log.Info("device manifests loaded", "dir", cfg.Drivers.ManifestDir, "devices", len(devices))

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttLog := log.Component("mqtt")
		mqttClient.SetLogger(mqttLog)
		mqttClient.SetOnConnect(func() { mqttLog.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { mqttLog.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxLog := log.Component("influxdb")
		influxClient.SetOnError(func(err error) {
			influxLog.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	historyLog := log.Component("history")
	apiLog := log.Component("api")

	recorder := history.NewRecorder(db.DB, historyLog)
	hub := api.NewHub(cfg.WebSocket, apiLog)

	observers := dispatch.MultiObserver{recorder, hub}
	if influxClient != nil {
		observers = append(observers, influxClient)
	}
	if mqttClient != nil {
		observers = append(observers, mqttlink.NewEventPublisher(mqttClient, log.Component("mqttlink")))
	}

	factory, err := newTransportFactory(cfg, mqttClient, log)
	if err != nil {
		return err
	}
	if cfg.Drivers.DevMode {
		factory.ForceKind(transport.KindLoopback)
		log.Warn("dev mode: every device uses the loopback transport")
	}

	manager, err := buildManager(cfg, devices, factory, observers, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := manager.Close(); closeErr != nil {
			log.Error("error closing dispatchers", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return manager.RunAll(gctx)
	})
	g.Go(func() error {
		return recorder.RunPruner(gctx, cfg.GetHistoryRetention(), history.DefaultPruneInterval, historyLog)
	})

	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   apiLog,
			Manager:  manager,
			Devices:  devices,
			History:  recorder,
			Audit:    audit.NewSQLiteRepository(db.DB),
			Hub:      hub,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(gctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			return srv.Close()
		})
	} else {
		log.Info("API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("Gray Logic AV stopped")
	return nil
}

// newTransportFactory registers the loopback builder and, when a broker
// client is available, the MQTT builder.
func newTransportFactory(cfg *config.Config, mqttClient *mqtt.Client, log *logging.Logger) (*transport.Factory, error) {
	f := transport.NewFactory()

	err := f.Register(transport.KindLoopback, func(dev *driver.Device) (dispatch.Transport, error) {
		tr, err := loopback.FromSettings(dev.Manifest.Transport.Settings)
		if err != nil {
			return nil, err
		}
		return tr, nil
	})
	if err != nil {
		return nil, err
	}

	err = f.Register(transport.KindMQTT, func(dev *driver.Device) (dispatch.Transport, error) {
		if mqttClient == nil {
			return nil, fmt.Errorf("device %s needs MQTT but mqtt.enabled is false", dev.ID())
		}
		tr, err := mqttlink.New(mqttClient, dev.ID(), mqttlink.Options{
			QoS:     byte(cfg.MQTT.QoS),
			Timeout: dev.ResponseTimeout(cfg.GetResponseTimeout()),
			Logger:  log.ForDevice("mqttlink", dev.ID()),
		})
		if err != nil {
			return nil, err
		}
		return tr, nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// buildManager creates one dispatcher per device.
func buildManager(cfg *config.Config, devices []*driver.Device, factory *transport.Factory, observer dispatch.Observer, log *logging.Logger) (*dispatch.Manager, error) {
	manager := dispatch.NewManager()
	for _, dev := range devices {
		tr, err := factory.Build(dev)
		if err != nil {
			_ = manager.Close()
			return nil, err
		}
		d, err := dispatch.New(dispatchOptions(cfg, dev, tr, observer, log))
		if err != nil {
			_ = tr.Close()
			_ = manager.Close()
			return nil, fmt.Errorf("creating dispatcher for %s: %w", dev.ID(), err)
		}
		if err := manager.Add(d); err != nil {
			_ = d.Close()
			_ = manager.Close()
			return nil, err
		}
	}
	return manager, nil
}

// dispatchOptions merges a resolved device with the service defaults.
func dispatchOptions(cfg *config.Config, dev *driver.Device, tr dispatch.Transport, observer dispatch.Observer, log *logging.Logger) dispatch.Options {
	return dispatch.Options{
		DeviceID:           dev.ID(),
		Table:              dev.Table,
		Transport:          tr,
		QueueMode:          dev.Settings.QueueMode,
		QueueCapacity:      dev.QueueCapacity(cfg.Drivers.QueueCapacity),
		SupportsLocalTimer: dev.Settings.SupportsLocalTimer,
		Warmup:             dev.Settings.Warmup,
		Cooldown:           dev.Settings.Cooldown,
		TickInterval:       cfg.GetTickInterval(),
		ResponseTimeout:    dev.ResponseTimeout(cfg.GetResponseTimeout()),
		PollInterval:       dev.Settings.PollInterval,
		PowerOnResponse:    dev.PowerOnResponse(),
		PowerOffResponse:   dev.PowerOffResponse(),
		Observer:           observer,
		Logger:             log,
	}
}

// healthCheck verifies the infrastructure connections. Disabled
// integrations are nil and skipped.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
