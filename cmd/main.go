package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/sowilo/featureflag"
	"github.com/aukilabs/sowilo/feed"
	sowilohttp "github.com/aukilabs/sowilo/http"
	"github.com/aukilabs/sowilo/pipeline"
	"github.com/aukilabs/sowilo/profile"
	"github.com/aukilabs/sowilo/smoketest"
	"github.com/golang/geo/r3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The Sowilo version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "sowilo_info",
		Help:        "Sowilo information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"SOWILO_ADDR"                 help:"Listening address for sensor feed connections."`
	AdminAddr          string        `cli:""        env:"SOWILO_ADMIN_ADDR"           help:"Admin listening address."`
	ProfileFile        string        `cli:""        env:"SOWILO_PROFILE_FILE"         help:"The YAML or TOML sensor profile. The reference sensor is used when empty."`
	FeedToken          string        `cli:""        env:"SOWILO_FEED_TOKEN"           help:"The bearer token required to connect a sensor feed. Any client is accepted when empty."`
	AdminToken         string        `cli:""        env:"SOWILO_ADMIN_TOKEN"          help:"The bearer token required by admin routes that change the store. Any request is accepted when empty."`
	LogLevel           string        `cli:""        env:"SOWILO_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"SOWILO_LOG_INDENT"           help:"Indent logs."`
	FrameDuration      time.Duration `cli:",hidden" env:"SOWILO_FRAME_DURATION"       help:"The duration of a projection frame."`
	SnapshotInterval   time.Duration `cli:",hidden" env:"SOWILO_SNAPSHOT_INTERVAL"    help:"The minimum duration between two published store snapshots."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"SOWILO_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle sensor client will be disconnected."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"SOWILO_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	ShutdownTimeout    time.Duration `cli:",hidden" env:"SOWILO_SHUTDOWN_TIMEOUT"     help:"The time given to servers to close their connections."`
	Events             eventsConfig  `cli:",hidden" env:"-"                           help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"SOWILO_FEATURE_FLAGS"        help:"Comma separated feature flags."`
	Version            bool          `cli:""        env:"-"                           help:"Show version."`
	Help               bool          `cli:""        env:"-"                           help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"SOWILO_EVENTS_ENDPOINT"       help:"Endpoint to where log events are pushed. Logs are written to the standard output when empty."`
	FlushInterval time.Duration `cli:",hidden" env:"SOWILO_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"SOWILO_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"SOWILO_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

type pointRequest struct {
	Label    string     `json:"label"`
	Position [3]float64 `json:"position"`
}

type resolutionRequest struct {
	MinSize float64 `json:"min_size"`
}

func main() {
	conf := config{
		Addr:               ":4100",
		AdminAddr:          ":18191",
		LogLevel:           logs.InfoLevel.String(),
		FrameDuration:      time.Millisecond * 33,
		SnapshotInterval:   time.Second,
		ClientIdleTimeout:  time.Minute,
		LogSummaryInterval: time.Minute,
		ShutdownTimeout:    time.Second * 10,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts Sowilo server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "sowilo",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	p, err := loadProfile(conf.ProfileFile)
	if err != nil {
		logs.Fatal(err)
	}

	flags := featureflag.New(conf.FeatureFlags)
	inputs := &pipeline.Inputs{}

	frameLoop, err := pipeline.New(p, flags, inputs)
	if err != nil {
		logs.Fatal(errors.New("creating frame loop failed").Wrap(err))
	}
	frameLoop.FrameDuration = conf.FrameDuration
	frameLoop.SnapshotInterval = conf.SnapshotInterval

	var service http.ServeMux
	service.Handle("/health", sowilohttp.HandleWithCORS(http.HandlerFunc(sowilohttp.HandleHealthCheck)))
	service.Handle("/ready", sowilohttp.HandleWithCORS(sowilohttp.HandleReadyCheck(frameLoop.Ready)))
	service.Handle("/version", sowilohttp.HandleWithCORS(sowilohttp.HandleVersion(version)))
	service.Handle("/feed", websocket.Server{
		Handshake: sowilohttp.VerifyToken(conf.FeedToken),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var h feed.Handler = &feed.SensorHandler{
				Sink:              inputs,
				ClientIdleTimeout: conf.ClientIdleTimeout,
			}
			h = feed.HandlerWithLogs(h, conf.LogSummaryInterval)
			h = feed.HandlerWithMetrics(h)
			defer h.Close()

			feed.Handle(ctx, conn, h)
		},
	})

	admin := newAdminMux(ctx, conf, frameLoop)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := frameLoop.Run(ctx); err != nil && err != context.Canceled {
			logs.Fatal(errors.New("frame loop stopped").Wrap(err))
		}
	}()

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("addr", conf.Addr).
		WithTag("admin_addr", conf.AdminAddr).
		WithTag("profile_file", conf.ProfileFile).
		WithTag("feature_flags", flags.List()).
		Info("starting sowilo server")

	sowilohttp.ListenAndServe(ctx, conf.ShutdownTimeout,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			sowilohttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: admin},
	)

	cancel()
	wg.Wait()
}

// newAdminMux returns the admin routes. Routes changing the store or dialing
// out require the admin token.
func newAdminMux(ctx context.Context, conf config, frameLoop *pipeline.Pipeline) *http.ServeMux {
	admin := &http.ServeMux{}
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", sowilohttp.HandleHealthCheck)
	admin.HandleFunc("/ready", sowilohttp.HandleReadyCheck(frameLoop.Ready))
	admin.HandleFunc("/version", sowilohttp.HandleVersion(version))
	admin.HandleFunc("/about", sowilohttp.HandleJSON(func() any {
		return frameLoop.Status()
	}))
	admin.HandleFunc("/snapshot", sowilohttp.HandleJSON(func() any {
		return frameLoop.Snapshot()
	}))
	admin.HandleFunc("/points", sowilohttp.HandleJSON(func() any {
		return frameLoop.Points()
	}))
	admin.HandleFunc("/points/save", sowilohttp.VerifyTokenHandler(conf.AdminToken, sowilohttp.HandlePostJSON(func(req pointRequest) (any, error) {
		return frameLoop.SavePoint(req.Label, r3.Vector{
			X: req.Position[0],
			Y: req.Position[1],
			Z: req.Position[2],
		})
	})))
	admin.HandleFunc("/resolution", sowilohttp.VerifyTokenHandler(conf.AdminToken, sowilohttp.HandlePostJSON(func(req resolutionRequest) (any, error) {
		if err := frameLoop.SetResolution(req.MinSize); err != nil {
			return nil, err
		}
		return frameLoop.Status().Store, nil
	})))
	admin.HandleFunc("/smoke-test", sowilohttp.VerifyTokenHandler(conf.AdminToken, smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint:  localFeedEndpoint(conf.Addr),
		Token:     conf.FeedToken,
		UserAgent: fmt.Sprintf("Sowilo %s", version),
	})))
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))

	return admin
}

func loadProfile(path string) (profile.Profile, error) {
	if path == "" {
		return profile.Default(), nil
	}
	return profile.Load(path)
}

func localFeedEndpoint(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "ws://" + addr + "/feed"
}
