package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/streamsave/server/internal/controller"
	"github.com/streamsave/server/internal/repository/ratelimit/inmemory"
	ratelimitRedis "github.com/streamsave/server/internal/repository/ratelimit/redis"
	"github.com/streamsave/server/internal/repository/resolver"
	"github.com/streamsave/server/internal/repository/resolver/youtube"
	"github.com/streamsave/server/internal/repository/resolver/ytdlp"
	"github.com/streamsave/server/internal/service/video"
	"github.com/streamsave/server/pkg/ctxlogger"
	"github.com/streamsave/server/pkg/pagemeta"
	"github.com/streamsave/server/pkg/redisclient"
)

const (
	ResolverYtDlp   = "ytdlp"
	ResolverYoutube = "youtube"

	rateLimitWindow = time.Minute
	pageReadTimeout = 10 * time.Second
)

type AppConfig struct {
	Host              string `json:"host"`
	Port              int    `json:"port"`
	LogLevel          string `json:"log_level"`
	Resolver          string `json:"resolver"`
	YtDlpPath         string `json:"ytdlp_path"`
	YtDlpMaxProcesses int    `json:"ytdlp_max_processes"`
	PlayerClient      string `json:"player_client"`
	UserAgent         string `json:"user_agent"`
	Impersonate       string `json:"impersonate"`
	CheckCertificates bool   `json:"check_certificates"`
	MetadataFallback  bool   `json:"metadata_fallback"`
	RateLimit         int    `json:"rate_limit"`
	TrustProxy        bool   `json:"trust_proxy"`
	RedisHost         string `json:"redis_host"`
	RedisPort         int    `json:"redis_port"`
	RedisPassword     string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&cfg.LogLevel, validation.Required),
		validation.Field(&cfg.Resolver, validation.Required, validation.In(ResolverYtDlp, ResolverYoutube)),
		validation.Field(&cfg.YtDlpMaxProcesses, validation.Required, validation.Min(1)),
		validation.Field(&cfg.RateLimit, validation.Min(0)),
		validation.Field(&cfg.RedisPort, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

var playerClientLabels = map[string]string{
	"ios":          "iOS",
	"android":      "Android",
	"web":          "Web",
	"mweb":         "Mobile Web",
	"tv":           "TV",
	"web_embedded": "Embedded",
}

// mode is the label shown on the root page.
func (cfg *AppConfig) mode() string {
	if cfg.Resolver == ResolverYoutube {
		return "Native"
	}
	if cfg.PlayerClient == "" {
		return "Default"
	}
	if label, ok := playerClientLabels[cfg.PlayerClient]; ok {
		return label
	}

	return cfg.PlayerClient
}

type videoResolver interface {
	Resolve(context.Context, string, resolver.Options) (resolver.VideoInfo, error)
}

type rateLimiter interface {
	Allow(context.Context, string) (bool, error)
}

func newResolver(cfg *AppConfig, logger *slog.Logger) (videoResolver, error) {
	switch cfg.Resolver {
	case ResolverYtDlp:
		return ytdlp.NewRepo(cfg.YtDlpPath, cfg.YtDlpMaxProcesses), nil
	case ResolverYoutube:
		return youtube.NewRepo(logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", resolver.ErrUnknownResolver, cfg.Resolver)
	}
}

// newRateLimiter returns a nil limiter when rate limiting is disabled. The
// returned close func is never nil.
func newRateLimiter(cfg *AppConfig) (rateLimiter, func() error, error) {
	noop := func() error { return nil }

	if cfg.RateLimit == 0 {
		return nil, noop, nil
	}

	if cfg.RedisHost == "" {
		return inmemory.NewRepo(cfg.RateLimit, rateLimitWindow), noop, nil
	}

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("failed to create redis client: %w", err)
	}

	return ratelimitRedis.NewRepo(rc, cfg.RateLimit, rateLimitWindow), rc.Close, nil
}

func newLogger(cfg *AppConfig) (*slog.Logger, error) {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return nil, err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

func newPageReader(cfg *AppConfig) *pagemeta.Reader {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !cfg.CheckCertificates}

	return pagemeta.NewReader(&http.Client{
		Timeout:   pageReadTimeout,
		Transport: transport,
	}, cfg.UserAgent)
}

func newHandler(cfg *AppConfig, logger *slog.Logger, res videoResolver, limiter rateLimiter) http.Handler {
	videoService := video.NewService(res, newPageReader(cfg), logger, &video.Config{
		UserAgent:         cfg.UserAgent,
		PlayerClient:      cfg.PlayerClient,
		Impersonate:       cfg.Impersonate,
		CheckCertificates: cfg.CheckCertificates,
		MetadataFallback:  cfg.MetadataFallback,
	})

	return controller.NewController(videoService, limiter, logger, &controller.Config{
		Mode:       cfg.mode(),
		TrustProxy: cfg.TrustProxy,
	}).GetMux()
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	slog.SetDefault(logger)

	res, err := newResolver(cfg, logger)
	if err != nil {
		return err
	}

	limiter, closeLimiter, err := newRateLimiter(cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           newHandler(cfg, logger, res, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "resolver", cfg.Resolver, "mode", cfg.mode())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
