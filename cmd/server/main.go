package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/streamsave/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	port = configVar[int]{
		envKey:       "PORT",
		flagKey:      "port",
		defaultValue: 5000,
		usage:        "Server port",
	}
	host = configVar[string]{
		envKey:       "HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	logLevel = configVar[string]{
		envKey:       "LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	resolverBackend = configVar[string]{
		envKey:       "RESOLVER",
		flagKey:      "resolver",
		defaultValue: app.ResolverYtDlp,
		usage:        "Video resolver backend (ytdlp or youtube)",
	}
	ytDlpPath = configVar[string]{
		envKey:       "YTDLP_PATH",
		flagKey:      "ytdlp-path",
		defaultValue: "",
		usage:        "Path to the yt-dlp executable",
	}
	ytDlpMaxProcesses = configVar[int]{
		envKey:       "YTDLP_MAX_PROCESSES",
		flagKey:      "ytdlp-max-processes",
		defaultValue: 4,
		usage:        "Maximum number of concurrent yt-dlp processes",
	}
	playerClient = configVar[string]{
		envKey:       "PLAYER_CLIENT",
		flagKey:      "player-client",
		defaultValue: "ios",
		usage:        "YouTube player client used by yt-dlp",
	}
	userAgent = configVar[string]{
		envKey:       "USER_AGENT",
		flagKey:      "user-agent",
		defaultValue: "",
		usage:        "User agent sent upstream",
	}
	impersonate = configVar[string]{
		envKey:       "IMPERSONATE",
		flagKey:      "impersonate",
		defaultValue: "",
		usage:        "yt-dlp impersonation target, e.g. chrome",
	}
	checkCertificates = configVar[bool]{
		envKey:       "CHECK_CERTIFICATES",
		flagKey:      "check-certificates",
		defaultValue: false,
		usage:        "Validate upstream TLS certificates",
	}
	metadataFallback = configVar[bool]{
		envKey:       "METADATA_FALLBACK",
		flagKey:      "metadata-fallback",
		defaultValue: true,
		usage:        "Read missing metadata from the video page",
	}
	rateLimit = configVar[int]{
		envKey:       "RATE_LIMIT",
		flagKey:      "rate-limit",
		defaultValue: 0,
		usage:        "Requests per minute per client, 0 disables",
	}
	trustProxy = configVar[bool]{
		envKey:       "TRUST_PROXY",
		flagKey:      "trust-proxy",
		defaultValue: false,
		usage:        "Take the client address from X-Forwarded-For/X-Real-IP",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "",
		usage:        "Redis host, empty keeps rate limits in memory",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
)

func bindString(v configVar[string]) {
	pflag.String(v.flagKey, v.defaultValue, v.usage)
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func bindInt(v configVar[int]) {
	pflag.Int(v.flagKey, v.defaultValue, v.usage)
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func bindBool(v configVar[bool]) {
	pflag.Bool(v.flagKey, v.defaultValue, v.usage)
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() *app.AppConfig {
	for _, v := range []configVar[string]{host, logLevel, resolverBackend, ytDlpPath, playerClient, userAgent, impersonate, redisHost, redisPassword} {
		bindString(v)
	}
	for _, v := range []configVar[int]{port, ytDlpMaxProcesses, rateLimit, redisPort} {
		bindInt(v)
	}
	for _, v := range []configVar[bool]{checkCertificates, metadataFallback, trustProxy} {
		bindBool(v)
	}
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	return &app.AppConfig{
		Host:              viper.GetString(host.flagKey),
		Port:              viper.GetInt(port.flagKey),
		LogLevel:          viper.GetString(logLevel.flagKey),
		Resolver:          viper.GetString(resolverBackend.flagKey),
		YtDlpPath:         viper.GetString(ytDlpPath.flagKey),
		YtDlpMaxProcesses: viper.GetInt(ytDlpMaxProcesses.flagKey),
		PlayerClient:      viper.GetString(playerClient.flagKey),
		UserAgent:         viper.GetString(userAgent.flagKey),
		Impersonate:       viper.GetString(impersonate.flagKey),
		CheckCertificates: viper.GetBool(checkCertificates.flagKey),
		MetadataFallback:  viper.GetBool(metadataFallback.flagKey),
		RateLimit:         viper.GetInt(rateLimit.flagKey),
		TrustProxy:        viper.GetBool(trustProxy.flagKey),
		RedisHost:         viper.GetString(redisHost.flagKey),
		RedisPort:         viper.GetInt(redisPort.flagKey),
		RedisPassword:     viper.GetString(redisPassword.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
