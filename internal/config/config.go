package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	UseSSL    bool
	Region    string
}

type SecurityConfig struct {
	JWTAccessSecret   string
	JWTRefreshSecret  string
	JWTAccessTTL      time.Duration
	JWTRefreshTTL     time.Duration
	LoginRateLimit    int
	LoginRateWindow   time.Duration
	ContactRateLimit  int
	ContactRateWindow time.Duration
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	To       string
}

type UploadConfig struct {
	MaxGalleryBytes int64
	MaxProjectBytes int64
	MaxQRBytes      int64
	MaxFounderBytes int64
}

type CacheConfig struct {
	TTL time.Duration
}

type WorkerConfig struct {
	ClaimInterval time.Duration
	SweepMinAge   time.Duration
}

type JobsConfig struct {
	DedupeSchedule string
	SweepSchedule  string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Mail             MailConfig
	Uploads          UploadConfig
	Cache            CacheConfig
	Worker           WorkerConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

// IsProduction reports whether error details must be withheld from clients.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Validate rejects configurations the token issuer cannot run with.
func (c *AppConfig) Validate() error {
	sec := c.Security
	switch {
	case strings.TrimSpace(sec.JWTAccessSecret) == "":
		return errors.New("security.jwtaccesssecret is required")
	case strings.TrimSpace(sec.JWTRefreshSecret) == "":
		return errors.New("security.jwtrefreshsecret is required")
	case sec.JWTAccessSecret == sec.JWTRefreshSecret:
		return errors.New("access and refresh token secrets must differ")
	case sec.JWTAccessTTL <= 0 || sec.JWTRefreshTTL <= 0:
		return errors.New("token ttls must be positive")
	case sec.JWTRefreshTTL <= sec.JWTAccessTTL:
		return errors.New("refresh token ttl must exceed access token ttl")
	}
	return nil
}

func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	v := newViper("config")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func newViper(name string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("HCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decoderOptions(dc *mapstructure.DecoderConfig) {
	dc.TagName = "mapstructure"
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "site:tasks")
	v.SetDefault("redis.group", "site-workers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucket", "hco-assets")
	v.SetDefault("storage.publicurl", "")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtaccesssecret", "")
	v.SetDefault("security.jwtrefreshsecret", "")
	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.jwtrefreshttl", "168h") // 7 days
	v.SetDefault("security.loginratelimit", 10)
	v.SetDefault("security.loginratewindow", "15m")
	v.SetDefault("security.contactratelimit", 5)
	v.SetDefault("security.contactratewindow", "1h")

	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.fromname", "HCO Contact Form")
	v.SetDefault("mail.to", "")

	v.SetDefault("uploads.maxgallerybytes", 10<<20)
	v.SetDefault("uploads.maxprojectbytes", 10<<20)
	v.SetDefault("uploads.maxqrbytes", 5<<20)
	v.SetDefault("uploads.maxfounderbytes", 5<<20)

	v.SetDefault("cache.ttl", "5m")

	v.SetDefault("worker.claiminterval", "30s")
	v.SetDefault("worker.sweepminage", "24h")

	v.SetDefault("jobs.dedupeschedule", "0 0 3 * * *")
	v.SetDefault("jobs.sweepschedule", "0 0 4 * * *")

	v.SetDefault("allowcorsorigins", "http://localhost:5173")
}
