package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	S3           S3Config
	Media        MediaConfig
	Queue        QueueConfig
	Imports      ImportsConfig
	AuthLimits   AuthRateLimitConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LITEFOREST_APP_ENV" required:"true"`
	Port         string `envconfig:"LITEFOREST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LITEFOREST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LITEFOREST_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"LITEFOREST_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LITEFOREST_DB_DSN"`
	Driver string `envconfig:"LITEFOREST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LITEFOREST_DB_HOST"`
	LegacyPort     int    `envconfig:"LITEFOREST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LITEFOREST_DB_USER"`
	LegacyPassword string `envconfig:"LITEFOREST_DB_PASSWORD"`
	LegacyName     string `envconfig:"LITEFOREST_DB_NAME"`
	LegacySSLMode  string `envconfig:"LITEFOREST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LITEFOREST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LITEFOREST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LITEFOREST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LITEFOREST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LITEFOREST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LITEFOREST_REDIS_ADDR"`
	Password     string        `envconfig:"LITEFOREST_REDIS_PASSWORD"`
	DB           int           `envconfig:"LITEFOREST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LITEFOREST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LITEFOREST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LITEFOREST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LITEFOREST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LITEFOREST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type S3Config struct {
	Endpoint      string        `envconfig:"LITEFOREST_S3_ENDPOINT" required:"true"`
	AccessKey     string        `envconfig:"LITEFOREST_S3_ACCESS_KEY" required:"true"`
	SecretKey     string        `envconfig:"LITEFOREST_S3_SECRET_KEY" required:"true"`
	Bucket        string        `envconfig:"LITEFOREST_S3_BUCKET" required:"true"`
	Region        string        `envconfig:"LITEFOREST_S3_REGION" default:"us-east-1"`
	UseSSL        bool          `envconfig:"LITEFOREST_S3_USE_SSL" default:"true"`
	PublicBaseURL string        `envconfig:"LITEFOREST_S3_PUBLIC_BASE_URL" required:"true"`
	OpTimeout     time.Duration `envconfig:"LITEFOREST_S3_OP_TIMEOUT" default:"30s"`
}

// PublicBase returns the configured public URL prefix without a trailing slash.
func (s S3Config) PublicBase() string {
	return strings.TrimRight(strings.TrimSpace(s.PublicBaseURL), "/")
}

type MediaConfig struct {
	ThumbBound  int `envconfig:"LITEFOREST_MEDIA_THUMB_BOUND" default:"240"`
	LargeBound  int `envconfig:"LITEFOREST_MEDIA_LARGE_BOUND" default:"800"`
	WebPQuality int `envconfig:"LITEFOREST_MEDIA_WEBP_QUALITY" default:"80"`
	AVIFQuality int `envconfig:"LITEFOREST_MEDIA_AVIF_QUALITY" default:"50"`
	AVIFSpeed   int `envconfig:"LITEFOREST_MEDIA_AVIF_SPEED" default:"6"`
}

type QueueConfig struct {
	BatchSize         int           `envconfig:"LITEFOREST_QUEUE_BATCH_SIZE" default:"10"`
	PollIntervalMS    int           `envconfig:"LITEFOREST_QUEUE_POLL_MS" default:"500"`
	MaxAttempts       int           `envconfig:"LITEFOREST_QUEUE_MAX_ATTEMPTS" default:"3"`
	BackoffBaseMS     int           `envconfig:"LITEFOREST_QUEUE_BACKOFF_BASE_MS" default:"2000"`
	VisibilityTimeout time.Duration `envconfig:"LITEFOREST_QUEUE_VISIBILITY_TIMEOUT" default:"5m"`
}

// BackoffBase returns the first retry delay.
func (q QueueConfig) BackoffBase() time.Duration {
	if q.BackoffBaseMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(q.BackoffBaseMS) * time.Millisecond
}

type ImportsConfig struct {
	MaxFileMB int `envconfig:"LITEFOREST_IMPORTS_MAX_FILE_MB" default:"20"`
}

// AuthRateLimitConfig bounds login/register attempts per client IP and
// per target email within a rolling window.
type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"LITEFOREST_AUTH_LOGIN_WINDOW" default:"5m"`
	LoginIPLimit    int           `envconfig:"LITEFOREST_AUTH_LOGIN_IP_LIMIT" default:"30"`
	LoginEmailLimit int           `envconfig:"LITEFOREST_AUTH_LOGIN_EMAIL_LIMIT" default:"10"`

	RegisterWindow     time.Duration `envconfig:"LITEFOREST_AUTH_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"LITEFOREST_AUTH_REGISTER_IP_LIMIT" default:"20"`
	RegisterEmailLimit int           `envconfig:"LITEFOREST_AUTH_REGISTER_EMAIL_LIMIT" default:"5"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LITEFOREST_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LITEFOREST_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"LITEFOREST_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"LITEFOREST_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LITEFOREST_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LITEFOREST_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LITEFOREST_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LITEFOREST_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LITEFOREST_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LITEFOREST_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LITEFOREST_AUTO_MIGRATE" default:"false"`
	EnableAVIF  bool `envconfig:"LITEFOREST_ENABLE_AVIF" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
