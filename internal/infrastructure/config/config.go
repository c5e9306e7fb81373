package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// devJWTSecret is only accepted outside production
const devJWTSecret = "cloudpos-development-secret-change-me"

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Storage     StorageConfig
	Search      SearchConfig
	SMS         SMSConfig
	Email       EmailConfig
	Payment     PaymentConfig
	Billing     BillingConfig
	Sales       SalesConfig
	Scheduler   SchedulerConfig
	Idempotency IdempotencyConfig
	Printing    PrintingConfig
	Swagger     SwaggerConfig
	Telemetry   TelemetryConfig
	Rollbar     RollbarConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name     string
	Env      string
	Port     string
	BaseURL  string // public API base, used for gateway notify URLs
	Timezone string // business-day boundary for voids and reports
	Version  string
}

// IsProduction reports whether Env is production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// Location returns the configured timezone, falling back to UTC
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	SlowQueryMs     int
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	MaxRefreshCount        int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Enabled           bool
	Endpoint          string // empty = AWS
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// SearchConfig holds Meilisearch settings
type SearchConfig struct {
	Enabled bool
	URL     string
	APIKey  string
	Index   string
}

// SMSConfig holds SMS provider settings
type SMSConfig struct {
	Driver   string // http or log
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// EmailConfig holds SendGrid settings
type EmailConfig struct {
	Enabled   bool
	APIKey    string
	FromEmail string
	FromName  string
}

// PaymentConfig holds gateway settings
type PaymentConfig struct {
	PayHere   PayHereConfig
	OnePay    OnePayConfig
	ReturnURL string
	CancelURL string
}

// PayHereConfig holds PayHere merchant credentials
type PayHereConfig struct {
	Enabled        bool
	MerchantID     string
	MerchantSecret string
	Sandbox        bool
}

// OnePayConfig holds OnePay app credentials
type OnePayConfig struct {
	Enabled  bool
	AppID    string
	AppToken string
	HashSalt string
	BaseURL  string
}

// PlanConfig is a plan as written in config; prices are decimal strings
type PlanConfig struct {
	Code             string `mapstructure:"code"`
	Name             string `mapstructure:"name"`
	MonthlyPrice     string `mapstructure:"monthly_price"`
	AnnualPrice      string `mapstructure:"annual_price"`
	MaxBranches      int    `mapstructure:"max_branches"`
	MaxUsers         int    `mapstructure:"max_users"`
	SMSQuota         int    `mapstructure:"sms_quota"`
	ExtraBranchPrice string `mapstructure:"extra_branch_price"`
}

// BillingConfig holds subscription settings
type BillingConfig struct {
	TrialDays   int
	GraceDays   int
	RenewalLead time.Duration
	DefaultPlan string
	Plans       []PlanConfig
}

// SalesConfig holds checkout rules
type SalesConfig struct {
	TaxRate             float64
	AllowNegativeStock  bool
	LoyaltyPointsPer    float64 // currency units per loyalty point; 0 disables
	CreditLimit         float64
	PendingOrderTimeout time.Duration
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	Enabled           bool
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// IdempotencyConfig holds HTTP idempotency-key settings
type IdempotencyConfig struct {
	TTL       time.Duration
	KeyPrefix string
}

// PrintingConfig holds chromedp settings for e-bill PDFs
type PrintingConfig struct {
	Enabled       bool
	ChromeURL     string // remote debugging URL; empty = launch local headless chrome
	RenderTimeout time.Duration
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	PyroscopeEnabled  bool
	PyroscopeAddress  string
}

// RollbarConfig holds error reporting settings
type RollbarConfig struct {
	Token       string
	Environment string
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with POS_ prefix (e.g., POS_DATABASE_PASSWORD)
// 2. .env file in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Port:     v.GetString("app.port"),
			BaseURL:  v.GetString("app.base_url"),
			Timezone: v.GetString("app.timezone"),
			Version:  v.GetString("app.version"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			SlowQueryMs:     v.GetInt("database.slow_query_ms"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKeyID:       v.GetString("storage.access_key_id"),
			SecretAccessKey:   v.GetString("storage.secret_access_key"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Search: SearchConfig{
			Enabled: v.GetBool("search.enabled"),
			URL:     v.GetString("search.url"),
			APIKey:  v.GetString("search.api_key"),
			Index:   v.GetString("search.index"),
		},
		SMS: SMSConfig{
			Driver:   v.GetString("sms.driver"),
			Endpoint: v.GetString("sms.endpoint"),
			APIKey:   v.GetString("sms.api_key"),
			Timeout:  v.GetDuration("sms.timeout"),
		},
		Email: EmailConfig{
			Enabled:   v.GetBool("email.enabled"),
			APIKey:    v.GetString("email.api_key"),
			FromEmail: v.GetString("email.from_email"),
			FromName:  v.GetString("email.from_name"),
		},
		Payment: PaymentConfig{
			PayHere: PayHereConfig{
				Enabled:        v.GetBool("payment.payhere.enabled"),
				MerchantID:     v.GetString("payment.payhere.merchant_id"),
				MerchantSecret: v.GetString("payment.payhere.merchant_secret"),
				Sandbox:        v.GetBool("payment.payhere.sandbox"),
			},
			OnePay: OnePayConfig{
				Enabled:  v.GetBool("payment.onepay.enabled"),
				AppID:    v.GetString("payment.onepay.app_id"),
				AppToken: v.GetString("payment.onepay.app_token"),
				HashSalt: v.GetString("payment.onepay.hash_salt"),
				BaseURL:  v.GetString("payment.onepay.base_url"),
			},
			ReturnURL: v.GetString("payment.return_url"),
			CancelURL: v.GetString("payment.cancel_url"),
		},
		Billing: BillingConfig{
			TrialDays:   v.GetInt("billing.trial_days"),
			GraceDays:   v.GetInt("billing.grace_days"),
			RenewalLead: v.GetDuration("billing.renewal_lead"),
			DefaultPlan: v.GetString("billing.default_plan"),
		},
		Sales: SalesConfig{
			TaxRate:             v.GetFloat64("sales.tax_rate"),
			AllowNegativeStock:  v.GetBool("sales.allow_negative_stock"),
			LoyaltyPointsPer:    v.GetFloat64("sales.loyalty_points_per"),
			CreditLimit:         v.GetFloat64("sales.credit_limit"),
			PendingOrderTimeout: v.GetDuration("sales.pending_order_timeout"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:     v.GetInt("scheduler.retry_attempts"),
			RetryDelay:        v.GetDuration("scheduler.retry_delay"),
		},
		Idempotency: IdempotencyConfig{
			TTL:       v.GetDuration("idempotency.ttl"),
			KeyPrefix: v.GetString("idempotency.key_prefix"),
		},
		Printing: PrintingConfig{
			Enabled:       v.GetBool("printing.enabled"),
			ChromeURL:     v.GetString("printing.chrome_url"),
			RenderTimeout: v.GetDuration("printing.render_timeout"),
		},
		Swagger: SwaggerConfig{
			Enabled:    v.GetBool("swagger.enabled"),
			AllowedIPs: v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			PyroscopeEnabled:  v.GetBool("telemetry.pyroscope_enabled"),
			PyroscopeAddress:  v.GetString("telemetry.pyroscope_address"),
		},
		Rollbar: RollbarConfig{
			Token:       v.GetString("rollbar.token"),
			Environment: v.GetString("rollbar.environment"),
		},
	}

	if err := v.UnmarshalKey("billing.plans", &cfg.Billing.Plans); err != nil {
		return nil, fmt.Errorf("error reading billing.plans: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "cloudpos-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:" + cfg.App.Port
	}
	if cfg.App.Timezone == "" {
		cfg.App.Timezone = "Asia/Colombo"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "cloudpos"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.SlowQueryMs == 0 {
		cfg.Database.SlowQueryMs = 200
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Secret == "" && !cfg.App.IsProduction() {
		cfg.JWT.Secret = devJWTSecret
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "cloudpos"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 50
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 4 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 300
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Branch-ID", "Idempotency-Key"}
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "ap-south-1"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "cloudpos"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Search.URL == "" {
		cfg.Search.URL = "http://localhost:7700"
	}
	if cfg.Search.Index == "" {
		cfg.Search.Index = "variants"
	}
	if cfg.SMS.Driver == "" {
		cfg.SMS.Driver = "log"
	}
	if cfg.SMS.Timeout == 0 {
		cfg.SMS.Timeout = 10 * time.Second
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "CloudPOS"
	}
	if cfg.Payment.OnePay.BaseURL == "" {
		cfg.Payment.OnePay.BaseURL = "https://merchant-api-live-v2.onepay.lk"
	}
	if cfg.Billing.TrialDays == 0 {
		cfg.Billing.TrialDays = 14
	}
	if cfg.Billing.GraceDays == 0 {
		cfg.Billing.GraceDays = 7
	}
	if cfg.Billing.RenewalLead == 0 {
		cfg.Billing.RenewalLead = 72 * time.Hour
	}
	if cfg.Billing.DefaultPlan == "" {
		cfg.Billing.DefaultPlan = "starter"
	}
	if cfg.Sales.CreditLimit == 0 {
		cfg.Sales.CreditLimit = 50000
	}
	if cfg.Sales.PendingOrderTimeout == 0 {
		cfg.Sales.PendingOrderTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 3
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 5 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = 30 * time.Second
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}
	if cfg.Idempotency.KeyPrefix == "" {
		cfg.Idempotency.KeyPrefix = "pos:idem:"
	}
	if cfg.Printing.RenderTimeout == 0 {
		cfg.Printing.RenderTimeout = 30 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.PyroscopeAddress == "" {
		cfg.Telemetry.PyroscopeAddress = "http://localhost:4040"
	}
	if cfg.Rollbar.Environment == "" {
		cfg.Rollbar.Environment = cfg.App.Env
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// validate performs validation on the configuration
func (c *Config) validate() error {
	var port int
	if _, err := fmt.Sscanf(c.App.Port, "%d", &port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("app.port must be a number between 1 and 65535, got %q", c.App.Port)
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt.secret must be at least 32 characters")
	}
	if c.Payment.PayHere.Enabled && (c.Payment.PayHere.MerchantID == "" || c.Payment.PayHere.MerchantSecret == "") {
		return fmt.Errorf("payment.payhere requires merchant_id and merchant_secret when enabled")
	}
	if c.Payment.OnePay.Enabled && (c.Payment.OnePay.AppID == "" || c.Payment.OnePay.AppToken == "" || c.Payment.OnePay.HashSalt == "") {
		return fmt.Errorf("payment.onepay requires app_id, app_token and hash_salt when enabled")
	}
	if c.SMS.Driver != "log" && c.SMS.Driver != "http" {
		return fmt.Errorf("sms.driver must be log or http, got %q", c.SMS.Driver)
	}
	if c.SMS.Driver == "http" && c.SMS.Endpoint == "" {
		return fmt.Errorf("sms.endpoint is required for the http driver")
	}
	if c.Email.Enabled && (c.Email.APIKey == "" || c.Email.FromEmail == "") {
		return fmt.Errorf("email requires api_key and from_email when enabled")
	}
	if c.Sales.TaxRate < 0 || c.Sales.TaxRate > 1 {
		return fmt.Errorf("sales.tax_rate must be between 0 and 1")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.IsProduction() {
		if c.JWT.Secret == devJWTSecret {
			return fmt.Errorf("jwt.secret must be changed from the development default in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled or IP-restricted in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
		if c.Payment.PayHere.Enabled && c.Payment.PayHere.Sandbox {
			return fmt.Errorf("payment.payhere.sandbox must be false in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
