package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port    int    `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret    string `yaml:"secret"`
	Issuer    string `yaml:"issuer"`
	AccessTTL string `yaml:"access_ttl"`
}

type CasbinConfig struct {
	ModelPath string `yaml:"model_path"`
}

type PhoneConfig struct {
	CountryCode string `yaml:"country_code"`
	LocalDigits int    `yaml:"local_digits"`
}

type OTPConfig struct {
	TTL         string `yaml:"ttl"`
	MaxAttempts int    `yaml:"max_attempts"`
	RateWindow  string `yaml:"rate_window"`
	LockTTL     string `yaml:"lock_ttl"`
	// Checker is "gateway" or "local"
	Checker string `yaml:"checker"`
}

type SMSConfig struct {
	// Provider is "gateway" or "twilio"
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	SenderID  string `yaml:"sender_id"`
	Timeout   string `yaml:"timeout"`
	MaxLength int    `yaml:"max_length"`

	// CallbackURL is the public URL of POST /webhooks/sms/delivery
	CallbackURL string `yaml:"callback_url"`
	// CallbackToken authenticates the gateway provider's delivery callbacks
	CallbackToken string `yaml:"callback_token"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type EmailConfig struct {
	// Provider is "smtp" or "sendgrid"
	Provider       string `yaml:"provider"`
	FromAddress    string `yaml:"from_address"`
	FromName       string `yaml:"from_name"`
	SMTPHost       string `yaml:"smtp_host"`
	SMTPPort       int    `yaml:"smtp_port"`
	SMTPUsername   string `yaml:"smtp_username"`
	SMTPPassword   string `yaml:"smtp_password"`
	FallbackHost   string `yaml:"fallback_host"`
	FallbackPort   int    `yaml:"fallback_port"`
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
}

type PaymentsConfig struct {
	BaseURL   string `yaml:"base_url"`
	SecretKey string `yaml:"secret_key"`
	Timeout   string `yaml:"timeout"`
}

type PlanConfig struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Price        float64 `yaml:"price"`
	DurationDays int     `yaml:"duration_days"`
}

type NotificationsConfig struct {
	RetentionDays int `yaml:"retention_days"`
	BacklogLimit  int `yaml:"backlog_limit"`
}

type JobsConfig struct {
	Enabled            bool   `yaml:"enabled"`
	SubscriptionExpiry string `yaml:"subscription_expiry"`
	OTPCleanup         string `yaml:"otp_cleanup"`
	OTPCleanupAge      string `yaml:"otp_cleanup_age"`
	Retention          string `yaml:"retention"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type ConfigFile struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	JWT           JWTConfig           `yaml:"jwt"`
	Casbin        CasbinConfig        `yaml:"casbin"`
	Phone         PhoneConfig         `yaml:"phone"`
	OTP           OTPConfig           `yaml:"otp"`
	SMS           SMSConfig           `yaml:"sms"`
	Twilio        TwilioConfig        `yaml:"twilio"`
	Email         EmailConfig         `yaml:"email"`
	Payments      PaymentsConfig      `yaml:"payments"`
	Plans         []PlanConfig        `yaml:"plans"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Jobs          JobsConfig          `yaml:"jobs"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
}

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret       string
	JWTIssuer       string
	AccessTTL       time.Duration
	CasbinModelPath string

	CountryCode string
	LocalDigits int

	OTP_TTL         time.Duration
	OTP_MaxAttempts int
	OTP_RateWindow  time.Duration
	OTP_LockTTL     time.Duration
	OTP_Checker     string

	SMSProvider      string
	SMSBaseURL       string
	SMSAPIKey        string
	SMSSenderID      string
	SMSTimeout       time.Duration
	SMSMaxLength     int
	SMSCallback      string
	SMSCallbackToken string

	TwilioSID   string
	TwilioToken string
	TwilioFrom  string

	EmailProvider  string
	EmailFrom      string
	EmailFromName  string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPFallback   string
	SMTPFallbackPt int
	SendGridAPIKey string

	PaymentsBaseURL string
	PaymentsSecret  string
	PaymentsTimeout time.Duration
	Plans           []PlanConfig

	RetentionDays int
	BacklogLimit  int

	JobsEnabled           bool
	SubscriptionExpiryJob string
	OTPCleanupJob         string
	OTPCleanupAge         time.Duration
	RetentionJob          string

	RateLimitRPS   float64
	RateLimitBurst int
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads .env (if present) and the YAML file named by CONFIG_PATH
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(env("CONFIG_PATH", "config/config.yml"))
}

func LoadFrom(path string) (*Config, error) {
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return build(configFile)
}

func build(f *ConfigFile) (*Config, error) {
	var accessTTL, otpTTL, rateWindow, lockTTL, smsTimeout, payTimeout, cleanupAge time.Duration
	for raw, dst := range map[string]struct {
		value string
		def   string
		out   *time.Duration
	}{
		"JWT access TTL":   {f.JWT.AccessTTL, "1h", &accessTTL},
		"OTP TTL":          {f.OTP.TTL, "10m", &otpTTL},
		"OTP rate window":  {f.OTP.RateWindow, "2m", &rateWindow},
		"OTP lock TTL":     {f.OTP.LockTTL, "10s", &lockTTL},
		"SMS timeout":      {f.SMS.Timeout, "15s", &smsTimeout},
		"payments timeout": {f.Payments.Timeout, "30s", &payTimeout},
		"OTP cleanup age":  {f.Jobs.OTPCleanupAge, "24h", &cleanupAge},
	} {
		value := dst.value
		if value == "" {
			value = dst.def
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", raw, err)
		}
		*dst.out = d
	}

	redisDB := f.Redis.DB
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		redisDB = n
	}

	cfg := &Config{
		Port:     env("PORT", fmt.Sprintf("%d", f.App.Port)),
		GinMode:  f.App.GinMode,
		LogLevel: env("LOG_LEVEL", f.App.LogLevel),

		DSN:           env("DATABASE_DSN", f.Database.DSN),
		RedisAddr:     env("REDIS_ADDR", f.Redis.Addr),
		RedisPassword: env("REDIS_PASSWORD", f.Redis.Password),
		RedisDB:       redisDB,

		JWTSecret:       env("JWT_SECRET", f.JWT.Secret),
		JWTIssuer:       f.JWT.Issuer,
		AccessTTL:       accessTTL,
		CasbinModelPath: f.Casbin.ModelPath,

		CountryCode: orDefault(f.Phone.CountryCode, "233"),
		LocalDigits: orDefaultInt(f.Phone.LocalDigits, 9),

		OTP_TTL:         otpTTL,
		OTP_MaxAttempts: orDefaultInt(f.OTP.MaxAttempts, 3),
		OTP_RateWindow:  rateWindow,
		OTP_LockTTL:     lockTTL,
		OTP_Checker:     orDefault(f.OTP.Checker, "gateway"),

		SMSProvider:      orDefault(f.SMS.Provider, "gateway"),
		SMSBaseURL:       f.SMS.BaseURL,
		SMSAPIKey:        env("SMS_API_KEY", f.SMS.APIKey),
		SMSSenderID:      f.SMS.SenderID,
		SMSTimeout:       smsTimeout,
		SMSMaxLength:     orDefaultInt(f.SMS.MaxLength, 160),
		SMSCallback:      env("SMS_CALLBACK_URL", f.SMS.CallbackURL),
		SMSCallbackToken: env("SMS_CALLBACK_TOKEN", f.SMS.CallbackToken),

		TwilioSID:   env("TWILIO_ACCOUNT_SID", f.Twilio.AccountSID),
		TwilioToken: env("TWILIO_AUTH_TOKEN", f.Twilio.AuthToken),
		TwilioFrom:  env("TWILIO_FROM_NUMBER", f.Twilio.FromNumber),

		EmailProvider:  orDefault(f.Email.Provider, "smtp"),
		EmailFrom:      f.Email.FromAddress,
		EmailFromName:  f.Email.FromName,
		SMTPHost:       f.Email.SMTPHost,
		SMTPPort:       f.Email.SMTPPort,
		SMTPUsername:   f.Email.SMTPUsername,
		SMTPPassword:   env("SMTP_PASSWORD", f.Email.SMTPPassword),
		SMTPFallback:   f.Email.FallbackHost,
		SMTPFallbackPt: f.Email.FallbackPort,
		SendGridAPIKey: env("SENDGRID_API_KEY", f.Email.SendGridAPIKey),

		PaymentsBaseURL: f.Payments.BaseURL,
		PaymentsSecret:  env("PAYSTACK_SECRET_KEY", f.Payments.SecretKey),
		PaymentsTimeout: payTimeout,
		Plans:           f.Plans,

		RetentionDays: orDefaultInt(f.Notifications.RetentionDays, 90),
		BacklogLimit:  orDefaultInt(f.Notifications.BacklogLimit, 10),

		JobsEnabled:           f.Jobs.Enabled,
		SubscriptionExpiryJob: orDefault(f.Jobs.SubscriptionExpiry, "@hourly"),
		OTPCleanupJob:         orDefault(f.Jobs.OTPCleanup, "@every 15m"),
		OTPCleanupAge:         cleanupAge,
		RetentionJob:          orDefault(f.Jobs.Retention, "@daily"),

		RateLimitRPS:   f.RateLimit.RequestsPerSecond,
		RateLimitBurst: orDefaultInt(f.RateLimit.Burst, 5),
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 1
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every deployment needs
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.OTP_Checker != "gateway" && c.OTP_Checker != "local" {
		return fmt.Errorf("unknown otp checker %q", c.OTP_Checker)
	}
	switch c.SMSProvider {
	case "gateway":
		if c.SMSBaseURL == "" {
			return fmt.Errorf("sms base_url is required for the gateway provider")
		}
		if c.SMSCallback != "" && c.SMSCallbackToken == "" {
			return fmt.Errorf("sms callback_token is required when callback_url is set")
		}
	case "twilio":
		if c.OTP_Checker != "local" {
			return fmt.Errorf("twilio provider has no verify endpoint, otp checker must be local")
		}
		if c.SMSCallback != "" && c.TwilioToken == "" {
			return fmt.Errorf("twilio auth_token is required to verify delivery callbacks")
		}
	default:
		return fmt.Errorf("unknown sms provider %q", c.SMSProvider)
	}
	if c.EmailProvider != "smtp" && c.EmailProvider != "sendgrid" {
		return fmt.Errorf("unknown email provider %q", c.EmailProvider)
	}
	for _, p := range c.Plans {
		if p.ID == "" || p.DurationDays <= 0 || p.Price < 0 {
			return fmt.Errorf("invalid subscription plan %q", p.ID)
		}
	}
	return nil
}

// Plan looks up a configured subscription plan
func (c *Config) Plan(id string) (PlanConfig, bool) {
	for _, p := range c.Plans {
		if p.ID == id {
			return p, true
		}
	}
	return PlanConfig{}, false
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
