package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It is loaded once at startup and treated as read-only afterwards.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`
	// LogLevel overrides the default level of the environment logger when set.
	LogLevel string `env:"LOG_LEVEL" env-default:"" yaml:"logLevel"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":3000" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"30s" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
		// AdminAddr serves metrics and pprof on a separate listener. When empty they
		// are mounted on the public listener.
		AdminAddr string `env:"HTTP_ADMIN_ADDR" env-default:"127.0.0.1:9091" yaml:"adminAddr"`
	} `yaml:"http"`

	// Access groups the origin allow-list, bot trust token and rate limiting.
	Access struct {
		// AllowedOrigins lists the origins allowed by CORS and exempt from bot detection.
		AllowedOrigins []string `env:"WHITELISTED_DOMAINS" env-separator:"," yaml:"allowedOrigins"`
		// TrustedProxies lists proxy addresses or CIDR ranges whose forwarding
		// headers are honoured when resolving the client IP.
		TrustedProxies []string `env:"TRUSTED_PROXIES" env-separator:"," yaml:"trustedProxies"`
		// BotToken is the shared secret a classified bot presents in X-Authorized-Bot.
		BotToken string `env:"AUTHORIZED_BOT_TOKEN" yaml:"botToken"`
		// RateLimitRequests is the number of requests a client may make per window.
		RateLimitRequests int `env:"RATE_LIMIT_REQUESTS" env-default:"75" yaml:"rateLimitRequests"`
		// RateLimitWindow is the window the request budget refills over.
		RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"15m" yaml:"rateLimitWindow"`
	} `yaml:"access"`

	// Fetch configures outbound requests to third-party sites.
	Fetch struct {
		Timeout      time.Duration `env:"FETCH_TIMEOUT" env-default:"15s" yaml:"timeout"`
		MaxRedirects int           `env:"FETCH_MAX_REDIRECTS" env-default:"5" yaml:"maxRedirects"`
		UserAgent    string        `env:"FETCH_USER_AGENT" env-default:"Mozilla/5.0 (compatible; multiapi/1.0)" yaml:"userAgent"` //nolint: lll
		MaxBodyBytes int64         `env:"FETCH_MAX_BODY_BYTES" env-default:"5242880" yaml:"maxBodyBytes"`
	} `yaml:"fetch"`

	// Captcha configures verification of the caption request token.
	// Verification is skipped when Secret is empty.
	Captcha struct {
		Secret    string `env:"CAPTCHA_SECRET" yaml:"secret"`
		VerifyURL string `env:"CAPTCHA_VERIFY_URL" env-default:"https://challenges.cloudflare.com/turnstile/v0/siteverify" yaml:"verifyUrl"` //nolint: lll
	} `yaml:"captcha"`

	// SMTP holds the relay credentials and message defaults.
	SMTP struct {
		Host     string `env:"SMTP_HOST" env-default:"smtp.gmail.com" yaml:"host"`
		Port     int    `env:"SMTP_PORT" env-default:"587" yaml:"port"`
		Username string `env:"EMAIL" yaml:"username"`
		Password string `env:"PASSWORD" yaml:"password"`
		FromName string `env:"MAIL_FROM_NAME" env-default:"Mail sender Bot" yaml:"fromName"`
		// ContactRecipient receives the messages submitted through the contact form.
		ContactRecipient string        `env:"CONTACT_RECIPIENT" yaml:"contactRecipient"`
		Timeout          time.Duration `env:"SMTP_TIMEOUT" env-default:"30s" yaml:"timeout"`
	} `yaml:"smtp"`

	// Uploads configures staging of mail attachments and QR images.
	Uploads struct {
		Dir                string `env:"UPLOAD_DIR" env-default:"uploads" yaml:"dir"`
		MaxAttachmentBytes int64  `env:"MAX_ATTACHMENT_BYTES" env-default:"26214400" yaml:"maxAttachmentBytes"`
		MaxImageBytes      int64  `env:"MAX_IMAGE_BYTES" env-default:"2097152" yaml:"maxImageBytes"`
	} `yaml:"uploads"`

	// Logtail configures log shipping; disabled unless APIKey is set in production.
	Logtail struct {
		APIKey      string `env:"LOGTAIL_API_KEY" yaml:"apiKey"`
		IngestURL   string `env:"LOGTAIL_INGESTING_URL" env-default:"https://in.logs.betterstack.com" yaml:"ingestUrl"`
		FlushEveryN int    `env:"LOGTAIL_FLUSH_EVERY" env-default:"50" yaml:"flushEvery"`
	} `yaml:"logtail"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
// A missing file is not an error: the configuration then comes from the
// environment and defaults only.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if _, statErr := os.Stat(configPath); errors.Is(statErr, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("could not read env: %w", err)
		}

		return &cfg, nil
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}

// MailConfigured reports whether relay credentials are present.
func (c *Config) MailConfigured() bool {
	return c.SMTP.Username != "" && c.SMTP.Password != ""
}
