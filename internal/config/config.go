package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API and worker processes.
// All values come from env (a local .env file is loaded if present).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Twilio   TwilioConfig
	Agent    AgentConfig
	Analyzer AnalyzerConfig
	Webhook  WebhookConfig
}

type AppConfig struct {
	Env  string
	Port int

	// PublicBaseURL is where providers send callbacks (TwiML, status, webhooks).
	PublicBaseURL string

	// AutoDialNewLeads places a call immediately when an intake webhook
	// creates a lead with a phone number.
	AutoDialNewLeads bool
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// MigrationsDir is the path of the SQL migrations applied at startup.
	// Empty disables migrations.
	MigrationsDir string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// AgentConfig configures the hosted conversational voice-agent provider.
type AgentConfig struct {
	APIKey string

	// AgentID identifies the configured conversational agent.
	AgentID string

	// PhoneNumberID is the provider-side phone number attached to the agent,
	// required for agent-initiated outbound telephony.
	PhoneNumberID string

	// TelephonyCallURL is the outbound call initiation endpoint.
	TelephonyCallURL string

	// WSURL is a static conversation WebSocket URL for public agents.
	// Private agents use signed URLs fetched at call time instead.
	WSURL string

	// APIBaseURL is the provider REST API root, used for signed
	// conversation URL fetches.
	APIBaseURL string
}

type AnalyzerConfig struct {
	OpenAIAPIKey string
	OpenAIModel  string

	// ConfidenceThreshold is the minimum score an extracted field needs
	// before it is written back to the lead.
	ConfidenceThreshold float64
}

type WebhookConfig struct {
	// LeadIntakeSecret authenticates the lead-intake webhook.
	LeadIntakeSecret string

	// AgentSecret is the HMAC secret for voice-agent webhooks.
	// Empty disables signature verification.
	AgentSecret string

	// AgentSkipVerify disables signature checks even when a secret is set.
	// Local development escape hatch only.
	AgentSkipVerify bool
}

func Load() (Config, error) {
	// Local-dev convenience; real deployments inject env directly.
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/")
	c.App.AutoDialNewLeads = boolEnv("AUTO_DIAL_NEW_LEADS", true)

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	c.DB.MigrationsDir = strings.TrimSpace(os.Getenv("DB_MIGRATIONS_DIR"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.FromNumber = strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER"))

	c.Agent.APIKey = os.Getenv("AGENT_API_KEY")
	c.Agent.AgentID = strings.TrimSpace(os.Getenv("AGENT_ID"))
	c.Agent.PhoneNumberID = strings.TrimSpace(os.Getenv("AGENT_PHONE_NUMBER_ID"))
	c.Agent.TelephonyCallURL = strings.TrimSpace(os.Getenv("AGENT_TELEPHONY_CALL_URL"))
	c.Agent.WSURL = strings.TrimSpace(os.Getenv("AGENT_WS_URL"))
	c.Agent.APIBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("AGENT_API_BASE_URL")), "/")
	if c.Agent.APIBaseURL == "" {
		c.Agent.APIBaseURL = "https://api.elevenlabs.io"
	}

	c.Analyzer.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	c.Analyzer.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	c.Analyzer.ConfidenceThreshold = floatEnv("ANALYZER_CONFIDENCE_THRESHOLD", 0.7)

	c.Webhook.LeadIntakeSecret = os.Getenv("LEAD_WEBHOOK_SECRET")
	c.Webhook.AgentSecret = os.Getenv("AGENT_WEBHOOK_SECRET")
	c.Webhook.AgentSkipVerify = boolEnv("AGENT_WEBHOOK_SKIP_VERIFY", false)

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.PublicBaseURL == "" {
		errs = append(errs, errors.New("PUBLIC_BASE_URL is required"))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Agent.AgentID == "" {
		errs = append(errs, errors.New("AGENT_ID is required"))
	}
	if c.Agent.APIKey == "" {
		errs = append(errs, errors.New("AGENT_API_KEY is required"))
	}

	if c.IsProduction() {
		if c.Webhook.LeadIntakeSecret == "" {
			errs = append(errs, errors.New("LEAD_WEBHOOK_SECRET is required in production"))
		}
		if c.Webhook.AgentSecret == "" {
			errs = append(errs, errors.New("AGENT_WEBHOOK_SECRET is required in production"))
		}
		if c.Webhook.AgentSkipVerify {
			errs = append(errs, errors.New("AGENT_WEBHOOK_SKIP_VERIFY must not be set in production"))
		}
	}

	if c.Analyzer.OpenAIModel == "" {
		c.Analyzer.OpenAIModel = "gpt-4o-mini"
	}
	if c.Analyzer.ConfidenceThreshold <= 0 || c.Analyzer.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("ANALYZER_CONFIDENCE_THRESHOLD must be in (0,1], got %v", c.Analyzer.ConfidenceThreshold))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

// PostgresURL is the url form of the DSN, used by the migration runner.
func (c Config) PostgresURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func boolEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func floatEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
