package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// OCR providers
const (
	OCRProviderTesseract = "tesseract"
	OCRProviderOpenAI    = "openai"
	OCRProviderNone      = "none"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Reference ReferenceConfig `mapstructure:"reference"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Report    ReportConfig    `mapstructure:"report"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// PipelineConfig controls which tickets a batch takes and how long it may run
type PipelineConfig struct {
	Team             string        `mapstructure:"team"`
	BatchLimit       int           `mapstructure:"batch_limit"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	BatchTimeout     time.Duration `mapstructure:"batch_timeout"`
	WorkerEnabled    bool          `mapstructure:"worker_enabled"`
	RunOnStart       bool          `mapstructure:"run_on_start"`
	EnsureStages     bool          `mapstructure:"ensure_stages"`
	AnnotationAuthor string        `mapstructure:"annotation_author"`
}

// OCRConfig selects the fallback engine for PDFs without a text layer
type OCRConfig struct {
	Provider  string   `mapstructure:"provider"`
	Languages []string `mapstructure:"languages"`
	DPI       float64  `mapstructure:"dpi"`
	MaxPages  int      `mapstructure:"max_pages"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ReferenceConfig names the accounting records used for draft vendor bills
type ReferenceConfig struct {
	ExpenseAccountCode  string              `mapstructure:"expense_account_code"`
	ExpenseAccountType  string              `mapstructure:"expense_account_type"`
	VATTaxCode          string              `mapstructure:"vat_tax_code"`
	VATRate             float64             `mapstructure:"vat_rate"`
	DefaultAnalyticCode string              `mapstructure:"default_analytic_code"`
	DocumentTypes       map[string][]string `mapstructure:"document_types"`
}

// NotifyConfig holds notification channels
type NotifyConfig struct {
	Lark LarkConfig `mapstructure:"lark"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	ChatID    string `mapstructure:"chat_id"`
	BaseURL   string `mapstructure:"base_url"`
}

// ReportConfig holds report export configuration
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// Load reads .env (when present), the YAML file (when configPath is set) and
// environment overrides, in that order of increasing precedence.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := gotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Reference.DocumentTypes = upperKeys(cfg.Reference.DocumentTypes)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)
	v.SetDefault("server.max_upload_mb", 20)

	// Database defaults
	v.SetDefault("database.path", "data/invoice_intake.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Pipeline defaults
	v.SetDefault("pipeline.batch_limit", 0)
	v.SetDefault("pipeline.poll_interval", 5*time.Minute)
	v.SetDefault("pipeline.batch_timeout", 30*time.Minute)
	v.SetDefault("pipeline.worker_enabled", true)
	v.SetDefault("pipeline.run_on_start", false)
	v.SetDefault("pipeline.ensure_stages", true)
	v.SetDefault("pipeline.annotation_author", "Invoice Bot")

	// OCR defaults
	v.SetDefault("ocr.provider", OCRProviderTesseract)
	v.SetDefault("ocr.languages", []string{"spa", "eng"})
	v.SetDefault("ocr.dpi", 200)
	v.SetDefault("ocr.max_pages", 3)

	// OpenAI defaults
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", 60*time.Second)

	// Reference defaults match the seeded Argentine chart
	v.SetDefault("reference.expense_account_code", "511100000")
	v.SetDefault("reference.expense_account_type", "expense")
	v.SetDefault("reference.vat_tax_code", "VAT21_PURCHASE")
	v.SetDefault("reference.vat_rate", 21)
	for docType, fragments := range DefaultDocumentTypes() {
		v.SetDefault("reference.document_types."+strings.ToLower(docType), fragments)
	}

	// Report defaults
	v.SetDefault("report.output_dir", "data/reports")
}

// DefaultDocumentTypes maps extracted document types to document type codes and names
func DefaultDocumentTypes() map[string][]string {
	return map[string][]string{
		"FACTURA_A":     {"001", "FACTURAS A"},
		"NOTA_DEBITO_A": {"002", "NOTAS DE DEBITO A"},
		"FACTURA_B":     {"006", "FACTURAS B"},
		"NOTA_DEBITO_B": {"007", "NOTAS DE DEBITO B"},
		"FACTURA_C":     {"011", "FACTURAS C"},
		"NOTA_DEBITO_C": {"012", "NOTAS DE DEBITO C"},
	}
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("notify.lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("notify.lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("notify.lark.chat_id", "LARK_CHAT_ID")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Pipeline.BatchLimit < 0 {
		return fmt.Errorf("pipeline.batch_limit cannot be negative")
	}
	if c.Pipeline.BatchTimeout < 0 {
		return fmt.Errorf("pipeline.batch_timeout cannot be negative")
	}
	if c.Pipeline.WorkerEnabled && c.Pipeline.PollInterval <= 0 {
		return fmt.Errorf("pipeline.poll_interval must be positive when the worker is enabled")
	}

	switch c.OCR.Provider {
	case OCRProviderTesseract, OCRProviderNone:
	case OCRProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key is required for the openai OCR provider")
		}
	default:
		return fmt.Errorf("ocr.provider must be one of tesseract, openai, none; got %q", c.OCR.Provider)
	}

	if c.Reference.VATRate <= 0 {
		return fmt.Errorf("reference.vat_rate must be positive")
	}

	if c.Notify.Lark.Enabled {
		if c.Notify.Lark.AppID == "" {
			return fmt.Errorf("notify.lark.app_id is required")
		}
		if c.Notify.Lark.AppSecret == "" {
			return fmt.Errorf("notify.lark.app_secret is required")
		}
		if c.Notify.Lark.ChatID == "" {
			return fmt.Errorf("notify.lark.chat_id is required")
		}
	}

	if c.Report.OutputDir == "" {
		return fmt.Errorf("report.output_dir is required")
	}

	return nil
}

// viper lower-cases map keys; document types are upper-case constants
func upperKeys(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[strings.ToUpper(k)] = v
	}
	return out
}
