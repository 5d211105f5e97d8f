package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/menu-cli/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Browser   BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Strategy  StrategyConfig  `yaml:"strategy" mapstructure:"strategy"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Rules     RulesConfig     `yaml:"rules" mapstructure:"rules"`
	Pricing   cost.Rates      `yaml:"pricing" mapstructure:"pricing"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OCRConfig configures word-level OCR for screenshots and PDF text
// extraction.
type OCRConfig struct {
	// Provider is "vision" (Google Cloud Vision) or "" to disable word OCR.
	Provider string `yaml:"provider" mapstructure:"provider"`
	Key      string `yaml:"key" mapstructure:"key"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// PDFProvider is "local" (pdftotext) or "mistral".
	PDFProvider   string `yaml:"pdf_provider" mapstructure:"pdf_provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_key" mapstructure:"mistral_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// BrowserConfig configures the headless browser session.
type BrowserConfig struct {
	Headless              bool   `yaml:"headless" mapstructure:"headless"`
	Bin                   string `yaml:"bin" mapstructure:"bin"`
	Proxy                 string `yaml:"proxy" mapstructure:"proxy"`
	NavigationTimeoutSecs int    `yaml:"navigation_timeout_secs" mapstructure:"navigation_timeout_secs"`
	ClickTimeoutSecs      int    `yaml:"click_timeout_secs" mapstructure:"click_timeout_secs"`
	SettleMillis          int    `yaml:"settle_ms" mapstructure:"settle_ms"`
	ViewportWidth         int    `yaml:"viewport_width" mapstructure:"viewport_width"`
	ViewportHeight        int    `yaml:"viewport_height" mapstructure:"viewport_height"`
	MaxScreenshots        int    `yaml:"max_screenshots" mapstructure:"max_screenshots"`
}

// ExtractConfig configures the chunked extraction driver.
type ExtractConfig struct {
	ChunkChars        int     `yaml:"chunk_chars" mapstructure:"chunk_chars"`
	ImageBatch        int     `yaml:"image_batch" mapstructure:"image_batch"`
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	RetryAttempts     int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	InitialBackoffMs  int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// StrategyConfig configures tier escalation.
type StrategyConfig struct {
	MinYield       int `yaml:"min_yield" mapstructure:"min_yield"`
	ShortTextChars int `yaml:"short_text_chars" mapstructure:"short_text_chars"`
}

// DiscoveryConfig bounds structure discovery.
type DiscoveryConfig struct {
	MaxSubpages   int `yaml:"max_subpages" mapstructure:"max_subpages"`
	MaxPagination int `yaml:"max_pagination" mapstructure:"max_pagination"`
	MaxTabs       int `yaml:"max_tabs" mapstructure:"max_tabs"`
}

// NormalizeConfig configures category normalization.
type NormalizeConfig struct {
	Language       string `yaml:"language" mapstructure:"language"`
	SplitThreshold int    `yaml:"split_threshold" mapstructure:"split_threshold"`
	SplitSize      int    `yaml:"split_size" mapstructure:"split_size"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RulesConfig locates the rule store file.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MENU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("ocr.provider", "")
	v.SetDefault("ocr.key", "")
	v.SetDefault("ocr.endpoint", "https://vision.googleapis.com")
	v.SetDefault("ocr.pdf_provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.mistral_key", "")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.proxy", "")
	v.SetDefault("browser.navigation_timeout_secs", 30)
	v.SetDefault("browser.click_timeout_secs", 5)
	v.SetDefault("browser.settle_ms", 1500)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 900)
	v.SetDefault("browser.max_screenshots", 12)
	v.SetDefault("extract.chunk_chars", 8000)
	v.SetDefault("extract.image_batch", 2)
	v.SetDefault("extract.concurrency", 3)
	v.SetDefault("extract.requests_per_second", 2.0)
	v.SetDefault("extract.retry_attempts", 3)
	v.SetDefault("extract.initial_backoff_ms", 2000)
	v.SetDefault("extract.max_backoff_ms", 30000)
	v.SetDefault("strategy.min_yield", 3)
	v.SetDefault("strategy.short_text_chars", 500)
	v.SetDefault("discovery.max_subpages", 15)
	v.SetDefault("discovery.max_pagination", 35)
	v.SetDefault("discovery.max_tabs", 25)
	v.SetDefault("normalize.language", "tr")
	v.SetDefault("normalize.split_threshold", 80)
	v.SetDefault("normalize.split_size", 40)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "menu.db")
	v.SetDefault("rules.path", "rules.yaml")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if len(cfg.Pricing.Anthropic) == 0 {
		cfg.Pricing = cost.DefaultRates()
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is "extract", "serve"
// or "catalog"; every mode needs a usable store.
func (c *Config) Validate(mode string) error {
	var problems []string
	switch mode {
	case "extract", "serve":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.OCR.Provider != "" && c.OCR.Provider != "vision" {
			problems = append(problems, "ocr.provider must be \"vision\" or empty")
		}
		if c.OCR.Provider == "vision" && c.OCR.Key == "" {
			problems = append(problems, "ocr.key is required for the vision provider")
		}
	}
	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		problems = append(problems, "server.port must be between 1 and 65535")
	}
	if c.Normalize.SplitThreshold > 0 && c.Normalize.SplitSize < 1 {
		problems = append(problems, "normalize.split_size must be at least 1 when split_threshold is set")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}
	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
