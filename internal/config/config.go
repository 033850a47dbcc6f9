package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	InputFile       string `yaml:"inputFile"`
	RowRange        string `yaml:"rowRange"`
	OutputBaseDir   string `yaml:"outputBaseDir"`
	OutputPrefix    string `yaml:"outputPrefix"`
	LogLevel        string `yaml:"logLevel"`
	ConsoleLogLevel string `yaml:"consoleLogLevel"`
	MaxWorkers      int    `yaml:"maxWorkers"`
	EmptyRowStop    int    `yaml:"emptyRowStop"`
}

type ScraperConfig struct {
	UserAgent              string   `yaml:"userAgent"`
	BrowserURL             string   `yaml:"browserURL"`
	PageTimeoutMs          int      `yaml:"pageTimeoutMs"`
	SettleMs               int      `yaml:"settleMs"`
	MaxPagesPerDomain      int      `yaml:"maxPagesPerDomain"`
	MaxDepth               int      `yaml:"maxDepth"`
	ScoreThreshold         int      `yaml:"scoreThreshold"`
	HighPriorityThreshold  int      `yaml:"highPriorityThreshold"`
	PageCapBypassAllowance int      `yaml:"pageCapBypassAllowance"`
	MaxKeywordPathSegments int      `yaml:"maxKeywordPathSegments"`
	CriticalKeywords       []string `yaml:"criticalKeywords"`
	HighPriorityKeywords   []string `yaml:"highPriorityKeywords"`
	TargetLinkKeywords     []string `yaml:"targetLinkKeywords"`
	RespectRobots          bool     `yaml:"respectRobots"`
	RobotsTimeoutMs        int      `yaml:"robotsTimeoutMs"`
}

type ExtractorConfig struct {
	SnippetWindowChars int `yaml:"snippetWindowChars"`
	MinDigits          int `yaml:"minDigits"`
}

type LLMConfig struct {
	APIKey                  string  `yaml:"apiKey"`
	BaseURL                 string  `yaml:"baseURL"`
	Model                   string  `yaml:"model"`
	Temperature             float32 `yaml:"temperature"`
	MaxTokens               int     `yaml:"maxTokens"`
	MaxCandidatesPerRequest int     `yaml:"maxCandidatesPerRequest"`
	MaxRetries              int     `yaml:"maxRetries"`
	RequestsPerMinute       int     `yaml:"requestsPerMinute"`
	PromptTemplatePath      string  `yaml:"promptTemplatePath"`
	ContextSubdir           string  `yaml:"contextSubdir"`
}

type TargetsConfig struct {
	CountryCodes []string `yaml:"countryCodes"`
	ProbeTLDs    []string `yaml:"probeTLDs"`
}

type Config struct {
	App       AppConfig       `yaml:"app"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Extractor ExtractorConfig `yaml:"extractor"`
	LLM       LLMConfig       `yaml:"llm"`
	Targets   TargetsConfig   `yaml:"targets"`
}

// Default returns the built-in configuration. Load layers a YAML file and
// environment overrides on top of it.
func Default() *Config {
	return &Config{
		App: AppConfig{
			InputFile:       "data/input.xlsx",
			OutputBaseDir:   "output_data",
			OutputPrefix:    "phone_extraction",
			LogLevel:        "info",
			ConsoleLogLevel: "warn",
			MaxWorkers:      8,
			EmptyRowStop:    50,
		},
		Scraper: ScraperConfig{
			UserAgent:              "phonescout/1.0",
			PageTimeoutMs:          30000,
			SettleMs:               3000,
			MaxPagesPerDomain:      20,
			MaxDepth:               1,
			ScoreThreshold:         40,
			HighPriorityThreshold:  80,
			PageCapBypassAllowance: 5,
			MaxKeywordPathSegments: 3,
			CriticalKeywords:       []string{"impressum", "kontakt", "contact", "imprint"},
			HighPriorityKeywords:   []string{"legal", "datenschutz", "privacy", "ueber-uns", "about"},
			TargetLinkKeywords:     []string{"kontakt", "impressum", "contact", "imprint", "legal", "datenschutz", "privacy", "ueber-uns", "about", "team", "standorte", "locations"},
			RespectRobots:          true,
			RobotsTimeoutMs:        10000,
		},
		Extractor: ExtractorConfig{
			SnippetWindowChars: 300,
			MinDigits:          7,
		},
		LLM: LLMConfig{
			Model:                   "gpt-4o-mini",
			Temperature:             0.1,
			MaxTokens:               4096,
			MaxCandidatesPerRequest: 10,
			MaxRetries:              2,
			RequestsPerMinute:       30,
			PromptTemplatePath:      "prompts/phone_classification.txt",
			ContextSubdir:           "llm_context",
		},
		Targets: TargetsConfig{
			CountryCodes: []string{"DE", "AT", "CH"},
			ProbeTLDs:    []string{"de", "com", "at", "ch"},
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString(&c.App.InputFile, "INPUT_FILE_PATH")
	envString(&c.App.RowRange, "ROW_PROCESSING_RANGE")
	envString(&c.App.OutputBaseDir, "OUTPUT_BASE_DIR")
	envString(&c.App.LogLevel, "LOG_LEVEL")
	envString(&c.App.ConsoleLogLevel, "CONSOLE_LOG_LEVEL")
	envInt(&c.App.MaxWorkers, "MAX_WORKERS")

	envString(&c.Scraper.BrowserURL, "BROWSER_URL")
	envString(&c.Scraper.UserAgent, "SCRAPER_USER_AGENT")
	envInt(&c.Scraper.MaxPagesPerDomain, "SCRAPER_MAX_PAGES_PER_DOMAIN")
	envInt(&c.Scraper.MaxDepth, "SCRAPER_MAX_DEPTH")

	envString(&c.LLM.APIKey, "LLM_API_KEY")
	envString(&c.LLM.BaseURL, "LLM_BASE_URL")
	envString(&c.LLM.Model, "LLM_MODEL")
	envInt(&c.LLM.MaxCandidatesPerRequest, "LLM_MAX_CANDIDATES_PER_REQUEST")
	envInt(&c.LLM.MaxRetries, "LLM_MAX_RETRIES")

	if v := os.Getenv("TARGET_COUNTRY_CODES"); v != "" {
		c.Targets.CountryCodes = splitCSV(v)
	}
	if v := os.Getenv("URL_PROBING_TLDS"); v != "" {
		c.Targets.ProbeTLDs = splitCSV(v)
	}
}

func (c *Config) validate() error {
	if c.Scraper.MaxPagesPerDomain <= 0 {
		return fmt.Errorf("scraper.maxPagesPerDomain must be positive")
	}
	if c.Scraper.MaxDepth < 0 {
		return fmt.Errorf("scraper.maxDepth must not be negative")
	}
	if c.LLM.MaxCandidatesPerRequest <= 0 {
		return fmt.Errorf("llm.maxCandidatesPerRequest must be positive")
	}
	if c.App.MaxWorkers <= 0 {
		return fmt.Errorf("app.maxWorkers must be positive")
	}
	return nil
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
