package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is built once at startup and handed to constructors; nothing reads it globally.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Quiz     QuizConfig
	Fetcher  FetcherConfig
	Pipeline PipelineConfig
	Logger   LoggerConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DBConfig struct {
	Driver       string // postgres, sqlite or oracle
	DSN          string
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	AutoMigrate  bool
	MaxOpenConns int
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      time.Duration
}

// Enabled reports whether an artifact cache should be wired in front of the database.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

type LLMConfig struct {
	Provider    string // googleai, ollama or openai
	Model       string
	APIKey      string
	ServerURL   string
	Temperature float64
	Timeout     time.Duration
}

type QuizConfig struct {
	QuestionCount   int
	MaxContextChars int
}

type FetcherConfig struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBytes     int64
	AllowedHosts []string
}

// Raw markup snapshot modes.
const (
	RawMarkupKeep      = "raw"
	RawMarkupSanitized = "sanitized"
	RawMarkupOff       = "off"
)

type PipelineConfig struct {
	RawMarkup string
}

type LoggerConfig struct {
	Level string
	Env   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 60)
	v.SetDefault("server.write_timeout", 60)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "wikiquiz")
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.max_open_conns", 10)

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 3600)

	v.SetDefault("llm.provider", "googleai")
	v.SetDefault("llm.model", "gemini-1.5-pro")
	v.SetDefault("llm.server_url", "http://localhost:11434")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", 120)

	v.SetDefault("quiz.question_count", 7)
	v.SetDefault("quiz.max_context_chars", 120000)

	v.SetDefault("fetcher.timeout", 10)
	v.SetDefault("fetcher.user_agent", "DeepKlarityBot/1.0")
	v.SetDefault("fetcher.max_bytes", 10*1024*1024)
	v.SetDefault("fetcher.allowed_hosts", []string{})

	v.SetDefault("pipeline.raw_markup", RawMarkupKeep)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.env", "development")
}

// LoadConfig reads config.yaml (optional) and the environment into a Config.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		v.AddConfigPath("../../config")
		v.AddConfigPath("../../")
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("./configs")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := v.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetInt("server.port"),
			ReadTimeout:  time.Duration(v.GetInt("server.read_timeout")) * time.Second,
			WriteTimeout: time.Duration(v.GetInt("server.write_timeout")) * time.Second,
		},
		DB: DBConfig{
			Driver:       strings.ToLower(v.GetString("db.driver")),
			DSN:          v.GetString("db.dsn"),
			Host:         v.GetString("db.host"),
			Port:         v.GetInt("db.port"),
			User:         v.GetString("db.user"),
			Password:     v.GetString("db.password"),
			DBName:       v.GetString("db.name"),
			AutoMigrate:  v.GetBool("db.auto_migrate"),
			MaxOpenConns: v.GetInt("db.max_open_conns"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      time.Duration(v.GetInt("redis.ttl")) * time.Second,
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(v.GetString("llm.provider")),
			Model:       v.GetString("llm.model"),
			APIKey:      v.GetString("llm.api_key"),
			ServerURL:   v.GetString("llm.server_url"),
			Temperature: v.GetFloat64("llm.temperature"),
			Timeout:     time.Duration(v.GetInt("llm.timeout")) * time.Second,
		},
		Quiz: QuizConfig{
			QuestionCount:   v.GetInt("quiz.question_count"),
			MaxContextChars: v.GetInt("quiz.max_context_chars"),
		},
		Fetcher: FetcherConfig{
			Timeout:      time.Duration(v.GetInt("fetcher.timeout")) * time.Second,
			UserAgent:    v.GetString("fetcher.user_agent"),
			MaxBytes:     v.GetInt64("fetcher.max_bytes"),
			AllowedHosts: v.GetStringSlice("fetcher.allowed_hosts"),
		},
		Pipeline: PipelineConfig{
			RawMarkup: strings.ToLower(v.GetString("pipeline.raw_markup")),
		},
		Logger: LoggerConfig{
			Level: v.GetString("logger.level"),
			Env:   v.GetString("logger.env"),
		},
	}

	// Legacy environment variables.
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = key
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" && cfg.LLM.Provider == "googleai" {
		cfg.LLM.Model = model
	}
	if n := os.Getenv("MAX_QUIZ_QUESTIONS"); n != "" {
		var parsed int
		if _, err := fmt.Sscanf(n, "%d", &parsed); err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid MAX_QUIZ_QUESTIONS: %q", n)
		}
		cfg.Quiz.QuestionCount = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite", "oracle":
	default:
		return fmt.Errorf("unsupported db.driver %q", c.DB.Driver)
	}
	switch c.LLM.Provider {
	case "googleai", "ollama", "openai":
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}
	switch c.Pipeline.RawMarkup {
	case RawMarkupKeep, RawMarkupSanitized, RawMarkupOff:
	default:
		return fmt.Errorf("unsupported pipeline.raw_markup %q", c.Pipeline.RawMarkup)
	}
	if c.Quiz.QuestionCount <= 0 {
		return fmt.Errorf("quiz.question_count must be positive, got %d", c.Quiz.QuestionCount)
	}
	if c.Quiz.MaxContextChars <= 0 {
		return fmt.Errorf("quiz.max_context_chars must be positive, got %d", c.Quiz.MaxContextChars)
	}
	return nil
}

// GetDSN returns the driver-specific connection string, preferring db.dsn when set.
func (c *Config) GetDSN() string {
	if c.DB.DSN != "" {
		return c.DB.DSN
	}
	switch c.DB.Driver {
	case "sqlite":
		return c.DB.DBName + ".db"
	case "oracle":
		return fmt.Sprintf("oracle://%s:%s@%s:%d/%s",
			c.DB.User,
			c.DB.Password,
			c.DB.Host,
			c.DB.Port,
			c.DB.DBName,
		)
	default:
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			c.DB.User,
			c.DB.Password,
			c.DB.Host,
			c.DB.Port,
			c.DB.DBName,
		)
	}
}
