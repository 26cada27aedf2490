package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string
	Store    string // memory | postgres

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	TaskProvider  string // gemini | openai | ollama | none
	TaskModel     string
	SystemPrompt  string
	GeminiKey     string
	OpenAIKey     string
	OpenAIBaseURL string
	OllamaHost    string
	TaskTimeout   time.Duration

	AllowedOrigins []string
	ExportEnabled  bool
	ExportFile     string
}

// RegisterFlags adds one flag per setting. Every flag can also be given as
// an environment variable: upper case, dashes replaced by underscores.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&c.Port, "port", "p", "8080", "port to listen on (env: PORT)")
	fs.StringVar(&c.AppEnv, "app-env", "development", "development or production (env: APP_ENV)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "log level (env: LOG_LEVEL)")
	fs.StringVar(&c.Store, "store", "memory", "session and task storage: memory or postgres (env: STORE)")

	fs.StringVar(&c.DB.Host, "db-host", "localhost", "postgres host (env: DB_HOST)")
	fs.StringVar(&c.DB.Port, "db-port", "5432", "postgres port (env: DB_PORT)")
	fs.StringVar(&c.DB.User, "db-user", "postgres", "postgres user (env: DB_USER)")
	fs.StringVar(&c.DB.Password, "db-password", "", "postgres password (env: DB_PASSWORD)")
	fs.StringVar(&c.DB.Database, "db-database", "chooseapp", "postgres database (env: DB_DATABASE)")
	fs.StringVar(&c.DB.SSLMode, "db-sslmode", "disable", "postgres sslmode (env: DB_SSLMODE)")

	fs.StringVar(&c.TaskProvider, "task-provider", "gemini", "task generator: gemini, openai, ollama or none (env: TASK_PROVIDER)")
	fs.StringVar(&c.TaskModel, "task-model", "", "model used for generated tasks (env: TASK_MODEL)")
	fs.StringVar(&c.SystemPrompt, "system-prompt", "", "system prompt for generated tasks (env: SYSTEM_PROMPT)")
	fs.StringVar(&c.GeminiKey, "gemini-api-key", "", "Gemini API key (env: GEMINI_API_KEY)")
	fs.StringVar(&c.OpenAIKey, "openai-api-key", "", "OpenAI API key (env: OPENAI_API_KEY)")
	fs.StringVar(&c.OpenAIBaseURL, "openai-base-url", "", "custom OpenAI base URL (env: OPENAI_BASE_URL)")
	fs.StringVar(&c.OllamaHost, "ollama-host", "http://localhost:11434", "Ollama host URL (env: OLLAMA_HOST)")
	fs.DurationVar(&c.TaskTimeout, "task-timeout", 8*time.Second, "upper bound for fetching a task (env: TASK_TIMEOUT)")

	fs.StringSliceVar(&c.AllowedOrigins, "allowed-origins", []string{"http://localhost:3000"}, "CORS origins, * allows all (env: ALLOWED_ORIGINS)")
	fs.BoolVar(&c.ExportEnabled, "export-enabled", false, "append finished games to the export file (env: EXPORT_ENABLED)")
	fs.StringVar(&c.ExportFile, "export-file", "./chooseapp-results.txt", "path of the export file (env: EXPORT_FILE)")
}

// Bind loads .env when present and fills every flag that was not set on the
// command line from its environment variable.
func Bind(fs *pflag.FlagSet) error {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if err := bindFlag(v, fs, f.Name); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// bindFlag ties one flag to viper and copies the environment value into it
// unless the flag was given on the command line.
func bindFlag(v *viper.Viper, fs *pflag.FlagSet, name string) error {
	f := fs.Lookup(name)
	if err := v.BindPFlag(name, f); err != nil {
		return fmt.Errorf("config: bind flag %s: %w", name, err)
	}
	if err := v.BindEnv(name); err != nil {
		return fmt.Errorf("config: bind env %s: %w", name, err)
	}
	if f.Changed || !v.IsSet(name) {
		return nil
	}
	if err := fs.Set(name, fmt.Sprintf("%v", v.Get(name))); err != nil {
		return fmt.Errorf("config: %s: %w", name, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("config: invalid port %q", c.Port)
	}
	switch c.Store {
	case "memory":
	case "postgres":
		if c.DB.Host == "" {
			return errors.New("config: DB_HOST is required")
		}
		if c.DB.User == "" {
			return errors.New("config: DB_USER is required")
		}
		if c.DB.Database == "" {
			return errors.New("config: DB_DATABASE is required")
		}
		if c.AppEnv == "production" && c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	switch c.TaskProvider {
	case "gemini", "openai", "ollama", "none":
	default:
		return fmt.Errorf("config: unknown task provider %q", c.TaskProvider)
	}
	if c.TaskTimeout <= 0 {
		return errors.New("config: TASK_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) Production() bool { return c.AppEnv == "production" }

// DSN returns the PostgreSQL connection string for GORM.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

// DatabaseURL returns the postgres URL for golang-migrate.
func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string { return ":" + c.Port }
