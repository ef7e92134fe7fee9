package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath       = "config.yaml"
	defaultPlannerProvider  = "gemini"
	defaultRendererProvider = "imagen"
	defaultServerAddr       = "localhost:8080"
	defaultExportTarget     = "./output"
)

// Provider names accepted in planner.provider and renderer.provider.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderImagen = "imagen"
	ProviderDalle  = "dalle"
)

// Env var holding the API key of each provider.
var providerEnv = map[string]string{
	ProviderGemini: "GEMINI_API_KEY",
	ProviderImagen: "GEMINI_API_KEY",
	ProviderGroq:   "GROQ_API_KEY",
	ProviderOpenAI: "OPENAI_API_KEY",
	ProviderDalle:  "OPENAI_API_KEY",
}

type Config struct {
	GoogleCloudProject string

	Planner  ProviderConfig `yaml:"planner"`
	Renderer ProviderConfig `yaml:"renderer"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Secrets  SecretsConfig  `yaml:"secrets"`
	Server   ServerConfig   `yaml:"server"`
	Export   ExportConfig   `yaml:"export"`
}

type ProviderConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// SecretsConfig names the Secret Manager secrets holding the two API keys.
// An empty project disables the Secret Manager lookup.
type SecretsConfig struct {
	Project   string `yaml:"project"`
	TextName  string `yaml:"text_name"`
	ImageName string `yaml:"image_name"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type ExportConfig struct {
	Target string `yaml:"target"`
}

// Load reads .env into the process environment, then config.yaml from the
// working directory. A missing file of either kind is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GoogleCloudProject: os.Getenv("GOOGLE_CLOUD_PROJECT"),
	}

	if err := loadYAMLConfig(cfg, defaultConfigPath); err != nil {
		return nil, err
	}
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("No config.yaml found, using defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) error {
	if cfg.Planner.Provider == "" {
		cfg.Planner.Provider = defaultPlannerProvider
	}
	if cfg.Renderer.Provider == "" {
		cfg.Renderer.Provider = defaultRendererProvider
	}

	switch cfg.Planner.Provider {
	case ProviderGemini, ProviderGroq, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown planner provider %q", cfg.Planner.Provider)
	}
	switch cfg.Renderer.Provider {
	case ProviderImagen, ProviderDalle:
	default:
		return fmt.Errorf("unknown renderer provider %q", cfg.Renderer.Provider)
	}

	if cfg.Secrets.Project == "" {
		cfg.Secrets.Project = cfg.GoogleCloudProject
	}
	if cfg.Secrets.TextName == "" {
		cfg.Secrets.TextName = cfg.Planner.Provider + "-api-key"
	}
	if cfg.Secrets.ImageName == "" {
		cfg.Secrets.ImageName = cfg.Renderer.Provider + "-api-key"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
	if cfg.Export.Target == "" {
		cfg.Export.Target = defaultExportTarget
	}
	return nil
}

// EnvVar returns the environment variable holding provider's API key.
func EnvVar(provider string) string {
	return providerEnv[provider]
}

func (c *Config) TextKeyEnv() string  { return EnvVar(c.Planner.Provider) }
func (c *Config) ImageKeyEnv() string { return EnvVar(c.Renderer.Provider) }
