package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Dataset DatasetConfig
	LLM     LLMConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host              string
	Port              int
	ReadTimeout       int
	WriteTimeout      int
	BodyLimit         int
	StaticDir         string
	AskPerMinute      int
	IsDevelopment     bool
}

type DatasetConfig struct {
	SamplePath string
}

type LLMConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/opskpi")

	viper.SetEnvPrefix("OPSKPI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The credential is never read from a config file. OPSKPI_LLM_APIKEY works
	// through the prefix above; OPENAI_API_KEY is the conventional spelling.
	viper.BindEnv("llm.apikey", "OPSKPI_LLM_APIKEY", "OPENAI_API_KEY")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 5242880)
	viper.SetDefault("server.staticDir", "./web")
	viper.SetDefault("server.askPerMinute", 20)
	viper.SetDefault("server.isDevelopment", false)

	viper.SetDefault("dataset.samplePath", "./data/sample_kpis.csv")

	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 300)
	viper.SetDefault("llm.timeoutSec", 30)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
