package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Bethowen BethowenConfig `mapstructure:"bethowen"`
	Parser   ParserConfig   `mapstructure:"parser"`
}

// BethowenConfig holds bethowen API configuration
type BethowenConfig struct {
	BaseURL              string `mapstructure:"base_url"`
	Timeout              int    `mapstructure:"timeout"`
	MaxRetries           int    `mapstructure:"max_retries"`
	MaxRequestsPerSecond int    `mapstructure:"max_requests_per_second"`
	PageSize             int    `mapstructure:"page_size"`
	ProxiesFile          string `mapstructure:"proxies_file"`
}

// ParserConfig holds the crawl target: which city, which store, which
// categories, and how wide the worker pools run.
type ParserConfig struct {
	CityName     string `mapstructure:"city_name"`
	StoreAddress string `mapstructure:"store_address"`
	Threads      int    `mapstructure:"threads"`
	OutputDir    string `mapstructure:"output_dir"`

	// Categories comes from YAML as a bare string, a list of strings, or
	// nothing at all; NormalizeCategories validates it before any network
	// activity starts.
	Categories any `mapstructure:"categories"`
}

// Load loads configuration from YAML file with environment variable overrides
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config.yaml file not found in current directory")
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.Parser.CityName == "" {
		return nil, fmt.Errorf("parser.city_name is required")
	}
	if config.Parser.StoreAddress == "" {
		return nil, fmt.Errorf("parser.store_address is required")
	}

	return &config, nil
}

// NormalizeCategories turns the raw categories value into a flat list of
// category names. A single string becomes a one-element list, nil becomes an
// empty list (matches everything), and anything that is not a string or a
// list of strings is a configuration error.
func NormalizeCategories(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		categories := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("not correct categories format: expected list of strings, got %T element", item)
			}
			categories = append(categories, s)
		}
		return categories, nil
	default:
		return nil, fmt.Errorf("not correct categories format: expected string or list of strings, got %T", raw)
	}
}

func setDefaults() {
	viper.SetDefault("bethowen.base_url", "https://www.bethowen.ru")
	viper.SetDefault("bethowen.timeout", 5)
	viper.SetDefault("bethowen.max_retries", 3)
	viper.SetDefault("bethowen.max_requests_per_second", 20)
	viper.SetDefault("bethowen.page_size", 100)
	viper.SetDefault("bethowen.proxies_file", "./proxies.txt")

	viper.SetDefault("parser.threads", 10)
	viper.SetDefault("parser.output_dir", ".")
}
