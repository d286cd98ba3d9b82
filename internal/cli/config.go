package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	theme "github.com/goliatone/go-theme"
)

const envPrefix = "DIALOGFORM"

// Config is the resolved command configuration. Values come from flags,
// DIALOGFORM_* environment variables and an optional config file, in that
// order of precedence.
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Theme   ThemeConfig   `mapstructure:"theme"`
	Options OptionsConfig `mapstructure:"options"`
	// Seed loads the demo records into the in-memory store.
	Seed bool `mapstructure:"seed"`
}

// CatalogConfig selects entity definitions. An empty Dir uses the embedded
// catalog. OpenAPI adds the schemas of an OpenAPI document.
type CatalogConfig struct {
	Dir     string `mapstructure:"dir"`
	OpenAPI string `mapstructure:"openapi"`
}

type ServerConfig struct {
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ThemeConfig names the theme to render with. Manifest points at a YAML
// theme manifest.
type ThemeConfig struct {
	Name     string `mapstructure:"name"`
	Variant  string `mapstructure:"variant"`
	Manifest string `mapstructure:"manifest"`
}

// OptionsConfig declares remote option endpoints by loader name.
type OptionsConfig struct {
	Endpoints map[string]EndpointConfig `mapstructure:"endpoints"`
}

type EndpointConfig struct {
	URL         string            `mapstructure:"url"`
	Method      string            `mapstructure:"method"`
	ResultsPath string            `mapstructure:"resultsPath"`
	ValueField  string            `mapstructure:"valueField"`
	LabelField  string            `mapstructure:"labelField"`
	QueryParam  string            `mapstructure:"queryParam"`
	Params      map[string]string `mapstructure:"params"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("catalog.dir", "")
	v.SetDefault("catalog.openapi", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("theme.name", "")
	v.SetDefault("theme.variant", "")
	v.SetDefault("theme.manifest", "")
	v.SetDefault("seed", true)
	return v
}

// loadConfig reads file when set, or a dialogform.yaml from the working
// directory when present, and decodes the result.
func loadConfig(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("dialogform")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

type manifestFile struct {
	Name      string                 `yaml:"name"`
	Version   string                 `yaml:"version"`
	Tokens    map[string]string      `yaml:"tokens"`
	Templates map[string]string      `yaml:"templates"`
	Assets    assetsFile             `yaml:"assets"`
	Variants  map[string]variantFile `yaml:"variants"`
}

type variantFile struct {
	Tokens    map[string]string `yaml:"tokens"`
	Templates map[string]string `yaml:"templates"`
	Assets    assetsFile        `yaml:"assets"`
}

type assetsFile struct {
	Prefix string            `yaml:"prefix"`
	Files  map[string]string `yaml:"files"`
}

// loadManifest reads a theme manifest from disk.
func loadManifest(path string) (*theme.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("theme manifest: %w", err)
	}
	var raw manifestFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("theme manifest %s: %w", path, err)
	}
	if strings.TrimSpace(raw.Name) == "" {
		return nil, fmt.Errorf("theme manifest %s: name is required", path)
	}

	manifest := &theme.Manifest{
		Name:      raw.Name,
		Version:   raw.Version,
		Tokens:    raw.Tokens,
		Templates: raw.Templates,
		Assets:    theme.Assets{Prefix: raw.Assets.Prefix, Files: raw.Assets.Files},
	}
	if len(raw.Variants) > 0 {
		manifest.Variants = make(map[string]theme.Variant, len(raw.Variants))
		for name, variant := range raw.Variants {
			manifest.Variants[name] = theme.Variant{
				Tokens:    variant.Tokens,
				Templates: variant.Templates,
				Assets:    theme.Assets{Prefix: variant.Assets.Prefix, Files: variant.Assets.Files},
			}
		}
	}
	return manifest, nil
}
