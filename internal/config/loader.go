package config

import (
	"fmt"
	"strings"

	goToken "github.com/MrEthical07/goToken"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable the loader reads. Nesting uses
// a double underscore: GOTOKEN_JWT__ACCESS_TTL sets jwt.access_ttl.
const EnvPrefix = "GOTOKEN_"

// Loader layers configuration sources. Later sources win:
// defaults < file < environment < flags.
type Loader struct {
	path  string
	flags *pflag.FlagSet
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithFile reads a YAML file. An empty path is ignored.
func WithFile(path string) LoaderOption {
	return func(l *Loader) { l.path = path }
}

// WithFlags reads changed flags registered by RegisterFlags.
func WithFlags(flags *pflag.FlagSet) LoaderOption {
	return func(l *Loader) { l.flags = flags }
}

// NewLoader returns a loader over the given sources.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges every source into a Config.
func (l *Loader) Load() (Config, error) {
	k := koanf.New(".")

	if l.path != "" {
		if err := k.Load(file.Provider(l.path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", l.path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if l.flags != nil {
		mapping := GetFlagMapping()
		provider := posflag.ProviderWithFlag(l.flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			path, ok := mapping[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return path, f.Value.String()
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadEngineConfig is Load followed by Config.Engine.
func (l *Loader) LoadEngineConfig() (goToken.Config, error) {
	cfg, err := l.Load()
	if err != nil {
		return goToken.Config{}, err
	}
	return cfg.Engine()
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}
