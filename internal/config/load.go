package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. M8PREP_TARGET_BIT_DEPTH=24.
const EnvPrefix = "M8PREP"

// LoadOptions selects the sources [Load] reads.
type LoadOptions struct {
	ConfigFile string         // Explicit config file; empty searches the defaults.
	EnvFile    string         // Explicit .env file; empty tries ./.env.
	Flags      *pflag.FlagSet // Parsed flags from [RegisterFlags]; may be nil.
}

// ConfigDir returns the per-user configuration directory searched for
// config.yml when no file is given.
func ConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "m8prep")
}

// Load builds a Config from, in increasing precedence: [DefaultConfig], the
// config file, the environment (including the .env file), and flags.
// Values are not validated; call [Config.Validate].
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	// Phrase replacement keys may contain dots, so the key delimiter is "::".
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	if err := setDefaults(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := ConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	// Missing default config is not an error; an explicit file must exist.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := bindFlags(v, opts.Flags); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		charsetHook(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyNegatedFlags(&cfg, opts.Flags)

	cfg.SourceDir = NormalizeDirArg(cfg.SourceDir)
	cfg.DestDir = NormalizeDirArg(cfg.DestDir)
	return &cfg, nil
}

// UsedFile returns the config file Load would read for opts, or "" when
// none exists. Used by diagnostics.
func UsedFile(opts LoadOptions) string {
	if opts.ConfigFile != "" {
		return opts.ConfigFile
	}
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir := ConfigDir(); dir != "" {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return v.ConfigFileUsed()
}

func loadEnvFile(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// setDefaults registers every key of DefaultConfig so AutomaticEnv can
// override keys that the config file does not mention.
func setDefaults(v *viper.Viper) error {
	var defaults map[string]any
	if err := mapstructure.Decode(DefaultConfig(), &defaults); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	return nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// charsetHook lets punctuation sets be written as a list of characters.
func charsetHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeFor[Charset]()
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != target {
			return data, nil
		}
		switch chars := data.(type) {
		case []string:
			return strings.Join(chars, ""), nil
		case []any:
			var b strings.Builder
			for _, c := range chars {
				fmt.Fprint(&b, c)
			}
			return b.String(), nil
		}
		return data, nil
	}
}
