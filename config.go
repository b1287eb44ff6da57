package main

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/falconandy/spacetravelling/prismic"
)

// Config is the whole runtime configuration. It is read once at startup and
// passed explicitly to every component that needs part of it.
type Config struct {
	PrismicEndpoint    string        `validate:"required,url"`
	PrismicAccessToken string
	PrismicPageSize    int           `validate:"gte=1,lte=100"`
	PrismicTimeout     time.Duration `validate:"gt=0"`

	Port      int    `validate:"gte=1,lte=65535"`
	OutputDir string `validate:"required"`
	SiteURL   string `validate:"omitempty,url"`
	MaxPages  int    `validate:"gte=0"`

	DisplayTimezone string `validate:"required"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	LogDevelopment  bool
}

const (
	keyPrismicEndpoint    = "prismic_api_endpoint"
	keyPrismicAccessToken = "prismic_access_token"
	keyPrismicPageSize    = "prismic_page_size"
	keyPrismicTimeout     = "prismic_timeout"
	keyPort               = "port"
	keyOutputDir          = "output_dir"
	keySiteURL            = "site_url"
	keyMaxPages           = "max_pages"
	keyDisplayTimezone    = "display_timezone"
	keyLogLevel           = "log_level"
	keyLogDevelopment     = "log_development"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyPrismicPageSize, prismic.DefaultPageSize)
	v.SetDefault(keyPrismicTimeout, prismic.DefaultTimeout)
	v.SetDefault(keyPort, 9001)
	v.SetDefault(keyOutputDir, "public")
	v.SetDefault(keyMaxPages, 50)
	v.SetDefault(keyDisplayTimezone, "America/Sao_Paulo")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogDevelopment, false)
}

// newViper reads .env, the environment and the optional config file.
func newViper(cfgFile string) (*viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "can't read config file %s", cfgFile)
		}
	}
	return v, nil
}

func loadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		PrismicEndpoint:    strings.TrimSpace(v.GetString(keyPrismicEndpoint)),
		PrismicAccessToken: strings.TrimSpace(v.GetString(keyPrismicAccessToken)),
		PrismicPageSize:    v.GetInt(keyPrismicPageSize),
		PrismicTimeout:     v.GetDuration(keyPrismicTimeout),
		Port:               v.GetInt(keyPort),
		OutputDir:          v.GetString(keyOutputDir),
		SiteURL:            strings.TrimRight(v.GetString(keySiteURL), "/"),
		MaxPages:           v.GetInt(keyMaxPages),
		DisplayTimezone:    v.GetString(keyDisplayTimezone),
		LogLevel:           strings.ToLower(v.GetString(keyLogLevel)),
		LogDevelopment:     v.GetBool(keyLogDevelopment),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, "invalid configuration")
	}
	if _, err := time.LoadLocation(cfg.DisplayTimezone); err != nil {
		return Config{}, errors.Wrapf(err, "invalid display timezone %q", cfg.DisplayTimezone)
	}
	return cfg, nil
}

func (c Config) prismic() prismic.Config {
	return prismic.Config{
		Endpoint:    c.PrismicEndpoint,
		AccessToken: c.PrismicAccessToken,
		PageSize:    c.PrismicPageSize,
		Timeout:     c.PrismicTimeout,
	}
}

func (c Config) location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
