package main

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix scopes environment overrides, e.g. GOSTATESPACE_STEPS=10.
const envPrefix = "GOSTATESPACE"

// Config holds the resolved demo settings.
type Config struct {
	Data       string   `json:"data" yaml:"data"`
	URL        string   `json:"url" yaml:"url" validate:"omitempty,url"`
	Member     string   `json:"member" yaml:"member" validate:"required_with=URL"`
	Column     string   `json:"column" yaml:"column" validate:"required"`
	DateColumn string   `json:"date_column" yaml:"date_column"`
	Names      []string `json:"names" yaml:"names"`
	SkipRows   int      `json:"skip_rows" yaml:"skip_rows" validate:"gte=0"`
	Log        bool     `json:"log" yaml:"log"`

	Steps   int     `json:"steps" yaml:"steps" validate:"gte=1,lte=100"`
	Alpha   float64 `json:"alpha" yaml:"alpha" validate:"gt=0,lt=1"`
	Method  string  `json:"method" yaml:"method" validate:"oneof=nm bfgs lbfgs"`
	Seed    uint64  `json:"seed" yaml:"seed"`
	Holdout int     `json:"holdout" yaml:"holdout" validate:"gte=0"`

	Format      string        `json:"format" yaml:"format" validate:"oneof=json yaml"`
	Out         string        `json:"out" yaml:"out"`
	MetricsFile string        `json:"metrics_file" yaml:"metrics_file"`
	LogLevel    string        `json:"log_level" yaml:"log_level" validate:"oneof=info debug trace"`
	Quiet       bool          `json:"quiet" yaml:"quiet"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

// flagBindings maps viper keys to flag names.
var flagBindings = map[string]string{
	"data":         "data",
	"url":          "url",
	"member":       "member",
	"column":       "column",
	"date_column":  "date-column",
	"names":        "names",
	"skip_rows":    "skip-rows",
	"log":          "log",
	"steps":        "steps",
	"alpha":        "alpha",
	"method":       "method",
	"seed":         "seed",
	"holdout":      "holdout",
	"format":       "format",
	"out":          "out",
	"metrics_file": "metrics-file",
	"log_level":    "log-level",
	"quiet":        "quiet",
	"timeout":      "timeout",
}

// registerFlags declares every setting on fs.
func registerFlags(fs *flag.FlagSet) {
	fs.String("config", "", "YAML config file")
	fs.String("data", "", "Data file (.csv, .xlsx, or whitespace table); empty simulates a series")
	fs.String("url", "", "Zip archive URL to fetch the data table from")
	fs.String("member", "", "File inside the archive")
	fs.String("column", "ff", "Value column")
	fs.String("date-column", "date", "Year or date column (empty for none)")
	fs.StringSlice("names", []string{"date", "nf", "ff"}, "Column names for whitespace tables")
	fs.Int("skip-rows", 1, "Leading rows to skip in whitespace tables")
	fs.Bool("log", true, "Model the log of loaded data")
	fs.Int("steps", 5, "Forecast horizon")
	fs.Float64("alpha", 0.05, "Forecast band significance level")
	fs.String("method", "nm", "Optimizer: nm, bfgs or lbfgs")
	fs.Uint64("seed", 8678309, "Seed for simulated series")
	fs.Int("holdout", 5, "Trailing observations held out to score forecasts (0 disables)")
	fs.StringP("format", "f", "json", "Export format: json or yaml")
	fs.StringP("out", "o", "", "Export file (empty skips the export)")
	fs.String("metrics-file", "", "Write fit metrics in Prometheus textfile format")
	fs.String("log-level", "info", "Log level: info, debug or trace")
	fs.BoolP("quiet", "q", false, "Hide the progress bar")
	fs.Duration("timeout", 2*time.Minute, "Overall time limit")
}

// loadConfig resolves settings with precedence flags > env > config file > defaults.
func loadConfig(fs *flag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, name := range flagBindings {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		Data:        v.GetString("data"),
		URL:         v.GetString("url"),
		Member:      v.GetString("member"),
		Column:      v.GetString("column"),
		DateColumn:  v.GetString("date_column"),
		Names:       v.GetStringSlice("names"),
		SkipRows:    v.GetInt("skip_rows"),
		Log:         v.GetBool("log"),
		Steps:       v.GetInt("steps"),
		Alpha:       v.GetFloat64("alpha"),
		Method:      v.GetString("method"),
		Seed:        v.GetUint64("seed"),
		Holdout:     v.GetInt("holdout"),
		Format:      v.GetString("format"),
		Out:         v.GetString("out"),
		MetricsFile: v.GetString("metrics_file"),
		LogLevel:    v.GetString("log_level"),
		Quiet:       v.GetBool("quiet"),
		Timeout:     v.GetDuration("timeout"),
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateConfig checks the struct tags and reports fields by yaml name.
func validateConfig(cfg *Config) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})

	err := v.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
