// Package config loads b2b.yaml over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is looked up in the working directory when no path is given.
const FileName = "b2b.yaml"

var ErrInvalid = errors.New("invalid config")

// Duration reads "5s"-style strings from YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

type Config struct {
	FeaturesDir   string   `yaml:"featuresDir"`
	FailureDir    string   `yaml:"failureDir"`
	RecordingsDir string   `yaml:"recordingsDir"`
	HistoryDB     string   `yaml:"historyDB"`
	BaseURL       string   `yaml:"baseURL"`
	StepTimeout   Duration `yaml:"stepTimeout"`
	Retries       int      `yaml:"retries"`
	LogLevel      string   `yaml:"logLevel"`
	Record        bool     `yaml:"record"`
}

func Default() Config {
	return Config{
		FeaturesDir:   "features",
		FailureDir:    "failure",
		RecordingsDir: "recordings",
		HistoryDB:     ".b2b/history.db",
		StepTimeout:   Duration{30 * time.Second},
		Retries:       2,
		LogLevel:      "warn",
		Record:        true,
	}
}

// Load reads path over the defaults. An empty path loads FileName if it
// exists and the defaults otherwise.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(FileName); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		path = FileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	for name, dir := range map[string]string{
		"featuresDir":   c.FeaturesDir,
		"failureDir":    c.FailureDir,
		"recordingsDir": c.RecordingsDir,
		"historyDB":     c.HistoryDB,
	} {
		if dir == "" {
			errs = append(errs, fmt.Errorf("%w: %s is empty", ErrInvalid, name))
		}
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: baseURL %q is not an absolute url", ErrInvalid, c.BaseURL))
		}
	}
	if c.StepTimeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("%w: stepTimeout is negative", ErrInvalid))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("%w: retries is negative", ErrInvalid))
	}
	return errors.Join(errs...)
}
