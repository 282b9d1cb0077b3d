// Package config holds the processor configuration. Values come from
// defaults, then an optional YAML file, then FATTURA_* environment
// variables; command-line flags are applied last by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv
const (
	EnvResources = "FATTURA_RESOURCES"
	EnvXMLLint   = "FATTURA_XMLLINT"
	EnvXSLTProc  = "FATTURA_XSLTPROC"
	EnvChrome    = "FATTURA_CHROME"
	EnvLogLevel  = "FATTURA_LOG_LEVEL"
)

// Config is the complete processor configuration
type Config struct {
	// Resources is the directory holding schemas/ and styles/
	Resources string `yaml:"resources"`

	Tools    Tools    `yaml:"tools"`
	Timeouts Timeouts `yaml:"timeouts"`

	// RemoteReferences maps remote schema imports to local schema names,
	// on top of the built-in xmldsig substitution
	RemoteReferences map[string]string `yaml:"remote_references,omitempty"`

	Server Server `yaml:"server"`
	Trust  Trust  `yaml:"trust"`
	Log    Log    `yaml:"log"`
}

// Tools names the external executables; empty Chrome means auto-detect
type Tools struct {
	XMLLint  string `yaml:"xmllint"`
	XSLTProc string `yaml:"xsltproc"`
	Chrome   string `yaml:"chrome"`
}

// Timeouts bound each external tool run
type Timeouts struct {
	Validate  time.Duration `yaml:"validate"`
	Transform time.Duration `yaml:"transform"`
	Print     time.Duration `yaml:"print"`
}

// Server configures the HTTP API
type Server struct {
	Address      string        `yaml:"address"`
	Debug        bool          `yaml:"debug"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// MaxBodyBytes caps uploaded documents
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// Trust configures signature verification
type Trust struct {
	PEMFiles    []string      `yaml:"pem_files"`
	SoftFail    bool          `yaml:"soft_fail"`
	OCSPTimeout time.Duration `yaml:"ocsp_timeout"`
}

// Log configures the logger
type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Resources: "resources",
		Tools: Tools{
			XMLLint:  "xmllint",
			XSLTProc: "xsltproc",
		},
		Timeouts: Timeouts{
			Validate:  30 * time.Second,
			Transform: 30 * time.Second,
			Print:     60 * time.Second,
		},
		Server: Server{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			MaxBodyBytes: 10 << 20,
		},
		Trust: Trust{
			OCSPTimeout: 10 * time.Second,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides values from FATTURA_* environment variables
func (c *Config) ApplyEnv() {
	set := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvResources, &c.Resources)
	set(EnvXMLLint, &c.Tools.XMLLint)
	set(EnvXSLTProc, &c.Tools.XSLTProc)
	set(EnvChrome, &c.Tools.Chrome)
	set(EnvLogLevel, &c.Log.Level)
}

// Validate checks values a YAML file may have set wrong
func (c *Config) Validate() error {
	if c.Resources == "" {
		return errors.New("resources directory is required")
	}
	for name, d := range map[string]time.Duration{
		"timeouts.validate":   c.Timeouts.Validate,
		"timeouts.transform":  c.Timeouts.Transform,
		"timeouts.print":      c.Timeouts.Print,
		"trust.ocsp_timeout":  c.Trust.OCSPTimeout,
		"server.read_timeout": c.Server.ReadTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}
	return nil
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
