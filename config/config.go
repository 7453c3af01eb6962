// Package config loads run configuration from HCL. A config file has an
// optional run block and an optional logging block:
//
//	run {
//	  workers = cpu.count * 2
//	  timeout = "30s"
//	}
//
//	logging {
//	  level  = "debug"
//	  format = "text"
//	}
//
// Expressions are evaluated with a context exposing cpu.count, the host's
// logical CPU count, so worker counts can scale with the machine.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/coot/tasty"
)

// Config is the effective run configuration after parsing and validation.
type Config struct {
	Workers   int
	Timeout   *tasty.Timeout
	LogLevel  string
	LogFormat string
}

// Default returns the configuration used when no file is given: default
// worker count, no timeout, info-level text logs.
func Default() *Config {
	return &Config{
		Workers:   tasty.DefaultWorkers(),
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Options converts the configuration into run options for tasty.Launch.
func (c *Config) Options() tasty.Options {
	return tasty.Options{
		Workers: c.Workers,
		Timeout: c.Timeout,
	}
}

// file mirrors the HCL document structure for gohcl decoding.
type file struct {
	Run     *runBlock     `hcl:"run,block"`
	Logging *loggingBlock `hcl:"logging,block"`
}

type runBlock struct {
	Workers *int    `hcl:"workers,optional"`
	Timeout *string `hcl:"timeout,optional"`
}

type loggingBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

// LoadFile parses one HCL config file and returns the effective
// configuration, with defaults filled in for anything the file omits.
func LoadFile(path string) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", path, diags)
	}
	return decode(hclFile.Body)
}

// LoadBytes parses an in-memory HCL document; filename is used in
// diagnostics only.
func LoadBytes(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", filename, diags)
	}
	return decode(hclFile.Body)
}

func decode(body hcl.Body) (*Config, error) {
	var f file
	if diags := gohcl.DecodeBody(body, evalContext(), &f); diags.HasErrors() {
		return nil, diags
	}

	cfg := Default()
	if f.Run != nil {
		if f.Run.Workers != nil {
			if *f.Run.Workers < 1 {
				return nil, fmt.Errorf("run.workers must be positive, got %d", *f.Run.Workers)
			}
			cfg.Workers = *f.Run.Workers
		}
		if f.Run.Timeout != nil {
			d, err := time.ParseDuration(*f.Run.Timeout)
			if err != nil {
				return nil, fmt.Errorf("run.timeout: %w", err)
			}
			if d <= 0 {
				return nil, fmt.Errorf("run.timeout must be positive, got %q", *f.Run.Timeout)
			}
			cfg.Timeout = &tasty.Timeout{Duration: d, Label: *f.Run.Timeout}
		}
	}
	if f.Logging != nil {
		if f.Logging.Level != nil {
			switch *f.Logging.Level {
			case "debug", "info", "warn", "error":
				cfg.LogLevel = *f.Logging.Level
			default:
				return nil, fmt.Errorf("logging.level must be 'debug', 'info', 'warn' or 'error', got %q", *f.Logging.Level)
			}
		}
		if f.Logging.Format != nil {
			switch *f.Logging.Format {
			case "text", "json":
				cfg.LogFormat = *f.Logging.Format
			default:
				return nil, fmt.Errorf("logging.format must be 'text' or 'json', got %q", *f.Logging.Format)
			}
		}
	}
	return cfg, nil
}

// evalContext exposes host facts to configuration expressions.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"cpu": cty.ObjectVal(map[string]cty.Value{
				"count": cty.NumberIntVal(int64(runtime.NumCPU())),
			}),
		},
	}
}
