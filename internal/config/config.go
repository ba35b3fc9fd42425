// Package config holds the launch configuration for the server under test.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config describes how to launch the JMX MCP server and how long to wait
// for it. Zero values fall back to the defaults below at load time.
type Config struct {
	JavaBin  string            `json:"java_bin,omitempty"`
	JarPath  string            `json:"jar_path,omitempty"`
	HeapMax  string            `json:"heap_max,omitempty"`
	HeapMin  string            `json:"heap_min,omitempty"`
	Settle   string            `json:"settle,omitempty"`
	StopWait string            `json:"stop_wait,omitempty"`
	LogLevel string            `json:"log_level,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
}

func Default() *Config {
	return &Config{
		JavaBin:  "java",
		JarPath:  "target/jmx-mcp-server-1.0.0.jar",
		HeapMax:  "512m",
		HeapMin:  "256m",
		Settle:   "3s",
		StopWait: "5s",
		LogLevel: "info",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	return AtomicWriteFile(path, data, 0600)
}

// SettleInterval is the grace period after spawn before the first exchange.
func (c *Config) SettleInterval() (time.Duration, error) {
	return parseInterval("settle", c.Settle, 3*time.Second)
}

// StopTimeout bounds the wait for a graceful exit before a forced kill.
func (c *Config) StopTimeout() (time.Duration, error) {
	return parseInterval("stop_wait", c.StopWait, 5*time.Second)
}

func parseInterval(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return d, nil
}

// LaunchArgs returns the java argv (after the binary itself): bounded heap,
// the stdio Spring profile, and all startup logging suppressed so the
// output stream carries nothing but protocol lines.
func (c *Config) LaunchArgs() []string {
	return []string{
		"-Xmx" + c.HeapMax,
		"-Xms" + c.HeapMin,
		"-Dspring.profiles.active=stdio",
		"-Dspring.main.banner-mode=off",
		"-Dlogging.level.root=ERROR",
		"-Dspring.main.log-startup-info=false",
		"-jar", c.JarPath,
	}
}

var envVarPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// ResolveEnv resolves $VAR references in env values from the process environment.
func ResolveEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	resolved := make(map[string]string, len(env))
	for k, v := range env {
		resolved[k] = envVarPattern.ReplaceAllStringFunc(v, func(match string) string {
			return os.Getenv(match[1:]) // strip leading $
		})
	}
	return resolved
}
