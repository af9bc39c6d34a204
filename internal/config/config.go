// Package config provides configuration management for debugger-mcp-server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/fileutil"
)

// Config represents the service configuration.
type Config struct {
	Service  ServiceConfig  `toml:"service"`
	MCP      MCPConfig      `toml:"mcp"`
	Session  SessionConfig  `toml:"session"`
	Driver   DriverConfig   `toml:"driver"`
	Symbols  SymbolsConfig  `toml:"symbols"`
	AI       AIConfig       `toml:"ai"`
	Logging  LoggingConfig  `toml:"logging"`
	Security SecurityConfig `toml:"security"`
}

// ServiceConfig contains service-level settings.
type ServiceConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	DataDir         string `toml:"data_dir"`
	DumpStorageDir  string `toml:"dump_storage_dir"`
	PIDFile         string `toml:"pid_file"`
	ShutdownTimeout int    `toml:"shutdown_timeout_seconds"`
}

// MCPConfig contains MCP transport settings.
type MCPConfig struct {
	StdioEnabled bool `toml:"stdio_enabled"`
	HTTPEnabled  bool `toml:"http_enabled"`
}

// SessionConfig contains session manager quota/eviction settings.
type SessionConfig struct {
	MaxSessionsPerOwner  int `toml:"max_sessions_per_owner"`
	MaxSessionsTotal     int `toml:"max_sessions_total"`
	InactivityTimeoutMin int `toml:"inactivity_timeout_minutes"`
	SweepIntervalSec     int `toml:"sweep_interval_seconds"`
	CommandTimeoutSec    int `toml:"command_timeout_seconds"`
}

// DriverConfig contains debugger-driver settings.
type DriverConfig struct {
	Backend           string `toml:"backend"` // "auto", "windbg", "lldb"
	ExecutablePath    string `toml:"executable_path"`
	StartupTimeoutSec int    `toml:"startup_timeout_seconds"`
	WalkerExecutable  string `toml:"walker_executable_path"`
}

// SymbolsConfig contains symbol/debug-info search path settings.
type SymbolsConfig struct {
	AdditionalPaths StringSlice `toml:"additional_paths"`
	DebugInfoRoots  StringSlice `toml:"debug_info_roots"`
	WatchCacheDir   bool        `toml:"watch_cache_dir"`
}

// AIConfig contains optional AI-analysis settings.
type AIConfig struct {
	Enabled       bool    `toml:"enabled"`
	Provider      string  `toml:"provider"`
	APIKey        string  `toml:"api_key"`
	Model         string  `toml:"model"`
	MaxIterations int     `toml:"max_iterations"`
	Temperature   float64 `toml:"temperature"`
	TimeoutSec    int     `toml:"timeout_seconds"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string      `toml:"level"`
	Format     string      `toml:"format"`
	Output     StringSlice `toml:"output"`
	TimeFormat string      `toml:"time_format"`
	MaxSizeMB  int         `toml:"max_size_mb"`
	MaxBackups int         `toml:"max_backups"`
}

// StringSlice is a custom type that can unmarshal from either a string or []string.
type StringSlice []string

// UnmarshalTOML implements toml.Unmarshaler for flexible config parsing.
func (s *StringSlice) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		*s = []string{v}
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected string in array, got %T", item)
			}
			result[i] = str
		}
		*s = result
	default:
		return fmt.Errorf("expected string or array, got %T", data)
	}
	return nil
}

// SecurityConfig contains security settings for the façade's HTTP transport.
type SecurityConfig struct {
	TLSEnabled  bool   `toml:"tls_enabled"`
	TLSCertFile string `toml:"tls_cert_file"`
	TLSKeyFile  string `toml:"tls_key_file"`
	APIKey      string `toml:"api_key"`
}

// DefaultConfig returns the default configuration with all values set.
// DEBUGGER_MCP_HOST and DEBUGGER_MCP_PORT override the HTTP transport defaults.
func DefaultConfig() *Config {
	dataDir := DefaultDataDir()

	host := "127.0.0.1"
	if envHost := os.Getenv("DEBUGGER_MCP_HOST"); envHost != "" {
		host = envHost
	}

	port := 8730
	if envPort := os.Getenv("DEBUGGER_MCP_PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			port = p
		}
	}

	return &Config{
		Service: ServiceConfig{
			Host:            host,
			Port:            port,
			DataDir:         dataDir,
			DumpStorageDir:  filepath.Join(dataDir, "dumps"),
			PIDFile:         filepath.Join(dataDir, "debugger-mcp.pid"),
			ShutdownTimeout: 30,
		},
		MCP: MCPConfig{
			StdioEnabled: true,
			HTTPEnabled:  false,
		},
		Session: SessionConfig{
			MaxSessionsPerOwner:  10,
			MaxSessionsTotal:     50,
			InactivityTimeoutMin: 24 * 60,
			SweepIntervalSec:     300,
			CommandTimeoutSec:    120,
		},
		Driver: DriverConfig{
			Backend:           "auto",
			StartupTimeoutSec: 30,
		},
		Symbols: SymbolsConfig{
			WatchCacheDir: true,
		},
		AI: AIConfig{
			Enabled:       false,
			Provider:      "gemini",
			APIKey:        os.Getenv("GEMINI_API_KEY"),
			Model:         "gemini-2.0-flash",
			MaxIterations: 6,
			Temperature:   0.2,
			TimeoutSec:    60,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     StringSlice{"file"},
			TimeFormat: "15:04:05.000",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
		Security: SecurityConfig{
			TLSEnabled: false,
		},
	}
}

// DefaultDataDir returns the default data directory based on OS.
func DefaultDataDir() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "debugger-mcp")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Roaming", "debugger-mcp")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "debugger-mcp")
	default: // linux and others
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, "debugger-mcp")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".debugger-mcp")
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.toml")
}

// Load loads configuration from a file, merging with defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.expandPaths()
	return cfg, nil
}

// LoadFromString loads configuration from a TOML string, merging with defaults.
func LoadFromString(tomlStr string) (*Config, error) {
	cfg := DefaultConfig()

	expanded := os.ExpandEnv(tomlStr)

	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parse config string: %w", err)
	}

	cfg.expandPaths()
	return cfg, nil
}

// expandPaths expands tilde in path fields.
func (c *Config) expandPaths() {
	home, _ := os.UserHomeDir()

	expandTilde := func(path string) string {
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(home, path[2:])
		}
		return path
	}

	c.Service.DataDir = expandTilde(c.Service.DataDir)
	c.Service.DumpStorageDir = expandTilde(c.Service.DumpStorageDir)
	c.Service.PIDFile = expandTilde(c.Service.PIDFile)
	c.Security.TLSCertFile = expandTilde(c.Security.TLSCertFile)
	c.Security.TLSKeyFile = expandTilde(c.Security.TLSKeyFile)
}

// Save saves the configuration to a file in TOML format.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return nil
}

// WriteExampleConfig writes an example config file with comments.
func WriteExampleConfig(path string) error {
	example := `# debugger-mcp-server configuration file
# All values shown are defaults - uncomment and modify as needed

[service]
host = "127.0.0.1"
port = 8730
# data_dir = "~/.debugger-mcp"
# dump_storage_dir = "~/.debugger-mcp/dumps"
shutdown_timeout_seconds = 30

[mcp]
stdio_enabled = true
http_enabled = false

[session]
max_sessions_per_owner = 10
max_sessions_total = 50
inactivity_timeout_minutes = 1440
sweep_interval_seconds = 300
command_timeout_seconds = 120

[driver]
# backend: "auto", "windbg", "lldb"
backend = "auto"
startup_timeout_seconds = 30

[symbols]
additional_paths = []
debug_info_roots = []
watch_cache_dir = true

[ai]
enabled = false
provider = "gemini"
api_key = "${GEMINI_API_KEY}"
model = "gemini-2.0-flash"
max_iterations = 6
temperature = 0.2
timeout_seconds = 60

[logging]
level = "info"
format = "text"
output = ["file"]
time_format = "15:04:05.000"
max_size_mb = 100
max_backups = 5

[security]
tls_enabled = false
# tls_cert_file = "/path/to/cert.pem"
# tls_key_file = "/path/to/key.pem"
api_key = ""
`

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	return os.WriteFile(path, []byte(example), 0644)
}

// Address returns the full address string for the HTTP transport.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.Port)
}

// DumpDir returns the per-owner dump storage directory.
func (c *Config) DumpDir(owner string) string {
	return filepath.Join(c.Service.DumpStorageDir, owner)
}

// SymbolCacheDir returns a dump's private symbol cache directory.
func (c *Config) SymbolCacheDir(owner, dumpID string) string {
	return filepath.Join(c.DumpDir(owner), ".symbols_"+dumpID)
}

// SessionStorageDir returns the per-owner transient session storage directory.
func (c *Config) SessionStorageDir(owner string) string {
	return filepath.Join(c.Service.DataDir, "sessions", owner)
}

// CrashIndexDir returns the owner's crash-similarity index directory.
func (c *Config) CrashIndexDir(owner string) string {
	return filepath.Join(c.SessionStorageDir(owner), ".crash_index")
}

// LogPath returns the path to the service log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Service.DataDir, "logs", "debugger-mcp.log")
}

// PIDPath returns the path to the PID file.
func (c *Config) PIDPath() string {
	if c.Service.PIDFile != "" {
		return c.Service.PIDFile
	}
	return filepath.Join(c.Service.DataDir, "debugger-mcp.pid")
}

// EnsureDirectories creates all directories the service needs at startup.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Service.DataDir,
		c.Service.DumpStorageDir,
		filepath.Dir(c.LogPath()),
	}

	for _, dir := range dirs {
		if err := fileutil.EnsureDir(dir); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Service.Port)
	}

	if c.Service.ShutdownTimeout < 1 {
		return fmt.Errorf("shutdown_timeout_seconds must be at least 1")
	}

	if c.Session.MaxSessionsPerOwner < 1 {
		return fmt.Errorf("max_sessions_per_owner must be at least 1")
	}

	if c.Session.MaxSessionsTotal < c.Session.MaxSessionsPerOwner {
		return fmt.Errorf("max_sessions_total must be >= max_sessions_per_owner")
	}

	if c.AI.Temperature < 0 || c.AI.Temperature > 1 {
		return fmt.Errorf("ai.temperature must be between 0.0 and 1.0")
	}

	switch c.Driver.Backend {
	case "auto", "windbg", "lldb":
	default:
		return fmt.Errorf("invalid driver.backend: %q", c.Driver.Backend)
	}

	if c.Security.TLSEnabled {
		if c.Security.TLSCertFile == "" || c.Security.TLSKeyFile == "" {
			return fmt.Errorf("TLS enabled but cert/key files not specified")
		}
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c

	clone.Symbols.AdditionalPaths = append(StringSlice{}, c.Symbols.AdditionalPaths...)
	clone.Symbols.DebugInfoRoots = append(StringSlice{}, c.Symbols.DebugInfoRoots...)
	clone.Logging.Output = append(StringSlice{}, c.Logging.Output...)

	return &clone
}
