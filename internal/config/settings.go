package config

import (
	"errors"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const defaultDaemonAddress = "127.0.0.1:7433"

const (
	defaultDebounceWindowMs = 100
	defaultGraceWindowMs    = 2000
)

type Config struct {
	Daemon  DaemonConfig  `toml:"daemon"`
	Monitor MonitorConfig `toml:"monitor"`
	Logging LoggingConfig `toml:"logging"`
}

type DaemonConfig struct {
	Address string `toml:"address"`
}

type MonitorConfig struct {
	TranscriptRoot   string `toml:"transcript_root"`
	DebounceWindowMs int    `toml:"debounce_window_ms"`
	GraceWindowMs    int    `toml:"grace_window_ms"`
	StateDBPath      string `toml:"state_db_path"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

func DefaultConfig() Config {
	return Config{
		Daemon: DaemonConfig{
			Address: defaultDaemonAddress,
		},
		Monitor: MonitorConfig{
			DebounceWindowMs: defaultDebounceWindowMs,
			GraceWindowMs:    defaultGraceWindowMs,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFromPath(path)
}

func (c Config) DaemonAddress() string {
	addr := strings.TrimSpace(c.Daemon.Address)
	if addr == "" {
		return defaultDaemonAddress
	}
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimRight(addr, "/")
	if addr == "" {
		return defaultDaemonAddress
	}
	return addr
}

func (c Config) DaemonBaseURL() string {
	return "http://" + c.DaemonAddress()
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) TranscriptRoot() (string, error) {
	root := strings.TrimSpace(c.Monitor.TranscriptRoot)
	if root == "" {
		return DefaultTranscriptRoot()
	}
	if strings.HasPrefix(root, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return home + root[1:], nil
	}
	return root, nil
}

func (c Config) DebounceWindow() time.Duration {
	ms := c.Monitor.DebounceWindowMs
	if ms <= 0 {
		ms = defaultDebounceWindowMs
	}
	return time.Duration(ms) * time.Millisecond
}

func (c Config) GraceWindow() time.Duration {
	ms := c.Monitor.GraceWindowMs
	if ms <= 0 {
		ms = defaultGraceWindowMs
	}
	return time.Duration(ms) * time.Millisecond
}

func (c Config) StateDB() (string, error) {
	path := strings.TrimSpace(c.Monitor.StateDBPath)
	if path == "" {
		return StateDBPath()
	}
	return path, nil
}

func loadFromPath(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}
