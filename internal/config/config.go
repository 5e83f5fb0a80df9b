package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type RuntimeConfig struct {
	Bind               string
	Port               string
	CdpURL             string
	Token              string
	StateDir           string
	Headless           bool
	ProfileDir         string
	ChromeBinary       string
	ChromeExtraFlags   string
	LogLevel           string
	Coverage           bool
	CoverageExpression string
	BlankURL           string
	WindowTimeout      time.Duration
	NavigateTimeout    time.Duration
	ActionTimeout      time.Duration
	ShutdownTimeout    time.Duration
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func envBoolOr(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envSecondsOr(key string, fallback time.Duration) time.Duration {
	n := envIntOr(key, -1)
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func homeDir() string {
	h, _ := os.UserHomeDir()
	return h
}

func (c *RuntimeConfig) ListenAddr() string {
	return c.Bind + ":" + c.Port
}

type FileConfig struct {
	Port               string `json:"port"`
	CdpURL             string `json:"cdpUrl,omitempty"`
	Token              string `json:"token,omitempty"`
	StateDir           string `json:"stateDir"`
	ProfileDir         string `json:"profileDir,omitempty"`
	Headless           *bool  `json:"headless,omitempty"`
	Coverage           *bool  `json:"coverage,omitempty"`
	CoverageExpression string `json:"coverageExpression,omitempty"`
	BlankURL           string `json:"blankUrl,omitempty"`
	WindowSec          int    `json:"windowSec,omitempty"`
	NavigateSec        int    `json:"navigateSec,omitempty"`
}

func defaultPath() string {
	return envOr("FOCUSD_CONFIG", filepath.Join(homeDir(), ".focusd", "config.json"))
}

// Load reads FOCUSD_* environment variables and overlays the JSON config
// file. Environment values win over the file.
func Load() *RuntimeConfig {
	cfg := &RuntimeConfig{
		Bind:               envOr("FOCUSD_BIND", "127.0.0.1"),
		Port:               envOr("FOCUSD_PORT", "9877"),
		CdpURL:             os.Getenv("CDP_URL"),
		Token:              os.Getenv("FOCUSD_TOKEN"),
		StateDir:           envOr("FOCUSD_STATE_DIR", filepath.Join(homeDir(), ".focusd")),
		Headless:           envBoolOr("FOCUSD_HEADLESS", true),
		ProfileDir:         os.Getenv("FOCUSD_PROFILE"),
		ChromeBinary:       os.Getenv("CHROME_BINARY"),
		ChromeExtraFlags:   os.Getenv("CHROME_FLAGS"),
		LogLevel:           envOr("FOCUSD_LOG_LEVEL", "info"),
		Coverage:           envBoolOr("FOCUSD_COVERAGE", false),
		CoverageExpression: os.Getenv("FOCUSD_COVERAGE_EXPR"),
		BlankURL:           envOr("FOCUSD_BLANK_URL", "about:blank"),
		WindowTimeout:      envSecondsOr("FOCUSD_WINDOW_TIMEOUT", 10*time.Second),
		NavigateTimeout:    envSecondsOr("FOCUSD_NAV_TIMEOUT", 30*time.Second),
		ActionTimeout:      15 * time.Second,
		ShutdownTimeout:    10 * time.Second,
	}

	if data, err := os.ReadFile(defaultPath()); err == nil {
		var fc FileConfig
		if err := json.Unmarshal(data, &fc); err == nil {
			applyFile(cfg, fc)
		}
	}
	if cfg.ProfileDir == "" {
		cfg.ProfileDir = filepath.Join(cfg.StateDir, "chrome-profile")
	}
	return cfg
}

func applyFile(cfg *RuntimeConfig, fc FileConfig) {
	if fc.Port != "" && os.Getenv("FOCUSD_PORT") == "" {
		cfg.Port = fc.Port
	}
	if fc.CdpURL != "" && os.Getenv("CDP_URL") == "" {
		cfg.CdpURL = fc.CdpURL
	}
	if fc.Token != "" && os.Getenv("FOCUSD_TOKEN") == "" {
		cfg.Token = fc.Token
	}
	if fc.StateDir != "" && os.Getenv("FOCUSD_STATE_DIR") == "" {
		cfg.StateDir = fc.StateDir
	}
	if fc.ProfileDir != "" && os.Getenv("FOCUSD_PROFILE") == "" {
		cfg.ProfileDir = fc.ProfileDir
	}
	if fc.Headless != nil && os.Getenv("FOCUSD_HEADLESS") == "" {
		cfg.Headless = *fc.Headless
	}
	if fc.Coverage != nil && os.Getenv("FOCUSD_COVERAGE") == "" {
		cfg.Coverage = *fc.Coverage
	}
	if fc.CoverageExpression != "" && os.Getenv("FOCUSD_COVERAGE_EXPR") == "" {
		cfg.CoverageExpression = fc.CoverageExpression
	}
	if fc.BlankURL != "" && os.Getenv("FOCUSD_BLANK_URL") == "" {
		cfg.BlankURL = fc.BlankURL
	}
	if fc.WindowSec > 0 && os.Getenv("FOCUSD_WINDOW_TIMEOUT") == "" {
		cfg.WindowTimeout = time.Duration(fc.WindowSec) * time.Second
	}
	if fc.NavigateSec > 0 && os.Getenv("FOCUSD_NAV_TIMEOUT") == "" {
		cfg.NavigateTimeout = time.Duration(fc.NavigateSec) * time.Second
	}
}

func DefaultFileConfig() FileConfig {
	h := true
	cov := false
	return FileConfig{
		Port:        "9877",
		StateDir:    filepath.Join(homeDir(), ".focusd"),
		Headless:    &h,
		Coverage:    &cov,
		BlankURL:    "about:blank",
		WindowSec:   10,
		NavigateSec: 30,
	}
}

func HandleConfigCommand(cfg *RuntimeConfig) {
	if len(os.Args) < 3 {
		fmt.Println("Usage: focusd config <command>")
		fmt.Println("Commands:")
		fmt.Println("  init    - Create default config file")
		fmt.Println("  show    - Show current configuration")
		return
	}

	switch os.Args[2] {
	case "init":
		configPath := defaultPath()

		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("Config file already exists at %s\n", configPath)
			fmt.Print("Overwrite? (y/N): ")
			var response string
			_, _ = fmt.Scanln(&response)
			if response != "y" && response != "Y" {
				return
			}
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			fmt.Printf("Error creating directory: %v\n", err)
			os.Exit(1)
		}

		data, _ := json.MarshalIndent(DefaultFileConfig(), "", "  ")
		if err := os.WriteFile(configPath, data, 0644); err != nil {
			fmt.Printf("Error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file created at %s\n", configPath)

	case "show":
		fmt.Println("Current configuration:")
		fmt.Printf("  Listen:     %s\n", cfg.ListenAddr())
		fmt.Printf("  CDP URL:    %s\n", cfg.CdpURL)
		fmt.Printf("  Token:      %s\n", MaskToken(cfg.Token))
		fmt.Printf("  State dir:  %s\n", cfg.StateDir)
		fmt.Printf("  Profile:    %s\n", cfg.ProfileDir)
		fmt.Printf("  Headless:   %v\n", cfg.Headless)
		fmt.Printf("  Coverage:   %v\n", cfg.Coverage)
		fmt.Printf("  Blank URL:  %s\n", cfg.BlankURL)
		fmt.Printf("  Timeouts:   window=%v navigate=%v\n", cfg.WindowTimeout, cfg.NavigateTimeout)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[2])
		os.Exit(1)
	}
}

func MaskToken(t string) string {
	if t == "" {
		return "(none)"
	}
	if len(t) <= 8 {
		return "***"
	}
	return t[:4] + "..." + t[len(t)-4:]
}
