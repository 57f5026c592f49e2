// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves the runtime configuration: .env loading, MODE
// based endpoint selection, defaults, and validation of the server settings.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pdiddy/cabinet/internal/logging"
	"github.com/pdiddy/cabinet/pkg/types"
)

// ErrInvalidMode is returned for a MODE other than PROD or DEV.
var ErrInvalidMode = errors.New("invalid MODE")

// LoadDotEnv loads environment variables from path. A missing file is not an
// error. Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ModeURLs returns the default NER API and websocket base URLs for mode.
// An empty mode means PROD.
func ModeURLs(mode types.Mode) (apiURL, wsURL string, err error) {
	switch types.Mode(strings.ToUpper(string(mode))) {
	case types.ModeProd, "":
		return "http://127.0.0.1", "ws://127.0.0.1", nil
	case types.ModeDev:
		return "http://127.0.0.1:8000", "ws://127.0.0.1:8000", nil
	default:
		return "", "", fmt.Errorf("%w %q: must be %s or %s", ErrInvalidMode, mode, types.ModeProd, types.ModeDev)
	}
}

// ApplyDefaults fills unset fields of cfg. Endpoint URLs come from the mode.
// In DEV mode NO_PROXY is set so local calls bypass any proxy.
func ApplyDefaults(cfg *types.Config) error {
	if cfg.Mode == "" {
		cfg.Mode = types.ModeProd
	}
	cfg.Mode = types.Mode(strings.ToUpper(string(cfg.Mode)))

	apiURL, wsURL, err := ModeURLs(cfg.Mode)
	if err != nil {
		return err
	}
	if cfg.Mode == types.ModeDev {
		os.Setenv("NO_PROXY", "127.0.0.1")
	}

	if cfg.NER.APIURL == "" {
		cfg.NER.APIURL = apiURL
	}
	if cfg.NER.WSURL == "" {
		cfg.NER.WSURL = wsURL
	}
	if cfg.NER.Timeout <= 0 {
		cfg.NER.Timeout = 60 * time.Second
	}
	if cfg.NER.UserAgent == "" {
		cfg.NER.UserAgent = "cabinet/0.1"
	}
	if cfg.NER.Concurrency <= 0 {
		cfg.NER.Concurrency = 8
	}
	if cfg.NER.MaxRetries <= 0 {
		cfg.NER.MaxRetries = 5
	}

	if cfg.Knowledge.DataDir == "" {
		cfg.Knowledge.DataDir = "data"
	}
	if cfg.Knowledge.MaxResults <= 0 {
		cfg.Knowledge.MaxResults = 20
	}

	if cfg.MetaMap.Binary == "" {
		cfg.MetaMap.Binary = "metamap"
	}
	if cfg.MetaMap.StartupTimeout <= 0 {
		cfg.MetaMap.StartupTimeout = 60 * time.Second
	}
	if cfg.MetaMap.Workers <= 0 {
		cfg.MetaMap.Workers = 4
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = "127.0.0.1"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8000"
	}
	if cfg.Server.RateLimit <= 0 {
		cfg.Server.RateLimit = 3
	}
	if cfg.Server.RateBurst <= 0 {
		cfg.Server.RateBurst = 1000
	}

	if cfg.Generate.OutputDir == "" {
		cfg.Generate.OutputDir = cfg.Knowledge.DataDir
	}
	return nil
}

// ValidateServer checks the REST app settings and the log level.
func ValidateServer(cfg types.ServerConfig, logLevel string) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	if _, err := logging.ParseLevel(logLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if cfg.RateLimit <= 0 || cfg.RateBurst <= 0 {
		return fmt.Errorf("rate limit and burst must be positive, got %g and %d", cfg.RateLimit, cfg.RateBurst)
	}
	if cfg.ReloadInterval < 0 {
		return fmt.Errorf("reload interval must not be negative, got %v", cfg.ReloadInterval)
	}
	return nil
}

func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("port cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("port must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("port %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if address == "localhost" || address == "0.0.0.0" {
		return nil
	}

	if ip := net.ParseIP(address); ip == nil {
		return fmt.Errorf("address must be a valid IP address or 'localhost', got: %s", address)
	}

	return nil
}
