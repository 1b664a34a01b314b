package config

import (
	"fmt"
	"os"
	"strings"
)

// Env variable names consulted for flag defaults.
const (
	EnvConfig      = "GGUFPUB_CONFIG"
	EnvProfile     = "GGUFPUB_PROFILE"
	EnvLogLevel    = "GGUFPUB_LOG_LEVEL"
	EnvLogFormat   = "GGUFPUB_LOG_FORMAT"
	EnvQuantizeBin = "GGUFPUB_QUANTIZE_BIN"
	EnvHubBin      = "GGUFPUB_HUB_BIN"
	EnvOutputDir   = "GGUFPUB_OUTPUT_DIR"
	EnvOwner       = "GGUFPUB_OWNER"
	EnvJobs        = "GGUFPUB_JOBS"
	EnvYes         = "GGUFPUB_YES"
)

// EnvStr returns the value of key or def when unset or empty.
func EnvStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvBool treats 1/true/yes (any case) as true.
func EnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	s := strings.ToLower(v)
	return s == "1" || s == "true" || s == "yes"
}

// EnvInt parses key as a decimal integer, falling back to def.
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		_, err := fmt.Sscanf(v, "%d", &n)
		if err == nil {
			return n
		}
	}
	return def
}

// FromEnv returns the overrides carried by GGUFPUB_* variables.
func FromEnv() Config {
	return Config{
		QuantizeBin: EnvStr(EnvQuantizeBin, ""),
		HubBin:      EnvStr(EnvHubBin, ""),
		OutputDir:   EnvStr(EnvOutputDir, ""),
		Owner:       EnvStr(EnvOwner, ""),
	}
}
