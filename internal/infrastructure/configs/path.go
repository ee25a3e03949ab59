package configs

import (
	"flag"
	"os"

	"github.com/hilthontt/kickroom/internal/infrastructure/env"
)

var candidates = []string{
	"./config.yaml",
	"./config.yml",
	"./tmp/config.yaml",
	"../../config.yaml", // keep for local dev
	"/etc/kickroom/config.yaml",
	"/app/config.yaml", // common in Docker
}

// DetermineConfigPath resolves the config file from --config, KICKROOM_CONFIG
// or a list of well-known locations. An empty result means defaults only.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	return findConfigPath(configPath, candidates)
}

func findConfigPath(explicit string, candidates []string) string {
	if explicit != "" {
		return explicit
	}

	if fromEnv := env.GetString("KICKROOM_CONFIG", ""); fromEnv != "" {
		return fromEnv
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
