package cli

import (
	"os"
	"strings"

	envparse "github.com/caarlos0/env/v11"
)

// varsEnv describes inline config overrides passed via env.
type varsEnv struct {
	// Vars is a k=v,k2=v2 list from EE_VARS.
	Vars string `env:"EE_VARS"`
}

// parseEnv fills target from EE_* env vars via caarlos0/env.
func parseEnv(target interface{}) error {
	return envparse.Parse(target)
}

// envPresent reports whether a non-empty env var exists.
func envPresent(key string) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	return strings.TrimSpace(val) != ""
}
