package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envPrefix namespaces every variable, e.g. DIRAUTH_FALLBACK_METHOD or
// DIRAUTH_LDAP_BIND_DN.
const envPrefix = "DIRAUTH_"

// parseEnv overlays values from environment variables. Unset variables leave
// the current value untouched.
func parseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
