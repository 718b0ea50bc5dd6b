package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/dirauth/internal/flagx"
)

var serverFlags = []string{
	"-a", "-d", "-driver", "-s", "-t", "-r", "-f", "-strict-email", "-allow-register",
	"-l", "-ldap-bind-dn", "-ldap-bind-password", "-ldap-base", "-ldap-search", "-log-level",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string                  gRPC bind address (e.g. ":50051")
//	-d string                  database DSN
//	-driver string             database driver: postgres or sqlite
//	-s string                  JWT HMAC secret key
//	-t int                     access token validity, minutes
//	-r int                     refresh token validity, minutes
//	-f string                  fallback login method ("" or "local")
//	-strict-email              require the email match to be the same account
//	-allow-register            accept local account registration
//	-l string                  LDAP server URL
//	-ldap-bind-dn string       LDAP service bind DN
//	-ldap-bind-password string LDAP service bind password
//	-ldap-base string          LDAP search base
//	-ldap-search string        comma-separated search attributes (e.g. "uid,mail")
//	-log-level string          debug, info, warn or error
//
// Duration flags are whole minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver (postgres, sqlite)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidity := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")
	fs.StringVar(&config.FallbackMethod, "f", config.FallbackMethod, "fallback login method")
	fs.BoolVar(&config.ReconcileStrictEmail, "strict-email", config.ReconcileStrictEmail, "require the email match to be the same account")
	fs.BoolVar(&config.AllowRegistration, "allow-register", config.AllowRegistration, "accept local account registration")
	fs.StringVar(&config.LDAP.ServerURL, "l", config.LDAP.ServerURL, "LDAP server URL")
	fs.StringVar(&config.LDAP.BindDN, "ldap-bind-dn", config.LDAP.BindDN, "LDAP bind DN")
	fs.StringVar(&config.LDAP.BindPassword, "ldap-bind-password", config.LDAP.BindPassword, "LDAP bind password")
	fs.StringVar(&config.LDAP.SearchBase, "ldap-base", config.LDAP.SearchBase, "LDAP search base")
	searchProperties := fs.String("ldap-search", strings.Join(config.LDAP.SearchProperties, ","), "LDAP search attributes")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidity) * time.Minute
	config.LDAP.SearchProperties = splitList(*searchProperties)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
