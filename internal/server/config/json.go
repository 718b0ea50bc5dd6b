package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/dirauth/internal/flagx"
	"github.com/dmitrijs2005/dirauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so they may be written as "15m" or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDriver               string         `json:"database_driver"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	FallbackMethod               *string        `json:"fallback_method"`
	ReconcileStrictEmail         *bool          `json:"reconcile_strict_email"`
	AllowRegistration            *bool          `json:"allow_registration"`
	LogLevel                     string         `json:"log_level"`
	LogFormat                    string         `json:"log_format"`
	LDAP                         *JsonLDAP      `json:"ldap"`
}

type JsonLDAP struct {
	ServerURL              string         `json:"server_url"`
	StartTLS               *bool          `json:"start_tls"`
	InsecureSkipVerify     *bool          `json:"insecure_skip_verify"`
	BindDN                 string         `json:"bind_dn"`
	BindPassword           string         `json:"bind_password"`
	SearchBase             string         `json:"search_base"`
	SearchProperties       []string       `json:"search_properties"`
	SearchFilterAdditional string         `json:"search_filter_additional"`
	UsernameAttribute      string         `json:"username_attribute"`
	EmailAttribute         string         `json:"email_attribute"`
	FullNameAttribute      string         `json:"full_name_attribute"`
	LowercaseUsername      *bool          `json:"lowercase_username"`
	Timeout                timex.Duration `json:"timeout"`
}

// parseJson overlays Config with the JSON file named by -c/-config. Only keys
// present in the file are applied. Read or decode failures panic, as the
// server cannot start with a config file it was told to use but cannot read.
func parseJson(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.FallbackMethod != nil {
		config.FallbackMethod = *c.FallbackMethod
	}
	if c.ReconcileStrictEmail != nil {
		config.ReconcileStrictEmail = *c.ReconcileStrictEmail
	}
	if c.AllowRegistration != nil {
		config.AllowRegistration = *c.AllowRegistration
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)

	if c.LDAP != nil {
		applyJsonLDAP(&config.LDAP, c.LDAP)
	}
}

func applyJsonLDAP(dst *LDAPConfig, src *JsonLDAP) {
	setString(&dst.ServerURL, src.ServerURL)
	setString(&dst.BindDN, src.BindDN)
	setString(&dst.BindPassword, src.BindPassword)
	setString(&dst.SearchBase, src.SearchBase)
	setString(&dst.SearchFilterAdditional, src.SearchFilterAdditional)
	setString(&dst.UsernameAttribute, src.UsernameAttribute)
	setString(&dst.EmailAttribute, src.EmailAttribute)
	setString(&dst.FullNameAttribute, src.FullNameAttribute)
	if len(src.SearchProperties) > 0 {
		dst.SearchProperties = src.SearchProperties
	}
	if src.StartTLS != nil {
		dst.StartTLS = *src.StartTLS
	}
	if src.InsecureSkipVerify != nil {
		dst.InsecureSkipVerify = *src.InsecureSkipVerify
	}
	if src.LowercaseUsername != nil {
		dst.LowercaseUsername = *src.LowercaseUsername
	}
	if src.Timeout.Duration != 0 {
		dst.Timeout = src.Timeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
