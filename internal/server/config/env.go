package config

import (
	"strconv"
	"time"
)

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// parseEnv applies the environment variables the server has always honoured.
//
//	PASSWORD_SECRET              token signing secret
//	JWT_TOKEN_LIFETIME_MINUTES   bearer token lifetime, minutes
//	REGISTRATION_ENABLED         "1" opens self-registration
//	DATABASE_DSN                 PostgreSQL DSN
//	SMTP_HOST / SMTP_PASSWORD    outbound mail
func parseEnv(config *Config, lookup lookupFunc) {
	if v, ok := lookup("PASSWORD_SECRET"); ok {
		config.SecretKey = v
	}
	if v, ok := lookup("JWT_TOKEN_LIFETIME_MINUTES"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.BearerTokenLifetime = time.Duration(n) * time.Minute
		}
	}
	if v, ok := lookup("REGISTRATION_ENABLED"); ok {
		config.RegistrationEnabled = v == "1"
	}
	if v, ok := lookup("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := lookup("SMTP_HOST"); ok {
		config.SMTPHost = v
	}
	if v, ok := lookup("SMTP_PASSWORD"); ok {
		config.SMTPPassword = v
	}
}
