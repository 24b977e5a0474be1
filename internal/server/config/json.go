package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Only keys present in the file
// override the current values.
type JsonConfig struct {
	EndpointAddrHTTP     *string         `json:"endpoint_addr_http"`
	EndpointAddrHealth   *string         `json:"endpoint_addr_health"`
	DatabaseDSN          *string         `json:"database_dsn"`
	SecretKey            *string         `json:"secret_key"`
	BearerTokenLifetime  *timex.Duration `json:"bearer_token_lifetime"`
	PurposeTokenLifetime *timex.Duration `json:"purpose_token_lifetime"`
	InviteLifetime       *timex.Duration `json:"invite_lifetime"`
	RegistrationEnabled  *bool           `json:"registration_enabled"`
	CollaboratorTimeout  *timex.Duration `json:"collaborator_timeout"`
	AppOrigin            *string         `json:"app_origin"`
	EmailWorkers         *int            `json:"email_workers"`
	EmailQueueSize       *int            `json:"email_queue_size"`
	SMTPHost             *string         `json:"smtp_host"`
	SMTPPort             *int            `json:"smtp_port"`
	SMTPUser             *string         `json:"smtp_user"`
	SMTPPassword         *string         `json:"smtp_password"`
	SMTPFrom             *string         `json:"smtp_from"`
	S3RootUser           *string         `json:"s3_root_user"`
	S3RootPassword       *string         `json:"s3_root_password"`
	S3Bucket             *string         `json:"s3_bucket"`
	S3Region             *string         `json:"s3_region"`
	S3BaseEndpoint       *string         `json:"s3_base_endpoint"`
	LogFile              *string         `json:"log_file"`
	LogLevel             *string         `json:"log_level"`
}

// parseJson overlays the JSON file at path onto config. An empty path is a
// no-op; an unreadable or invalid file panics, as misconfiguration must stop
// startup.
func parseJson(config *Config, path string) {
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

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrHealth, c.EndpointAddrHealth)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.BearerTokenLifetime, c.BearerTokenLifetime)
	setDuration(&config.PurposeTokenLifetime, c.PurposeTokenLifetime)
	setDuration(&config.InviteLifetime, c.InviteLifetime)
	if c.RegistrationEnabled != nil {
		config.RegistrationEnabled = *c.RegistrationEnabled
	}
	setDuration(&config.CollaboratorTimeout, c.CollaboratorTimeout)
	setString(&config.AppOrigin, c.AppOrigin)
	setInt(&config.EmailWorkers, c.EmailWorkers)
	setInt(&config.EmailQueueSize, c.EmailQueueSize)
	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogFile, c.LogFile)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
