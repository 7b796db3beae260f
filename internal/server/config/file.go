package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Durations accept both
// "15m" style strings and integer nanoseconds (timex.Duration).
//
// Only fields present in the file override the current values.
type FileConfig struct {
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	MetricsAddr                 *string         `json:"metrics_addr" yaml:"metrics_addr"`
	DatabaseDSN                 *string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                   *string         `json:"secret_key" yaml:"secret_key"`
	LogLevel                    *string         `json:"log_level" yaml:"log_level"`
	AppURL                      *string         `json:"app_url" yaml:"app_url"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDays    *int            `json:"refresh_token_validity_days" yaml:"refresh_token_validity_days"`
	RedisURL                    *string         `json:"redis_url" yaml:"redis_url"`
	AMQPURL                     *string         `json:"amqp_url" yaml:"amqp_url"`
	MailQueue                   *string         `json:"mail_queue" yaml:"mail_queue"`
	MailFrom                    *string         `json:"mail_from" yaml:"mail_from"`
	MailWorkers                 *int            `json:"mail_workers" yaml:"mail_workers"`
	MailBuffer                  *int            `json:"mail_buffer" yaml:"mail_buffer"`
	GoogleClientID              *string         `json:"google_client_id" yaml:"google_client_id"`
	GoogleClientSecret          *string         `json:"google_client_secret" yaml:"google_client_secret"`
	GoogleRedirectURL           *string         `json:"google_redirect_url" yaml:"google_redirect_url"`
	OAuthStateTTL               *timex.Duration `json:"oauth_state_ttl" yaml:"oauth_state_ttl"`
	OTelEndpoint                *string         `json:"otel_endpoint" yaml:"otel_endpoint"`
	AWSSecretID                 *string         `json:"aws_secret_id" yaml:"aws_secret_id"`
	AWSRegion                   *string         `json:"aws_region" yaml:"aws_region"`
	AWSEndpoint                 *string         `json:"aws_endpoint" yaml:"aws_endpoint"`
}

// parseFile loads the file passed with -c/-config into config. The decoder
// is picked by extension: .yaml/.yml use YAML, everything else JSON.
// If the file cannot be read or decoded, the function panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()

	// nothing to load
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.AppURL, c.AppURL)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDays != nil {
		config.RefreshTokenValidityDays = *c.RefreshTokenValidityDays
	}
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.AMQPURL, c.AMQPURL)
	setString(&config.MailQueue, c.MailQueue)
	setString(&config.MailFrom, c.MailFrom)
	if c.MailWorkers != nil {
		config.MailWorkers = *c.MailWorkers
	}
	if c.MailBuffer != nil {
		config.MailBuffer = *c.MailBuffer
	}
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleClientSecret, c.GoogleClientSecret)
	setString(&config.GoogleRedirectURL, c.GoogleRedirectURL)
	if c.OAuthStateTTL != nil {
		config.OAuthStateTTL = c.OAuthStateTTL.Duration
	}
	setString(&config.OTelEndpoint, c.OTelEndpoint)
	setString(&config.AWSSecretID, c.AWSSecretID)
	setString(&config.AWSRegion, c.AWSRegion)
	setString(&config.AWSEndpoint, c.AWSEndpoint)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
