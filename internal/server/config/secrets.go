package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretGetter is the subset of the Secrets Manager client used here.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// secretPayload lists the keys read from the secret's JSON document.
type secretPayload struct {
	SecretKey          string `json:"secret_key"`
	DatabaseDSN        string `json:"database_dsn"`
	GoogleClientSecret string `json:"google_client_secret"`
	AMQPURL            string `json:"amqp_url"`
	RedisURL           string `json:"redis_url"`
}

// NewSecretsManagerClient builds a Secrets Manager client from the AWS fields
// of cfg. Static credentials and a custom endpoint are optional; without them
// the default AWS credential chain and endpoint resolution apply.
func NewSecretsManagerClient(ctx context.Context, cfg *Config) (*secretsmanager.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading aws config: %w", err)
	}

	return secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	}), nil
}

// ApplySecrets fetches cfg.AWSSecretID and overrides the sensitive fields
// present in it. It is a no-op when no secret id is configured.
func ApplySecrets(ctx context.Context, cfg *Config, client SecretGetter) error {
	if cfg.AWSSecretID == "" {
		return nil
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(cfg.AWSSecretID),
	})
	if err != nil {
		return fmt.Errorf("error fetching secret %s: %w", cfg.AWSSecretID, err)
	}

	var raw []byte
	switch {
	case out.SecretString != nil:
		raw = []byte(*out.SecretString)
	case len(out.SecretBinary) > 0:
		raw = out.SecretBinary
	default:
		return errors.New("secret has no payload")
	}

	var p secretPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("error parsing secret %s: %w", cfg.AWSSecretID, err)
	}

	overlay(&cfg.SecretKey, p.SecretKey)
	overlay(&cfg.DatabaseDSN, p.DatabaseDSN)
	overlay(&cfg.GoogleClientSecret, p.GoogleClientSecret)
	overlay(&cfg.AMQPURL, p.AMQPURL)
	overlay(&cfg.RedisURL, p.RedisURL)
	return nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
