/*
Copyright 2024 Csveer Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT          = "5001"
	DEFAULT_UPLOAD_BUCKET = "pending-csv-files"
	DEFAULT_AWS_REGION    = "us-east-1"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"CSVEER_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"CSVEER_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"CSVEER_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"CSVEER_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"CSVEER_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"CSVEER_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"CSVEER_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"CSVEER_REDIS_DNS"`
}

type AwsConfig struct {
	Region          string `json:"region" envconfig:"CSVEER_AWS_REGION"`
	AccessKeyId     string `json:"access_key_id" envconfig:"CSVEER_AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `json:"secret_access_key" envconfig:"CSVEER_AWS_SECRET_ACCESS_KEY"`
	// Endpoint points every client at a local stack when set.
	Endpoint string `json:"endpoint" envconfig:"CSVEER_AWS_ENDPOINT"`
}

type StorageConfig struct {
	Bucket       string `json:"bucket" envconfig:"CSVEER_STORAGE_BUCKET"`
	UsePathStyle bool   `json:"use_path_style" envconfig:"CSVEER_STORAGE_USE_PATH_STYLE"`
}

type IngestionConfig struct {
	QueueUrl            string `json:"queue_url" envconfig:"CSVEER_INGESTION_QUEUE_URL"`
	WaitTimeSeconds     int32  `json:"wait_time_seconds" envconfig:"CSVEER_INGESTION_WAIT_TIME_SECONDS"`
	MaxMessages         int32  `json:"max_messages" envconfig:"CSVEER_INGESTION_MAX_MESSAGES"`
	ErrorBackoffSeconds int    `json:"error_backoff_seconds" envconfig:"CSVEER_INGESTION_ERROR_BACKOFF_SECONDS"`
}

type DispatchConfig struct {
	QueueUrl                 string `json:"queue_url" envconfig:"CSVEER_DISPATCH_QUEUE_URL"`
	PublishMaxElapsedSeconds int    `json:"publish_max_elapsed_seconds" envconfig:"CSVEER_DISPATCH_PUBLISH_MAX_ELAPSED_SECONDS"`
	BreakerFailureThreshold  uint32 `json:"breaker_failure_threshold" envconfig:"CSVEER_DISPATCH_BREAKER_FAILURE_THRESHOLD"`
	BreakerTimeoutSeconds    int    `json:"breaker_timeout_seconds" envconfig:"CSVEER_DISPATCH_BREAKER_TIMEOUT_SECONDS"`
}

type RecoveryConfig struct {
	PollIntervalSeconds   int `json:"poll_interval_seconds" envconfig:"CSVEER_RECOVERY_POLL_INTERVAL_SECONDS"`
	StaleThresholdSeconds int `json:"stale_threshold_seconds" envconfig:"CSVEER_RECOVERY_STALE_THRESHOLD_SECONDS"`
	MaxRecoveryAttempts   int `json:"max_recovery_attempts" envconfig:"CSVEER_RECOVERY_MAX_ATTEMPTS"`
	BatchSize             int `json:"batch_size" envconfig:"CSVEER_RECOVERY_BATCH_SIZE"`
	Workers               int `json:"workers" envconfig:"CSVEER_RECOVERY_WORKERS"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"CSVEER_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"CSVEER_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"CSVEER_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"CSVEER_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type OtlpExporter struct {
	Protocol string `json:"protocol" envconfig:"CSVEER_OTEL_EXPORTER_OTLP_PROTOCOL"`
	Endpoint string `json:"endpoint" envconfig:"CSVEER_OTEL_EXPORTER_OTLP_ENDPOINT"`
	Headers  string `json:"headers" envconfig:"CSVEER_OTEL_EXPORTER_OTLP_HEADERS"`
}

type Configuration struct {
	ProjectName             string           `json:"project_name" envconfig:"CSVEER_PROJECT_NAME"`
	Server                  ServerConfig     `json:"server"`
	DataSource              DataSourceConfig `json:"data_source"`
	Redis                   RedisConfig      `json:"redis"`
	Aws                     AwsConfig        `json:"aws"`
	Storage                 StorageConfig    `json:"storage"`
	Ingestion               IngestionConfig  `json:"ingestion"`
	Dispatch                DispatchConfig   `json:"dispatch"`
	Recovery                RecoveryConfig   `json:"recovery"`
	ResolverCacheTTLSeconds int              `json:"resolver_cache_ttl_seconds" envconfig:"CSVEER_RESOLVER_CACHE_TTL_SECONDS"`
	Notification            Notification     `json:"notification"`
	RateLimit               RateLimitConfig  `json:"rate_limit"`
	EnableTelemetry         bool             `json:"enable_telemetry" envconfig:"CSVEER_ENABLE_TELEMETRY"`
	Otlp                    OtlpExporter     `json:"otlp"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("csveer", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called csveer.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Csveer Server"
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Ingestion.QueueUrl = strings.TrimSpace(cnf.Ingestion.QueueUrl)
	cnf.Dispatch.QueueUrl = strings.TrimSpace(cnf.Dispatch.QueueUrl)

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	if cnf.Ingestion.QueueUrl == "" {
		log.Println("Error: Ingestion queue URL is empty. It's a required field.")
		return errors.New("ingestion queue URL is required")
	}

	if cnf.Dispatch.QueueUrl == "" {
		log.Println("Error: Dispatch queue URL is empty. It's a required field.")
		return errors.New("dispatch queue URL is required")
	}

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Aws.Region == "" {
		cnf.Aws.Region = DEFAULT_AWS_REGION
	}
	if cnf.Storage.Bucket == "" {
		cnf.Storage.Bucket = DEFAULT_UPLOAD_BUCKET
	}

	// SQS caps long polling at 20 seconds and a batch at 10 messages.
	if cnf.Ingestion.WaitTimeSeconds <= 0 {
		cnf.Ingestion.WaitTimeSeconds = 10
	} else if cnf.Ingestion.WaitTimeSeconds > 20 {
		cnf.Ingestion.WaitTimeSeconds = 20
	}
	if cnf.Ingestion.MaxMessages <= 0 {
		cnf.Ingestion.MaxMessages = 1
	} else if cnf.Ingestion.MaxMessages > 10 {
		cnf.Ingestion.MaxMessages = 10
	}
	if cnf.Ingestion.ErrorBackoffSeconds <= 0 {
		cnf.Ingestion.ErrorBackoffSeconds = 5
	}

	if cnf.Dispatch.PublishMaxElapsedSeconds <= 0 {
		cnf.Dispatch.PublishMaxElapsedSeconds = 10
	}
	if cnf.Dispatch.BreakerFailureThreshold == 0 {
		cnf.Dispatch.BreakerFailureThreshold = 5
	}
	if cnf.Dispatch.BreakerTimeoutSeconds <= 0 {
		cnf.Dispatch.BreakerTimeoutSeconds = 30
	}

	if cnf.Recovery.PollIntervalSeconds <= 0 {
		cnf.Recovery.PollIntervalSeconds = 60
	}
	if cnf.Recovery.StaleThresholdSeconds <= 0 {
		cnf.Recovery.StaleThresholdSeconds = 300
	}
	if cnf.Recovery.MaxRecoveryAttempts <= 0 {
		cnf.Recovery.MaxRecoveryAttempts = 5
	}
	if cnf.Recovery.BatchSize <= 0 {
		cnf.Recovery.BatchSize = 100
	}
	if cnf.Recovery.Workers <= 0 {
		cnf.Recovery.Workers = 4
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// ResolverCacheTTL is zero when the resolver cache is disabled.
func (cnf *Configuration) ResolverCacheTTL() time.Duration {
	return time.Duration(cnf.ResolverCacheTTLSeconds) * time.Second
}

// SetOtlpExporterEnvs exports the OTLP settings as the variables the OpenTelemetry
// exporters read.
func SetOtlpExporterEnvs() error {
	cnf, err := Fetch()
	if err != nil {
		return err
	}
	envs := map[string]string{
		"OTEL_EXPORTER_OTLP_PROTOCOL": cnf.Otlp.Protocol,
		"OTEL_EXPORTER_OTLP_ENDPOINT": cnf.Otlp.Endpoint,
		"OTEL_EXPORTER_OTLP_HEADERS":  cnf.Otlp.Headers,
	}
	for key, value := range envs {
		if value == "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
