package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/diagnexus/internal/flagx"
	"github.com/dmitrijs2005/diagnexus/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations accept
// both "24h" style strings and integer nanoseconds. Pointer fields tell an
// absent key apart from an explicit zero value.
type JsonConfig struct {
	HTTPAddr string `json:"http_addr"`
	GRPCAddr string `json:"grpc_addr"`

	DatabaseDSN       string          `json:"database_dsn"`
	DBMaxOpenConns    *int            `json:"db_max_open_conns"`
	DBMaxIdleConns    *int            `json:"db_max_idle_conns"`
	DBConnMaxIdleTime *timex.Duration `json:"db_conn_max_idle_time"`

	SecretKey             string          `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	PasswordHashCost      *int            `json:"password_hash_cost"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3UsePathStyle *bool  `json:"s3_use_path_style"`
	S3UseSSE       *bool  `json:"s3_use_sse"`

	StorageRetryBase *timex.Duration `json:"storage_retry_base"`
	StorageRetryCap  *timex.Duration `json:"storage_retry_cap"`

	RedisAddr      string          `json:"redis_addr"`
	RedisPassword  string          `json:"redis_password"`
	RedisDB        *int            `json:"redis_db"`
	IdempotencyTTL *timex.Duration `json:"idempotency_ttl"`

	LogBackend string `json:"log_backend"`
	LogLevel   string `json:"log_level"`

	SeedDemoData  *bool  `json:"seed_demo_data"`
	MaxUploadSize *int64 `json:"max_upload_size"`
}

// parseJson overlays values from the JSON file named by -c/-config.
// Keys missing from the file leave the current values untouched.
// An unreadable or malformed file panics: the server must not start
// on a half-applied configuration.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setValue(&config.DBMaxOpenConns, c.DBMaxOpenConns)
	setValue(&config.DBMaxIdleConns, c.DBMaxIdleConns)
	if c.DBConnMaxIdleTime != nil {
		config.DBConnMaxIdleTime = c.DBConnMaxIdleTime.Duration
	}

	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	setValue(&config.PasswordHashCost, c.PasswordHashCost)

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setValue(&config.S3UsePathStyle, c.S3UsePathStyle)
	setValue(&config.S3UseSSE, c.S3UseSSE)

	if c.StorageRetryBase != nil {
		config.StorageRetryBase = c.StorageRetryBase.Duration
	}
	if c.StorageRetryCap != nil {
		config.StorageRetryCap = c.StorageRetryCap.Duration
	}

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setValue(&config.RedisDB, c.RedisDB)
	if c.IdempotencyTTL != nil {
		config.IdempotencyTTL = c.IdempotencyTTL.Duration
	}

	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogLevel, c.LogLevel)

	setValue(&config.SeedDemoData, c.SeedDemoData)
	setValue(&config.MaxUploadSize, c.MaxUploadSize)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setValue[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
