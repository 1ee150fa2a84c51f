package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvJob         = "CSVVIZ_JOB"
	EnvLogLevel    = "CSVVIZ_LOG_LEVEL"
	EnvLogFormat   = "CSVVIZ_LOG_FORMAT"
	EnvSQLDSN      = "CSVVIZ_SQL_DSN"
	EnvS3Endpoint  = "S3_ENDPOINT"
	EnvS3Region    = "S3_REGION"
	EnvS3AccessKey = "S3_ACCESS_KEY"
	EnvS3SecretKey = "S3_SECRET_KEY"
	EnvPushgateway = "PUSHGATEWAY_URL"
	EnvDatadogAddr = "DD_AGENT_ADDR"
)

// Env resolves variables from the process environment first and then from
// dotenv files. Files never override the process environment.
type Env struct {
	file map[string]string
}

// LoadEnv reads the given dotenv files. With no arguments it reads ".env"
// when that file exists.
func LoadEnv(files ...string) (Env, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Env{}, nil
			}
			return Env{}, fmt.Errorf("config: %w", err)
		}
		files = []string{".env"}
	}
	m, err := godotenv.Read(files...)
	if err != nil {
		return Env{}, fmt.Errorf("config: read env files: %w", err)
	}
	return Env{file: m}, nil
}

// Lookup returns the value of key and whether it is set and non-empty.
func (e Env) Lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v, true
	}
	if v, ok := e.file[key]; ok && strings.TrimSpace(v) != "" {
		return v, true
	}
	return "", false
}

// ApplyEnv overlays environment settings onto j. Secrets are only taken from
// the environment when the job file leaves them empty; every other variable
// overrides the file.
func (e Env) ApplyEnv(j *Job) {
	set := func(dst *string, key string) {
		if v, ok := e.Lookup(key); ok {
			*dst = v
		}
	}
	fill := func(dst *string, key string) {
		if *dst == "" {
			set(dst, key)
		}
	}

	set(&j.Job, EnvJob)
	set(&j.Log.Level, EnvLogLevel)
	set(&j.Log.Format, EnvLogFormat)

	switch j.Source.Kind {
	case "s3":
		set(&j.Source.S3.Endpoint, EnvS3Endpoint)
		set(&j.Source.S3.Region, EnvS3Region)
		fill(&j.Source.S3.AccessKey, EnvS3AccessKey)
		fill(&j.Source.S3.SecretKey, EnvS3SecretKey)
	case "sql":
		fill(&j.Source.SQL.DSN, EnvSQLDSN)
	}

	if j.Metrics.Options == nil {
		j.Metrics.Options = Options{}
	}
	switch strings.ToLower(j.Metrics.Backend) {
	case "pushgateway":
		if v, ok := e.Lookup(EnvPushgateway); ok {
			j.Metrics.Options["url"] = v
		}
	case "datadog":
		if v, ok := e.Lookup(EnvDatadogAddr); ok {
			j.Metrics.Options["addr"] = v
		}
	}
}

// S3Credentials returns S3 connection settings from the environment, for
// callers that upload artifacts without a job-level S3 source.
func (e Env) S3Credentials() (endpoint, region, access, secret string) {
	endpoint, _ = e.Lookup(EnvS3Endpoint)
	region, _ = e.Lookup(EnvS3Region)
	access, _ = e.Lookup(EnvS3AccessKey)
	secret, _ = e.Lookup(EnvS3SecretKey)
	return endpoint, region, access, secret
}
