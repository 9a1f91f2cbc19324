package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Suggest SuggestConfig `yaml:"suggest"`
	Backup  BackupConfig  `yaml:"backup"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"LISTKEEPER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"LISTKEEPER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"LISTKEEPER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"LISTKEEPER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"LISTKEEPER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"LISTKEEPER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// APIToken, when set, is required as a bearer token on /api routes.
	APIToken string `yaml:"api_token" env:"LISTKEEPER_API_TOKEN"`
	// AllowedOrigins lists websocket origin patterns, comma separated.
	// Empty accepts any origin.
	AllowedOrigins string `yaml:"allowed_origins" env:"LISTKEEPER_ALLOWED_ORIGINS"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s ServerConfig) OriginPatterns() []string {
	var out []string
	for _, p := range strings.Split(s.AllowedOrigins, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// StorageConfig locates the list artifact and the backup bookkeeping
// database.
type StorageConfig struct {
	DataPath string `yaml:"data_path" env:"LISTKEEPER_DATA_PATH" env-default:"lists.json"`
	DBPath   string `yaml:"db_path"   env:"LISTKEEPER_DB_PATH"   env-default:"listkeeper.db"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LISTKEEPER_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LISTKEEPER_LOG_FORMAT" env-default:"text"`
}

// SuggestConfig points at the item-parsing service. Suggestions are off
// when BaseURL is empty.
type SuggestConfig struct {
	BaseURL    string        `yaml:"base_url"    env:"LISTKEEPER_SUGGEST_URL"`
	APIKey     string        `yaml:"api_key"     env:"LISTKEEPER_SUGGEST_API_KEY"`
	Timeout    time.Duration `yaml:"timeout"     env:"LISTKEEPER_SUGGEST_TIMEOUT"     env-default:"15s"`
	RateLimit  int           `yaml:"rate_limit"  env:"LISTKEEPER_SUGGEST_RATE_LIMIT"  env-default:"10"`
	RateWindow time.Duration `yaml:"rate_window" env:"LISTKEEPER_SUGGEST_RATE_WINDOW" env-default:"1m"`
}

func (s SuggestConfig) Enabled() bool { return s.BaseURL != "" }

// BackupConfig holds off-site backup settings. Backups are off unless the
// bucket, both keys and a passphrase are set.
type BackupConfig struct {
	Endpoint      string `yaml:"endpoint"       env:"LISTKEEPER_BACKUP_S3_ENDPOINT"`
	Bucket        string `yaml:"bucket"         env:"LISTKEEPER_BACKUP_S3_BUCKET"`
	Region        string `yaml:"region"         env:"LISTKEEPER_BACKUP_S3_REGION"         env-default:"us-east-1"`
	AccessKey     string `yaml:"access_key"     env:"LISTKEEPER_BACKUP_S3_ACCESS_KEY"`
	SecretKey     string `yaml:"secret_key"     env:"LISTKEEPER_BACKUP_S3_SECRET_KEY"`
	Prefix        string `yaml:"prefix"         env:"LISTKEEPER_BACKUP_PREFIX"            env-default:"backups/"`
	Passphrase    string `yaml:"passphrase"     env:"LISTKEEPER_BACKUP_PASSPHRASE"`
	ScheduleHour  int    `yaml:"schedule_hour"  env:"LISTKEEPER_BACKUP_SCHEDULE_HOUR"     env-default:"3"`
	RetentionDays int    `yaml:"retention_days" env:"LISTKEEPER_BACKUP_RETENTION_DAYS"    env-default:"30"`
}

func (b BackupConfig) Enabled() bool {
	return b.Bucket != "" && b.AccessKey != "" && b.SecretKey != "" && b.Passphrase != ""
}
