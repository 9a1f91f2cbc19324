package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the loaded configuration. Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535 (got %d)", c.Server.Port)
	}
	if strings.TrimSpace(c.Storage.DataPath) == "" {
		return errors.New("storage.data_path is required")
	}
	if strings.TrimSpace(c.Storage.DBPath) == "" {
		return errors.New("storage.db_path is required")
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}

	if c.Suggest.Enabled() {
		u, err := url.Parse(c.Suggest.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("suggest.base_url must be an http(s) URL (got %q)", c.Suggest.BaseURL)
		}
		if c.Suggest.RateLimit < 1 {
			return fmt.Errorf("suggest.rate_limit must be >= 1 (got %d)", c.Suggest.RateLimit)
		}
		if c.Suggest.RateWindow <= 0 {
			return fmt.Errorf("suggest.rate_window must be > 0 (got %s)", c.Suggest.RateWindow)
		}
	}

	if err := c.Backup.validate(); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	return nil
}

func (b *BackupConfig) validate() error {
	if b.ScheduleHour < 0 || b.ScheduleHour > 23 {
		return fmt.Errorf("schedule_hour must be between 0 and 23 (got %d)", b.ScheduleHour)
	}
	if b.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be >= 1 (got %d)", b.RetentionDays)
	}
	// A bucket without credentials is almost certainly a mistake.
	if b.Bucket != "" && (b.AccessKey == "" || b.SecretKey == "") {
		return errors.New("bucket is set but access_key or secret_key is missing")
	}
	if b.Bucket != "" && b.Passphrase == "" {
		return errors.New("bucket is set but passphrase is missing")
	}
	return nil
}
