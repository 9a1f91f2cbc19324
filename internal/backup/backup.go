package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/listkeeper/internal/model"
	"github.com/dukerupert/listkeeper/internal/store"
)

var (
	ErrNotConfigured  = errors.New("backup not configured")
	ErrBackupNotFound = errors.New("backup not found")
	ErrInProgress     = errors.New("backup already in progress")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Target is what gets backed up and restored.
type Target interface {
	// Snapshot returns the current artifact bytes and how many lists they hold.
	Snapshot(ctx context.Context) ([]byte, int, error)
	// Restore validates data as an artifact, makes it current and returns
	// how many lists it holds. Invalid data leaves the current state alone.
	Restore(ctx context.Context, data []byte) (int, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Config holds backup manager configuration.
type Config struct {
	S3            S3Config
	Passphrase    string
	ScheduleHour  int
	RetentionDays int
	// Prefix is prepended to every object key.
	Prefix string
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Manager uploads encrypted copies of the list artifact to S3-compatible
// storage on a daily schedule or on demand.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback
	logger   *slog.Logger
	now      func() time.Time

	backups *store.BackupStore
	target  Target
	client  s3Client

	// run serializes backups and restores.
	run     sync.Mutex
	lastDay string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. It is disabled unless the S3
// bucket, both keys and a passphrase are configured.
func NewManager(cfg Config, bs *store.BackupStore, target Target, logger *slog.Logger, callback StatusCallback) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "backups/"
	}
	m := &Manager{
		cfg:      cfg,
		backups:  bs,
		target:   target,
		callback: callback,
		logger:   logger.With("component", "backup"),
		now:      func() time.Time { return time.Now().UTC() },
		status:   Status{State: StateDisabled},
	}

	if cfg.S3.complete() && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether backups can run.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Start begins the scheduled backup loop. It is a no-op when disabled.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.client == nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	m.logger.Info("backup schedule started", "hour_utc", m.cfg.ScheduleHour, "retention_days", m.cfg.RetentionDays)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop ends the schedule loop and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if s.LastBackup == nil {
		s.LastBackup = m.status.LastBackup
	}
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// checkSchedule runs the daily backup once the configured UTC hour is
// reached, at most once per day.
func (m *Manager) checkSchedule(ctx context.Context) {
	now := m.now()
	if now.Hour() != m.cfg.ScheduleHour {
		return
	}
	day := now.Format(time.DateOnly)
	if m.lastDay == day {
		return
	}
	m.lastDay = day

	if _, err := m.RunNow(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
	if err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// List returns up to limit backup records, newest first.
func (m *Manager) List(limit int) ([]model.Backup, error) {
	return m.backups.List(limit)
}

// RunNow encrypts the current artifact and uploads it. It returns the id
// of the new backup record.
func (m *Manager) RunNow(ctx context.Context) (int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return 0, ErrNotConfigured
	}
	if !m.run.TryLock() {
		return 0, ErrInProgress
	}
	defer m.run.Unlock()

	m.setStatus(Status{State: StateRunning, InProgress: true})

	stamp := m.now().Format("20060102T150405Z")
	filename := fmt.Sprintf("lists-%s.json.enc", stamp)
	s3Key := m.cfg.Prefix + filename

	record, err := m.backups.Create(filename, s3Key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("create backup record: %w", err)
	}

	fail := func(step string, err error) (int64, error) {
		if uerr := m.backups.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			m.logger.Error("mark backup failed", "backup_id", record.ID, "error", uerr)
		}
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("%s: %w", step, err)
	}

	data, lists, err := m.target.Snapshot(ctx)
	if err != nil {
		return fail("snapshot", err)
	}
	encrypted, err := Encrypt(data, m.cfg.Passphrase)
	if err != nil {
		return fail("encrypt", err)
	}

	if err := m.backups.UpdateStatus(record.ID, model.BackupStatusUploading, ""); err != nil {
		return fail("mark uploading", err)
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(s3Key),
		Body:          bytes.NewReader(encrypted),
		ContentLength: aws.Int64(int64(len(encrypted))),
	})
	if err != nil {
		return fail("upload to s3", err)
	}

	if err := m.backups.UpdateCompleted(record.ID, int64(len(encrypted)), lists); err != nil {
		return fail("mark completed", err)
	}

	now := m.now()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup uploaded", "backup_id", record.ID, "key", s3Key, "size_bytes", len(encrypted), "lists", lists)
	return record.ID, nil
}

func (m *Manager) fetch(ctx context.Context, backupID int64) (io.ReadCloser, *model.Backup, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil, nil, ErrNotConfigured
	}

	record, err := m.backups.GetByID(backupID)
	if err != nil {
		return nil, nil, fmt.Errorf("get backup: %w", err)
	}
	if !record.Restorable() {
		return nil, nil, ErrBackupNotFound
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("download from s3: %w", err)
	}
	return result.Body, record, nil
}

// Restore downloads and decrypts a backup and hands it to the target. It
// returns the number of lists restored.
func (m *Manager) Restore(ctx context.Context, backupID int64) (int, error) {
	m.run.Lock()
	defer m.run.Unlock()

	body, record, err := m.fetch(ctx, backupID)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	encrypted, err := io.ReadAll(body)
	if err != nil {
		return 0, fmt.Errorf("read backup: %w", err)
	}
	data, err := Decrypt(encrypted, m.cfg.Passphrase)
	if err != nil {
		return 0, fmt.Errorf("decrypt backup: %w", err)
	}

	n, err := m.target.Restore(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("restore backup %d: %w", backupID, err)
	}
	m.logger.Info("backup restored", "backup_id", backupID, "key", record.S3Key, "lists", n)
	return n, nil
}

// Download streams an encrypted backup from S3.
func (m *Manager) Download(ctx context.Context, backupID int64) (io.ReadCloser, *model.Backup, error) {
	return m.fetch(ctx, backupID)
}

// Cleanup deletes backups older than the retention period.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil
	}

	before := m.now().AddDate(0, 0, -m.cfg.RetentionDays)
	keys, err := m.backups.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("failed to delete S3 object", "key", key, "error", err)
		}
	}
	if len(keys) > 0 {
		m.logger.Info("old backups removed", "count", len(keys))
	}
	return nil
}
