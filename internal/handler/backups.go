package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/listkeeper/internal/backup"
	"github.com/dukerupert/listkeeper/internal/model"
	"github.com/dukerupert/listkeeper/internal/store"
)

// backupService is the part of backup.Manager the API uses.
type backupService interface {
	Enabled() bool
	Status() backup.Status
	List(limit int) ([]model.Backup, error)
	RunNow(ctx context.Context) (int64, error)
	Restore(ctx context.Context, id int64) (int, error)
	Download(ctx context.Context, id int64) (io.ReadCloser, *model.Backup, error)
}

type BackupHandler struct {
	backups backupService
	logger  *slog.Logger
}

func NewBackupHandler(backups backupService, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{backups: backups, logger: logger}
}

type backupListResponse struct {
	Status  backup.Status `json:"status"`
	Backups []backupView  `json:"backups"`
}

func parseBackupID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (h *BackupHandler) writeBackupError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, backup.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
	case errors.Is(err, backup.ErrInProgress):
		writeError(w, http.StatusConflict, "a backup is already running")
	case errors.Is(err, backup.ErrBackupNotFound):
		writeError(w, http.StatusNotFound, "backup not found")
	case errors.Is(err, store.ErrCorruptArtifact):
		writeError(w, http.StatusUnprocessableEntity, "backup does not contain readable lists")
	default:
		h.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	records, err := h.backups.List(limit)
	if err != nil {
		h.writeBackupError(w, "list backups", err)
		return
	}
	views := make([]backupView, 0, len(records))
	for i := range records {
		views = append(views, newBackupView(&records[i]))
	}
	writeJSON(w, http.StatusOK, backupListResponse{Status: h.backups.Status(), Backups: views})
}

// Create runs a backup immediately and waits for it to finish.
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := h.backups.RunNow(r.Context())
	if err != nil {
		h.writeBackupError(w, "run backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseBackupID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	n, err := h.backups.Restore(r.Context(), id)
	if err != nil {
		h.writeBackupError(w, "restore backup", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"lists": n})
}

// Download streams the encrypted backup file as stored.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseBackupID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	body, record, err := h.backups.Download(r.Context(), id)
	if err != nil {
		h.writeBackupError(w, "download backup", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, record.Filename))
	if record.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(record.SizeBytes, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("backup download interrupted", "backup_id", id, "error", err)
	}
}
