package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/listkeeper/internal/backup"
	"github.com/dukerupert/listkeeper/internal/config"
	"github.com/dukerupert/listkeeper/internal/handler"
	"github.com/dukerupert/listkeeper/internal/middleware"
	"github.com/dukerupert/listkeeper/internal/session"
	"github.com/dukerupert/listkeeper/internal/store"
	ws "github.com/dukerupert/listkeeper/internal/websocket"
)

type Server struct {
	cfg           config.ServerConfig
	sess          *session.Session
	hub           *ws.Hub
	listH         *handler.ListHandler
	backupH       *handler.BackupHandler
	backupManager *backup.Manager
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

// New wires the HTTP surface around sess. Collection changes, backup state
// and suggestion outcomes are broadcast to websocket clients; the
// observers are registered here, so call New before sess.Run.
func New(cfg *config.Config, sess *session.Session, backupStore *store.BackupStore, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger, cfg.Server.OriginPatterns()...)
	sess.Subscribe(hub.ListChanged)
	sess.OnSuggestions(hub.SuggestionsDone)

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.Endpoint,
			Bucket:    cfg.Backup.Bucket,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		},
		Passphrase:    cfg.Backup.Passphrase,
		ScheduleHour:  cfg.Backup.ScheduleHour,
		RetentionDays: cfg.Backup.RetentionDays,
		Prefix:        cfg.Backup.Prefix,
	}, backupStore, sess, logger, hub.BackupChanged)

	return &Server{
		cfg:           cfg.Server,
		sess:          sess,
		hub:           hub,
		listH:         handler.NewListHandler(sess, logger.With("component", "lists")),
		backupH:       handler.NewBackupHandler(backupMgr, logger.With("component", "backups")),
		backupManager: backupMgr,
		rateLimiter:   middleware.NewRateLimiter(cfg.Suggest.RateLimit, cfg.Suggest.RateWindow),
		logger:        logger,
	}
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// RateLimiter returns the suggestion rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /ws", s.hub)

	apiMux := http.NewServeMux()
	s.registerAPIRoutes(apiMux)
	outerMux.Handle("/api/", middleware.RequireToken(s.cfg.APIToken)(apiMux))

	httpLogger := s.logger.With("component", "http")
	return middleware.RequestLogger(httpLogger)(middleware.Recoverer(httpLogger)(outerMux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
		"backup":  s.backupManager.Status().State,
	})
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Lists
	mux.HandleFunc("GET /api/lists", s.listH.List)
	mux.HandleFunc("POST /api/lists", s.listH.Create)
	mux.HandleFunc("PUT /api/lists/order", s.listH.Reorder)
	mux.HandleFunc("GET /api/lists/{id}", s.listH.Get)
	mux.HandleFunc("PUT /api/lists/{id}", s.listH.Rename)
	mux.HandleFunc("DELETE /api/lists/{id}", s.listH.Delete)
	mux.HandleFunc("GET /api/lists/{id}/export", s.listH.Export)

	// Items
	mux.HandleFunc("POST /api/lists/{id}/items", s.listH.CreateItem)
	mux.HandleFunc("DELETE /api/lists/{id}/items", s.listH.DeleteItems)
	mux.HandleFunc("PUT /api/lists/{id}/items/order", s.listH.ReorderItems)
	mux.HandleFunc("POST /api/lists/{id}/items/clear-checked", s.listH.ClearChecked)
	mux.HandleFunc("PUT /api/lists/{id}/items/{item_id}", s.listH.UpdateItem)
	mux.HandleFunc("POST /api/lists/{id}/items/{item_id}/toggle", s.listH.ToggleItem)

	// Suggestions hit an external service, so they are rate limited per client.
	mux.Handle("POST /api/lists/{id}/suggestions", middleware.RateLimit(s.rateLimiter)(http.HandlerFunc(s.listH.Suggest)))

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.backupH.Create)
	mux.HandleFunc("POST /api/backups/{id}/restore", s.backupH.Restore)
	mux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)
}
