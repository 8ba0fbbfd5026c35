package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/reconcile"
	"github.com/yurifrl/ynab-reconciler/pkg/service"
)

const maxBodyBytes = 10 << 20

// Reconciler is the service surface exposed over HTTP.
type Reconciler interface {
	Reconcile(ctx context.Context, req service.Request) (*service.Response, error)
	Budgets(ctx context.Context) ([]models.Budget, error)
	Accounts(ctx context.Context, budgetID string) ([]models.Account, error)
}

// Options configures a Server.
type Options struct {
	// StatementsDir confines csv_file_path arguments. Empty rejects them.
	StatementsDir string
}

// Server handles tool calls and budget lookups.
type Server struct {
	logger *log.Logger
	svc    Reconciler
	router *mux.Router
	opts   Options
}

// New creates a new HTTP server
func New(logger *log.Logger, svc Reconciler, opts Options) *Server {
	s := &Server{
		logger: logger,
		svc:    svc,
		router: mux.NewRouter().StrictSlash(true),
		opts:   opts,
	}
	s.setupRoutes()
	return s
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/tools/{name}", s.withLogging(s.handleTool)).Methods(http.MethodPost)
	s.router.HandleFunc("/api/budgets", s.withLogging(s.handleBudgets)).Methods(http.MethodGet)
	s.router.HandleFunc("/api/budgets/{budget_id}/accounts", s.withLogging(s.handleBudgetAccounts)).Methods(http.MethodGet)
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.svc.Budgets(r.Context())
	if err != nil {
		s.respondError(w, r, http.StatusBadGateway, "failed to fetch budgets", err)
		return
	}
	s.logger.Info("budgets response", "budgets_count", len(budgets))

	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"budgets": budgets,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleBudgetAccounts(w http.ResponseWriter, r *http.Request) {
	budgetID := mux.Vars(r)["budget_id"]

	accounts, err := s.svc.Accounts(r.Context(), budgetID)
	if err != nil {
		s.respondError(w, r, http.StatusBadGateway, "failed to fetch accounts", err)
		return
	}
	s.logger.Info("accounts response", "budget_id", budgetID, "accounts_count", len(accounts))

	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"accounts": accounts,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name != toolReconcileAccount && name != toolAnalyzeStatement {
		s.respondError(w, r, http.StatusNotFound, fmt.Sprintf("unknown tool %q", name), nil)
		return
	}

	var args ToolArgs
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&args); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid arguments", err)
		return
	}
	req, err := args.request(name == toolReconcileAccount, s.opts.StatementsDir)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}

	resp, err := s.svc.Reconcile(r.Context(), req)
	if err != nil {
		s.respondError(w, r, statusFor(err), err.Error(), err)
		return
	}

	if args.Format == "text" {
		s.writeText(w, resp)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"tool":   name,
		"result": resp,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrReconciliationInProgress):
		return http.StatusConflict
	case errors.Is(err, service.ErrMissingStatement),
		errors.Is(err, service.ErrMissingStatementBalance),
		errors.Is(err, service.ErrInvalidStatement),
		errors.Is(err, reconcile.ErrNoParseableRows):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// --- helpers ---

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// withLogging wraps a handler to log requests and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
		}()
		next(w, r)
	}
}
