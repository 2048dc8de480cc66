package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"reelist/cmd/identity"
	"reelist/cmd/internal/auth/reset"
	"reelist/cmd/internal/auth/session"
	"reelist/cmd/security/password"
)

// Handler wires HTTP auth endpoints to the identity, session, and reset
// services.
type Handler struct {
	log *slog.Logger
	cfg Config

	users    identity.Store
	sessions *session.Service
	resets   *reset.Service
	guard    *Guard
	metrics  *Metrics
}

// NewHandler constructs an auth Handler. Metrics may be nil.
func NewHandler(log *slog.Logger, cfg Config, users identity.Store, sessions *session.Service, resets *reset.Service, metrics *Metrics) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:      log,
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		resets:   resets,
		guard:    NewGuard(sessions, metrics),
		metrics:  metrics,
	}
}

// Guard exposes the handler's auth middleware for other route groups.
func (h *Handler) Guard() *Guard {
	return h.guard
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/refresh", h.handleRefresh)
	mux.Handle("/auth/logout", h.guard.RequireAuth(http.HandlerFunc(h.handleLogout)))
	mux.HandleFunc("/auth/forgotPassword", h.handleForgotPassword)
	mux.HandleFunc("/auth/checkCode", h.handleCheckCode)
	mux.HandleFunc("/auth/resetPassword", h.handleResetPassword)
	mux.Handle("/me", h.guard.RequireAuth(http.HandlerFunc(h.handleMe)))
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid request body")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeValidationError, "email and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	issued, err := h.sessions.Login(ctx, now, email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			h.metrics.observe("login", outcomeDenied)
			writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "invalid credentials")
			return
		}
		h.metrics.observe("login", outcomeError)
		h.log.Error("auth.login.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	h.metrics.observe("login", outcomeOK)
	writeJSON(w, http.StatusOK, toTokenPairResponse(issued))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeValidationError, "invalid request body")
			return
		}
	}

	ctx := r.Context()
	now := time.Now().UTC()

	issued, err := h.sessions.Refresh(ctx, now, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrRefreshRequired):
			h.metrics.observe("refresh", outcomeDenied)
			writeError(w, http.StatusBadRequest, codeRefreshRequired, "refreshToken is required")
		case errors.Is(err, session.ErrRefreshInvalid):
			h.metrics.observe("refresh", outcomeDenied)
			writeError(w, http.StatusUnauthorized, codeRefreshInvalid, "invalid or expired refresh token")
		default:
			h.metrics.observe("refresh", outcomeError)
			h.log.Error("auth.refresh.fail", "err", err)
			writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		}
		return
	}

	h.metrics.observe("refresh", outcomeOK)
	writeJSON(w, http.StatusOK, toTokenPairResponse(issued))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req logoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeValidationError, "invalid request body")
			return
		}
	}

	ctx := r.Context()
	now := time.Now().UTC()

	if err := h.sessions.Logout(ctx, now, req.RefreshToken); err != nil {
		h.metrics.observe("logout", outcomeError)
		h.log.Error("auth.logout.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	h.metrics.observe("logout", outcomeOK)
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req forgotPasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid request body")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, codeValidationError, "email is required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	// The response is identical whether or not the account exists; only an
	// infrastructure failure surfaces, and generically.
	if err := h.resets.Forgot(ctx, now, email); err != nil {
		h.metrics.observe("forgot_password", outcomeError)
		h.log.Error("auth.forgot_password.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	h.metrics.observe("forgot_password", outcomeOK)
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) handleCheckCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req checkCodeRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid request body")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	if err := h.resets.CheckCode(ctx, now, strings.TrimSpace(req.Email), req.Code); err != nil {
		if errors.Is(err, reset.ErrInvalidCode) {
			h.metrics.observe("check_code", outcomeDenied)
			writeError(w, http.StatusBadRequest, codeInvalidCode, "invalid code")
			return
		}
		h.metrics.observe("check_code", outcomeError)
		h.log.Error("auth.check_code.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	h.metrics.observe("check_code", outcomeOK)
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid request body")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	err := h.resets.Reset(ctx, now, strings.TrimSpace(req.Email), req.Code, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, reset.ErrInvalidCode):
			h.metrics.observe("reset_password", outcomeDenied)
			writeError(w, http.StatusBadRequest, codeInvalidCode, "invalid code")
		case errors.Is(err, password.ErrPasswordTooShort),
			errors.Is(err, password.ErrPasswordTooLong),
			errors.Is(err, password.ErrWeakPassword):
			h.metrics.observe("reset_password", outcomeDenied)
			writeError(w, http.StatusBadRequest, codeValidationError, "password does not meet the policy")
		default:
			h.metrics.observe("reset_password", outcomeError)
			h.log.Error("auth.reset_password.fail", "err", err)
			writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		}
		return
	}

	h.metrics.observe("reset_password", outcomeOK)
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeAuthTokenInvalid, "invalid token")
		return
	}

	u, err := h.users.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, codeAuthTokenInvalid, "invalid token")
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: toUserResponse(u)})
}
