package ats

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/omeyang/xdiag/pkg/context/xctx"
	"github.com/omeyang/xdiag/pkg/observability/xexec"
	"github.com/omeyang/xdiag/pkg/observability/xlog"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

// Handler 将 Service 暴露为 HTTP 接口
type Handler struct {
	svc    *Service
	logger xlog.Logger
}

// NewHandler logger 为 nil 时使用 xlog.Default()
func NewHandler(svc *Service, logger xlog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, ErrNilDependency
	}
	if logger == nil {
		logger = xlog.Default()
	}
	return &Handler{svc: svc, logger: logger}, nil
}

// Routes 返回挂载了全部接口的子路由
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.login)
	r.Delete("/sessions", h.logout)
	r.Route("/candidates", func(r chi.Router) {
		r.Post("/", h.register)
		r.Route("/{candidateID}", func(r chi.Router) {
			r.Get("/", h.getCandidate)
			r.Post("/applications", h.apply)
			r.Get("/applications", h.listApplications)
		})
	})
	r.Patch("/applications/{applicationID}/status", h.updateStatus)
	return r
}

// errorResponse 错误响应体，correlation_id 便于按日志排查
type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, c)
}

func (h *Handler) getCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCandidate(r.Context(), chi.URLParam(r, "candidateID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, c)
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.svc.Apply(r.Context(), chi.URLParam(r, "candidateID"), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, a)
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.Applications(r.Context(), chi.URLParam(r, "candidateID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, apps)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "applicationID"), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, a)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.respondJSON(w, r, http.StatusOK, sess)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		h.svc.Logout(c.Value)
	}
	if token := bearerToken(r); token != "" {
		h.svc.Logout(token)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// 编解码
// =============================================================================

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.respondError(w, r, fmt.Errorf("%w: invalid request body: %v", xexec.ErrValidation, err))
		return false
	}
	return true
}

// statusFor 按错误分类映射 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, xexec.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, xexec.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, xexec.ErrAuthentication):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	h.respondJSON(w, r, status, errorResponse{
		Error:         msg,
		CorrelationID: xctx.CorrelationID(r.Context()),
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn(r.Context(), "ats: write response failed", slog.Int("status", status), xlog.Err(err))
	}
}
