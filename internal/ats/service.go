package ats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/omeyang/xdiag/pkg/context/xasync"
	"github.com/omeyang/xdiag/pkg/context/xctx"
	"github.com/omeyang/xdiag/pkg/observability/xexec"
	"github.com/omeyang/xdiag/pkg/observability/xlog"
)

// SessionCookie 登录后下发的会话 cookie 名
const SessionCookie = "session_id"

// RoleCandidate 候选人会话的角色
const RoleCandidate = "candidate"

// serviceType Service 在 xexec.Registry 中的类型名
var serviceType = xexec.TypeName((*Service)(nil))

// MarkLoggable 在 r 上注册 Service 的可记录标记。
//
// 类型级使用 base；GetCandidate 额外记录返回值，
// Login 与 UpdateStatus 使用自定义消息模板。
func MarkLoggable(r *xexec.Registry, base xexec.Loggable) error {
	if err := r.MarkType(serviceType, base); err != nil {
		return err
	}

	get := base
	get.Level = xlog.LevelDebug
	get.LogResult = true

	login := base
	login.Message = "login for ${email}"

	status := base
	status.Message = "application ${application} moved to ${status}"

	notify := base
	notify.Level = xlog.LevelDebug
	notify.LogArgs = false

	for method, l := range map[string]xexec.Loggable{
		"GetCandidate": get,
		"Login":        login,
		"UpdateStatus": status,
		"Notify":       notify,
	} {
		if err := r.MarkMethod(serviceType, method, l); err != nil {
			return err
		}
	}
	return nil
}

// ServiceOption Service 配置选项
type ServiceOption func(*Service)

// WithNotifier 替换通知实现，默认 LogNotifier
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger 设置 Service 自身的日志记录器
func WithLogger(l xlog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock 替换时间源
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBcryptCost 设置密码哈希成本，超出 bcrypt 范围时忽略
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// Service 候选人与申请业务。
//
// 所有导出方法都经 Interceptor 执行；通知经 Executor 异步发送，失败只记日志。
type Service struct {
	repo       Repository
	ic         *xexec.Interceptor
	async      *xasync.Executor
	notifier   Notifier
	logger     xlog.Logger
	now        func() time.Time
	bcryptCost int

	sessions sync.Map // token -> candidate id
}

// NewService 创建 Service，repo/ic/async 均不能为 nil
func NewService(repo Repository, ic *xexec.Interceptor, async *xasync.Executor, opts ...ServiceOption) (*Service, error) {
	if repo == nil || ic == nil || async == nil {
		return nil, ErrNilDependency
	}
	s := &Service{
		repo:       repo,
		ic:         ic,
		async:      async,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = xlog.Default()
	}
	if s.notifier == nil {
		s.notifier = NewLogNotifier(s.logger)
	}
	return s, nil
}

func inv(method string, params ...xexec.Param) xexec.Invocation {
	return xexec.Invocation{Type: serviceType, Method: method, Params: params}
}

// =============================================================================
// 候选人
// =============================================================================

// Register 注册候选人并异步发送欢迎通知
func (s *Service) Register(ctx context.Context, req RegisterRequest) (Candidate, error) {
	return xexec.Call(ctx, s.ic, inv("Register", xexec.P("request", req)), func(ctx context.Context) (Candidate, error) {
		if err := validateStruct(req); err != nil {
			return Candidate{}, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
		if err != nil {
			return Candidate{}, fmt.Errorf("ats: hash password: %w", err)
		}
		c := Candidate{
			ID:           uuid.NewString(),
			Name:         strings.TrimSpace(req.Name),
			Email:        normalizeEmail(req.Email),
			Phone:        req.Phone,
			PasswordHash: string(hash),
			CreatedAt:    s.now().UTC(),
		}
		if err := s.repo.CreateCandidate(ctx, c); err != nil {
			return Candidate{}, err
		}
		s.notify(ctx, Notification{CandidateID: c.ID, Email: c.Email, Subject: "welcome"})
		return c, nil
	})
}

// GetCandidate 按 ID 查询候选人
func (s *Service) GetCandidate(ctx context.Context, id string) (Candidate, error) {
	return xexec.Call(ctx, s.ic, inv("GetCandidate", xexec.P("id", id)), func(ctx context.Context) (Candidate, error) {
		return s.repo.Candidate(ctx, id)
	})
}

// Login 校验邮箱与密码并签发会话。邮箱不存在与密码错误返回同一错误。
func (s *Service) Login(ctx context.Context, req LoginRequest) (Session, error) {
	params := []xexec.Param{xexec.P("email", req.Email), xexec.P("password", req.Password)}
	return xexec.Call(ctx, s.ic, inv("Login", params...), func(ctx context.Context) (Session, error) {
		if err := validateStruct(req); err != nil {
			return Session{}, err
		}
		c, err := s.repo.CandidateByEmail(ctx, req.Email)
		if errors.Is(err, ErrCandidateNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		if err != nil {
			return Session{}, err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(req.Password)); err != nil {
			return Session{}, ErrInvalidCredentials
		}
		sess := Session{Token: uuid.NewString(), CandidateID: c.ID}
		s.sessions.Store(sess.Token, c.ID)
		return sess, nil
	})
}

// Logout 使会话失效，未知 token 忽略
func (s *Service) Logout(token string) {
	s.sessions.Delete(token)
}

// PrincipalFromRequest 从会话 cookie 或 Bearer token 解析当前候选人，
// 可直接用作 xrequest.WithPrincipalResolver。
func (s *Service) PrincipalFromRequest(r *http.Request) (xctx.Principal, bool) {
	token := bearerToken(r)
	if token == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return xctx.Principal{}, false
	}
	id, ok := s.sessions.Load(token)
	if !ok {
		return xctx.Principal{}, false
	}
	return xctx.Principal{UserID: id.(string), Roles: []string{RoleCandidate}}, true
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// =============================================================================
// 申请
// =============================================================================

// Apply 为候选人提交申请并异步通知
func (s *Service) Apply(ctx context.Context, candidateID string, req ApplyRequest) (Application, error) {
	params := []xexec.Param{xexec.P("candidate", candidateID), xexec.P("position", req.Position)}
	return xexec.Call(ctx, s.ic, inv("Apply", params...), func(ctx context.Context) (Application, error) {
		if err := validateStruct(req); err != nil {
			return Application{}, err
		}
		c, err := s.repo.Candidate(ctx, candidateID)
		if err != nil {
			return Application{}, err
		}
		now := s.now().UTC()
		a := Application{
			ID:          uuid.NewString(),
			CandidateID: c.ID,
			Position:    strings.TrimSpace(req.Position),
			Status:      StatusSubmitted,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.CreateApplication(ctx, a); err != nil {
			return Application{}, err
		}
		s.notify(ctx, Notification{CandidateID: c.ID, Email: c.Email, Subject: "application received: " + a.Position})
		return a, nil
	})
}

// Applications 列出候选人的申请
func (s *Service) Applications(ctx context.Context, candidateID string) ([]Application, error) {
	return xexec.Call(ctx, s.ic, inv("Applications", xexec.P("candidate", candidateID)), func(ctx context.Context) ([]Application, error) {
		return s.repo.Applications(ctx, candidateID)
	})
}

// UpdateStatus 推进申请状态，非法迁移返回 ErrInvalidTransition
func (s *Service) UpdateStatus(ctx context.Context, applicationID string, req StatusRequest) (Application, error) {
	params := []xexec.Param{xexec.P("application", applicationID), xexec.P("status", string(req.Status))}
	return xexec.Call(ctx, s.ic, inv("UpdateStatus", params...), func(ctx context.Context) (Application, error) {
		if err := validateStruct(req); err != nil {
			return Application{}, err
		}
		cur, err := s.repo.Application(ctx, applicationID)
		if err != nil {
			return Application{}, err
		}
		if !cur.Status.CanTransition(req.Status) {
			return Application{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, req.Status)
		}
		updated, err := s.repo.UpdateStatus(ctx, applicationID, cur.Status, req.Status, s.now().UTC())
		if err != nil {
			return Application{}, err
		}
		c, err := s.repo.Candidate(ctx, updated.CandidateID)
		if err != nil {
			return Application{}, err
		}
		s.notify(ctx, Notification{
			CandidateID: c.ID,
			Email:       c.Email,
			Subject:     fmt.Sprintf("application %s is now %s", updated.Position, updated.Status),
		})
		return updated, nil
	})
}

// =============================================================================
// 通知
// =============================================================================

// notify 以当前上下文快照提交异步通知，提交失败只记录 WARN
func (s *Service) notify(ctx context.Context, n Notification) {
	err := s.async.Submit(ctx, func(ctx context.Context) error {
		return xexec.Do(ctx, s.ic, inv("Notify", xexec.P("candidate", n.CandidateID)), func(ctx context.Context) error {
			return s.notifier.Notify(ctx, n)
		})
	})
	if err != nil {
		s.logger.Warn(ctx, "ats: notification dropped",
			slog.String("subject", n.Subject),
			xlog.Err(err),
		)
	}
}
