package ats_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/omeyang/xdiag/internal/ats"
	"github.com/omeyang/xdiag/pkg/context/xasync"
	"github.com/omeyang/xdiag/pkg/context/xctx"
	"github.com/omeyang/xdiag/pkg/observability/xexec"
	"github.com/omeyang/xdiag/pkg/observability/xlog"
	"github.com/omeyang/xdiag/pkg/observability/xmask"
	"github.com/omeyang/xdiag/pkg/util/xpool"
)

// recorder 记录拦截事件
type recorder struct {
	mu     sync.Mutex
	events []xexec.Event
}

func (r *recorder) Emit(_ context.Context, ev xexec.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) byMethod(method string) []xexec.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []xexec.Event
	for _, ev := range r.events {
		if ev.MethodName == method {
			out = append(out, ev)
		}
	}
	return out
}

// notes 记录通知及发送时的 correlation_id
type notes struct {
	mu   sync.Mutex
	sent []ats.Notification
	corr []string
	ch   chan struct{}
}

func newNotes() *notes {
	return &notes{ch: make(chan struct{}, 64)}
}

func (n *notes) Notify(ctx context.Context, note ats.Notification) error {
	n.mu.Lock()
	n.sent = append(n.sent, note)
	n.corr = append(n.corr, xctx.CorrelationID(ctx))
	n.mu.Unlock()
	n.ch <- struct{}{}
	return nil
}

func (n *notes) wait(t *testing.T, count int) {
	t.Helper()
	for range count {
		select {
		case <-n.ch:
		case <-time.After(5 * time.Second):
			t.Fatal("notification not delivered")
		}
	}
}

type fixture struct {
	svc   *ats.Service
	rec   *recorder
	notes *notes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := &recorder{}
	reg := xexec.NewRegistry()
	require.NoError(t, ats.MarkLoggable(reg, xexec.DefaultLoggable()))
	ic := xexec.New(xexec.WithRegistry(reg), xexec.WithSink(rec))

	logger, cleanup, err := xlog.New().SetOutput(discard{}).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	pool, err := xpool.New(2, 16, xpool.WithName("ats-test"), xpool.WithLogger(logger))
	require.NoError(t, err)
	exec, err := xasync.NewExecutor(pool, xasync.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = exec.Shutdown(ctx)
	})

	n := newNotes()
	svc, err := ats.NewService(ats.NewMemoryRepository(), ic, exec,
		ats.WithNotifier(n),
		ats.WithLogger(logger),
		ats.WithBcryptCost(bcrypt.MinCost),
	)
	require.NoError(t, err)
	return &fixture{svc: svc, rec: rec, notes: n}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func requestCtx(corr string) context.Context {
	ctx, s := xctx.EnsureStore(context.Background())
	s.Put(xctx.KeyCorrelationID, corr)
	return ctx
}

func validRegister() ats.RegisterRequest {
	return ats.RegisterRequest{
		Name:     "Ada Lovelace",
		Email:    "Ada@Example.com",
		Phone:    "+15551234567",
		Password: "correct-horse",
	}
}

// =============================================================================
// Register / Login
// =============================================================================

func TestService_RegisterMasksPassword(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.Register(requestCtx("corr-reg"), validRegister())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", c.Email)
	assert.NotEmpty(t, c.ID)

	f.notes.wait(t, 1)

	evs := f.rec.byMethod("Register")
	require.Len(t, evs, 1)
	assert.Equal(t, "corr-reg", evs[0].CorrelationID)
	assert.Equal(t, "Service", evs[0].ClassName)
	assert.NotContains(t, evs[0].ArgumentsMasked, "correct-horse")
	assert.Contains(t, evs[0].ArgumentsMasked, xmask.Token)
}

func TestService_RegisterNotificationKeepsCorrelation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(requestCtx("corr-async"), validRegister())
	require.NoError(t, err)
	f.notes.wait(t, 1)

	f.notes.mu.Lock()
	defer f.notes.mu.Unlock()
	assert.Equal(t, []string{"corr-async"}, f.notes.corr)
	assert.Equal(t, "welcome", f.notes.sent[0].Subject)

	require.Eventually(t, func() bool { return len(f.rec.byMethod("Notify")) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "corr-async", f.rec.byMethod("Notify")[0].CorrelationID)
}

func TestService_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	req := validRegister()
	req.Email = "not-an-email"
	req.Password = "short"

	_, err := f.svc.Register(requestCtx("c"), req)
	require.ErrorIs(t, err, xexec.ErrValidation)
	assert.Contains(t, err.Error(), "email must be a valid email")
	assert.Contains(t, err.Error(), "password must be at least 8 characters")

	evs := f.rec.byMethod("Register")
	require.Len(t, evs, 1)
	assert.Equal(t, xlog.LevelWarn, evs[0].Level)
	assert.Empty(t, evs[0].Stack)
}

func TestService_RegisterDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := requestCtx("c")
	_, err := f.svc.Register(ctx, validRegister())
	require.NoError(t, err)
	f.notes.wait(t, 1)

	_, err = f.svc.Register(ctx, validRegister())
	assert.ErrorIs(t, err, ats.ErrDuplicateEmail)
}

func TestService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := requestCtx("c")
	c, err := f.svc.Register(ctx, validRegister())
	require.NoError(t, err)
	f.notes.wait(t, 1)

	sess, err := f.svc.Login(ctx, ats.LoginRequest{Email: "ada@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, c.ID, sess.CandidateID)

	ev := f.rec.byMethod("Login")[0]
	assert.True(t, strings.HasPrefix(ev.Message, "login for ada@example.com"), ev.Message)
	assert.NotContains(t, ev.ArgumentsMasked, "correct-horse")

	_, err = f.svc.Login(ctx, ats.LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ats.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, ats.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ats.ErrInvalidCredentials)

	failed := f.rec.byMethod("Login")[1]
	assert.Equal(t, xlog.LevelWarn, failed.Level)
	assert.True(t, failed.Failed())
}

func TestService_PrincipalFromRequest(t *testing.T) {
	f := newFixture(t)
	ctx := requestCtx("c")
	c, err := f.svc.Register(ctx, validRegister())
	require.NoError(t, err)
	f.notes.wait(t, 1)
	sess, err := f.svc.Login(ctx, ats.LoginRequest{Email: c.Email, Password: "correct-horse"})
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+sess.Token)
	p, ok := f.svc.PrincipalFromRequest(r)
	require.True(t, ok)
	assert.Equal(t, c.ID, p.UserID)
	assert.Equal(t, []string{ats.RoleCandidate}, p.Roles)

	f.svc.Logout(sess.Token)
	_, ok = f.svc.PrincipalFromRequest(r)
	assert.False(t, ok)

	_, ok = f.svc.PrincipalFromRequest(httptest.NewRequest("GET", "/", nil))
	assert.False(t, ok)
}

// =============================================================================
// Candidate / Application
// =============================================================================

func TestService_GetCandidateLogsMaskedResult(t *testing.T) {
	f := newFixture(t)
	ctx := requestCtx("c")
	c, err := f.svc.Register(ctx, validRegister())
	require.NoError(t, err)
	f.notes.wait(t, 1)

	got, err := f.svc.GetCandidate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	ev := f.rec.byMethod("GetCandidate")[0]
	assert.Equal(t, xlog.LevelDebug, ev.Level)
	assert.Contains(t, ev.Result, "***@example.com")
	assert.NotContains(t, ev.Result, "ada@example.com")
	assert.NotContains(t, ev.Result, "$2a$")

	_, err = f.svc.GetCandidate(ctx, "missing")
	assert.ErrorIs(t, err, xexec.ErrNotFound)
}

func TestService_ApplicationLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := requestCtx("c")
	c, err := f.svc.Register(ctx, validRegister())
	require.NoError(t, err)

	a, err := f.svc.Apply(ctx, c.ID, ats.ApplyRequest{Position: "Analyst"})
	require.NoError(t, err)
	assert.Equal(t, ats.StatusSubmitted, a.Status)

	a, err = f.svc.UpdateStatus(ctx, a.ID, ats.StatusRequest{Status: ats.StatusScreening})
	require.NoError(t, err)
	assert.Equal(t, ats.StatusScreening, a.Status)

	_, err = f.svc.UpdateStatus(ctx, a.ID, ats.StatusRequest{Status: ats.StatusOffered})
	assert.ErrorIs(t, err, ats.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, a.ID, ats.StatusRequest{Status: "hired"})
	assert.ErrorIs(t, err, xexec.ErrValidation)

	apps, err := f.svc.Applications(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, ats.StatusScreening, apps[0].Status)

	// welcome + received + screening
	f.notes.wait(t, 3)

	ev := f.rec.byMethod("UpdateStatus")[0]
	assert.True(t, strings.HasPrefix(ev.Message, "application "+a.ID+" moved to screening"))

	_, err = f.svc.Apply(ctx, "missing", ats.ApplyRequest{Position: "Analyst"})
	assert.ErrorIs(t, err, ats.ErrCandidateNotFound)
}

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to ats.Status
		want     bool
	}{
		{ats.StatusSubmitted, ats.StatusScreening, true},
		{ats.StatusSubmitted, ats.StatusOffered, false},
		{ats.StatusInterview, ats.StatusOffered, true},
		{ats.StatusOffered, ats.StatusWithdrawn, false},
		{ats.StatusRejected, ats.StatusScreening, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestNewService_NilDependency(t *testing.T) {
	_, err := ats.NewService(nil, xexec.New(), nil)
	assert.ErrorIs(t, err, ats.ErrNilDependency)
	_, err = ats.NewHandler(nil, nil)
	assert.ErrorIs(t, err, ats.ErrNilDependency)
}
