package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xdiag/internal/ats"
	"github.com/omeyang/xdiag/pkg/config/xconf"
	"github.com/omeyang/xdiag/pkg/context/xctx"
	"github.com/omeyang/xdiag/pkg/observability/xexec"
	"github.com/omeyang/xdiag/pkg/observability/xlog"
	"github.com/omeyang/xdiag/pkg/observability/xmask"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runCLI(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), append([]string{"xdiagctl"}, args...), strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// =============================================================================
// mask / errcode / check
// =============================================================================

func TestMask(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		want    []string
		notWant string
	}{
		{
			name:    "JSON自动识别",
			stdin:   `{"user":"bob","password":"hunter2"}`,
			want:    []string{`"password":"` + xmask.Token + `"`, `"user":"bob"`},
			notWant: "hunter2",
		},
		{
			name:    "文本逐行",
			stdin:   "login password=hunter2\nplain line\n",
			args:    []string{"--format", "text"},
			want:    []string{"password=" + xmask.Token, "plain line"},
			notWant: "hunter2",
		},
		{
			name:    "追加词项",
			stdin:   `{"employer":"acme"}`,
			args:    []string{"--term", "employer"},
			want:    []string{`"employer":"` + xmask.Token + `"`},
			notWant: "acme",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, tt.stdin, append([]string{"mask"}, tt.args...)...)
			require.Equal(t, 0, code, errOut)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			assert.NotContains(t, out, tt.notWant)
		})
	}
}

func TestMask_FileAndErrors(t *testing.T) {
	path := writeConfig(t, "in.json", `{"token":"abc"}`)
	code, out, _ := runCLI(t, "", "mask", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, xmask.Token)

	code, _, _ = runCLI(t, "x", "mask", "--format", "xml")
	assert.Equal(t, 2, code)

	code, _, _ = runCLI(t, "", "mask", "a", "b")
	assert.Equal(t, 2, code)

	code, _, errOut := runCLI(t, "", "mask", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "错误")
}

func TestErrcode(t *testing.T) {
	code, out, _ := runCLI(t, "", "errcode", "*errors.errorString", "main.ValidationError")
	require.Equal(t, 0, code)
	assert.Contains(t, out, xexec.ErrorCode("*errors.errorString")+"\t*errors.errorString")
	assert.Contains(t, out, xexec.ErrorCode("main.ValidationError"))

	code, out, _ = runCLI(t, "", "errcode", xexec.ErrorKey(xexec.ErrNotFound))
	assert.Equal(t, 0, code)
	assert.Contains(t, out, xexec.ErrorCode("errors.errorString:not found")+"\terrors.errorString:not found")

	code, _, errOut := runCLI(t, "", "errcode")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "参数错误")
}

func TestUnknownFlag(t *testing.T) {
	code, _, _ := runCLI(t, "", "errcode", "--nope")
	assert.Equal(t, 2, code)
}

func TestCheck(t *testing.T) {
	path := writeConfig(t, "xdiag.yaml", "async:\n  workers: 8\ninterceptor:\n  slow_threshold: 2s\n")
	code, out, _ := runCLI(t, "", "check", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "async.workers=8")
	assert.Contains(t, out, "interceptor.slow_threshold=2s")
	assert.Contains(t, out, "log.level=info")

	bad := writeConfig(t, "bad.yaml", "async:\n  workers: 0\n")
	code, _, errOut := runCLI(t, "", "check", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "async.workers")

	code, _, _ = runCLI(t, "", "check")
	assert.Equal(t, 2, code)
}

// =============================================================================
// serve
// =============================================================================

func newTestApp(t *testing.T, s xconf.Settings) (*app, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	a, err := newApp(s, buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.close() })
	return a, buf
}

func TestApp_RequestFlow(t *testing.T) {
	s := xconf.DefaultSettings()
	s.Log.Format = "json"
	a, logs := newTestApp(t, s)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := `{"name":"Ada","email":"ada@example.com","password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/api/candidates", strings.NewReader(body))
	req.Header.Set("X-Correlation-ID", "corr-serve")
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "corr-serve", rec.Header().Get("X-Correlation-ID"))

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "notification sent")
	}, 5*time.Second, 10*time.Millisecond)

	out := logs.String()
	assert.Contains(t, out, "Register completed")
	assert.Contains(t, out, `"correlation_id":"corr-serve"`)
	assert.Contains(t, out, "POST /api/candidates 201")
	assert.NotContains(t, out, "correct-horse")
}

func TestApp_SessionTokenNeverLogged(t *testing.T) {
	s := xconf.DefaultSettings()
	s.Log.Format = "json"
	a, logs := newTestApp(t, s)

	post := func(path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
		return rec
	}
	rec := post("/api/candidates", `{"name":"Ada","email":"ada@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = post("/api/sessions", `{"email":"ada@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sess struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/candidates/me", nil)
	req.AddCookie(&http.Cookie{Name: ats.SessionCookie, Value: sess.Token})
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	out := logs.String()
	assert.Contains(t, out, "GET /api/candidates/me 404")
	assert.Contains(t, out, xctx.SessionRef(sess.Token))
	assert.NotContains(t, out, sess.Token)
}

func TestApp_Reload(t *testing.T) {
	a, logs := newTestApp(t, xconf.DefaultSettings())

	next := xconf.DefaultSettings()
	next.Log.Level = "debug"
	next.Interceptor.SlowThreshold = 2 * time.Second
	a.reload(next, nil)
	assert.Equal(t, xlog.LevelDebug, a.logger.GetLevel())
	assert.Equal(t, 2*time.Second, a.ic.SlowThreshold())
	assert.Contains(t, logs.String(), "config reloaded")

	a.reload(xconf.Settings{}, xconf.ErrInvalidSettings)
	assert.Equal(t, xlog.LevelDebug, a.logger.GetLevel())
	assert.Contains(t, logs.String(), "config reload rejected")
}

func TestLoggableFrom(t *testing.T) {
	is := xconf.DefaultSettings().Interceptor
	l, err := loggableFrom(is)
	require.NoError(t, err)
	assert.Equal(t, xlog.LevelInfo, l.Level)
	assert.Equal(t, xlog.LevelError, l.FailureLevel)
	assert.True(t, l.LogErrors)

	is.FailureLevel = "loud"
	_, err = loggableFrom(is)
	assert.ErrorIs(t, err, xlog.ErrUnknownLevel)
}

func TestCmdServe_StopsOnCancel(t *testing.T) {
	path := writeConfig(t, "xdiag.yaml", "log:\n  level: warn\n")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- cmdServe(ctx, serveOptions{
			configPath:      path,
			addr:            "127.0.0.1:0",
			shutdownTimeout: time.Second,
			logOutput:       &syncBuffer{},
			noSignals:       true,
		})
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestCmdServe_BadConfig(t *testing.T) {
	path := writeConfig(t, "bad.yaml", "log:\n  level: loud\n")
	err := cmdServe(context.Background(), serveOptions{configPath: path, addr: "127.0.0.1:0", noSignals: true})
	assert.ErrorIs(t, err, xconf.ErrInvalidSettings)
}
