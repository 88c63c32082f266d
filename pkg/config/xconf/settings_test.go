package xconf

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xdiag/pkg/observability/xlog"
	"github.com/omeyang/xdiag/pkg/util/xpool"
)

func TestDefaultSettings_Valid(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, 800*time.Millisecond, s.Interceptor.SlowThreshold)
	assert.Equal(t, "X-Correlation-ID", s.Request.CorrelationHeader)
	assert.Equal(t, 4, s.Async.Workers)
	assert.True(t, s.Log.Mask)
}

func TestLoadSettingsBytes_Overlay(t *testing.T) {
	data := []byte(`
log:
  level: debug
  format: json
interceptor:
  failure_level: fatal
  slow_threshold: 250ms
  sensitive_params: [pin]
  log_result: true
request:
  exempt_prefixes: [/livez]
async:
  saturation: reject
  workers: "2"
`)
	s, err := LoadSettingsBytes(data, FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "json", s.Log.Format)
	assert.True(t, s.Log.Mask, "未出现的字段保持默认值")
	assert.Equal(t, "fatal", s.Interceptor.FailureLevel)
	assert.Equal(t, 250*time.Millisecond, s.Interceptor.SlowThreshold)
	assert.Equal(t, []string{"pin"}, s.Interceptor.SensitiveParams)
	assert.True(t, s.Interceptor.LogResult)
	assert.True(t, s.Interceptor.LogArgs)
	assert.Equal(t, []string{"/livez"}, s.Request.ExemptPrefixes)
	assert.Equal(t, "reject", s.Async.Saturation)
	assert.Equal(t, 2, s.Async.Workers)
	assert.Equal(t, 100, s.Async.QueueSize)

	lvl, err := xlog.ParseLevel(s.Interceptor.FailureLevel)
	require.NoError(t, err)
	assert.Equal(t, xlog.LevelFatal, lvl)
	sat, err := xpool.ParseSaturation(s.Async.Saturation)
	require.NoError(t, err)
	assert.Equal(t, xpool.SaturationReject, sat)
}

func TestLoadSettingsBytes_JSON(t *testing.T) {
	s, err := LoadSettingsBytes([]byte(`{"async":{"name":"mailer","queue_size":10}}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "mailer", s.Async.Name)
	assert.Equal(t, 10, s.Async.QueueSize)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"日志级别", func(s *Settings) { s.Log.Level = "loud" }, "log.level"},
		{"日志格式", func(s *Settings) { s.Log.Format = "xml" }, "log.format"},
		{"失败级别", func(s *Settings) { s.Interceptor.FailureLevel = "panic" }, "interceptor.failure_level"},
		{"慢阈值", func(s *Settings) { s.Interceptor.SlowThreshold = 0 }, "interceptor.slow_threshold"},
		{"内容长度", func(s *Settings) { s.Interceptor.MaxContentLength = -1 }, "interceptor.max_content_length"},
		{"关联头", func(s *Settings) { s.Request.CorrelationHeader = " " }, "request.correlation_header"},
		{"worker", func(s *Settings) { s.Async.Workers = 0 }, "async.workers"},
		{"队列", func(s *Settings) { s.Async.QueueSize = 0 }, "async.queue_size"},
		{"饱和策略", func(s *Settings) { s.Async.Saturation = "drop" }, "async.saturation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			require.ErrorIs(t, err, ErrInvalidSettings)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	s := DefaultSettings()
	s.Log.Level = "x"
	s.Async.Workers = 0
	err := s.Validate()
	require.ErrorIs(t, err, ErrInvalidSettings)
	assert.ErrorIs(t, err, xlog.ErrUnknownLevel)
	assert.Contains(t, err.Error(), "async.workers")
}

func TestLoadSettings(t *testing.T) {
	path := createTempFile(t, "xdiag.yaml", "log:\n  level: warn\n")
	s, cfg, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", s.Log.Level)
	assert.Equal(t, path, cfg.Path())

	require.NoError(t, os.WriteFile(path, []byte("async:\n  workers: -1\n"), 0600))
	_, _, err = LoadSettings(path)
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, _, err = LoadSettings("")
	assert.ErrorIs(t, err, ErrEmptyPath)
}
