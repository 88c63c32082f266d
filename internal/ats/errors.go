package ats

import (
	"errors"
	"fmt"

	"github.com/omeyang/xdiag/pkg/observability/xexec"
)

// 业务错误均包装 xexec 的预期错误，拦截器据此降级为 WARN。
var (
	ErrCandidateNotFound   = fmt.Errorf("candidate %w", xexec.ErrNotFound)
	ErrApplicationNotFound = fmt.Errorf("application %w", xexec.ErrNotFound)
	ErrDuplicateEmail      = fmt.Errorf("%w: email already registered", xexec.ErrValidation)
	ErrInvalidTransition   = fmt.Errorf("%w: status transition not allowed", xexec.ErrValidation)
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid email or password", xexec.ErrAuthentication)
)

// ErrNilDependency 构造 Service/Handler 时缺少依赖
var ErrNilDependency = errors.New("ats: nil dependency")
