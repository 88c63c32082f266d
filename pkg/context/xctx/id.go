package xctx

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/sony/sonyflake/v2"
)

// =============================================================================
// ID 生成
// =============================================================================

// GenerateCorrelationID 生成 correlation ID（UUIDv4 字符串）。
//
// correlation ID 可能来自客户端，也会回写到响应头，因此使用通用的 UUID 格式。
func GenerateCorrelationID() string {
	return uuid.NewString()
}

var (
	flakeOnce sync.Once
	flake     *sonyflake.Sonyflake
)

// GenerateRequestID 生成 request ID。
//
// 优先使用 sonyflake（时间有序、短小，便于按时间排查），格式为 36 进制字符串；
// 当 sonyflake 不可用（如容器内找不到私有 IP 作为机器 ID）或时间分量溢出时，
// 降级为去掉连字符的 UUID。request ID 永远在服务端生成，不接受客户端传入。
func GenerateRequestID() string {
	flakeOnce.Do(func() {
		sf, err := sonyflake.New(sonyflake.Settings{})
		if err == nil {
			flake = sf
		}
	})
	if flake != nil {
		if id, err := flake.NextID(); err == nil {
			return strconv.FormatInt(id, 36)
		}
	}
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// SessionRef 返回会话凭据的不可逆引用（xxhash64 的 16 位十六进制），空值返回空串。
//
// 会话 cookie 往往就是认证 token，Store 中只保存引用，同一会话的日志仍可按引用聚合。
func SessionRef(raw string) string {
	if raw == "" {
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(raw))
}
