package xctx

import (
	"context"
	"strings"
)

// Principal 已认证调用方的描述。
//
// 由认证层（JWT 校验等，不在本模块内）写入 context，xrequest 中间件读取后
// 写入 Store 的 user_id / user_roles。
type Principal struct {
	UserID string
	Roles  []string
}

// IsAuthenticated 判断是否为有效的已认证主体。
func (p Principal) IsAuthenticated() bool {
	return strings.TrimSpace(p.UserID) != ""
}

// RolesString 以逗号拼接角色，跳过空白角色。
func (p Principal) RolesString() string {
	if len(p.Roles) == 0 {
		return ""
	}
	roles := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return strings.Join(roles, ",")
}

// WithPrincipal 将认证主体注入 context。
//
// 如果 ctx 为 nil，返回 ErrNilContext。
func WithPrincipal(ctx context.Context, p Principal) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyPrincipal, p), nil
}

// PrincipalFrom 从 context 读取认证主体。
// 未设置或 UserID 为空时 ok 为 false。
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(keyPrincipal).(Principal)
	if !ok || !p.IsAuthenticated() {
		return Principal{}, false
	}
	return p, true
}

// ApplyPrincipal 将主体写入 Store：已认证写 user_id 与 user_roles，
// 否则 user_id 写 AnonymousUserID。Store 因此永远不会缺少 user_id。
func ApplyPrincipal(s *Store, p Principal, authenticated bool) {
	if s == nil {
		return
	}
	if !authenticated || !p.IsAuthenticated() {
		s.Put(KeyUserID, AnonymousUserID)
		s.Remove(KeyUserRoles)
		return
	}
	s.Put(KeyUserID, strings.TrimSpace(p.UserID))
	if roles := p.RolesString(); roles != "" {
		s.Put(KeyUserRoles, roles)
	} else {
		s.Remove(KeyUserRoles)
	}
}
