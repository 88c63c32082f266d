package ats

import "time"

// Status 申请状态
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusScreening Status = "screening"
	StatusInterview Status = "interview"
	StatusOffered   Status = "offered"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

// transitions 允许的状态迁移，终态不出现在 key 中
var transitions = map[Status][]Status{
	StatusSubmitted: {StatusScreening, StatusRejected, StatusWithdrawn},
	StatusScreening: {StatusInterview, StatusRejected, StatusWithdrawn},
	StatusInterview: {StatusOffered, StatusRejected, StatusWithdrawn},
}

// CanTransition 判断 from → to 是否合法
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Candidate 候选人
type Candidate struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email" mask:"email"`
	Phone        string    `json:"phone,omitempty" mask:"partial,3,2"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Application 职位申请
type Application struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidate_id"`
	Position    string    `json:"position"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RegisterRequest 注册候选人
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,e164"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ApplyRequest 提交申请
type ApplyRequest struct {
	Position string `json:"position" validate:"required,max=200"`
}

// StatusRequest 更新申请状态
type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=screening interview offered rejected withdrawn"`
}

// LoginRequest 登录
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session 登录成功后签发的会话
type Session struct {
	Token       string `json:"token"`
	CandidateID string `json:"candidate_id"`
}
