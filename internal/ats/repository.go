package ats

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// Repository 候选人与申请的存储
type Repository interface {
	CreateCandidate(ctx context.Context, c Candidate) error
	Candidate(ctx context.Context, id string) (Candidate, error)
	CandidateByEmail(ctx context.Context, email string) (Candidate, error)
	CreateApplication(ctx context.Context, a Application) error
	Application(ctx context.Context, id string) (Application, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (Application, error)
	Applications(ctx context.Context, candidateID string) ([]Application, error)
}

// MemoryRepository 进程内存储，用于演示与测试
type MemoryRepository struct {
	mu           sync.RWMutex
	candidates   map[string]Candidate
	emails       map[string]string
	applications map[string]Application
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository 创建空的内存存储
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		candidates:   make(map[string]Candidate),
		emails:       make(map[string]string),
		applications: make(map[string]Application),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateCandidate 邮箱重复时返回 ErrDuplicateEmail
func (r *MemoryRepository) CreateCandidate(_ context.Context, c Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := normalizeEmail(c.Email)
	if _, ok := r.emails[email]; ok {
		return ErrDuplicateEmail
	}
	r.candidates[c.ID] = c
	r.emails[email] = c.ID
	return nil
}

func (r *MemoryRepository) Candidate(_ context.Context, id string) (Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.candidates[id]
	if !ok {
		return Candidate{}, ErrCandidateNotFound
	}
	return c, nil
}

func (r *MemoryRepository) CandidateByEmail(_ context.Context, email string) (Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.emails[normalizeEmail(email)]
	if !ok {
		return Candidate{}, ErrCandidateNotFound
	}
	return r.candidates[id], nil
}

// CreateApplication 候选人不存在时返回 ErrCandidateNotFound
func (r *MemoryRepository) CreateApplication(_ context.Context, a Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.candidates[a.CandidateID]; !ok {
		return ErrCandidateNotFound
	}
	r.applications[a.ID] = a
	return nil
}

func (r *MemoryRepository) Application(_ context.Context, id string) (Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.applications[id]
	if !ok {
		return Application{}, ErrApplicationNotFound
	}
	return a, nil
}

// UpdateStatus 以 from 做乐观校验，当前状态不是 from 时返回 ErrInvalidTransition
func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, from, to Status, at time.Time) (Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.applications[id]
	if !ok {
		return Application{}, ErrApplicationNotFound
	}
	if a.Status != from {
		return Application{}, ErrInvalidTransition
	}
	a.Status = to
	a.UpdatedAt = at
	r.applications[id] = a
	return a, nil
}

// Applications 按创建时间升序返回候选人的全部申请
func (r *MemoryRepository) Applications(_ context.Context, candidateID string) ([]Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.candidates[candidateID]; !ok {
		return nil, ErrCandidateNotFound
	}
	out := make([]Application, 0)
	for _, a := range r.applications {
		if a.CandidateID == candidateID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b Application) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}
