package store

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/chaos-io/tryon/tryon"
)

// Factory 按用户资料创建会话
type Factory func(profile tryon.Profile) *tryon.Session

type entry struct {
	session  *tryon.Session
	lastSeen time.Time
}

// SessionStore 内存中的会话表，空闲超过 ttl 的会话由定时任务清理
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	factory  Factory
	logger   *zap.Logger
	now      func() time.Time
	cron     *cron.Cron
}

func New(ttl time.Duration, factory Factory, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		factory:  factory,
		logger:   logger,
		now:      time.Now,
	}
}

// Create 新建会话并返回 ID
func (s *SessionStore) Create(profile tryon.Profile) (string, *tryon.Session) {
	id := ksuid.New().String()
	session := s.factory(profile)

	s.mu.Lock()
	s.sessions[id] = &entry{session: session, lastSeen: s.now()}
	s.mu.Unlock()

	s.logger.Debug("session created", zap.String("session", id), zap.String("profile", profile.ID))
	return id, session
}

// Get 取会话并刷新活跃时间
func (s *SessionStore) Get(id string) (*tryon.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.session, true
}

func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep 删除空闲超时的会话，返回删除数量
func (s *SessionStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	deadline := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if e.lastSeen.Before(deadline) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Start 按 cron 表达式定期清理，例如 "@every 1m"
func (s *SessionStore) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := s.Sweep(); n > 0 {
			s.logger.Info("expired sessions removed", zap.Int("count", n), zap.Int("remaining", s.Len()))
		}
	})
	if err != nil {
		return err
	}
	s.cron = c
	c.Start()
	return nil
}

// Stop 停止定时任务并等待正在执行的清理结束
func (s *SessionStore) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
