package services

import (
	"context"
	"sync"
	"time"

	"server/config"
	"server/internal/database"
	"server/internal/logger"

	"github.com/google/uuid"
)

type sessionRecord struct {
	AdminEmail string    `json:"adminEmail"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SessionService stores admin sessions: an opaque random id cookie mapped to
// the admin's email. Sessions expire after a fixed lifetime from creation
// and slide out after a period of inactivity. Backed by the valkey session
// bucket when configured, otherwise held in process.
type SessionService struct {
	client     database.CacheClient
	lifetime   time.Duration
	inactivity time.Duration
	log        logger.Logger

	mu    sync.Mutex
	local map[string]sessionRecord
}

func NewSessionService(db database.DB, config config.Config) *SessionService {
	return &SessionService{
		client:     db.Cache.Session,
		lifetime:   time.Duration(config.SessionLifetimeHours) * time.Hour,
		inactivity: time.Duration(config.SessionInactivityMinutes) * time.Minute,
		log:        logger.New("SessionService"),
		local:      make(map[string]sessionRecord),
	}
}

func (s *SessionService) Create(ctx context.Context, adminEmail string) (string, error) {
	log := s.log.Function("Create")

	sessionID := uuid.New().String()
	record := sessionRecord{AdminEmail: adminEmail, CreatedAt: time.Now().UTC()}

	if s.client == nil {
		s.mu.Lock()
		s.local[sessionID] = record
		s.mu.Unlock()
		return sessionID, nil
	}

	if err := database.NewCacheBuilder(s.client, sessionKey(sessionID)).
		WithStruct(record).
		WithTTL(s.inactivity).
		WithContext(ctx).
		Set(); err != nil {
		return "", log.Err("failed to store session", err)
	}

	return sessionID, nil
}

// Get resolves a session id to the admin email it was created for, renewing
// the inactivity window on use. Expired or unknown sessions return "".
func (s *SessionService) Get(ctx context.Context, sessionID string) (string, error) {
	log := s.log.Function("Get")

	if sessionID == "" {
		return "", nil
	}

	var record sessionRecord
	if s.client == nil {
		s.mu.Lock()
		stored, ok := s.local[sessionID]
		s.mu.Unlock()
		if !ok {
			return "", nil
		}
		record = stored
	} else {
		found, err := database.NewCacheBuilder(s.client, sessionKey(sessionID)).
			WithContext(ctx).
			Get(&record)
		if err != nil {
			return "", log.Err("failed to load session", err)
		}
		if !found {
			return "", nil
		}
	}

	if time.Since(record.CreatedAt) > s.lifetime {
		_ = s.Destroy(ctx, sessionID)
		return "", nil
	}

	if s.client != nil {
		// Sliding inactivity window: refresh the TTL on every use.
		if err := database.NewCacheBuilder(s.client, sessionKey(sessionID)).
			WithStruct(record).
			WithTTL(s.inactivity).
			WithContext(ctx).
			Set(); err != nil {
			log.Warn("failed to refresh session", "error", err)
		}
	}

	return record.AdminEmail, nil
}

func (s *SessionService) Destroy(ctx context.Context, sessionID string) error {
	if s.client == nil {
		s.mu.Lock()
		delete(s.local, sessionID)
		s.mu.Unlock()
		return nil
	}

	return database.NewCacheBuilder(s.client, sessionKey(sessionID)).
		WithContext(ctx).
		Delete()
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
