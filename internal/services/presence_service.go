package services

import (
	"context"
	"errors"
	"time"

	"roomchat/internal/repositories/postgres"
)

// PresenceService keeps the durable online flag and last-seen time in the
// users table and mirrors it into Redis for fast lookups.
type PresenceService struct {
	users *postgres.UserRepository
	redis *RedisService
}

func NewPresenceService(users *postgres.UserRepository, redis *RedisService) *PresenceService {
	return &PresenceService{
		users: users,
		redis: redis,
	}
}

// SetPresence writes to both stores; a failure in one does not skip the other.
func (s *PresenceService) SetPresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error {
	var errs []error

	if err := s.users.UpdatePresence(ctx, userID, online, lastSeen); err != nil {
		errs = append(errs, err)
	}

	if s.redis != nil {
		var err error
		if online {
			err = s.redis.SetUserOnline(ctx, userID, lastSeen)
		} else {
			err = s.redis.SetUserOffline(ctx, userID, lastSeen)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
