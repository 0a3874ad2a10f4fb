// Package vpncode owns the code ledger: idempotent distribution of the
// single active code and the admin mutations over codes and channels.
package vpncode

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"vpngatebot/internal/store"
	"vpngatebot/internal/subs"
)

// ErrNoCodeAvailable means no active code has been set yet.
var ErrNoCodeAvailable = errors.New("no VPN codes available")

// ChannelNotAuthorizedError means the bot lacks admin rights in a channel
// proposed for the required list. The whole update is aborted.
type ChannelNotAuthorizedError struct {
	Channel string
}

func (e *ChannelNotAuthorizedError) Error() string {
	return fmt.Sprintf("bot is not an administrator in %s", e.Channel)
}

// Store is the persistence surface the engine needs.
type Store interface {
	UpdateLedger(ctx context.Context, fn func(*store.CodeLedger) (bool, error)) error
	SaveChannels(ctx context.Context, channels []string) error
}

// Service is the code distribution engine. It also holds the in-memory
// required-channel list, loaded once at startup and replaced only through
// UpdateChannels.
type Service struct {
	store Store
	gw    subs.MembershipChecker
	botID int64
	log   *zap.Logger

	mu       sync.RWMutex
	channels []string
}

// New builds the engine. channels is the list loaded from the store at
// process start; botID is the bot's own Telegram user ID, needed to verify
// its admin rights during channel updates.
func New(st Store, gw subs.MembershipChecker, botID int64, channels []string, log *zap.Logger) *Service {
	return &Service{
		store:    st,
		gw:       gw,
		botID:    botID,
		log:      log,
		channels: append([]string(nil), channels...),
	}
}

// Channels returns a copy of the current required-channel list.
func (s *Service) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.channels...)
}

// GetCode grants the active code to a user. The grant is idempotent: while
// the active code is unchanged, repeated calls return the same code and
// never write. When the active code has moved on, the user is migrated to
// it and the ledger persisted.
func (s *Service) GetCode(ctx context.Context, userID int64) (string, error) {
	key := store.UserKey(userID)
	var code string
	err := s.store.UpdateLedger(ctx, func(l *store.CodeLedger) (bool, error) {
		if l.ActiveCode == "" || len(l.AvailableCodes) == 0 {
			return false, ErrNoCodeAvailable
		}
		code = l.ActiveCode
		if l.UserCodes[key] == l.ActiveCode {
			return false, nil
		}
		if l.UserCodes == nil {
			l.UserCodes = map[string]string{}
		}
		l.UserCodes[key] = l.ActiveCode
		return true, nil
	})
	if err != nil {
		return "", err
	}
	s.log.Info("granted VPN code", zap.Int64("user_id", userID))
	return code, nil
}

// SetActiveCode replaces the available pool with the singleton code and
// makes it active. Existing user assignments are left alone; each user is
// re-synced on their next GetCode.
func (s *Service) SetActiveCode(ctx context.Context, code string) error {
	err := s.store.UpdateLedger(ctx, func(l *store.CodeLedger) (bool, error) {
		l.AvailableCodes = []string{code}
		l.ActiveCode = code
		return true, nil
	})
	if err != nil {
		return err
	}
	s.log.Info("active VPN code replaced")
	return nil
}

// UpdateChannels replaces the required-channel list. Every proposed channel
// must report the bot as administrator or creator; the first failure aborts
// the whole batch with nothing persisted. Returns the previous list.
func (s *Service) UpdateChannels(ctx context.Context, channels []string) ([]string, error) {
	for _, channel := range channels {
		status, err := s.gw.MemberStatus(ctx, channel, s.botID)
		if err != nil {
			s.log.Warn("bot admin check failed",
				zap.String("channel", channel), zap.Error(err))
			return nil, &ChannelNotAuthorizedError{Channel: channel}
		}
		if !subs.Administrator(status) {
			return nil, &ChannelNotAuthorizedError{Channel: channel}
		}
	}

	if err := s.store.SaveChannels(ctx, channels); err != nil {
		return nil, err
	}

	s.mu.Lock()
	old := s.channels
	s.channels = append([]string(nil), channels...)
	s.mu.Unlock()

	s.log.Info("required channels updated",
		zap.Strings("old", old), zap.Strings("new", channels))
	return old, nil
}
