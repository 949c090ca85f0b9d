package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hazyhaar/xmlprofile/profile"
)

// ErrNoActiveProfile is returned by Active when no profile is open.
var ErrNoActiveProfile = errors.New("registry: no active profile")

// Session owns the single active profile of a process.
type Session struct {
	reg    *Registry
	base   profile.Config
	logger *slog.Logger

	mu     sync.Mutex
	active *profile.Profile
}

// NewSession returns a Session that opens profiles with base settings
// (DBPath is replaced per Activate) and records them in reg.
func NewSession(reg *Registry, base profile.Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{reg: reg, base: base, logger: logger}
}

// Activate closes the active profile, if any, then opens the one at path
// and registers it. When opening fails no profile is active afterwards.
func (s *Session) Activate(ctx context.Context, path string) (*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeLocked(); err != nil {
		s.logger.Warn("registry: close previous profile", "error", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := s.base
	cfg.DBPath = path
	p, err := profile.Open(&cfg, s.logger)
	if err != nil {
		return nil, err
	}
	if s.reg != nil {
		if err := s.reg.Add(path); err != nil {
			p.Close()
			return nil, err
		}
	}
	s.active = p
	s.logger.Info("registry: profile activated", "path", path)
	return p, nil
}

// Active returns the active profile.
func (s *Session) Active() (*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, ErrNoActiveProfile
	}
	return s.active, nil
}

// Close closes the active profile. Safe to call repeatedly.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Session) closeLocked() error {
	if s.active == nil {
		return nil
	}
	err := s.active.Close()
	s.active = nil
	return err
}
