package settings

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// ErrInvalidKey is returned for empty or malformed setting keys
var ErrInvalidKey = errors.New("invalid setting key")

// Service manages runtime settings
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new settings service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "settings_service").Logger(),
	}
}

// Get returns a setting value, nil when unset
func (s *Service) Get(key string) (*string, error) {
	key = normalizeKey(key)
	if key == "" {
		return nil, ErrInvalidKey
	}
	return s.repo.Get(key)
}

// Set stores a setting
func (s *Service) Set(key, value string) error {
	key = normalizeKey(key)
	if key == "" {
		return ErrInvalidKey
	}
	if err := s.repo.Set(key, value); err != nil {
		return err
	}
	s.log.Info().Str("key", key).Msg("Setting updated")
	return nil
}

// Delete removes a setting
func (s *Service) Delete(key string) error {
	key = normalizeKey(key)
	if key == "" {
		return ErrInvalidKey
	}
	return s.repo.Delete(key)
}

// All returns every setting with secret values masked
func (s *Service) All() (map[string]string, error) {
	all, err := s.repo.All()
	if err != nil {
		return nil, err
	}
	for key, value := range all {
		if isSecretKey(key) && value != "" {
			all[key] = maskValue(value)
		}
	}
	return all, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func isSecretKey(key string) bool {
	return strings.Contains(key, "key") || strings.Contains(key, "secret") ||
		strings.Contains(key, "token") || strings.Contains(key, "password")
}

func maskValue(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
