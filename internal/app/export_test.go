package service

import (
	"context"

	"github.com/okian/skillgrade/internal/adapters/repository"
)

// WithStoreOpener replaces the config-driven store factory.
func WithStoreOpener(open func(context.Context) (repository.Store, error)) Option {
	return func(s *Service) { s.storeOpener = open }
}
