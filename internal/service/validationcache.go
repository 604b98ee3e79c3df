package service

import (
	"context"
	"strconv"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
)

const validationReportPrefix = "validation-report:"

// ValidationCacheService drops validation reports kept for editing sessions.
type ValidationCacheService struct {
	mc *memcache.Client
}

func NewValidationCacheService(mc *memcache.Client) *ValidationCacheService {
	return &ValidationCacheService{mc: mc}
}

func (s *ValidationCacheService) Clear(ctx context.Context, id int64) error {
	err := s.mc.Delete(ValidationReportKey(id))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return errors.Wrap(err, "clear validation report")
	}
	return nil
}

func ValidationReportKey(id int64) string {
	return validationReportPrefix + strconv.FormatInt(id, 10)
}
