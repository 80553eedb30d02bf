package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/utsingh/portfolio-api/internal/portfolio"
	"github.com/utsingh/portfolio-api/internal/portfolio/repository"
	"github.com/utsingh/portfolio-api/pkg/logger"
	"github.com/utsingh/portfolio-api/pkg/metrics"
)

// Result is what a mutation reports back to the transport layer.
type Result struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Item    map[string]interface{} `json:"item,omitempty"`
}

// Cache is the optional read-through cache for the whole data mapping.
type Cache interface {
	Get(ctx context.Context) (map[string]interface{}, bool, error)
	Set(ctx context.Context, data map[string]interface{}) error
	Invalidate(ctx context.Context) error
}

// Service is the portfolio API surface used by HTTP handlers.
type Service interface {
	GetAll(ctx context.Context) (map[string]interface{}, error)
	ReplaceAll(ctx context.Context, data map[string]interface{}) (Result, error)
	GetSection(ctx context.Context, section string) (interface{}, error)
	ReplaceSection(ctx context.Context, section string, value interface{}) (Result, error)
	AddItem(ctx context.Context, section, field string, item map[string]interface{}) (Result, error)
	RemoveItem(ctx context.Context, section, field, itemID string) (Result, error)
	ReplaceItem(ctx context.Context, section, field, itemID string, item map[string]interface{}) (Result, error)
	// Seed inserts data only into an empty store.
	Seed(ctx context.Context, data map[string]interface{}) (bool, error)
}

type service struct {
	repo  repository.Repository
	cache Cache
}

// Option configures the service.
type Option func(*service)

// WithCache enables the read cache for GetAll.
func WithCache(c Cache) Option {
	return func(s *service) { s.cache = c }
}

func NewService(repo repository.Repository, opts ...Option) Service {
	s := &service{repo: repo}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemoryService is a convenience for tests and STORE_BACKEND=memory.
func NewMemoryService() Service {
	return NewService(repository.NewMemoryRepo())
}

func (s *service) GetAll(ctx context.Context) (map[string]interface{}, error) {
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			logger.Warnf("portfolio cache read failed: %v", err)
			metrics.CacheLookups.WithLabelValues("error").Inc()
		case ok:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			observe("get_all", nil)
			return data, nil
		default:
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	data, err := s.repo.GetData(ctx)
	observe("get_all", err)
	if err != nil {
		logger.Errorf("error fetching portfolio data: %v", err)
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, data); err != nil {
			logger.Warnf("portfolio cache write failed: %v", err)
		}
	}
	return data, nil
}

func (s *service) ReplaceAll(ctx context.Context, data map[string]interface{}) (Result, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	err := s.repo.ReplaceData(ctx, data)
	observe("replace_all", err)
	if err != nil {
		logger.Errorf("error updating portfolio data: %v", err)
		return Result{}, err
	}
	s.invalidate(ctx)
	return Result{Success: true, Message: "Portfolio data updated successfully"}, nil
}

func (s *service) GetSection(ctx context.Context, section string) (interface{}, error) {
	t, err := portfolio.SectionTarget(section)
	if err != nil {
		observe("get_section", err)
		return nil, err
	}
	v, err := s.repo.GetSection(ctx, t)
	observe("get_section", err)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Errorf("error fetching %s data: %v", section, err)
		}
		return nil, err
	}
	return v, nil
}

func (s *service) ReplaceSection(ctx context.Context, section string, value interface{}) (Result, error) {
	t, err := portfolio.SectionTarget(section)
	if err != nil {
		observe("replace_section", err)
		return Result{}, err
	}
	err = s.repo.ReplaceSection(ctx, t, value)
	observe("replace_section", err)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Errorf("error updating %s data: %v", section, err)
		}
		return Result{}, err
	}
	s.invalidate(ctx)
	return Result{Success: true, Message: fmt.Sprintf("%s data updated successfully", section)}, nil
}

func (s *service) AddItem(ctx context.Context, section, field string, item map[string]interface{}) (Result, error) {
	t, err := portfolio.ArrayTarget(section, field)
	if err != nil {
		observe("add_item", err)
		return Result{}, err
	}
	stored, err := s.repo.AddItem(ctx, t, item)
	observe("add_item", err)
	if err != nil {
		logger.Errorf("error adding item to %s: %v", t, err)
		return Result{}, err
	}
	s.invalidate(ctx)
	return Result{Success: true, Message: "Item added successfully", Item: stored}, nil
}

func (s *service) RemoveItem(ctx context.Context, section, field, itemID string) (Result, error) {
	t, err := portfolio.ArrayTarget(section, field)
	if err != nil {
		observe("remove_item", err)
		return Result{}, err
	}
	err = s.repo.RemoveItem(ctx, t, portfolio.ParseIdentifier(itemID))
	observe("remove_item", err)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Errorf("error deleting item %s from %s: %v", itemID, t, err)
		}
		return Result{}, err
	}
	s.invalidate(ctx)
	return Result{Success: true, Message: "Item deleted successfully"}, nil
}

func (s *service) ReplaceItem(ctx context.Context, section, field, itemID string, item map[string]interface{}) (Result, error) {
	t, err := portfolio.ArrayTarget(section, field)
	if err != nil {
		observe("replace_item", err)
		return Result{}, err
	}
	stored, err := s.repo.ReplaceItem(ctx, t, portfolio.ParseIdentifier(itemID), item)
	observe("replace_item", err)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Errorf("error updating item %s in %s: %v", itemID, t, err)
		}
		return Result{}, err
	}
	s.invalidate(ctx)
	return Result{Success: true, Message: "Item updated successfully", Item: stored}, nil
}

func (s *service) Seed(ctx context.Context, data map[string]interface{}) (bool, error) {
	inserted, err := s.repo.Seed(ctx, data)
	observe("seed", err)
	if err != nil {
		return false, err
	}
	if inserted {
		s.invalidate(ctx)
	}
	return inserted, nil
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Warnf("portfolio cache invalidate failed: %v", err)
	}
}

func observe(op string, err error) {
	metrics.StoreOperations.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, portfolio.ErrInvalidTarget):
		return "invalid"
	case errors.Is(err, repository.ErrNotArray):
		return "conflict"
	}
	return "error"
}
