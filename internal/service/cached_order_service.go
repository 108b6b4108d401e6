package service

import (
	"context"
	"encoding/json"
	"time"

	"storefront/internal/cache"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// cachedOrderService serves GetByNumber from a cache and drops the entry on
// every write to the order. Cache failures degrade to the wrapped service.
type cachedOrderService struct {
	next   OrderService
	cache  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedOrderService wraps next with a read-through cache.
func NewCachedOrderService(next OrderService, c cache.Cache, ttl time.Duration, logger zerolog.Logger) OrderService {
	return &cachedOrderService{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger.With().Str("service", "order-cache").Logger(),
	}
}

func (s *cachedOrderService) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.Order, error) {
	return s.next.CreateOrder(ctx, req)
}

func (s *cachedOrderService) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	key := s.cache.GenerateKey("order", orderNumber)

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_number", orderNumber).Msg("cache read failed")
	}
	if cached != "" {
		var order model.Order
		if err := json.Unmarshal([]byte(cached), &order); err == nil {
			s.logger.Debug().Str("order_number", orderNumber).Msg("order served from cache")
			return &order, nil
		}
		s.logger.Warn().Str("order_number", orderNumber).Msg("discarding undecodable cache entry")
	}

	order, err := s.next.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(order); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("order_number", orderNumber).Msg("cache write failed")
		}
	}

	return order, nil
}

func (s *cachedOrderService) List(ctx context.Context, filter model.ListOrdersFilter) ([]model.Order, error) {
	return s.next.List(ctx, filter)
}

func (s *cachedOrderService) UpdateItems(ctx context.Context, orderNumber string, req *model.UpdateOrderItemsRequest) (*model.Order, error) {
	order, err := s.next.UpdateItems(ctx, orderNumber, req)
	s.invalidate(ctx, orderNumber)
	return order, err
}

func (s *cachedOrderService) UpdateStatus(ctx context.Context, orderNumber string, req *model.UpdateOrderStatusRequest) (*model.Order, error) {
	order, err := s.next.UpdateStatus(ctx, orderNumber, req)
	s.invalidate(ctx, orderNumber)
	return order, err
}

func (s *cachedOrderService) invalidate(ctx context.Context, orderNumber string) {
	if err := s.cache.Delete(ctx, s.cache.GenerateKey("order", orderNumber)); err != nil {
		s.logger.Warn().Err(err).Str("order_number", orderNumber).Msg("cache invalidation failed")
	}
}
