// cache.go — LRU-кэш списка ролей с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша ролей.
var (
	rolesCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cc_roles_cache_hits_total",
		Help: "Общее количество попаданий в кэш ролей.",
	})
	rolesCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cc_roles_cache_misses_total",
		Help: "Общее количество промахов кэша ролей.",
	})
)

// RolesCache — кэш списка ролей по ключу источника (базовый URL clinic API).
// Мутации учётных записей кэш не инвалидируют: список ролей статичен для backend.
type RolesCache struct {
	cache *expirable.LRU[string, []string]
}

// NewRolesCache создаёт кэш с указанным размером и TTL.
func NewRolesCache(maxSize int, ttl time.Duration) *RolesCache {
	return &RolesCache{cache: expirable.NewLRU[string, []string](maxSize, nil, ttl)}
}

// Get возвращает копию списка ролей.
func (c *RolesCache) Get(key string) ([]string, bool) {
	roles, ok := c.cache.Get(key)
	if !ok {
		rolesCacheMissesTotal.Inc()
		return nil, false
	}
	rolesCacheHitsTotal.Inc()
	return slices.Clone(roles), true
}

// Set сохраняет список ролей.
func (c *RolesCache) Set(key string, roles []string) {
	c.cache.Add(key, slices.Clone(roles))
}

// Purge очищает кэш.
func (c *RolesCache) Purge() {
	c.cache.Purge()
}
