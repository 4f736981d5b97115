// Package cache, süre sınırlı in-memory kayıtlar için generic bir map sağlar.
//
// SessionService resume ticket'larını burada tutar: doğrulanmış bir
// katılımcının bağlantısı koparsa (session, user) için ticket yazılır,
// grace süresi içinde tekrar katılımda Take ile tek seferlik tüketilir.
//
// Süresi dolan kayıt hiçbir okuma yolunda görünmez; map'ten fiziksel
// silinmesi arka plandaki janitor'a kalır.
package cache

import (
	"sync"
	"time"
)

type item[V any] struct {
	value    V
	deadline time.Time
}

func (it item[V]) liveAt(now time.Time) bool {
	return now.Before(it.deadline)
}

// TTLCache, her kaydı yazıldığı andan itibaren ttl kadar tutan map.
//
//	tickets := cache.New[string, Ticket](2*time.Minute, time.Minute)
//	tickets.Set("S1|U1", t)
//	t, ok := tickets.Take("S1|U1")
type TTLCache[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]item[V]
	ttl   time.Duration
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New, cache'i oluşturur ve her janitorEvery'de süresi dolanları silen
// goroutine'i başlatır. janitorEvery <= 0 ise ttl kullanılır.
func New[K comparable, V any](ttl, janitorEvery time.Duration) *TTLCache[K, V] {
	c := &TTLCache[K, V]{
		items: make(map[K]item[V]),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if janitorEvery <= 0 {
		janitorEvery = ttl
	}
	go c.janitor(janitorEvery)
	return c
}

// WithClock, zaman kaynağını değiştirir (testler için).
func (c *TTLCache[K, V]) WithClock(now func() time.Time) *TTLCache[K, V] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Set, kaydı yazar; var olan kaydın süresi baştan başlar.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.items[key] = item[V]{value: value, deadline: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Get, canlı kaydı döner.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok || !it.liveAt(c.now()) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// Take, kaydı okur ve siler. Aynı key için eşzamanlı iki Take'ten
// yalnızca biri değeri alır.
func (c *TTLCache[K, V]) Take(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(c.items, key)
	if !it.liveAt(c.now()) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// DeleteFunc, match'i sağlayan tüm key'leri siler (ör. biten session'ın
// bütün ticket'ları).
func (c *TTLCache[K, V]) DeleteFunc(match func(key K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if match(key) {
			delete(c.items, key)
		}
	}
}

// Len, map'teki kayıt sayısı; janitor henüz silmediyse süresi dolanlar dahil.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close, janitor goroutine'ini durdurur. Tekrar çağrılabilir.
func (c *TTLCache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *TTLCache[K, V]) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *TTLCache[K, V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, it := range c.items {
		if !it.liveAt(now) {
			delete(c.items, key)
		}
	}
}
