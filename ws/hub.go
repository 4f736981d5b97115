package ws

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/akinalp/voxgate/pkg/metrics"
)

// EventPublisher, service katmanının WebSocket event'leri göndermek için
// kullandığı interface.
//
// Service'ler Hub'ın concrete struct'ına değil bu interface'e bağımlıdır;
// testlerde kayıt tutan bir stub kullanılır.
type EventPublisher interface {
	// SendToConnection, event'i tek bir bağlantının kuyruğuna ekler.
	// Bağlantı yoksa veya kuyruğu doluysa false döner.
	SendToConnection(connID string, event Event) bool
	// SendToUser, kullanıcının tüm bağlantılarına gönderir; kaç bağlantıya
	// ulaştığını döner.
	SendToUser(userID string, event Event) int
}

// ConnInfo, callback'lere iletilen bağlantı kimliği.
type ConnInfo struct {
	ConnID   string
	UserID   string
	Username string
}

// SessionCallbacks, inbound mesajların iş mantığına iletildiği noktalar.
//
// ws paketi services'i import etmez (services → ws bağımlılığı var);
// callback'ler init_callbacks.go'da SessionService'e bağlanır.
// Dönen error, client'a error event'i olarak yazılır.
type SessionCallbacks struct {
	OnJoin        func(ctx context.Context, conn ConnInfo, d JoinSessionData) error
	OnLeave       func(ctx context.Context, conn ConnInfo, d LeaveSessionData) error
	OnVoiceSample func(ctx context.Context, conn ConnInfo, d SubmitVoiceSampleData) error
	OnMessage     func(ctx context.Context, conn ConnInfo, d SendMessageData) error
	OnEnd         func(ctx context.Context, conn ConnInfo, d EndSessionData) error
	// OnDisconnect, bağlantı beklenmedik şekilde (veya client kapatınca)
	// Hub'dan çıktığında çağrılır.
	OnDisconnect func(conn ConnInfo)
}

// Hub, tüm WebSocket bağlantılarını connection ID ile tutan merkezi yapı.
//
// Bir kullanıcının birden fazla bağlantısı olabilir (farklı tab'lar);
// session üyeliği bağlantı bazlıdır, bu yüzden birincil anahtar connID'dir.
//
// register/unregister channel'ları Run goroutine'inde sırayla işlenir;
// clients map'i ise event gönderimi için RWMutex ile okunur.
type Hub struct {
	clients map[string]*Client            // connID → client
	users   map[string]map[string]*Client // userID → connID → client
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	callbacks SessionCallbacks
	log       zerolog.Logger
}

// NewHub, yeni bir Hub oluşturur.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		users:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// SetCallbacks, inbound mesaj callback'lerini kaydeder. Run'dan önce çağrılmalı.
func (h *Hub) SetCallbacks(cb SessionCallbacks) {
	h.callbacks = cb
}

// Run, Hub'ın ana event loop'udur. main.go'da `go hub.Run()` ile başlatılır.
// Shutdown çağrılınca döner.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Register, client'ı Hub'a ekler. Hub kapanmışsa false döner.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister, client'ı Hub'dan çıkarma isteği gönderir.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	if _, ok := h.users[c.userID]; !ok {
		h.users[c.userID] = make(map[string]*Client)
	}
	h.users[c.userID][c.id] = c
	userConns := len(h.users[c.userID])
	h.mu.Unlock()

	metrics.ConnectionsActive.Inc()
	h.log.Info().
		Str("conn_id", c.id).
		Str("user_id", c.userID).
		Int("user_connections", userConns).
		Msg("client connected")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	if conns, ok := h.users[c.userID]; ok {
		delete(conns, c.id)
		if len(conns) == 0 {
			delete(h.users, c.userID)
		}
	}
	h.mu.Unlock()

	c.closeSend()
	metrics.ConnectionsActive.Dec()
	h.log.Info().Str("conn_id", c.id).Str("user_id", c.userID).Msg("client disconnected")

	// Session cleanup Hub goroutine'ini bloklamasın
	if h.callbacks.OnDisconnect != nil {
		go h.callbacks.OnDisconnect(c.info())
	}
}

// SendToConnection, event'i tek bir bağlantıya gönderir.
func (h *Hub) SendToConnection(connID string, event Event) bool {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return c.enqueue(event)
}

// SendToUser, kullanıcının tüm bağlantılarına gönderir.
func (h *Hub) SendToUser(userID string, event Event) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.users[userID]))
	for _, c := range h.users[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.enqueue(event) {
			sent++
		}
	}
	return sent
}

// ConnectionCount, aktif bağlantı sayısı.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// dropSlow, kuyruğu dolan client'ı kapatır. enqueue içinden çağrılır;
// unregister channel'ı Run tarafından okunduğu için goroutine'de gönderilir.
func (h *Hub) dropSlow(c *Client) {
	h.log.Warn().Str("conn_id", c.id).Str("user_id", c.userID).Msg("send buffer full, dropping connection")
	metrics.ConnectionsRejectedTotal.WithLabelValues("slow_consumer").Inc()
	go h.Unregister(c)
}

// Shutdown, tüm client bağlantılarını kapatır ve Run'ı durdurur.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		clients := h.clients
		h.clients = make(map[string]*Client)
		h.users = make(map[string]map[string]*Client)
		h.mu.Unlock()

		for _, c := range clients {
			c.closeSend()
			metrics.ConnectionsActive.Dec()
		}
		close(h.done)
		h.log.Info().Int("closed", len(clients)).Msg("hub shut down, all connections closed")
	})
}
