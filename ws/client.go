package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/pkg/i18n"
	"github.com/akinalp/voxgate/pkg/metrics"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: Bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// pongWait: Client'ın heartbeat göndermesi için beklenen maksimum süre.
	// 3 heartbeat kaçırma = 30s × 3 = 90s.
	pongWait = 90 * time.Second

	// maxMessageSize: Client'ın gönderebileceği maksimum mesaj boyutu (byte).
	// 1024 boyutlu bir ses örneği JSON'da ~25KB tutar.
	maxMessageSize = 32 * 1024

	// sendBufferSize: Her client'ın send kuyruğu. Dolarsa client yavaş
	// sayılır ve bağlantısı kapatılır.
	sendBufferSize = 256
)

// Client, tek bir WebSocket bağlantısını temsil eder.
//
// Her bağlantı için iki goroutine çalışır:
// - ReadPump: Client'dan gelen mesajları okur, çözer, callback'e iletir
// - WritePump: send kuyruğundaki event'leri yerelleştirip WS'e yazar
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	id        string
	userID    string
	username  string
	localizer *i18n.Localizer
	log       zerolog.Logger

	// send: event kuyruğu. sendMu, seq ataması + kuyruğa ekleme + kapatmayı
	// tek bir kritik bölgede tutar; seq sırası kuyruk sırasıyla aynı kalır
	// ve kapalı channel'a yazılmaz.
	send   chan Event
	sendMu sync.Mutex
	seq    int64
	closed bool

	mu sync.Mutex // conn.WriteMessage çağrılarını korur

	// ctx, bağlantı kapanınca iptal edilir; callback'lere verilir.
	ctx    context.Context
	cancel context.CancelFunc
}

func newClient(hub *Hub, conn *websocket.Conn, id, userID, username string, loc *i18n.Localizer) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:       hub,
		conn:      conn,
		id:        id,
		userID:    userID,
		username:  username,
		localizer: loc,
		log:       hub.log.With().Str("conn_id", id).Str("user_id", userID).Logger(),
		send:      make(chan Event, sendBufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ID, bağlantı kimliği.
func (c *Client) ID() string { return c.id }

func (c *Client) info() ConnInfo {
	return ConnInfo{ConnID: c.id, UserID: c.userID, Username: c.username}
}

// enqueue, event'i send kuyruğuna ekler. Kuyruk doluysa client düşürülür.
func (c *Client) enqueue(event Event) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}

	c.seq++
	event.Seq = c.seq
	select {
	case c.send <- event:
		return true
	default:
		c.seq--
		c.hub.dropSlow(c)
		return false
	}
}

// closeSend, send kuyruğunu kapatır (WritePump close frame yazıp döner).
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump, WebSocket bağlantısından gelen mesajları okur ve işler.
// Bağlantı kapanana kadar bloklar.
func (c *Client) ReadPump() {
	// Süren ses doğrulamaları beklenmez: ctx iptal edilir, disconnect hemen
	// işlenir ve geç gelen sonuç session tarafında atılır.
	defer func() {
		c.cancel()
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("unexpected close")
			}
			return
		}

		msg, op, err := DecodeInbound(raw)
		metrics.InboundEventsTotal.WithLabelValues(opLabel(op, err)).Inc()
		if err != nil {
			c.log.Debug().Err(err).Str("op", op).Msg("rejected inbound message")
			c.sendError(op, "", err)
			continue
		}

		if claimed := msg.claimedUserID(); claimed != "" && claimed != c.userID {
			c.sendError(op, sessionIDOf(msg), fmt.Errorf("%w: user_id does not match connection", pkg.ErrForbidden))
			continue
		}

		c.handle(msg)
	}
}

// handle, tipli mesajı ilgili callback'e iletir.
//
// Ses doğrulaması kendi goroutine'inde çalışır; doğrulama sürerken
// okuma döngüsü heartbeat'lere cevap vermeye devam eder. Diğer mesajlar
// geliş sırasıyla işlenir.
func (c *Client) handle(msg Inbound) {
	switch m := msg.(type) {
	case HeartbeatData:
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Error().Err(err).Msg("failed to set read deadline")
			return
		}
		c.enqueue(Event{Op: OpHeartbeatAck})

	case SubmitVoiceSampleData:
		go c.dispatch(m)

	default:
		c.dispatch(m)
	}
}

func (c *Client) dispatch(msg Inbound) {
	cb := c.hub.callbacks
	conn := c.info()

	var err error
	switch m := msg.(type) {
	case JoinSessionData:
		err = invoke(c.ctx, cb.OnJoin, conn, m)
	case LeaveSessionData:
		err = invoke(c.ctx, cb.OnLeave, conn, m)
	case SubmitVoiceSampleData:
		err = invoke(c.ctx, cb.OnVoiceSample, conn, m)
	case SendMessageData:
		err = invoke(c.ctx, cb.OnMessage, conn, m)
	case EndSessionData:
		err = invoke(c.ctx, cb.OnEnd, conn, m)
	}

	if err != nil {
		c.sendError(msg.Op(), sessionIDOf(msg), err)
	}
}

func invoke[T any](ctx context.Context, fn func(context.Context, ConnInfo, T) error, conn ConnInfo, d T) error {
	if fn == nil {
		return fmt.Errorf("%w: operation not supported", pkg.ErrBadRequest)
	}
	return fn(ctx, conn, d)
}

// sendError, error event'ini sadece bu bağlantıya yazar.
func (c *Client) sendError(op, sessionID string, err error) {
	data := ErrorData{
		Code:      pkg.ErrorCode(err),
		Message:   err.Error(),
		Op:        op,
		SessionID: sessionID,
	}
	if retry, ok := pkg.RetryAfterOf(err); ok {
		data.RetryAfter = retry
	}
	if data.Code == pkg.CodeInternal && !errors.Is(err, context.Canceled) {
		c.log.Error().Err(err).Str("op", op).Msg("operation failed")
	}
	c.enqueue(Event{Op: OpError, Data: data})
}

// WritePump, send kuyruğundaki event'leri WebSocket bağlantısına yazar.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for event := range c.send {
		if l, ok := event.Data.(Localizable); ok && c.localizer != nil {
			event.Data = l.Localize(c.localizer)
		}

		data, err := json.Marshal(event)
		if err != nil {
			c.log.Error().Err(err).Str("op", event.Op).Msg("failed to marshal event")
			continue
		}
		if err := c.writeMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	// Kuyruk kapandı; Hub client'ı çıkardı
	_ = c.writeMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// writeMessage, WebSocket'e mesaj yazar. gorilla/websocket aynı anda birden
// fazla yazmaya izin vermez.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func sessionIDOf(msg Inbound) string {
	switch m := msg.(type) {
	case JoinSessionData:
		return m.SessionID
	case LeaveSessionData:
		return m.SessionID
	case SubmitVoiceSampleData:
		return m.SessionID
	case SendMessageData:
		return m.SessionID
	case EndSessionData:
		return m.SessionID
	}
	return ""
}

// opLabel, metric label'ını sınırlı tutar; bilinmeyen op'lar tek label'da toplanır.
func opLabel(op string, err error) string {
	switch op {
	case OpHeartbeat, OpJoinSession, OpLeaveSession, OpSubmitVoiceSample, OpSendMessage, OpEndSession:
		return op
	}
	if err != nil {
		return "invalid"
	}
	return "unknown"
}
