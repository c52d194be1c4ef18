package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Yusufzhafir/tradeview/internal/metrics"
	orderUseCase "github.com/Yusufzhafir/tradeview/internal/usecase/order"
	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait           = 10 * time.Second
	pongWait            = 60 * time.Second
	pingPeriod          = (pongWait * 9) / 10
	maxMessageSize      = 64 * 1024
	defaultSendBuf      = 256
	defaultPublishBuf   = 4096
	maxConsecutiveDrops = 50
)

type publishMsg struct {
	Topic string
	Data  []byte
}

type directMsg struct {
	client *Client
	data   []byte
}

type subscription struct {
	client *Client
	topic  string
}

// FormFactory opens an order form for a ticker.
type FormFactory interface {
	NewForm(ctx context.Context, ticker string, side model.Side) (*orderUseCase.Form, error)
}

// Hub manages clients, subscriptions and publishes.
type Hub struct {
	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	publish     chan publishMsg
	direct      chan directMsg
	done        chan struct{}

	clients map[*Client]struct{}
	topics  map[string]map[*Client]struct{}
	latest  map[string][]byte

	sendBuf        int
	forms          FormFactory
	allowedOrigins map[string]struct{}
	upgrader       websocket.Upgrader
	seq            sequencer

	clientCount  atomic.Int64
	publishDrops atomic.Uint64

	logger *logrus.Logger
}

type HubOpts struct {
	Logger *logrus.Logger
	// Forms backs the order_form command; nil disables it.
	Forms FormFactory
	// AllowedOrigins restricts browser upgrades; empty allows any origin.
	AllowedOrigins []string
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	subscribed map[string]struct{}

	// consecutive drops counter: if it grows too large we evict the client
	drops int

	formsMu sync.Mutex
	forms   map[formKey]*orderUseCase.Form
}

type formKey struct {
	symbol string
	side   model.Side
}

func NewHub(opts HubOpts) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &Hub{
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		subscribe:      make(chan subscription),
		unsubscribe:    make(chan subscription),
		publish:        make(chan publishMsg, defaultPublishBuf),
		direct:         make(chan directMsg, defaultPublishBuf),
		done:           make(chan struct{}),
		clients:        make(map[*Client]struct{}),
		topics:         make(map[string]map[*Client]struct{}),
		latest:         make(map[string][]byte),
		sendBuf:        defaultSendBuf,
		forms:          opts.Forms,
		allowedOrigins: make(map[string]struct{}, len(opts.AllowedOrigins)),
		logger:         logger,
	}
	for _, o := range opts.AllowedOrigins {
		h.allowedOrigins[strings.TrimRight(o, "/")] = struct{}{}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	if _, ok := h.allowedOrigins["*"]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	_, ok := h.allowedOrigins[u.Scheme+"://"+u.Host]
	return ok
}

// Run runs the hub event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub started")
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setClientCount()

		case c := <-h.unregister:
			h.drop(c)

		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			subs := h.topics[sub.topic]
			if subs == nil {
				subs = make(map[*Client]struct{})
				h.topics[sub.topic] = subs
			}
			subs[sub.client] = struct{}{}
			sub.client.subscribed[sub.topic] = struct{}{}
			if snapshot, ok := h.latest[sub.topic]; ok {
				h.deliver(sub.client, snapshot)
			}

		case sub := <-h.unsubscribe:
			if subs := h.topics[sub.topic]; subs != nil {
				delete(subs, sub.client)
				if len(subs) == 0 {
					delete(h.topics, sub.topic)
				}
			}
			delete(sub.client.subscribed, sub.topic)

		case p := <-h.publish:
			if p.Topic == "" {
				for c := range h.clients {
					h.deliver(c, p.Data)
				}
				continue
			}
			h.latest[p.Topic] = p.Data
			for c := range h.topics[p.Topic] {
				h.deliver(c, p.Data)
			}
			// forms follow the snapshot whether or not the client subscribed
			for c := range h.clients {
				c.recalculate(p.Topic)
			}

		case d := <-h.direct:
			if _, ok := h.clients[d.client]; ok {
				h.deliver(d.client, d.data)
			}

		case <-ctx.Done():
			h.logger.Info("ws hub shutting down")
			for c := range h.clients {
				close(c.send)
				_ = c.conn.Close()
				delete(h.clients, c)
			}
			h.setClientCount()
			return
		}
	}
}

// deliver queues data for c without blocking and evicts clients that keep
// falling behind. It reports whether c is still connected.
func (h *Hub) deliver(c *Client, data []byte) bool {
	select {
	case c.send <- data:
		c.drops = 0
		return true
	default:
		h.publishDrops.Add(1)
		metrics.WebSocketDropsTotal.Inc()
		c.drops++
		if c.drops > maxConsecutiveDrops {
			h.logger.WithField("drops", c.drops).Warn("evicting slow client")
			h.drop(c)
			_ = c.conn.Close()
			return false
		}
		return true
	}
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for t := range c.subscribed {
		if subs := h.topics[t]; subs != nil {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.topics, t)
			}
		}
	}
	close(c.send)
	h.setClientCount()
}

func (h *Hub) setClientCount() {
	h.clientCount.Store(int64(len(h.clients)))
	metrics.WebSocketClients.Set(float64(len(h.clients)))
}

// ServeWS upgrades the request and registers a client. Initial symbols
// can be passed as ?symbols=BTCUSD,ETHUSD.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, h.sendBuf),
		subscribed: make(map[string]struct{}),
		forms:      make(map[formKey]*orderUseCase.Form),
	}

	if !h.enqueueRegister(client) {
		_ = conn.Close()
		return
	}
	for _, sym := range strings.Split(r.URL.Query().Get("symbols"), ",") {
		if sym = normalize(sym); sym != "" {
			h.enqueueSubscribe(h.subscribe, subscription{client: client, topic: sym})
		}
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) enqueueRegister(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) enqueueSubscribe(ch chan subscription, sub subscription) {
	select {
	case ch <- sub:
	case <-h.done:
	}
}

func (h *Hub) sendDirect(c *Client, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.WithError(err).Error("marshal direct message")
		return
	}
	select {
	case h.direct <- directMsg{client: c, data: b}:
	default:
		h.publishDrops.Add(1)
		metrics.WebSocketDropsTotal.Inc()
	}
}

type clientCommand struct {
	Type   string `json:"type"` // subscribe | unsubscribe | order_form
	Symbol string `json:"symbol"`
	Side   string `json:"side,omitempty"`
	Field  string `json:"field,omitempty"`
	Value  string `json:"value,omitempty"`
}

type OrderTotalMessage struct {
	Type   string           `json:"type"`
	Symbol string           `json:"symbol"`
	Side   model.Side       `json:"side"`
	Input  model.OrderInput `json:"input"`
	Total  model.OrderTotal `json:"total"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// readPump turns client commands into hub requests.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure,
			) {
				c.hub.logger.WithError(err).Debug("ws read error")
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.sendDirect(c, ErrorMessage{Type: "error", Message: "invalid message"})
			continue
		}
		symbol := normalize(cmd.Symbol)

		switch cmd.Type {
		case "subscribe":
			if symbol != "" {
				c.hub.enqueueSubscribe(c.hub.subscribe, subscription{client: c, topic: symbol})
			}
		case "unsubscribe":
			if symbol != "" {
				c.hub.enqueueSubscribe(c.hub.unsubscribe, subscription{client: c, topic: symbol})
			}
		case "order_form":
			c.handleOrderForm(symbol, cmd)
		default:
			c.hub.sendDirect(c, ErrorMessage{Type: "error", Message: "unknown message type " + cmd.Type})
		}
	}
}

func (c *Client) handleOrderForm(symbol string, cmd clientCommand) {
	if c.hub.forms == nil {
		c.hub.sendDirect(c, ErrorMessage{Type: "error", Message: "order forms are not available"})
		return
	}
	side := model.BUY
	if cmd.Side != "" {
		parsed, err := model.ParseSide(cmd.Side)
		if err != nil {
			c.hub.sendDirect(c, ErrorMessage{Type: "error", Message: err.Error()})
			return
		}
		side = parsed
	}

	form, err := c.form(symbol, side)
	if err != nil {
		c.hub.sendDirect(c, ErrorMessage{Type: "error", Message: err.Error()})
		return
	}
	if cmd.Field == "" {
		// bare order_form reports the current state
		c.hub.sendDirect(c, c.totalMessage(symbol, side, form, form.Total()))
		return
	}
	if _, err := form.Apply(cmd.Field, cmd.Value); err != nil {
		c.hub.sendDirect(c, ErrorMessage{Type: "error", Message: err.Error()})
	}
}

func (c *Client) form(symbol string, side model.Side) (*orderUseCase.Form, error) {
	key := formKey{symbol: symbol, side: side}
	c.formsMu.Lock()
	f, ok := c.forms[key]
	c.formsMu.Unlock()
	if ok {
		return f, nil
	}

	// only readPump creates forms, so nothing races this insert
	f, err := c.hub.forms.NewForm(context.Background(), symbol, side)
	if err != nil {
		return nil, err
	}
	f.OnChange(func(total model.OrderTotal) {
		c.hub.sendDirect(c, c.totalMessage(symbol, side, f, total))
	})
	c.formsMu.Lock()
	c.forms[key] = f
	c.formsMu.Unlock()
	return f, nil
}

func (c *Client) totalMessage(symbol string, side model.Side, f *orderUseCase.Form, total model.OrderTotal) OrderTotalMessage {
	return OrderTotalMessage{Type: "order_total", Symbol: symbol, Side: side, Input: f.Input(), Total: total}
}

// recalculate refreshes this client's forms on symbol after a new snapshot.
func (c *Client) recalculate(symbol string) {
	c.formsMu.Lock()
	var forms []*orderUseCase.Form
	for k, f := range c.forms {
		if k.symbol == symbol {
			forms = append(forms, f)
		}
	}
	c.formsMu.Unlock()
	for _, f := range forms {
		f.Recalculate()
	}
}

// writePump serializes all writes to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type DepthMessage struct {
	Type  string           `json:"type"`
	Depth model.DepthChart `json:"depth"`
	Seq   uint64           `json:"seq"`
}

// PublishDepth publishes chart to subscribers of its symbol. It never
// blocks; when the hub is backed up the update is dropped.
func (h *Hub) PublishDepth(chart model.DepthChart) {
	topic := normalize(chart.Symbol)
	b, err := json.Marshal(DepthMessage{Type: "depth", Depth: chart, Seq: h.seq.next(topic)})
	if err != nil {
		h.logger.WithError(err).Error("marshal depth")
		return
	}

	select {
	case h.publish <- publishMsg{Topic: topic, Data: b}:
	default:
		h.publishDrops.Add(1)
		metrics.WebSocketDropsTotal.Inc()
		h.logger.WithField("symbol", topic).Warn("publish channel full, dropping depth update")
	}
}

// Stats returns the connected client count and total dropped messages.
func (h *Hub) Stats() (clients int, drops uint64) {
	return int(h.clientCount.Load()), h.publishDrops.Load()
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
