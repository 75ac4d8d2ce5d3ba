package handler

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/model"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

// CoinSource hands out coin event subscriptions.
type CoinSource interface {
	Subscribe() (<-chan model.CoinEvent, func())
}

// coinClient is one websocket listener of coin events.
type coinClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// SafeWriteJSON serialises writes to the connection.
func (c *coinClient) SafeWriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *coinClient) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// CoinHandler streams coin balance changes over websocket. The optional
// username query parameter limits the stream to one account.
type CoinHandler struct {
	source   CoinSource
	upgrader websocket.Upgrader
}

// NewCoinHandler creates a new CoinHandler. Browsers may connect from the
// server's own host or from one of allowedOrigins; "*" admits any origin.
func NewCoinHandler(source CoinSource, allowedOrigins []string) *CoinHandler {
	return &CoinHandler{
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts requests without an Origin header (non-browser
// clients), same-host origins and the listed origins.
func originChecker(allowed []string) func(*http.Request) bool {
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.ContainsFunc(allowed, func(o string) bool {
			return strings.EqualFold(strings.TrimSuffix(o, "/"), origin)
		}) {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// HandleStream upgrades the request and forwards events until either side
// closes.
func (h *CoinHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	filter := r.URL.Query().Get("username")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	client := &coinClient{conn: conn}
	defer conn.Close()

	events, cancel := h.source.Subscribe()
	defer cancel()

	logger.Debug().Str("filter", filter).Msg("Coin listener connected")

	// Reading is needed to process control frames and to notice the peer
	// going away.
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if filter != "" && ev.Username != filter {
				continue
			}
			if err := client.SafeWriteJSON(ev); err != nil {
				logger.Debug().Err(err).Msg("Coin listener write failed")
				return
			}
		case <-ticker.C:
			if err := client.ping(); err != nil {
				return
			}
		case <-gone:
			logger.Debug().Msg("Coin listener disconnected")
			return
		}
	}
}
