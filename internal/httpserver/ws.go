// apps/go-server/internal/httpserver/ws.go
//
// Websocket render feed for one round.
// The server pushes {"type":"state","state":<view>} after every change and
// accepts {"type":"reveal","cardId":"..."} and {"type":"start"} from the
// client. Each connection runs a read pump (this goroutine) and a write pump.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/apps/go-server/internal/game"
	"github.com/robalobadob/memory/apps/go-server/internal/orchestrator"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
	maxMessage = 4096
	sendBuffer = 64
)

type wsIn struct {
	Type   string `json:"type"`
	CardID string `json:"cardId,omitempty"`
}

type wsOut struct {
	Type     string     `json:"type"`
	State    *roundView `json:"state,omitempty"`
	Accepted *bool      `json:"accepted,omitempty"`
	Error    string     `json:"error,omitempty"`
}

type wsClient struct {
	srv   *Server
	round *orchestrator.Orchestrator
	conn  *websocket.Conn
	send  chan []byte
	log   zerolog.Logger
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	o := roundFrom(r)
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == s.opts.ClientOrigin
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("round", o.ID).Msg("ws upgrade")
		return
	}

	c := &wsClient{
		srv:   s,
		round: o,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		log:   log.With().Str("round", o.ID).Str("remote", r.RemoteAddr).Logger(),
	}
	c.log.Debug().Msg("ws connected")

	go c.writePump()
	cancel := o.Subscribe(c.pushState)
	c.readPump()

	// No render can be in flight once cancel returns, so closing send is safe.
	cancel()
	close(c.send)
	c.log.Debug().Msg("ws disconnected")
}

// pushState runs under the orchestrator lock and must not block.
func (c *wsClient) pushState(st game.RoundState) {
	v := c.srv.buildView(c.round.ID, c.round.Mode, st)
	c.enqueue(wsOut{Type: "state", State: &v})
}

func (c *wsClient) enqueue(msg wsOut) {
	b, err := json.Marshal(msg)
	if err != nil {
		c.log.Error().Err(err).Msg("ws marshal")
		return
	}
	select {
	case c.send <- b:
	default:
		c.log.Warn().Str("type", msg.Type).Msg("ws send buffer full, frame dropped")
	}
}

func (c *wsClient) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("ws read")
			}
			return
		}
		c.round.Touch()
		c.handle(raw)
	}
}

func (c *wsClient) handle(raw []byte) {
	var in wsIn
	if err := json.Unmarshal(raw, &in); err != nil {
		c.enqueue(wsOut{Type: "error", Error: "bad_json"})
		return
	}
	switch in.Type {
	case "reveal":
		id, err := uuid.Parse(in.CardID)
		if err != nil {
			c.enqueue(wsOut{Type: "error", Error: "bad_card_id"})
			return
		}
		ok := c.round.Click(id)
		if !ok {
			c.enqueue(wsOut{Type: "reveal", Accepted: &ok})
		}
	case "start":
		c.round.Start()
	default:
		c.enqueue(wsOut{Type: "error", Error: "unknown_type"})
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug().Err(err).Msg("ws write")
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
