package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"streamchat/internal/logging"
	"streamchat/internal/protocol"
)

// Gateway exposes the chat engine over WebSocket. One text message carries
// one request frame and each response comes back as one text message.
// Sessions admitted here share the registry and the history with TCP
// sessions, so clients on either transport chat together.
type Gateway struct {
	engine   *Engine
	log      *logging.Logger
	upgrader websocket.Upgrader
}

// NewGateway creates the WebSocket front for the engine. When the config
// lists allowed origins, upgrades from other origins are refused; an empty
// list allows every origin.
func NewGateway(engine *Engine, cfg *Config, log *logging.Logger) *Gateway {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[strings.ToLower(strings.TrimSpace(origin))] = struct{}{}
	}

	return &Gateway{
		engine: engine,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				origin := strings.ToLower(r.Header.Get("Origin"))
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Routes returns the gateway's HTTP mux: a health check at / and the
// WebSocket endpoint at /ws.
func (g *Gateway) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.handleHealth)
	mux.HandleFunc("/ws", g.handleWebSocket)
	return mux
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "chat server is running")
}

func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error("websocket upgrade: %v", err)
		return
	}

	g.engine.Connect(newWSTransport(conn))
}

// wsTransport adapts a WebSocket connection to the engine's frame
// transport: message boundaries replace the incremental stream decoder.
type wsTransport struct {
	conn *websocket.Conn
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) ReadFrame() (json.RawMessage, error) {
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			// Close frames, network errors and protocol violations all mean
			// the same thing here: the peer is gone.
			return nil, io.EOF
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		if !json.Valid(data) {
			return nil, &protocol.DecodeError{Err: fmt.Errorf("message is not a JSON value")}
		}
		return json.RawMessage(data), nil
	}
}

func (t *wsTransport) WriteFrame(frame []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, frame)
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
