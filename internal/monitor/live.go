package monitor

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/halcyard/motiongate/internal/gate"
)

const liveWriteWait = 2 * time.Second

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Loopback debugging endpoint; cross-origin pages may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// liveHub tracks connected websocket clients. Broadcasts run on the polling
// goroutine; a client that cannot keep up within the write deadline is
// dropped rather than allowed to stall the poller.
type liveHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func newLiveHub() *liveHub {
	return &liveHub{conns: make(map[*websocket.Conn]bool)}
}

func (h *liveHub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()
}

func (h *liveHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	c.Close()
}

func (h *liveHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// broadcast pushes one snapshot to every connected client.
func (h *liveHub) broadcast(snap gate.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.conns {
		c.SetWriteDeadline(time.Now().Add(liveWriteWait))
		if err := c.WriteJSON(snap); err != nil {
			log.Printf("[Monitor] dropping live client %s: %v", c.RemoteAddr(), err)
			c.Close()
			delete(h.conns, c)
		}
	}
}

// handleLive upgrades the request to a websocket and streams every
// committed snapshot until the client disconnects. The current snapshot is
// sent immediately so clients render without waiting for the next poll.
func (ws *WebServer) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		log.Printf("[Monitor] websocket upgrade failed: %v", err)
		return
	}
	log.Printf("[Monitor] live client connected: %s", conn.RemoteAddr())

	// Send the current state before the hub can broadcast to this conn;
	// writes are single-goroutine until add() below.
	conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteJSON(ws.cell.Load()); err != nil {
		log.Printf("[Monitor] live client handshake write failed: %v", err)
		conn.Close()
		return
	}
	ws.live.add(conn)

	// Block reading until the client goes away. Inbound payloads are
	// ignored; the read pump only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	ws.live.remove(conn)
	log.Printf("[Monitor] live client disconnected: %s", conn.RemoteAddr())
}
