package surface

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 2 * time.Second
	viewerBuffer = 2
)

type viewer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// WebSocket streams PNG frames to browsers connected on /ws. The page served
// on / draws them on a canvas.
type WebSocket struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	enc      *encoder
	dedup    dedup

	mu      sync.RWMutex
	viewers map[string]*viewer
	latest  []byte
	closed  bool

	srv *http.Server
}

// NewWebSocket returns a surface scaling frames to previewWidth (0 keeps the
// frame size).
func NewWebSocket(previewWidth int, log *zap.Logger) *WebSocket {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebSocket{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
		},
		enc:     newEncoder(previewWidth),
		viewers: make(map[string]*viewer),
	}
}

// Handler serves the viewer page and the /ws stream.
func (w *WebSocket) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", w.handleWebSocket)
	mux.HandleFunc("/", func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(rw, r)
			return
		}
		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = rw.Write([]byte(viewerPage))
	})
	return mux
}

// Start listens on addr and serves in the background. It returns the bound
// address, which differs from addr when addr has port 0.
func (w *WebSocket) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("surface: listen %s: %w", addr, err)
	}
	w.srv = &http.Server{Handler: w.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := w.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.log.Error("viewer server stopped", zap.Error(err))
		}
	}()
	w.log.Info("viewer listening", zap.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}

// Present sends frame to every viewer. Identical consecutive frames are sent
// once. A viewer that falls behind drops frames rather than blocking playback.
func (w *WebSocket) Present(frame image.Image) error {
	payload, err := w.enc.encode(frame)
	if err != nil {
		return fmt.Errorf("surface: encode frame: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if !w.dedup.changed(payload) {
		return nil
	}
	w.latest = payload
	for _, v := range w.viewers {
		select {
		case v.send <- payload:
		default:
			w.log.Debug("viewer behind, frame dropped", zap.String("viewer", v.id))
		}
	}
	return nil
}

// Viewers returns the number of connected viewers.
func (w *WebSocket) Viewers() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.viewers)
}

// Close disconnects every viewer and stops the server if Start was called.
func (w *WebSocket) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for id, v := range w.viewers {
		close(v.send)
		delete(w.viewers, id)
	}
	w.mu.Unlock()

	if w.srv != nil {
		return w.srv.Shutdown(ctx)
	}
	return nil
}

func (w *WebSocket) handleWebSocket(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	v := &viewer{id: uuid.NewString(), conn: conn, send: make(chan []byte, viewerBuffer)}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		conn.Close()
		return
	}
	w.viewers[v.id] = v
	if w.latest != nil {
		v.send <- w.latest
	}
	w.mu.Unlock()

	w.log.Info("viewer connected", zap.String("viewer", v.id), zap.String("remote", conn.RemoteAddr().String()))

	go w.writeLoop(v)
	w.readLoop(v)
}

func (w *WebSocket) writeLoop(v *viewer) {
	defer v.conn.Close()
	for payload := range v.send {
		_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := v.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			w.log.Debug("viewer write failed", zap.String("viewer", v.id), zap.Error(err))
			w.drop(v)
			return
		}
	}
	_ = v.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// readLoop discards client messages and returns when the connection drops.
func (w *WebSocket) readLoop(v *viewer) {
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			w.drop(v)
			w.log.Info("viewer disconnected", zap.String("viewer", v.id))
			return
		}
	}
}

func (w *WebSocket) drop(v *viewer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.viewers[v.id]; ok {
		delete(w.viewers, v.id)
		close(v.send)
	}
}

const viewerPage = `<!DOCTYPE html>
<html>
<head><title>animscene</title>
<style>body{margin:0;background:#111;display:flex;align-items:center;justify-content:center;height:100vh}canvas{max-width:100%;max-height:100%}</style>
</head>
<body>
<canvas id="c"></canvas>
<script>
const c = document.getElementById("c"), ctx = c.getContext("2d");
function connect() {
  const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  ws.binaryType = "blob";
  ws.onmessage = async (e) => {
    const bmp = await createImageBitmap(e.data);
    if (c.width !== bmp.width || c.height !== bmp.height) { c.width = bmp.width; c.height = bmp.height; }
    ctx.drawImage(bmp, 0, 0);
  };
  ws.onclose = () => setTimeout(connect, 1000);
}
connect();
</script>
</body>
</html>
`
