package led

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coreman2200/ledhal/internal/pixel"
)

// WSHello is the first, text message a WS sink receives after connecting.
type WSHello struct {
	LEDs   int    `json:"leds"`
	Format string `json:"format"`
}

type WSConfig struct {
	URL          string
	Count        int
	Format       pixel.Format
	WriteTimeout time.Duration
	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// WS streams frames as binary messages to a preview server.
type WS struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
	size    int
}

func DialWS(ctx context.Context, cfg WSConfig) (*WS, error) {
	d := cfg.Dialer
	if d == nil {
		d = websocket.DefaultDialer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = time.Second
	}
	conn, _, err := d.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	w := &WS{conn: conn, timeout: cfg.WriteTimeout, size: cfg.Count * cfg.Format.BytesPerPixel()}
	_ = conn.SetWriteDeadline(time.Now().Add(w.timeout))
	if err := conn.WriteJSON(WSHello{LEDs: cfg.Count, Format: cfg.Format.String()}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ws hello: %w", err)
	}
	return w, nil
}

func (w *WS) Write(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return ErrClosed
	}
	if len(frame) != w.size {
		return fmt.Errorf("%w: %d bytes, want %d", ErrFrameSize, len(frame), w.size)
	}
	_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	return w.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (w *WS) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(w.timeout))
	err := w.conn.Close()
	w.conn = nil
	return err
}
