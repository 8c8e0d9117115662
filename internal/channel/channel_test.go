package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu      sync.Mutex
	frames  [][]byte
	received chan struct{}
}

func (h *recordingHandler) HandleFrame(ctx context.Context, raw []byte) {
	h.mu.Lock()
	h.frames = append(h.frames, append([]byte(nil), raw...))
	h.mu.Unlock()
	select {
	case h.received <- struct{}{}:
	default:
	}
}

func TestDialAndRoundTrip(t *testing.T) {
	var gotAuth string
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, msg)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	ws, _, err := Dial(context.Background(), url, "ocpp1.6", BasicAuth("station-1", "secret"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Fatalf("expected basic auth header, got %q", gotAuth)
	}

	handler := &recordingHandler{received: make(chan struct{}, 1)}
	conn := NewConnection("station-1", ws, handler, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go conn.Run(ctx)

	conn.Send([]byte("hello"))

	select {
	case <-handler.received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed frame")
	}

	handler.mu.Lock()
	got := len(handler.frames)
	handler.mu.Unlock()
	if got != 1 {
		t.Fatalf("got %d frames want 1", got)
	}

	cancel()
}

func TestBearerTokenHeader(t *testing.T) {
	header := http.Header{}
	BearerToken("abc.def.ghi").ApplyTo(header)
	if header.Get("Authorization") != "Bearer abc.def.ghi" {
		t.Fatalf("got %q", header.Get("Authorization"))
	}
}

func TestIssueBearerToken(t *testing.T) {
	token, err := IssueBearerToken("secret", "station-1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
}

func TestBackoff_Exponential(t *testing.T) {
	b := NewBackoff(time.Second, 10*time.Second, true)
	if got := b.Next(); got != time.Second {
		t.Fatalf("first attempt: got %v want 1s", got)
	}
	if got := b.Next(); got != 2*time.Second {
		t.Fatalf("second attempt: got %v want 2s", got)
	}
	if got := b.Next(); got != 4*time.Second {
		t.Fatalf("third attempt: got %v want 4s", got)
	}
	b.Reset()
	if b.Attempt() != 0 {
		t.Fatalf("expected reset attempt count")
	}
}

func TestBackoff_Constant(t *testing.T) {
	b := NewBackoff(5*time.Second, time.Minute, false)
	if b.Next() != 5*time.Second || b.Next() != 5*time.Second {
		t.Fatalf("expected constant backoff")
	}
}
