package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newWebSocketPair(t *testing.T) (*WebSocketTransport, *websocket.Conn) {
	t.Helper()

	serverSide := make(chan *WebSocketTransport, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverSide <- NewWebSocketTransport(conn, WithPingInterval(time.Hour))
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case tp := <-serverSide:
		t.Cleanup(func() { _ = tp.Close() })
		return tp, client
	case <-time.After(2 * time.Second):
		t.Fatal("server never upgraded")
		return nil, nil
	}
}

func TestWebSocketTransport_ReadWrite(t *testing.T) {
	tp, client := newWebSocketPair(t)
	ctx := context.Background()

	if tp.ID() == "" {
		t.Error("transport id is empty")
	}

	// Binary frames are skipped.
	if err := client.WriteMessage(websocket.BinaryMessage, []byte{0x1}); err != nil {
		t.Fatalf("client write: %v", err)
	}
	if err := client.WriteMessage(websocket.TextMessage, []byte(`{"id":1}`)); err != nil {
		t.Fatalf("client write: %v", err)
	}

	got, err := tp.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != `{"id":1}` {
		t.Errorf("Read = %q", got)
	}

	if err := tp.Write(ctx, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("client got %q", data)
	}

	if info := tp.Info(); info.Type != "websocket" || info.RemoteAddr == "" {
		t.Errorf("Info = %+v", info)
	}
}

func TestWebSocketTransport_PeerCloseIsEOF(t *testing.T) {
	tp, client := newWebSocketPair(t)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	if err := client.WriteMessage(websocket.CloseMessage, msg); err != nil {
		t.Fatalf("client close: %v", err)
	}

	if _, err := tp.Read(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Read after peer close = %v, want io.EOF", err)
	}
}

func TestWebSocketTransport_WriteAfterClose(t *testing.T) {
	tp, _ := newWebSocketPair(t)

	if err := tp.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := tp.Write(context.Background(), []byte("{}")); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Write after close = %v", err)
	}
}
