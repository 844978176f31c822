package nym

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"gopkg.in/op/go-logging.v1"

	"mixchat/internal/protocol"
)

var upgrader = websocket.Upgrader{}

// newTestDaemon runs a minimal daemon: answers the selfAddress handshake,
// records every sendAnonymous frame, and lets the test push received frames.
func newTestDaemon(t *testing.T) (url string, sent <-chan frame, push chan<- frame) {
	t.Helper()

	sentCh := make(chan frame, 8)
	pushCh := make(chan frame, 8)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var hello frame
		require.NoError(t, conn.ReadJSON(&hello))
		require.Equal(t, "selfAddress", hello.Type)
		require.NoError(t, conn.WriteJSON(frame{Type: "selfAddress", Address: "test-self-addr"}))

		go func() {
			for f := range pushCh {
				if err := conn.WriteJSON(f); err != nil {
					return
				}
			}
			conn.Close()
		}()
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			sentCh <- f
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(pushCh) })

	return "ws" + strings.TrimPrefix(srv.URL, "http"), sentCh, pushCh
}

func TestDialSendAndReceive(t *testing.T) {
	url, sent, push := newTestDaemon(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url, logging.MustGetLogger("test"))
	require.NoError(t, err)
	defer c.Close()
	require.Equal(t, "test-self-addr", c.SelfAddress())

	// Outbound framing.
	require.NoError(t, c.Send(ctx, "server-addr", []byte(`{"action":"query","username":"bob"}`)))
	select {
	case f := <-sent:
		require.Equal(t, "sendAnonymous", f.Type)
		require.Equal(t, "server-addr", f.Recipient)
		require.Equal(t, replySurbs, f.ReplySurbs)
		require.JSONEq(t, `{"action":"query","username":"bob"}`, f.Message)
	case <-ctx.Done():
		t.Fatal("daemon never saw the send")
	}

	// Inbound parsing.
	envJSON, err := json.Marshal(map[string]string{
		"action":  protocol.ActionQueryResponse,
		"context": protocol.ContextQuery,
		"content": `{"username":"bob","publicKey":"PEM"}`,
	})
	require.NoError(t, err)
	push <- frame{Type: "received", Message: string(envJSON), SenderTag: "tag-1"}

	select {
	case inc := <-c.Incoming():
		require.Equal(t, protocol.ActionQueryResponse, inc.Envelope.Action)
		require.Equal(t, protocol.ContextQuery, inc.Envelope.Context)
		require.Equal(t, "tag-1", inc.SenderTag)
		require.False(t, inc.ReceivedAt.IsZero())
	case <-ctx.Done():
		t.Fatal("client never delivered the envelope")
	}
}

func TestIncomingClosesWhenConnectionDies(t *testing.T) {
	url, _, _ := newTestDaemon(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url, logging.MustGetLogger("test"))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	select {
	case _, ok := <-c.Incoming():
		require.False(t, ok, "channel should close, not deliver")
	case <-ctx.Done():
		t.Fatal("Incoming never closed")
	}
}
