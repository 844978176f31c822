package nym

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gopkg.in/op/go-logging.v1"

	"mixchat/internal/domain"
	"mixchat/internal/protocol"
)

const (
	// replySurbs is how many single-use reply blocks accompany each
	// anonymous send, so the server can answer without learning our address.
	replySurbs = 10

	incomingBuffer = 64
)

// frame is the daemon's websocket message shape, both directions.
type frame struct {
	Type       string `json:"type"`
	Message    string `json:"message,omitempty"`
	Recipient  string `json:"recipient,omitempty"`
	ReplySurbs int    `json:"replySurbs,omitempty"`
	Address    string `json:"address,omitempty"`
	SenderTag  string `json:"senderTag,omitempty"`
}

// Client is a connection to the local mixnet daemon.
type Client struct {
	log  *logging.Logger
	conn *websocket.Conn

	selfAddr string
	incoming chan domain.Incoming

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to the daemon's websocket, learns our own mixnet address,
// and starts the single reader goroutine feeding Incoming.
func Dial(ctx context.Context, url string, log *logging.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("nym: dial %s: %w", url, err)
	}

	c := &Client{
		log:      log,
		conn:     conn,
		incoming: make(chan domain.Incoming, incomingBuffer),
	}

	if err := c.writeJSON(ctx, frame{Type: "selfAddress"}); err != nil {
		conn.Close()
		return nil, err
	}
	var reply frame
	if err := conn.ReadJSON(&reply); err != nil {
		conn.Close()
		return nil, fmt.Errorf("nym: read self address: %w", err)
	}
	if reply.Type != "selfAddress" || reply.Address == "" {
		conn.Close()
		return nil, fmt.Errorf("nym: unexpected handshake reply %q", reply.Type)
	}
	c.selfAddr = reply.Address
	c.log.Infof("connected to mixnet daemon, self address %s", c.selfAddr)

	go c.readLoop()
	return c, nil
}

// Send delivers payload anonymously to recipient, attaching reply SURBs so
// the far side can respond.
func (c *Client) Send(ctx context.Context, recipient string, payload []byte) error {
	return c.writeJSON(ctx, frame{
		Type:       "sendAnonymous",
		Message:    string(payload),
		Recipient:  recipient,
		ReplySurbs: replySurbs,
	})
}

// Incoming returns the inbound envelope stream. Closed when the connection dies.
func (c *Client) Incoming() <-chan domain.Incoming { return c.incoming }

// SelfAddress is our address on the mixnet.
func (c *Client) SelfAddress() string { return c.selfAddr }

// Close tears down the connection; the reader loop then closes Incoming.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.conn.Close() })
	return err
}

func (c *Client) writeJSON(ctx context.Context, f frame) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("nym: encode frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
	} else {
		c.conn.SetWriteDeadline(time.Time{})
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("nym: send: %w", err)
	}
	return nil
}

// readLoop turns daemon frames into Incoming values. It is the only reader
// of the connection and the only sender on the incoming channel.
func (c *Client) readLoop() {
	defer close(c.incoming)
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			c.log.Noticef("connection closed: %v", err)
			return
		}
		if f.Type != "received" {
			c.log.Debugf("ignoring frame type %q", f.Type)
			continue
		}
		env, err := protocol.ParseEnvelope([]byte(f.Message))
		if err != nil {
			c.log.Warningf("dropping unparsable envelope: %v", err)
			continue
		}
		c.incoming <- domain.Incoming{
			Envelope:   env,
			SenderTag:  f.SenderTag,
			ReceivedAt: time.Now(),
		}
	}
}

// Compile-time assertion that Client implements domain.Transport.
var _ domain.Transport = (*Client)(nil)
