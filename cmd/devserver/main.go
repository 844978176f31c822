package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/websocket"
	"gopkg.in/op/go-logging.v1"

	"mixchat/internal/crypto"
	"mixchat/internal/domain"
	applog "mixchat/internal/logging"
	"mixchat/internal/protocol"
)

// frame is the daemon websocket message shape, both directions.
type frame struct {
	Type       string `json:"type"`
	Message    string `json:"message,omitempty"`
	Recipient  string `json:"recipient,omitempty"`
	ReplySurbs int    `json:"replySurbs,omitempty"`
	Address    string `json:"address,omitempty"`
	SenderTag  string `json:"senderTag,omitempty"`
}

// pendingAuth is a challenge we issued and have not yet seen answered.
type pendingAuth struct {
	nonce     string
	flow      string // registration or login context
	publicKey string // candidate key for registrations
}

type server struct {
	log      *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	users   map[string]string      // username -> public key PEM
	pending map[string]pendingAuth // username -> outstanding challenge
	online  map[string]*client     // username -> live connection
}

type client struct {
	srv  *server
	conn *websocket.Conn

	writeMu  sync.Mutex
	addr     string
	username string // set once a handshake succeeds on this connection
}

func newServer(log *logging.Logger) *server {
	return &server{
		log:     log,
		users:   make(map[string]string),
		pending: make(map[string]pendingAuth),
		online:  make(map[string]*client),
	}
}

func (s *server) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warningf("upgrade failed: %v", err)
		return
	}
	c := &client{srv: s, conn: conn}
	defer s.drop(c)

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			s.log.Debugf("connection closed: %v", err)
			return
		}
		switch f.Type {
		case "selfAddress":
			c.addr = "anon-" + randomHex(8)
			c.write(frame{Type: "selfAddress", Address: c.addr})
		case "sendAnonymous":
			s.route(c, []byte(f.Message))
		default:
			s.log.Debugf("ignoring frame type %q", f.Type)
		}
	}
}

func (s *server) drop(c *client) {
	c.conn.Close()
	s.mu.Lock()
	if c.username != "" && s.online[c.username] == c {
		delete(s.online, c.username)
	}
	s.mu.Unlock()
}

// route dispatches one client request document.
func (s *server) route(c *client, raw []byte) {
	var req map[string]string
	if err := json.Unmarshal(raw, &req); err != nil {
		s.log.Warningf("unparsable request from %s: %v", c.addr, err)
		return
	}

	switch req["action"] {
	case "register":
		s.handleRegister(c, req["usernym"], req["publicKey"])
	case "registrationResponse":
		s.handleChallengeAnswer(c, protocol.ContextRegistration, req["username"], req["signature"])
	case "login":
		s.handleLogin(c, req["usernym"])
	case "loginResponse":
		s.handleChallengeAnswer(c, protocol.ContextLogin, req["username"], req["signature"])
	case "query":
		s.handleQuery(c, req["username"])
	case "send":
		s.handleSend(c, req["content"], req["signature"])
	default:
		s.log.Warningf("unknown action %q from %s", req["action"], c.addr)
	}
}

func (s *server) handleRegister(c *client, username, publicKey string) {
	if username == "" || publicKey == "" {
		c.sendEnvelope(protocol.ActionChallengeResponse, protocol.ContextRegistration, "malformed registration")
		return
	}
	s.mu.Lock()
	_, taken := s.users[username]
	if !taken {
		s.pending[username] = pendingAuth{
			nonce:     randomHex(16),
			flow:      protocol.ContextRegistration,
			publicKey: publicKey,
		}
	}
	nonce := s.pending[username].nonce
	s.mu.Unlock()

	if taken {
		c.sendEnvelope(protocol.ActionChallengeResponse, protocol.ContextRegistration, "username taken")
		return
	}
	s.log.Infof("registration attempt for %s", username)
	c.sendChallenge(protocol.ContextRegistration, nonce)
}

func (s *server) handleLogin(c *client, username string) {
	s.mu.Lock()
	key, known := s.users[username]
	if known {
		s.pending[username] = pendingAuth{
			nonce:     randomHex(16),
			flow:      protocol.ContextLogin,
			publicKey: key,
		}
	}
	nonce := s.pending[username].nonce
	s.mu.Unlock()

	if !known {
		c.sendEnvelope(protocol.ActionChallengeResponse, protocol.ContextLogin, "no such user")
		return
	}
	s.log.Infof("login attempt for %s", username)
	c.sendChallenge(protocol.ContextLogin, nonce)
}

// handleChallengeAnswer verifies a signed nonce and completes either flow.
func (s *server) handleChallengeAnswer(c *client, flow, username, sigHex string) {
	s.mu.Lock()
	auth, ok := s.pending[username]
	s.mu.Unlock()
	if !ok || auth.flow != flow {
		c.sendEnvelope(protocol.ActionChallengeResponse, flow, "no challenge outstanding")
		return
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil || !crypto.Verify([]byte(auth.publicKey), []byte(auth.nonce), sig) {
		s.log.Warningf("%s failed for %s: bad signature", flow, username)
		c.sendEnvelope(protocol.ActionChallengeResponse, flow, "signature verification failed")
		return
	}

	s.mu.Lock()
	delete(s.pending, username)
	if flow == protocol.ContextRegistration {
		s.users[username] = auth.publicKey
	}
	c.username = username
	s.online[username] = c
	s.mu.Unlock()

	s.log.Infof("%s succeeded for %s", flow, username)
	c.sendEnvelope(protocol.ActionChallengeResponse, flow, protocol.ResultSuccess)
}

func (s *server) handleQuery(c *client, username string) {
	s.mu.Lock()
	key, ok := s.users[username]
	s.mu.Unlock()

	if !ok {
		c.sendEnvelope(protocol.ActionQueryResponse, protocol.ContextQuery, "No such user with that username")
		return
	}
	content, err := json.Marshal(map[string]string{
		"username":  username,
		"publicKey": key,
	})
	if err != nil {
		s.log.Errorf("encode query response: %v", err)
		return
	}
	c.sendEnvelope(protocol.ActionQueryResponse, protocol.ContextQuery, string(content))
}

func (s *server) handleSend(c *client, content, sigHex string) {
	var dm protocol.DirectMessage
	if err := json.Unmarshal([]byte(content), &dm); err != nil {
		c.sendEnvelope(protocol.ActionSendResponse, protocol.ContextChat, "malformed payload")
		return
	}

	s.mu.Lock()
	senderKey, senderKnown := s.users[dm.Sender]
	recipient, online := s.online[dm.Recipient]
	s.mu.Unlock()

	sig, err := hex.DecodeString(sigHex)
	if !senderKnown || err != nil || !crypto.Verify([]byte(senderKey), []byte(content), sig) {
		s.log.Warningf("rejecting message claiming to be from %s: bad signature", dm.Sender)
		c.sendEnvelope(protocol.ActionSendResponse, protocol.ContextChat, "signature verification failed")
		return
	}
	if !online {
		c.sendEnvelope(protocol.ActionSendResponse, protocol.ContextChat, "recipient offline")
		return
	}

	forwarded, err := json.Marshal(struct {
		Sender string          `json:"sender"`
		Body   json.RawMessage `json:"body"`
	}{dm.Sender, dm.Body})
	if err != nil {
		s.log.Errorf("encode forwarded message: %v", err)
		return
	}
	recipient.sendEnvelope(protocol.ActionIncomingMessage, protocol.ContextChat, string(forwarded))
	c.sendEnvelope(protocol.ActionSendResponse, protocol.ContextChat, protocol.ResultSuccess)
	s.log.Infof("forwarded message %s -> %s", dm.Sender, dm.Recipient)
}

func (c *client) sendChallenge(flow, nonce string) {
	content, _ := json.Marshal(map[string]string{"nonce": nonce})
	c.sendEnvelope(protocol.ActionChallenge, flow, string(content))
}

// sendEnvelope delivers a directory envelope to this connection as a
// received frame, the shape the daemon would use.
func (c *client) sendEnvelope(action, flowCtx, content string) {
	env, err := json.Marshal(domain.Envelope{
		Action:  action,
		Context: flowCtx,
		Content: content,
	})
	if err != nil {
		c.srv.log.Errorf("encode envelope: %v", err)
		return
	}
	c.write(frame{Type: "received", Message: string(env), SenderTag: "directory"})
}

func (c *client) write(f frame) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(f); err != nil {
		c.srv.log.Debugf("write to %s failed: %v", c.addr, err)
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func main() {
	listen := flag.String("listen", "127.0.0.1:1977", "listen address")
	level := flag.String("log-level", "INFO", "log level")
	flag.Parse()

	backend, err := applog.New("", *level, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := backend.GetLogger("devserver")

	srv := newServer(log)
	http.HandleFunc("/", srv.handle)
	log.Noticef("directory server listening on %s", *listen)
	if err := http.ListenAndServe(*listen, nil); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
