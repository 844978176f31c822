package session

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/op/go-logging.v1"

	"mixchat/internal/crypto"
	"mixchat/internal/domain"
	"mixchat/internal/protocol"
)

// flow tags the one protocol exchange allowed to be awaiting the inbound
// stream. Responses carry no request id, so overlapping flows for the same
// identity cannot be told apart; the guard makes the constraint explicit.
type flow int

const (
	flowNone flow = iota
	flowRegistration
	flowLogin
	flowQuery
)

// Service is an explicit session: current identity, key material, and the
// handles needed to drive the wire protocol. One Service per logical user
// session; it is not internally reentrant across flows.
type Service struct {
	log        *logging.Logger
	transport  domain.Transport
	store      domain.Store
	keys       domain.Keystore
	serverAddr string

	mu       sync.Mutex
	flow     flow
	username string
	keyPair  domain.KeyPair
	hasKey   bool
	// backlog holds chat envelopes that arrived while a handshake or query
	// was waiting on the stream; DrainIncoming consumes it first so a
	// handshake never swallows a chat message.
	backlog []domain.Incoming
}

// New constructs a session over the given collaborators. serverAddr is the
// directory server's mixnet address.
func New(
	transport domain.Transport,
	store domain.Store,
	keys domain.Keystore,
	serverAddr string,
	log *logging.Logger,
) *Service {
	return &Service{
		log:        log,
		transport:  transport,
		store:      store,
		keys:       keys,
		serverAddr: serverAddr,
	}
}

// CurrentUser returns the authenticated username, empty before login.
func (s *Service) CurrentUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Logout clears the session's identity and key material.
func (s *Service) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = ""
	s.keyPair = domain.KeyPair{}
	s.hasKey = false
}

// Register creates a fresh identity and runs the registration handshake:
// request, signed nonce challenge, server verdict. On success the key pair is
// sealed into the keystore under the passphrase and the session becomes
// authenticated. A cancelled or failed registration leaves no identity
// behind: the generated keys are discarded with the call frame.
func (s *Service) Register(ctx context.Context, username, passphrase string) (bool, error) {
	if err := s.beginFlow(flowRegistration); err != nil {
		return false, err
	}
	defer s.endFlow()

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return false, err
	}
	if err := s.store.RegisterUser(username, string(kp.PublicPEM)); err != nil {
		return false, err
	}

	req, err := protocol.RegisterRequest(username, string(kp.PublicPEM))
	if err != nil {
		return false, err
	}
	if err := s.transport.Send(ctx, s.serverAddr, req); err != nil {
		return false, err
	}
	s.log.Infof("registration request sent for %s, awaiting challenge", username)

	return s.runHandshake(ctx, protocol.ContextRegistration, username, passphrase, kp, true)
}

// Login proves possession of an existing identity's private key. Key
// material must already be in memory (a registration earlier in this
// process) or in the keystore; with neither the transport is never
// contacted and ErrNoLocalKey is returned.
func (s *Service) Login(ctx context.Context, username, passphrase string) (bool, error) {
	if err := s.beginFlow(flowLogin); err != nil {
		return false, err
	}
	defer s.endFlow()

	kp, err := s.localKeyPair(username, passphrase)
	if err != nil {
		return false, err
	}

	req, err := protocol.LoginRequest(username)
	if err != nil {
		return false, err
	}
	if err := s.transport.Send(ctx, s.serverAddr, req); err != nil {
		return false, err
	}
	s.log.Infof("login request sent for %s, awaiting challenge", username)

	return s.runHandshake(ctx, protocol.ContextLogin, username, passphrase, kp, false)
}

// runHandshake drives the shared challenge/response tail of registration and
// login: sign each nonce the server issues, then act on its verdict.
func (s *Service) runHandshake(
	ctx context.Context,
	flowCtx string,
	username, passphrase string,
	kp domain.KeyPair,
	sealKeys bool,
) (bool, error) {
	for {
		env, err := s.await(ctx, flowCtx)
		if err != nil {
			return false, err
		}

		switch env.Action {
		case protocol.ActionChallenge:
			nonce, err := protocol.ParseChallenge(env.Content)
			if err != nil {
				return false, err
			}
			sig, err := crypto.Sign(kp.PrivatePEM, []byte(nonce))
			if err != nil {
				return false, err
			}
			resp, err := s.challengeResponse(flowCtx, username, hex.EncodeToString(sig))
			if err != nil {
				return false, err
			}
			if err := s.transport.Send(ctx, s.serverAddr, resp); err != nil {
				return false, err
			}
			s.log.Debugf("%s challenge answered", flowCtx)

		case protocol.ActionChallengeResponse:
			if env.Content != protocol.ResultSuccess {
				s.log.Warningf("%s rejected: %s", flowCtx, env.Content)
				return false, nil
			}
			if sealKeys {
				if err := s.keys.SaveKeyPair(username, passphrase, kp); err != nil {
					return false, err
				}
			}
			// Login against a fresh database still needs the local user row.
			if err := s.store.RegisterUser(username, string(kp.PublicPEM)); err != nil {
				return false, err
			}
			s.mu.Lock()
			s.username = username
			s.keyPair = kp
			s.hasKey = true
			s.mu.Unlock()
			s.log.Infof("%s succeeded for %s", flowCtx, username)
			return true, nil

		default:
			s.log.Debugf("ignoring action %q during %s", env.Action, flowCtx)
		}
	}
}

// localKeyPair finds the private key needed to answer login challenges:
// first the key already in memory from a registration this process, then
// the keystore. With neither, the transport is never contacted.
func (s *Service) localKeyPair(username, passphrase string) (domain.KeyPair, error) {
	s.mu.Lock()
	if s.hasKey && s.username == username {
		kp := s.keyPair
		s.mu.Unlock()
		return kp, nil
	}
	s.mu.Unlock()

	kp, err := s.keys.LoadKeyPair(username, passphrase)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.KeyPair{}, domain.ErrNoLocalKey
	}
	if err != nil {
		return domain.KeyPair{}, err
	}
	return kp, nil
}

func (s *Service) challengeResponse(flowCtx, username, sigHex string) ([]byte, error) {
	if flowCtx == protocol.ContextRegistration {
		return protocol.RegistrationResponse(username, sigHex)
	}
	return protocol.LoginResponse(username, sigHex)
}

// Query asks the directory for a user's public key. A positive answer is
// cached as a contact of the current user (best effort: a persistence
// failure is logged, not fatal). A negative or unreadable answer is
// domain.ErrNotFound; the wire does not distinguish the two.
func (s *Service) Query(ctx context.Context, target string) (domain.Contact, error) {
	if err := s.beginFlow(flowQuery); err != nil {
		return domain.Contact{}, err
	}
	defer s.endFlow()

	req, err := protocol.QueryRequest(target)
	if err != nil {
		return domain.Contact{}, err
	}
	if err := s.transport.Send(ctx, s.serverAddr, req); err != nil {
		return domain.Contact{}, err
	}

	for {
		env, err := s.await(ctx, protocol.ContextQuery)
		if err != nil {
			return domain.Contact{}, err
		}
		if env.Action != protocol.ActionQueryResponse {
			s.log.Debugf("ignoring action %q during query", env.Action)
			continue
		}

		contact, err := protocol.ParseQueryResponse(env.Content)
		if err != nil {
			return domain.Contact{}, err
		}

		if owner := s.CurrentUser(); owner != "" {
			if err := s.store.AddContact(owner, contact); err != nil {
				s.log.Warningf("could not cache contact %s: %v", contact.Username, err)
			}
		}
		return contact, nil
	}
}

// SendDirectMessage signs and sends a chat message. The plaintext is
// persisted locally before any network activity, so history reflects intent
// to send even if transmission fails. When the recipient's public key is
// already cached, the body goes out hybrid-encrypted; otherwise plaintext.
// Transport errors surface verbatim; nothing is retried here.
func (s *Service) SendDirectMessage(ctx context.Context, recipient, text string) error {
	s.mu.Lock()
	username := s.username
	kp := s.keyPair
	hasKey := s.hasKey
	s.mu.Unlock()

	if username == "" {
		return domain.ErrNotLoggedIn
	}
	if !hasKey {
		return domain.ErrNoLocalKey
	}

	if err := s.store.SaveMessage(username, domain.Message{
		Contact:   recipient,
		Direction: domain.DirectionSent,
		Body:      text,
	}); err != nil {
		s.log.Warningf("could not persist outgoing message: %v", err)
	}

	body, err := s.messageBody(username, recipient, text)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(protocol.DirectMessage{
		Sender:    username,
		Recipient: recipient,
		Body:      body,
	})
	if err != nil {
		return fmt.Errorf("session: encode payload: %w", err)
	}

	sig, err := crypto.Sign(kp.PrivatePEM, payload)
	if err != nil {
		return err
	}
	req, err := protocol.SendRequest(string(payload), hex.EncodeToString(sig))
	if err != nil {
		return err
	}
	return s.transport.Send(ctx, s.serverAddr, req)
}

// messageBody encrypts for recipients whose keys we know.
func (s *Service) messageBody(owner, recipient, text string) (json.RawMessage, error) {
	contact, err := s.store.GetContact(owner, recipient)
	if errors.Is(err, domain.ErrNotFound) {
		return protocol.TextBody(text)
	}
	if err != nil {
		s.log.Warningf("contact lookup failed, sending plaintext: %v", err)
		return protocol.TextBody(text)
	}

	enc, err := crypto.Encrypt([]byte(contact.PublicKey), []byte(text))
	if err != nil {
		return nil, err
	}
	return protocol.EncryptedBody(enc)
}

// DrainIncoming pulls every chat message currently buffered, without
// waiting for more: first the backlog diverted during handshakes, then
// whatever sits in the transport channel. Messages are decrypted when an
// encrypted payload and a local private key are both present; on decrypt
// failure the raw ciphertext is surfaced rather than dropping the message.
// Each message is persisted best-effort. Envelopes from other flows are
// dropped here: their flow already had its chance to consume them.
func (s *Service) DrainIncoming() []domain.ReceivedMessage {
	s.mu.Lock()
	pending := s.backlog
	s.backlog = nil
	s.mu.Unlock()

	for {
		select {
		case inc, ok := <-s.transport.Incoming():
			if !ok {
				return s.deliver(pending)
			}
			pending = append(pending, inc)
		default:
			return s.deliver(pending)
		}
	}
}

func (s *Service) deliver(pending []domain.Incoming) []domain.ReceivedMessage {
	var out []domain.ReceivedMessage
	for _, inc := range pending {
		env := inc.Envelope
		if env.Action != protocol.ActionIncomingMessage || env.Context != protocol.ContextChat {
			s.log.Debugf("drain dropping envelope (%s, %s)", env.Action, env.Context)
			continue
		}
		content, err := protocol.ParseChatContent(env.Content)
		if err != nil {
			s.log.Warningf("unreadable chat message: %v", err)
			continue
		}

		text := content.Text
		if content.Encrypted != nil {
			text = s.decryptBody(content.Encrypted)
		}

		if owner := s.CurrentUser(); owner != "" {
			if err := s.store.SaveMessage(owner, domain.Message{
				Contact:   content.Sender,
				Direction: domain.DirectionReceived,
				Body:      text,
				Timestamp: inc.ReceivedAt,
			}); err != nil {
				s.log.Warningf("could not persist incoming message: %v", err)
			}
		}
		out = append(out, domain.ReceivedMessage{Sender: content.Sender, Body: text})
	}
	return out
}

// decryptBody opens an encrypted chat body, falling back to the raw
// ciphertext string when we cannot.
func (s *Service) decryptBody(enc *domain.EncryptedPayload) string {
	s.mu.Lock()
	kp := s.keyPair
	hasKey := s.hasKey
	s.mu.Unlock()

	if !hasKey {
		s.log.Warningf("encrypted message received with no local key")
		return enc.Ciphertext
	}
	plain, err := crypto.Decrypt(kp.PrivatePEM, *enc)
	if err != nil {
		s.log.Warningf("could not decrypt incoming message: %v", err)
		return enc.Ciphertext
	}
	return string(plain)
}

// await blocks until an envelope for flowCtx arrives. Chat messages seen in
// the meantime are diverted to the backlog; anything else off-context is
// skipped. There is deliberately no timeout at this layer: callers bound the
// wait through ctx.
func (s *Service) await(ctx context.Context, flowCtx string) (domain.Envelope, error) {
	for {
		select {
		case <-ctx.Done():
			return domain.Envelope{}, ctx.Err()
		case inc, ok := <-s.transport.Incoming():
			if !ok {
				return domain.Envelope{}, domain.ErrTransportClosed
			}
			env := inc.Envelope
			if env.Action == protocol.ActionIncomingMessage && env.Context == protocol.ContextChat {
				s.mu.Lock()
				s.backlog = append(s.backlog, inc)
				s.mu.Unlock()
				continue
			}
			if env.Context != flowCtx {
				s.log.Debugf("skipping envelope (%s, %s) while awaiting %s", env.Action, env.Context, flowCtx)
				continue
			}
			return env, nil
		}
	}
}

func (s *Service) beginFlow(f flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow != flowNone {
		return domain.ErrFlowInProgress
	}
	s.flow = f
	return nil
}

func (s *Service) endFlow() {
	s.mu.Lock()
	s.flow = flowNone
	s.mu.Unlock()
}
