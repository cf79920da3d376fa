package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/normaladmin/go-console-sdk/api"
	"github.com/normaladmin/go-console-sdk/util"
)

var (
	ErrNoCredential         = errors.New("no access token available")
	ErrMaxReconnectAttempts = errors.New("max reconnection attempts reached")
	ErrTransportClosed      = errors.New("transport was disconnected")
)

// PendingMessage is an outbound frame queued while the connection was not open.
type PendingMessage struct {
	Id       uuid.UUID
	Payload  []byte
	QueuedAt time.Time
}

type connectAttempt struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newConnectAttempt() *connectAttempt {
	return &connectAttempt{done: make(chan struct{})}
}

func (a *connectAttempt) finish(err error) {
	a.once.Do(func() {
		a.err = err
		close(a.done)
	})
}

func (a *connectAttempt) wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Transport owns the single notification websocket. It reconnects after
// unexpected closes, queues sends made while the connection is down and
// dispatches inbound frames to listeners.
type Transport struct {
	id          string
	options     *Options
	url         string
	dialer      Dialer
	scheduler   Scheduler
	credentials CredentialSource
	listeners   *ListenerRegistry

	mu             sync.Mutex
	state          api.ConnectionState
	stateChanged   chan struct{}
	conn           Conn
	generation     uint64
	token          string
	attempts       int
	queue          []PendingMessage
	pending        *connectAttempt
	reconnectTimer Timer
	lastErr        error

	sent     atomic.Int32
	received atomic.Int32
	dropped  atomic.Int32
}

// NewTransport builds a Transport for options.PageURL. When credentials is set,
// reconnects read the current token from it; otherwise they reuse the token
// given to Connect.
func NewTransport(credentials CredentialSource, options *Options) (*Transport, error) {
	if options == nil {
		return nil, fmt.Errorf("Transport - Options cannot be nil")
	}
	options.CheckDefaults()
	notificationURL, err := options.notificationURL()
	if err != nil {
		return nil, fmt.Errorf("Transport - %w", err)
	}
	return &Transport{
		id:           uuid.NewString(),
		options:      options,
		url:          notificationURL,
		dialer:       options.Dialer,
		scheduler:    options.Scheduler,
		credentials:  credentials,
		listeners:    NewListenerRegistry(),
		state:        api.ConnectionState_Disconnected,
		stateChanged: make(chan struct{}),
	}, nil
}

func (t *Transport) Id() string {
	return t.id
}

func (t *Transport) URL() string {
	return t.url
}

func (t *Transport) State() api.ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) IsConnected() bool {
	return t.State() == api.ConnectionState_Connected
}

// LastError returns the error that ended the last connection or attempt.
func (t *Transport) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *Transport) QueueLength() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Metrics returns the number of frames sent, frames received and malformed frames dropped.
func (t *Transport) Metrics() (int32, int32, int32) {
	return t.sent.Load(), t.received.Load(), t.dropped.Load()
}

func (t *Transport) On(messageType string, handler MessageHandler) DeregisterFunc {
	return t.listeners.On(messageType, handler)
}

func (t *Transport) setStateLocked(state api.ConnectionState) {
	if t.state == state {
		return
	}
	util.Debugf("Transport %s - %s -> %s", t.id, t.state, state)
	t.state = state
	close(t.stateChanged)
	t.stateChanged = make(chan struct{})
}

func (t *Transport) tokenLocked() string {
	if t.credentials != nil {
		return t.credentials.Token()
	}
	return t.token
}

func (t *Transport) dialURL(token string) string {
	if t.options.AuthMode != AuthModeQuery {
		return t.url
	}
	return t.url + "?token=" + url.QueryEscape(token)
}

func (t *Transport) stopReconnectTimerLocked() {
	if t.reconnectTimer != nil {
		t.reconnectTimer.Stop()
		t.reconnectTimer = nil
	}
}

// Connect opens the connection with token. It returns immediately when already
// connected; a call made while another attempt is in flight waits for that
// attempt's result. A failed open is returned and does not schedule a reconnect.
// The dial is bound to ctx: cancelling it aborts the attempt for every caller
// waiting on it.
func (t *Transport) Connect(ctx context.Context, token string) error {
	t.mu.Lock()
	if t.state == api.ConnectionState_Connected {
		t.mu.Unlock()
		return nil
	}
	if t.pending != nil {
		attempt := t.pending
		t.mu.Unlock()
		return attempt.wait(ctx)
	}
	if token == "" {
		token = t.tokenLocked()
	}
	if token == "" {
		t.mu.Unlock()
		return ErrNoCredential
	}
	t.token = token
	t.stopReconnectTimerLocked()
	attempt := newConnectAttempt()
	t.pending = attempt
	t.setStateLocked(api.ConnectionState_Connecting)
	t.mu.Unlock()

	go t.open(ctx, attempt, token, false)
	return attempt.wait(ctx)
}

// Reconnect makes one manual reconnect attempt, counted against MaxReconnectAttempts.
func (t *Transport) Reconnect(ctx context.Context) error {
	t.mu.Lock()
	if t.state == api.ConnectionState_Connected {
		t.mu.Unlock()
		return nil
	}
	if t.pending != nil {
		attempt := t.pending
		t.mu.Unlock()
		return attempt.wait(ctx)
	}
	if t.attempts >= t.options.MaxReconnectAttempts {
		t.mu.Unlock()
		return ErrMaxReconnectAttempts
	}
	token := t.tokenLocked()
	if token == "" {
		t.mu.Unlock()
		return ErrNoCredential
	}
	t.attempts++
	util.Infof("Attempting to reconnect (%d/%d)", t.attempts, t.options.MaxReconnectAttempts)
	t.stopReconnectTimerLocked()
	attempt := newConnectAttempt()
	t.pending = attempt
	t.setStateLocked(api.ConnectionState_Connecting)
	t.mu.Unlock()

	go t.open(ctx, attempt, token, false)
	return attempt.wait(ctx)
}

// AwaitConnected blocks until the transport is connected, or returns the
// terminal error once it gives up or is explicitly disconnected.
func (t *Transport) AwaitConnected(ctx context.Context) error {
	for {
		t.mu.Lock()
		state, changed, lastErr := t.state, t.stateChanged, t.lastErr
		t.mu.Unlock()

		switch state {
		case api.ConnectionState_Connected:
			return nil
		case api.ConnectionState_Disconnected:
			if lastErr != nil {
				return lastErr
			}
			return ErrTransportClosed
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *Transport) open(ctx context.Context, attempt *connectAttempt, token string, reconnecting bool) {
	dialCtx, cancel := context.WithTimeout(ctx, t.options.RequestTimeout)
	defer cancel()

	conn, resp, err := t.dialer.DialContext(dialCtx, t.dialURL(token), http.Header{
		"User-Agent": []string{"NormalAdmin-Console-SDK/" + VERSION + "/go"},
	})
	if err == nil && t.options.AuthMode == AuthModeFrame {
		err = t.writeFrame(conn, api.AuthFrame{Type_: api.MessageType_Auth, Token: token})
		if err != nil {
			_ = conn.Close()
		}
	}
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		util.Warnf("Transport %s - connection to %s failed: %v", t.id, t.url, err)
		t.failOpen(attempt, err, reconnecting)
		return
	}

	t.mu.Lock()
	if t.pending != attempt {
		// Disconnect was called while dialing.
		t.mu.Unlock()
		_ = conn.Close()
		attempt.finish(ErrTransportClosed)
		return
	}
	t.conn = conn
	t.generation++
	generation := t.generation
	t.attempts = 0
	t.lastErr = nil
	t.pending = nil
	t.setStateLocked(api.ConnectionState_Connected)
	t.flushLocked(conn)
	t.mu.Unlock()

	util.Infof("Transport %s - connected to %s", t.id, t.url)
	publishClientEvent(t.options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_Connected,
		EventData: "Connected to notification channel: " + t.url,
		Status:    "success",
	})
	attempt.finish(nil)
	go t.readLoop(conn, generation)
}

func (t *Transport) failOpen(attempt *connectAttempt, err error, reconnecting bool) {
	t.mu.Lock()
	if t.pending != attempt {
		t.mu.Unlock()
		attempt.finish(ErrTransportClosed)
		return
	}
	t.pending = nil
	t.lastErr = err
	if !reconnecting {
		t.setStateLocked(api.ConnectionState_Disconnected)
		t.mu.Unlock()
		attempt.finish(err)
		return
	}
	next, scheduled := t.scheduleReconnectLocked(err)
	lastErr := t.lastErr
	t.mu.Unlock()

	if scheduled {
		t.publishReconnecting(next, err)
	} else {
		t.publishReconnectFailed(lastErr)
	}
	attempt.finish(err)
}

// flushLocked sends queued frames in order. A failed write leaves the rest
// queued; the read loop sees the broken connection and reconnects.
func (t *Transport) flushLocked(conn Conn) {
	for len(t.queue) > 0 {
		next := t.queue[0]
		if err := t.writeRaw(conn, next.Payload); err != nil {
			util.Warnf("Transport %s - failed to flush queued message %s: %v", t.id, next.Id, err)
			return
		}
		t.queue = t.queue[1:]
		t.sent.Add(1)
	}
	t.queue = nil
}

func (t *Transport) writeFrame(conn Conn, v interface{}) error {
	payload, err := util.Encode(v)
	if err != nil {
		return err
	}
	return t.writeRaw(conn, payload)
}

func (t *Transport) writeRaw(conn Conn, payload []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(t.options.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// Send serializes v as JSON. The frame is written now when connected and
// queued otherwise.
func (t *Transport) Send(v interface{}) error {
	payload, err := util.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == api.ConnectionState_Connected && t.conn != nil {
		if err := t.writeRaw(t.conn, payload); err != nil {
			return err
		}
		t.sent.Add(1)
		return nil
	}
	t.queue = append(t.queue, PendingMessage{
		Id:       uuid.New(),
		Payload:  payload,
		QueuedAt: time.Now(),
	})
	return nil
}

func (t *Transport) readLoop(conn Conn, generation uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.handleClose(generation, err)
			return
		}
		t.received.Add(1)
		t.handleFrame(data)
	}
}

func (t *Transport) handleFrame(data []byte) {
	msg, err := api.ParseMessage(data)
	if err != nil {
		t.dropped.Add(1)
		util.Warnf("Transport %s - error parsing message: %v", t.id, err)
		return
	}
	t.listeners.Dispatch(msg)
}

func (t *Transport) handleClose(generation uint64, cause error) {
	t.mu.Lock()
	if generation != t.generation || t.state != api.ConnectionState_Connected {
		t.mu.Unlock()
		return
	}
	util.Warnf("Transport %s - disconnected: %v", t.id, cause)
	_ = t.conn.Close()
	t.conn = nil
	t.lastErr = cause
	next, scheduled := t.scheduleReconnectLocked(cause)
	lastErr := t.lastErr
	t.mu.Unlock()

	publishClientEvent(t.options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_Disconnected,
		EventData: "Notification channel closed",
		Status:    "failure",
		Error:     cause,
	})
	if scheduled {
		t.publishReconnecting(next, cause)
	} else {
		t.publishReconnectFailed(lastErr)
	}
}

// scheduleReconnectLocked arms the next reconnect and returns its attempt
// number, or marks the transport disconnected when the attempt budget is spent.
// Events are published by the caller once the lock is released.
func (t *Transport) scheduleReconnectLocked(cause error) (int, bool) {
	if t.attempts >= t.options.MaxReconnectAttempts {
		t.lastErr = fmt.Errorf("%w: %v", ErrMaxReconnectAttempts, cause)
		t.setStateLocked(api.ConnectionState_Disconnected)
		return 0, false
	}
	t.attempts++
	t.setStateLocked(api.ConnectionState_Reconnecting)
	t.reconnectTimer = t.scheduler.AfterFunc(t.options.ReconnectInterval, t.reconnectNow)
	return t.attempts, true
}

func (t *Transport) publishReconnecting(attempt int, cause error) {
	util.Infof("Transport %s - reconnecting in %s (%d/%d)", t.id, t.options.ReconnectInterval, attempt, t.options.MaxReconnectAttempts)
	publishClientEvent(t.options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_Reconnecting,
		EventData: attempt,
		Status:    "info",
		Error:     cause,
	})
}

func (t *Transport) reconnectNow() {
	t.mu.Lock()
	if t.state != api.ConnectionState_Reconnecting || t.pending != nil {
		t.mu.Unlock()
		return
	}
	t.reconnectTimer = nil
	token := t.tokenLocked()
	if token == "" {
		t.lastErr = ErrNoCredential
		t.setStateLocked(api.ConnectionState_Disconnected)
		t.mu.Unlock()
		t.publishReconnectFailed(ErrNoCredential)
		return
	}
	attempt := newConnectAttempt()
	t.pending = attempt
	t.mu.Unlock()

	t.open(context.Background(), attempt, token, true)
}

// publishReconnectFailed reports the terminal cause: the capped error once the
// budget is spent, or whatever stopped the cycle early.
func (t *Transport) publishReconnectFailed(cause error) {
	util.Warnf("Transport %s - giving up on reconnecting: %v", t.id, cause)
	publishClientEvent(t.options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_ReconnectFailed,
		EventData: t.options.MaxReconnectAttempts,
		Status:    "failure",
		Error:     cause,
	})
}

// Disconnect closes the connection, cancels any scheduled reconnect and
// discards queued messages.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.stopReconnectTimerLocked()
	conn := t.conn
	t.conn = nil
	t.generation++
	discarded := len(t.queue)
	t.queue = nil
	attempt := t.pending
	t.pending = nil
	t.attempts = 0
	t.lastErr = nil
	t.setStateLocked(api.ConnectionState_Disconnected)
	t.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if attempt != nil {
		attempt.finish(ErrTransportClosed)
	}
	if discarded > 0 {
		util.Infof("Transport %s - discarded %d queued messages on disconnect", t.id, discarded)
	}
}
