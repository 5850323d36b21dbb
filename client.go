package mq

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wavemq/mqtt5/engine"
	"github.com/wavemq/mqtt5/internal/metrics"
	"github.com/wavemq/mqtt5/transport/ws"
)

// subscriptionEntry is the host's local record of a subscription: the
// handler to invoke, plus the config needed to replay the subscribe after a
// reconnect that did not resume the session (§4.7 resubscribe-on-reconnect).
type subscriptionEntry struct {
	handler MessageHandler
	cfg     engine.SubscribeTopicConfig
}

// Client is a connection to a single MQTT v5.0 broker. It owns the one
// goroutine group allowed to touch a net.Conn, a real clock, or channels in
// this module: readLoop, the tick scheduler's timer, reconnectLoop, and
// dispatchLoop. Every actual protocol decision is made by the engine, which
// Client calls with mu held so the engine never sees concurrent entry.
type Client struct {
	opts *clientOptions

	mu  sync.Mutex
	eng *engine.Engine

	conn   net.Conn
	ticker *tickScheduler

	connected    atomic.Bool
	wg           sync.WaitGroup
	stop         chan struct{}
	disconnected chan struct{}

	subsLock      sync.RWMutex
	subscriptions map[string]subscriptionEntry

	msgCh chan engine.MessageInfo

	metrics *metrics.Metrics

	packetsSent     atomic.Uint64
	packetsReceived atomic.Uint64
	bytesSent       atomic.Uint64
	bytesReceived   atomic.Uint64
	reconnectCount  atomic.Uint64

	idMu             sync.RWMutex
	assignedClientID string

	lastDisconnectMu  sync.Mutex
	lastDisconnectErr error
}

// MessageHandler is called when a message is received on a subscribed topic.
type MessageHandler func(*Client, Message)

// DialContext establishes a connection to an MQTT server with a context and
// returns a Client.
//
// The context bounds the network dial and the CONNECT/CONNACK handshake. If
// it is cancelled before the handshake completes, DialContext returns an
// error and the in-flight Connect operation is cancelled in the engine.
func DialContext(ctx context.Context, server string, opts ...Option) (*Client, error) {
	options := defaultOptions(server)
	for _, opt := range opts {
		opt(options)
	}
	if options.Logger != nil {
		options.Logger = options.Logger.With("lib", "mq")
	}
	if options.RandomClientID && options.ClientID == "" {
		options.ClientID = uuid.NewString()
	}

	c := &Client{
		opts:          options,
		stop:          make(chan struct{}),
		disconnected:  make(chan struct{}, 1),
		subscriptions: make(map[string]subscriptionEntry),
		msgCh:         make(chan engine.MessageInfo, 256),
	}

	for topic, handler := range options.InitialSubscriptions {
		c.subscriptions[topic] = subscriptionEntry{
			handler: c.wrapHandler(handler),
			cfg:     engine.SubscribeTopicConfig{Filter: topic, MaxQoS: 2},
		}
	}

	if options.MetricsRegisterer != nil {
		c.metrics = metrics.New(options.MetricsRegisterer, prometheus.Labels{"client_id": options.ClientID})
	}

	c.ticker = newTickScheduler(func(elapsedMs int64) {
		c.mu.Lock()
		c.eng.Tick(elapsedMs)
		c.mu.Unlock()
	})

	engOpts := []engine.Option{
		engine.WithOrderingPolicy(options.Ordering),
		engine.WithPublishResendLimit(options.PublishResendLimit),
		engine.WithResponseTimeout(options.ConnectTimeout.Milliseconds()),
	}
	if options.Logger != nil {
		engOpts = append(engOpts, engine.WithLogger(slogEngineLogger{options.Logger}))
	}

	c.eng = engine.NewEngine(engine.Callbacks{
		SendBytes:          c.sendBytes,
		ScheduleTick:       c.ticker.schedule,
		CancelTick:         c.ticker.cancel,
		BrokerDisconnected: c.onBrokerDisconnected,
		MessageReceived:    c.onMessageReceived,
		ErrorLog:           func(text string) { c.opts.Logger.Error(text) },
	}, engOpts...)

	c.wg.Add(1)
	go c.dispatchLoop()

	if err := c.connect(ctx); err != nil {
		c.shutdownLoops()
		return nil, err
	}

	if options.AutoReconnect {
		c.wg.Add(1)
		go c.reconnectLoop()
	}

	return c, nil
}

// Dial establishes a connection to an MQTT server and returns a Client.
//
// The server parameter specifies the server address with scheme and port.
// Supported schemes:
//   - tcp:// or mqtt://           - unencrypted (default port 1883)
//   - tls://, ssl://, or mqtts:// - TLS encrypted (default port 8883)
//   - ws:// or wss://             - WebSocket, binary "mqtt" subprotocol
//
// Dial is a thin wrapper around DialContext using WithConnectTimeout to
// bound the initial handshake.
func Dial(server string, opts ...Option) (*Client, error) {
	options := defaultOptions(server)
	for _, opt := range opts {
		opt(options)
	}

	ctx, cancel := context.WithTimeout(context.Background(), options.ConnectTimeout)
	defer cancel()

	return DialContext(ctx, server, opts...)
}

// connect dials the transport, then drives the engine's Connect operation to
// completion. The read loop starts before CONNACK arrives: FeedBytes owns
// the wire framing end to end now, so there is no separate handshake reader.
func (c *Client) connect(ctx context.Context) error {
	c.opts.Logger.Debug("connecting to MQTT server", "server", c.opts.Server)

	if c.opts.ClientID == "" && !c.opts.CleanSession && !c.opts.SessionExpirySet {
		return fmt.Errorf("mqtt: ClientID is required when CleanSession is false unless a session expiry interval is set")
	}

	conn, err := c.dialServer(ctx)
	if err != nil {
		return err
	}
	c.conn = conn

	c.wg.Add(1)
	go c.readLoop(conn)

	cfg := c.buildConnectConfig()

	c.mu.Lock()
	op, eerr := c.eng.PrepareConnect(cfg)
	if eerr != engine.ErrNone {
		c.mu.Unlock()
		conn.Close()
		return eerr
	}

	done := make(chan *engine.ConnectResult, 1)
	var connectErr error
	eerr = op.Send(c.eng, func(status engine.Status, result *engine.ConnectResult) {
		if status != engine.StatusComplete {
			connectErr = fmt.Errorf("connect failed: %s", status)
			done <- nil
			return
		}
		done <- result
	})
	c.eng.Sync()
	c.mu.Unlock()
	if eerr != engine.ErrNone {
		conn.Close()
		return eerr
	}

	select {
	case result := <-done:
		if result == nil {
			conn.Close()
			return connectErr
		}
		if !result.ReasonCode.Success() {
			conn.Close()
			msg := result.ReasonString
			if msg == "" {
				msg = result.ReasonCode.Name()
			}
			return fmt.Errorf("%w: %s", ErrConnectionRefused, msg)
		}
		if result.AssignedClientID != "" {
			c.idMu.Lock()
			c.assignedClientID = result.AssignedClientID
			c.idMu.Unlock()
		} else {
			c.idMu.Lock()
			c.assignedClientID = c.opts.ClientID
			c.idMu.Unlock()
		}
		if c.opts.Authenticator != nil {
			if err := c.opts.Authenticator.Complete(); err != nil {
				c.opts.Logger.Warn("authenticator complete failed", "error", err)
			}
		}
		c.connected.Store(true)
		c.opts.Logger.Debug("connection established", "server", c.opts.Server, "session_present", result.SessionPresent)
		if c.opts.OnConnect != nil {
			go c.opts.OnConnect(c)
		}
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		op.Cancel(c.eng)
		c.eng.Sync()
		c.mu.Unlock()
		conn.Close()
		return ctx.Err()
	}
}

// buildConnectConfig translates clientOptions into the engine's ConnectConfig.
func (c *Client) buildConnectConfig() engine.ConnectConfig {
	cfg := engine.ConnectConfig{
		ClientID:            c.opts.ClientID,
		CleanStart:          c.opts.CleanSession,
		Username:            c.opts.Username,
		KeepAliveSec:        uint16(c.opts.KeepAlive.Seconds()),
		RequestResponseInfo: c.opts.RequestResponseInformation,
		RequestProblemInfo:  c.opts.RequestProblemInformation,
		TopicAliasMaximum:   c.opts.TopicAliasMaximum,
		UserProperties:      c.opts.ConnectUserProperties,
		ResponseTimeoutMs:   c.opts.ConnectTimeout.Milliseconds(),
	}
	if c.opts.Password != "" {
		cfg.Password = c.opts.Password
		cfg.HasPassword = true
	}
	if c.opts.ReceiveMaximum > 0 {
		cfg.ReceiveMaximum = c.opts.ReceiveMaximum
	}
	if c.opts.SessionExpirySet {
		cfg.SessionExpiryIntervalMs = c.opts.SessionExpiryInterval * 1000
	}
	if c.opts.will != nil {
		w := &engine.WillConfig{
			Topic:   c.opts.will.Topic,
			Payload: c.opts.will.Payload,
			QoS:     c.opts.will.QoS,
			Retain:  c.opts.will.Retained,
		}
		if c.opts.will.Properties != nil {
			p := c.opts.will.Properties
			w.ContentType = p.ContentType
			w.ResponseTopic = p.ResponseTopic
			w.CorrelationData = p.CorrelationData
			w.UserProperties = p.UserProperties
			if p.MessageExpiry != nil {
				w.MessageExpiryMs = *p.MessageExpiry * 1000
			}
			if p.WillDelayInterval != nil {
				w.DelayIntervalMs = *p.WillDelayInterval * 1000
			}
		}
		cfg.Will = w
	}
	if c.opts.Authenticator != nil {
		cfg.AuthMethod = c.opts.Authenticator.Method()
		if data, err := c.opts.Authenticator.InitialData(); err == nil {
			cfg.AuthData = data
		} else {
			c.opts.Logger.Warn("authenticator initial data failed", "error", err)
		}
		cfg.AuthCallback = authCallback(c.opts.Authenticator, c.opts.Logger)
	}
	return cfg
}

// dialServer establishes a TCP, TLS, WebSocket, or custom connection to the
// MQTT server named by c.opts.Server.
func (c *Client) dialServer(ctx context.Context) (net.Conn, error) {
	if c.opts.Dialer != nil {
		network := "tcp"
		if u, err := url.Parse(c.opts.Server); err == nil && u.Scheme != "" {
			network = u.Scheme
		}
		conn, err := c.opts.Dialer.DialContext(ctx, network, c.opts.Server)
		if err != nil {
			return nil, fmt.Errorf("custom dialer failed: %w", err)
		}
		return conn, nil
	}

	u, err := url.Parse(c.opts.Server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		return ws.Dial(ctx, c.opts.Server)
	case "unix":
		// TODO: no test broker available over a unix socket in this pack; wire
		// up net.Dialer{}.DialContext(ctx, "unix", u.Path) once one is.
		return nil, fmt.Errorf("unix socket transport not yet implemented")
	}

	if u.Port() == "" {
		switch u.Scheme {
		case "tls", "ssl", "mqtts":
			u.Host = net.JoinHostPort(u.Host, "8883")
		default:
			u.Host = net.JoinHostPort(u.Host, "1883")
		}
	}

	useTLS := u.Scheme == "tls" || u.Scheme == "ssl" || u.Scheme == "mqtts" || c.opts.TLSConfig != nil
	if !useTLS && u.Scheme != "tcp" && u.Scheme != "mqtt" && u.Scheme != "" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	if useTLS {
		tlsConfig := c.opts.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		}
		dialer := &tls.Dialer{NetDialer: &net.Dialer{}, Config: tlsConfig}
		return dialer.DialContext(ctx, "tcp", u.Host)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", u.Host)
}

// sendBytes implements engine.Callbacks.SendBytes. It is always invoked with
// c.mu already held by the caller, so it must never try to take it again.
func (c *Client) sendBytes(buf []byte) {
	conn := c.conn
	if conn == nil {
		return
	}
	n, err := conn.Write(buf)
	if err != nil {
		c.opts.Logger.Warn("write failed", "error", err)
		return
	}
	c.packetsSent.Add(1)
	c.bytesSent.Add(uint64(n))
	if c.metrics != nil {
		c.metrics.BytesSent.Add(float64(n))
	}
}

// readLoop is the one goroutine that reads raw bytes off conn. Framing,
// validation, and dispatch all happen inside Engine.FeedBytes now; readLoop
// only serializes entry into the engine and reports transport failures.
func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			c.packetsReceived.Add(1) // approximate: one read, not one packet
			c.bytesReceived.Add(uint64(n))
			if c.metrics != nil {
				c.metrics.BytesReceived.Add(float64(n))
			}
			c.mu.Lock()
			if c.conn == conn {
				c.eng.FeedBytes(buf[:n])
			}
			c.mu.Unlock()
		}
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.eng.NetworkDisconnected()
				c.conn = nil
			}
			c.mu.Unlock()
			conn.Close()
			return
		}
	}
}

// onBrokerDisconnected implements engine.Callbacks.BrokerDisconnected. It
// runs with c.mu held, so it must only record state and signal goroutines,
// never call back into the engine itself.
func (c *Client) onBrokerDisconnected(reason engine.DisconnectReason, info *engine.DisconnectInfo) {
	if !c.connected.Swap(false) {
		return
	}

	var err error
	switch reason {
	case engine.DisconnectMsg:
		if info != nil {
			err = &DisconnectError{
				ReasonCode:      info.ReasonCode,
				ReasonString:    info.ReasonString,
				ServerReference: info.ServerReference,
				UserProperties:  info.UserProperties,
			}
			if info.ServerReference != "" && c.opts.OnServerRedirect != nil {
				go c.opts.OnServerRedirect(info.ServerReference)
			}
		} else {
			err = fmt.Errorf("broker disconnected")
		}
	case engine.DisconnectNoBrokerResponse:
		err = fmt.Errorf("keep-alive response timed out")
		if c.metrics != nil {
			c.metrics.KeepAliveTimeouts.Inc()
		}
	default:
		err = fmt.Errorf("network connection lost")
	}

	c.lastDisconnectMu.Lock()
	c.lastDisconnectErr = err
	c.lastDisconnectMu.Unlock()

	if c.opts.OnConnectionLost != nil {
		go c.opts.OnConnectionLost(c, err)
	}

	select {
	case c.disconnected <- struct{}{}:
	default:
	}
}

// onMessageReceived implements engine.Callbacks.MessageReceived. It runs
// with c.mu held, so it only enqueues; dispatchLoop does the actual handler
// fan-out outside the lock.
func (c *Client) onMessageReceived(msg engine.MessageInfo) {
	select {
	case c.msgCh <- msg:
	default:
		c.opts.Logger.Warn("message dispatch queue full, dropping delivery", "topic", msg.Topic)
	}
}

// dispatchLoop matches inbound messages against locally registered
// subscription handlers and invokes each match on its own goroutine,
// mirroring the teacher's one-handler-per-goroutine delivery model.
func (c *Client) dispatchLoop() {
	defer c.wg.Done()
	for {
		select {
		case msg := <-c.msgCh:
			c.dispatchMessage(msg)
		case <-c.stop:
			return
		}
	}
}

func (c *Client) dispatchMessage(msg engine.MessageInfo) {
	out := Message{
		Topic:      msg.Topic,
		Payload:    msg.Payload,
		QoS:        QoS(msg.QoS),
		Retained:   msg.Retain,
		Duplicate:  msg.Duplicate,
		Properties: toPublicProperties(msg.Properties),
	}

	c.subsLock.RLock()
	var matched []MessageHandler
	for filter, entry := range c.subscriptions {
		if matchTopic(filter, msg.Topic) {
			matched = append(matched, entry.handler)
		}
	}
	c.subsLock.RUnlock()

	if len(matched) == 0 {
		if c.opts.DefaultPublishHandler != nil {
			go c.wrapHandler(c.opts.DefaultPublishHandler)(c, out)
		}
		return
	}
	if c.metrics != nil {
		c.metrics.MessagesDelivered.Inc()
	}
	for _, h := range matched {
		if h != nil {
			go h(c, out)
		}
	}
}

// wrapHandler applies the client's configured HandlerInterceptors to h, in
// registration order (the first interceptor added is outermost).
func (c *Client) wrapHandler(h MessageHandler) MessageHandler {
	if h == nil {
		return nil
	}
	return applyHandlerInterceptors(h, c.opts.HandlerInterceptors)
}

// IsConnected reports whether the client currently has an active,
// CONNACK-confirmed connection.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Disconnect gracefully disconnects from the server: it sends a DISCONNECT
// packet, stops the background goroutines, and closes the transport. Further
// automatic reconnection is disabled; create a new Client to reconnect.
func (c *Client) Disconnect(ctx context.Context, opts ...DisconnectOption) error {
	options := &DisconnectOptions{ReasonCode: ReasonCodeNormalDisconnect}
	for _, opt := range opts {
		opt(options)
	}

	cfg := engine.DisconnectConfig{ReasonCode: options.ReasonCode}
	if options.Properties != nil {
		if options.Properties.ReasonString != "" {
			cfg.ReasonString = options.Properties.ReasonString
		}
		if options.Properties.SessionExpiryInterval != nil {
			cfg.HasSessionExpiryOverride = true
			cfg.SessionExpiryIntervalMs = *options.Properties.SessionExpiryInterval * 1000
		}
	}

	c.connected.Store(false)

	c.mu.Lock()
	var eerr engine.EngineError
	if c.eng.Connected() {
		eerr = c.eng.Disconnect(cfg)
		c.eng.Sync()
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	c.shutdownLoops()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for goroutines to exit")
	}
	if eerr != engine.ErrNone {
		return eerr
	}
	return nil
}

// shutdownLoops stops reconnectLoop/dispatchLoop and the tick scheduler. It
// is safe to call more than once.
func (c *Client) shutdownLoops() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
	c.ticker.stop()
}

// reconnectLoop redials and re-establishes the session after an unsolicited
// disconnect, with exponential backoff, the same shape as the teacher's
// reconnect supervisor.
func (c *Client) reconnectLoop() {
	defer c.wg.Done()

	backoff := time.Second
	maxBackoff := 2 * time.Minute

	for {
		select {
		case <-c.disconnected:
			time.Sleep(backoff)

			ctx, cancel := context.WithTimeout(context.Background(), c.opts.ConnectTimeout)
			err := c.connect(ctx)
			cancel()

			if err != nil {
				c.opts.Logger.Warn("reconnect attempt failed", "error", err)
				backoff = min(backoff*2, maxBackoff)
				select {
				case c.disconnected <- struct{}{}:
				default:
				}
				continue
			}

			backoff = time.Second
			c.reconnectCount.Add(1)
			if c.metrics != nil {
				c.metrics.ReconnectsTotal.Inc()
			}
			c.resubscribeAll()

		case <-c.stop:
			c.opts.Logger.Debug("reconnectLoop stopped")
			return
		}
	}
}

// AssignedClientID returns the client ID in effect: the one the caller
// supplied, or the one the broker assigned in CONNACK when the caller left
// it blank.
func (c *Client) AssignedClientID() string {
	c.idMu.RLock()
	defer c.idMu.RUnlock()
	return c.assignedClientID
}

// ClientStats reports cumulative counters for a Client's lifetime.
type ClientStats struct {
	PacketsSent     uint64
	PacketsReceived uint64
	BytesSent       uint64
	BytesReceived   uint64
	ReconnectCount  uint64
	Connected       bool
}

// GetStats returns the current client statistics.
func (c *Client) GetStats() ClientStats {
	return ClientStats{
		PacketsSent:     c.packetsSent.Load(),
		PacketsReceived: c.packetsReceived.Load(),
		BytesSent:       c.bytesSent.Load(),
		BytesReceived:   c.bytesReceived.Load(),
		ReconnectCount:  c.reconnectCount.Load(),
		Connected:       c.IsConnected(),
	}
}
