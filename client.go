package tmi

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"git.sr.ht/~taiite/tmi/irc"
)

// ConnectionState is the state of the connection to the chat server.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateClosing
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

const (
	actChanSize      = 64
	anonymousPass    = "SCHMOOPIIE"
	emoteSetsTimeout = 30 * time.Second
)

var capabilities = []string{"twitch.tv/tags", "twitch.tv/commands", "twitch.tv/membership"}

// action is anything handled by the client loop.
type action interface{}

type (
	actionConnect struct {
		reply chan error
	}
	actionDisconnect struct {
		reply chan error
	}
	actionClose struct{}
	actionCommand struct {
		cmd   *command
		reply chan irc.Outcome
	}
	actionCancel struct {
		cmd *command
		err error
	}

	evDialed struct {
		gen  uint64
		conn irc.Conn
		err  error
	}
	evLine struct {
		gen  uint64
		line string
	}
	evClosed struct {
		gen uint64
		err error
	}
	evRetry        struct{ gen uint64 }
	evLogonTimeout struct{ gen uint64 }
	evPingTick     struct{ gen uint64 }
	evPongTimeout  struct{ gen uint64 }
	evExpire       struct{ id uint64 }
	evEmoteSets    struct {
		sets     []string
		registry map[string][]irc.Emote
		err      error
	}
)

// Client is a connection to the Twitch chat that reconnects by itself.
//
// All network input, timers and command calls are funneled into a single
// goroutine, which owns the connection and writes the state.  Queries such as
// IsMod or GetChannels can be called from any goroutine.
type Client struct {
	opts      Options
	logger    *zap.Logger
	dialer    irc.Dialer
	limiter   *rate.Limiter
	metrics   *metrics
	anonymous bool
	password  string

	state   *irc.State
	pending *irc.Correlator
	session *irc.Session
	events  *eventQueue

	acts    chan action
	stopped chan struct{}

	readyState atomic.Int32
	username   atomic.Value // string

	// owned by the loop.
	gen            uint64 // incremented on each connection attempt and teardown.
	conn           irc.Conn
	out            chan<- string
	loggedOn       bool
	attempts       int
	backoff        *reconnectBackoff
	retryTimer     *time.Timer
	logonTimer     *time.Timer
	pingTimer      *time.Timer
	pongTimer      *time.Timer
	pingSent       time.Time
	pingToken      string // echoed by the PONG answering the keep-alive PING.
	latency        time.Duration
	connectWaiters []chan error
	requested      []string // channels to join on each logon.
}

// NewClient creates a client and starts its loop.  Call Close to stop it.
//
// Fields of opts left to their zero value take the value of DefaultOptions,
// except booleans.
func NewClient(opts Options) (*Client, error) {
	opts = withDefaults(opts)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		opts:    opts,
		logger:  opts.Logger,
		dialer:  opts.Dialer,
		metrics: newMetrics(opts.Registerer),
		state:   irc.NewState(),
		events:  newEventQueue(),
		acts:    make(chan action, actChanSize),
		stopped: make(chan struct{}),
		backoff: newReconnectBackoff(opts.ReconnectInterval, opts.MaxReconnectInterval, opts.ReconnectDecay),
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.dialer == nil {
		if opts.Transport == TransportTCP {
			c.dialer = &irc.TCPDialer{}
		} else {
			c.dialer = &irc.WebSocketDialer{}
		}
	}
	if opts.MessageLimit > 0 {
		every := opts.MessageWindow / time.Duration(opts.MessageLimit)
		c.limiter = rate.NewLimiter(rate.Every(every), opts.MessageLimit)
	}

	username := irc.Username(opts.Identity.Username)
	c.password = opts.Identity.Password
	if username == "" {
		c.anonymous = true
		username = fmt.Sprintf("justinfan%d", 1000+rand.Intn(80000))
		c.password = anonymousPass
	} else if !strings.HasPrefix(c.password, "oauth:") {
		c.password = "oauth:" + c.password
	}
	c.username.Store(username)

	c.pending = irc.NewCorrelator(func(id uint64) {
		c.post(evExpire{id: id})
	})
	var emoteSetsChanged func([]string)
	if opts.EmoteSets != nil {
		emoteSetsChanged = func(sets []string) {
			go c.fetchEmoteSets(append([]string(nil), sets...))
		}
	}
	c.session = irc.NewSession(c.state, c.pending, irc.SessionParams{
		Username:         username,
		EmoteSetsChanged: emoteSetsChanged,
	})
	c.resetRequested()

	go c.run()

	return c, nil
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.Server == "" {
		opts.Server = def.Server
	}
	if opts.Transport == "" {
		opts.Transport = def.Transport
	}
	if opts.ReconnectInterval == 0 {
		opts.ReconnectInterval = def.ReconnectInterval
	}
	if opts.MaxReconnectInterval == 0 {
		opts.MaxReconnectInterval = def.MaxReconnectInterval
	}
	if opts.ReconnectDecay == 0 {
		opts.ReconnectDecay = def.ReconnectDecay
	}
	if opts.Timeout == 0 {
		opts.Timeout = def.Timeout
	}
	if opts.CommandTimeout == 0 {
		opts.CommandTimeout = def.CommandTimeout
	}
	if opts.QuietWindow == 0 {
		opts.QuietWindow = def.QuietWindow
	}
	if opts.MessageWindow == 0 {
		opts.MessageWindow = def.MessageWindow
	}
	return opts
}

// Events returns the channel on which events are delivered, in order.  It is
// closed by Close.
func (c *Client) Events() <-chan irc.Event {
	return c.events.out
}

func (c *Client) GetOptions() Options {
	return c.opts
}

// GetUsername returns the name we are logged on as.
func (c *Client) GetUsername() string {
	return c.username.Load().(string)
}

func (c *Client) ReadyState() ConnectionState {
	return ConnectionState(c.readyState.Load())
}

// GetChannels returns the joined channels.
func (c *Client) GetChannels() []string {
	return c.state.Channels()
}

// IsMod reports whether username is a moderator of channel, as far as we
// know.
func (c *Client) IsMod(channel, username string) bool {
	return c.state.IsMod(channel, username)
}

func (c *Client) GlobalUserState() (irc.GlobalUserState, bool) {
	return c.state.GlobalUserState()
}

func (c *Client) RoomState(channel string) (irc.RoomState, bool) {
	return c.state.RoomState(channel)
}

// UserState returns what the server last told about us in channel.
func (c *Client) UserState(channel string) (irc.UserState, bool) {
	return c.state.UserState(channel)
}

func (c *Client) EmoteSets() map[string][]irc.Emote {
	return c.state.EmoteSets()
}

// Connect starts connecting if needed and waits until we are logged on.  If
// ctx ends first, the client keeps connecting in the background.
func (c *Client) Connect(ctx context.Context) (addr string, port int, err error) {
	addr, port = c.opts.Server, c.opts.port()
	reply := make(chan error, 1)
	if !c.post(actionConnect{reply: reply}) {
		err = ErrClosed
		return
	}
	select {
	case err = <-reply:
	case <-ctx.Done():
		err = ctx.Err()
	}
	return
}

// Disconnect closes the connection and cancels any reconnection.
func (c *Client) Disconnect(ctx context.Context) (addr string, port int, err error) {
	addr, port = c.opts.Server, c.opts.port()
	reply := make(chan error, 1)
	if !c.post(actionDisconnect{reply: reply}) {
		err = ErrClosed
		return
	}
	select {
	case err = <-reply:
	case <-ctx.Done():
		err = ctx.Err()
	}
	return
}

// Close disconnects and stops the client.  The events channel is closed once
// the remaining events have been delivered.
func (c *Client) Close() error {
	if c.post(actionClose{}) {
		<-c.stopped
	}
	return nil
}

// post hands act to the loop.  It returns false once the loop has stopped.
func (c *Client) post(act action) bool {
	select {
	case c.acts <- act:
		return true
	case <-c.stopped:
		return false
	}
}

func (c *Client) run() {
	defer close(c.stopped)
	for act := range c.acts {
		if c.handleAction(act) {
			return
		}
	}
}

// handleAction returns true when the loop must stop.
func (c *Client) handleAction(act action) bool {
	switch act := act.(type) {
	case actionConnect:
		c.connect(act.reply)
	case actionDisconnect:
		act.reply <- c.disconnect()
	case actionClose:
		_ = c.disconnect()
		c.events.close()
		return true
	case actionCommand:
		c.runCommand(act.cmd, act.reply)
	case actionCancel:
		c.pending.Cancel(act.cmd.id, act.err)
		c.metrics.pending.Set(float64(c.pending.Len()))
	case evDialed:
		c.dialed(act)
	case evLine:
		if act.gen == c.gen {
			c.handleLine(act.line)
		}
	case evClosed:
		if act.gen == c.gen {
			err := act.err
			if err == nil {
				err = errors.New("connection closed")
			}
			c.connectionLost(err)
		}
	case evRetry:
		if act.gen == c.gen && c.ReadyState() == StateReconnecting {
			c.dial()
		}
	case evLogonTimeout:
		if act.gen == c.gen && !c.loggedOn {
			c.connectionLost(errors.New("logon timed out"))
		}
	case evPingTick:
		if act.gen == c.gen && c.loggedOn {
			c.pingSent = time.Now()
			c.pingToken = newNonce()
			c.send(irc.NewMessage("PING", c.pingToken))
			gen := c.gen
			c.pongTimer = time.AfterFunc(c.opts.Timeout, func() {
				c.post(evPongTimeout{gen: gen})
			})
		}
	case evPongTimeout:
		if act.gen == c.gen {
			c.connectionLost(errors.New("ping timeout"))
		}
	case evExpire:
		for _, ev := range c.session.Expire(act.id) {
			c.emit(ev)
		}
		c.metrics.pending.Set(float64(c.pending.Len()))
	case evEmoteSets:
		if act.err != nil {
			c.logger.Warn("failed to fetch emote sets", zap.Strings("sets", act.sets), zap.Error(act.err))
			break
		}
		for _, ev := range c.session.SetEmoteSets(act.sets, act.registry) {
			c.emit(ev)
		}
	}
	return false
}

func (c *Client) setState(s ConnectionState) {
	c.readyState.Store(int32(s))
	c.metrics.state.Set(float64(s))
}

func (c *Client) emit(ev irc.Event) {
	c.events.push(ev)
}

func (c *Client) connect(reply chan error) {
	switch c.ReadyState() {
	case StateOpen:
		if c.loggedOn {
			reply <- nil
			return
		}
		c.connectWaiters = append(c.connectWaiters, reply)
	case StateDisconnected:
		c.connectWaiters = append(c.connectWaiters, reply)
		c.attempts = 0
		c.backoff.Reset()
		c.dial()
	default:
		c.connectWaiters = append(c.connectWaiters, reply)
	}
}

func (c *Client) settleWaiters(err error) {
	for _, reply := range c.connectWaiters {
		reply <- err
	}
	c.connectWaiters = nil
}

func (c *Client) dial() {
	c.gen++
	gen := c.gen
	host, port, secure := c.opts.Server, c.opts.port(), c.opts.Secure

	c.setState(StateConnecting)
	c.logger.Info("connecting", zap.String("addr", host), zap.Int("port", port))
	c.emit(irc.ConnectingEvent{Addr: host, Port: port})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
		defer cancel()
		conn, err := c.dialer.Dial(ctx, host, port, secure)
		if !c.post(evDialed{gen: gen, conn: conn, err: err}) && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (c *Client) dialed(ev evDialed) {
	if ev.gen != c.gen || c.ReadyState() != StateConnecting {
		if ev.conn != nil {
			_ = ev.conn.Close()
		}
		return
	}
	if ev.err != nil {
		c.connectionLost(ev.err)
		return
	}

	in, out, done := irc.ChanInOut(ev.conn)
	c.conn = ev.conn
	c.out = out
	c.attempts = 0
	c.backoff.Reset()
	c.setState(StateOpen)

	gen := c.gen
	go func() {
		for line := range in {
			if !c.post(evLine{gen: gen, line: line}) {
				for range in {
				}
				return
			}
		}
		c.post(evClosed{gen: gen, err: <-done})
	}()

	c.send(irc.NewMessage("CAP", "REQ", strings.Join(capabilities, " ")))
	c.send(irc.NewMessage("PASS", c.password))
	c.send(irc.NewMessage("NICK", c.GetUsername()))
	c.emit(irc.LogonEvent{})

	c.logonTimer = time.AfterFunc(c.opts.Timeout, func() {
		c.post(evLogonTimeout{gen: gen})
	})
}

func (c *Client) send(msg irc.Message) {
	c.sendLine(msg.String())
}

func (c *Client) sendLine(line string) {
	if c.out == nil {
		return
	}
	if c.opts.Debug {
		shown := line
		if strings.HasPrefix(line, "PASS ") {
			shown = "PASS ***"
		}
		c.emit(irc.RawMessageEvent{Message: shown, Outgoing: true})
	}
	c.out <- line
	c.metrics.sent.Inc()
}

func (c *Client) handleLine(line string) {
	if c.opts.Debug {
		c.emit(irc.RawMessageEvent{Message: line})
	}

	msg, err := irc.ParseMessage(line)
	if err != nil {
		c.metrics.parseErrors.Inc()
		c.logger.Warn("dropping malformed line", zap.Error(err))
		return
	}
	c.metrics.received.WithLabelValues(msg.Command).Inc()

	switch msg.Kind {
	case irc.KindPing:
		c.send(irc.NewMessage("PONG", msg.Params...))
		c.emit(irc.PingEvent{})
		return
	case irc.KindReconnect:
		c.logger.Info("server requested a reconnection")
		c.serverReconnect()
		return
	case irc.KindPong:
		if c.pongTimer != nil && msg.Trailing() == c.pingToken {
			c.pongTimer.Stop()
			c.pongTimer = nil
			c.latency = time.Since(c.pingSent)
			c.emit(irc.PongEvent{Latency: c.latency})
			c.schedulePing()
		}
	case irc.KindWelcome:
		if msg.Command == "001" && len(msg.Params) != 0 {
			c.session.SetUsername(msg.Params[0])
			c.username.Store(c.session.Username())
		}
	case irc.KindEndOfMotd:
		if !c.loggedOn {
			c.loggedOnAck()
		}
	case irc.KindNotice:
		if !c.loggedOn && irc.LoginFailed(&msg) {
			c.authFailed(msg.Params[1])
			return
		}
	case irc.KindCap:
		c.handleCap(&msg)
	case irc.KindUnknownCommand:
		c.logger.Warn("server does not know command", zap.String("command", msg.Params[1]))
	}

	for _, ev := range c.session.HandleMessage(msg) {
		c.emit(ev)
	}
	c.metrics.pending.Set(float64(c.pending.Len()))
}

// handleCap warns about each requested capability the server refused.
func (c *Client) handleCap(msg *irc.Message) {
	if len(msg.Params) < 3 {
		return
	}
	granted := map[string]bool{}
	switch msg.Params[1] {
	case "ACK":
		for _, cp := range irc.ParseCaps(msg.Params[2]) {
			granted[cp.Name] = cp.Enable
		}
	case "NAK":
	default:
		return
	}
	for _, name := range capabilities {
		if !granted[name] {
			c.logger.Warn("capability refused", zap.String("cap", name))
		}
	}
}

func (c *Client) loggedOnAck() {
	c.loggedOn = true
	if c.logonTimer != nil {
		c.logonTimer.Stop()
		c.logonTimer = nil
	}

	addr, port := c.opts.Server, c.opts.port()
	c.logger.Info("connected", zap.String("addr", addr), zap.Int("port", port), zap.String("username", c.GetUsername()))
	c.emit(irc.ConnectedEvent{Addr: addr, Port: port})
	c.settleWaiters(nil)
	c.schedulePing()

	for _, channel := range c.requested {
		c.send(irc.NewMessage("JOIN", channel))
	}
}

func (c *Client) schedulePing() {
	if c.opts.PingInterval <= 0 {
		return
	}
	if c.pingTimer != nil {
		c.pingTimer.Stop()
	}
	gen := c.gen
	c.pingTimer = time.AfterFunc(c.opts.PingInterval, func() {
		c.post(evPingTick{gen: gen})
	})
}

// teardown closes the connection and fails pending commands.  Channel state
// is dropped; channels the caller joined stay in c.requested.
func (c *Client) teardown(reason error) {
	c.gen++
	for _, t := range []*time.Timer{c.retryTimer, c.logonTimer, c.pingTimer, c.pongTimer} {
		if t != nil {
			t.Stop()
		}
	}
	c.retryTimer, c.logonTimer, c.pingTimer, c.pongTimer = nil, nil, nil, nil

	if c.out != nil {
		close(c.out)
		c.out = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.loggedOn = false

	c.pending.RejectAll(fmt.Errorf("%w: %v", irc.ErrConnectionLost, reason))
	c.metrics.pending.Set(0)
	c.state.ResetChannels()
}

// connectionLost handles transport failures: reconnect if allowed, give up
// otherwise.
func (c *Client) connectionLost(reason error) {
	s := c.ReadyState()
	if s == StateDisconnected || s == StateClosing {
		return
	}

	c.logger.Warn("connection lost", zap.Error(reason))
	c.teardown(reason)
	c.emit(irc.DisconnectedEvent{Reason: reason.Error(), Err: reason})

	if !c.opts.Reconnect {
		c.setState(StateDisconnected)
		c.state.Reset()
		c.settleWaiters(fmt.Errorf("%w: %v", irc.ErrConnectionLost, reason))
		return
	}
	if c.opts.MaxReconnectAttempts > 0 && c.attempts >= c.opts.MaxReconnectAttempts {
		c.logger.Error("giving up reconnecting", zap.Int("attempts", c.attempts))
		c.setState(StateDisconnected)
		c.state.Reset()
		c.emit(irc.ReconnectExhaustedEvent{Attempts: c.attempts})
		c.settleWaiters(ErrReconnectExhausted)
		return
	}
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.attempts++
	delay := c.backoff.Next()
	c.setState(StateReconnecting)
	c.metrics.reconnects.Inc()
	c.logger.Info("reconnecting", zap.Int("attempt", c.attempts), zap.Duration("delay", delay))
	c.emit(irc.ReconnectEvent{Attempt: c.attempts, Delay: delay})

	gen := c.gen
	c.retryTimer = time.AfterFunc(delay, func() {
		c.post(evRetry{gen: gen})
	})
}

func (c *Client) serverReconnect() {
	reason := errors.New("server requested a reconnection")
	c.teardown(reason)
	c.emit(irc.DisconnectedEvent{Reason: reason.Error(), Err: reason})
	c.attempts = 0
	c.backoff.Reset()
	c.scheduleReconnect()
}

func (c *Client) authFailed(text string) {
	err := &AuthError{Message: text}
	c.logger.Error("authentication failed", zap.String("reason", text))
	c.teardown(err)
	c.state.Reset()
	c.setState(StateDisconnected)
	c.emit(irc.NoticeEvent{Channel: "*", Content: text})
	c.emit(irc.DisconnectedEvent{Reason: text, Err: err})
	c.settleWaiters(err)
}

func (c *Client) disconnect() error {
	if c.ReadyState() == StateDisconnected {
		return ErrNotConnected
	}

	c.setState(StateClosing)
	reason := errors.New("disconnected by the client")
	c.teardown(reason)
	c.state.Reset()
	c.resetRequested()
	c.setState(StateDisconnected)
	c.logger.Info("disconnected")
	c.emit(irc.DisconnectedEvent{Reason: "Connection closed."})
	c.settleWaiters(fmt.Errorf("%w: %v", irc.ErrConnectionLost, reason))
	return nil
}

func (c *Client) resetRequested() {
	c.requested = nil
	for _, channel := range c.opts.Channels {
		c.addRequested(irc.Channel(channel))
	}
}

func (c *Client) addRequested(channel string) {
	for _, ch := range c.requested {
		if ch == channel {
			return
		}
	}
	c.requested = append(c.requested, channel)
}

func (c *Client) removeRequested(channel string) {
	for i, ch := range c.requested {
		if ch == channel {
			c.requested = append(c.requested[:i], c.requested[i+1:]...)
			return
		}
	}
}

func (c *Client) quietWindow() time.Duration {
	w := c.latency + 100*time.Millisecond
	if w < c.opts.QuietWindow {
		w = c.opts.QuietWindow
	}
	return w
}

func (c *Client) fetchEmoteSets(sets []string) {
	ctx, cancel := context.WithTimeout(context.Background(), emoteSetsTimeout)
	defer cancel()
	registry, err := c.opts.EmoteSets.FetchEmoteSets(ctx, sets)
	c.post(evEmoteSets{sets: sets, registry: registry, err: err})
}

// eventQueue delivers events in order without ever blocking the producer.
type eventQueue struct {
	l      sync.Mutex
	queue  []irc.Event
	closed bool
	signal chan struct{}
	out    chan irc.Event
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		signal: make(chan struct{}, 1),
		out:    make(chan irc.Event),
	}
	go q.run()
	return q
}

func (q *eventQueue) push(ev irc.Event) {
	q.l.Lock()
	q.queue = append(q.queue, ev)
	q.l.Unlock()
	q.wake()
}

func (q *eventQueue) close() {
	q.l.Lock()
	q.closed = true
	q.l.Unlock()
	q.wake()
}

func (q *eventQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) run() {
	for range q.signal {
		for {
			q.l.Lock()
			if len(q.queue) == 0 {
				closed := q.closed
				q.l.Unlock()
				if closed {
					close(q.out)
					return
				}
				break
			}
			ev := q.queue[0]
			q.queue[0] = nil
			q.queue = q.queue[1:]
			q.l.Unlock()
			q.out <- ev
		}
	}
}
