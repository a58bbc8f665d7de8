package tmi

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"git.sr.ht/~taiite/tmi/irc"
)

const testWait = 2 * time.Second

type fakeConn struct {
	lines   chan string // server to client.
	written chan string // client to server.
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		lines:   make(chan string, 64),
		written: make(chan string, 256),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadLine() (string, error) {
	select {
	case line := <-c.lines:
		return line, nil
	case <-c.closed:
		return "", net.ErrClosed
	}
}

func (c *fakeConn) WriteLine(line string) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}
	select {
	case c.written <- line:
		return nil
	case <-c.closed:
		return net.ErrClosed
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) send(lines ...string) {
	for _, line := range lines {
		select {
		case c.lines <- line:
		case <-c.closed:
			return
		}
	}
}

func (c *fakeConn) next(t *testing.T) string {
	t.Helper()
	select {
	case line := <-c.written:
		return line
	case <-time.After(testWait):
		t.Fatal("no line was written")
		return ""
	}
}

func (c *fakeConn) expect(t *testing.T, want string) {
	t.Helper()
	assert.Equal(t, want, c.next(t))
}

// handshake plays the server side of the logon sequence.
func (c *fakeConn) handshake(t *testing.T) {
	t.Helper()
	c.expect(t, "CAP REQ :twitch.tv/tags twitch.tv/commands twitch.tv/membership")
	c.expect(t, "PASS oauth:token")
	c.expect(t, "NICK me")
	c.send(
		":tmi.twitch.tv CAP * ACK :twitch.tv/tags twitch.tv/commands twitch.tv/membership",
		":tmi.twitch.tv 001 me :Welcome, GLHF!",
		":tmi.twitch.tv 375 me :-",
		":tmi.twitch.tv 376 me :>",
	)
}

type fakeDialer struct {
	conns    chan *fakeConn
	err      error
	failures atomic.Int32 // number of next attempts that fail.
	attempts atomic.Int32
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(chan *fakeConn, 8)}
}

func (d *fakeDialer) Dial(ctx context.Context, host string, port int, secure bool) (irc.Conn, error) {
	d.attempts.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	if d.failures.Add(-1) >= 0 {
		return nil, errors.New("connection refused")
	}
	d.failures.Store(0)
	conn := newFakeConn()
	d.conns <- conn
	return conn, nil
}

func (d *fakeDialer) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case conn := <-d.conns:
		return conn
	case <-time.After(testWait):
		t.Fatal("no connection attempt")
		return nil
	}
}

func testOptions(d *fakeDialer) Options {
	opts := DefaultOptions()
	opts.Dialer = d
	opts.Identity = Identity{Username: "Me", Password: "token"}
	opts.Timeout = testWait
	opts.CommandTimeout = testWait
	opts.QuietWindow = 50 * time.Millisecond
	opts.ReconnectInterval = 10 * time.Millisecond
	opts.MaxReconnectInterval = 50 * time.Millisecond
	opts.PingInterval = 0
	opts.MessageLimit = 0
	return opts
}

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	c, err := NewClient(opts)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func connectAsync(c *Client) <-chan error {
	errc := make(chan error, 1)
	go func() {
		_, _, err := c.Connect(context.Background())
		errc <- err
	}()
	return errc
}

func wait[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(testWait):
		t.Fatal("timed out")
		var zero T
		return zero
	}
}

// logon connects c and plays the logon sequence.
func logon(t *testing.T, c *Client, d *fakeDialer) *fakeConn {
	t.Helper()
	errc := connectAsync(c)
	conn := d.next(t)
	conn.handshake(t)
	require.NoError(t, wait(t, errc))
	require.Equal(t, StateOpen, c.ReadyState())
	return conn
}

func waitEvent[T irc.Event](t *testing.T, c *Client) T {
	t.Helper()
	timeout := time.After(testWait)
	for {
		select {
		case ev, ok := <-c.Events():
			require.True(t, ok, "events channel closed")
			if e, ok := ev.(T); ok {
				return e
			}
		case <-timeout:
			var zero T
			t.Fatalf("no %T event", zero)
			return zero
		}
	}
}

type result struct {
	args []string
	err  error
}

func async(f func() ([]string, error)) <-chan result {
	ch := make(chan result, 1)
	go func() {
		args, err := f()
		ch <- result{args, err}
	}()
	return ch
}

func TestClientConnect(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	assert.Equal(t, StateDisconnected, c.ReadyState())

	logon(t, c, d)
	ev := waitEvent[irc.ConnectedEvent](t, c)
	assert.Equal(t, "irc-ws.chat.twitch.tv", ev.Addr)
	assert.Equal(t, 443, ev.Port)
	assert.Equal(t, "me", c.GetUsername())

	// Connecting again is a no-op.
	_, _, err := c.Connect(context.Background())
	assert.NoError(t, err)
}

func TestClientCommandsNeedConnection(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))

	_, err := c.Join(context.Background(), "chan")
	assert.True(t, errors.Is(err, ErrNotConnected))

	_, _, err = c.Disconnect(context.Background())
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestClientJoinPart(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	conn := logon(t, c, d)

	res := async(func() ([]string, error) { return c.Join(context.Background(), "Chan") })
	conn.expect(t, "JOIN #chan")
	conn.send(":me!me@me.tmi.twitch.tv JOIN #chan")

	r := wait(t, res)
	require.NoError(t, r.err)
	assert.Equal(t, []string{"#chan"}, r.args)
	assert.Equal(t, []string{"#chan"}, c.GetChannels())

	res = async(func() ([]string, error) { return c.Part(context.Background(), "#chan") })
	conn.expect(t, "PART #chan")
	conn.send(":me!me@me.tmi.twitch.tv PART #chan")
	r = wait(t, res)
	require.NoError(t, r.err)
	assert.Empty(t, c.GetChannels())
}

func TestClientJoinRejected(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	conn := logon(t, c, d)

	res := async(func() ([]string, error) { return c.Join(context.Background(), "banned") })
	conn.expect(t, "JOIN #banned")
	conn.send("@msg-id=msg_banned :tmi.twitch.tv NOTICE #banned :You are permanently banned from talking in banned.")

	r := wait(t, res)
	var rerr *CommandRejectedError
	require.True(t, errors.As(r.err, &rerr))
	assert.Equal(t, "msg_banned", rerr.MsgID)
}

func TestClientPingPong(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	conn := logon(t, c, d)

	conn.send("PING :tmi.twitch.tv")
	conn.expect(t, "PONG tmi.twitch.tv")
	waitEvent[irc.PingEvent](t, c)

	latency := make(chan time.Duration, 1)
	go func() {
		l, err := c.Ping(context.Background())
		assert.NoError(t, err)
		latency <- l
	}()
	token := pingToken(t, conn.next(t))
	conn.send(":tmi.twitch.tv PONG tmi.twitch.tv :" + token)
	assert.GreaterOrEqual(t, wait(t, latency), time.Duration(0))
}

// pingToken returns the parameter of a PING line, which the PONG must echo.
func pingToken(t *testing.T, line string) string {
	t.Helper()
	msg, err := irc.ParseMessage(line)
	require.NoError(t, err)
	require.Equal(t, "PING", msg.Command, line)
	require.Len(t, msg.Params, 1, line)
	return msg.Params[0]
}

func TestClientKeepAlive(t *testing.T) {
	d := newFakeDialer()
	opts := testOptions(d)
	opts.PingInterval = 20 * time.Millisecond
	c := newTestClient(t, opts)
	conn := logon(t, c, d)

	first := pingToken(t, conn.next(t))
	conn.send(":tmi.twitch.tv PONG tmi.twitch.tv :" + first)
	waitEvent[irc.PongEvent](t, c)
	second := pingToken(t, conn.next(t))
	assert.NotEqual(t, first, second)
}

func TestClientPingIgnoresKeepAlivePong(t *testing.T) {
	d := newFakeDialer()
	opts := testOptions(d)
	opts.PingInterval = 50 * time.Millisecond
	c := newTestClient(t, opts)
	conn := logon(t, c, d)

	keepAlive := pingToken(t, conn.next(t))

	res := make(chan error, 1)
	go func() {
		_, err := c.Ping(context.Background())
		res <- err
	}()
	user := pingToken(t, conn.next(t))
	require.NotEqual(t, keepAlive, user)

	// The keep-alive answer does not settle the user's PING.
	conn.send(":tmi.twitch.tv PONG tmi.twitch.tv :" + keepAlive)
	waitEvent[irc.PongEvent](t, c)
	select {
	case err := <-res:
		t.Fatalf("ping settled by the keep-alive PONG: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	conn.send(":tmi.twitch.tv PONG tmi.twitch.tv :" + user)
	require.NoError(t, wait(t, res))
}

func TestClientConnectionLost(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	conn := logon(t, c, d)

	res := async(func() ([]string, error) { return c.Join(context.Background(), "chan") })
	conn.expect(t, "JOIN #chan")
	conn.Close()

	r := wait(t, res)
	assert.True(t, errors.Is(r.err, ErrConnectionLost))

	waitEvent[irc.DisconnectedEvent](t, c)
	ev := waitEvent[irc.ReconnectEvent](t, c)
	assert.Equal(t, 1, ev.Attempt)
	assert.Equal(t, 10*time.Millisecond, ev.Delay)

	// Channels asked for are joined again after the reconnection.
	conn = d.next(t)
	conn.handshake(t)
	conn.expect(t, "JOIN #chan")
}

func TestClientConnectionLostRejectsInOrder(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	conn := logon(t, c, d)

	// Written by the loop, read once both commands have returned.
	var order []string
	var states []ConnectionState
	issue := func(name string) <-chan result {
		cmd := &command{
			name:  name,
			args:  []string{name},
			lines: []string{"PRIVMSG #chan :/" + name + " x"},
			match: func(*irc.Message) (bool, error) { return false, nil },
			settled: func(irc.Outcome) {
				order = append(order, name)
				states = append(states, c.ReadyState())
			},
		}
		return async(func() ([]string, error) {
			o, err := c.do(context.Background(), cmd)
			return o.Args, err
		})
	}

	first := issue("first")
	conn.expect(t, "PRIVMSG #chan :/first x")
	second := issue("second")
	conn.expect(t, "PRIVMSG #chan :/second x")
	conn.Close()

	assert.True(t, errors.Is(wait(t, first).err, ErrConnectionLost))
	assert.True(t, errors.Is(wait(t, second).err, ErrConnectionLost))
	assert.Equal(t, []string{"first", "second"}, order)
	for _, s := range states {
		assert.NotEqual(t, StateReconnecting, s, "rejected after the reconnection was scheduled")
	}
}

func TestClientBackoffResetsAfterSuccess(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	conn := logon(t, c, d)

	d.failures.Store(2)
	conn.Close()

	var delays []time.Duration
	for i := 0; i < 3; i++ {
		delays = append(delays, waitEvent[irc.ReconnectEvent](t, c).Delay)
	}
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		15 * time.Millisecond,
		22500 * time.Microsecond,
	}, delays)

	conn = d.next(t)
	conn.handshake(t)
	waitEvent[irc.ConnectedEvent](t, c)

	conn.Close()
	ev := waitEvent[irc.ReconnectEvent](t, c)
	assert.Equal(t, 1, ev.Attempt)
	assert.Equal(t, 10*time.Millisecond, ev.Delay)
}

func TestClientServerReconnect(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	conn := logon(t, c, d)

	conn.send(":tmi.twitch.tv RECONNECT")
	waitEvent[irc.DisconnectedEvent](t, c)
	ev := waitEvent[irc.ReconnectEvent](t, c)
	assert.Equal(t, 1, ev.Attempt)

	conn = d.next(t)
	conn.handshake(t)
	waitEvent[irc.ConnectedEvent](t, c)
}

func TestClientNoReconnect(t *testing.T) {
	d := newFakeDialer()
	opts := testOptions(d)
	opts.Reconnect = false
	c := newTestClient(t, opts)
	conn := logon(t, c, d)

	conn.Close()
	waitEvent[irc.DisconnectedEvent](t, c)
	require.Eventually(t, func() bool {
		return c.ReadyState() == StateDisconnected
	}, testWait, 5*time.Millisecond)
	assert.Len(t, d.conns, 0)
}

func TestClientAuthFailure(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))

	errc := connectAsync(c)
	conn := d.next(t)
	conn.expect(t, "CAP REQ :twitch.tv/tags twitch.tv/commands twitch.tv/membership")
	conn.expect(t, "PASS oauth:token")
	conn.expect(t, "NICK me")
	conn.send(":tmi.twitch.tv NOTICE * :Login authentication failed")

	err := wait(t, errc)
	var aerr *AuthError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "Login authentication failed", aerr.Message)
	assert.Equal(t, StateDisconnected, c.ReadyState())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), d.attempts.Load(), "no reconnection after an authentication failure")
}

func TestClientReconnectExhausted(t *testing.T) {
	d := newFakeDialer()
	d.err = errors.New("connection refused")
	opts := testOptions(d)
	opts.MaxReconnectAttempts = 2
	c := newTestClient(t, opts)

	err := wait(t, connectAsync(c))
	assert.True(t, errors.Is(err, ErrReconnectExhausted))
	assert.Equal(t, StateDisconnected, c.ReadyState())
	assert.Equal(t, int32(3), d.attempts.Load())

	ev := waitEvent[irc.ReconnectExhaustedEvent](t, c)
	assert.Equal(t, 2, ev.Attempts)
}

func TestClientDisconnect(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	logon(t, c, d)

	_, _, err := c.Disconnect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDisconnected, c.ReadyState())
	ev := waitEvent[irc.DisconnectedEvent](t, c)
	assert.Nil(t, ev.Err)

	_, _, err = c.Disconnect(context.Background())
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestClientCommandTimeout(t *testing.T) {
	d := newFakeDialer()
	opts := testOptions(d)
	opts.CommandTimeout = 30 * time.Millisecond
	c := newTestClient(t, opts)
	conn := logon(t, c, d)

	res := async(func() ([]string, error) { return c.Ban(context.Background(), "chan", "troll", "") })
	conn.expect(t, "PRIVMSG #chan :/ban troll")
	r := wait(t, res)
	assert.True(t, errors.Is(r.err, ErrCommandTimeout))
}

func TestClientCommandCanceled(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	conn := logon(t, c, d)

	ctx, cancel := context.WithCancel(context.Background())
	res := async(func() ([]string, error) { return c.Mod(ctx, "chan", "friend") })
	conn.expect(t, "PRIVMSG #chan :/mod friend")
	cancel()
	r := wait(t, res)
	assert.True(t, errors.Is(r.err, context.Canceled))
}

func TestClientModerationCommands(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	conn := logon(t, c, d)
	ctx := context.Background()
	conn.send(":me!me@me.tmi.twitch.tv JOIN #chan")
	waitEvent[irc.JoinEvent](t, c)

	res := async(func() ([]string, error) { return c.Timeout(ctx, "chan", "troll", 0, "spam") })
	conn.expect(t, "PRIVMSG #chan :/timeout troll 300 spam")
	conn.send("@msg-id=timeout_success :tmi.twitch.tv NOTICE #chan :troll has been timed out for 5 minutes.")
	r := wait(t, res)
	require.NoError(t, r.err)
	assert.Equal(t, []string{"#chan", "troll", "300", "spam"}, r.args)

	res = async(func() ([]string, error) { return c.Ban(ctx, "chan", "troll", "") })
	conn.expect(t, "PRIVMSG #chan :/ban troll")
	conn.send("@msg-id=already_banned :tmi.twitch.tv NOTICE #chan :troll is already banned in this channel.")
	r = wait(t, res)
	var rerr *CommandRejectedError
	require.True(t, errors.As(r.err, &rerr))
	assert.Equal(t, "ban", rerr.Command)

	res = async(func() ([]string, error) { return c.Slow(ctx, "chan", 0) })
	conn.expect(t, "PRIVMSG #chan :/slow 300")
	conn.send("@msg-id=slow_on :tmi.twitch.tv NOTICE #chan :This room is now in slow mode.")
	require.NoError(t, wait(t, res).err)

	res = async(func() ([]string, error) { return c.Clear(ctx, "chan") })
	conn.expect(t, "PRIVMSG #chan /clear")
	conn.send(":tmi.twitch.tv CLEARCHAT #chan")
	require.NoError(t, wait(t, res).err)

	res = async(func() ([]string, error) { return c.Mods(ctx, "chan") })
	conn.expect(t, "PRIVMSG #chan /mods")
	conn.send("@msg-id=room_mods :tmi.twitch.tv NOTICE #chan :The moderators of this channel are: bob, alice")
	r = wait(t, res)
	require.NoError(t, r.err)
	assert.Equal(t, []string{"alice", "bob"}, r.args)
	assert.True(t, c.IsMod("#chan", "Bob"))

	res = async(func() ([]string, error) { return c.VIPs(ctx, "chan") })
	conn.expect(t, "PRIVMSG #chan /vips")
	conn.send("@msg-id=vips_success :tmi.twitch.tv NOTICE #chan :The VIPs of this channel are: carol.")
	r = wait(t, res)
	require.NoError(t, r.err)
	assert.Equal(t, []string{"carol"}, r.args)

	_, err := c.Commercial(ctx, "chan", 45)
	assert.Error(t, err)
}

func TestClientSay(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	conn := logon(t, c, d)
	ctx := context.Background()

	// Acknowledged by USERSTATE.
	res := async(func() ([]string, error) { return c.Say(ctx, "chan", "hello there") })
	line := conn.next(t)
	assert.True(t, strings.HasPrefix(line, "@client-nonce="), line)
	assert.True(t, strings.HasSuffix(line, " PRIVMSG #chan :hello there"), line)
	conn.send("@badges=;color=;display-name=Me;mod=0 :tmi.twitch.tv USERSTATE #chan")
	r := wait(t, res)
	require.NoError(t, r.err)
	assert.Equal(t, []string{"#chan", "hello there"}, r.args)

	ev := waitEvent[irc.MessageEvent](t, c)
	assert.True(t, ev.Self)
	assert.Equal(t, "hello there", ev.Content)
	assert.Equal(t, irc.MessageChat, ev.Type)

	// Succeeds after the quiet window when the server says nothing.
	res = async(func() ([]string, error) { return c.Say(ctx, "chan", "/me dances") })
	line = conn.next(t)
	assert.True(t, strings.HasSuffix(line, " PRIVMSG #chan :\x01ACTION dances\x01"), line)
	r = wait(t, res)
	require.NoError(t, r.err)
	ev = waitEvent[irc.MessageEvent](t, c)
	assert.Equal(t, irc.MessageAction, ev.Type)
	assert.Equal(t, "dances", ev.Content)

	// Rejected by a NOTICE.
	res = async(func() ([]string, error) { return c.Say(ctx, "chan", "spam") })
	conn.next(t)
	conn.send("@msg-id=msg_duplicate :tmi.twitch.tv NOTICE #chan :Your message is identical to the one you sent less than 30 seconds ago.")
	r = wait(t, res)
	var rerr *CommandRejectedError
	require.True(t, errors.As(r.err, &rerr))
	assert.Equal(t, "msg_duplicate", rerr.MsgID)

	// Chat commands are sent as is.
	res = async(func() ([]string, error) { return c.Say(ctx, "chan", "/uniquechat") })
	conn.expect(t, "PRIVMSG #chan /uniquechat")
	require.NoError(t, wait(t, res).err)
}

func TestClientWhisper(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	conn := logon(t, c, d)

	res := async(func() ([]string, error) { return c.Whisper(context.Background(), "Friend", "psst") })
	conn.expect(t, "PRIVMSG #me :/w friend psst")
	require.NoError(t, wait(t, res).err)
	ev := waitEvent[irc.WhisperEvent](t, c)
	assert.True(t, ev.Self)
	assert.Equal(t, "friend", ev.From)

	_, err := c.Whisper(context.Background(), "me", "hi")
	assert.Error(t, err)
}

func TestClientAnonymous(t *testing.T) {
	d := newFakeDialer()
	opts := testOptions(d)
	opts.Identity = Identity{}
	c := newTestClient(t, opts)
	assert.True(t, strings.HasPrefix(c.GetUsername(), "justinfan"))

	errc := connectAsync(c)
	conn := d.next(t)
	conn.next(t)
	conn.expect(t, "PASS SCHMOOPIIE")
	conn.expect(t, "NICK "+c.GetUsername())
	conn.send(":tmi.twitch.tv 376 " + c.GetUsername() + " :>")
	require.NoError(t, wait(t, errc))

	_, err := c.Say(context.Background(), "chan", "hi")
	assert.True(t, errors.Is(err, ErrAnonymous))
}

func TestClientRoomState(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	conn := logon(t, c, d)

	conn.send(
		":me!me@me.tmi.twitch.tv JOIN #chan",
		"@emote-only=1;followers-only=-1;r9k=0;room-id=1;slow=0;subs-only=0 :tmi.twitch.tv ROOMSTATE #chan",
	)
	waitEvent[irc.RoomStateEvent](t, c)
	rs, ok := c.RoomState("chan")
	require.True(t, ok)
	assert.True(t, rs.EmoteOnly)
	assert.Equal(t, "1", rs.RoomID)
}

func TestClientOptionsChannels(t *testing.T) {
	d := newFakeDialer()
	opts := testOptions(d)
	opts.Channels = []string{"Foo", "#bar"}
	c := newTestClient(t, opts)
	conn := logon(t, c, d)

	conn.expect(t, "JOIN #foo")
	conn.expect(t, "JOIN #bar")
}

func TestConnectionStateString(t *testing.T) {
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "UNKNOWN", ConnectionState(42).String())
}

func TestSplitChunks(t *testing.T) {
	assert.Equal(t, []string{"hello"}, splitChunks("hello", 10))
	assert.Equal(t, []string{"hello", "world"}, splitChunks("hello world", 8))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, splitChunks("abcdefghij", 4))

	chunks := splitChunks("ééééé", 5)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 5)
		assert.True(t, strings.Count(chunk, "é")*2 == len(chunk), "%q", chunk)
	}
	assert.Equal(t, "ééééé", strings.Join(chunks, ""))
}

func TestIsChatCommand(t *testing.T) {
	assert.True(t, isChatCommand("/ban x"))
	assert.True(t, isChatCommand(".ban x"))
	assert.True(t, isChatCommand("\\ban x"))
	assert.False(t, isChatCommand("..."))
	assert.False(t, isChatCommand("hello"))
}

func TestClientRejectsLineBreaks(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, testOptions(d))
	conn := logon(t, c, d)
	ctx := context.Background()

	_, err := c.Say(ctx, "chan", "hi\r\nPRIVMSG #other :injected")
	assert.True(t, errors.Is(err, ErrInvalidMessage))
	_, err = c.Join(ctx, "chan\r\nPART #x")
	assert.True(t, errors.Is(err, ErrInvalidMessage))
	_, err = c.Ban(ctx, "chan", "troll", "bye\n/mod troll")
	assert.True(t, errors.Is(err, ErrInvalidMessage))
	_, err = c.Whisper(ctx, "friend", "a\x00b")
	assert.True(t, errors.Is(err, ErrInvalidMessage))
	_, err = c.Raw(ctx, "PRIVMSG #chan :a\r\nQUIT\r\n")
	assert.True(t, errors.Is(err, ErrInvalidMessage))

	// Nothing reached the connection.
	res := async(func() ([]string, error) { return c.Part(ctx, "chan") })
	conn.expect(t, "PART #chan")
	conn.send(":me!me@me.tmi.twitch.tv PART #chan")
	require.NoError(t, wait(t, res).err)
}

func TestClientWarnsRefusedCapabilities(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := newFakeDialer()
	opts := testOptions(d)
	opts.Logger = zap.New(core)
	c := newTestClient(t, opts)

	errc := connectAsync(c)
	conn := d.next(t)
	conn.next(t)
	conn.next(t)
	conn.next(t)
	conn.send(
		":tmi.twitch.tv CAP * ACK :twitch.tv/tags twitch.tv/commands",
		":tmi.twitch.tv 376 me :>",
	)
	require.NoError(t, wait(t, errc))

	refused := logs.FilterMessage("capability refused").All()
	require.Len(t, refused, 1)
	assert.Equal(t, "twitch.tv/membership", refused[0].ContextMap()["cap"])

	conn.send(":tmi.twitch.tv CAP * NAK :twitch.tv/tags twitch.tv/commands twitch.tv/membership")
	require.Eventually(t, func() bool {
		return logs.FilterMessage("capability refused").Len() == 4
	}, testWait, 5*time.Millisecond)
}
