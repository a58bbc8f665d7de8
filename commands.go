package tmi

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"git.sr.ht/~taiite/tmi/irc"
)

const (
	maxMessageLen = 500

	defaultTimeout       = 300 * time.Second
	defaultSlow          = 300 * time.Second
	defaultFollowersOnly = 30 * time.Minute
)

// Failure msg-ids shared by most commands.
var commonFailures = []string{
	"no_permission",
	"unrecognized_cmd",
	"unavailable_command",
	"msg_channel_suspended",
}

var chatFailures = []string{
	"msg_banned",
	"msg_bad_characters",
	"msg_channel_blocked",
	"msg_duplicate",
	"msg_emoteonly",
	"msg_followersonly",
	"msg_followersonly_followed",
	"msg_followersonly_zero",
	"msg_r9k",
	"msg_ratelimit",
	"msg_rejected",
	"msg_rejected_mandatory",
	"msg_room_not_found",
	"msg_slowmode",
	"msg_subsonly",
	"msg_suspended",
	"msg_timedout",
	"msg_verified_email",
}

var joinFailures = []string{
	"msg_channel_suspended",
	"msg_banned",
	"tos_ban",
	"msg_room_not_found",
}

var commercialLengths = []int{30, 60, 90, 120, 150, 180}

// command is a request issued by a Client method and run by the loop.
type command struct {
	name     string
	args     []string
	lines    []string
	chat     bool // counts against the message rate limit.
	needAuth bool

	match irc.Matcher
	quiet bool // succeed if nothing matched after the quiet window.
	echo  func(msg *irc.Message) []irc.Event

	// sent and settled run on the loop.
	sent    func()
	settled func(o irc.Outcome)

	id uint64
}

// do hands cmd to the loop and waits for its outcome.
func (c *Client) do(ctx context.Context, cmd *command) (o irc.Outcome, err error) {
	ctx, span := startSpan(ctx, cmd.name, cmd.args)
	defer func() {
		endSpan(span, err)
		c.metrics.commands.WithLabelValues(cmd.name, outcomeLabel(err)).Inc()
		if err != nil {
			c.logger.Debug("command failed", zap.String("command", cmd.name), zap.Strings("args", cmd.args), zap.Error(err))
		} else {
			c.metrics.commandDuration.WithLabelValues(cmd.name).Observe(o.Latency.Seconds())
		}
	}()

	o.Args = cmd.args
	if cmd.needAuth && c.anonymous {
		err = ErrAnonymous
		return
	}
	for _, line := range cmd.lines {
		if strings.ContainsAny(line, "\r\n\x00") {
			err = ErrInvalidMessage
			return
		}
	}
	if cmd.chat && c.limiter != nil {
		if err = c.limiter.Wait(ctx); err != nil {
			return
		}
	}

	reply := make(chan irc.Outcome, 1)
	if !c.post(actionCommand{cmd: cmd, reply: reply}) {
		err = ErrClosed
		return
	}
	select {
	case o = <-reply:
	case <-ctx.Done():
		if !c.post(actionCancel{cmd: cmd, err: ctx.Err()}) {
			err = ErrClosed
			return
		}
		select {
		case o = <-reply:
		case <-c.stopped:
			o.Err = ErrClosed
		}
	case <-c.stopped:
		o.Err = ErrClosed
	}
	err = o.Err
	return
}

// runCommand sends cmd and registers it with the correlator.  It runs on the
// loop and replies exactly once.
func (c *Client) runCommand(cmd *command, reply chan irc.Outcome) {
	if c.ReadyState() != StateOpen || !c.loggedOn {
		reply <- irc.Outcome{Args: cmd.args, Err: ErrNotConnected}
		return
	}

	done := func(o irc.Outcome) {
		if cmd.settled != nil {
			cmd.settled(o)
		}
		reply <- o
	}

	if cmd.match == nil && !cmd.quiet {
		for _, line := range cmd.lines {
			c.sendLine(line)
		}
		if cmd.sent != nil {
			cmd.sent()
		}
		done(irc.Outcome{Args: cmd.args})
		return
	}

	timeout := c.opts.CommandTimeout
	if cmd.quiet {
		timeout = c.quietWindow()
	}
	match := cmd.match
	if match == nil {
		match = func(*irc.Message) (bool, error) { return false, nil }
	}
	cmd.id = c.pending.Register(&irc.PendingCommand{
		Name:    cmd.name,
		Args:    cmd.args,
		Match:   match,
		QuietOK: cmd.quiet,
		Done:    done,
		Echo:    cmd.echo,
	}, timeout)
	c.metrics.pending.Set(float64(c.pending.Len()))

	for _, line := range cmd.lines {
		c.sendLine(line)
	}
	if cmd.sent != nil {
		cmd.sent()
	}
}

func privmsg(channel, text string) string {
	msg := irc.NewMessage("PRIVMSG", channel, text)
	return msg.String()
}

func newNonce() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func rejected(name string, msg *irc.Message) error {
	return &irc.CommandRejectedError{
		Command: name,
		MsgID:   msg.Tags.Value("msg-id"),
		Message: msg.Param(1),
	}
}

// noticeMatcher matches the NOTICEs of channel whose msg-id is one of
// success or failure.  An empty channel matches any channel.
func noticeMatcher(name, channel string, success []string, failure ...string) irc.Matcher {
	return func(msg *irc.Message) (bool, error) {
		if msg.Kind != irc.KindNotice {
			return false, nil
		}
		if channel != "" && irc.Channel(msg.Params[0]) != channel {
			return false, nil
		}
		msgID := msg.Tags.Value("msg-id")
		switch {
		case slices.Contains(success, msgID):
			return true, nil
		case slices.Contains(failure, msgID), slices.Contains(commonFailures, msgID):
			return true, rejected(name, msg)
		}
		return false, nil
	}
}

// splitChunks cuts s into pieces of at most chunkLen bytes, on spaces when
// possible and never inside a rune.
func splitChunks(s string, chunkLen int) (chunks []string) {
	if chunkLen <= 0 {
		return []string{s}
	}
	for chunkLen < len(s) {
		i := strings.LastIndexByte(s[:chunkLen+1], ' ')
		if i <= 0 {
			i = chunkLen
			min := chunkLen - utf8.UTFMax
			for min <= i && !utf8.RuneStart(s[i]) {
				i--
			}
		}
		chunks = append(chunks, s[:i])
		s = strings.TrimLeft(s[i:], " ")
	}
	if len(s) != 0 {
		chunks = append(chunks, s)
	}
	return
}

// isChatCommand reports whether text is a chat command such as "/ban".
func isChatCommand(text string) bool {
	if strings.HasPrefix(text, "..") {
		return false
	}
	return strings.HasPrefix(text, "/") || strings.HasPrefix(text, ".") || strings.HasPrefix(text, "\\")
}

// Join joins channel.  It succeeds when the server echoes our JOIN.
// Channels joined this way are joined again after a reconnection.
func (c *Client) Join(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	cmd := &command{
		name:  "join",
		args:  []string{channel},
		lines: []string{"JOIN " + channel},
		match: func(msg *irc.Message) (bool, error) {
			switch msg.Kind {
			case irc.KindJoin:
				return irc.Channel(msg.Params[0]) == channel && c.session.IsMe(msg.Nick()), nil
			case irc.KindNotice:
				if irc.Channel(msg.Params[0]) == channel && slices.Contains(joinFailures, msg.Tags.Value("msg-id")) {
					return true, rejected("join", msg)
				}
			}
			return false, nil
		},
	}
	cmd.sent = func() {
		c.addRequested(channel)
	}
	cmd.settled = func(o irc.Outcome) {
		if o.Err != nil && !errors.Is(o.Err, irc.ErrConnectionLost) {
			c.removeRequested(channel)
		}
	}
	o, err := c.do(ctx, cmd)
	return o.Args, err
}

// Part leaves channel.
func (c *Client) Part(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	cmd := &command{
		name:  "part",
		args:  []string{channel},
		lines: []string{"PART " + channel},
		match: func(msg *irc.Message) (bool, error) {
			if msg.Kind != irc.KindPart {
				return false, nil
			}
			return irc.Channel(msg.Params[0]) == channel && c.session.IsMe(msg.Nick()), nil
		},
		sent: func() {
			c.removeRequested(channel)
		},
	}
	o, err := c.do(ctx, cmd)
	return o.Args, err
}

// Say sends message to channel.  Messages starting with "/me " are sent as
// actions, and other messages starting with "/", "." or "\" are sent as chat
// commands without waiting for an answer.  Long messages are split.
func (c *Client) Say(ctx context.Context, channel, message string) ([]string, error) {
	channel = irc.Channel(channel)
	for _, prefix := range []string{"/me ", ".me "} {
		if strings.HasPrefix(message, prefix) {
			return c.Action(ctx, channel, strings.TrimPrefix(message, prefix))
		}
	}
	if isChatCommand(message) {
		o, err := c.do(ctx, &command{
			name:     "say",
			args:     []string{channel, message},
			lines:    []string{privmsg(channel, message)},
			chat:     true,
			needAuth: true,
		})
		return o.Args, err
	}
	return c.sayChunks(ctx, "say", channel, message, irc.MessageChat)
}

// Action sends content to channel as a "/me" action.
func (c *Client) Action(ctx context.Context, channel, content string) ([]string, error) {
	return c.sayChunks(ctx, "action", irc.Channel(channel), content, irc.MessageAction)
}

func (c *Client) sayChunks(ctx context.Context, name, channel, text, typ string) (args []string, err error) {
	limit := maxMessageLen
	if typ == irc.MessageAction {
		limit -= len(irc.FormatAction(""))
	}
	chunks := splitChunks(text, limit)
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	for _, chunk := range chunks {
		args, err = c.say(ctx, name, channel, chunk, typ)
		if err != nil {
			return
		}
	}
	args = []string{channel, text}
	return
}

func (c *Client) say(ctx context.Context, name, channel, content, typ string) ([]string, error) {
	text := content
	if typ == irc.MessageAction {
		text = irc.FormatAction(content)
	}
	nonce := newNonce()
	msg := irc.NewMessage("PRIVMSG", channel, text).WithTag("client-nonce", nonce)

	cmd := &command{
		name:     name,
		args:     []string{channel, content},
		lines:    []string{msg.String()},
		chat:     true,
		needAuth: true,
		quiet:    true,
		match: func(msg *irc.Message) (bool, error) {
			switch msg.Kind {
			case irc.KindUserState:
				if irc.Channel(msg.Params[0]) != channel {
					return false, nil
				}
				if n, ok := msg.Tags.Get("client-nonce"); ok && n != nonce {
					return false, nil
				}
				return true, nil
			case irc.KindNotice:
				if irc.Channel(msg.Params[0]) == channel && slices.Contains(chatFailures, msg.Tags.Value("msg-id")) {
					return true, rejected(name, msg)
				}
			}
			return false, nil
		},
		echo: func(*irc.Message) []irc.Event {
			us, _ := c.state.UserState(channel)
			if us.Username == "" {
				us.Username = c.GetUsername()
			}
			return []irc.Event{irc.MessageEvent{
				Channel: channel,
				User:    us,
				Type:    typ,
				Content: content,
				Self:    true,
				Time:    time.Now(),
			}}
		},
	}
	o, err := c.do(ctx, cmd)
	return o.Args, err
}

// Whisper sends a private message to username.
func (c *Client) Whisper(ctx context.Context, username, message string) ([]string, error) {
	username = irc.Username(username)
	if username == c.GetUsername() {
		return []string{username, message}, &irc.CommandRejectedError{
			Command: "whisper",
			MsgID:   "whisper_invalid_self",
			Message: "You cannot whisper to yourself.",
		}
	}
	cmd := &command{
		name:     "whisper",
		args:     []string{username, message},
		lines:    []string{privmsg(irc.Channel(c.GetUsername()), "/w "+username+" "+message)},
		chat:     true,
		needAuth: true,
		quiet:    true,
		match: func(msg *irc.Message) (bool, error) {
			if msg.Kind != irc.KindNotice {
				return false, nil
			}
			if id := msg.Tags.Value("msg-id"); strings.HasPrefix(id, "whisper_") || id == "msg_suspended" {
				return true, rejected("whisper", msg)
			}
			return false, nil
		},
		echo: func(*irc.Message) []irc.Event {
			return []irc.Event{irc.WhisperEvent{
				From:    username,
				User:    irc.WhisperUserState{Username: c.GetUsername()},
				Content: message,
				Self:    true,
			}}
		},
	}
	o, err := c.do(ctx, cmd)
	return o.Args, err
}

// moderation sends "/<verb> <params>" to channel and waits for one of the
// success notices.
func (c *Client) moderation(ctx context.Context, name, channel, text string, args []string, success []string, failure ...string) (irc.Outcome, error) {
	return c.do(ctx, &command{
		name:     name,
		args:     args,
		lines:    []string{privmsg(channel, text)},
		chat:     true,
		needAuth: true,
		match:    noticeMatcher(name, channel, success, failure...),
	})
}

func joinText(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func (c *Client) Ban(ctx context.Context, channel, username, reason string) ([]string, error) {
	channel, username = irc.Channel(channel), irc.Username(username)
	o, err := c.moderation(ctx, "ban", channel, joinText("/ban", username, reason),
		[]string{channel, username, reason},
		[]string{irc.NoticeBanSuccess},
		irc.NoticeAlreadyBanned, "bad_ban_admin", "bad_ban_anon", "bad_ban_broadcaster",
		"bad_ban_global_mod", "bad_ban_mod", "bad_ban_self", "bad_ban_staff", "usage_ban")
	return o.Args, err
}

func (c *Client) Unban(ctx context.Context, channel, username string) ([]string, error) {
	channel, username = irc.Channel(channel), irc.Username(username)
	o, err := c.moderation(ctx, "unban", channel, "/unban "+username,
		[]string{channel, username},
		[]string{irc.NoticeUnbanSuccess},
		"bad_unban_no_ban", "usage_unban")
	return o.Args, err
}

// Timeout bans username from channel for duration, 300 seconds if zero.
func (c *Client) Timeout(ctx context.Context, channel, username string, duration time.Duration, reason string) ([]string, error) {
	channel, username = irc.Channel(channel), irc.Username(username)
	if duration <= 0 {
		duration = defaultTimeout
	}
	secs := strconv.Itoa(int(duration / time.Second))
	o, err := c.moderation(ctx, "timeout", channel, joinText("/timeout", username, secs, reason),
		[]string{channel, username, secs, reason},
		[]string{irc.NoticeTimeoutSuccess},
		"bad_timeout_admin", "bad_timeout_anon", "bad_timeout_broadcaster", "bad_timeout_duration",
		"bad_timeout_global_mod", "bad_timeout_mod", "bad_timeout_self", "bad_timeout_staff", "usage_timeout")
	return o.Args, err
}

func (c *Client) Untimeout(ctx context.Context, channel, username string) ([]string, error) {
	channel, username = irc.Channel(channel), irc.Username(username)
	o, err := c.moderation(ctx, "untimeout", channel, "/untimeout "+username,
		[]string{channel, username},
		[]string{irc.NoticeUntimeoutSuccess},
		"bad_unban_no_ban", "usage_untimeout")
	return o.Args, err
}

func (c *Client) Mod(ctx context.Context, channel, username string) ([]string, error) {
	channel, username = irc.Channel(channel), irc.Username(username)
	o, err := c.moderation(ctx, "mod", channel, "/mod "+username,
		[]string{channel, username},
		[]string{irc.NoticeModSuccess},
		"bad_mod_banned", "bad_mod_mod", "usage_mod")
	return o.Args, err
}

func (c *Client) Unmod(ctx context.Context, channel, username string) ([]string, error) {
	channel, username = irc.Channel(channel), irc.Username(username)
	o, err := c.moderation(ctx, "unmod", channel, "/unmod "+username,
		[]string{channel, username},
		[]string{irc.NoticeUnmodSuccess},
		"bad_unmod_mod", "usage_unmod")
	return o.Args, err
}

// Mods returns the moderators of channel.
func (c *Client) Mods(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	o, err := c.moderation(ctx, "mods", channel, "/mods",
		[]string{channel},
		[]string{irc.NoticeRoomMods, irc.NoticeNoMods},
		"usage_mods")
	if err != nil {
		return nil, err
	}
	if o.Message == nil || o.Message.Tags.Value("msg-id") == irc.NoticeNoMods {
		return nil, nil
	}
	mods := irc.ParseNameList(o.Message.Params[1])
	slices.Sort(mods)
	return mods, nil
}

// VIPs returns the VIPs of channel.
func (c *Client) VIPs(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	o, err := c.moderation(ctx, "vips", channel, "/vips",
		[]string{channel},
		[]string{irc.NoticeVIPsSuccess, irc.NoticeNoVIPs},
		"usage_vips")
	if err != nil {
		return nil, err
	}
	if o.Message == nil || o.Message.Tags.Value("msg-id") == irc.NoticeNoVIPs {
		return nil, nil
	}
	return irc.ParseNameList(o.Message.Params[1]), nil
}

// Clear removes all messages from channel.
func (c *Client) Clear(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	failures := noticeMatcher("clear", channel, nil, "usage_clear")
	o, err := c.do(ctx, &command{
		name:     "clear",
		args:     []string{channel},
		lines:    []string{privmsg(channel, "/clear")},
		chat:     true,
		needAuth: true,
		match: func(msg *irc.Message) (bool, error) {
			if msg.Kind == irc.KindClearChat {
				return irc.Channel(msg.Params[0]) == channel && len(msg.Params) == 1, nil
			}
			return failures(msg)
		},
	})
	return o.Args, err
}

// Slow enables slow mode for length, 300 seconds if zero.
func (c *Client) Slow(ctx context.Context, channel string, length time.Duration) ([]string, error) {
	channel = irc.Channel(channel)
	if length <= 0 {
		length = defaultSlow
	}
	secs := strconv.Itoa(int(length / time.Second))
	o, err := c.moderation(ctx, "slow", channel, "/slow "+secs,
		[]string{channel, secs},
		[]string{irc.NoticeSlowOn},
		"usage_slow_on")
	return o.Args, err
}

func (c *Client) SlowOff(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	o, err := c.moderation(ctx, "slowoff", channel, "/slowoff",
		[]string{channel},
		[]string{irc.NoticeSlowOff},
		"usage_slow_off")
	return o.Args, err
}

func (c *Client) R9kBeta(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	o, err := c.moderation(ctx, "r9kbeta", channel, "/r9kbeta",
		[]string{channel},
		[]string{irc.NoticeR9kOn},
		irc.NoticeAlreadyR9kOn, "usage_r9k_on")
	return o.Args, err
}

func (c *Client) R9kBetaOff(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	o, err := c.moderation(ctx, "r9kbetaoff", channel, "/r9kbetaoff",
		[]string{channel},
		[]string{irc.NoticeR9kOff},
		irc.NoticeAlreadyR9kOff, "usage_r9k_off")
	return o.Args, err
}

func (c *Client) Subscribers(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	o, err := c.moderation(ctx, "subscribers", channel, "/subscribers",
		[]string{channel},
		[]string{irc.NoticeSubsOn},
		irc.NoticeAlreadySubsOn, "usage_subs_on")
	return o.Args, err
}

func (c *Client) SubscribersOff(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	o, err := c.moderation(ctx, "subscribersoff", channel, "/subscribersoff",
		[]string{channel},
		[]string{irc.NoticeSubsOff},
		irc.NoticeAlreadySubsOff, "usage_subs_off")
	return o.Args, err
}

func (c *Client) EmoteOnly(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	o, err := c.moderation(ctx, "emoteonly", channel, "/emoteonly",
		[]string{channel},
		[]string{irc.NoticeEmoteOnlyOn},
		irc.NoticeAlreadyEmoteOnlyOn, "usage_emote_only_on")
	return o.Args, err
}

func (c *Client) EmoteOnlyOff(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	o, err := c.moderation(ctx, "emoteonlyoff", channel, "/emoteonlyoff",
		[]string{channel},
		[]string{irc.NoticeEmoteOnlyOff},
		irc.NoticeAlreadyEmoteOnlyOff, "usage_emote_only_off")
	return o.Args, err
}

// FollowersOnly restricts chat to users who followed for at least length,
// 30 minutes if zero.
func (c *Client) FollowersOnly(ctx context.Context, channel string, length time.Duration) ([]string, error) {
	channel = irc.Channel(channel)
	if length <= 0 {
		length = defaultFollowersOnly
	}
	minutes := strconv.Itoa(int(length / time.Minute))
	o, err := c.moderation(ctx, "followersonly", channel, "/followers "+minutes,
		[]string{channel, minutes},
		[]string{irc.NoticeFollowersOn, irc.NoticeFollowersOnZero},
		"usage_followers_on")
	return o.Args, err
}

func (c *Client) FollowersOnlyOff(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	o, err := c.moderation(ctx, "followersonlyoff", channel, "/followersoff",
		[]string{channel},
		[]string{irc.NoticeFollowersOff},
		"usage_followers_off")
	return o.Args, err
}

// Color changes the color of our name.
func (c *Client) Color(ctx context.Context, color string) ([]string, error) {
	o, err := c.do(ctx, &command{
		name:     "color",
		args:     []string{color},
		lines:    []string{privmsg(irc.Channel(c.GetUsername()), "/color "+color)},
		chat:     true,
		needAuth: true,
		match: noticeMatcher("color", "", []string{irc.NoticeColorChanged},
			"turbo_only_color", "usage_color"),
	})
	return o.Args, err
}

// Commercial runs a commercial of the given length in seconds.
func (c *Client) Commercial(ctx context.Context, channel string, seconds int) ([]string, error) {
	channel = irc.Channel(channel)
	if seconds == 0 {
		seconds = 30
	}
	length := strconv.Itoa(seconds)
	args := []string{channel, length}
	if !slices.Contains(commercialLengths, seconds) {
		return args, fmt.Errorf("invalid commercial length %d, must be one of %v", seconds, commercialLengths)
	}
	o, err := c.moderation(ctx, "commercial", channel, "/commercial "+length,
		args,
		[]string{irc.NoticeCommercialSuccess},
		"bad_commercial_error", "usage_commercial")
	return o.Args, err
}

// Host hosts target on channel and returns the number of host commands
// remaining.
func (c *Client) Host(ctx context.Context, channel, target string) (remaining int, err error) {
	channel, target = irc.Channel(channel), irc.Username(target)
	o, err := c.moderation(ctx, "host", channel, "/host "+target,
		[]string{channel, target},
		[]string{irc.NoticeHostsRemaining},
		"bad_host_hosting", "bad_host_rate_exceeded", "bad_host_error", "usage_host")
	if err != nil {
		return 0, err
	}
	if o.Message != nil {
		n, _, _ := strings.Cut(o.Message.Params[1], " ")
		remaining, _ = strconv.Atoi(n)
	}
	return remaining, nil
}

// Unhost stops hosting on channel.
func (c *Client) Unhost(ctx context.Context, channel string) ([]string, error) {
	channel = irc.Channel(channel)
	notices := noticeMatcher("unhost", channel, []string{irc.NoticeHostOff}, irc.NoticeNotHosting, "usage_unhost")
	o, err := c.do(ctx, &command{
		name:     "unhost",
		args:     []string{channel},
		lines:    []string{privmsg(channel, "/unhost")},
		chat:     true,
		needAuth: true,
		match: func(msg *irc.Message) (bool, error) {
			if msg.Kind == irc.KindHostTarget {
				return irc.Channel(msg.Params[0]) == channel && strings.HasPrefix(msg.Params[1], "- "), nil
			}
			return notices(msg)
		},
	})
	return o.Args, err
}

// DeleteMessage deletes the message with the given id from channel.
func (c *Client) DeleteMessage(ctx context.Context, channel, msgID string) ([]string, error) {
	channel = irc.Channel(channel)
	o, err := c.moderation(ctx, "deletemessage", channel, "/delete "+msgID,
		[]string{channel, msgID},
		[]string{irc.NoticeDeleteMessageSuccess},
		"bad_delete_message_error", "bad_delete_message_broadcaster", "bad_delete_message_mod", "usage_delete")
	return o.Args, err
}

// Ping sends a PING and returns the time it took for the matching PONG to
// arrive.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	nonce := newNonce()
	ping := irc.NewMessage("PING", nonce)
	o, err := c.do(ctx, &command{
		name:  "ping",
		lines: []string{ping.String()},
		match: func(msg *irc.Message) (bool, error) {
			return msg.Kind == irc.KindPong && msg.Trailing() == nonce, nil
		},
		settled: func(o irc.Outcome) {
			if o.Err == nil {
				c.latency = o.Latency
			}
		},
	})
	if err != nil {
		return 0, err
	}
	return o.Latency, nil
}

// Raw sends line as is and does not wait for an answer.
func (c *Client) Raw(ctx context.Context, line string) ([]string, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.ContainsAny(line, "\r\n\x00") {
		return []string{line}, ErrInvalidMessage
	}
	msg, err := irc.ParseMessage(line)
	if err != nil {
		return []string{line}, err
	}
	o, err := c.do(ctx, &command{
		name:  "raw",
		args:  []string{line},
		lines: []string{line},
		chat:  msg.Command == "PRIVMSG",
	})
	return o.Args, err
}
