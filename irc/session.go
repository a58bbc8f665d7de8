package irc

import (
	"strconv"
	"strings"
	"time"
)

// SessionParams defines who we are on the chat server.
type SessionParams struct {
	Username string

	// EmoteSetsChanged is called when GLOBALUSERSTATE reports a new list of
	// emote sets.
	EmoteSetsChanged func(sets []string)
}

// Session turns incoming messages into state changes, command outcomes and
// events.  It is not safe for concurrent use; the State it writes to is.
type Session struct {
	state   *State
	pending *Correlator

	username         string
	emoteSets        string // last seen emote-sets tag.
	emoteSetsChanged func(sets []string)
}

func NewSession(state *State, pending *Correlator, params SessionParams) *Session {
	return &Session{
		state:            state,
		pending:          pending,
		username:         Username(params.Username),
		emoteSetsChanged: params.EmoteSetsChanged,
	}
}

func (s *Session) Username() string {
	return s.username
}

func (s *Session) SetUsername(name string) {
	s.username = Username(name)
}

func (s *Session) IsMe(name string) bool {
	return s.username != "" && Username(name) == s.username
}

// isSelf reports whether the message was sent by us.  The user-id tag is
// compared against GLOBALUSERSTATE when possible.
func (s *Session) isSelf(tags Tags, login string) bool {
	if gus, ok := s.state.GlobalUserState(); ok && gus.UserID != "" {
		if id, ok := tags.Get("user-id"); ok {
			return id == gus.UserID
		}
	}
	return s.IsMe(login)
}

// Expire settles the pending command with the given id after its timeout.
func (s *Session) Expire(id uint64) (events []Event) {
	p, err := s.pending.Expire(id)
	if p != nil && err == nil && p.Echo != nil {
		events = p.Echo(nil)
	}
	return
}

// SetEmoteSets stores the result of an emote set lookup.
func (s *Session) SetEmoteSets(sets []string, registry map[string][]Emote) []Event {
	s.state.setEmoteSets(registry)
	return []Event{EmoteSetsEvent{Sets: sets, Registry: s.state.EmoteSets()}}
}

// HandleMessage applies msg to the state, then settles the pending command it
// answers, if any, and returns the events to report, in that order.
func (s *Session) HandleMessage(msg Message) (events []Event) {
	switch msg.Kind {
	case KindGlobalUserState:
		gus := NewGlobalUserState(msg.Tags)
		s.state.setGlobal(gus)
		events = append(events, GlobalUserStateEvent{State: gus})
		if sets := strings.Join(gus.EmoteSets, ","); sets != s.emoteSets {
			s.emoteSets = sets
			if s.emoteSetsChanged != nil && sets != "" {
				s.emoteSetsChanged(gus.EmoteSets)
			}
		}
	case KindUserState:
		channel := Channel(msg.Params[0])
		us := NewUserState(msg.Tags, s.username)
		s.state.setUserState(channel, us)
		if us.IsModerator() {
			s.state.addMod(channel, s.username)
		} else {
			s.state.removeMod(channel, s.username)
		}
		events = append(events, UserStateEvent{Channel: channel, State: us})
	case KindRoomState:
		channel := Channel(msg.Params[0])
		rs, ok := s.state.mergeRoomState(channel, msg.Tags)
		if !ok {
			// Late ROOMSTATE of a channel we left.
			break
		}
		events = append(events, RoomStateEvent{Channel: channel, State: rs})
		// A ROOMSTATE without subs-only is a single setting change.
		if !msg.Tags.Has("subs-only") {
			if msg.Tags.Has("slow") {
				events = append(events, SlowModeEvent{
					Channel: channel,
					Enabled: rs.Slow > 0,
					Length:  rs.SlowDuration(),
				})
			}
			if msg.Tags.Has("followers-only") {
				events = append(events, FollowersOnlyEvent{
					Channel: channel,
					Enabled: rs.FollowersOnlyEnabled(),
					Length:  rs.FollowersOnlyDuration(),
				})
			}
		}
	case KindPrivmsg:
		events = append(events, s.handlePrivmsg(msg)...)
	case KindWhisper:
		from := msg.Nick()
		events = append(events, WhisperEvent{
			From:    Username(from),
			User:    NewWhisperUserState(msg.Tags, from),
			Content: msg.Params[1],
			Self:    s.isSelf(msg.Tags, from),
		})
	case KindNotice:
		events = append(events, s.handleNotice(msg)...)
	case KindUserNotice:
		events = append(events, s.handleUserNotice(msg))
	case KindClearChat:
		channel := Channel(msg.Params[0])
		if len(msg.Params) < 2 {
			events = append(events, ClearChatEvent{Channel: channel})
			break
		}
		username := Username(msg.Params[1])
		reason := msg.Tags.Value("ban-reason")
		if secs, ok := msg.Tags.Int("ban-duration"); ok {
			events = append(events, TimeoutEvent{
				Channel:  channel,
				Username: username,
				Reason:   reason,
				Duration: time.Duration(secs) * time.Second,
				UserID:   msg.Tags.Value("target-user-id"),
			})
		} else {
			events = append(events, BanEvent{
				Channel:  channel,
				Username: username,
				Reason:   reason,
				UserID:   msg.Tags.Value("target-user-id"),
			})
		}
	case KindClearMsg:
		events = append(events, MessageDeletedEvent{
			Channel:  Channel(msg.Params[0]),
			Username: Username(msg.Tags.Value("login")),
			Content:  msg.Params[1],
			MsgID:    msg.Tags.Value("target-msg-id"),
		})
	case KindHostTarget:
		channel := Channel(msg.Params[0])
		target, rest := word(msg.Params[1])
		viewers, _ := strconv.Atoi(strings.TrimSpace(rest))
		if target == "-" {
			events = append(events, UnhostEvent{Channel: channel, Viewers: viewers})
		} else {
			events = append(events, HostingEvent{
				Channel: channel,
				Target:  Username(target),
				Viewers: viewers,
			})
		}
	case KindJoin:
		channel := Channel(msg.Params[0])
		self := s.IsMe(msg.Nick())
		if self {
			s.state.addChannel(channel)
		}
		events = append(events, JoinEvent{
			Channel:  channel,
			Username: Username(msg.Nick()),
			Self:     self,
		})
	case KindPart:
		channel := Channel(msg.Params[0])
		self := s.IsMe(msg.Nick())
		if self {
			s.state.removeChannel(channel)
		}
		events = append(events, PartEvent{
			Channel:  channel,
			Username: Username(msg.Nick()),
			Self:     self,
		})
	case KindMode:
		channel := Channel(msg.Params[0])
		username := Username(msg.Params[2])
		switch msg.Params[1] {
		case "+o":
			s.state.addMod(channel, username)
			events = append(events, ModEvent{Channel: channel, Username: username})
		case "-o":
			s.state.removeMod(channel, username)
			events = append(events, UnmodEvent{Channel: channel, Username: username})
		}
	case KindNames:
		events = append(events, NamesEvent{
			Channel: Channel(msg.Params[2]),
			Users:   strings.Fields(msg.Params[3]),
		})
	case KindUnknown:
		events = append(events, UnknownEvent{Message: msg})
	}

	p, err := s.pending.Offer(&msg)
	if p != nil && err == nil && p.Echo != nil {
		events = append(events, p.Echo(&msg)...)
	}

	return
}

func (s *Session) handlePrivmsg(msg Message) []Event {
	channel := Channel(msg.Params[0])
	login := msg.Nick()
	text := msg.Params[1]

	if login == "jtv" {
		if ev, ok := parseHosted(channel, text); ok {
			return []Event{ev}
		}
		return nil
	}

	us := NewUserState(msg.Tags, login)
	if us.IsModerator() {
		s.state.addMod(channel, us.Username)
	}
	self := s.isSelf(msg.Tags, login)

	if bits, ok := msg.Tags.Int("bits"); ok && bits > 0 {
		return []Event{CheerEvent{
			Channel: channel,
			User:    us,
			Content: text,
			Bits:    bits,
			Self:    self,
		}}
	}

	ev := MessageEvent{
		Channel: channel,
		User:    us,
		Type:    MessageChat,
		Content: text,
		Self:    self,
	}
	if content, ok := ParseAction(text); ok {
		ev.Type = MessageAction
		ev.Content = content
	}
	ev.Time, _ = msg.Time()
	return []Event{ev}
}

// ParseAction extracts the content of a CTCP ACTION.
func ParseAction(text string) (content string, ok bool) {
	if !strings.HasPrefix(text, "\x01ACTION ") {
		return
	}
	content = strings.TrimPrefix(text, "\x01ACTION ")
	content = strings.TrimSuffix(content, "\x01")
	ok = true
	return
}

// FormatAction wraps content into a CTCP ACTION.
func FormatAction(content string) string {
	return "\x01ACTION " + content + "\x01"
}

// parseHosted parses "<name> is now hosting you for up to <n> viewers.".
func parseHosted(channel, text string) (ev HostedEvent, ok bool) {
	if !strings.Contains(text, "hosting you") {
		return
	}
	name, _ := word(text)
	ev = HostedEvent{
		Channel:  channel,
		Username: Username(name),
		AutoHost: strings.Contains(text, "auto hosting"),
	}
	if i := strings.Index(text, "up to "); i >= 0 {
		n, _ := word(text[i+len("up to "):])
		ev.Viewers, _ = strconv.Atoi(n)
	}
	ok = true
	return
}

// ParseNameList parses notices like "The moderators of this channel are: a, b".
func ParseNameList(text string) (names []string) {
	i := strings.Index(text, ": ")
	if i < 0 {
		return
	}
	for _, name := range strings.Split(strings.TrimSuffix(text[i+2:], "."), ",") {
		name = Username(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return
}

func (s *Session) handleNotice(msg Message) (events []Event) {
	channel := msg.Params[0]
	if channel != "*" {
		channel = Channel(channel)
	}
	msgID := msg.Tags.Value("msg-id")
	text := msg.Params[1]

	switch msgID {
	case NoticeRoomMods:
		mods := ParseNameList(text)
		s.state.setMods(channel, mods)
		events = append(events, ModsEvent{Channel: channel, Mods: mods})
	case NoticeNoMods:
		s.state.setMods(channel, nil)
		events = append(events, ModsEvent{Channel: channel})
	case NoticeVIPsSuccess:
		events = append(events, VIPsEvent{Channel: channel, VIPs: ParseNameList(text)})
	case NoticeNoVIPs:
		events = append(events, VIPsEvent{Channel: channel})
	case NoticeEmoteOnlyOn, NoticeEmoteOnlyOff:
		events = append(events, EmoteOnlyEvent{Channel: channel, Enabled: msgID == NoticeEmoteOnlyOn})
	case NoticeSubsOn, NoticeSubsOff:
		events = append(events, SubscribersEvent{Channel: channel, Enabled: msgID == NoticeSubsOn})
	case NoticeR9kOn, NoticeR9kOff:
		events = append(events, R9kBetaEvent{Channel: channel, Enabled: msgID == NoticeR9kOn})
	case NoticeHostOff, NoticeHostTargetOffline:
		events = append(events, UnhostEvent{Channel: channel})
	}

	events = append(events, NoticeEvent{Channel: channel, MsgID: msgID, Content: text})
	return
}

func (s *Session) handleUserNotice(msg Message) Event {
	channel := Channel(msg.Params[0])
	tags := msg.Tags
	text := msg.Param(1)
	us := NewUserState(tags, msg.Nick())
	months, _ := tags.Int("msg-param-cumulative-months")
	if months == 0 {
		months, _ = tags.Int("msg-param-months")
	}

	switch tags.Value("msg-id") {
	case UserNoticeSub:
		return SubscriptionEvent{
			Channel:  channel,
			Username: us.Username,
			Plan:     newSubPlan(tags),
			Content:  text,
			User:     us,
		}
	case UserNoticeResub:
		return ResubEvent{
			Channel:  channel,
			Username: us.Username,
			Months:   months,
			Plan:     newSubPlan(tags),
			Content:  text,
			User:     us,
		}
	case UserNoticeSubGift, UserNoticeAnonSubGift:
		ev := SubGiftEvent{
			Channel:   channel,
			Recipient: Username(tags.Value("msg-param-recipient-user-name")),
			Months:    months,
			Plan:      newSubPlan(tags),
			User:      us,
		}
		if tags.Value("msg-id") == UserNoticeSubGift {
			ev.Username = us.Username
		}
		return ev
	case UserNoticeSubMysteryGift:
		count, _ := tags.Int("msg-param-mass-gift-count")
		return SubMysteryGiftEvent{
			Channel:  channel,
			Username: us.Username,
			Count:    count,
			Plan:     newSubPlan(tags),
			User:     us,
		}
	case UserNoticeRaid:
		viewers, _ := tags.Int("msg-param-viewerCount")
		return RaidedEvent{
			Channel:  channel,
			Username: Username(tags.Value("msg-param-login")),
			Viewers:  viewers,
		}
	default:
		return UserNoticeEvent{
			Channel:   channel,
			MsgID:     tags.Value("msg-id"),
			SystemMsg: tags.Value("system-msg"),
			Content:   text,
			User:      us,
		}
	}
}

// LoginFailed reports whether a NOTICE received before logon means that the
// credentials were refused.
func LoginFailed(msg *Message) bool {
	if msg.Kind != KindNotice {
		return false
	}
	text := msg.Params[1]
	for _, f := range loginFailures {
		if strings.HasPrefix(text, f) {
			return true
		}
	}
	return false
}
