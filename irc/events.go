package irc

import (
	"time"
)

// Event is anything reported by the client.  Name returns the name of the
// event kind.
type Event interface {
	Name() string
}

type ConnectingEvent struct {
	Addr string
	Port int
}

type ConnectedEvent struct {
	Addr string
	Port int
}

// LogonEvent is sent once the logon sequence has been written.
type LogonEvent struct{}

type DisconnectedEvent struct {
	Reason string
	Err    error
}

// ReconnectEvent is sent when a reconnection attempt has been scheduled.
type ReconnectEvent struct {
	Attempt int
	Delay   time.Duration
}

// ReconnectExhaustedEvent is sent when the maximum number of reconnection
// attempts has been reached.
type ReconnectExhaustedEvent struct {
	Attempts int
}

type PingEvent struct{}

type PongEvent struct {
	Latency time.Duration
}

type RawMessageEvent struct {
	Message  string
	Outgoing bool
}

// UnknownEvent carries messages of kind KindUnknown.
type UnknownEvent struct {
	Message Message
}

type GlobalUserStateEvent struct {
	State GlobalUserState
}

type UserStateEvent struct {
	Channel string
	State   UserState
}

type RoomStateEvent struct {
	Channel string
	State   RoomState
}

type SlowModeEvent struct {
	Channel string
	Enabled bool
	Length  time.Duration
}

type FollowersOnlyEvent struct {
	Channel string
	Enabled bool
	Length  time.Duration
}

type EmoteOnlyEvent struct {
	Channel string
	Enabled bool
}

type SubscribersEvent struct {
	Channel string
	Enabled bool
}

type R9kBetaEvent struct {
	Channel string
	Enabled bool
}

type JoinEvent struct {
	Channel  string
	Username string
	Self     bool
}

type PartEvent struct {
	Channel  string
	Username string
	Self     bool
}

type NamesEvent struct {
	Channel string
	Users   []string
}

// Message types of MessageEvent.
const (
	MessageChat   = "chat"
	MessageAction = "action"
)

// MessageEvent is a chat message or action received in a channel.
type MessageEvent struct {
	Channel string
	User    UserState
	Type    string // MessageChat or MessageAction.
	Content string
	Self    bool
	Time    time.Time
}

type CheerEvent struct {
	Channel string
	User    UserState
	Content string
	Bits    int
	Self    bool
}

type WhisperEvent struct {
	From    string
	User    WhisperUserState
	Content string
	Self    bool
}

type NoticeEvent struct {
	Channel string
	MsgID   string
	Content string
}

type ClearChatEvent struct {
	Channel string
}

type BanEvent struct {
	Channel  string
	Username string
	Reason   string
	UserID   string
}

type TimeoutEvent struct {
	Channel  string
	Username string
	Reason   string
	Duration time.Duration
	UserID   string
}

// MessageDeletedEvent is sent when a single message has been removed.
type MessageDeletedEvent struct {
	Channel  string
	Username string
	Content  string
	MsgID    string
}

type ModEvent struct {
	Channel  string
	Username string
}

type UnmodEvent struct {
	Channel  string
	Username string
}

type ModsEvent struct {
	Channel string
	Mods    []string
}

type VIPsEvent struct {
	Channel string
	VIPs    []string
}

type HostingEvent struct {
	Channel string
	Target  string
	Viewers int
}

type UnhostEvent struct {
	Channel string
	Viewers int
}

// HostedEvent is sent when another channel hosts one we are logged in as.
type HostedEvent struct {
	Channel  string
	Username string
	Viewers  int
	AutoHost bool
}

type SubscriptionEvent struct {
	Channel  string
	Username string
	Plan     SubPlan
	Content  string
	User     UserState
}

type ResubEvent struct {
	Channel  string
	Username string
	Months   int
	Plan     SubPlan
	Content  string
	User     UserState
}

type SubGiftEvent struct {
	Channel   string
	Username  string // empty for anonymous gifts.
	Recipient string
	Months    int
	Plan      SubPlan
	User      UserState
}

type SubMysteryGiftEvent struct {
	Channel  string
	Username string
	Count    int
	Plan     SubPlan
	User     UserState
}

type RaidedEvent struct {
	Channel  string
	Username string
	Viewers  int
}

// UserNoticeEvent carries USERNOTICE messages that have no dedicated event.
type UserNoticeEvent struct {
	Channel   string
	MsgID     string
	SystemMsg string
	Content   string
	User      UserState
}

type EmoteSetsEvent struct {
	Sets     []string
	Registry map[string][]Emote
}

func (ConnectingEvent) Name() string         { return "connecting" }
func (ConnectedEvent) Name() string          { return "connected" }
func (LogonEvent) Name() string              { return "logon" }
func (DisconnectedEvent) Name() string       { return "disconnected" }
func (ReconnectEvent) Name() string          { return "reconnect" }
func (ReconnectExhaustedEvent) Name() string { return "reconnectexhausted" }
func (PingEvent) Name() string               { return "ping" }
func (PongEvent) Name() string               { return "pong" }
func (RawMessageEvent) Name() string         { return "raw_message" }
func (UnknownEvent) Name() string            { return "unknown" }
func (GlobalUserStateEvent) Name() string    { return "globaluserstate" }
func (UserStateEvent) Name() string          { return "userstate" }
func (RoomStateEvent) Name() string          { return "roomstate" }
func (SlowModeEvent) Name() string           { return "slowmode" }
func (FollowersOnlyEvent) Name() string      { return "followersonly" }
func (EmoteOnlyEvent) Name() string          { return "emoteonly" }
func (SubscribersEvent) Name() string        { return "subscribers" }
func (R9kBetaEvent) Name() string            { return "r9kbeta" }
func (JoinEvent) Name() string               { return "join" }
func (PartEvent) Name() string               { return "part" }
func (NamesEvent) Name() string              { return "names" }
func (MessageEvent) Name() string            { return "message" }
func (CheerEvent) Name() string              { return "cheer" }
func (WhisperEvent) Name() string            { return "whisper" }
func (NoticeEvent) Name() string             { return "notice" }
func (ClearChatEvent) Name() string          { return "clearchat" }
func (BanEvent) Name() string                { return "ban" }
func (TimeoutEvent) Name() string            { return "timeout" }
func (MessageDeletedEvent) Name() string     { return "messagedeleted" }
func (ModEvent) Name() string                { return "mod" }
func (UnmodEvent) Name() string              { return "unmod" }
func (ModsEvent) Name() string               { return "mods" }
func (VIPsEvent) Name() string               { return "vips" }
func (HostingEvent) Name() string            { return "hosting" }
func (UnhostEvent) Name() string             { return "unhost" }
func (HostedEvent) Name() string             { return "hosted" }
func (SubscriptionEvent) Name() string       { return "subscription" }
func (ResubEvent) Name() string              { return "resub" }
func (SubGiftEvent) Name() string            { return "subgift" }
func (SubMysteryGiftEvent) Name() string     { return "submysterygift" }
func (RaidedEvent) Name() string             { return "raided" }
func (UserNoticeEvent) Name() string         { return "usernotice" }
func (EmoteSetsEvent) Name() string          { return "emotesets" }
