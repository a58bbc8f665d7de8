package irc

import (
	"strings"
	"time"
)

// Emote is an entry of an emote set.
type Emote struct {
	ID   string
	Code string
}

// SubPlan is the tier of a subscription: "Prime", "1000", "2000" or "3000".
type SubPlan struct {
	Plan     string
	PlanName string
	Prime    bool
}

func newSubPlan(tags Tags) SubPlan {
	plan := tags.Value("msg-param-sub-plan")
	return SubPlan{
		Plan:     plan,
		PlanName: tags.Value("msg-param-sub-plan-name"),
		Prime:    strings.EqualFold(plan, "prime"),
	}
}

// GlobalUserState is what the server says about us after logon.
type GlobalUserState struct {
	Badges      Badges
	BadgeInfo   Badges
	Color       string
	DisplayName string
	EmoteSets   []string
	UserID      string
	UserType    string
	Tags        Tags
}

func NewGlobalUserState(tags Tags) GlobalUserState {
	badges, _ := ParseBadges(tags.Value("badges"))
	info, _ := ParseBadges(tags.Value("badge-info"))
	return GlobalUserState{
		Badges:      badges,
		BadgeInfo:   info,
		Color:       tags.Value("color"),
		DisplayName: tags.Value("display-name"),
		EmoteSets:   tags.List("emote-sets"),
		UserID:      tags.Value("user-id"),
		UserType:    tags.Value("user-type"),
		Tags:        tags,
	}
}

// UserState describes the author of a message, or ourselves in a channel
// when sent by USERSTATE.
type UserState struct {
	Username    string
	DisplayName string
	UserID      string
	UserType    string
	Color       string
	Badges      Badges
	BadgeInfo   Badges
	Emotes      Emotes
	EmoteSets   []string
	Mod         bool
	Subscriber  bool
	Turbo       bool
	MsgID       string // the id tag, unique per message.
	RoomID      string
	Tags        Tags
}

// IsBroadcaster reports whether the user owns the channel.
func (us UserState) IsBroadcaster() bool {
	_, ok := us.Badges.Get("broadcaster")
	return ok
}

// IsModerator reports whether the user has moderation rights in the channel.
func (us UserState) IsModerator() bool {
	return us.Mod || us.UserType == "mod" || us.IsBroadcaster()
}

func NewUserState(tags Tags, username string) UserState {
	badges, _ := ParseBadges(tags.Value("badges"))
	info, _ := ParseBadges(tags.Value("badge-info"))
	emotes, _ := ParseEmotes(tags.Value("emotes"))
	if login, ok := tags.Get("login"); ok && login != "" {
		username = login
	}
	return UserState{
		Username:    Username(username),
		DisplayName: tags.Value("display-name"),
		UserID:      tags.Value("user-id"),
		UserType:    tags.Value("user-type"),
		Color:       tags.Value("color"),
		Badges:      badges,
		BadgeInfo:   info,
		Emotes:      emotes,
		EmoteSets:   tags.List("emote-sets"),
		Mod:         tags.Bool("mod"),
		Subscriber:  tags.Bool("subscriber"),
		Turbo:       tags.Bool("turbo"),
		MsgID:       tags.Value("id"),
		RoomID:      tags.Value("room-id"),
		Tags:        tags,
	}
}

// WhisperUserState describes the author of a whisper.
type WhisperUserState struct {
	Username    string
	DisplayName string
	UserID      string
	UserType    string
	Color       string
	Badges      Badges
	Emotes      Emotes
	MessageID   string
	ThreadID    string
	Turbo       bool
	Tags        Tags
}

func NewWhisperUserState(tags Tags, username string) WhisperUserState {
	badges, _ := ParseBadges(tags.Value("badges"))
	emotes, _ := ParseEmotes(tags.Value("emotes"))
	return WhisperUserState{
		Username:    Username(username),
		DisplayName: tags.Value("display-name"),
		UserID:      tags.Value("user-id"),
		UserType:    tags.Value("user-type"),
		Color:       tags.Value("color"),
		Badges:      badges,
		Emotes:      emotes,
		MessageID:   tags.Value("message-id"),
		ThreadID:    tags.Value("thread-id"),
		Turbo:       tags.Bool("turbo"),
		Tags:        tags,
	}
}

// RoomState holds the settings of a joined channel.
type RoomState struct {
	Channel         string
	RoomID          string
	BroadcasterLang string
	EmoteOnly       bool
	FollowersOnly   int // minimum follow age in minutes, -1 when disabled.
	R9K             bool
	Slow            int // seconds between messages, 0 when disabled.
	SubsOnly        bool
}

func newRoomState(channel string) *RoomState {
	return &RoomState{
		Channel:       channel,
		FollowersOnly: -1,
	}
}

// merge updates the fields whose tags are present.
func (rs *RoomState) merge(tags Tags) {
	if v, ok := tags.Get("room-id"); ok {
		rs.RoomID = v
	}
	if v, ok := tags.Get("broadcaster-lang"); ok {
		rs.BroadcasterLang = v
	}
	if tags.Has("emote-only") {
		rs.EmoteOnly = tags.Bool("emote-only")
	}
	if n, ok := tags.Int("followers-only"); ok {
		rs.FollowersOnly = n
	}
	if tags.Has("r9k") {
		rs.R9K = tags.Bool("r9k")
	}
	if n, ok := tags.Int("slow"); ok {
		rs.Slow = n
	}
	if tags.Has("subs-only") {
		rs.SubsOnly = tags.Bool("subs-only")
	}
}

func (rs RoomState) FollowersOnlyEnabled() bool {
	return rs.FollowersOnly >= 0
}

func (rs RoomState) SlowDuration() time.Duration {
	return time.Duration(rs.Slow) * time.Second
}

func (rs RoomState) FollowersOnlyDuration() time.Duration {
	if rs.FollowersOnly < 0 {
		return 0
	}
	return time.Duration(rs.FollowersOnly) * time.Minute
}
