package irc

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

func word(s string) (w, rest string) {
	split := strings.SplitN(s, " ", 2)

	if len(split) < 2 {
		w = split[0]
		rest = ""
	} else {
		w = split[0]
		rest = split[1]
	}

	return
}

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("malformed message")

// ParseError is returned when a line cannot be parsed into a Message.
type ParseError struct {
	Line   string
	Reason string
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("malformed message (%s): %q", err.Reason, err.Line)
}

func (err *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Kind classifies messages into the commands this library knows about.
type Kind int

const (
	KindUnknown Kind = iota
	KindPrivmsg
	KindWhisper
	KindNotice
	KindUserState
	KindGlobalUserState
	KindRoomState
	KindUserNotice
	KindClearChat
	KindClearMsg
	KindHostTarget
	KindReconnect
	KindPing
	KindPong
	KindJoin
	KindPart
	KindMode
	KindCap
	KindWelcome
	KindMotd
	KindEndOfMotd
	KindNames
	KindEndOfNames
	KindUnknownCommand
)

var kindNames = [...]string{
	KindUnknown:         "UNKNOWN",
	KindPrivmsg:         "PRIVMSG",
	KindWhisper:         "WHISPER",
	KindNotice:          "NOTICE",
	KindUserState:       "USERSTATE",
	KindGlobalUserState: "GLOBALUSERSTATE",
	KindRoomState:       "ROOMSTATE",
	KindUserNotice:      "USERNOTICE",
	KindClearChat:       "CLEARCHAT",
	KindClearMsg:        "CLEARMSG",
	KindHostTarget:      "HOSTTARGET",
	KindReconnect:       "RECONNECT",
	KindPing:            "PING",
	KindPong:            "PONG",
	KindJoin:            "JOIN",
	KindPart:            "PART",
	KindMode:            "MODE",
	KindCap:             "CAP",
	KindWelcome:         "WELCOME",
	KindMotd:            "MOTD",
	KindEndOfMotd:       "ENDOFMOTD",
	KindNames:           "NAMES",
	KindEndOfNames:      "ENDOFNAMES",
	KindUnknownCommand:  "UNKNOWNCOMMAND",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "UNKNOWN"
	}
	return kindNames[k]
}

var commandKinds = map[string]Kind{
	"PRIVMSG":         KindPrivmsg,
	"WHISPER":         KindWhisper,
	"NOTICE":          KindNotice,
	"USERSTATE":       KindUserState,
	"GLOBALUSERSTATE": KindGlobalUserState,
	"ROOMSTATE":       KindRoomState,
	"USERNOTICE":      KindUserNotice,
	"CLEARCHAT":       KindClearChat,
	"CLEARMSG":        KindClearMsg,
	"HOSTTARGET":      KindHostTarget,
	"RECONNECT":       KindReconnect,
	"PING":            KindPing,
	"PONG":            KindPong,
	"JOIN":            KindJoin,
	"PART":            KindPart,
	"MODE":            KindMode,
	"CAP":             KindCap,
	rplWelcome:        KindWelcome,
	rplYourhost:       KindWelcome,
	rplCreated:        KindWelcome,
	rplMyinfo:         KindWelcome,
	rplMotdstart:      KindMotd,
	rplMotd:           KindMotd,
	rplEndofmotd:      KindEndOfMotd,
	rplNamreply:       KindNames,
	rplEndofnames:     KindEndOfNames,
	errUnknowncommand: KindUnknownCommand,
}

// minParams is the number of parameters a message needs to be handled as
// its kind.  Shorter messages are classified as KindUnknown.
var minParams = map[Kind]int{
	KindPrivmsg:        2,
	KindWhisper:        2,
	KindNotice:         2,
	KindUserState:      1,
	KindRoomState:      1,
	KindUserNotice:     1,
	KindClearChat:      1,
	KindClearMsg:       2,
	KindHostTarget:     2,
	KindJoin:           1,
	KindPart:           1,
	KindMode:           3,
	KindCap:            3,
	KindNames:          4,
	KindEndOfNames:     2,
	KindUnknownCommand: 2,
}

func classify(msg *Message) Kind {
	k, ok := commandKinds[msg.Command]
	if !ok {
		return KindUnknown
	}
	if len(msg.Params) < minParams[k] {
		return KindUnknown
	}
	return k
}

// Message is a parsed chat line.  It must not be modified once returned by
// ParseMessage.
type Message struct {
	Tags    Tags
	Prefix  *Prefix
	Command string
	Params  []string
	Kind    Kind
}

func isCommand(s string) bool {
	if len(s) == 3 && '0' <= s[0] && s[0] <= '9' && '0' <= s[1] && s[1] <= '9' && '0' <= s[2] && s[2] <= '9' {
		return true
	}
	if s == "" {
		return false
	}
	for _, c := range s {
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}

// ParseMessage parses a single line (without its CRLF).
func ParseMessage(line string) (msg Message, err error) {
	orig := line
	line = strings.TrimRight(line, "\r\n")
	line = strings.TrimLeft(line, " ")
	if line == "" {
		err = &ParseError{Line: orig, Reason: "empty line"}
		return
	}

	if line[0] == '@' {
		var tags string

		tags, line = word(line)
		msg.Tags = ParseTags(tags)
	} else {
		msg.Tags = Tags{}
	}

	line = strings.TrimLeft(line, " ")
	if line == "" {
		err = &ParseError{Line: orig, Reason: "missing command"}
		return
	}

	if line[0] == ':' {
		var prefix string

		prefix, line = word(line)
		msg.Prefix = ParsePrefix(prefix[1:])
	}

	line = strings.TrimLeft(line, " ")
	msg.Command, line = word(line)
	if !isCommand(msg.Command) {
		err = &ParseError{Line: orig, Reason: "missing command"}
		return
	}
	msg.Command = strings.ToUpper(msg.Command)

	msg.Params = make([]string, 0, 4)
	for line != "" {
		if line[0] == ':' {
			msg.Params = append(msg.Params, line[1:])
			break
		}

		var param string
		param, line = word(line)
		if param != "" {
			msg.Params = append(msg.Params, param)
		}
	}

	msg.Kind = classify(&msg)
	return
}

// NewMessage builds an outgoing message.
func NewMessage(command string, params ...string) Message {
	return Message{Command: command, Params: params}
}

// WithTag returns a copy of msg with the given tag set.
func (msg Message) WithTag(key, value string) Message {
	tags := make(Tags, len(msg.Tags)+1)
	for k, v := range msg.Tags {
		tags[k] = v
	}
	tags.Set(key, value)
	msg.Tags = tags
	return msg
}

// String encodes msg into a line, without CRLF.
func (msg *Message) String() string {
	var sb strings.Builder

	if len(msg.Tags) != 0 {
		sb.WriteByte('@')
		sb.WriteString(msg.Tags.String())
		sb.WriteByte(' ')
	}

	if msg.Prefix != nil {
		sb.WriteByte(':')
		sb.WriteString(msg.Prefix.String())
		sb.WriteByte(' ')
	}

	sb.WriteString(msg.Command)

	if len(msg.Params) != 0 {
		for _, p := range msg.Params[:len(msg.Params)-1] {
			sb.WriteByte(' ')
			sb.WriteString(p)
		}
		lastParam := msg.Params[len(msg.Params)-1]
		if !strings.ContainsRune(lastParam, ' ') && !strings.HasPrefix(lastParam, ":") && lastParam != "" {
			sb.WriteByte(' ')
			sb.WriteString(lastParam)
		} else {
			sb.WriteString(" :")
			sb.WriteString(lastParam)
		}
	}

	return sb.String()
}

// Param returns the i-th parameter, or "" if there are not enough.
func (msg *Message) Param(i int) string {
	if i < len(msg.Params) {
		return msg.Params[i]
	}
	return ""
}

// Trailing returns the last parameter.
func (msg *Message) Trailing() string {
	if len(msg.Params) == 0 {
		return ""
	}
	return msg.Params[len(msg.Params)-1]
}

// Nick returns the name of the prefix, or "" when there is none.
func (msg *Message) Nick() string {
	if msg.Prefix == nil {
		return ""
	}
	return msg.Prefix.Name
}

// Time returns the tmi-sent-ts tag of the message.
func (msg *Message) Time() (t time.Time, ok bool) {
	ms, ok := msg.Tags.Int("tmi-sent-ts")
	if !ok {
		return
	}
	t = time.UnixMilli(int64(ms))
	return
}

// Prefix is the source of a message.
type Prefix struct {
	Name string
	User string
	Host string
}

// ParsePrefix parses a "nick!user@host" string.
func ParsePrefix(s string) (p *Prefix) {
	if s == "" {
		return
	}

	p = &Prefix{}

	spl0 := strings.Split(s, "@")
	if 1 < len(spl0) {
		p.Host = spl0[1]
	}

	spl1 := strings.Split(spl0[0], "!")
	if 1 < len(spl1) {
		p.User = spl1[1]
	}

	p.Name = spl1[0]

	return
}

func (p *Prefix) String() string {
	if p == nil {
		return ""
	}

	if p.User != "" && p.Host != "" {
		return p.Name + "!" + p.User + "@" + p.Host
	} else if p.User != "" {
		return p.Name + "!" + p.User
	} else if p.Host != "" {
		return p.Name + "@" + p.Host
	} else {
		return p.Name
	}
}

// Channel normalizes a channel name: lowercase with a leading '#'.
func Channel(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(name, "#") {
		return name
	}
	return "#" + name
}

// Username normalizes a user name: lowercase without a leading '#'.
func Username(name string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "#")
}

// Cap is a capability listed in CAP ACK/NAK replies.
type Cap struct {
	Name   string
	Enable bool
}

// ParseCaps parses a space-separated capability list.
func ParseCaps(caps string) (diff []Cap) {
	for _, c := range strings.Split(caps, " ") {
		if c == "" || c == "-" {
			continue
		}

		var item Cap

		if strings.HasPrefix(c, "-") {
			item.Enable = false
			c = c[1:]
		} else {
			item.Enable = true
		}

		item.Name = strings.ToLower(c)
		diff = append(diff, item)
	}

	return
}
