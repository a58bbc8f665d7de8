package tmi

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"git.sr.ht/~emersion/go-scfg"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"git.sr.ht/~taiite/tmi/irc"
)

// invalidNameChars cannot appear in names sent as protocol parameters.
const invalidNameChars = " \r\n\x00"

const (
	TransportWebSocket = "websocket"
	TransportTCP       = "tcp"
)

// Identity is the account used to log on.  An empty identity logs on
// anonymously, which only allows reading chat.
type Identity struct {
	Username string
	Password string // OAuth token, with or without the "oauth:" prefix.
}

// Options configures a Client.
type Options struct {
	Server    string
	Port      int // 0 picks the default port of the transport.
	Secure    bool
	Transport string // TransportWebSocket or TransportTCP.

	Reconnect            bool
	MaxReconnectAttempts int // 0 means no limit.
	ReconnectInterval    time.Duration
	MaxReconnectInterval time.Duration
	ReconnectDecay       float64

	Timeout        time.Duration // for logon and keep-alive answers.
	CommandTimeout time.Duration
	QuietWindow    time.Duration // minimum wait before a silent command succeeds.
	PingInterval   time.Duration

	// At most MessageLimit chat messages are sent per MessageWindow.  Zero
	// disables throttling.
	MessageLimit  int
	MessageWindow time.Duration

	Identity Identity
	Channels []string

	Debug bool // whether to report every line as a RawMessageEvent.

	// ClientID is the application id used for REST calls.
	ClientID string

	Logger     *zap.Logger
	Registerer prometheus.Registerer // where metrics are registered, if not nil.
	Dialer     irc.Dialer            // nil picks one from Transport.
	EmoteSets  EmoteSetFetcher       // nil disables emote set lookups.
}

// DefaultOptions returns the options used for fields left empty.
func DefaultOptions() Options {
	return Options{
		Server:               "irc-ws.chat.twitch.tv",
		Secure:               true,
		Transport:            TransportWebSocket,
		Reconnect:            true,
		ReconnectInterval:    time.Second,
		MaxReconnectInterval: 30 * time.Second,
		ReconnectDecay:       1.5,
		Timeout:              9999 * time.Millisecond,
		CommandTimeout:       9999 * time.Millisecond,
		QuietWindow:          600 * time.Millisecond,
		PingInterval:         60 * time.Second,
		MessageLimit:         20,
		MessageWindow:        30 * time.Second,
	}
}

func (o *Options) port() int {
	if o.Port != 0 {
		return o.Port
	}
	switch {
	case o.Transport == TransportTCP && o.Secure:
		return 6697
	case o.Transport == TransportTCP:
		return 6667
	case o.Secure:
		return 443
	default:
		return 80
	}
}

// Validate reports the first invalid option.
func (o *Options) Validate() error {
	if o.Server == "" {
		return errors.New("server must not be empty")
	}
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("invalid port %d", o.Port)
	}
	if o.Transport != TransportWebSocket && o.Transport != TransportTCP {
		return fmt.Errorf("unknown transport %q", o.Transport)
	}
	if o.ReconnectInterval <= 0 {
		return errors.New("reconnect interval must be positive")
	}
	if o.MaxReconnectInterval < o.ReconnectInterval {
		return errors.New("max reconnect interval must not be lower than the reconnect interval")
	}
	if o.ReconnectDecay < 1 {
		return errors.New("reconnect decay must be at least 1")
	}
	if o.MaxReconnectAttempts < 0 {
		return errors.New("max reconnect attempts must not be negative")
	}
	if o.Timeout <= 0 || o.CommandTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if o.MessageLimit < 0 {
		return errors.New("message limit must not be negative")
	}
	if o.MessageLimit > 0 && o.MessageWindow <= 0 {
		return errors.New("message window must be positive")
	}
	if o.Identity.Password != "" && o.Identity.Username == "" {
		return errors.New("a password was given without a username")
	}
	if strings.ContainsAny(o.Identity.Username, invalidNameChars) {
		return fmt.Errorf("invalid username %q", o.Identity.Username)
	}
	if strings.ContainsAny(o.Identity.Password, invalidNameChars) {
		return errors.New("invalid password")
	}
	for _, channel := range o.Channels {
		if channel == "" || strings.ContainsAny(channel, invalidNameChars) {
			return fmt.Errorf("invalid channel %q", channel)
		}
	}
	return nil
}

// LoadConfigFile reads options from an scfg file.  Options missing from the
// file keep their default value.
func LoadConfigFile(filename string) (opts Options, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return
	}
	defer f.Close()

	opts, err = ParseConfig(f)
	if err != nil {
		err = fmt.Errorf("%s: %w", filename, err)
	}
	return
}

// ParseConfig reads options in the scfg format, for example:
//
//	server irc.chat.twitch.tv
//	transport tcp
//	username mybot
//	password oauth:0123456789abcdef
//	channels #foo #bar
func ParseConfig(r io.Reader) (opts Options, err error) {
	opts = DefaultOptions()

	block, err := scfg.Read(r)
	if err != nil {
		return
	}

	for _, d := range block {
		if len(d.Params) == 0 && d.Name != "debug" {
			return opts, fmt.Errorf("directive %q: expected at least one parameter", d.Name)
		}

		switch d.Name {
		case "server":
			opts.Server = d.Params[0]
		case "port":
			opts.Port, err = strconv.Atoi(d.Params[0])
		case "secure":
			opts.Secure, err = strconv.ParseBool(d.Params[0])
		case "transport":
			opts.Transport = d.Params[0]
		case "reconnect":
			opts.Reconnect, err = strconv.ParseBool(d.Params[0])
		case "max-reconnect-attempts":
			opts.MaxReconnectAttempts, err = strconv.Atoi(d.Params[0])
		case "reconnect-interval":
			opts.ReconnectInterval, err = time.ParseDuration(d.Params[0])
		case "max-reconnect-interval":
			opts.MaxReconnectInterval, err = time.ParseDuration(d.Params[0])
		case "reconnect-decay":
			opts.ReconnectDecay, err = strconv.ParseFloat(d.Params[0], 64)
		case "timeout":
			opts.Timeout, err = time.ParseDuration(d.Params[0])
		case "command-timeout":
			opts.CommandTimeout, err = time.ParseDuration(d.Params[0])
		case "quiet-window":
			opts.QuietWindow, err = time.ParseDuration(d.Params[0])
		case "ping-interval":
			opts.PingInterval, err = time.ParseDuration(d.Params[0])
		case "message-rate":
			if len(d.Params) != 2 {
				return opts, fmt.Errorf("directive %q: expected a count and a window", d.Name)
			}
			opts.MessageLimit, err = strconv.Atoi(d.Params[0])
			if err == nil {
				opts.MessageWindow, err = time.ParseDuration(d.Params[1])
			}
		case "username":
			opts.Identity.Username = d.Params[0]
		case "password":
			opts.Identity.Password = d.Params[0]
		case "channels":
			opts.Channels = append(opts.Channels, d.Params...)
		case "client-id":
			opts.ClientID = d.Params[0]
		case "debug":
			opts.Debug = true
			if len(d.Params) != 0 {
				opts.Debug, err = strconv.ParseBool(d.Params[0])
			}
		default:
			return opts, fmt.Errorf("unknown directive %q", d.Name)
		}
		if err != nil {
			return opts, fmt.Errorf("directive %q: %w", d.Name, err)
		}
	}

	err = opts.Validate()
	return
}
