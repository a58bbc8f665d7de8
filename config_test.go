package tmi

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	opts, err := ParseConfig(strings.NewReader(`
server irc.chat.twitch.tv
transport tcp
secure false
reconnect-interval 2s
max-reconnect-interval 1m
reconnect-decay 2
max-reconnect-attempts 5
message-rate 100 30s
username mybot
password oauth:0123456789abcdef
channels foo #bar
channels baz
client-id abc
debug
`))
	require.NoError(t, err)

	assert.Equal(t, "irc.chat.twitch.tv", opts.Server)
	assert.Equal(t, TransportTCP, opts.Transport)
	assert.False(t, opts.Secure)
	assert.Equal(t, 6667, opts.port())
	assert.Equal(t, 2*time.Second, opts.ReconnectInterval)
	assert.Equal(t, time.Minute, opts.MaxReconnectInterval)
	assert.Equal(t, 2.0, opts.ReconnectDecay)
	assert.Equal(t, 5, opts.MaxReconnectAttempts)
	assert.Equal(t, 100, opts.MessageLimit)
	assert.Equal(t, 30*time.Second, opts.MessageWindow)
	assert.Equal(t, Identity{Username: "mybot", Password: "oauth:0123456789abcdef"}, opts.Identity)
	assert.Equal(t, []string{"foo", "#bar", "baz"}, opts.Channels)
	assert.Equal(t, "abc", opts.ClientID)
	assert.True(t, opts.Debug)

	// Untouched options keep their default.
	assert.True(t, opts.Reconnect)
	assert.Equal(t, DefaultOptions().CommandTimeout, opts.CommandTimeout)
}

func TestParseConfigErrors(t *testing.T) {
	cases := map[string]string{
		"unknown directive": "colour red",
		"missing parameter": "server",
		"bad number":        "port eighty",
		"bad duration":      "timeout soon",
		"bad message rate":  "message-rate 20",
		"invalid transport": "transport carrier-pigeon",
		"password alone":    "password oauth:x",
		"decay below one":   "reconnect-decay 0.5",
	}
	for name, src := range cases {
		_, err := ParseConfig(strings.NewReader(src))
		assert.Error(t, err, name)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.NoError(t, opts.Validate())
	assert.Equal(t, 443, opts.port())

	opts.Transport = TransportTCP
	assert.Equal(t, 6697, opts.port())

	opts.Port = 1234
	assert.Equal(t, 1234, opts.port())
}

func TestWithDefaults(t *testing.T) {
	opts := withDefaults(Options{Identity: Identity{Username: "me"}})
	require.NoError(t, opts.Validate())
	assert.Equal(t, "irc-ws.chat.twitch.tv", opts.Server)
	assert.Equal(t, TransportWebSocket, opts.Transport)
	assert.Equal(t, time.Second, opts.ReconnectInterval)
	assert.False(t, opts.Reconnect)
}

func TestValidateRejectsUnsafeNames(t *testing.T) {
	cases := map[string]func(*Options){
		"space in username": func(o *Options) { o.Identity.Username = "my bot" },
		"CRLF in username":  func(o *Options) { o.Identity.Username = "bot\r\nQUIT" },
		"CRLF in password": func(o *Options) {
			o.Identity.Username = "bot"
			o.Identity.Password = "oauth:x\r\nJOIN #evil"
		},
		"line break in channel": func(o *Options) { o.Channels = []string{"#ok", "#a\nPART #ok"} },
		"empty channel":         func(o *Options) { o.Channels = []string{""} },
	}
	for name, mutate := range cases {
		opts := DefaultOptions()
		mutate(&opts)
		assert.Error(t, opts.Validate(), name)
	}

	opts := DefaultOptions()
	opts.Channels = []string{"#ok", "other"}
	assert.NoError(t, opts.Validate())
}
