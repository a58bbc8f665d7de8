package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"git.sr.ht/~taiite/tmi"
	"git.sr.ht/~taiite/tmi/irc"
)

const nickColWidth = 16

type app struct {
	cli *tmi.Client
	t   *term.Terminal

	lock    sync.Mutex
	current string
}

func (app *app) printf(format string, a ...interface{}) {
	fmt.Fprintf(app.t, format+"\n", a...)
}

func (app *app) currentChannel() string {
	app.lock.Lock()
	defer app.lock.Unlock()
	return app.current
}

func (app *app) setCurrent(channel string) {
	app.lock.Lock()
	app.current = channel
	app.lock.Unlock()
	app.t.SetPrompt(channel + "> ")
}

// head renders name right-aligned in the nick column.
func head(name string) string {
	name = runewidth.Truncate(name, nickColWidth, "…")
	return runewidth.FillLeft(name, nickColWidth)
}

func (app *app) line(channel, nick, body string) {
	app.printf("%s %s %s %s", time.Now().Format("15:04"), channel, head(nick), body)
}

func displayName(us irc.UserState) string {
	if us.DisplayName != "" {
		return us.DisplayName
	}
	return us.Username
}

func (app *app) handleEvent(ev irc.Event) {
	switch ev := ev.(type) {
	case irc.RawMessageEvent:
		if ev.Outgoing {
			app.printf("C  > S: %s", ev.Message)
		} else {
			app.printf("C <  S: %s", ev.Message)
		}
	case irc.ConnectedEvent:
		app.printf("-- Connected to %s:%d", ev.Addr, ev.Port)
		if app.currentChannel() != "" {
			app.t.SetPrompt(app.currentChannel() + "> ")
		}
	case irc.DisconnectedEvent:
		app.printf("-- Disconnected: %s", ev.Reason)
	case irc.ReconnectEvent:
		app.printf("-- Reconnecting in %s (attempt %d)", ev.Delay, ev.Attempt)
	case irc.ReconnectExhaustedEvent:
		app.printf("-- Gave up reconnecting after %d attempts", ev.Attempts)
	case irc.JoinEvent:
		if ev.Self {
			app.line(ev.Channel, "--", "Joined "+ev.Channel)
		}
	case irc.PartEvent:
		if ev.Self {
			app.line(ev.Channel, "--", "Left "+ev.Channel)
		}
	case irc.MessageEvent:
		name := displayName(ev.User)
		if ev.Type == irc.MessageAction {
			app.line(ev.Channel, "*", name+" "+ev.Content)
		} else {
			app.line(ev.Channel, name, ev.Content)
		}
	case irc.CheerEvent:
		app.line(ev.Channel, displayName(ev.User), fmt.Sprintf("(%d bits) %s", ev.Bits, ev.Content))
	case irc.WhisperEvent:
		if ev.Self {
			app.line("whisper", "->"+ev.From, ev.Content)
		} else {
			app.line("whisper", ev.From, ev.Content)
		}
	case irc.NoticeEvent:
		app.line(ev.Channel, "--", ev.Content)
	case irc.UserNoticeEvent:
		app.line(ev.Channel, "--", ev.SystemMsg)
	case irc.SubscriptionEvent:
		app.line(ev.Channel, "--", fmt.Sprintf("%s subscribed (%s)", ev.Username, ev.Plan.PlanName))
	case irc.ResubEvent:
		app.line(ev.Channel, "--", fmt.Sprintf("%s resubscribed for %d months", ev.Username, ev.Months))
	case irc.SubGiftEvent:
		app.line(ev.Channel, "--", fmt.Sprintf("%s gifted a subscription to %s", ev.Username, ev.Recipient))
	case irc.RaidedEvent:
		app.line(ev.Channel, "--", fmt.Sprintf("%s is raiding with %d viewers", ev.Username, ev.Viewers))
	case irc.BanEvent:
		app.line(ev.Channel, "--", ev.Username+" has been banned")
	case irc.TimeoutEvent:
		app.line(ev.Channel, "--", fmt.Sprintf("%s has been timed out for %s", ev.Username, ev.Duration))
	case irc.ClearChatEvent:
		app.line(ev.Channel, "--", "Chat was cleared")
	case irc.RoomStateEvent, irc.UserStateEvent, irc.GlobalUserStateEvent, irc.PingEvent, irc.PongEvent, irc.LogonEvent, irc.ConnectingEvent:
	default:
		app.printf("=EVENT: %s %+v", ev.Name(), ev)
	}
}
