package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const commandTimeout = 15 * time.Second

var errQuit = errors.New("quit")

type command struct {
	AllowHome bool
	MinArgs   int
	MaxArgs   int
	Usage     string
	Desc      string
	Handle    func(ctx context.Context, app *app, channel string, args []string) error
}

type commandSet map[string]*command

var commands commandSet

func init() {
	commands = commandSet{
		"HELP": {
			AllowHome: true,
			MaxArgs:   1,
			Usage:     "[command]",
			Desc:      "show the list of commands, or how to use the given one",
			Handle:    commandDoHelp,
		},
		"JOIN": {
			AllowHome: true,
			MinArgs:   1,
			MaxArgs:   1,
			Usage:     "<channel>",
			Desc:      "join a channel and make it the current one",
			Handle:    commandDoJoin,
		},
		"PART": {
			AllowHome: true,
			MaxArgs:   1,
			Usage:     "[channel]",
			Desc:      "part a channel",
			Handle:    commandDoPart,
		},
		"BUFFER": {
			AllowHome: true,
			MinArgs:   1,
			MaxArgs:   1,
			Usage:     "<channel>",
			Desc:      "switch to a joined channel",
			Handle:    commandDoBuffer,
		},
		"ME": {
			MinArgs: 1,
			MaxArgs: 1,
			Usage:   "<message>",
			Desc:    "send an action",
			Handle:  commandDoMe,
		},
		"W": {
			AllowHome: true,
			MinArgs:   2,
			MaxArgs:   2,
			Usage:     "<user> <message>",
			Desc:      "whisper to the given user",
			Handle:    commandDoWhisper,
		},
		"BAN": {
			MinArgs: 1,
			MaxArgs: 2,
			Usage:   "<user> [reason]",
			Desc:    "ban a user from the current channel",
			Handle:  commandDoBan,
		},
		"UNBAN": {
			MinArgs: 1,
			MaxArgs: 1,
			Usage:   "<user>",
			Desc:    "lift the ban of a user",
			Handle:  commandDoUnban,
		},
		"TIMEOUT": {
			MinArgs: 1,
			MaxArgs: 3,
			Usage:   "<user> [seconds] [reason]",
			Desc:    "temporarily ban a user",
			Handle:  commandDoTimeout,
		},
		"UNTIMEOUT": {
			MinArgs: 1,
			MaxArgs: 1,
			Usage:   "<user>",
			Desc:    "lift the timeout of a user",
			Handle:  commandDoUntimeout,
		},
		"MOD": {
			MinArgs: 1,
			MaxArgs: 1,
			Usage:   "<user>",
			Desc:    "make a user moderator",
			Handle:  commandDoMod,
		},
		"UNMOD": {
			MinArgs: 1,
			MaxArgs: 1,
			Usage:   "<user>",
			Desc:    "remove a moderator",
			Handle:  commandDoUnmod,
		},
		"MODS": {
			Desc:   "list the moderators of the current channel",
			Handle: commandDoMods,
		},
		"VIPS": {
			Desc:   "list the VIPs of the current channel",
			Handle: commandDoVIPs,
		},
		"CLEAR": {
			Desc:   "clear the chat of the current channel",
			Handle: commandDoClear,
		},
		"SLOW": {
			MaxArgs: 1,
			Usage:   "[seconds|off]",
			Desc:    "enable or disable slow mode",
			Handle:  commandDoSlow,
		},
		"FOLLOWERS": {
			MaxArgs: 1,
			Usage:   "[minutes|off]",
			Desc:    "enable or disable followers-only mode",
			Handle:  commandDoFollowers,
		},
		"EMOTEONLY": {
			MaxArgs: 1,
			Usage:   "[off]",
			Desc:    "enable or disable emote-only mode",
			Handle:  commandDoEmoteOnly,
		},
		"SUBSCRIBERS": {
			MaxArgs: 1,
			Usage:   "[off]",
			Desc:    "enable or disable subscribers-only mode",
			Handle:  commandDoSubscribers,
		},
		"R9KBETA": {
			MaxArgs: 1,
			Usage:   "[off]",
			Desc:    "enable or disable unique-chat mode",
			Handle:  commandDoR9kBeta,
		},
		"COLOR": {
			AllowHome: true,
			MinArgs:   1,
			MaxArgs:   1,
			Usage:     "<color>",
			Desc:      "change the color of your name",
			Handle:    commandDoColor,
		},
		"DELETE": {
			MinArgs: 1,
			MaxArgs: 1,
			Usage:   "<message id>",
			Desc:    "delete a message",
			Handle:  commandDoDelete,
		},
		"PING": {
			AllowHome: true,
			Desc:      "measure the latency to the server",
			Handle:    commandDoPing,
		},
		"QUOTE": {
			AllowHome: true,
			MinArgs:   1,
			MaxArgs:   1,
			Usage:     "<raw message>",
			Desc:      "send raw protocol data",
			Handle:    commandDoQuote,
		},
		"QUIT": {
			AllowHome: true,
			Desc:      "quit",
			Handle:    commandDoQuit,
		},
	}
}

func noCommand(ctx context.Context, app *app, channel, content string) error {
	if channel == "" {
		return fmt.Errorf("no current channel, /join one first")
	}
	_, err := app.cli.Say(ctx, channel, content)
	return err
}

func commandDoHelp(ctx context.Context, app *app, channel string, args []string) error {
	var names []string
	for name := range commands {
		if len(args) == 0 || strings.Contains(name, strings.ToUpper(args[0])) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no command matches %q", args[0])
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := commands[name]
		app.printf("  %s %s", name, cmd.Usage)
		app.printf("    %s", cmd.Desc)
	}
	return nil
}

func commandDoJoin(ctx context.Context, app *app, channel string, args []string) error {
	args, err := app.cli.Join(ctx, args[0])
	if err != nil {
		return err
	}
	app.setCurrent(args[0])
	return nil
}

func commandDoPart(ctx context.Context, app *app, channel string, args []string) error {
	if len(args) != 0 {
		channel = args[0]
	}
	if channel == "" {
		return fmt.Errorf("no channel to part")
	}
	_, err := app.cli.Part(ctx, channel)
	return err
}

func commandDoBuffer(ctx context.Context, app *app, channel string, args []string) error {
	for _, ch := range app.cli.GetChannels() {
		if strings.Contains(ch, strings.ToLower(args[0])) {
			app.setCurrent(ch)
			return nil
		}
	}
	return fmt.Errorf("none of the joined channels match %q", args[0])
}

func commandDoMe(ctx context.Context, app *app, channel string, args []string) error {
	_, err := app.cli.Action(ctx, channel, args[0])
	return err
}

func commandDoWhisper(ctx context.Context, app *app, channel string, args []string) error {
	_, err := app.cli.Whisper(ctx, args[0], args[1])
	return err
}

func commandDoBan(ctx context.Context, app *app, channel string, args []string) error {
	reason := ""
	if len(args) == 2 {
		reason = args[1]
	}
	_, err := app.cli.Ban(ctx, channel, args[0], reason)
	return err
}

func commandDoUnban(ctx context.Context, app *app, channel string, args []string) error {
	_, err := app.cli.Unban(ctx, channel, args[0])
	return err
}

func commandDoTimeout(ctx context.Context, app *app, channel string, args []string) error {
	var duration time.Duration
	reason := ""
	if len(args) >= 2 {
		secs, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid duration %q", args[1])
		}
		duration = time.Duration(secs) * time.Second
	}
	if len(args) == 3 {
		reason = args[2]
	}
	_, err := app.cli.Timeout(ctx, channel, args[0], duration, reason)
	return err
}

func commandDoUntimeout(ctx context.Context, app *app, channel string, args []string) error {
	_, err := app.cli.Untimeout(ctx, channel, args[0])
	return err
}

func commandDoMod(ctx context.Context, app *app, channel string, args []string) error {
	_, err := app.cli.Mod(ctx, channel, args[0])
	return err
}

func commandDoUnmod(ctx context.Context, app *app, channel string, args []string) error {
	_, err := app.cli.Unmod(ctx, channel, args[0])
	return err
}

func commandDoMods(ctx context.Context, app *app, channel string, args []string) error {
	mods, err := app.cli.Mods(ctx, channel)
	if err != nil {
		return err
	}
	app.printf("-- Moderators of %s: %s", channel, strings.Join(mods, ", "))
	return nil
}

func commandDoVIPs(ctx context.Context, app *app, channel string, args []string) error {
	vips, err := app.cli.VIPs(ctx, channel)
	if err != nil {
		return err
	}
	app.printf("-- VIPs of %s: %s", channel, strings.Join(vips, ", "))
	return nil
}

func commandDoClear(ctx context.Context, app *app, channel string, args []string) error {
	_, err := app.cli.Clear(ctx, channel)
	return err
}

func isOff(args []string) bool {
	return len(args) != 0 && strings.EqualFold(args[0], "off")
}

func commandDoSlow(ctx context.Context, app *app, channel string, args []string) (err error) {
	if isOff(args) {
		_, err = app.cli.SlowOff(ctx, channel)
		return
	}
	var length time.Duration
	if len(args) != 0 {
		secs, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid duration %q", args[0])
		}
		length = time.Duration(secs) * time.Second
	}
	_, err = app.cli.Slow(ctx, channel, length)
	return
}

func commandDoFollowers(ctx context.Context, app *app, channel string, args []string) (err error) {
	if isOff(args) {
		_, err = app.cli.FollowersOnlyOff(ctx, channel)
		return
	}
	var length time.Duration
	if len(args) != 0 {
		minutes, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid duration %q", args[0])
		}
		length = time.Duration(minutes) * time.Minute
	}
	_, err = app.cli.FollowersOnly(ctx, channel, length)
	return
}

func commandDoEmoteOnly(ctx context.Context, app *app, channel string, args []string) (err error) {
	if isOff(args) {
		_, err = app.cli.EmoteOnlyOff(ctx, channel)
	} else {
		_, err = app.cli.EmoteOnly(ctx, channel)
	}
	return
}

func commandDoSubscribers(ctx context.Context, app *app, channel string, args []string) (err error) {
	if isOff(args) {
		_, err = app.cli.SubscribersOff(ctx, channel)
	} else {
		_, err = app.cli.Subscribers(ctx, channel)
	}
	return
}

func commandDoR9kBeta(ctx context.Context, app *app, channel string, args []string) (err error) {
	if isOff(args) {
		_, err = app.cli.R9kBetaOff(ctx, channel)
	} else {
		_, err = app.cli.R9kBeta(ctx, channel)
	}
	return
}

func commandDoColor(ctx context.Context, app *app, channel string, args []string) error {
	_, err := app.cli.Color(ctx, args[0])
	return err
}

func commandDoDelete(ctx context.Context, app *app, channel string, args []string) error {
	_, err := app.cli.DeleteMessage(ctx, channel, args[0])
	return err
}

func commandDoPing(ctx context.Context, app *app, channel string, args []string) error {
	latency, err := app.cli.Ping(ctx)
	if err != nil {
		return err
	}
	app.printf("-- Pong after %s", latency.Round(time.Millisecond))
	return nil
}

func commandDoQuote(ctx context.Context, app *app, channel string, args []string) error {
	_, err := app.cli.Raw(ctx, args[0])
	return err
}

func commandDoQuit(ctx context.Context, app *app, channel string, args []string) error {
	return errQuit
}

// implemented from https://golang.org/src/strings/strings.go?s=8055:8085#L310
func fieldsN(s string, n int) []string {
	s = strings.TrimSpace(s)
	if s == "" || n == 0 {
		return nil
	}
	if n == 1 {
		return []string{s}
	}
	n--
	var a []string
	na := 0
	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}
	fieldStart := i
	for i < len(s) {
		if s[i] != ' ' {
			i++
			continue
		}
		a = append(a, s[fieldStart:i])
		na++
		i++
		for i < len(s) && s[i] == ' ' {
			i++
		}
		fieldStart = i
		if n <= na {
			a = append(a, s[fieldStart:])
			return a
		}
	}
	if fieldStart < len(s) {
		a = append(a, s[fieldStart:])
	}
	return a
}

func parseCommand(s string) (command, args string, isCommand bool) {
	if s[0] != '/' {
		return "", s, false
	}
	if len(s) > 1 && s[1] == '/' {
		// Input starts with two slashes.
		return "", s[1:], false
	}

	i := strings.IndexByte(s, ' ')
	if i < 0 {
		i = len(s)
	}

	isCommand = true
	command = strings.ToUpper(s[1:i])
	args = strings.TrimLeft(s[i:], " ")
	return
}

// findCommand returns the command named name, or the only one whose name
// starts with it.
func findCommand(name string) (*command, error) {
	if cmd, ok := commands[name]; ok {
		return cmd, nil
	}
	var chosen string
	for key := range commands {
		if !strings.HasPrefix(key, name) {
			continue
		}
		if chosen != "" {
			return nil, fmt.Errorf("ambiguous command %q (could mean %v or %v)", name, chosen, key)
		}
		chosen = key
	}
	if chosen == "" {
		return nil, fmt.Errorf("command %q doesn't exist", name)
	}
	return commands[chosen], nil
}

func (app *app) handleInput(content string) error {
	if content == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	channel := app.currentChannel()
	cmdName, rawArgs, isCommand := parseCommand(content)
	if !isCommand {
		return noCommand(ctx, app, channel, rawArgs)
	}
	if cmdName == "" {
		return fmt.Errorf("lone slash at the begining")
	}

	cmd, err := findCommand(cmdName)
	if err != nil {
		return err
	}

	var args []string
	if rawArgs != "" && cmd.MaxArgs != 0 {
		args = fieldsN(rawArgs, cmd.MaxArgs)
	}

	if len(args) < cmd.MinArgs {
		return fmt.Errorf("usage: %s %s", cmdName, cmd.Usage)
	}
	if channel == "" && !cmd.AllowHome {
		return fmt.Errorf("command %q needs a current channel", cmdName)
	}

	return cmd.Handle(ctx, app, channel, args)
}
