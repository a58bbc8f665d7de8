package irc

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCommandTimeout = errors.New("command timed out")
	ErrConnectionLost = errors.New("connection lost")
)

// CommandRejectedError is returned when the server answers a command with a
// failure notice.
type CommandRejectedError struct {
	Command string
	MsgID   string
	Message string
}

func (err *CommandRejectedError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("%s rejected: %s", err.Command, err.MsgID)
	}
	return fmt.Sprintf("%s rejected: %s (%s)", err.Command, err.MsgID, err.Message)
}

// Matcher inspects an incoming message on behalf of a pending command.  It
// returns false to leave the message to other commands.  A non-nil error
// means the command failed.
type Matcher func(msg *Message) (matched bool, err error)

// Outcome is how a pending command ended.
type Outcome struct {
	Args    []string
	Message *Message // the line that settled the command, if any.
	Latency time.Duration
	Err     error
}

// PendingCommand is a command waiting for the server to acknowledge it.
type PendingCommand struct {
	ID       uint64
	Name     string
	Args     []string
	IssuedAt time.Time
	Match    Matcher
	QuietOK  bool // whether a timeout means success.
	Done     func(Outcome)

	// Echo builds the events reported when the command succeeds.  msg is nil
	// when the command succeeded through its quiet window.
	Echo func(msg *Message) []Event

	timer *time.Timer
}

// Correlator matches incoming messages against pending commands.  It is not
// safe for concurrent use: timers only report expirations through the
// callback given to NewCorrelator, which must hand the id back to the owner
// of the Correlator.
type Correlator struct {
	pending []*PendingCommand
	nextID  uint64
	expire  func(id uint64)
}

func NewCorrelator(expire func(id uint64)) *Correlator {
	return &Correlator{expire: expire}
}

// Register adds p at the end of the pending list and arms its timeout.
func (c *Correlator) Register(p *PendingCommand, timeout time.Duration) uint64 {
	c.nextID++
	p.ID = c.nextID
	if p.IssuedAt.IsZero() {
		p.IssuedAt = time.Now()
	}
	c.pending = append(c.pending, p)
	if timeout > 0 && c.expire != nil {
		id := p.ID
		p.timer = time.AfterFunc(timeout, func() {
			c.expire(id)
		})
	}
	return p.ID
}

// Offer hands msg to the pending commands in registration order.  The first
// one that matches is settled and returned along with its error, if any.
func (c *Correlator) Offer(msg *Message) (p *PendingCommand, err error) {
	for i, q := range c.pending {
		matched, err := q.Match(msg)
		if !matched {
			continue
		}
		c.remove(i)
		c.finish(q, Outcome{Message: msg, Err: err})
		return q, err
	}
	return nil, nil
}

// Expire settles the command after its timeout.  Commands with QuietOK are
// resolved, the others fail with ErrCommandTimeout.
func (c *Correlator) Expire(id uint64) (p *PendingCommand, err error) {
	i := c.index(id)
	if i < 0 {
		return nil, nil
	}
	p = c.pending[i]
	c.remove(i)
	if !p.QuietOK {
		err = fmt.Errorf("%s: %w", p.Name, ErrCommandTimeout)
	}
	c.finish(p, Outcome{Err: err})
	return p, err
}

// Cancel fails the command with err.  It reports whether the command was
// still pending.
func (c *Correlator) Cancel(id uint64, err error) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	p := c.pending[i]
	c.remove(i)
	c.finish(p, Outcome{Err: err})
	return true
}

// RejectAll fails every pending command with err, in registration order.
func (c *Correlator) RejectAll(err error) (rejected []*PendingCommand) {
	rejected = c.pending
	c.pending = nil
	for _, p := range rejected {
		c.finish(p, Outcome{Err: err})
	}
	return
}

func (c *Correlator) Len() int {
	return len(c.pending)
}

func (c *Correlator) index(id uint64) int {
	for i, p := range c.pending {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (c *Correlator) remove(i int) {
	c.pending = append(c.pending[:i], c.pending[i+1:]...)
}

func (c *Correlator) finish(p *PendingCommand, o Outcome) {
	if p.timer != nil {
		p.timer.Stop()
	}
	o.Args = p.Args
	o.Latency = time.Since(p.IssuedAt)
	if p.Done != nil {
		p.Done(o)
	}
}
