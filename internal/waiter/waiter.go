// Package waiter polls an agent until it reaches a target state.
//
// A wait ends in exactly one of: the target observed, the deadline passed,
// a terminal state observed, too many consecutive transient failures, a
// non-transient describe failure, or cancellation. Transient failures are
// retried with exponential backoff; every other failure is returned as-is
// inside a *WaitError.
package waiter

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/valory-xyz/propel-client-go/internal/client"
	"github.com/valory-xyz/propel-client-go/internal/models"
)

const (
	DefaultPeriod               = 3 * time.Second
	MinPeriod                   = 100 * time.Millisecond
	DefaultTimeout              = 120 * time.Second
	DefaultMaxTransientFailures = 5

	DefaultBackoffInitial    = 1 * time.Second
	DefaultBackoffMax        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// AnyTarget keys the terminal states used for targets without their own entry.
const AnyTarget models.AgentState = "*"

// DefaultTerminalStates returns the terminal table used when none is
// configured. Nothing is terminal when waiting for deletion.
func DefaultTerminalStates() map[models.AgentState][]models.AgentState {
	return map[models.AgentState][]models.AgentState{
		AnyTarget: {
			models.AgentStateError,
			models.AgentStateDeleting,
			models.AgentStateDeleted,
		},
		models.AgentStateDeleted: {},
	}
}

// Describer returns the current record of an agent.
type Describer interface {
	Describe(ctx context.Context, name string) (*models.Agent, error)
}

// Observation is reported after every poll.
type Observation struct {
	Agent   string
	Target  models.AgentState
	Poll    int
	Elapsed time.Duration
	State   models.AgentState // empty when the poll failed
	Err     error
	Next    time.Duration // delay before the next poll, zero if none follows
}

type BackoffOptions struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

type Options struct {
	Period               time.Duration
	MaxTransientFailures int
	Backoff              BackoffOptions
	TerminalStates       map[models.AgentState][]models.AgentState
	Clock                Clock
	OnPoll               func(Observation)
}

// Result describes a successful wait.
type Result struct {
	Agent   *models.Agent
	Polls   int
	Elapsed time.Duration
}

type Waiter struct {
	describer Describer
	opts      Options
}

func New(describer Describer, opts Options) *Waiter {
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.Period < MinPeriod {
		opts.Period = MinPeriod
	}
	if opts.MaxTransientFailures <= 0 {
		opts.MaxTransientFailures = DefaultMaxTransientFailures
	}
	if opts.Backoff.Initial <= 0 {
		opts.Backoff.Initial = DefaultBackoffInitial
	}
	if opts.Backoff.Max <= 0 {
		opts.Backoff.Max = DefaultBackoffMax
	}
	if opts.Backoff.Max < opts.Backoff.Initial {
		opts.Backoff.Max = opts.Backoff.Initial
	}
	if opts.Backoff.Multiplier < 1 {
		opts.Backoff.Multiplier = DefaultBackoffMultiplier
	}
	if opts.TerminalStates == nil {
		opts.TerminalStates = DefaultTerminalStates()
	}
	if opts.Clock == nil {
		opts.Clock = defaultClock()
	}

	return &Waiter{
		describer: describer,
		opts:      opts,
	}
}

func (w *Waiter) Period() time.Duration {
	return w.opts.Period
}

// IsTerminal reports whether observing state ends a wait for target.
func (w *Waiter) IsTerminal(target models.AgentState, state models.AgentState) bool {
	if state == target {
		return false
	}

	terminal, ok := w.opts.TerminalStates[target]
	if !ok {
		terminal = w.opts.TerminalStates[AnyTarget]
	}

	for _, s := range terminal {
		if s == state {
			return true
		}
	}
	return false
}

func (w *Waiter) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.opts.Backoff.Initial
	b.MaxInterval = w.opts.Backoff.Max
	b.Multiplier = w.opts.Backoff.Multiplier
	b.MaxElapsedTime = 0
	b.Clock = w.opts.Clock
	b.Reset()
	return b
}

// Wait polls the agent until it reports target or timeout elapses.
func (w *Waiter) Wait(ctx context.Context, name string, target models.AgentState, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", timeout)
	}

	if len(target) == 0 {
		return nil, fmt.Errorf("target state is required")
	}

	if !target.IsKnown() {
		logrus.WithField("target", target).Warnln("Waiting for a state the client does not know about")
	}

	clk := w.opts.Clock
	start := clk.Now()
	deadline := start.Add(timeout)
	transient := w.newBackoff()

	var (
		polls     int
		strikes   int
		lastState models.AgentState
		lastErr   error
	)

	fail := func(reason Reason, err error) (*Result, error) {
		return nil, &WaitError{
			Reason:    reason,
			Agent:     name,
			Target:    target,
			LastState: lastState,
			Elapsed:   clk.Now().Sub(start),
			Polls:     polls,
			Err:       err,
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(ReasonCancelled, err)
		}

		remaining := deadline.Sub(clk.Now())
		if remaining <= 0 {
			return fail(ReasonTimeout, lastErr)
		}

		polls++

		describeCtx, cancel := context.WithTimeout(ctx, remaining)
		agent, err := w.describer.Describe(describeCtx, name)
		cancel()

		var next time.Duration

		switch {
		case err == nil:
			strikes = 0
			lastErr = nil
			lastState = agent.State
			transient.Reset()

			if agent.State == target {
				w.observe(name, target, polls, clk.Now().Sub(start), agent.State, nil, 0)
				return &Result{
					Agent:   agent,
					Polls:   polls,
					Elapsed: clk.Now().Sub(start),
				}, nil
			}

			if w.IsTerminal(target, agent.State) {
				w.observe(name, target, polls, clk.Now().Sub(start), agent.State, nil, 0)
				return fail(ReasonTerminal, nil)
			}

			next = w.opts.Period

		case target == models.AgentStateDeleted && client.IsNotFound(err):
			// The record is gone, which is what waiting for DELETED is after
			lastState = models.AgentStateDeleted
			w.observe(name, target, polls, clk.Now().Sub(start), lastState, nil, 0)
			return &Result{
				Agent:   &models.Agent{Name: name, State: models.AgentStateDeleted},
				Polls:   polls,
				Elapsed: clk.Now().Sub(start),
			}, nil

		case client.IsTransient(err):
			if ctx.Err() != nil {
				return fail(ReasonCancelled, ctx.Err())
			}

			strikes++
			lastErr = err

			if strikes >= w.opts.MaxTransientFailures {
				w.observe(name, target, polls, clk.Now().Sub(start), "", err, 0)
				return fail(ReasonUnreachable, err)
			}

			// never faster than the healthy cadence
			next = max(transient.NextBackOff(), w.opts.Period)

			logrus.WithFields(logrus.Fields{
				"agent":   name,
				"strikes": strikes,
				"retryIn": next,
			}).WithError(err).Debugln("Transient failure while polling agent")

		default:
			w.observe(name, target, polls, clk.Now().Sub(start), "", err, 0)
			return fail(ReasonPermanent, err)
		}

		remaining = deadline.Sub(clk.Now())
		if next > remaining {
			next = remaining
		}

		w.observe(name, target, polls, clk.Now().Sub(start), lastStateOf(agent), err, next)

		if next <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return fail(ReasonCancelled, ctx.Err())
		case <-clk.After(next):
		}
	}
}

func (w *Waiter) observe(
	name string,
	target models.AgentState,
	poll int,
	elapsed time.Duration,
	state models.AgentState,
	err error,
	next time.Duration,
) {
	logrus.WithFields(logrus.Fields{
		"agent":   name,
		"target":  target,
		"poll":    poll,
		"state":   state,
		"elapsed": elapsed,
	}).Debugln("Polled agent")

	if w.opts.OnPoll == nil {
		return
	}

	w.opts.OnPoll(Observation{
		Agent:   name,
		Target:  target,
		Poll:    poll,
		Elapsed: elapsed,
		State:   state,
		Err:     err,
		Next:    next,
	})
}

func lastStateOf(agent *models.Agent) models.AgentState {
	if agent == nil {
		return ""
	}
	return agent.State
}
