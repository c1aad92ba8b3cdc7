// Package scripting runs player bots written in JavaScript against the game
// engine. A bot script defines respond(challenge) and returns the move to
// make; Simulate plays a whole run with it on a simulated clock.
package scripting

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/jfapp/reactix/internal/game"
)

// LogEntry represents a single log message from the script.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Move actions a bot may return.
const (
	ActionTap   = "tap"
	ActionSwipe = "swipe"
	ActionTaps  = "taps"
	ActionWait  = "wait"
)

// Move is a bot's answer to one challenge.
type Move struct {
	Action    string         `json:"action"`
	Color     game.Color     `json:"color,omitempty"`
	Direction game.Direction `json:"direction,omitempty"`
	Count     int            `json:"count,omitempty"`
}

// View is what a bot sees when asked for a move.
type View struct {
	Challenge   game.Challenge
	Score       int
	Combo       int
	RemainingMS int64
	Progress    int
}

// Responder picks a move for a challenge.
type Responder interface {
	Respond(v View) (Move, error)
}

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
	maxLogs           = 500
)

// Bot wraps a sandboxed goja runtime holding a bot script.
type Bot struct {
	runtime *goja.Runtime
	respond goja.Callable
	mu      sync.Mutex

	logs   []LogEntry
	logsMu sync.Mutex

	callTimeout time.Duration
}

// NewBot compiles source and checks that it defines respond().
func NewBot(source string) (*Bot, error) {
	b := &Bot{
		runtime:     goja.New(),
		callTimeout: scriptCallTimeout,
	}
	b.injectGlobals()

	err := b.runWithTimeout(scriptInitTimeout, func() error {
		if _, err := b.runtime.RunString(source); err != nil {
			return fmt.Errorf("script execution error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fn := b.runtime.Get("respond")
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return nil, fmt.Errorf("respond() function is not defined")
	}
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("respond is not a function")
	}
	b.respond = callable
	return b, nil
}

// injectGlobals registers log and console.log, and removes globals a bot
// has no business touching.
func (b *Bot) injectGlobals() {
	b.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		b.appendLog(strings.Join(parts, " "))
		return goja.Undefined()
	})

	console := b.runtime.NewObject()
	console.Set("log", b.runtime.Get("log"))
	b.runtime.Set("console", console)

	colors := make([]string, len(game.Colors))
	for i, c := range game.Colors {
		colors[i] = string(c)
	}
	directions := make([]string, len(game.Directions))
	for i, d := range game.Directions {
		directions[i] = string(d)
	}
	b.runtime.Set("COLORS", colors)
	b.runtime.Set("DIRECTIONS", directions)

	b.runtime.Set("require", goja.Undefined())
	b.runtime.Set("fetch", goja.Undefined())
	b.runtime.Set("XMLHttpRequest", goja.Undefined())
	b.runtime.Set("eval", goja.Undefined())
	b.runtime.Set("Function", goja.Undefined())
}

// Respond calls the script's respond(challenge) and decodes the move.
func (b *Bot) Respond(v View) (Move, error) {
	var move Move
	err := b.runWithTimeout(b.callTimeout, func() error {
		b.mu.Lock()
		defer b.mu.Unlock()

		arg := b.runtime.NewObject()
		arg.Set("kind", string(v.Challenge.Kind))
		arg.Set("color", string(v.Challenge.Color))
		arg.Set("direction", string(v.Challenge.Direction))
		arg.Set("count", v.Challenge.Count)
		arg.Set("duration_ms", v.Challenge.Duration.Milliseconds())
		arg.Set("score", v.Score)
		arg.Set("combo", v.Combo)
		arg.Set("remaining_ms", v.RemainingMS)
		arg.Set("progress", v.Progress)

		result, err := b.respond(goja.Undefined(), arg)
		if err != nil {
			return fmt.Errorf("respond() error: %w", err)
		}
		move, err = decodeMove(b.runtime, result)
		return err
	})
	return move, err
}

func decodeMove(rt *goja.Runtime, v goja.Value) (Move, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return Move{Action: ActionWait}, nil
	}
	obj := v.ToObject(rt)

	str := func(key string) string {
		val := obj.Get(key)
		if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
			return ""
		}
		return val.String()
	}

	m := Move{Action: str("action")}
	switch m.Action {
	case ActionTap:
		if c := str("color"); c != "" {
			m.Color = game.ParseColor(c)
			if m.Color == game.ColorNone {
				return Move{}, fmt.Errorf("respond() returned unknown color %q", c)
			}
		}
	case ActionSwipe:
		dir, err := game.ParseDirection(str("direction"))
		if err != nil {
			return Move{}, fmt.Errorf("respond() returned %w", err)
		}
		m.Direction = dir
	case ActionTaps:
		count := obj.Get("count")
		if count == nil || goja.IsUndefined(count) {
			return Move{}, fmt.Errorf("respond() returned taps without count")
		}
		m.Count = int(count.ToInteger())
		if m.Count <= 0 {
			return Move{}, fmt.Errorf("respond() returned non-positive tap count %d", m.Count)
		}
	case ActionWait:
	default:
		return Move{}, fmt.Errorf("respond() returned unknown action %q", m.Action)
	}
	return m, nil
}

func (b *Bot) appendLog(msg string) {
	b.logsMu.Lock()
	defer b.logsMu.Unlock()
	if len(b.logs) >= maxLogs {
		b.logs = b.logs[1:]
	}
	b.logs = append(b.logs, LogEntry{Time: time.Now(), Message: msg})
}

// Logs returns a copy of the script's log buffer.
func (b *Bot) Logs() []LogEntry {
	b.logsMu.Lock()
	defer b.logsMu.Unlock()
	out := make([]LogEntry, len(b.logs))
	copy(out, b.logs)
	return out
}

func (b *Bot) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		b.runtime.Interrupt("script execution timeout")
		select {
		case err := <-done:
			b.runtime.ClearInterrupt()
			if err != nil {
				return fmt.Errorf("script timed out: %w", err)
			}
			return fmt.Errorf("script timed out")
		case <-time.After(200 * time.Millisecond):
			return fmt.Errorf("script timed out")
		}
	}
}
