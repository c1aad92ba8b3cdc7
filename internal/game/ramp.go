package game

import "time"

// ramp tracks the shrinking challenge window of a run.
type ramp struct {
	cfg    Config
	window time.Duration
}

func newRamp(cfg Config) ramp {
	return ramp{cfg: cfg, window: cfg.InitialWindow}
}

func (r *ramp) reset() { r.window = r.cfg.InitialWindow }

// advance shrinks the window when score lands on a positive multiple of
// the speedup interval, never below MinWindow.
func (r *ramp) advance(score int) {
	if score <= 0 || score%r.cfg.SpeedupEvery != 0 {
		return
	}
	next := r.window - r.cfg.SpeedupStep
	if next < r.cfg.MinWindow {
		next = r.cfg.MinWindow
	}
	r.window = next
}

// duration is how long ch stays active. DontTap carries its own drawn
// duration and ignores the ramp.
func (r *ramp) duration(ch Challenge) time.Duration {
	if ch.Kind == KindDontTap {
		return ch.Duration
	}
	return r.window
}
