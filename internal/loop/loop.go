// Package loop drives the per-frame animation: orbital motion, self
// rotation, camera easing and the render call. The loop goroutine is the
// sole writer of per-frame transform state and the only place scene
// mutations execute; everything else posts closures onto it.
package loop

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/orrery/orrery/internal/event"
	"github.com/orrery/orrery/internal/render"
	"github.com/orrery/orrery/internal/scene"
)

// selfSpinRate converts the orbital-speed quotient into self-rotation
// radians, and spins non-orbiting bodies (the sun) at a slow fixed rate.
const selfSpinRate = 0.1

// Scheduler is the host's display-refresh primitive. A real surface
// delivers frames on vsync and stops delivering while the view is hidden;
// headless runs use a plain ticker.
type Scheduler interface {
	Frames() <-chan time.Time
	Stop()
}

// TickerScheduler schedules frames at a fixed rate.
type TickerScheduler struct {
	t *time.Ticker
}

func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	return &TickerScheduler{t: time.NewTicker(interval)}
}

func (s *TickerScheduler) Frames() <-chan time.Time { return s.t.C }

func (s *TickerScheduler) Stop() { s.t.Stop() }

// Loop owns the frame callback. Start launches the goroutine; Stop cancels
// it exactly once and is safe to call again.
type Loop struct {
	mgr   *scene.Manager
	dev   render.Device
	sched Scheduler
	bus   *event.Bus
	log   *zap.Logger

	ops      chan func()
	stopCh   chan struct{}
	stopped  chan struct{}
	onceStop sync.Once
	running  atomic.Bool

	elapsed float32
}

func New(mgr *scene.Manager, dev render.Device, sched Scheduler, bus *event.Bus, log *zap.Logger) *Loop {
	return &Loop{
		mgr:     mgr,
		dev:     dev,
		sched:   sched,
		bus:     bus,
		log:     log,
		ops:     make(chan func(), 64),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Post queues fn to run on the loop goroutine before the next frame. The
// sync client and UI handlers use this to touch the scene manager without
// racing the frame callback. Posts are dropped (with a log) if the queue
// is full or the loop has stopped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.stopCh:
		return
	default:
	}
	select {
	case l.ops <- fn:
	default:
		l.log.Warn("loop op queue full, dropping op")
	}
}

// Start launches the loop goroutine. Starting twice is a no-op.
func (l *Loop) Start() {
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	go l.run()
}

// Stop cancels scheduling and waits for the goroutine to exit. Re-entrant
// disposal calls Stop again harmlessly: the cancel happens once and the
// handle is never touched after that.
func (l *Loop) Stop() {
	l.onceStop.Do(func() {
		close(l.stopCh)
		l.sched.Stop()
	})
	if l.running.Load() {
		<-l.stopped
	}
}

func (l *Loop) run() {
	defer close(l.stopped)
	last := time.Now()
	for {
		select {
		case <-l.stopCh:
			return
		case now := <-l.sched.Frames():
			dt := float32(now.Sub(last).Seconds())
			last = now
			for {
				select {
				case fn := <-l.ops:
					l.safely("op", fn)
					continue
				default:
				}
				break
			}
			l.safely("frame", func() { l.Step(dt) })
		}
	}
}

// Step advances the scene by dt seconds and presents one frame. Exposed so
// tests can drive frames without real time.
func (l *Loop) Step(dt float32) {
	l.elapsed += dt
	speed := l.mgr.RotationSpeed()
	if speed <= 0 {
		return // manager destroyed mid-teardown
	}

	l.mgr.EachHandle(func(h *scene.Handle) {
		if !h.Visible {
			return
		}
		e := h.Entry
		if e.Orbits() {
			angle := l.elapsed * speed / e.OrbitalPeriodUnits
			h.Position.X = e.OrbitalRadiusUnits * math32.Cos(angle)
			h.Position.Y = 0
			h.Position.Z = e.OrbitalRadiusUnits * math32.Sin(angle)
			h.Rotation += dt * speed / e.OrbitalPeriodUnits
		} else {
			h.Rotation += dt * speed * selfSpinRate
		}
	})

	l.mgr.Controls().Update(dt)

	if err := l.dev.Present(); err != nil {
		l.frameError(fmt.Errorf("present: %w", err))
	}
}

// Elapsed returns total animated seconds since the loop started.
func (l *Loop) Elapsed() float32 { return l.elapsed }

// safely runs fn, converting a panic into a logged FrameError. One bad
// frame must not kill the loop; the next scheduled tick proceeds.
func (l *Loop) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.frameError(fmt.Errorf("%s panic: %v", what, r))
		}
	}()
	fn()
}

func (l *Loop) frameError(err error) {
	l.log.Error("frame failed", zap.Error(err))
	if l.bus != nil {
		event.Emit(l.bus, event.FrameError{Err: err})
	}
}
