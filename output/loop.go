package output

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultRate = 100

// Looper renders on a ticker. A Looper runs once: after Start has returned
// or Stop has been called, Start only sends the shutdown frame. Make a new
// Looper to run again.
type Looper struct {
	quit     chan bool
	stop     sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	c        chan os.Signal
	start    time.Time
	interval time.Duration
	renderer *Renderer
	frames   int
	err      error
}

// NewLooper renders r every interval. A non-positive interval uses
// DefaultRate updates per second.
func NewLooper(r *Renderer, interval time.Duration) *Looper {
	if interval <= 0 {
		interval = time.Second / DefaultRate
	}
	return &Looper{
		quit:     make(chan bool),
		interval: interval,
		renderer: r,
	}
}

func (l *Looper) refresh() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := l.renderer.Render(time.Since(l.start)); err != nil {
				log.Error().Err(err).Int("frames", l.frames).Msg("render failed")
				l.err = err
				return
			}
			l.frames++

		case <-l.quit:
			return

		case sig := <-l.c:
			log.Info().Str("signal", sig.String()).Msg("aborting")
			return

		case <-l.ctx.Done():
			return
		}
	}
}

// Start renders until ctx is done, Stop is called, SIGINT arrives or a
// render fails. The DAC is shut down before Start returns.
func (l *Looper) Start(ctx context.Context) error {
	l.ctx, l.cancel = context.WithCancel(ctx)

	l.c = make(chan os.Signal, 1)
	signal.Notify(l.c, os.Interrupt)
	defer func() {
		signal.Stop(l.c)
		l.cancel()
		l.Stop()
	}()

	l.start = time.Now()
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.refresh()
	}()
	wg.Wait()

	log.Debug().Int("frames", l.frames).Dur("elapsed", time.Since(l.start)).Msg("output stopped")
	return errors.Join(l.err, l.renderer.Clear())
}

// Stop ends a running Start. It is safe to call more than once.
func (l *Looper) Stop() {
	l.stop.Do(func() { close(l.quit) })
}

// Frames is the number of frames rendered by the last Start.
func (l *Looper) Frames() int {
	return l.frames
}
