// Package scan separates barcode-scanner bursts from human typing.
//
// Characters are buffered and a single timer is restarted on every
// character. When the timer fires after a quiet interval, a buffer of at
// least MinLength characters is treated as a scanned code.
package scan

import (
	"strings"
	"sync"
	"time"
)

const (
	DefaultQuietInterval = 100 * time.Millisecond
	DefaultMinLength     = 3
)

// KeyEvent is a single keystroke. InTextInput is set when focus is inside a
// text-entry control; such events never reach the buffer.
type KeyEvent struct {
	Char        rune `json:"char"`
	InTextInput bool `json:"in_text_input"`
}

// Options configures a Disambiguator. Zero values take the defaults.
type Options struct {
	QuietInterval time.Duration
	MinLength     int
	// Dispatch receives each completed code on a single worker goroutine,
	// one code at a time and in completion order.
	Dispatch func(code string)
}

// dispatchBacklog bounds the codes waiting for a slow Dispatch.
const dispatchBacklog = 16

type Disambiguator struct {
	quiet    time.Duration
	minLen   int
	dispatch func(code string)

	codes chan string
	done  chan struct{}

	mu      sync.Mutex
	buf     []rune
	timer   *time.Timer
	gen     uint64
	stopped bool
}

func New(opts Options) *Disambiguator {
	if opts.QuietInterval <= 0 {
		opts.QuietInterval = DefaultQuietInterval
	}
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	d := &Disambiguator{
		quiet:    opts.QuietInterval,
		minLen:   opts.MinLength,
		dispatch: opts.Dispatch,
		codes:    make(chan string, dispatchBacklog),
		done:     make(chan struct{}),
	}
	if d.dispatch != nil {
		go d.run()
	}
	return d
}

// run hands codes to Dispatch serially until Stop.
func (d *Disambiguator) run() {
	for {
		select {
		case code := <-d.codes:
			d.dispatch(code)
		case <-d.done:
			return
		}
	}
}

// Feed records one keystroke and restarts the quiet timer.
func (d *Disambiguator) Feed(ev KeyEvent) {
	if ev.InTextInput {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.buf = append(d.buf, ev.Char)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.quiet, func() { d.fire(gen) })
}

// fire runs on the timer goroutine. A stale generation means another
// character arrived after this timer was armed.
func (d *Disambiguator) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.stopped {
		d.mu.Unlock()
		return
	}
	raw := string(d.buf)
	n := len(d.buf)
	d.buf = d.buf[:0]
	d.timer = nil
	d.mu.Unlock()

	if n < d.minLen {
		return
	}
	code := strings.TrimSpace(raw)
	if code == "" || d.dispatch == nil {
		return
	}
	select {
	case d.codes <- code:
	case <-d.done:
	}
}

// Pending reports the number of buffered characters.
func (d *Disambiguator) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buf)
}

// Stop cancels any pending timer and drops further input.
func (d *Disambiguator) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	close(d.done)
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.buf = nil
}
