package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fluxvoice/capture"
	"fluxvoice/history"
	"fluxvoice/log"
	"fluxvoice/transcriber"
)

const (
	defaultLevelPollInterval = 50 * time.Millisecond
	defaultDurationInterval  = 100 * time.Millisecond
	defaultErrorClearDelay   = 3 * time.Second
)

// Historian persists finished transcriptions.
type Historian interface {
	Add(ctx context.Context, original string, polished *string, finalText string, audio []byte, timestamp int64) history.Item
}

// UsageReporter accounts transcribed characters and recorded seconds.
// Implementations are fire-and-forget; failures stay internal.
type UsageReporter interface {
	ReportUsage(chars, durationSeconds int)
}

// Options tune controller timing. Zero values pick the defaults; tests
// shrink them.
type Options struct {
	LevelPollInterval time.Duration
	DurationInterval  time.Duration
	ErrorClearDelay   time.Duration

	// StartTone plays the recording notification sound. Nil disables it.
	StartTone func()
}

func (o Options) withDefaults() Options {
	if o.LevelPollInterval <= 0 {
		o.LevelPollInterval = defaultLevelPollInterval
	}
	if o.DurationInterval <= 0 {
		o.DurationInterval = defaultDurationInterval
	}
	if o.ErrorClearDelay <= 0 {
		o.ErrorClearDelay = defaultErrorClearDelay
	}
	return o
}

// Controller owns the recording state machine: it is the only writer of
// State and Session, runs the capture-and-transcribe protocol, and feeds
// successful results into the history store.
type Controller struct {
	recorder capture.Recorder
	scriber  transcriber.Transcriber
	hist     Historian
	usage    UsageReporter
	sink     EventSink
	opts     Options

	// op excludes concurrent start/stop. A second call while one is in
	// flight is a silent no-op, never queued.
	op atomic.Bool

	mu      sync.Mutex
	state   State
	sess    *activeSession
	level   float64
	seconds int
	upload  int
	errMsg  string
}

func NewController(recorder capture.Recorder, scriber transcriber.Transcriber, hist Historian, usage UsageReporter, sink EventSink, opts Options) *Controller {
	if sink == nil {
		sink = NopSink{}
	}
	return &Controller{
		recorder: recorder,
		scriber:  scriber,
		hist:     hist,
		usage:    usage,
		sink:     sink,
		opts:     opts.withDefaults(),
		state:    StateIdle,
	}
}

// State returns the current recording state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ErrorMessage returns the current transient error message, if any.
func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Session returns a snapshot of the live session fields.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Session{
		DurationSeconds: c.seconds,
		AudioLevel:      c.level,
		UploadByteSize:  c.upload,
	}
	if c.sess != nil {
		snap.StartedAt = c.sess.startedAt
	}
	return snap
}

// StartRecording begins a capture session. It is a silent no-op when a
// start or stop is already in flight or when the state is not Idle. On
// begin-capture failure the controller returns straight to Idle so the
// hotkey stays armed, and surfaces a transient error message.
func (c *Controller) StartRecording(ctx context.Context) {
	if !c.op.CompareAndSwap(false, true) {
		return
	}
	defer c.op.Store(false)

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	sess := newActiveSession(time.Now())
	c.sess = sess
	c.state = StateRecording
	c.level = 0
	c.seconds = 0
	c.upload = 0
	c.mu.Unlock()

	if c.opts.StartTone != nil {
		c.opts.StartTone()
	}
	c.sink.StateChanged(StateRecording)

	if err := c.recorder.Begin(ctx); err != nil {
		log.Warnf("begin capture: %v", err)
		c.mu.Lock()
		c.sess = nil
		c.state = StateIdle
		c.mu.Unlock()
		c.sink.StateChanged(StateIdle)
		c.surfaceError("could not start recording: " + err.Error())
		return
	}

	sess.tick(c.opts.LevelPollInterval, func() {
		level := c.recorder.Level()
		c.mu.Lock()
		c.level = level
		c.mu.Unlock()
		c.sink.AudioLevel(level)
	})
	sess.tick(c.opts.DurationInterval, func() {
		seconds := int(time.Since(sess.startedAt).Seconds())
		c.mu.Lock()
		c.seconds = seconds
		c.mu.Unlock()
		c.sink.DurationTick(seconds)
	})
}

// StopRecording finalizes the capture and transcribes it. It is a silent
// no-op when a start or stop is already in flight. Finalize is always
// attempted first so the recorder resets even when transcription is
// never reached.
func (c *Controller) StopRecording(ctx context.Context) {
	if !c.op.CompareAndSwap(false, true) {
		return
	}
	defer c.op.Store(false)

	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.state = StateProcessing
	var duration time.Duration
	if sess != nil {
		duration = time.Since(sess.startedAt)
	}
	c.mu.Unlock()
	if sess != nil {
		sess.cancelTicks()
	}
	c.sink.StateChanged(StateProcessing)

	audio, err := c.recorder.End(ctx)
	if err != nil {
		log.Warnf("finalize capture: %v", err)
		c.toIdle()
		c.surfaceError("could not finish recording: " + err.Error())
		return
	}
	c.mu.Lock()
	c.upload = len(audio)
	c.mu.Unlock()

	started := time.Now()
	result, err := c.scriber.Transcribe(ctx, audio)
	if err != nil {
		log.Warnf("transcribe: %v", err)
		c.toIdle()
		c.surfaceError("transcription failed: " + err.Error())
		return
	}

	if strings.TrimSpace(result.FinalText) != "" {
		chars := len([]rune(result.FinalText))
		log.Transcription(chars, int(duration.Seconds()), result.Polished != nil,
			float64(time.Since(started).Milliseconds()))
		item := c.hist.Add(ctx, result.Original, result.Polished, result.FinalText, audio, 0)
		if c.usage != nil {
			c.usage.ReportUsage(chars, int(duration.Seconds()))
		}
		c.sink.Transcription(item)
	}
	c.toIdle()
}

// ResetState is the emergency escape hatch: it cancels any live ticks,
// drops the session, forces Idle, and clears the error message. It does
// not wait for an in-flight start or stop.
func (c *Controller) ResetState() {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.state = StateIdle
	c.level = 0
	c.seconds = 0
	c.upload = 0
	cleared := c.errMsg != ""
	c.errMsg = ""
	c.mu.Unlock()
	if sess != nil {
		sess.cancelTicks()
	}
	c.sink.StateChanged(StateIdle)
	if cleared {
		c.sink.ErrorCleared()
	}
}

func (c *Controller) toIdle() {
	c.mu.Lock()
	c.state = StateIdle
	c.level = 0
	c.seconds = 0
	c.mu.Unlock()
	c.sink.StateChanged(StateIdle)
}

// surfaceError publishes a transient error message and schedules its
// expiry. The timer is never cancelled; a stale firing only clears the
// message field, which is idempotent.
func (c *Controller) surfaceError(msg string) {
	c.mu.Lock()
	c.errMsg = msg
	c.mu.Unlock()
	c.sink.TransientError(msg)
	time.AfterFunc(c.opts.ErrorClearDelay, c.clearError)
}

func (c *Controller) clearError() {
	c.mu.Lock()
	cleared := c.errMsg != ""
	c.errMsg = ""
	c.mu.Unlock()
	if cleared {
		c.sink.ErrorCleared()
	}
}
