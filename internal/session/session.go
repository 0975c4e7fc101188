// Package session wires the transcript gate, speaker attribution, conversation log
// and analysis scheduler into one explicit per-conversation state object.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tone-coach-service/internal/analysis"
	"tone-coach-service/internal/coaching"
	"tone-coach-service/internal/conversation"
	"tone-coach-service/internal/events"
	"tone-coach-service/internal/models"
	"tone-coach-service/internal/observability/logging"
	"tone-coach-service/internal/observability/metrics"
	"tone-coach-service/internal/transcript"
)

// endStatuses are transport statuses that end a live session.
var endStatuses = map[string]bool{
	"ended":        true,
	"completed":    true,
	"disconnected": true,
	"failed":       true,
	"idle":         true,
}

// IsEndStatus reports whether a transport status ends the session.
func IsEndStatus(status string) bool {
	return endStatuses[status]
}

// Options configures a session.
type Options struct {
	Coaching      coaching.Config
	AssistantRole string
	Context       string
	// DropStaleResults rejects an analysis result that settles after a newer one.
	DropStaleResults bool
	Clock            coaching.Clock
	// Retention is how long a Manager keeps an ended session registered.
	Retention time.Duration
}

// DefaultOptions returns the recommended session options.
func DefaultOptions() Options {
	return Options{
		Coaching:      coaching.DefaultConfig(),
		AssistantRole: transcript.DefaultAssistantRole,
		Context:       "agentic-ai",
		Retention:     5 * time.Minute,
	}
}

// Sink receives everything a session produces. Implementations must not block.
type Sink interface {
	OnUtterance(u models.Utterance)
	OnAnalysis(ev models.AnalysisEvent)
	OnAnalysisError(requestId string, err error)
	OnRecap(ev models.RecapEvent)
	OnRecapError(err error)
	OnStatus(status string)
}

// Session is the full pipeline state for one conversation.
type Session struct {
	id         string
	analyzer   analysis.Analyzer
	publisher  *events.Publisher
	attributor *transcript.Attributor
	log        *conversation.Log
	scheduler  *coaching.Scheduler
	lifecycle  *Lifecycle
	requests   *RequestIDs
	opts       Options
	clock      coaching.Clock
	logger     zerolog.Logger
	metrics    *metrics.Metrics

	mu          sync.RWMutex
	sinks       map[int]Sink
	nextSink    int
	lastApplied uint64
	latest      *models.AnalysisResult
	recap       string
	endedAt     time.Time
}

// New creates an idle session. Call Begin before feeding events.
func New(id string, analyzer analysis.Analyzer, publisher *events.Publisher, opts Options) *Session {
	s := &Session{
		id:         id,
		analyzer:   analyzer,
		publisher:  publisher,
		attributor: transcript.NewAttributor(opts.AssistantRole),
		log:        conversation.New(),
		lifecycle:  NewLifecycle(),
		requests:   NewRequestIDs(),
		opts:       opts,
		clock:      opts.Clock,
		logger:     logging.WithSession(id),
		metrics:    metrics.DefaultMetrics,
		sinks:      make(map[int]Sink),
	}
	if s.clock == nil {
		s.clock = coaching.SystemClock{}
	}
	s.scheduler = coaching.NewScheduler(opts.Coaching, s.clock, s.dispatch).WithLogger(s.logger)
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.lifecycle.State()
}

// Begin starts (or restarts) the session: the conversation log is emptied and the
// summarized flag is cleared.
func (s *Session) Begin() error {
	if err := s.lifecycle.Start(); err != nil {
		return err
	}
	s.log.Reset()
	s.scheduler.Restart()

	s.mu.Lock()
	s.latest = nil
	s.recap = ""
	s.endedAt = time.Time{}
	s.mu.Unlock()

	s.metrics.RecordSessionStart()
	s.logger.Info().Msg("Session started")
	return nil
}

// Subscribe registers a sink and returns a function that removes it.
func (s *Session) Subscribe(sink Sink) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSink
	s.nextSink++
	s.sinks[id] = sink
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.sinks, id)
	}
}

func (s *Session) each(fn func(Sink)) {
	s.mu.RLock()
	sinks := make([]Sink, 0, len(s.sinks))
	for _, sink := range s.sinks {
		sinks = append(sinks, sink)
	}
	s.mu.RUnlock()
	for _, sink := range sinks {
		fn(sink)
	}
}

// HandleMessage routes a raw payload from the voice transport. Payloads typed
// "status" drive the lifecycle; "transcript" or untyped payloads are transcription
// events; anything else is ignored.
func (s *Session) HandleMessage(ctx context.Context, raw []byte) {
	ev := transcript.NewEvent(raw)
	switch ev.Type() {
	case "status":
		s.HandleStatus(ctx, ev.Status())
	case "transcript", "":
		s.HandleEvent(ev)
	default:
		s.logger.Debug().Str("type", ev.Type()).Msg("Ignoring message")
	}
}

// HandleEvent runs one transcription event through the gate and attributor. Accepted
// events are logged for both sides; customer text is queued for analysis.
func (s *Session) HandleEvent(ev transcript.Event) (models.Utterance, bool) {
	if !s.lifecycle.IsLive() {
		s.logger.Debug().Str("state", s.lifecycle.State().String()).Msg("Event ignored, session not live")
		return models.Utterance{}, false
	}

	s.metrics.RecordEvent()
	if reason := transcript.Check(ev); reason != "" {
		s.metrics.RecordRejected(reason)
		return models.Utterance{}, false
	}

	u := models.Utterance{Side: s.attributor.Attribute(ev), Text: ev.Text()}
	s.log.Append(u)
	s.metrics.RecordUtterance(string(u.Side))
	s.each(func(sink Sink) { sink.OnUtterance(u) })

	if u.Side == models.SideCustomer {
		s.scheduler.Queue(u.Text)
	}
	return u, true
}

// HandleStatus forwards a transport status to sinks and ends the session on an end
// status.
func (s *Session) HandleStatus(ctx context.Context, status string) {
	s.each(func(sink Sink) { sink.OnStatus(status) })
	if !IsEndStatus(status) {
		return
	}
	if _, _, err := s.End(ctx); err != nil {
		s.logger.Error().Err(err).Str("status", status).Msg("Recap after end status failed")
	}
}

// dispatch is the scheduler's analysis call.
func (s *Session) dispatch(ctx context.Context, text string) error {
	seq, requestId := s.requests.Next(s.id)
	logger := logging.WithDispatch(s.id, requestId)

	res, err := s.analyzer.Analyze(ctx, analysis.Request{Text: text, Context: s.opts.Context})
	if err != nil {
		logger.Error().Err(err).Msg("Analysis failed")
		s.each(func(sink Sink) { sink.OnAnalysisError(requestId, err) })
		return err
	}
	s.apply(ctx, seq, requestId, text, res)
	return nil
}

// apply publishes a settled result. Results are last-write-wins unless
// DropStaleResults is set.
func (s *Session) apply(ctx context.Context, seq uint64, requestId, text string, res models.AnalysisResult) {
	s.mu.Lock()
	if s.opts.DropStaleResults && seq < s.lastApplied {
		latest := s.lastApplied
		s.mu.Unlock()
		s.metrics.RecordStale()
		logger := logging.WithDispatch(s.id, requestId)
		logger.Info().Uint64("latest", latest).Msg("Dropping stale analysis result")
		return
	}
	if seq > s.lastApplied {
		s.lastApplied = seq
	}
	s.latest = &res
	s.mu.Unlock()

	ev := models.AnalysisEvent{
		EventType: events.EventTypeAnalysis,
		SessionID: s.id,
		RequestID: requestId,
		Timestamp: time.Now().UnixMilli(),
		Text:      text,
		Result:    res,
	}
	s.each(func(sink Sink) { sink.OnAnalysis(ev) })
	if err := s.publisher.PublishAnalysis(ctx, s.id, ev); err != nil {
		s.logger.Error().Err(err).Str("requestId", requestId).Msg("Failed to publish analysis")
	}
}

// AnalyzeNow analyzes text immediately, bypassing the scheduler. The text is
// recorded as a customer utterance.
func (s *Session) AnalyzeNow(ctx context.Context, text string) (models.AnalysisResult, error) {
	if text == "" {
		return models.AnalysisResult{}, analysis.ErrEmptyText
	}
	u := models.Utterance{Side: models.SideCustomer, Text: text}
	s.log.Append(u)
	s.metrics.RecordUtterance(string(u.Side))
	s.each(func(sink Sink) { sink.OnUtterance(u) })

	seq, requestId := s.requests.Next(s.id)
	res, err := s.analyzer.Analyze(ctx, analysis.Request{Text: text, Context: s.opts.Context})
	if err != nil {
		return models.AnalysisResult{}, err
	}
	s.apply(ctx, seq, requestId, text, res)
	return res, nil
}

// End stops live processing and generates the recap once per session. It returns
// the recap, whether this call generated it, and any recap error. Pending customer
// text that has not been flushed is discarded.
func (s *Session) End(ctx context.Context) (string, bool, error) {
	if s.lifecycle.End() {
		s.scheduler.Stop()
		s.markEnded()
		s.metrics.RecordSessionEnd()
		s.logger.Info().Int("utterances", s.log.Len()).Msg("Session ended")
	}

	if !s.lifecycle.MarkSummarized() {
		return s.Recap(), false, nil
	}
	if s.log.Len() == 0 {
		s.metrics.RecordRecap("skipped")
		return "", false, nil
	}
	summary, err := s.Summarize(ctx)
	return summary, err == nil, err
}

// Summarize generates a recap of the current log unconditionally.
func (s *Session) Summarize(ctx context.Context) (string, error) {
	utterances := s.log.Snapshot()
	summary, err := s.analyzer.Recap(ctx, utterances)
	if err != nil {
		s.metrics.RecordRecap("error")
		s.logger.Error().Err(err).Msg("Recap failed")
		s.each(func(sink Sink) { sink.OnRecapError(err) })
		return "", err
	}
	s.metrics.RecordRecap("ok")

	s.mu.Lock()
	s.recap = summary
	s.mu.Unlock()

	ev := models.RecapEvent{
		EventType:  events.EventTypeRecap,
		SessionID:  s.id,
		Timestamp:  time.Now().UnixMilli(),
		Utterances: utterances,
		Summary:    summary,
	}
	s.each(func(sink Sink) { sink.OnRecap(ev) })
	if err := s.publisher.PublishRecap(ctx, s.id, ev); err != nil {
		s.logger.Error().Err(err).Msg("Failed to publish recap")
	}
	return summary, nil
}

// Close discards pending work without producing a recap.
func (s *Session) Close() {
	if s.lifecycle.End() {
		s.markEnded()
		s.metrics.RecordSessionEnd()
	}
	s.scheduler.Stop()
}

func (s *Session) markEnded() {
	s.mu.Lock()
	s.endedAt = s.clock.Now()
	s.mu.Unlock()
}

// EndedAt returns when the session last ended. It is false while the session has
// not ended since its last start.
func (s *Session) EndedAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endedAt, !s.endedAt.IsZero()
}

// Log returns a snapshot of the conversation log.
func (s *Session) Log() []models.Utterance {
	return s.log.Snapshot()
}

// Latest returns the most recently applied analysis result.
func (s *Session) Latest() (models.AnalysisResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return models.AnalysisResult{}, false
	}
	return *s.latest, true
}

// Recap returns the last generated recap.
func (s *Session) Recap() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recap
}

// PendingText returns customer text waiting for the next flush.
func (s *Session) PendingText() string {
	return s.scheduler.Buffer()
}
