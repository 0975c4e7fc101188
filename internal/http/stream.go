package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tone-coach-service/internal/models"
	"tone-coach-service/internal/observability/logging"
)

const (
	streamBuffer = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the browser client is served from another origin
	},
}

// Outbound stream message types.
const (
	msgUtterance     = "utterance"
	msgAnalysis      = "analysis"
	msgAnalysisError = "analysis_error"
	msgRecap         = "recap"
	msgRecapError    = "recap_error"
	msgStatus        = "status"
)

type streamMessage struct {
	Type      string                 `json:"type"`
	RequestID string                 `json:"requestId,omitempty"`
	Utterance *models.Utterance      `json:"utterance,omitempty"`
	Text      string                 `json:"text,omitempty"`
	Result    *models.AnalysisResult `json:"result,omitempty"`
	Summary   string                 `json:"summary,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// streamSink forwards session output to one websocket connection. It never blocks the
// session; messages are dropped when the client falls behind.
type streamSink struct {
	out    chan streamMessage
	logger zerolog.Logger
}

func (s *streamSink) send(m streamMessage) {
	select {
	case s.out <- m:
	default:
		s.logger.Warn().Str("type", m.Type).Msg("Stream client too slow, dropping message")
	}
}

func (s *streamSink) OnUtterance(u models.Utterance) {
	s.send(streamMessage{Type: msgUtterance, Utterance: &u})
}

func (s *streamSink) OnAnalysis(ev models.AnalysisEvent) {
	res := ev.Result
	s.send(streamMessage{Type: msgAnalysis, RequestID: ev.RequestID, Text: ev.Text, Result: &res})
}

func (s *streamSink) OnAnalysisError(requestId string, err error) {
	s.send(streamMessage{Type: msgAnalysisError, RequestID: requestId, Error: err.Error()})
}

func (s *streamSink) OnRecap(ev models.RecapEvent) {
	s.send(streamMessage{Type: msgRecap, Summary: ev.Summary})
}

func (s *streamSink) OnRecapError(err error) {
	s.send(streamMessage{Type: msgRecapError, Error: err.Error()})
}

func (s *streamSink) OnStatus(status string) {
	s.send(streamMessage{Type: msgStatus, Status: status})
}

// stream upgrades to a websocket. Inbound text frames are voice transport messages;
// outbound frames carry utterances, analysis results and the recap.
func (a *api) stream(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger := logging.WithSession(s.ID())
		logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	logger := logging.WithSession(s.ID()).With().Str("component", "stream").Logger()
	sink := &streamSink{out: make(chan streamMessage, streamBuffer), logger: logger}
	unsubscribe := s.Subscribe(sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		writePump(ctx, conn, sink.out, logger)
	}()

	logger.Info().Msg("Stream client connected")
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("Stream read error")
			}
			break
		}
		s.HandleMessage(ctx, payload)
	}

	unsubscribe()
	cancel()
	<-done
	conn.Close()
	logger.Info().Msg("Stream client disconnected")
}

func writePump(ctx context.Context, conn *websocket.Conn, out <-chan streamMessage, logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case m := <-out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				logger.Warn().Err(err).Msg("Stream write error")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
