package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tone-coach-service/internal/analysis"
	"tone-coach-service/internal/app"
	"tone-coach-service/internal/models"
	"tone-coach-service/internal/schema"
	"tone-coach-service/internal/session"
)

type api struct {
	app       *app.Application
	analyzer  analysis.Analyzer
	sessions  *session.Manager
	validator *schema.Validator
}

type configResponse struct {
	VapiPublicKey   string `json:"vapiPublicKey"`
	VapiAssistantID string `json:"vapiAssistantId"`
}

type analyzeResponse struct {
	OK bool `json:"ok"`
	models.AnalysisResult
}

type summaryResponse struct {
	OK      bool   `json:"ok"`
	Summary string `json:"summary"`
}

type sessionResponse struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
}

type logResponse struct {
	OK         bool                   `json:"ok"`
	SessionID  string                 `json:"sessionId"`
	State      string                 `json:"state"`
	Utterances []models.Utterance     `json:"utterances"`
	Pending    string                 `json:"pending"`
	Latest     *models.AnalysisResult `json:"latest"`
	Recap      string                 `json:"recap,omitempty"`
}

func (a *api) readiness(w http.ResponseWriter, _ *http.Request) {
	if a.app != nil && a.app.StartupTime.IsZero() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("starting"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (a *api) config(w http.ResponseWriter, r *http.Request) {
	voice := a.sessions.Voice()
	writeJSON(w, http.StatusOK, configResponse{
		VapiPublicKey:   voice.PublicKey,
		VapiAssistantID: voice.AssistantID,
	})
}

// analyze is the stateless manual analysis endpoint.
func (a *api) analyze(w http.ResponseWriter, r *http.Request) {
	var req schema.AnalyzeRequest
	if err := a.decodeValid(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Context == "" {
		req.Context = analysis.DefaultContext
	}

	res, err := a.analyzer.Analyze(r.Context(), analysis.Request{Text: req.Text, Context: req.Context})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{OK: true, AnalysisResult: res})
}

func (a *api) summary(w http.ResponseWriter, r *http.Request) {
	var req schema.SummaryRequest
	if err := a.decodeValid(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	summary, err := a.analyzer.Recap(r.Context(), req.Utterances)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{OK: true, Summary: summary})
}

func (a *api) startSession(w http.ResponseWriter, r *http.Request) {
	s, err := a.sessions.Start()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{OK: true, SessionID: s.ID(), State: s.State().String()})
}

// sessionEvent accepts one raw voice transport message.
func (a *api) sessionEvent(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.HandleMessage(r.Context(), body)
	writeJSON(w, http.StatusAccepted, sessionResponse{OK: true, SessionID: s.ID(), State: s.State().String()})
}

func (a *api) sessionLog(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	resp := logResponse{
		OK:         true,
		SessionID:  s.ID(),
		State:      s.State().String(),
		Utterances: s.Log(),
		Pending:    s.PendingText(),
		Recap:      s.Recap(),
	}
	if latest, ok := s.Latest(); ok {
		resp.Latest = &latest
	}
	writeJSON(w, http.StatusOK, resp)
}

// sessionAnalyze analyzes text immediately and records it in the session log.
func (a *api) sessionAnalyze(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req schema.AnalyzeRequest
	if err := a.decodeValid(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := s.AnalyzeNow(r.Context(), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{OK: true, AnalysisResult: res})
}

func (a *api) endSession(w http.ResponseWriter, r *http.Request) {
	summary, err := a.sessions.End(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{OK: true, Summary: summary})
}

func (a *api) removeSession(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Remove(chi.URLParam(r, "sessionId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := a.sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return s, true
}

func (a *api) decodeValid(w http.ResponseWriter, r *http.Request, v any) error {
	if err := decode(w, r, v); err != nil {
		return err
	}
	return a.validator.Validate(v)
}
