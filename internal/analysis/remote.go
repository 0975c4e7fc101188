package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tone-coach-service/internal/models"
	"tone-coach-service/internal/observability/metrics"
)

const providerRemote = "remote"

// Remote implements Analyzer against another tone-coach deployment's HTTP API.
type Remote struct {
	c       *http.Client
	url     string
	metrics *metrics.Metrics
}

// NewRemote creates an analyzer that posts to baseURL + /api/analyze and /api/summary.
func NewRemote(baseURL string, timeout time.Duration) (*Remote, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Remote{
		c:       &http.Client{Timeout: timeout},
		url:     baseURL,
		metrics: metrics.DefaultMetrics,
	}, nil
}

type summaryReq struct {
	Utterances []models.Utterance `json:"utterances"`
}

type summaryResp struct {
	OK      bool   `json:"ok"`
	Summary string `json:"summary"`
	Error   string `json:"error"`
}

// Analyze posts the request and normalizes the response body. A 2xx body that cannot
// be parsed becomes the fallback result; transport errors and non-2xx statuses are
// returned as ErrUpstream.
func (r *Remote) Analyze(ctx context.Context, req Request) (models.AnalysisResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return models.AnalysisResult{}, ErrEmptyText
	}
	body, err := r.post(ctx, "analyze", "/api/analyze", req)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	res, fallback := normalize(string(body))
	if fallback {
		r.metrics.RecordFallback()
	}
	return res, nil
}

// Recap posts the conversation and returns the summary text.
func (r *Remote) Recap(ctx context.Context, utterances []models.Utterance) (string, error) {
	if len(utterances) == 0 {
		return "", ErrNoUtterances
	}
	body, err := r.post(ctx, "recap", "/api/summary", summaryReq{Utterances: utterances})
	if err != nil {
		return "", err
	}
	var out summaryResp
	if err := json.Unmarshal(body, &out); err != nil {
		return "", upstreamError("recap", err)
	}
	return out.Summary, nil
}

func (r *Remote) post(ctx context.Context, kind, path string, in any) ([]byte, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.c.Do(req)
	if err != nil {
		r.metrics.RecordAnalysis(providerRemote, kind, err, time.Since(start).Seconds())
		return nil, upstreamError(kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err == nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		err = fmt.Errorf("status %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(body)), 200))
	}
	r.metrics.RecordAnalysis(providerRemote, kind, err, time.Since(start).Seconds())
	if err != nil {
		return nil, upstreamError(kind, err)
	}
	return body, nil
}
