package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tone-coach-service/internal/coaching"
	"tone-coach-service/internal/config"
	"tone-coach-service/internal/events"
	"tone-coach-service/internal/models"
	"tone-coach-service/internal/observability/logging"
	"tone-coach-service/internal/replay"
	"tone-coach-service/internal/session"
)

var (
	replayDemo bool
	replayGap  time.Duration
)

var replayCmd = &cobra.Command{
	Use:   "replay [file.jsonl]",
	Short: "Replay recorded transcription events through one coaching session",
	Long: "Replay reads one voice transport message per line (an optional offsetMs field " +
		"places it in time) and prints utterances, analysis results and the recap as JSON lines. " +
		"With --demo a built-in support call is used instead of a file.",
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayDemo, "demo", false, "replay the built-in demo call")
	replayCmd.Flags().DurationVar(&replayGap, "gap", 2*time.Second, "spacing for lines without offsetMs")
}

func runReplay(cmd *cobra.Command, args []string) error {
	var frames []replay.Frame
	switch {
	case replayDemo:
		frames = replay.Frames(replay.DefaultScript, replay.DefaultSpacing, true)
	case len(args) == 1:
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		if frames, err = replay.Load(f, replayGap); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
	default:
		return fmt.Errorf("a file or --demo is required")
	}

	cfg := config.Load()
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Observability.LogLevel
	logCfg.Format = "console"
	logCfg.Output = cmd.ErrOrStderr()
	logging.Init(logCfg)

	analyzer, err := newAnalyzer(cfg.Analyzer)
	if err != nil {
		return err
	}
	publisher := events.New(publisherConfig(cfg))
	defer publisher.Close()

	clock := coaching.NewManualClock(time.Now())
	opts := sessionOptions(cfg)
	opts.Clock = clock
	s := session.New("replay-"+uuid.New().String(), analyzer, publisher, opts)
	s.Subscribe(newPrintSink(cmd.OutOrStdout()))
	if err := s.Begin(); err != nil {
		return err
	}

	_, err = replay.NewPlayer(s, clock).Play(cmd.Context(), frames)
	return err
}

// printSink writes session output as JSON lines.
type printSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newPrintSink(w io.Writer) *printSink {
	return &printSink{enc: json.NewEncoder(w)}
}

func (p *printSink) print(kind string, v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enc.Encode(map[string]any{"type": kind, "data": v})
}

func (p *printSink) OnUtterance(u models.Utterance)     { p.print("utterance", u) }
func (p *printSink) OnAnalysis(ev models.AnalysisEvent) { p.print("analysis", ev) }
func (p *printSink) OnRecap(ev models.RecapEvent)       { p.print("recap", ev) }
func (p *printSink) OnStatus(status string)             { p.print("status", status) }

func (p *printSink) OnAnalysisError(requestId string, err error) {
	p.print("analysis_error", map[string]string{"requestId": requestId, "error": err.Error()})
}

func (p *printSink) OnRecapError(err error) {
	p.print("recap_error", err.Error())
}
