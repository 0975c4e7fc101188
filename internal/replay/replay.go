// Package replay feeds recorded or scripted voice transport messages through a
// session on a manual clock, so a whole call can be coached without waiting in real
// time.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"tone-coach-service/internal/coaching"
	"tone-coach-service/internal/session"
)

// Frame is one transport message and its offset from the start of the call.
type Frame struct {
	Offset time.Duration
	Raw    json.RawMessage
}

// Load reads JSON lines. An optional numeric "offsetMs" field positions a line in
// time; lines without it follow the previous line after gap. Blank lines and lines
// starting with # are skipped.
func Load(r io.Reader, gap time.Duration) ([]Frame, error) {
	var frames []Frame
	var last time.Duration

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if !gjson.Valid(text) {
			return nil, fmt.Errorf("line %d: invalid JSON", line)
		}

		offset := last + gap
		if len(frames) == 0 {
			offset = 0
		}
		if v := gjson.Get(text, "offsetMs"); v.Exists() {
			offset = time.Duration(v.Int()) * time.Millisecond
		}
		if offset < last {
			return nil, fmt.Errorf("line %d: offsetMs goes backwards", line)
		}
		last = offset
		frames = append(frames, Frame{Offset: offset, Raw: json.RawMessage(text)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

// Player drives one session through a sequence of frames.
type Player struct {
	session *session.Session
	clock   *coaching.ManualClock
	// Tail is how long the clock keeps running after the last frame so pending
	// customer text can flush before the session ends.
	Tail time.Duration
}

// NewPlayer creates a player. The session must have been created with clock.
func NewPlayer(s *session.Session, clock *coaching.ManualClock) *Player {
	return &Player{session: s, clock: clock, Tail: 5 * time.Second}
}

// Play delivers every frame at its offset and then ends the session. It returns the
// recap, which is empty when the log stayed empty.
func (p *Player) Play(ctx context.Context, frames []Frame) (string, error) {
	var now time.Duration
	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if f.Offset > now {
			p.clock.Advance(f.Offset - now)
			now = f.Offset
		}
		log.Debug().Int("frame", i).Dur("offset", f.Offset).Msg("Replaying frame")
		p.session.HandleMessage(ctx, f.Raw)
	}
	p.clock.Advance(p.Tail)

	summary, _, err := p.session.End(ctx)
	return summary, err
}
