// Command testclient starts a session on a running tone-coach server, streams the
// built-in demo call over the websocket and prints everything the server pushes back.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"tone-coach-service/internal/observability/logging"
	"tone-coach-service/internal/replay"
)

type startResponse struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"sessionId"`
	Error     string `json:"error"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "tone-coach base URL")
	speed := flag.Float64("speed", 1, "playback speed multiplier")
	flag.Parse()

	cfg := logging.DefaultConfig()
	cfg.Format = "console"
	logging.Init(cfg)

	resp, err := http.Post(*addr+"/api/sessions", "application/json", nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start session")
	}
	var start startResponse
	err = json.NewDecoder(resp.Body).Decode(&start)
	resp.Body.Close()
	if err != nil || !start.OK {
		log.Fatal().Err(err).Str("error", start.Error).Int("code", resp.StatusCode).Msg("session start rejected")
	}
	log.Info().Str("sessionId", start.SessionID).Msg("Session started")

	wsURL := "ws" + strings.TrimPrefix(*addr, "http") + "/api/sessions/" + start.SessionID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stream")
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			fmt.Println(string(msg))
			if strings.Contains(string(msg), `"type":"recap`) {
				return
			}
		}
	}()

	var last time.Duration
	for _, f := range replay.Frames(replay.DefaultScript, replay.DefaultSpacing, true) {
		time.Sleep(time.Duration(float64(f.Offset-last) / *speed))
		last = f.Offset
		if err := conn.WriteMessage(websocket.TextMessage, f.Raw); err != nil {
			log.Fatal().Err(err).Msg("failed to send frame")
		}
	}

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Warn().Msg("Timed out waiting for recap")
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
