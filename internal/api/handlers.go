package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"river-strike/internal/game"
	"river-strike/internal/scores"
)

const (
	maxRiverSamples = 2000
	maxInputBody    = 1 << 10
)

// Handler methods for routerHandlers

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GetSnapshot())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{"rateLimit": h.limiter.Stats()}
	for k, v := range h.engine.GetStats() {
		stats[k] = v
	}
	writeJSON(w, stats)
}

// handleGetRiver samples the channel: ?from=&to=&step= (world units).
// Defaults cover the current viewport.
func (h *routerHandlers) handleGetRiver(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.GetSnapshot()
	q := r.URL.Query()

	from, err := floatParam(q.Get("from"), snap.Scroll)
	if err != nil {
		writeError(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := floatParam(q.Get("to"), from+snap.ViewDepth)
	if err != nil {
		writeError(w, "invalid to", http.StatusBadRequest)
		return
	}
	step, err := floatParam(q.Get("step"), 20)
	if err != nil || step <= 0 {
		writeError(w, "step must be positive", http.StatusBadRequest)
		return
	}
	if to < from || (to-from)/step > maxRiverSamples {
		writeError(w, "range too large", http.StatusBadRequest)
		return
	}

	samples := h.engine.RiverSamples(from, to, step)
	if samples == nil {
		writeError(w, "no run started", http.StatusConflict)
		return
	}
	writeJSON(w, map[string]interface{}{
		"from":    from,
		"step":    step,
		"samples": samples,
	})
}

func (h *routerHandlers) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		writeError(w, "renderer disabled", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	start := time.Now()
	if err := h.renderer.EncodePNG(&buf, h.engine.GetSnapshot()); err != nil {
		log.Printf("⚠️ Frame render failed: %v", err)
		writeError(w, "render failed", http.StatusInternalServerError)
		return
	}
	RecordRender(time.Since(start))
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.leaderboard.Top())
}

func (h *routerHandlers) handleGetHighScore(w http.ResponseWriter, r *http.Request) {
	best, err := h.leaderboard.Best()
	if errors.Is(err, scores.ErrEmptyStore) {
		writeJSON(w, map[string]interface{}{"score": 0})
		return
	}
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, best)
}

func (h *routerHandlers) handleRunStart(w http.ResponseWriter, r *http.Request) {
	runID := h.engine.StartRun()
	log.Printf("🎮 Run %s started via API", runID)
	writeJSON(w, map[string]interface{}{"success": true, "runId": runID})
}

func (h *routerHandlers) handleRunPause(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Pause(); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]interface{}{"success": true})
}

func (h *routerHandlers) handleRunResume(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Resume(); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]interface{}{"success": true})
}

func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	var in game.Intent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInputBody)).Decode(&in); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	in = in.Sanitized()
	h.engine.SetIntent(in)
	writeJSON(w, in)
}

func floatParam(v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
