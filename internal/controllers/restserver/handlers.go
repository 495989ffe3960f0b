package restserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/automaticats/feederd/internal/types"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing useful left to do.
		return
	}
}

// handleStatus returns the last status snapshot. Non-blocking: the
// monitoring loop publishes it each cycle.
func (c *Controller) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.monitor.CurrentStatus())
}

type feedRequest struct {
	AmountGrams float64 `json:"amount"`
}

// handleFeed triggers a synchronous dispense. The response is delayed for
// the full dispense duration by design.
func (c *Controller) handleFeed(w http.ResponseWriter, r *http.Request) {
	var req feedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, types.FeedResult{Success: false, Message: "invalid request body"})
		return
	}

	result := c.monitor.TriggerFeeding(r.Context(), req.AmountGrams, types.SourceManual)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

// handleIdentify runs one camera identification.
func (c *Controller) handleIdentify(w http.ResponseWriter, r *http.Request) {
	result := c.monitor.IdentifyCat(r.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

// handleEvents returns recent feeding log entries. Query parameter
// "hours" bounds the window (default 168, one week).
func (c *Controller) handleEvents(w http.ResponseWriter, r *http.Request) {
	hours := 168
	if v := r.URL.Query().Get("hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid hours parameter"})
			return
		}
		hours = parsed
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	records, err := c.feedingLog.RecentEvents(since, 500)
	if err != nil {
		c.logger.Errorf("failed to query feeding log: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to query feeding log"})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleStats returns per-cat eating aggregates. Query parameter "hours"
// bounds the window like handleEvents.
func (c *Controller) handleStats(w http.ResponseWriter, r *http.Request) {
	hours := 168
	if v := r.URL.Query().Get("hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid hours parameter"})
			return
		}
		hours = parsed
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	stats, err := c.feedingLog.FeedingStats(since)
	if err != nil {
		c.logger.Errorf("failed to query feeding stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to query feeding stats"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleCats lists registered cats.
func (c *Controller) handleCats(w http.ResponseWriter, r *http.Request) {
	cats, err := c.feedingLog.Cats()
	if err != nil {
		c.logger.Errorf("failed to query cats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to query cats"})
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

type addCatRequest struct {
	Name string `json:"name"`
}

// handleAddCat registers a new cat identity.
func (c *Controller) handleAddCat(w http.ResponseWriter, r *http.Request) {
	var req addCatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a cat name is required"})
		return
	}

	id, err := c.feedingLog.AddCat(req.Name)
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "could not add cat, name may already exist"})
		return
	}
	writeJSON(w, http.StatusCreated, types.Cat{ID: id, Name: req.Name})
}
