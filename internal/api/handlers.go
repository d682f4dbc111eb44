package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mattjoyce/obsq/internal/events"
)

// handleHealthz handles GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		QueueState:    s.queue.Stats().State.String(),
	})
}

// handlePush handles POST /items. The raw body, minus a trailing newline, is
// pushed as one item.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxItemBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "item too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	item := strings.TrimRight(string(body), "\r\n")
	if item == "" {
		s.writeError(w, http.StatusBadRequest, "item is empty")
		return
	}

	ticket := s.queue.Push(item)
	s.events.Publish(events.TypeItemPushed, map[string]any{
		"ticket": uint64(ticket),
		"bytes":  len(item),
		"source": "api",
	})

	respondJSON(w, http.StatusAccepted, PushResponse{
		Ticket:  uint64(ticket),
		Pending: s.queue.Stats().Pending,
	})
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.queue.Stats()
	respondJSON(w, http.StatusOK, StatsResponse{
		Queue:      s.config.QueueName,
		Mode:       st.Mode.String(),
		State:      st.State.String(),
		Pending:    st.Pending,
		Consumers:  st.Consumers,
		Pushed:     st.Pushed,
		Dispatched: st.Dispatched,
		Failures:   st.Failures,
	})
}

// handleEvents handles GET /events?since=N.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var since int64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "since must be a non-negative integer")
			return
		}
		since = n
	}
	respondJSON(w, http.StatusOK, EventsResponse{Events: s.events.SnapshotSince(since)})
}

// handleJournal handles GET /journal?limit=N, newest entries first.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusNotFound, "journal is not enabled")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	entries, err := s.journal.Recent(r.Context(), s.config.QueueName, limit)
	if err != nil {
		s.logger.Error("failed to read journal", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	total, err := s.journal.Count(r.Context(), s.config.QueueName)
	if err != nil {
		s.logger.Error("failed to count journal", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}

	resp := JournalResponse{
		Queue:   s.config.QueueName,
		Total:   total,
		Entries: make([]JournalEntry, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, JournalEntry{
			Seq:        e.Seq,
			ID:         e.ID,
			Payload:    e.Payload,
			Digest:     e.Digest,
			RecordedAt: e.RecordedAt,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
