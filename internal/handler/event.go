package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/pawboard/internal/auth"
	"github.com/dukerupert/pawboard/internal/calendar"
	"github.com/dukerupert/pawboard/internal/metrics"
	"github.com/dukerupert/pawboard/internal/model"
	"github.com/dukerupert/pawboard/internal/schedule"
	"github.com/dukerupert/pawboard/internal/store"
)

type EventHandler struct {
	store   store.Store
	cal     *calendar.Calendar
	scorer  scorer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewEventHandler(s store.Store, cal *calendar.Calendar, m *metrics.Metrics, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		store:   s,
		cal:     cal,
		scorer:  scorer{store: s, cal: cal, metrics: m},
		metrics: m,
		logger:  logger,
	}
}

type eventRow struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp"`
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
}

func eventRows(events []model.Event, users []model.User) []eventRow {
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	rows := make([]eventRow, 0, len(events))
	for _, e := range events {
		name, ok := names[e.UserID]
		if !ok {
			name = "Unknown"
		}
		rows = append(rows, eventRow{
			ID:        e.ID,
			Type:      e.Type,
			Timestamp: e.Timestamp,
			UserID:    e.UserID,
			Username:  name,
		})
	}
	return rows
}

type createEventRequest struct {
	Type string `json:"type" validate:"required,max=64"`
}

type createEventResponse struct {
	Success bool   `json:"success"`
	EventID string `json:"eventId"`
	Scores
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Type = strings.TrimSpace(req.Type)
	if err := validate.Struct(req); err != nil {
		if failedTag(err, "Type") == "required" {
			writeError(w, http.StatusBadRequest, "type required")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid event type")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	e := model.Event{
		ID:          model.NewID(),
		HouseholdID: ac.HouseholdID,
		UserID:      ac.UserID,
		Type:        req.Type,
		Timestamp:   model.Timestamp(h.cal.Now()),
	}
	if err := h.store.AppendEvent(e); err != nil {
		h.logger.Error("append event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record event")
		return
	}
	h.metrics.EventLogged(e.Type)

	scores, err := h.scorer.scores(ac.HouseholdID)
	if err != nil {
		h.logger.Error("event scoreboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load scoreboard")
		return
	}
	h.logger.Info("event recorded",
		"event_id", e.ID,
		"type", e.Type,
		"user_id", e.UserID,
		"family_total", scores.FamilyTotal,
	)
	writeJSON(w, http.StatusOK, createEventResponse{Success: true, EventID: e.ID, Scores: scores})
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Scores
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())

	e, err := h.store.GetEvent(id)
	if err != nil {
		h.logger.Error("get event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	if e == nil || e.HouseholdID != ac.HouseholdID {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if e.UserID != ac.UserID && !ac.IsAdmin {
		writeError(w, http.StatusForbidden, "permission denied")
		return
	}

	deleted, err := h.store.DeleteEvent(id)
	if err != nil {
		h.logger.Error("delete event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	h.metrics.EventsDeleted(1)
	h.logger.Info("event deleted", "event_id", id, "user_id", ac.UserID)

	scores, err := h.scorer.scores(ac.HouseholdID)
	if err != nil {
		h.logger.Error("event scoreboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load scoreboard")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Event deleted", Scores: scores})
}

func (h *EventHandler) Scores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.scorer.scores(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("scoreboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load scoreboard")
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

type todayResponse struct {
	Date           string             `json:"date"`
	Events         []eventRow         `json:"events"`
	Schedule       schedule.Flags     `json:"schedule"`
	DailyChallenge schedule.Challenge `json:"dailyChallenge"`
}

func (h *EventHandler) Today(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	snap, err := h.store.Snapshot(ac.HouseholdID)
	if err != nil {
		h.logger.Error("read snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}

	day := schedule.Today(h.cal, snap.Events, ac.HouseholdID)
	writeJSON(w, http.StatusOK, todayResponse{
		Date:           day.Date.String(),
		Events:         eventRows(day.Events, snap.Users),
		Schedule:       day.Flags(),
		DailyChallenge: day.Challenge(ac.UserID),
	})
}

type historyResponse struct {
	Date   string     `json:"date"`
	Events []eventRow `json:"events"`
}

func (h *EventHandler) History(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "date parameter required")
		return
	}
	date, err := calendar.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format")
		return
	}

	hid := auth.HouseholdID(r.Context())
	snap, err := h.store.Snapshot(hid)
	if err != nil {
		h.logger.Error("read snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	day := schedule.OnDate(h.cal, snap.Events, hid, date)
	writeJSON(w, http.StatusOK, historyResponse{
		Date:   day.Date.String(),
		Events: eventRows(day.Events, snap.Users),
	})
}
