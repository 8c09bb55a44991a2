package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/pawboard/internal/auth"
	"github.com/dukerupert/pawboard/internal/calendar"
	"github.com/dukerupert/pawboard/internal/metrics"
	"github.com/dukerupert/pawboard/internal/model"
	"github.com/dukerupert/pawboard/internal/store"
)

// HouseholdHandler serves the pet profile, invite codes and the admin
// maintenance endpoints.
type HouseholdHandler struct {
	store   store.Store
	scorer  scorer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHouseholdHandler(s store.Store, cal *calendar.Calendar, m *metrics.Metrics, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{
		store:   s,
		scorer:  scorer{store: s, cal: cal, metrics: m},
		metrics: m,
		logger:  logger,
	}
}

type dogResponse struct {
	DogName      string `json:"dogName"`
	DogAgeMonths int    `json:"dogAgeMonths"`
	DogPhotoURL  string `json:"dogPhotoUrl"`
	Scores
}

func (h *HouseholdHandler) UpdateDog(w http.ResponseWriter, r *http.Request) {
	var req model.PetProfile
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid dog profile")
		return
	}

	hid := auth.HouseholdID(r.Context())
	hh, err := h.store.UpdatePetProfile(hid, req)
	if err != nil {
		h.logger.Error("update pet profile", "household_id", hid, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update dog")
		return
	}

	scores, err := h.scorer.scores(hid)
	if err != nil {
		h.logger.Error("dog scoreboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load scoreboard")
		return
	}
	writeJSON(w, http.StatusOK, dogResponse{
		DogName:      hh.DogName,
		DogAgeMonths: hh.DogAgeMonths,
		DogPhotoURL:  hh.DogPhotoURL,
		Scores:       scores,
	})
}

func (h *HouseholdHandler) Invite(w http.ResponseWriter, r *http.Request) {
	hid := auth.HouseholdID(r.Context())
	token := model.NewID()
	hh, err := h.store.AddInviteToken(hid, token)
	if err != nil {
		h.logger.Error("add invite token", "household_id", hid, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create invite")
		return
	}
	h.logger.Info("invite created", "household_id", hid, "active", len(hh.InviteTokens))
	writeJSON(w, http.StatusOK, map[string]any{
		"token":        token,
		"inviteTokens": hh.InviteTokens,
	})
}

func (h *HouseholdHandler) ResetInvites(w http.ResponseWriter, r *http.Request) {
	hid := auth.HouseholdID(r.Context())
	hh, err := h.store.ResetInviteTokens(hid, model.NewID())
	if err != nil {
		h.logger.Error("reset invite tokens", "household_id", hid, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset invites")
		return
	}
	h.logger.Info("invites reset", "household_id", hid)
	writeJSON(w, http.StatusOK, map[string]any{"inviteTokens": hh.InviteTokens})
}

func (h *HouseholdHandler) ResetScores(w http.ResponseWriter, r *http.Request) {
	h.clearEvents(w, r, func(int) string { return "All scores reset" })
}

func (h *HouseholdHandler) ClearEvents(w http.ResponseWriter, r *http.Request) {
	h.clearEvents(w, r, func(n int) string { return fmt.Sprintf("%d events cleared", n) })
}

func (h *HouseholdHandler) clearEvents(w http.ResponseWriter, r *http.Request, message func(n int) string) {
	ac, _ := auth.FromContext(r.Context())
	n, err := h.store.DeleteEventsForHousehold(ac.HouseholdID)
	if err != nil {
		h.logger.Error("clear events", "household_id", ac.HouseholdID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear events")
		return
	}
	h.metrics.EventsDeleted(n)
	h.logger.Info("household events cleared",
		"household_id", ac.HouseholdID,
		"admin_id", ac.UserID,
		"count", n,
	)

	scores, err := h.scorer.scores(ac.HouseholdID)
	if err != nil {
		h.logger.Error("clear scoreboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load scoreboard")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: message(n), Scores: scores})
}

// Health is the unauthenticated liveness probe.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
