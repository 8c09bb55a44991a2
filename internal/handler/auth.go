package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/pawboard/internal/auth"
	"github.com/dukerupert/pawboard/internal/calendar"
	"github.com/dukerupert/pawboard/internal/metrics"
	"github.com/dukerupert/pawboard/internal/model"
	"github.com/dukerupert/pawboard/internal/store"
)

type AuthHandler struct {
	store   store.Store
	scorer  scorer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewAuthHandler(s store.Store, cal *calendar.Calendar, m *metrics.Metrics, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		store:   s,
		scorer:  scorer{store: s, cal: cal, metrics: m},
		metrics: m,
		logger:  logger,
	}
}

type credentials struct {
	Email       string `json:"email" validate:"required,max=254"`
	Password    string `json:"password" validate:"required,max=1024"`
	Username    string `json:"username" validate:"max=64"`
	InviteToken string `json:"inviteToken" validate:"max=128"`
}

func (c *credentials) normalize() {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Username = strings.TrimSpace(c.Username)
	c.InviteToken = strings.TrimSpace(c.InviteToken)
}

// validateCredentials writes the 400 response and returns false when c is
// unusable.
func validateCredentials(w http.ResponseWriter, c *credentials) bool {
	err := validate.Struct(c)
	if err == nil {
		return true
	}
	if failedTag(err, "Email") == "required" || failedTag(err, "Password") == "required" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid registration fields")
	return false
}

type sessionResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	HouseholdID string `json:"householdId"`
	DogName     string `json:"dogName"`
	IsAdmin     bool   `json:"isAdmin"`
	Scores
}

func (h *AuthHandler) session(u *model.User) (*sessionResponse, error) {
	snap, err := h.store.Snapshot(u.HouseholdID)
	if err != nil {
		return nil, err
	}
	resp := &sessionResponse{
		Token:       u.Token,
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		HouseholdID: u.HouseholdID,
		IsAdmin:     u.IsAdmin,
		Scores:      h.scorer.compute(snap, u.HouseholdID),
	}
	if snap.Household != nil {
		resp.DogName = snap.Household.DogName
	}
	return resp, nil
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.normalize()
	if !validateCredentials(w, &req) {
		return
	}

	secret, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	username := req.Username
	if username == "" {
		username, _, _ = strings.Cut(req.Email, "@")
	}
	u := model.User{
		ID:       model.NewID(),
		Username: username,
		Email:    req.Email,
		Password: secret,
		Token:    model.NewID(),
	}
	household := model.Household{
		ID:           model.NewID(),
		InviteTokens: []string{model.NewID()},
	}

	created, err := h.store.RegisterUser(u, req.InviteToken, household)
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "email already exists")
		return
	case errors.Is(err, store.ErrInvalidInvite):
		writeError(w, http.StatusBadRequest, "invalid invite token")
		return
	case err != nil:
		h.logger.Error("register user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}
	h.metrics.UserRegistered()
	h.logger.Info("user registered",
		"user_id", created.ID,
		"household_id", created.HouseholdID,
		"admin", created.IsAdmin,
		"invited", req.InviteToken != "",
	)

	resp, err := h.session(created)
	if err != nil {
		h.logger.Error("registration scoreboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load scoreboard")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.normalize()
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	u, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if u == nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	ok, rehash, err := auth.VerifyPassword(req.Password, u.Password)
	if err != nil {
		h.logger.Warn("verify password", "user_id", u.ID, "error", err)
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if rehash {
		h.upgradeSecret(u, req.Password)
	}

	resp, err := h.session(u)
	if err != nil {
		h.logger.Error("login scoreboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load scoreboard")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// upgradeSecret replaces a legacy plaintext secret with a hash. Failure
// is logged and the login proceeds.
func (h *AuthHandler) upgradeSecret(u *model.User, password string) {
	secret, err := auth.HashPassword(password)
	if err == nil {
		err = h.store.SetPassword(u.ID, secret)
	}
	if err != nil {
		h.logger.Error("upgrade legacy password", "user_id", u.ID, "error", err)
		return
	}
	u.Password = secret
	h.logger.Info("legacy password upgraded", "user_id", u.ID)
}

type userResponse struct {
	UserID       string   `json:"userId"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	HouseholdID  string   `json:"householdId"`
	DogName      string   `json:"dogName"`
	DogAgeMonths int      `json:"dogAgeMonths"`
	DogPhotoURL  string   `json:"dogPhotoUrl"`
	InviteTokens []string `json:"inviteTokens"`
	IsAdmin      bool     `json:"isAdmin"`
	Scores
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.GetUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if u == nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	snap, err := h.store.Snapshot(u.HouseholdID)
	if err != nil {
		h.logger.Error("read snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load household")
		return
	}
	resp := userResponse{
		UserID:       u.ID,
		Username:     u.Username,
		Email:        u.Email,
		HouseholdID:  u.HouseholdID,
		InviteTokens: []string{},
		IsAdmin:      u.IsAdmin,
		Scores:       h.scorer.compute(snap, u.HouseholdID),
	}
	if hh := snap.Household; hh != nil {
		resp.DogName = hh.DogName
		resp.DogAgeMonths = hh.DogAgeMonths
		resp.DogPhotoURL = hh.DogPhotoURL
		resp.InviteTokens = hh.InviteTokens
	}
	writeJSON(w, http.StatusOK, resp)
}
