// Package api exposes the HTTP surface of the fitrun service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Mehdi-code-93/fitrun/internal/auth"
	"github.com/Mehdi-code-93/fitrun/internal/backend"
	"github.com/Mehdi-code-93/fitrun/internal/domain"
	"github.com/Mehdi-code-93/fitrun/internal/stats"
)

// Handler coordinates HTTP requests with the account and repository layers.
type Handler struct {
	auth      backend.Auth
	profiles  backend.ProfileRepository
	goals     backend.GoalsRepository
	trainings backend.TrainingRepository
	now       func() time.Time
}

// HandlerConfig bundles the collaborators a Handler needs.
type HandlerConfig struct {
	Auth      backend.Auth
	Profiles  backend.ProfileRepository
	Goals     backend.GoalsRepository
	Trainings backend.TrainingRepository
	Now       func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		auth:      cfg.Auth,
		profiles:  cfg.Profiles,
		goals:     cfg.Goals,
		trainings: cfg.Trainings,
		now:       cfg.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/auth/signup", h.signup)
	mux.HandleFunc("/v1/auth/login", h.login)
	mux.HandleFunc("/v1/auth/logout", h.logout)
	mux.HandleFunc("/v1/profile", h.profile)
	mux.HandleFunc("/v1/goals", h.goalsEndpoint)
	mux.HandleFunc("/v1/trainings", h.trainingsEndpoint)
	mux.HandleFunc("/v1/trainings/", h.trainingByID)
	mux.HandleFunc("/v1/dashboard", h.dashboard)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	session, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			writeError(w, http.StatusConflict, "email_taken", err.Error())
		case errors.Is(err, domain.ErrInvalidEmail), errors.Is(err, domain.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, SessionResponse{UserID: session.UserID, Email: session.Email})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	session, token, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{UserID: session.UserID, Email: session.Email, Token: token})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	token := auth.Token(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if err := h.auth.SignOut(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	switch r.Method {
	case http.MethodGet:
		params, err := h.profiles.GetProfile(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		if params == nil {
			defaults := domain.DefaultUserParams()
			params = &defaults
		}
		writeJSON(w, http.StatusOK, toProfileView(*params))
	case http.MethodPut:
		var req ProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		params := req.toParams()
		if err := h.profiles.UpsertProfile(r.Context(), claims.UserID, params); err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toProfileView(params))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) goalsEndpoint(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	switch r.Method {
	case http.MethodGet:
		goals, err := h.goals.GetGoals(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		if goals == nil {
			defaults := domain.DefaultGoals()
			goals = &defaults
		}
		writeJSON(w, http.StatusOK, GoalsView{WeeklySessions: goals.WeeklySessions, WeeklyCalories: goals.WeeklyCalories})
	case http.MethodPut:
		var req GoalsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		goals := domain.Goals{WeeklySessions: req.WeeklySessions, WeeklyCalories: req.WeeklyCalories}
		if err := h.goals.UpsertGoals(r.Context(), claims.UserID, goals); err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, GoalsView{WeeklySessions: goals.WeeklySessions, WeeklyCalories: goals.WeeklyCalories})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) trainingsEndpoint(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	switch r.Method {
	case http.MethodGet:
		records, err := h.trainings.ListTrainings(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		items := make([]TrainingView, 0, len(records))
		for _, rec := range records {
			items = append(items, toTrainingView(rec))
		}
		writeJSON(w, http.StatusOK, ListTrainingsResponse{Items: items})
	case http.MethodPost:
		fields, ok := h.decodeTrainingFields(w, r)
		if !ok {
			return
		}
		record, err := h.trainings.InsertTraining(r.Context(), claims.UserID, fields)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, toTrainingView(*record))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) trainingByID(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/trainings/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing training id")
		return
	}

	if owned, err := h.ownsTraining(r, claims.UserID, id); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	} else if !owned {
		writeError(w, http.StatusNotFound, "not_found", "training not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		fields, ok := h.decodeTrainingFields(w, r)
		if !ok {
			return
		}
		record, err := h.trainings.UpdateTraining(r.Context(), id, fields)
		if err != nil {
			if errors.Is(err, domain.ErrTrainingNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "training not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toTrainingView(*record))
	case http.MethodDelete:
		if err := h.trainings.DeleteTraining(r.Context(), id); err != nil {
			if errors.Is(err, domain.ErrTrainingNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "training not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// ownsTraining checks that the record belongs to the caller before a mutation.
func (h *Handler) ownsTraining(r *http.Request, userID, id string) (bool, error) {
	records, err := h.trainings.ListTrainings(r.Context(), userID)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	records, err := h.trainings.ListTrainings(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	params, err := h.profiles.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if params == nil {
		defaults := domain.DefaultUserParams()
		params = &defaults
	}

	goals, err := h.goals.GetGoals(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if goals == nil {
		defaults := domain.DefaultGoals()
		goals = &defaults
	}

	now := h.now()
	week := stats.CurrentWeek(records, params.WeightKg, now)
	progress := stats.Progress(*goals, week)

	buckets := stats.WeeklyBuckets(records, params.WeightKg, now)
	weekly := make([]WeekBucketView, 0, len(buckets))
	for _, b := range buckets {
		weekly = append(weekly, WeekBucketView{
			Start:   b.Start,
			Label:   b.Label,
			Minutes: b.Minutes,
			Kcal:    b.Kcal,
		})
	}

	counts := stats.CategoryCounts(records)
	categories := make(map[string]int, len(counts))
	for cat, n := range counts {
		categories[string(cat)] = n
	}

	writeJSON(w, http.StatusOK, DashboardResponse{
		Week: WeekView{
			Sessions: week.Sessions,
			Minutes:  week.Minutes,
			Kcal:     week.Kcal,
		},
		Goals: GoalProgressView{
			Sessions:        progress.Sessions,
			SessionsTarget:  progress.SessionsTarget,
			SessionsPercent: progress.SessionsPercent,
			SessionsReached: progress.SessionsReached,
			Kcal:            progress.Kcal,
			KcalTarget:      progress.KcalTarget,
			KcalPercent:     progress.KcalPercent,
			KcalReached:     progress.KcalReached,
		},
		Weekly:     weekly,
		Categories: categories,
	})
}

func (h *Handler) decodeTrainingFields(w http.ResponseWriter, r *http.Request) (domain.TrainingFields, bool) {
	var req TrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return domain.TrainingFields{}, false
	}

	fields := domain.TrainingFields{
		Category:    domain.Category(req.Category),
		Type:        req.Type,
		DurationMin: req.DurationMin,
		Date:        req.Date,
		Note:        req.Note,
	}
	if err := fields.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return domain.TrainingFields{}, false
	}
	return fields, true
}
