package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Mehdi-code-93/fitrun/internal/domain"
)

// CredentialsRequest is the payload for signup and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate ensures request correctness.
func (r CredentialsRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// SessionResponse describes an authenticated session. Token is only present
// after login.
type SessionResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token,omitempty"`
}

// ProfileRequest is the payload for PUT /v1/profile.
type ProfileRequest struct {
	WeightKg  float64 `json:"weight_kg"`
	HeightCm  float64 `json:"height_cm"`
	Age       int     `json:"age"`
	FirstName string  `json:"first_name,omitempty"`
	LastName  string  `json:"last_name,omitempty"`
}

// Validate ensures request correctness.
func (r ProfileRequest) Validate() error {
	if r.WeightKg <= 0 {
		return errors.New("weight_kg must be > 0")
	}
	if r.HeightCm <= 0 {
		return errors.New("height_cm must be > 0")
	}
	if r.Age <= 0 {
		return errors.New("age must be > 0")
	}
	return nil
}

func (r ProfileRequest) toParams() domain.UserParams {
	return domain.UserParams{
		WeightKg:  r.WeightKg,
		HeightCm:  r.HeightCm,
		Age:       r.Age,
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
	}
}

// ProfileView mirrors the stored user parameters.
type ProfileView struct {
	WeightKg  float64 `json:"weight_kg"`
	HeightCm  float64 `json:"height_cm"`
	Age       int     `json:"age"`
	FirstName string  `json:"first_name,omitempty"`
	LastName  string  `json:"last_name,omitempty"`
}

// GoalsRequest is the payload for PUT /v1/goals.
type GoalsRequest struct {
	WeeklySessions int     `json:"weekly_sessions"`
	WeeklyCalories float64 `json:"weekly_calories"`
}

// Validate ensures request correctness.
func (r GoalsRequest) Validate() error {
	if r.WeeklySessions < 0 {
		return errors.New("weekly_sessions must be >= 0")
	}
	if r.WeeklyCalories < 0 {
		return errors.New("weekly_calories must be >= 0")
	}
	return nil
}

// GoalsView mirrors the stored weekly targets.
type GoalsView struct {
	WeeklySessions int     `json:"weekly_sessions"`
	WeeklyCalories float64 `json:"weekly_calories"`
}

// TrainingRequest is the payload for creating or replacing a training.
type TrainingRequest struct {
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	DurationMin int       `json:"duration_min"`
	Date        time.Time `json:"date"`
	Note        string    `json:"note,omitempty"`
}

// TrainingView exposes one stored training record.
type TrainingView struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	DurationMin int       `json:"duration_min"`
	Date        time.Time `json:"date"`
	Note        string    `json:"note,omitempty"`
}

// ListTrainingsResponse packages list results, newest first.
type ListTrainingsResponse struct {
	Items []TrainingView `json:"items"`
}

// WeekView aggregates the current calendar week.
type WeekView struct {
	Sessions int     `json:"sessions"`
	Minutes  int     `json:"minutes"`
	Kcal     float64 `json:"kcal"`
}

// GoalProgressView compares the current week against the weekly targets.
type GoalProgressView struct {
	Sessions        int     `json:"sessions"`
	SessionsTarget  int     `json:"sessions_target"`
	SessionsPercent float64 `json:"sessions_percent"`
	SessionsReached bool    `json:"sessions_reached"`
	Kcal            float64 `json:"kcal"`
	KcalTarget      float64 `json:"kcal_target"`
	KcalPercent     float64 `json:"kcal_percent"`
	KcalReached     bool    `json:"kcal_reached"`
}

// WeekBucketView is one trailing-week histogram bar.
type WeekBucketView struct {
	Start   time.Time `json:"start"`
	Label   string    `json:"label"`
	Minutes int       `json:"minutes"`
	Kcal    float64   `json:"kcal"`
}

// DashboardResponse merges the weekly summary, goal progress, the trailing
// eight-week histogram, and per-category counts.
type DashboardResponse struct {
	Week       WeekView         `json:"week"`
	Goals      GoalProgressView `json:"goals"`
	Weekly     []WeekBucketView `json:"weekly"`
	Categories map[string]int   `json:"categories"`
}

func toProfileView(p domain.UserParams) ProfileView {
	return ProfileView{
		WeightKg:  p.WeightKg,
		HeightCm:  p.HeightCm,
		Age:       p.Age,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}
}

func toTrainingView(r domain.TrainingRecord) TrainingView {
	return TrainingView{
		ID:          r.ID,
		Category:    string(r.Category),
		Type:        r.Type,
		DurationMin: r.DurationMin,
		Date:        r.Date,
		Note:        r.Note,
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
