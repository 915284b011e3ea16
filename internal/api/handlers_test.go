package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Mehdi-code-93/fitrun/internal/accounts"
	"github.com/Mehdi-code-93/fitrun/internal/auth"
	"github.com/Mehdi-code-93/fitrun/internal/backend/memory"
	"github.com/Mehdi-code-93/fitrun/internal/domain"
)

func newTestHandler(now func() time.Time) (*Handler, *memory.Repository, *accounts.Service) {
	repo := memory.NewRepository()
	accts := accounts.NewService(auth.Config{Secret: "test-secret", Issuer: "fitrun-test"})
	handler := NewHandler(HandlerConfig{
		Auth:      accts,
		Profiles:  repo,
		Goals:     repo,
		Trainings: repo,
		Now:       now,
	})
	return handler, repo, accts
}

func authedRequest(method, target string, body string, userID string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	claims := &auth.Claims{
		UserID:    userID,
		Email:     userID + "@example.com",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func TestSignupAndDuplicate(t *testing.T) {
	handler, _, _ := newTestHandler(nil)

	body := `{"email":"ana@example.com","password":"motdepasse"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.signup(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp SessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.UserID == "" {
		t.Fatal("expected a user id")
	}
	if resp.Email != "ana@example.com" {
		t.Fatalf("unexpected email %s", resp.Email)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/auth/signup", strings.NewReader(body))
	rr = httptest.NewRecorder()
	handler.signup(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rr.Code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	handler, _, accts := newTestHandler(nil)
	if _, err := accts.SignUp(context.Background(), "ana@example.com", "motdepasse"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"email":"ana@example.com","password":"wrongwrong"}`))
	rr := httptest.NewRecorder()
	handler.login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestLoginReturnsToken(t *testing.T) {
	handler, _, accts := newTestHandler(nil)
	if _, err := accts.SignUp(context.Background(), "ana@example.com", "motdepasse"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"email":"ana@example.com","password":"motdepasse"}`))
	rr := httptest.NewRecorder()
	handler.login(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp SessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a session token")
	}
}

func TestTrainingsRequireClaims(t *testing.T) {
	handler, _, _ := newTestHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/trainings", nil)
	rr := httptest.NewRecorder()
	handler.trainingsEndpoint(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestCreateAndListTrainings(t *testing.T) {
	handler, _, _ := newTestHandler(nil)

	body := `{"category":"cardio","type":"course","duration_min":45,"date":"2026-03-02T00:00:00Z"}`
	req := authedRequest(http.MethodPost, "/v1/trainings", body, "user-1")
	rr := httptest.NewRecorder()
	handler.trainingsEndpoint(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var created TrainingView
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected an assigned id")
	}

	req = authedRequest(http.MethodGet, "/v1/trainings", "", "user-1")
	rr = httptest.NewRecorder()
	handler.trainingsEndpoint(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	var list ListTrainingsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 item got %d", len(list.Items))
	}
	if list.Items[0].ID != created.ID {
		t.Fatalf("unexpected id %s", list.Items[0].ID)
	}
}

func TestCreateTrainingRejectsUnknownCategory(t *testing.T) {
	handler, _, _ := newTestHandler(nil)

	body := `{"category":"escalade","type":"bloc","duration_min":45,"date":"2026-03-02T00:00:00Z"}`
	req := authedRequest(http.MethodPost, "/v1/trainings", body, "user-1")
	rr := httptest.NewRecorder()
	handler.trainingsEndpoint(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestUpdateForeignTrainingNotFound(t *testing.T) {
	handler, repo, _ := newTestHandler(nil)

	record, err := repo.InsertTraining(context.Background(), "owner", domain.TrainingFields{
		Category:    domain.CategoryYoga,
		Type:        "vinyasa",
		DurationMin: 30,
		Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	body := `{"category":"yoga","type":"hatha","duration_min":60,"date":"2026-03-02T00:00:00Z"}`
	req := authedRequest(http.MethodPut, "/v1/trainings/"+record.ID, body, "intruder")
	rr := httptest.NewRecorder()
	handler.trainingByID(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestDeleteTraining(t *testing.T) {
	handler, repo, _ := newTestHandler(nil)

	record, err := repo.InsertTraining(context.Background(), "user-1", domain.TrainingFields{
		Category:    domain.CategoryCardio,
		Type:        "course",
		DurationMin: 30,
		Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	req := authedRequest(http.MethodDelete, "/v1/trainings/"+record.ID, "", "user-1")
	rr := httptest.NewRecorder()
	handler.trainingByID(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}

	remaining, err := repo.ListTrainings(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty list got %d", len(remaining))
	}
}

func TestProfileDefaultsWhenUnset(t *testing.T) {
	handler, _, _ := newTestHandler(nil)

	req := authedRequest(http.MethodGet, "/v1/profile", "", "user-1")
	rr := httptest.NewRecorder()
	handler.profile(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	var resp ProfileView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.WeightKg != 70 || resp.HeightCm != 175 || resp.Age != 25 {
		t.Fatalf("unexpected defaults %+v", resp)
	}
}

func TestLogoutRevokesTokenForProtectedRoutes(t *testing.T) {
	handler, _, accts := newTestHandler(nil)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	cfg := auth.Config{Secret: "test-secret", Issuer: "fitrun-test"}
	sessions := func(ctx context.Context, token string) (bool, error) {
		session, err := accts.CurrentSession(ctx, token)
		if err != nil {
			return false, err
		}
		return session != nil, nil
	}
	wrapped := auth.NewMiddleware(cfg, func(r *http.Request) bool {
		return strings.HasPrefix(r.URL.Path, "/v1/auth/")
	}, sessions).Wrap(mux)

	if _, err := accts.SignUp(context.Background(), "ana@example.com", "motdepasse"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	_, token, err := accts.SignIn(context.Background(), "ana@example.com", "motdepasse")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 before logout got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}

	// The signature is still valid until expiry; revocation must gate access.
	req = httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout got %d", rr.Code)
	}
}

func TestDashboardComputesWeekAndProgress(t *testing.T) {
	// A Friday; the containing week starts Monday March 2nd.
	now := time.Date(2026, 3, 6, 18, 0, 0, 0, time.UTC)
	handler, repo, _ := newTestHandler(func() time.Time { return now })

	// 60 cardio minutes at the default 70 kg is 700 kcal.
	if _, err := repo.InsertTraining(context.Background(), "user-1", domain.TrainingFields{
		Category:    domain.CategoryCardio,
		Type:        "course",
		DurationMin: 60,
		Date:        time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Previous week, excluded from the current summary.
	if _, err := repo.InsertTraining(context.Background(), "user-1", domain.TrainingFields{
		Category:    domain.CategoryYoga,
		Type:        "hatha",
		DurationMin: 30,
		Date:        time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	req := authedRequest(http.MethodGet, "/v1/dashboard", "", "user-1")
	rr := httptest.NewRecorder()
	handler.dashboard(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp DashboardResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Week.Sessions != 1 {
		t.Fatalf("expected 1 session got %d", resp.Week.Sessions)
	}
	if resp.Week.Kcal != 700 {
		t.Fatalf("expected 700 kcal got %f", resp.Week.Kcal)
	}
	if resp.Goals.SessionsTarget != 3 || resp.Goals.SessionsReached {
		t.Fatalf("unexpected sessions progress %+v", resp.Goals)
	}
	if len(resp.Weekly) != 8 {
		t.Fatalf("expected 8 weekly buckets got %d", len(resp.Weekly))
	}
	if resp.Weekly[7].Minutes != 60 {
		t.Fatalf("expected 60 minutes in the newest bucket got %d", resp.Weekly[7].Minutes)
	}
	if resp.Categories["cardio"] != 1 || resp.Categories["yoga"] != 1 {
		t.Fatalf("unexpected category counts %v", resp.Categories)
	}
}
