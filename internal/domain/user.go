package domain

import "errors"

var (
	// ErrEmailTaken is returned when signing up with an already-registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidEmail is returned for malformed email addresses.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrPasswordTooShort is returned for passwords under 8 characters.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	// ErrInvalidCredentials is returned on sign-in with a bad email or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Session identifies the authenticated actor. Absence of a session gates all
// protected operations.
type Session struct {
	UserID string
	Email  string
}

// UserParams holds the per-user physiological inputs used for calorie estimates.
type UserParams struct {
	WeightKg  float64
	HeightCm  float64
	Age       int
	FirstName string
	LastName  string
}

// Goals holds the per-user weekly targets. They are compared against computed
// weekly aggregates, never enforced.
type Goals struct {
	WeeklySessions int
	WeeklyCalories float64
}

// DefaultUserParams returns the parameters applied when a user has no stored profile.
func DefaultUserParams() UserParams {
	return UserParams{WeightKg: 70, HeightCm: 175, Age: 25}
}

// DefaultGoals returns the targets applied when a user has no stored goals.
func DefaultGoals() Goals {
	return Goals{WeeklySessions: 3, WeeklyCalories: 2000}
}
