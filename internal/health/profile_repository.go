package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrProfileNotFound is returned when a user has not stored a profile yet.
var ErrProfileNotFound = errors.New("profile not found")

// StoredProfile is a user's last saved profile and goal text.
type StoredProfile struct {
	UserID    string    `json:"user_id"`
	Profile   Profile   `json:"profile"`
	GoalText  string    `json:"goal_text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileRepository persists one profile per user.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Save upserts the profile and goal text of userID.
func (r *ProfileRepository) Save(ctx context.Context, userID string, p Profile, goalText string) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, profile_json, goal_text, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   profile_json = excluded.profile_json,
		   goal_text = excluded.goal_text,
		   updated_at = excluded.updated_at`,
		userID, string(data), goalText, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile for user %s: %w", userID, err)
	}
	return nil
}

// Get loads the stored profile of userID.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (StoredProfile, error) {
	var raw string
	var sp StoredProfile
	var updated int64
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, profile_json, goal_text, updated_at FROM profiles WHERE user_id = ?`,
		userID,
	).Scan(&sp.UserID, &raw, &sp.GoalText, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredProfile{}, ErrProfileNotFound
	}
	if err != nil {
		return StoredProfile{}, fmt.Errorf("failed to load profile for user %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(raw), &sp.Profile); err != nil {
		return StoredProfile{}, fmt.Errorf("failed to decode profile for user %s: %w", userID, err)
	}
	sp.UpdatedAt = time.Unix(updated, 0).UTC()
	return sp, nil
}

// UpdateBloodReport replaces the blood report text of an existing profile,
// creating an empty profile when none exists.
func (r *ProfileRepository) UpdateBloodReport(ctx context.Context, userID, report string) error {
	sp, err := r.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return err
	}
	sp.Profile.BloodReport = report
	return r.Save(ctx, userID, sp.Profile, sp.GoalText)
}
