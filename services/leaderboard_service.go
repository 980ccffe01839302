package services

import (
	"context"
	"errors"
	"time"

	"cat-game-backend/models"

	"gorm.io/gorm"
)

const (
	defaultLeaderboardLimit = 100
	maxLeaderboardLimit     = 500
)

type LeaderboardService struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db, now: time.Now}
}

type LeaderboardEntry struct {
	Position   int64     `json:"position"`
	ProfileID  string    `json:"-"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	PhotoURL   string    `json:"photo_url"`
	Score      int64     `json:"score"`
	AchievedAt time.Time `json:"achieved_at"`
}

type Leaderboard struct {
	FailureID   string             `json:"failure_id,omitempty"`
	Failure     *models.Failure    `json:"failure,omitempty"`
	Entries     []LeaderboardEntry `json:"entries"`
	CurrentUser *LeaderboardEntry  `json:"current_user"`
}

// ClampLeaderboardLimit applies the default and the upper bound.
func ClampLeaderboardLimit(n int) int {
	switch {
	case n <= 0:
		return defaultLeaderboardLimit
	case n > maxLeaderboardLimit:
		return maxLeaderboardLimit
	}
	return n
}

// Ranked rows are numbered over the whole board; the outer filter keeps the
// top rows plus the caller's own row wherever it lands.
const rankedTail = `
	SELECT r.profile_id, u.username, u.first_name, u.last_name, p.photo_url,
		r.points AS score, r.earned_at AS achieved_at,
		ROW_NUMBER() OVER (ORDER BY r.points DESC, r.earned_at ASC) AS position
	FROM scores r
	JOIN profiles p ON p.id = r.profile_id AND p.is_banned = false
	JOIN users u ON u.id = p.user_id
`

const failureBoardQuery = `
WITH scores AS (
	SELECT profile_id, points, earned_at FROM score_entries
	WHERE failure_id = @failure AND points > 0
)
SELECT * FROM (` + rankedTail + `) ranked
WHERE position <= @limit OR profile_id = @profile
ORDER BY position`

const allTimeBoardQuery = `
WITH scores AS (
	SELECT profile_id, SUM(points) AS points, MIN(earned_at) AS earned_at FROM score_entries
	WHERE points > 0
	GROUP BY profile_id
)
SELECT * FROM (` + rankedTail + `) ranked
WHERE position <= @limit OR profile_id = @profile
ORDER BY position`

// ForFailure ranks the scores of failureID, or of the active or latest
// event when it is empty.
func (s *LeaderboardService) ForFailure(ctx context.Context, profileID, failureID string, limit int) (*Leaderboard, error) {
	db := s.DB.WithContext(ctx)

	f, err := s.boardFailure(db, failureID)
	if err != nil {
		return nil, err
	}
	board, err := s.load(db, failureBoardQuery, map[string]any{"failure": f.ID}, profileID, limit)
	if err != nil {
		return nil, err
	}
	board.FailureID = f.ID
	board.Failure = f
	return board, nil
}

// AllTime ranks profiles by the sum of their points over every event.
func (s *LeaderboardService) AllTime(ctx context.Context, profileID string, limit int) (*Leaderboard, error) {
	return s.load(s.DB.WithContext(ctx), allTimeBoardQuery, map[string]any{}, profileID, limit)
}

func (s *LeaderboardService) load(db *gorm.DB, query string, args map[string]any, profileID string, limit int) (*Leaderboard, error) {
	limit = ClampLeaderboardLimit(limit)
	args["limit"] = limit
	args["profile"] = profileID

	var rows []LeaderboardEntry
	if err := db.Raw(query, args).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return splitBoard(rows, profileID, limit), nil
}

// splitBoard separates the top entries from the caller's own row.
func splitBoard(rows []LeaderboardEntry, profileID string, limit int) *Leaderboard {
	board := &Leaderboard{Entries: make([]LeaderboardEntry, 0, len(rows))}
	for i := range rows {
		row := rows[i]
		if row.ProfileID == profileID {
			board.CurrentUser = &row
		}
		if row.Position <= int64(limit) {
			board.Entries = append(board.Entries, row)
		}
	}
	return board
}

func (s *LeaderboardService) boardFailure(db *gorm.DB, failureID string) (*models.Failure, error) {
	var f models.Failure
	if failureID != "" {
		if err := checkID("failure_id", failureID); err != nil {
			return nil, err
		}
		if err := db.Where("id = ?", failureID).First(&f).Error; err != nil {
			return nil, notFoundAs(err, NotFound("failure"))
		}
		return &f, nil
	}

	now := s.now()
	err := db.Where("(start_time IS NULL OR start_time <= ?) AND (end_time IS NULL OR end_time > ?)", now, now).
		Order("start_time DESC NULLS LAST").
		First(&f).Error
	if err == nil {
		return &f, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := db.Order("start_time DESC NULLS LAST").Order("created_at DESC").First(&f).Error; err != nil {
		return nil, notFoundAs(err, NotFound("failure"))
	}
	return &f, nil
}
