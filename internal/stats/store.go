package stats

import (
	"time"

	"github.com/example/satbot/internal/database"
)

// dbStore implements Store on top of the database repositories
type dbStore struct {
	users *database.UserRepository
	tests *database.TestRepository
}

// NewStore creates the production Store backed by the database
func NewStore() Store {
	return &dbStore{
		users: database.NewUserRepository(),
		tests: database.NewTestRepository(),
	}
}

func (s *dbStore) EventTimes(userID int64) ([]time.Time, error) {
	return s.tests.Timestamps(userID)
}

func (s *dbStore) RecentScores(userID int64, limit int) ([]ScorePoint, error) {
	tests, err := s.tests.Recent(userID, limit)
	if err != nil {
		return nil, err
	}
	points := make([]ScorePoint, 0, len(tests))
	for _, t := range tests {
		points = append(points, ScorePoint{At: t.CreatedAt, Score: t.MathScore})
	}
	return points, nil
}

func (s *dbStore) CountBetween(userID int64, from, to time.Time) (int, error) {
	return s.tests.CountInRange(userID, from, to)
}

func (s *dbStore) SaverBalance(userID int64) (int, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return 0, err
	}
	return user.StreakSavers, nil
}

func (s *dbStore) AwardSaver(userID int64, day string) (bool, error) {
	return s.users.AwardSaver(userID, day)
}

func (s *dbStore) ConsumeSaver(userID int64, day string) (bool, error) {
	return s.users.ConsumeSaver(userID, day)
}

func (s *dbStore) SaverUsedOn(userID int64, day string) (bool, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return false, err
	}
	return user.SaverUsedDate.Valid && user.SaverUsedDate.String == day, nil
}
