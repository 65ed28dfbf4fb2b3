package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/example/satbot/pkg/models"
)

// UserRepository handles database operations for users
type UserRepository struct{}

// NewUserRepository creates a new repository instance
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

const userColumns = `id, telegram_id, chat_id, first_name, surname, nickname, email,
	registered_at, reg_step, state, approved, banned, goal_math,
	total_points, tests_count, last_test_at, last_nudge_at,
	pref_hour, pref_minute, streak_savers, saver_awarded_date, saver_used_date, created_at`

// GetByID returns a user by internal id
func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	var user models.User
	query := DB.Rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	if err := DB.Get(&user, query, id); err != nil {
		return nil, fmt.Errorf("failed to get user by id: %v", err)
	}
	return &user, nil
}

// GetByTelegramID returns a user by telegram id, or nil if none exists
func (r *UserRepository) GetByTelegramID(telegramID int64) (*models.User, error) {
	var user models.User
	query := DB.Rebind("SELECT " + userColumns + " FROM users WHERE telegram_id = ?")
	err := DB.Get(&user, query, telegramID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by telegram id: %v", err)
	}
	return &user, nil
}

// GetOrCreate returns the user for a telegram identity, creating the row on
// first contact. Admins are auto-approved; the chat id is refreshed when it
// changed (e.g. after the user blocked and re-added the bot).
func (r *UserRepository) GetOrCreate(telegramID, chatID int64, isAdmin bool) (*models.User, error) {
	user, err := r.GetByTelegramID(telegramID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		query := DB.Rebind("INSERT INTO users (telegram_id, chat_id, reg_step, approved) VALUES (?, ?, 1, ?)")
		if _, err := DB.Exec(query, telegramID, chatID, isAdmin); err != nil {
			return nil, fmt.Errorf("failed to create user: %v", err)
		}
		return r.GetByTelegramID(telegramID)
	}

	if user.ChatID != chatID {
		query := DB.Rebind("UPDATE users SET chat_id = ? WHERE id = ?")
		if _, err := DB.Exec(query, chatID, user.ID); err != nil {
			return nil, fmt.Errorf("failed to update chat id: %v", err)
		}
		user.ChatID = chatID
	}

	// Auto-approve configured admins; registration state stays untouched
	if isAdmin && !user.Approved {
		query := DB.Rebind("UPDATE users SET approved = true WHERE id = ?")
		if _, err := DB.Exec(query, user.ID); err != nil {
			return nil, fmt.Errorf("failed to auto-approve admin: %v", err)
		}
		user.Approved = true
	}

	return user, nil
}

// SetRegistrationName stores the first name and advances to the surname step
func (r *UserRepository) SetRegistrationName(userID int64, name string) error {
	query := DB.Rebind("UPDATE users SET first_name = ?, reg_step = ? WHERE id = ?")
	_, err := DB.Exec(query, name, models.RegStepSurname, userID)
	if err != nil {
		return fmt.Errorf("failed to set first name: %v", err)
	}
	return nil
}

// SetRegistrationSurname stores the surname and advances to the nickname step
func (r *UserRepository) SetRegistrationSurname(userID int64, surname string) error {
	query := DB.Rebind("UPDATE users SET surname = ?, reg_step = ? WHERE id = ?")
	_, err := DB.Exec(query, surname, models.RegStepNickname, userID)
	if err != nil {
		return fmt.Errorf("failed to set surname: %v", err)
	}
	return nil
}

// SetRegistrationNickname stores the nickname and advances to the email step
func (r *UserRepository) SetRegistrationNickname(userID int64, nickname string) error {
	query := DB.Rebind("UPDATE users SET nickname = ?, reg_step = ? WHERE id = ?")
	_, err := DB.Exec(query, nickname, models.RegStepEmail, userID)
	if err != nil {
		return fmt.Errorf("failed to set nickname: %v", err)
	}
	return nil
}

// FinishRegistration stores the email and closes the registration state machine
func (r *UserRepository) FinishRegistration(userID int64, email string, registeredAt time.Time) error {
	query := DB.Rebind("UPDATE users SET email = ?, registered_at = ?, reg_step = ?, state = NULL WHERE id = ?")
	_, err := DB.Exec(query, email, registeredAt, models.RegStepDone, userID)
	if err != nil {
		return fmt.Errorf("failed to finish registration: %v", err)
	}
	return nil
}

// ResetRegistration puts the user back on the first registration step
func (r *UserRepository) ResetRegistration(userID int64) error {
	query := DB.Rebind("UPDATE users SET reg_step = ? WHERE id = ?")
	_, err := DB.Exec(query, models.RegStepName, userID)
	if err != nil {
		return fmt.Errorf("failed to reset registration: %v", err)
	}
	return nil
}

// SetState sets the conversational state marker ("" clears it)
func (r *UserRepository) SetState(userID int64, state string) error {
	var value interface{}
	if state != "" {
		value = state
	}
	query := DB.Rebind("UPDATE users SET state = ? WHERE id = ?")
	_, err := DB.Exec(query, value, userID)
	if err != nil {
		return fmt.Errorf("failed to set state: %v", err)
	}
	return nil
}

// Approve sets the approval flag by telegram id. Registration is
// hard-finished on approval to avoid state desync with the reg flow.
func (r *UserRepository) Approve(telegramID int64, approved bool) (*models.User, error) {
	query := DB.Rebind(`
		UPDATE users
		SET approved = ?,
		    reg_step = 0,
		    state = NULL,
		    registered_at = COALESCE(registered_at, ?)
		WHERE telegram_id = ?
	`)
	res, err := DB.Exec(query, approved, time.Now().UTC(), telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to set approval: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.GetByTelegramID(telegramID)
}

// SetBanned sets the ban flag by telegram id
func (r *UserRepository) SetBanned(telegramID int64, banned bool) (*models.User, error) {
	query := DB.Rebind("UPDATE users SET banned = ? WHERE telegram_id = ?")
	res, err := DB.Exec(query, banned, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to set ban flag: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.GetByTelegramID(telegramID)
}

// HardDelete removes a user and, via cascade, all their tests
func (r *UserRepository) HardDelete(telegramID int64) error {
	query := DB.Rebind("DELETE FROM users WHERE telegram_id = ?")
	if _, err := DB.Exec(query, telegramID); err != nil {
		return fmt.Errorf("failed to delete user: %v", err)
	}
	return nil
}

// SetGoal stores the user's target math score
func (r *UserRepository) SetGoal(userID int64, goal int) error {
	query := DB.Rebind("UPDATE users SET goal_math = ? WHERE id = ?")
	if _, err := DB.Exec(query, goal, userID); err != nil {
		return fmt.Errorf("failed to set goal: %v", err)
	}
	return nil
}

// SetPreferredTime stores the derived reminder hour/minute
func (r *UserRepository) SetPreferredTime(userID int64, hour, minute int) error {
	query := DB.Rebind("UPDATE users SET pref_hour = ?, pref_minute = ? WHERE id = ?")
	if _, err := DB.Exec(query, hour, minute, userID); err != nil {
		return fmt.Errorf("failed to set preferred time: %v", err)
	}
	return nil
}

// SetLastNudge stamps the time of the last reminder sent
func (r *UserRepository) SetLastNudge(userID int64, at time.Time) error {
	query := DB.Rebind("UPDATE users SET last_nudge_at = ? WHERE id = ?")
	if _, err := DB.Exec(query, at, userID); err != nil {
		return fmt.Errorf("failed to set last nudge: %v", err)
	}
	return nil
}

// AwardSaver grants one streak saver for the given local day. The update is
// conditional on the award date so repeated threshold crossings on the same
// day are no-ops even under concurrent delivery duplicates.
func (r *UserRepository) AwardSaver(userID int64, day string) (bool, error) {
	query := DB.Rebind(`
		UPDATE users
		SET streak_savers = streak_savers + 1, saver_awarded_date = ?
		WHERE id = ? AND (saver_awarded_date IS NULL OR saver_awarded_date <> ?)
	`)
	res, err := DB.Exec(query, day, userID, day)
	if err != nil {
		return false, fmt.Errorf("failed to award streak saver: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read award result: %v", err)
	}
	return n == 1, nil
}

// ConsumeSaver spends one streak saver to bridge the given local day. The
// update is conditional on both the balance and the use date, so a day is
// bridged at most once no matter how often the streak is re-evaluated.
func (r *UserRepository) ConsumeSaver(userID int64, day string) (bool, error) {
	query := DB.Rebind(`
		UPDATE users
		SET streak_savers = streak_savers - 1, saver_used_date = ?
		WHERE id = ? AND streak_savers > 0 AND (saver_used_date IS NULL OR saver_used_date <> ?)
	`)
	res, err := DB.Exec(query, day, userID, day)
	if err != nil {
		return false, fmt.Errorf("failed to consume streak saver: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read consume result: %v", err)
	}
	return n == 1, nil
}

// ListRecent returns the most recently created users
func (r *UserRepository) ListRecent(limit int) ([]models.User, error) {
	var users []models.User
	query := DB.Rebind("SELECT " + userColumns + " FROM users ORDER BY created_at DESC LIMIT ?")
	if err := DB.Select(&users, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list users: %v", err)
	}
	return users, nil
}

// ListAll returns every user, newest first (used by the export)
func (r *UserRepository) ListAll() ([]models.User, error) {
	var users []models.User
	query := "SELECT " + userColumns + " FROM users ORDER BY created_at DESC"
	if err := DB.Select(&users, query); err != nil {
		return nil, fmt.Errorf("failed to list all users: %v", err)
	}
	return users, nil
}

// ListPending returns registered users awaiting approval
func (r *UserRepository) ListPending(limit int) ([]models.User, error) {
	var users []models.User
	query := DB.Rebind("SELECT " + userColumns + ` FROM users
		WHERE reg_step = 0 AND approved = false AND banned = false
		ORDER BY registered_at DESC LIMIT ?`)
	if err := DB.Select(&users, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list pending users: %v", err)
	}
	return users, nil
}

// ListApprovedActive returns approved, unbanned users (broadcast and reminders)
func (r *UserRepository) ListApprovedActive() ([]models.User, error) {
	var users []models.User
	query := "SELECT " + userColumns + " FROM users WHERE approved = true AND banned = false"
	if err := DB.Select(&users, query); err != nil {
		return nil, fmt.Errorf("failed to list approved users: %v", err)
	}
	return users, nil
}

// ListInactive returns approved users whose last test is older than the cutoff
func (r *UserRepository) ListInactive(cutoff time.Time, limit int) ([]models.User, error) {
	var users []models.User
	query := DB.Rebind("SELECT " + userColumns + ` FROM users
		WHERE approved = true AND banned = false AND (last_test_at IS NULL OR last_test_at < ?)
		ORDER BY last_test_at NULLS FIRST LIMIT ?`)
	if err := DB.Select(&users, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to list inactive users: %v", err)
	}
	return users, nil
}

// CountByCondition returns the number of users matching a fixed condition
func (r *UserRepository) CountByCondition(condition string) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM users WHERE " + condition
	if err := DB.Get(&count, query); err != nil {
		return 0, fmt.Errorf("failed to count users: %v", err)
	}
	return count, nil
}
