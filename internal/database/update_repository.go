package database

import "fmt"

// UpdateRepository deduplicates incoming webhook deliveries
type UpdateRepository struct{}

// NewUpdateRepository creates a new repository instance
func NewUpdateRepository() *UpdateRepository {
	return &UpdateRepository{}
}

// MarkProcessed records an update id. Returns true when the id was newly
// inserted (process the update) and false when it was seen before (skip it).
func (r *UpdateRepository) MarkProcessed(updateID int64) (bool, error) {
	query := DB.Rebind("INSERT INTO processed_updates (update_id) VALUES (?) ON CONFLICT (update_id) DO NOTHING")
	res, err := DB.Exec(query, updateID)
	if err != nil {
		return false, fmt.Errorf("failed to mark update processed: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read dedup result: %v", err)
	}
	return n == 1, nil
}
