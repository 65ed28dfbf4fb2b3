package export

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"testing"
	"time"

	"github.com/example/satbot/pkg/models"
)

func sampleUsers() []models.User {
	return []models.User{
		{
			TelegramID:   111,
			FirstName:    sql.NullString{String: "Ada", Valid: true},
			Surname:      sql.NullString{String: "Lovelace", Valid: true},
			Nickname:     sql.NullString{String: "ada", Valid: true},
			Email:        sql.NullString{String: "ada@example.com", Valid: true},
			Approved:     true,
			TestsCount:   12,
			TotalPoints:  360,
			GoalMath:     sql.NullInt64{Int64: 40, Valid: true},
			StreakSavers: 2,
			LastTestAt:   sql.NullTime{Time: time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC), Valid: true},
		},
		{TelegramID: 222, Banned: true},
	}
}

func TestBuildCSV(t *testing.T) {
	data, err := BuildCSV(sampleUsers())
	if err != nil {
		t.Fatalf("build csv: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "telegram_id" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][0] != "111" || records[1][9] != "40" || records[1][11] != "2026-03-09T18:00:00Z" {
		t.Fatalf("unexpected first row: %v", records[1])
	}
	// Optional fields stay empty, not zero
	if records[2][9] != "" || records[2][11] != "" {
		t.Fatalf("expected empty goal and last test for second row: %v", records[2])
	}
}

func TestBuildXLSX(t *testing.T) {
	data, err := BuildXLSX(sampleUsers())
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected workbook bytes")
	}
	// XLSX files are zip archives
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatalf("expected zip magic, got %v", data[:4])
	}
}
