// Package export renders the users summary as CSV or XLSX for admins.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/example/satbot/pkg/models"
	"github.com/xuri/excelize/v2"
)

var header = []string{
	"telegram_id", "first_name", "surname", "nickname", "email",
	"approved", "banned", "tests_count", "total_points",
	"goal_math", "streak_savers", "last_test_at",
}

// row flattens one user into export cells
func row(u *models.User) []string {
	goal := ""
	if u.GoalMath.Valid {
		goal = strconv.FormatInt(u.GoalMath.Int64, 10)
	}
	lastTest := ""
	if u.LastTestAt.Valid {
		lastTest = u.LastTestAt.Time.UTC().Format(time.RFC3339)
	}
	return []string{
		strconv.FormatInt(u.TelegramID, 10),
		u.FirstName.String,
		u.Surname.String,
		u.Nickname.String,
		u.Email.String,
		strconv.FormatBool(u.Approved),
		strconv.FormatBool(u.Banned),
		strconv.Itoa(u.TestsCount),
		strconv.FormatInt(u.TotalPoints, 10),
		goal,
		strconv.Itoa(u.StreakSavers),
		lastTest,
	}
}

// BuildCSV renders the users summary as CSV bytes
func BuildCSV(users []models.User) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %v", err)
	}
	for i := range users {
		if err := w.Write(row(&users[i])); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %v", err)
	}
	return buf.Bytes(), nil
}

// BuildXLSX renders the users summary as an Excel workbook
func BuildXLSX(users []models.User) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Users"
	f.SetSheetName("Sheet1", sheet)

	for col, name := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute header cell: %v", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return nil, fmt.Errorf("failed to write header cell: %v", err)
		}
	}

	for i := range users {
		cells := row(&users[i])
		for col, value := range cells {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("failed to compute cell: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write cell: %v", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %v", err)
	}
	return buf.Bytes(), nil
}
