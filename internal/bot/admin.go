package bot

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/satbot/internal/export"
	"github.com/example/satbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	pendingListSize  = 20
	userListSize     = 30
	inactiveDaysDef  = 7
	improverMinTests = 6
	improverListSize = 10
	improverLookback = 12
)

func adminHelpText() string {
	return "👨‍🏫 Teacher commands\n\n" +
		"/pending — registrations waiting for approval\n" +
		"/approve <telegram_id> — approve a student\n" +
		"/reject <telegram_id> — reject a student\n" +
		"/users — recently registered users\n" +
		"/inactive [days] — students with no tests lately\n" +
		"/improvers — who improved the most recently\n" +
		"/dashboard — class overview\n" +
		"/broadcast [text] — message every approved student\n" +
		"/add <telegram_id> <score> — log a score for a student\n" +
		"/deltest <test_id> — remove a logged test\n" +
		"/ban <telegram_id> / /unban <telegram_id>\n" +
		"/delete <telegram_id> — remove a user and their tests\n" +
		"/exportcsv, /exportxlsx — download the user list"
}

// handleAdminCommand handles teacher-only commands
func (b *Bot) handleAdminCommand(admin *models.User, command, args string) {
	switch command {
	case "pending":
		b.showPending(admin.ChatID)
	case "approve":
		b.handleApprovalCommand(admin, args, true)
	case "reject":
		b.handleApprovalCommand(admin, args, false)
	case "users":
		b.showUsers(admin.ChatID)
	case "inactive":
		b.showInactive(admin.ChatID, args)
	case "improvers":
		b.showImprovers(admin.ChatID)
	case "dashboard":
		b.showDashboard(admin.ChatID)
	case "broadcast":
		if args != "" {
			b.broadcast(admin.ChatID, args)
			return
		}
		if err := b.userRepo.SetState(admin.ID, stateAwaitingBroadcast); err != nil {
			log.Printf("Error setting broadcast state: %v", err)
			return
		}
		b.replyPlain(admin.ChatID, "Send the broadcast text (it goes to every approved student).")
	case "add":
		b.handleAdminAdd(admin, args)
	case "deltest":
		b.handleDeleteTest(admin.ChatID, args)
	case "ban":
		b.handleBanCommand(admin.ChatID, args, true)
	case "unban":
		b.handleBanCommand(admin.ChatID, args, false)
	case "delete":
		b.handleDeleteUser(admin.ChatID, args)
	case "exportcsv":
		b.handleExport(admin.ChatID, false)
	case "exportxlsx":
		b.handleExport(admin.ChatID, true)
	default:
		b.reply(admin.ChatID, "Unknown command. Use /help to see what I can do.")
	}
}

func (b *Bot) showPending(chatID int64) {
	users, err := b.userRepo.ListPending(pendingListSize)
	if err != nil {
		log.Printf("Error listing pending users: %v", err)
		b.reply(chatID, "⚠️ Server error, try again.")
		return
	}
	if len(users) == 0 {
		b.reply(chatID, "No registrations waiting for approval.")
		return
	}
	lines := []string{"⏳ Waiting for approval:"}
	for i := range users {
		u := &users[i]
		email := "-"
		if u.Email.Valid {
			email = u.Email.String
		}
		lines = append(lines, fmt.Sprintf("• %s (%s) — /approve %d", u.DisplayName(), email, u.TelegramID))
	}
	b.reply(chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handleApprovalCommand(admin *models.User, args string, approved bool) {
	telegramID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		b.reply(admin.ChatID, "Usage: /approve <telegram_id> or /reject <telegram_id>")
		return
	}
	b.approveUser(admin.TelegramID, telegramID, approved)
	if approved {
		b.reply(admin.ChatID, fmt.Sprintf("✅ Approved %d.", telegramID))
	} else {
		b.reply(admin.ChatID, fmt.Sprintf("⛔ Rejected %d.", telegramID))
	}
}

// approveUser flips a student's approval and tells them about it
func (b *Bot) approveUser(adminTelegramID, telegramID int64, approved bool) {
	user, err := b.userRepo.Approve(telegramID, approved)
	if err != nil {
		log.Printf("Error setting approval for %d by admin %d: %v", telegramID, adminTelegramID, err)
		return
	}
	if user == nil {
		return
	}
	if approved {
		b.reply(user.ChatID, fmt.Sprintf("🎉 You’re approved, %s! Log your first Math score below.", user.DisplayName()))
	} else {
		b.replyRemoveKeyboard(user.ChatID, "❌ Your registration was not approved. Contact your teacher.")
	}
}

func (b *Bot) showUsers(chatID int64) {
	users, err := b.userRepo.ListRecent(userListSize)
	if err != nil {
		log.Printf("Error listing users: %v", err)
		b.reply(chatID, "⚠️ Server error, try again.")
		return
	}
	if len(users) == 0 {
		b.reply(chatID, "No users yet.")
		return
	}
	lines := []string{fmt.Sprintf("👥 Last %d users:", len(users))}
	for i := range users {
		u := &users[i]
		status := "⏳"
		switch {
		case u.Banned:
			status = "🚫"
		case u.Approved:
			status = "✅"
		}
		lines = append(lines, fmt.Sprintf("%s %s — id %d, %d tests, %d pts",
			status, u.DisplayName(), u.TelegramID, u.TestsCount, u.TotalPoints))
	}
	b.reply(chatID, strings.Join(lines, "\n"))
}

// parseInactiveDays reads the optional day-count argument of /inactive
func parseInactiveDays(args string) int {
	if n, err := strconv.Atoi(args); err == nil && n > 0 {
		return n
	}
	return inactiveDaysDef
}

func (b *Bot) showInactive(chatID int64, args string) {
	days := parseInactiveDays(args)
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	users, err := b.userRepo.ListInactive(cutoff, userListSize)
	if err != nil {
		log.Printf("Error listing inactive users: %v", err)
		b.reply(chatID, "⚠️ Server error, try again.")
		return
	}
	if len(users) == 0 {
		b.reply(chatID, fmt.Sprintf("Everyone logged something in the last %d day(s) 🎉", days))
		return
	}
	lines := []string{fmt.Sprintf("😴 No tests in %d day(s):", days)}
	for i := range users {
		u := &users[i]
		last := "never"
		if u.LastTestAt.Valid {
			last = u.LastTestAt.Time.In(b.cfg.Location).Format("Jan 2")
		}
		lines = append(lines, fmt.Sprintf("• %s — last test: %s", u.DisplayName(), last))
	}
	b.reply(chatID, strings.Join(lines, "\n"))
}

// improverDelta compares the average of the last 3 scores against the 3
// before them. Scores are newest first. Returns false with fewer than 6.
func improverDelta(scores []int) (float64, bool) {
	if len(scores) < improverMinTests {
		return 0, false
	}
	recent := float64(scores[0]+scores[1]+scores[2]) / 3
	earlier := float64(scores[3]+scores[4]+scores[5]) / 3
	return recent - earlier, true
}

type improverEntry struct {
	name  string
	delta float64
}

// improverBoard sorts entries by improvement and formats the top of the list
func improverBoard(entries []improverEntry) string {
	sort.Slice(entries, func(i, j int) bool { return entries[i].delta > entries[j].delta })
	if len(entries) > improverListSize {
		entries = entries[:improverListSize]
	}
	lines := []string{"📈 Top improvers (last 3 tests vs the 3 before):"}
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf("%d. %s — %+.1f points", i+1, e.name, e.delta))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) showImprovers(chatID int64) {
	users, err := b.userRepo.ListApprovedActive()
	if err != nil {
		log.Printf("Error listing users for improvers: %v", err)
		b.reply(chatID, "⚠️ Server error, try again.")
		return
	}

	var entries []improverEntry
	for i := range users {
		u := &users[i]
		tests, err := b.testRepo.Recent(u.ID, improverLookback)
		if err != nil {
			log.Printf("Error reading tests for user %d: %v", u.ID, err)
			continue
		}
		scores := make([]int, len(tests))
		for j, t := range tests {
			scores[j] = t.MathScore
		}
		if delta, ok := improverDelta(scores); ok {
			entries = append(entries, improverEntry{name: u.DisplayName(), delta: delta})
		}
	}
	if len(entries) == 0 {
		b.reply(chatID, "Not enough data yet — students need at least 6 tests.")
		return
	}

	b.reply(chatID, improverBoard(entries))
}

func (b *Bot) showDashboard(chatID int64) {
	total, err := b.userRepo.CountByCondition("1=1")
	if err != nil {
		log.Printf("Error counting users: %v", err)
		b.reply(chatID, "⚠️ Server error, try again.")
		return
	}
	approved, _ := b.userRepo.CountByCondition("approved = true AND banned = false")
	pending, _ := b.userRepo.CountByCondition("approved = false AND banned = false AND reg_step = 0")
	banned, _ := b.userRepo.CountByCondition("banned = true")

	from, to := b.engine.DayBounds()
	rows, err := b.lbRepo.Daily(from, to, 1000)
	if err != nil {
		log.Printf("Error loading today's activity: %v", err)
		b.reply(chatID, "⚠️ Server error, try again.")
		return
	}
	testsToday, pointsToday := 0, int64(0)
	for _, row := range rows {
		testsToday += row.Tests
		pointsToday += row.Points
	}

	b.reply(chatID, fmt.Sprintf(
		"📋 Dashboard\n\n"+
			"Users: %d (✅ %d approved, ⏳ %d pending, 🚫 %d banned)\n"+
			"Today: %d tests, %d points, %d active students",
		total, approved, pending, banned, testsToday, pointsToday, len(rows)))
}

func (b *Bot) handleBroadcastInput(admin *models.User, text string) {
	if err := b.userRepo.SetState(admin.ID, ""); err != nil {
		log.Printf("Error clearing broadcast state: %v", err)
	}
	b.broadcast(admin.ChatID, text)
}

func (b *Bot) broadcast(adminChatID int64, text string) {
	users, err := b.userRepo.ListApprovedActive()
	if err != nil {
		log.Printf("Error listing users for broadcast: %v", err)
		b.reply(adminChatID, "⚠️ Server error, try again.")
		return
	}
	sent := 0
	for i := range users {
		if users[i].ChatID == adminChatID {
			continue
		}
		if b.replyPlain(users[i].ChatID, "📣 "+text) == nil {
			sent++
		}
	}
	b.reply(adminChatID, fmt.Sprintf("📣 Broadcast sent to %d student(s).", sent))
}

// handleAdminAdd records a score on a student's behalf, skipping rate limits
func (b *Bot) handleAdminAdd(admin *models.User, args string) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		b.reply(admin.ChatID, "Usage: /add <telegram_id> <score>")
		return
	}
	telegramID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		b.reply(admin.ChatID, "Usage: /add <telegram_id> <score>")
		return
	}
	score, err := strconv.Atoi(parts[1])
	if err != nil || score < models.MinMathScore || score > models.MaxMathScore {
		b.reply(admin.ChatID, fmt.Sprintf("Score must be between %d and %d.", models.MinMathScore, models.MaxMathScore))
		return
	}

	student, err := b.userRepo.GetByTelegramID(telegramID)
	if err != nil {
		log.Printf("Error loading student %d: %v", telegramID, err)
		b.reply(admin.ChatID, "⚠️ Server error, try again.")
		return
	}
	if student == nil {
		b.reply(admin.ChatID, fmt.Sprintf("No user with telegram id %d.", telegramID))
		return
	}

	adminID := admin.ID
	testID, err := b.testRepo.Insert(student.ID, score, &adminID)
	if err != nil {
		log.Printf("Error inserting admin test for user %d: %v", student.ID, err)
		b.reply(admin.ChatID, "⚠️ Server error, try again.")
		return
	}
	b.reply(admin.ChatID, fmt.Sprintf("✅ Recorded %d/%d for %s (test #%d).",
		score, models.MaxMathScore, student.DisplayName(), testID))
	b.replyPlain(student.ChatID, fmt.Sprintf("ℹ️ Your teacher logged a score for you: %d/%d.", score, models.MaxMathScore))
}

func (b *Bot) handleDeleteTest(chatID int64, args string) {
	testID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		b.reply(chatID, "Usage: /deltest <test_id>")
		return
	}
	ownerID, err := b.testRepo.RemoveByID(testID)
	if err != nil {
		log.Printf("Error removing test %d: %v", testID, err)
		b.reply(chatID, "⚠️ Server error, try again.")
		return
	}
	if ownerID == 0 {
		b.reply(chatID, fmt.Sprintf("No test with id %d.", testID))
		return
	}
	b.reply(chatID, fmt.Sprintf("🗑 Test %d removed, totals updated.", testID))
}

func (b *Bot) handleBanCommand(chatID int64, args string, banned bool) {
	telegramID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		b.reply(chatID, "Usage: /ban <telegram_id> or /unban <telegram_id>")
		return
	}
	user, err := b.userRepo.SetBanned(telegramID, banned)
	if err != nil {
		log.Printf("Error setting ban for %d: %v", telegramID, err)
		b.reply(chatID, "⚠️ Server error, try again.")
		return
	}
	if user == nil {
		b.reply(chatID, fmt.Sprintf("No user with telegram id %d.", telegramID))
		return
	}
	if banned {
		b.reply(chatID, fmt.Sprintf("🚫 Banned %s.", user.DisplayName()))
	} else {
		b.reply(chatID, fmt.Sprintf("✅ Unbanned %s.", user.DisplayName()))
		b.reply(user.ChatID, "✅ Your access has been restored.")
	}
}

func (b *Bot) handleDeleteUser(chatID int64, args string) {
	telegramID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		b.reply(chatID, "Usage: /delete <telegram_id>")
		return
	}
	if err := b.userRepo.HardDelete(telegramID); err != nil {
		log.Printf("Error deleting user %d: %v", telegramID, err)
		b.reply(chatID, "⚠️ Server error, try again.")
		return
	}
	b.reply(chatID, fmt.Sprintf("🗑 User %d and their tests were removed.", telegramID))
}

// handleExport sends the full user list as a CSV or XLSX document
func (b *Bot) handleExport(chatID int64, xlsx bool) {
	users, err := b.userRepo.ListAll()
	if err != nil {
		log.Printf("Error listing users for export: %v", err)
		b.reply(chatID, "⚠️ Server error, try again.")
		return
	}

	var data []byte
	var name string
	if xlsx {
		data, err = export.BuildXLSX(users)
		name = fmt.Sprintf("users_%s.xlsx", time.Now().Format("2006-01-02"))
	} else {
		data, err = export.BuildCSV(users)
		name = fmt.Sprintf("users_%s.csv", time.Now().Format("2006-01-02"))
	}
	if err != nil {
		log.Printf("Error building export: %v", err)
		b.reply(chatID, "⚠️ Server error, try again.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = fmt.Sprintf("👥 %d users", len(users))
	if _, err := b.api.Send(doc); err != nil {
		log.Printf("Error sending export document: %v", err)
	}
}
