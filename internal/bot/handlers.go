package bot

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/example/satbot/internal/config"
	"github.com/example/satbot/internal/stats"
	"github.com/example/satbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Main menu button labels
const (
	buttonRecordScore   = "📝 Record Math Score"
	buttonMyStats       = "📊 My Stats"
	buttonDailyBoard    = "🏆 Daily Leaderboard"
	buttonLifetimeBoard = "🏆 Lifetime Leaderboard"
	buttonSetGoal       = "🎯 Set Goal"
	buttonHelp          = "❓ Help"
)

const leaderboardSize = 10

// handleUpdate dispatches one incoming update
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic while handling update %d: %v", update.UpdateID, r)
		}
	}()

	if update.CallbackQuery != nil {
		b.handleCallbackQuery(update.CallbackQuery)
		return
	}

	message := update.Message
	if message == nil || message.From == nil || message.Chat == nil {
		return
	}
	// DM-only bot: ignore groups, channels and other bots
	if !message.Chat.IsPrivate() || message.From.IsBot {
		return
	}
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}

	user, err := b.userRepo.GetOrCreate(message.From.ID, message.Chat.ID, b.isAdmin(message.From.ID))
	if err != nil {
		log.Printf("Error loading user %d: %v", message.From.ID, err)
		b.replyPlain(message.Chat.ID, "⚠️ Server error, try again.")
		return
	}
	if user.Banned {
		return
	}

	if message.IsCommand() {
		b.handleCommand(user, message)
		return
	}

	// Registration intercepts everything until it finishes
	if user.RegStep != models.RegStepDone {
		b.handleRegistration(user, message.Chat.ID, text)
		return
	}

	if !user.Approved {
		b.replyRemoveKeyboard(message.Chat.ID, "⏳ Your registration is waiting for teacher approval.")
		return
	}

	if user.State.Valid {
		switch user.State.String {
		case stateAwaitingScore:
			b.handleScoreInput(user, text)
			return
		case stateAwaitingGoal:
			b.handleGoalInput(user, text)
			return
		case stateAwaitingBroadcast:
			if b.isAdmin(user.TelegramID) {
				b.handleBroadcastInput(user, text)
				return
			}
		}
	}

	switch text {
	case buttonRecordScore:
		b.startScoreEntry(user)
	case buttonMyStats:
		b.showStats(user)
	case buttonDailyBoard:
		b.showDailyLeaderboard(user.ChatID)
	case buttonLifetimeBoard:
		b.showLifetimeLeaderboard(user.ChatID)
	case buttonSetGoal:
		b.startGoalEntry(user)
	case buttonHelp:
		b.reply(user.ChatID, helpText(b.isAdmin(user.TelegramID)))
	default:
		// Free text from approved users goes to the tutor
		b.handleTutorQuestion(user, text)
	}
}

// handleCommand handles bot commands
func (b *Bot) handleCommand(user *models.User, message *tgbotapi.Message) {
	command := message.Command()
	args := strings.TrimSpace(message.CommandArguments())

	switch command {
	case "start":
		b.handleStart(user)
		return
	case "help":
		b.reply(user.ChatID, helpText(b.isAdmin(user.TelegramID)))
		return
	}

	if user.RegStep != models.RegStepDone {
		b.handleRegistration(user, user.ChatID, "")
		return
	}
	if !user.Approved {
		b.replyRemoveKeyboard(user.ChatID, "⏳ Your registration is waiting for teacher approval.")
		return
	}

	switch command {
	case "menu":
		b.reply(user.ChatID, "Here’s your menu:")
	case "sat":
		if args == "" {
			b.reply(user.ChatID, "Send the question after /sat.\nExample: /sat If 3x+5=20, find x.")
			return
		}
		b.handleTutorQuestion(user, args)
	case "score":
		b.startScoreEntry(user)
	case "stats":
		b.showStats(user)
	case "goal":
		b.startGoalEntry(user)
	default:
		if b.isAdmin(user.TelegramID) {
			b.handleAdminCommand(user, command, args)
			return
		}
		b.reply(user.ChatID, "Unknown command. Use /help to see what I can do.")
	}
}

// handleStart greets the user or resumes registration
func (b *Bot) handleStart(user *models.User) {
	if user.RegStep != models.RegStepDone {
		b.handleRegistration(user, user.ChatID, "")
		return
	}
	if !user.Approved {
		b.replyRemoveKeyboard(user.ChatID, "⏳ Your registration is waiting for teacher approval.")
		return
	}
	b.reply(user.ChatID, fmt.Sprintf("Welcome back, %s! Log a Math score or check your stats below.", user.DisplayName()))
}

func helpText(admin bool) string {
	text := "❓ Help\n\n" +
		"• " + buttonRecordScore + " — log one Math section result (0–44)\n" +
		"• " + buttonMyStats + " — streak, savers, averages and goal estimate\n" +
		"• " + buttonDailyBoard + " / " + buttonLifetimeBoard + " — rankings\n" +
		"• " + buttonSetGoal + " — set your target Math score\n" +
		"• /sat <question> — ask the AI tutor an SAT question\n\n" +
		fmt.Sprintf("Limits: %d tests/day, %d min cooldown.\n", config.MaxDailyTests, config.CooldownMinutes) +
		fmt.Sprintf("Log %d tests in one day to earn a 🛡️ Streak Saver.", config.SaverEarnThreshold)
	if admin {
		text += "\n\n" + adminHelpText()
	}
	return text
}

// startScoreEntry checks the rate limits and asks for a score
func (b *Bot) startScoreEntry(user *models.User) {
	ok, reason, err := b.canAddTest(user.ID)
	if err != nil {
		log.Printf("Error checking rate limits for user %d: %v", user.ID, err)
		b.reply(user.ChatID, "⚠️ Server error, try again.")
		return
	}
	if !ok {
		b.reply(user.ChatID, reason)
		return
	}
	if err := b.userRepo.SetState(user.ID, stateAwaitingScore); err != nil {
		log.Printf("Error setting state for user %d: %v", user.ID, err)
		return
	}
	b.replyPlain(user.ChatID, fmt.Sprintf("Send your Math score (%d–%d).", models.MinMathScore, models.MaxMathScore))
}

// handleScoreInput validates and records a score, then reports streak state
func (b *Bot) handleScoreInput(user *models.User, text string) {
	score, err := strconv.Atoi(text)
	if err != nil || score < models.MinMathScore || score > models.MaxMathScore {
		b.replyPlain(user.ChatID, fmt.Sprintf("Please send a whole number between %d and %d.", models.MinMathScore, models.MaxMathScore))
		return
	}

	ok, reason, err := b.canAddTest(user.ID)
	if err != nil {
		log.Printf("Error checking rate limits for user %d: %v", user.ID, err)
		b.reply(user.ChatID, "⚠️ Server error, try again.")
		return
	}
	if !ok {
		b.userRepo.SetState(user.ID, "")
		b.reply(user.ChatID, reason)
		return
	}

	if _, err := b.testRepo.Insert(user.ID, score, nil); err != nil {
		log.Printf("Error recording score for user %d: %v", user.ID, err)
		b.reply(user.ChatID, "⚠️ Server error, try again.")
		return
	}
	if err := b.userRepo.SetState(user.ID, ""); err != nil {
		log.Printf("Error clearing state for user %d: %v", user.ID, err)
	}
	b.updatePreferredTime(user.ID)

	lines := []string{fmt.Sprintf("✅ Score recorded: %d/%d", score, models.MaxMathScore)}

	earned, err := b.engine.MaybeAwardSaver(user.ID)
	if err != nil {
		log.Printf("Error checking saver award for user %d: %v", user.ID, err)
	} else if earned != "" {
		lines = append(lines, earned)
	}

	streak, err := b.engine.Streak(user.ID)
	if err != nil {
		log.Printf("Error computing streak for user %d: %v", user.ID, err)
	} else {
		lines = append(lines, fmt.Sprintf("🔥 Streak: %d day(s) | 🛡️ Savers: %d", streak.Days, streak.SaversLeft))
	}

	b.reply(user.ChatID, strings.Join(lines, "\n"))
}

// canAddTest enforces the daily cap and the cooldown between tests
func (b *Bot) canAddTest(userID int64) (bool, string, error) {
	count, err := b.engine.ScoresToday(userID)
	if err != nil {
		return false, "", err
	}
	if count >= config.MaxDailyTests {
		return false, fmt.Sprintf("Daily limit reached (%d/day).", config.MaxDailyTests), nil
	}

	last, found, err := b.testRepo.LastCreatedAt(userID)
	if err != nil {
		return false, "", err
	}
	if found {
		cooldown := config.CooldownMinutes * time.Minute
		elapsed := time.Since(last)
		if elapsed < cooldown {
			minsLeft := int((cooldown-elapsed).Minutes()) + 1
			return false, fmt.Sprintf("Cooldown active. Try again in ~%d min.", minsLeft), nil
		}
	}
	return true, "OK", nil
}

// updatePreferredTime derives the reminder time from the clamped average
// local hour/minute of the user's last 10 tests
func (b *Bot) updatePreferredTime(userID int64) {
	tests, err := b.testRepo.Recent(userID, 10)
	if err != nil {
		log.Printf("Error reading recent tests for user %d: %v", userID, err)
		return
	}
	if len(tests) == 0 {
		return
	}

	sumH, sumM := 0, 0
	for _, t := range tests {
		local := t.CreatedAt.In(b.cfg.Location)
		sumH += local.Hour()
		sumM += local.Minute()
	}
	hour := clamp(int(float64(sumH)/float64(len(tests))+0.5), 0, 23)
	minute := clamp(int(float64(sumM)/float64(len(tests))+0.5), 0, 59)

	if err := b.userRepo.SetPreferredTime(userID, hour, minute); err != nil {
		log.Printf("Error saving preferred time for user %d: %v", userID, err)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// showStats renders the full stats screen for the user
func (b *Bot) showStats(user *models.User) {
	summary, err := b.engine.Summarize(user.ID)
	if err != nil {
		log.Printf("Error summarizing user %d: %v", user.ID, err)
		b.reply(user.ChatID, "⚠️ Server error, try again.")
		return
	}

	streak, err := b.engine.Streak(user.ID)
	if err != nil {
		log.Printf("Error computing streak for user %d: %v", user.ID, err)
		b.reply(user.ChatID, "⚠️ Server error, try again.")
		return
	}

	lines := []string{
		"📊 My Stats",
		"",
		fmt.Sprintf("Tests: %d | Points: %d", user.TestsCount, user.TotalPoints),
	}
	if summary.HasLast {
		lines = append(lines, fmt.Sprintf("Last: %d/%d", summary.Last.Score, models.MaxMathScore))
	}
	if summary.HasBest {
		lines = append(lines, fmt.Sprintf("Best: %d/%d", summary.Best, models.MaxMathScore))
	}
	if summary.HasAvg {
		lines = append(lines, fmt.Sprintf("Average: %.1f/%d", summary.Avg, models.MaxMathScore))
	}
	lines = append(lines,
		fmt.Sprintf("🔥 Streak: %d day(s)", streak.Days),
		fmt.Sprintf("🛡️ Streak savers: %d", streak.SaversLeft),
	)
	if streak.SaverUsed {
		lines = append(lines, "🛡️ A streak saver covered today — log a score to keep it going!")
	}
	lines = append(lines, "", "Recent: "+stats.Sparkline(summary.Last12))

	if bestHour, err := b.engine.BestHour(user.ID); err == nil {
		lines = append(lines, bestHour)
	}

	if user.GoalMath.Valid {
		estimate, err := b.engine.EstimateGoal(user.ID, int(user.GoalMath.Int64))
		if err != nil {
			log.Printf("Error estimating goal for user %d: %v", user.ID, err)
		} else {
			lines = append(lines, "", estimate)
		}
	} else {
		lines = append(lines, "", "Tip: set a 🎯 goal to get an arrival estimate.")
	}

	b.reply(user.ChatID, strings.Join(lines, "\n"))
}

// startGoalEntry asks for a target score
func (b *Bot) startGoalEntry(user *models.User) {
	if err := b.userRepo.SetState(user.ID, stateAwaitingGoal); err != nil {
		log.Printf("Error setting state for user %d: %v", user.ID, err)
		return
	}
	b.replyPlain(user.ChatID, fmt.Sprintf("What Math score are you aiming for? (1–%d)", models.MaxMathScore))
}

// handleGoalInput validates and stores the goal
func (b *Bot) handleGoalInput(user *models.User, text string) {
	goal, err := strconv.Atoi(text)
	if err != nil || goal < 1 || goal > models.MaxMathScore {
		b.replyPlain(user.ChatID, fmt.Sprintf("Please send a whole number between 1 and %d.", models.MaxMathScore))
		return
	}
	if err := b.userRepo.SetGoal(user.ID, goal); err != nil {
		log.Printf("Error setting goal for user %d: %v", user.ID, err)
		b.reply(user.ChatID, "⚠️ Server error, try again.")
		return
	}
	if err := b.userRepo.SetState(user.ID, ""); err != nil {
		log.Printf("Error clearing state for user %d: %v", user.ID, err)
	}

	reply := fmt.Sprintf("🎯 Goal set: %d/%d", goal, models.MaxMathScore)
	if estimate, err := b.engine.EstimateGoal(user.ID, goal); err == nil {
		reply += "\n\n" + estimate
	}
	b.reply(user.ChatID, reply)
}

// showDailyLeaderboard renders today's ranking
func (b *Bot) showDailyLeaderboard(chatID int64) {
	from, to := b.engine.DayBounds()
	rows, err := b.lbRepo.Daily(from, to, leaderboardSize)
	if err != nil {
		log.Printf("Error loading daily leaderboard: %v", err)
		b.reply(chatID, "⚠️ Server error, try again.")
		return
	}
	b.reply(chatID, stats.FormatLeaderboard(rows, "🏆 Daily Leaderboard"))
}

// showLifetimeLeaderboard renders the all-time ranking
func (b *Bot) showLifetimeLeaderboard(chatID int64) {
	rows, err := b.lbRepo.Lifetime(leaderboardSize)
	if err != nil {
		log.Printf("Error loading lifetime leaderboard: %v", err)
		b.reply(chatID, "⚠️ Server error, try again.")
		return
	}
	b.reply(chatID, stats.FormatLeaderboard(rows, "🏆 Lifetime Leaderboard"))
}

// handleTutorQuestion proxies a question to the AI tutor
func (b *Bot) handleTutorQuestion(user *models.User, question string) {
	if b.tutor == nil {
		b.reply(user.ChatID, "⚠️ The AI tutor is not configured on this server.")
		return
	}

	thinking, err := b.api.Send(tgbotapi.NewMessage(user.ChatID, "Wait a couple of seconds, I am thinking 🤔"))
	if err != nil {
		log.Printf("Error sending thinking message: %v", err)
	}

	answer, err := b.tutor.Answer(question)

	if thinking.MessageID != 0 {
		if _, derr := b.api.Request(tgbotapi.NewDeleteMessage(user.ChatID, thinking.MessageID)); derr != nil {
			log.Printf("Error deleting thinking message: %v", derr)
		}
	}

	if err != nil {
		log.Printf("Error from AI tutor: %v", err)
		b.reply(user.ChatID, "⚠️ AI failed unexpectedly. Try again later.")
		return
	}
	b.reply(user.ChatID, answer)
}

// handleCallbackQuery handles inline approve/reject buttons
func (b *Bot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	if callback.From == nil || callback.Data == "" {
		return
	}
	if !b.isAdmin(callback.From.ID) {
		b.answerCallback(callback.ID, "Admins only.")
		return
	}

	parts := strings.SplitN(callback.Data, ":", 2)
	if len(parts) != 2 {
		return
	}
	telegramID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return
	}

	switch parts[0] {
	case "approve":
		b.approveUser(callback.From.ID, telegramID, true)
		b.answerCallback(callback.ID, "Approved ✅")
	case "reject":
		b.approveUser(callback.From.ID, telegramID, false)
		b.answerCallback(callback.ID, "Rejected ⛔")
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("Error answering callback: %v", err)
	}
}

// isAdmin checks if a user is an admin
func (b *Bot) isAdmin(telegramID int64) bool {
	return b.cfg.IsAdmin(telegramID)
}
