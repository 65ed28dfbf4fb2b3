package bot

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/example/satbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// handleRegistration advances the 4-step registration state machine.
// An empty input re-sends the prompt for the current step.
func (b *Bot) handleRegistration(user *models.User, chatID int64, input string) {
	input = strings.TrimSpace(input)

	if input == "" {
		b.replyPlain(chatID, registrationPrompt(user.RegStep))
		return
	}

	switch user.RegStep {
	case models.RegStepName:
		if err := b.userRepo.SetRegistrationName(user.ID, input); err != nil {
			log.Printf("Error saving name for user %d: %v", user.ID, err)
			return
		}
		b.replyPlain(chatID, registrationPrompt(models.RegStepSurname))

	case models.RegStepSurname:
		if err := b.userRepo.SetRegistrationSurname(user.ID, input); err != nil {
			log.Printf("Error saving surname for user %d: %v", user.ID, err)
			return
		}
		b.replyPlain(chatID, registrationPrompt(models.RegStepNickname))

	case models.RegStepNickname:
		nickname := input
		if nickname == "-" {
			nickname = ""
		}
		if err := b.userRepo.SetRegistrationNickname(user.ID, nickname); err != nil {
			log.Printf("Error saving nickname for user %d: %v", user.ID, err)
			return
		}
		b.replyPlain(chatID, registrationPrompt(models.RegStepEmail))

	case models.RegStepEmail:
		if !emailRe.MatchString(input) {
			b.replyPlain(chatID, "That email doesn’t look valid. Try again (e.g. name@example.com).")
			return
		}
		if err := b.userRepo.FinishRegistration(user.ID, input, time.Now().UTC()); err != nil {
			log.Printf("Error finishing registration for user %d: %v", user.ID, err)
			return
		}
		b.finishRegistration(user, chatID)

	default:
		// Inconsistent step value, restart from the top
		if err := b.userRepo.ResetRegistration(user.ID); err != nil {
			log.Printf("Error resetting registration for user %d: %v", user.ID, err)
			return
		}
		b.replyPlain(chatID, registrationPrompt(models.RegStepName))
	}
}

// finishRegistration completes sign-up. Admins are approved on the spot;
// students wait for a teacher and the admins get an approval card.
func (b *Bot) finishRegistration(user *models.User, chatID int64) {
	if b.isAdmin(user.TelegramID) {
		if _, err := b.userRepo.Approve(user.TelegramID, true); err != nil {
			log.Printf("Error auto-approving admin %d: %v", user.ID, err)
		}
		b.reply(chatID, "✅ Registration complete. Welcome, teacher!")
		return
	}

	b.replyRemoveKeyboard(chatID, "✅ Registration submitted.\nWaiting for teacher approval…")
	b.notifyAdminsNewUser(user.ID)
}

// notifyAdminsNewUser sends every admin a card with approve/reject buttons
func (b *Bot) notifyAdminsNewUser(userID int64) {
	user, err := b.userRepo.GetByID(userID)
	if err != nil || user == nil {
		log.Printf("Error loading user %d for admin notification: %v", userID, err)
		return
	}

	email := "-"
	if user.Email.Valid {
		email = user.Email.String
	}
	text := fmt.Sprintf("🆕 New registration\n\n%s\nEmail: %s\nTelegram ID: %d",
		user.DisplayName(), email, user.TelegramID)

	for adminID := range b.cfg.AdminIDs {
		admin, err := b.userRepo.GetByTelegramID(adminID)
		if err != nil || admin == nil {
			continue
		}
		msg := tgbotapi.NewMessage(admin.ChatID, text)
		msg.ReplyMarkup = approvalKeyboard(user.TelegramID)
		if _, err := b.api.Send(msg); err != nil {
			log.Printf("Error notifying admin %d: %v", adminID, err)
		}
	}
}

func registrationPrompt(step int) string {
	switch step {
	case models.RegStepName:
		return "👋 Welcome! Let’s get you registered.\n\n1/4 — What is your name?"
	case models.RegStepSurname:
		return "2/4 — What is your surname?"
	case models.RegStepNickname:
		return "3/4 — Pick a nickname for the leaderboard (or send “-” to skip)."
	case models.RegStepEmail:
		return "4/4 — What is your email?"
	default:
		return "👋 Welcome! Let’s get you registered.\n\n1/4 — What is your name?"
	}
}
