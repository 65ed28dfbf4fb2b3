package bot

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/example/satbot/internal/ai"
	"github.com/example/satbot/internal/config"
	"github.com/example/satbot/internal/database"
	"github.com/example/satbot/internal/scheduler"
	"github.com/example/satbot/internal/stats"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Conversation states stored in users.state
const (
	stateAwaitingScore     = "awaiting_score"
	stateAwaitingGoal      = "awaiting_goal"
	stateAwaitingBroadcast = "awaiting_broadcast"
)

// Bot represents the Telegram bot application
type Bot struct {
	api        *tgbotapi.BotAPI
	cfg        *config.Config
	userRepo   *database.UserRepository
	testRepo   *database.TestRepository
	lbRepo     *database.LeaderboardRepository
	updateRepo *database.UpdateRepository
	engine     *stats.Engine
	tutor      *ai.Tutor
	scheduler  *scheduler.Scheduler
	server     *http.Server
}

// New creates a new bot instance
func New(cfg *config.Config, engine *stats.Engine) (*Bot, error) {
	if database.DB == nil {
		return nil, fmt.Errorf("database connection is not established")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %v", err)
	}
	log.Printf("Authorized on account %s", api.Self.UserName)

	b := &Bot{
		api:        api,
		cfg:        cfg,
		userRepo:   database.NewUserRepository(),
		testRepo:   database.NewTestRepository(),
		lbRepo:     database.NewLeaderboardRepository(),
		updateRepo: database.NewUpdateRepository(),
		engine:     engine,
	}

	if cfg.OpenAIKey != "" {
		tutor, err := ai.New(cfg.OpenAIKey, cfg.OpenAIModel)
		if err != nil {
			log.Printf("Warning: unable to initialize AI tutor: %v", err)
		} else {
			b.tutor = tutor
		}
	}

	if !cfg.DisableScheduler {
		b.scheduler = scheduler.New(b, engine, cfg.Location)
	}

	return b, nil
}

// Start runs the bot until the context is cancelled. With WEBHOOK_BASE_URL
// set it registers a webhook and serves HTTP; otherwise it long-polls.
func (b *Bot) Start(ctx context.Context) error {
	if b.scheduler != nil {
		b.scheduler.Start()
		log.Println("Reminder scheduler started")
	}

	if b.cfg.WebhookBaseURL != "" {
		return b.serveWebhook(ctx)
	}
	return b.poll(ctx)
}

// Stop gracefully stops the bot
func (b *Bot) Stop(ctx context.Context) error {
	if b.scheduler != nil {
		b.scheduler.Stop()
	}
	if b.server != nil {
		return b.server.Shutdown(ctx)
	}
	b.api.StopReceivingUpdates()
	return nil
}

// poll consumes updates over long polling (development mode)
func (b *Bot) poll(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.api.GetUpdatesChan(updateConfig)
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(update)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// serveWebhook registers the webhook with Telegram and serves the handler
func (b *Bot) serveWebhook(ctx context.Context) error {
	webhookURL := strings.TrimRight(b.cfg.WebhookBaseURL, "/") + "/webhook"

	params := tgbotapi.Params{
		"url":                  webhookURL,
		"drop_pending_updates": "true",
		"allowed_updates":      `["message","callback_query"]`,
	}
	if b.cfg.WebhookSecret != "" {
		params["secret_token"] = b.cfg.WebhookSecret
	}
	if _, err := b.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("failed to set webhook: %v", err)
	}
	log.Printf("Webhook registered at %s", webhookURL)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "SAT practice bot is running.")
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true}`)
	})
	mux.HandleFunc("/webhook", b.handleWebhook)

	b.server = &http.Server{Addr: b.cfg.ListenAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.server.Shutdown(shutdownCtx)
	}()

	log.Printf("Listening on %s", b.cfg.ListenAddr)
	if err := b.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webhook server failed: %v", err)
	}
	return nil
}

// handleWebhook verifies, deduplicates and dispatches one Telegram delivery.
// Always ACKs with 200 to avoid Telegram retry storms; errors are logged.
func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	defer func() {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true}`)
	}()

	if r.Method != http.MethodPost {
		return
	}
	if !b.verifySecret(r) {
		log.Println("Webhook request with bad secret token ignored")
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Printf("Failed to decode webhook update: %v", err)
		return
	}

	fresh, err := b.updateRepo.MarkProcessed(int64(update.UpdateID))
	if err != nil {
		log.Printf("Failed to dedup update %d: %v", update.UpdateID, err)
		return
	}
	if !fresh {
		return
	}

	b.handleUpdate(update)
}

// verifySecret compares the Telegram secret-token header in constant time
func (b *Bot) verifySecret(r *http.Request) bool {
	if b.cfg.WebhookSecret == "" {
		return true
	}
	got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
	return subtle.ConstantTimeCompare([]byte(got), []byte(b.cfg.WebhookSecret)) == 1
}

// SendNudge implements the scheduler.Notifier interface
func (b *Bot) SendNudge(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainMenuKeyboard()
	return b.send(msg)
}

// send delivers a message, logging failures
func (b *Bot) send(msg tgbotapi.Chattable) error {
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
		return err
	}
	return nil
}

// reply sends plain text to a chat with the main menu keyboard attached
func (b *Bot) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainMenuKeyboard()
	return b.send(msg)
}

// replyPlain sends text without touching the keyboard
func (b *Bot) replyPlain(chatID int64, text string) error {
	return b.send(tgbotapi.NewMessage(chatID, text))
}

// replyRemoveKeyboard sends text and removes any reply keyboard
func (b *Bot) replyRemoveKeyboard(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	return b.send(msg)
}

// mainMenuKeyboard is the persistent reply keyboard shown to approved users
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonRecordScore),
			tgbotapi.NewKeyboardButton(buttonMyStats),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonDailyBoard),
			tgbotapi.NewKeyboardButton(buttonLifetimeBoard),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonSetGoal),
			tgbotapi.NewKeyboardButton(buttonHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

// approvalKeyboard offers approve/reject buttons to admins
func approvalKeyboard(telegramID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", fmt.Sprintf("approve:%d", telegramID)),
			tgbotapi.NewInlineKeyboardButtonData("⛔ Reject", fmt.Sprintf("reject:%d", telegramID)),
		),
	)
}
