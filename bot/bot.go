package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/smartjects/importer_backend/config"
	"github.com/smartjects/importer_backend/importer"
	"github.com/smartjects/importer_backend/models"
)

// lastReportKey caches the most recent import report in redis so /stats
// survives restarts.
const lastReportKey = "importer:last_report"

// Bot is the chat transport: it routes commands and file uploads to the
// import core and reports results back to the operator.
type Bot struct {
	api    *tgbotapi.BotAPI
	cfg    config.BotConfig
	logger *logrus.Logger

	logos *importer.LogoIndex
	store importer.Store

	mu         sync.Mutex
	running    bool
	cancelRun  context.CancelFunc
	lastReport *importer.ImportReport
}

func New(cfg config.BotConfig, logos *importer.LogoIndex, logger *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:    api,
		cfg:    cfg,
		logger: logger,
		logos:  logos,
		store:  models.Store{},
	}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.WithFields(logrus.Fields{"module": "bot"}).Info("bot polling started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			// Handle off the polling loop: an in-flight import must not
			// block /cancel and /status. beginImport keeps imports
			// themselves serialized.
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil {
		return
	}

	if !b.allowed(message.From.ID) {
		b.reply(message.Chat.ID, "❌ Access denied. You are not authorized to use this bot.")
		return
	}

	switch {
	case message.IsCommand():
		b.handleCommand(ctx, message)
	case message.Document != nil:
		b.handleDocument(ctx, message)
	default:
		if b.importRunning() {
			b.reply(message.Chat.ID, "⏳ Processing in progress. Please wait for the current operation to complete.\nUse /cancel to stop the current operation.")
			return
		}
		b.reply(message.Chat.ID, "Send me a CSV or XLSX file with smartjects data, or use /help.")
	}
}

func (b *Bot) allowed(userId int64) bool {
	if len(b.cfg.AllowedUsers) == 0 {
		return false
	}
	for _, id := range b.cfg.AllowedUsers {
		if id == userId {
			return true
		}
	}
	return false
}

func (b *Bot) reply(chatId int64, text string) {
	msg := tgbotapi.NewMessage(chatId, text)
	if _, err := b.api.Send(msg); err != nil {
		config.LogError(b.logger, "bot", "reply", "Send", nil, err)
	}
}

func (b *Bot) importRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// beginImport marks an import as in flight; it fails when one already is.
func (b *Bot) beginImport(parent context.Context) (context.Context, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil, false
	}
	ctx, cancel := context.WithCancel(parent)
	b.running = true
	b.cancelRun = cancel
	return ctx, true
}

func (b *Bot) endImport(report *importer.ImportReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = false
	if b.cancelRun != nil {
		b.cancelRun()
		b.cancelRun = nil
	}
	if report != nil {
		b.lastReport = report
		if err := config.SetRedisObject(lastReportKey, report, 7*24*time.Hour); err != nil {
			config.LogError(b.logger, "bot", "endImport", "SetRedisObject", nil, err)
		}
	}
}

// cancelImport stops the in-flight run, if any.
func (b *Bot) cancelImport() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running || b.cancelRun == nil {
		return false
	}
	b.cancelRun()
	return true
}

// LastReport returns the most recent run's report, falling back to the
// redis-cached one after a restart.
func (b *Bot) LastReport() *importer.ImportReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastReport != nil {
		return b.lastReport
	}
	var cached importer.ImportReport
	if found, err := config.GetRedisObject(lastReportKey, &cached); err == nil && found {
		b.lastReport = &cached
	}
	return b.lastReport
}
