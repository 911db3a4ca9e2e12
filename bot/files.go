package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bsm/redislock"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/smartjects/importer_backend/config"
	"github.com/smartjects/importer_backend/importer"
	"github.com/smartjects/importer_backend/utils"
)

// importLockKey guards against two replicas importing at the same time.
const importLockKey = "lock:importer"

func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) {
	document := message.Document
	chatId := message.Chat.ID

	filename := strings.ToLower(document.FileName)
	isXlsx := strings.HasSuffix(filename, ".xlsx")
	if !isXlsx && !strings.HasSuffix(filename, ".csv") {
		b.reply(chatId, "❌ Please send a CSV or XLSX file.\nThe file should have a .csv or .xlsx extension.\n\nFor XLSX files, make sure your data is in a sheet named 'smartjects'.")
		return
	}

	if err := importer.CheckFileSize(int64(document.FileSize), b.cfg.MaxFileSize); err != nil {
		b.reply(chatId, fmt.Sprintf("❌ File is too large. Maximum size is %dMB.", b.cfg.MaxFileSize/(1024*1024)))
		return
	}

	runCtx, ok := b.beginImport(ctx)
	if !ok {
		b.reply(chatId, "⏳ Processing in progress. Please wait for the current operation to complete.\nUse /cancel to stop the current operation.")
		return
	}

	runCtx = utils.SetChatIdInContext(runCtx, chatId)
	runId := utils.CorrelationIdFromContextOrNew(runCtx)
	runCtx = utils.SetCorrelationIdInContext(runCtx, runId)
	b.logger.WithFields(logrus.Fields{
		"chat_id": chatId,
		"run_id":  runId,
		"file":    document.FileName,
	}).Info("import started")

	var report *importer.ImportReport
	defer func() { b.endImport(report) }()

	// Cross-replica guard; best-effort when redis is down, refused when
	// another replica holds the lock.
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(runCtx, importLockKey, 30*time.Minute, nil)
		if err == redislock.ErrNotObtained {
			b.reply(chatId, "⏳ Another import is already running elsewhere. Try again later.")
			return
		}
		if err == nil {
			defer func() {
				if releaseErr := lock.Release(context.Background()); releaseErr != nil {
					config.LogError(b.logger, "bot", "handleDocument", "release lock", nil, releaseErr)
				}
			}()
		}
	}

	content, err := b.downloadDocument(runCtx, document)
	if err != nil {
		config.LogError(b.logger, "bot", "handleDocument", "download", document.FileName, err)
		b.reply(chatId, "❌ Failed to download the file: "+err.Error())
		return
	}

	if config.FileArchiveEnabled() {
		if object, archiveErr := utils.ArchiveImportFile(runCtx, document.FileName, content); archiveErr != nil {
			config.LogError(b.logger, "bot", "handleDocument", "archive", document.FileName, archiveErr)
		} else {
			b.logger.WithField("object", object).Info("archived import file")
		}
	}

	var rows []importer.RawRow
	if isXlsx {
		rows, err = importer.ParseXLSX(content)
	} else {
		rows, err = importer.ParseCSV(content)
	}
	if err != nil {
		b.reply(chatId, "❌ Could not read the file: "+err.Error())
		return
	}

	tags, err := importer.LoadTagIndex(runCtx)
	if err != nil {
		config.LogError(b.logger, "bot", "handleDocument", "LoadTagIndex", nil, err)
		b.reply(chatId, "❌ Failed to load reference tables: "+err.Error())
		return
	}

	progressMsg, sendErr := b.api.Send(tgbotapi.NewMessage(chatId,
		fmt.Sprintf("📄 Processing file: %s\n📏 Size: %d bytes\n\nStarting...", document.FileName, document.FileSize)))
	importCfg := config.GetImportConfig()

	var progress *importer.ProgressReporter
	if sendErr == nil && config.ProgressUpdatesEnabled() {
		notifier := &messageEditNotifier{api: b.api, chatId: chatId, messageId: progressMsg.MessageID}
		progress = importer.NewProgressReporter(notifier, importCfg.ProgressInterval, b.logger)
	}

	logos := b.logos
	if !config.LogoMatchingEnabled() {
		logos = nil
	}

	processor := importer.NewProcessor(importer.Options{
		Store:      b.store,
		Tags:       tags,
		Logos:      logos,
		Progress:   progress,
		BatchSize:  importCfg.BatchSize,
		BatchDelay: importCfg.BatchDelay,
		MaxRetries: importCfg.MaxRetryAttempts,
		RetryDelay: importCfg.RetryDelay,
		Logger:     b.logger,
	})
	report = processor.Run(runCtx, rows)

	// A cancelled run never synchronizes a partial batch on its own; the
	// operator can ask for it later via /sync_teams.
	if !report.Cancelled && report.Stats.Imported > 0 && config.TeamSyncEnabled() {
		sync := importer.NewTeamSync(b.store, b.logos, b.logger)
		stats := sync.Run(ctx, report.Organizations, report.RecordOrganizations)
		b.logger.WithFields(logrus.Fields{
			"new_teams":     stats.NewTeams,
			"new_relations": stats.NewRelations,
			"failed":        stats.Failed,
		}).Info("teams sync completed")
	}

	summary := report.Summary()
	if report.Cancelled {
		summary += "\n🛑 Import was cancelled; already imported rows are kept."
	}
	progress.Finish(ctx, summary)
	if progress == nil {
		b.reply(chatId, summary)
	}
	b.sendRejectedDetails(chatId, report)
}

func (b *Bot) downloadDocument(ctx context.Context, document *tgbotapi.Document) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(document.FileID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, b.cfg.MaxFileSize+1))
}

func (b *Bot) sendRejectedDetails(chatId int64, report *importer.ImportReport) {
	rejected := report.Rejected()
	if len(rejected) == 0 {
		return
	}
	var lines []string
	lines = append(lines, fmt.Sprintf("❌ %d rows were rejected:", len(rejected)))
	for i, r := range rejected {
		if i >= 20 {
			lines = append(lines, fmt.Sprintf("… and %d more", len(rejected)-i))
			break
		}
		lines = append(lines, fmt.Sprintf("Row %d %q: %s", r.Row, r.Title, r.Reason))
	}
	b.reply(chatId, strings.Join(lines, "\n"))
}

// messageEditNotifier delivers progress by editing one pinned status
// message, translating Telegram's flood control into ErrRateLimited.
type messageEditNotifier struct {
	api       *tgbotapi.BotAPI
	chatId    int64
	messageId int
}

func (n *messageEditNotifier) Emit(ctx context.Context, text string) error {
	edit := tgbotapi.NewEditMessageText(n.chatId, n.messageId, text)
	_, err := n.api.Send(edit)
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return importer.ErrRateLimited
	}
	return err
}
