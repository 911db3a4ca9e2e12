package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/smartjects/importer_backend/config"
	"github.com/smartjects/importer_backend/importer"
	"github.com/smartjects/importer_backend/models"
	"github.com/smartjects/importer_backend/utils"
)

const welcomeText = `👋 Welcome to Smartjects Processor Bot!

This bot helps you import smartjects from CSV or XLSX files with automatic university logo matching.

📝 How to use:
1. Send me a CSV or XLSX file with smartjects data
   - For XLSX files: data should be in the 'smartjects' sheet
2. I'll process it and add new smartjects to the database
3. I'll automatically match university logos where possible

Use /help for more information.`

const helpText = `📁 File Processing:
Send a .csv or .xlsx file to start an import.

Commands:
/start — welcome message
/help — this help
/status — database and reference-table status
/logos — list available organization logos
/stats — last import run statistics
/search <query> — search imported smartjects by title
/sync_teams — re-run teams synchronization
/delete <id> — delete an imported smartject and its relations
/cancel — cancel the current import`

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.reply(message.Chat.ID, welcomeText)
	case "help":
		b.reply(message.Chat.ID, helpText)
	case "status":
		b.cmdStatus(ctx, message.Chat.ID)
	case "logos":
		b.cmdLogos(message.Chat.ID)
	case "stats":
		b.cmdStats(message.Chat.ID)
	case "search":
		b.cmdSearch(ctx, message.Chat.ID, strings.TrimSpace(message.CommandArguments()))
	case "sync_teams":
		b.cmdSyncTeams(ctx, message.Chat.ID)
	case "delete":
		b.cmdDelete(ctx, message.Chat.ID, strings.TrimSpace(message.CommandArguments()))
	case "cancel":
		b.cmdCancel(message.Chat.ID)
	default:
		b.reply(message.Chat.ID, "Unknown command. Use /help.")
	}
}

func (b *Bot) cmdStatus(ctx context.Context, chatId int64) {
	if b.importRunning() {
		b.reply(chatId, "⏳ An import is currently running.")
		return
	}

	industries, err := models.FetchIndustries(ctx)
	if err != nil {
		b.reply(chatId, "❌ Database check failed: "+err.Error())
		return
	}
	audiences, _ := models.FetchAudiences(ctx)
	functions, _ := models.FetchBusinessFunctions(ctx)
	teams, _ := models.FetchTeams(ctx)

	logoCount := 0
	if b.logos != nil {
		logoCount = b.logos.Size()
	}

	b.reply(chatId, fmt.Sprintf(
		"🔍 Status:\nIndustries: %d\nAudience: %d\nBusiness functions: %d\nTeams: %d\nLogo references: %d\nImport running: no",
		len(industries), len(audiences), len(functions), len(teams), logoCount,
	))
}

func (b *Bot) cmdLogos(chatId int64) {
	if b.logos == nil || b.logos.Size() == 0 {
		b.reply(chatId, "No organization logos loaded.")
		return
	}

	names := b.logos.Organizations()
	b.reply(chatId, fmt.Sprintf("🎓 %d organizations with logos:", len(names)))

	// Telegram caps messages at 4096 characters; send in chunks.
	var chunk []string
	size := 0
	for _, name := range names {
		if size+len(name)+1 > 3800 {
			b.reply(chatId, strings.Join(chunk, "\n"))
			chunk, size = nil, 0
		}
		chunk = append(chunk, name)
		size += len(name) + 1
	}
	if len(chunk) > 0 {
		b.reply(chatId, strings.Join(chunk, "\n"))
	}
}

func (b *Bot) cmdStats(chatId int64) {
	report := b.LastReport()
	if report == nil {
		b.reply(chatId, "No import has run yet.")
		return
	}
	text := report.Summary()
	if report.Cancelled {
		text += "\n⚠️ Last run was cancelled before completion."
	}
	b.reply(chatId, text)
}

func (b *Bot) cmdSearch(ctx context.Context, chatId int64, query string) {
	if query == "" {
		b.reply(chatId, "Usage: /search <query>")
		return
	}
	results, err := models.SearchSmartjectsByTitle(ctx, query, 10)
	if err != nil {
		config.LogError(b.logger, "bot", "cmdSearch", "SearchSmartjectsByTitle", query, err)
		b.reply(chatId, "❌ Search failed: "+err.Error())
		return
	}
	if len(results) == 0 {
		b.reply(chatId, "No smartjects found for: "+query)
		return
	}
	var lines []string
	for _, s := range results {
		lines = append(lines, fmt.Sprintf("• %s (%s)", s.Title, s.CreatedAt.Format("2006-01-02")))
	}
	b.reply(chatId, strings.Join(lines, "\n"))
}

func (b *Bot) cmdSyncTeams(ctx context.Context, chatId int64) {
	if b.importRunning() {
		b.reply(chatId, "⏳ An import is currently running; teams will sync when it finishes.")
		return
	}
	report := b.LastReport()
	if report == nil || len(report.Organizations) == 0 {
		b.reply(chatId, "Nothing to synchronize: no organizations from the last run.")
		return
	}

	b.reply(chatId, "🔄 Starting teams synchronization...")
	sync := importer.NewTeamSync(b.store, b.logos, b.logger)
	stats := sync.Run(ctx, report.Organizations, report.RecordOrganizations)
	b.reply(chatId, fmt.Sprintf(
		"✅ Teams sync completed: %d new teams, %d new relations, %d failed.",
		stats.NewTeams, stats.NewRelations, stats.Failed,
	))
}

func (b *Bot) cmdDelete(ctx context.Context, chatId int64, id string) {
	if id == "" {
		b.reply(chatId, "Usage: /delete <smartject id>")
		return
	}
	if b.importRunning() {
		b.reply(chatId, "⏳ An import is currently running; try again when it finishes.")
		return
	}

	details, err := models.GetSmartjectDetails(ctx, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		b.reply(chatId, "No smartject with id "+id)
		return
	}
	if err != nil {
		config.LogError(b.logger, "bot", "cmdDelete", "GetSmartjectDetails", id, err)
		b.reply(chatId, "❌ Lookup failed: "+err.Error())
		return
	}

	if err := models.DeleteSmartject(ctx, id); err != nil {
		config.LogError(b.logger, "bot", "cmdDelete", "DeleteSmartject", id, err)
		b.reply(chatId, "❌ Delete failed: "+err.Error())
		return
	}
	b.reply(chatId, fmt.Sprintf("🗑 Deleted %q and its relations.", details.Title))
}

func (b *Bot) cmdCancel(chatId int64) {
	if b.cancelImport() {
		b.reply(chatId, "🛑 Cancelling the current import. Already imported rows are kept.")
		return
	}
	b.reply(chatId, "Nothing to cancel.")
}
