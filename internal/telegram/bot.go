package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ai-menu-builder/internal/config"
	"ai-menu-builder/internal/dishes"
	"ai-menu-builder/internal/menu"
	"ai-menu-builder/internal/metrics"
	"ai-menu-builder/internal/profile"
	"ai-menu-builder/internal/shared"
)

// contextBloatTokens is the prompt size above which the admin gets an
// alert. Prompts this large usually mean feedback text is snowballing.
const contextBloatTokens = 4000

const welcomeText = `👋 *Menu Builder*

Send me a message and I will build a full daily menu for your profile.

• /menu [code] - build today's menu
• /code <code> - remember your profile code for this chat
• /recent - your latest menus
• Send a recipe URL to add the dish to the library`

// Bot wires the Telegram surface to the menu pipeline.
type Bot struct {
	api          *tgbotapi.BotAPI
	orchestrator *menu.Orchestrator
	loader       *profile.Loader
	menus        *menu.Repository
	importer     *dishes.Importer
	library      *dishes.Library
	metricsStore *metrics.Store
	codes        *CodeStore
	cfg          *config.Config
	logger       *zap.Logger
}

// NewBot initializes the Telegram API client and sets the webhook.
func NewBot(
	cfg *config.Config,
	orchestrator *menu.Orchestrator,
	loader *profile.Loader,
	menus *menu.Repository,
	importer *dishes.Importer,
	library *dishes.Library,
	metricsStore *metrics.Store,
	codes *CodeStore,
	logger *zap.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("Authorized on Telegram", zap.String("account", api.Self.UserName))

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("Webhook set", zap.String("response", resp.Description))

	return &Bot{
		api:          api,
		orchestrator: orchestrator,
		loader:       loader,
		menus:        menus,
		importer:     importer,
		library:      library,
		metricsStore: metricsStore,
		codes:        codes,
		cfg:          cfg,
		logger:       logger,
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("Failed to parse update", zap.Error(err))
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}

	isAllowed := false
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if update.Message.From.ID == id {
			isAllowed = true
			break
		}
	}
	if !isAllowed {
		b.logger.Warn("Unauthorized access attempt",
			zap.Int64("user_id", update.Message.From.ID),
			zap.String("username", update.Message.From.UserName))
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	cmd, arg := parseCommand(text)

	switch cmd {
	case "/start", "/help":
		b.reply(msg.Chat.ID, welcomeText)
	case "/code":
		b.handleSetCode(msg, arg)
	case "/menu":
		b.handleMenuRequest(msg, arg)
	case "/recent":
		b.handleRecentRequest(msg, arg)
	case "/usage":
		b.handleUsageRequest(msg)
	default:
		if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
			b.handleImportRequest(msg, text)
			return
		}
		// Free text defaults to building a menu for the chat's profile.
		b.handleMenuRequest(msg, "")
	}
}

// parseCommand splits "/menu alpha-1" into its command and argument.
// Plain text returns an empty command.
func parseCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// resolveUserCode picks the profile code for a request: the explicit
// argument, then the chat's stored code, then the configured default.
func (b *Bot) resolveUserCode(ctx context.Context, chatID int64, arg string) string {
	if arg != "" {
		return arg
	}
	if b.codes != nil {
		code, err := b.codes.Get(ctx, chatID)
		if err != nil {
			b.logger.Warn("Failed to fetch chat code", zap.Error(err))
		} else if code != "" {
			return code
		}
	}
	return b.cfg.DefaultUserCode
}

func (b *Bot) handleSetCode(msg *tgbotapi.Message, arg string) {
	if arg == "" {
		b.reply(msg.Chat.ID, "Usage: `/code <your profile code>`")
		return
	}
	if err := b.codes.Set(context.Background(), msg.Chat.ID, arg); err != nil {
		b.logger.Error("Failed to save chat code", zap.Error(err))
		b.reply(msg.Chat.ID, errorText("Could not save the code", err))
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Menus in this chat now use profile *%s*.", arg))
}

func (b *Bot) handleMenuRequest(msg *tgbotapi.Message, arg string) {
	messageID, ok := b.sendStatus(msg.Chat.ID, "🧑‍🍳 *Composing your menu...*\n(Generating the day's template and dishes)")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	userCode := b.resolveUserCode(ctx, msg.Chat.ID, arg)
	prefs, err := b.loader.Load(ctx, userCode)
	if err != nil {
		b.edit(msg.Chat.ID, messageID, errorText("Error loading profile", err))
		return
	}

	result, metas, err := b.orchestrator.Run(ctx, nil, prefs)
	b.recordMetas(metas)
	if err != nil {
		b.logger.Error("Menu build failed", zap.String("user_code", userCode), zap.Error(err))
		b.edit(msg.Chat.ID, messageID, errorText("Error building menu", err))
		return
	}

	usage := shared.SumUsage(metas)
	b.logger.Info("Menu built",
		zap.String("user_code", userCode),
		zap.Int("model_calls", len(metas)),
		zap.Int("total_tokens", usage.TotalTokens))

	if _, err := b.menus.Save(ctx, userCode, result); err != nil {
		b.logger.Warn("Failed to persist menu", zap.Error(err))
	}

	mainText, altText := formatMenuMarkdown(result)
	b.edit(msg.Chat.ID, messageID, mainText)
	b.reply(msg.Chat.ID, altText)
}

func (b *Bot) handleRecentRequest(msg *tgbotapi.Message, arg string) {
	ctx := context.Background()
	userCode := b.resolveUserCode(ctx, msg.Chat.ID, arg)

	records, err := b.menus.ListRecent(ctx, userCode, 5)
	if err != nil {
		b.reply(msg.Chat.ID, errorText("Error fetching menus", err))
		return
	}
	b.reply(msg.Chat.ID, formatRecentMarkdown(records))
}

func (b *Bot) handleImportRequest(msg *tgbotapi.Message, url string) {
	messageID, ok := b.sendStatus(msg.Chat.ID, "✂️ *Importing dish...*\n(Extracting the recipe and indexing it)")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	result, err := b.importer.ImportFromURL(ctx, url)
	b.recordMetas([]shared.AgentMeta{result.Meta})
	if err != nil {
		b.logger.Error("Dish import failed", zap.String("url", url), zap.Error(err))
		b.edit(msg.Chat.ID, messageID, errorText("Error importing dish", err))
		return
	}
	if err := b.library.Add(ctx, result.Dish); err != nil {
		b.edit(msg.Chat.ID, messageID, errorText("Error saving dish", err))
		return
	}

	b.edit(msg.Chat.ID, messageID, fmt.Sprintf(
		"✅ *Dish saved!*\n\n*%s*\n%d ingredients • %.0f kcal per serving",
		result.Dish.Title, len(result.Dish.Ingredients), result.Dish.Nutrition.Calories))
}

func (b *Bot) handleUsageRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	daily, err := b.metricsStore.GetDailyUsage(7)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	agents, err := b.metricsStore.GetAgentUsage(7)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	health := metrics.GetSysHealth(b.cfg.DataDir)

	b.reply(msg.Chat.ID, formatUsageMarkdown(daily, agents, health))
}

// recordMetas stores per-call usage and raises the context bloat alert
// for oversized prompts.
func (b *Bot) recordMetas(metas []shared.AgentMeta) {
	for _, m := range metas {
		if m.Usage.PromptTokens > contextBloatTokens {
			b.sendAdminAlert(fmt.Sprintf(
				"⚠️ *Context Bloat Alert*\nAgent: %s\nModel: %s\nPrompt Tokens: %d",
				m.AgentName, m.Usage.Model, m.Usage.PromptTokens))
		}
	}
	if err := b.metricsStore.RecordAll(metas); err != nil {
		b.logger.Warn("Failed to record execution metrics", zap.Error(err))
	}
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.AdminTelegramID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(b.cfg.AdminTelegramID, text)
	msg.ParseMode = "Markdown"
	b.api.Send(msg)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("Failed to send message", zap.Error(err))
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "Markdown"
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn("Failed to edit message", zap.Error(err))
	}
}

// sendStatus sends the "working on it" message and returns its id for
// later editing.
func (b *Bot) sendStatus(chatID int64, text string) (int, bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	sent, err := b.api.Send(msg)
	if err != nil {
		b.logger.Warn("Failed to send status message", zap.Error(err))
		return 0, false
	}
	return sent.MessageID, true
}

func errorText(prefix string, err error) string {
	safe := strings.ReplaceAll(err.Error(), "`", "'")
	return fmt.Sprintf("❌ *%s:*\n```\n%v\n```", prefix, safe)
}

func formatMenuMarkdown(result *menu.BuildResult) (string, string) {
	var mb strings.Builder
	mb.WriteString("🍽 *Daily Menu*\n\n")
	for _, meal := range result.Menu {
		writeOption(&mb, meal.Meal, meal.Main)
	}
	mb.WriteString(fmt.Sprintf("*Day total:* %.0f kcal • %.0fg protein • %.0fg fat",
		result.TotalsMain.Calories, result.TotalsMain.Protein, result.TotalsMain.Fat))

	var ab strings.Builder
	ab.WriteString("🔄 *Alternatives*\n\n")
	for _, meal := range result.Menu {
		writeOption(&ab, meal.Meal, meal.Alternative)
	}
	ab.WriteString(fmt.Sprintf("*Day total:* %.0f kcal • %.0fg protein • %.0fg fat",
		result.TotalsAlt.Calories, result.TotalsAlt.Protein, result.TotalsAlt.Fat))

	return mb.String(), ab.String()
}

func writeOption(sb *strings.Builder, mealName string, opt menu.BuiltOption) {
	sb.WriteString(fmt.Sprintf("*%s*: %s\n", mealName, opt.MealTitle))
	for _, ing := range opt.Ingredients {
		sb.WriteString(fmt.Sprintf("• %s", ing.Item))
		if ing.HouseholdMeasure != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", ing.HouseholdMeasure))
		} else if ing.PortionGrams > 0 {
			sb.WriteString(fmt.Sprintf(" (%.0fg)", ing.PortionGrams))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("_%.0f kcal / %.0fg protein / %.0fg fat_\n\n",
		opt.Nutrition.Calories, opt.Nutrition.Protein, opt.Nutrition.Fat))
}

func formatRecentMarkdown(records []menu.Record) string {
	var sb strings.Builder
	sb.WriteString("🗂 *Recent Menus*\n\n")
	if len(records) == 0 {
		sb.WriteString("_No menus built yet_")
		return sb.String()
	}
	for _, rec := range records {
		titles := make([]string, 0, len(rec.Menu))
		for _, meal := range rec.Menu {
			titles = append(titles, meal.Main.MealTitle)
		}
		sb.WriteString(fmt.Sprintf("• *%s*: %s (%.0f kcal)\n",
			rec.CreatedAt.Format("2006-01-02 15:04"),
			strings.Join(titles, ", "),
			rec.TotalsMain.Calories))
	}
	return sb.String()
}

func formatUsageMarkdown(daily []metrics.DailyUsage, agents []metrics.AgentUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(daily) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range daily {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n",
			d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	if len(agents) > 0 {
		sb.WriteString("\n🤖 *By Agent*\n")
		for _, a := range agents {
			sb.WriteString(fmt.Sprintf("• *%s* (%s): %d execs, avg %.0fms\n",
				a.AgentName, a.Model, a.Executions, a.AvgLatencyMS))
		}
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
