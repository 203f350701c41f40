package notify

import (
	"fmt"

	"crd-scraper/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier sends run-completion messages to a Telegram chat. There is no
// interactive bot surface; messages flow one way.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier creates a Notifier for the given bot token and chat.
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	zap.L().Info("Telegram notifier ready", zap.String("bot", bot.Self.UserName))
	return &Notifier{bot: bot, chatID: chatID}, nil
}

// NotifyRunFinished reports a finished run and its summary.
func (n *Notifier) NotifyRunFinished(result *models.RunResult, summary models.Summary) error {
	text := fmt.Sprintf(
		"✅ Scrape finished for DOI %s\n\n"+
			"Pages: %d\n"+
			"Reactions: %d\n"+
			"Unique reactants: %d\n"+
			"Unique products: %d\n"+
			"Stop reason: %s",
		result.DOI, result.PagesLoaded, summary.TotalReactions,
		summary.UniqueReactants, summary.UniqueProducts, result.StopReason)
	return n.send(text)
}

// NotifyRunFailed reports a failed run.
func (n *Notifier) NotifyRunFailed(doi string, err error) error {
	return n.send(fmt.Sprintf("❌ Scrape failed for DOI %s: %v", doi, err))
}

func (n *Notifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
