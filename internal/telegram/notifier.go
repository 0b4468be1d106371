package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"congress-alpha/internal/config"
	"congress-alpha/internal/logger"
	"congress-alpha/internal/storage"
)

type Notifier struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	enabled bool
	logger  *logger.Logger
}

func NewNotifier(cfg *config.Config, log *logger.Logger) *Notifier {
	if !cfg.Telegram.Enabled {
		return &Notifier{enabled: false, logger: log}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return &Notifier{enabled: false, logger: log}
	}

	log.Info("telegram bot connected", "username", bot.Self.UserName)

	return &Notifier{
		bot:     bot,
		chatID:  cfg.Telegram.ChatID,
		enabled: true,
		logger:  log,
	}
}

func (n *Notifier) NotifyBuy(ticker string, shares, price float64) {
	msg := fmt.Sprintf("🟢 *BUY* %s\nShares: %v\nPrice: $%.2f\nValue: $%.2f",
		ticker, shares, price, shares*price)
	n.send(msg)
}

func (n *Notifier) NotifySell(ticker string, shares, price, pnl float64) {
	emoji := "🔴"
	if pnl > 0 {
		emoji = "💰"
	}
	msg := fmt.Sprintf("%s *SELL* %s\nShares: %v\nPrice: $%.2f\nP&L: $%.2f",
		emoji, ticker, shares, price, pnl)
	n.send(msg)
}

func (n *Notifier) NotifyAwaitingConfirmation(s *storage.Signal) {
	msg := fmt.Sprintf("⏳ *Confirmation needed*\n%s %s by %s\nDisclosed amount: $%.0f\nLag: %d days",
		s.TradeType, s.Ticker, s.Politician, s.AmountMidpoint, s.LagDays)
	n.send(msg)
}

func (n *Notifier) NotifyError(context string, err error) {
	msg := fmt.Sprintf("⚠️ *Error* [%s]\n%v", context, err)
	n.send(msg)
}

func (n *Notifier) NotifyStatus(message string) {
	n.send(message)
}

func (n *Notifier) send(text string) {
	if !n.enabled {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("send telegram message", "error", err)
	}
}
