package notify

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"transferdash/internal/core"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends notifications to one chat.
type Telegram struct {
	bot    sender
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create Telegram bot: %w", err)
	}
	bot.Debug = false
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (n *Telegram) TransferCompleted(_ context.Context, t core.Transfer) error {
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, FormatTransfer(t))); err != nil {
		return fmt.Errorf("send transfer notification: %w", err)
	}
	return nil
}

// DailySummary sends the digest and, when csv is not empty, attaches it.
func (n *Telegram) DailySummary(_ context.Context, day time.Time, s core.DashboardStats, csv []byte) error {
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, FormatDailySummary(day, s))); err != nil {
		return fmt.Errorf("send daily summary: %w", err)
	}
	if len(csv) == 0 {
		return nil
	}

	doc := tgbotapi.NewDocument(n.chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("transferencias_%s.csv", day.Format("2006-01-02")),
		Bytes: csv,
	})
	doc.Caption = fmt.Sprintf("💾 %d transferencias, %s total", s.TotalTransactions, s.TotalAmount.StringFixed(2))
	if _, err := n.bot.Send(doc); err != nil {
		return fmt.Errorf("send daily csv: %w", err)
	}
	return nil
}
