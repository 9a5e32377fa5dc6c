package telegramimpl

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SendMessage delivers a plain-text notice to one chat. Post owners get
// their delivery outcomes through this path.
func (tg *TelegramImpl) SendMessage(chatID int64, text string) (int, error) {
	sent, err := tg.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		tg.logger.Error("Owner notice failed", "chatID", chatID, "error", err)
		return 0, fmt.Errorf("telegram: send to chat %d: %w", chatID, err)
	}

	tg.logger.Debug("Owner notice sent", "chatID", chatID, "messageID", sent.MessageID)
	return sent.MessageID, nil
}

// SendMessageToOperator delivers a plain-text notice to the operator chat.
// Retry warnings and the queue digest land here. Failures are logged and
// swallowed so a flaky operator chat never stalls the scheduler.
func (tg *TelegramImpl) SendMessageToOperator(text string) {
	operator := tg.config.Telegram.User
	if _, err := tg.bot.Send(tgbotapi.NewMessage(operator, text)); err != nil {
		tg.logger.Error("Operator notice failed", "chatID", operator, "error", err)
		return
	}

	tg.logger.Debug("Operator notice sent", "chatID", operator)
}
