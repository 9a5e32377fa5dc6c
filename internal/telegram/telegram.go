package telegram

// Client is the operator notification channel. Delivery outcomes, retry
// exhaustion and the daily digest all land here.
type Client interface {
	SendMessage(chatID int64, text string) (int, error)
	SendMessageToOperator(text string)
}
