package email

// Provider - отправка email-уведомлений.
// Все вызовы best-effort: ошибки отправки логируются и никогда
// не прерывают бизнес-операцию.
type Provider interface {
	Send(to, subject, body string) error
}
