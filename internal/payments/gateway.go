package payments

import "context"

// Состояния платежной авторизации на стороне шлюза
type AuthorizationState string

const (
	AuthStateCreated    AuthorizationState = "created"
	AuthStateAuthorized AuthorizationState = "authorized"
	AuthStateCaptured   AuthorizationState = "captured"
	AuthStateFailed     AuthorizationState = "failed"
	AuthStateRefunded   AuthorizationState = "refunded"
	AuthStateExpired    AuthorizationState = "expired"
)

// Reusable - авторизация еще не captured и может быть переиспользована
// (перезагрузка платежной страницы не должна плодить новые авторизации)
func (s AuthorizationState) Reusable() bool {
	return s == AuthStateCreated || s == AuthStateAuthorized
}

// Authorization - резерв средств в шлюзе (деньги еще не списаны)
type Authorization struct {
	Ref          string             `json:"ref"`
	ClientSecret string             `json:"client_secret"`
	State        AuthorizationState `json:"state"`
	AmountPaise  int64              `json:"amount_paise"`
}

// CaptureResult - итог списания зарезервированных средств
type CaptureResult struct {
	Ref           string             `json:"ref"`
	State         AuthorizationState `json:"state"`
	CapturedPaise int64              `json:"captured_paise"`
}

// TransferResult - итог инициации исходящего перевода получателю
type TransferResult struct {
	Ref         string `json:"ref"`
	AmountPaise int64  `json:"amount_paise"`
}

// Gateway - клиент внешнего платежного шлюза.
// Любой вызов может иметь side-effect даже при сетевой ошибке,
// поэтому вызывающий код обязан быть идемпотентным по ref, а не по числу вызовов.
type Gateway interface {
	// Authorize резервирует amountPaise на счете плательщика
	Authorize(ctx context.Context, amountPaise int64, currency string, metadata map[string]string) (*Authorization, error)

	// Capture списывает ранее зарезервированную сумму целиком
	Capture(ctx context.Context, ref string, amountPaise int64) (*CaptureResult, error)

	// Retrieve возвращает текущее состояние авторизации
	Retrieve(ctx context.Context, ref string) (*Authorization, error)

	// Transfer инициирует исходящий перевод на реквизиты получателя
	Transfer(ctx context.Context, amountPaise int64, destination string, metadata map[string]string) (*TransferResult, error)
}
