package apperrors

import (
	"net/http"
)

/*
Фабрики и предопределенные переменные для ошибок бизнес-логики
платежного и расчетного контура.
*/

// ErrNotFound - фабрика для ошибки "не найдено" (404).
// Используется, когда ошибка репозитория (типа gorm.ErrRecordNotFound)
// должна быть преобразована в AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists - фабрика для ошибки "уже существует" (409)
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrInvalidState - операция невозможна в текущем состоянии сущности (409)
func ErrInvalidState(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusConflict)
}

// ErrUpstreamFailure - внешний платежный шлюз вернул ошибку или неуспех (502)
func ErrUpstreamFailure(err error, domain, message string) *AppError {
	return Wrap(err, CodeExternalServiceError, domain, message, http.StatusBadGateway)
}

// --- Auth ---

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

// ErrInsufficientPermissions - не-оператор пытается выполнить операторское действие
var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// --- Escrow / платежи ---

// ErrNoAuthorization - у кампании нет живой платежной авторизации для capture
var ErrNoAuthorization = New(
	CodeNoAuthorization,
	"escrow",
	"Campaign has no payment authorization to capture",
	http.StatusConflict,
)

// ErrCaptureFailed - шлюз сообщил о неуспехе capture; состояние кампании не изменено
var ErrCaptureFailed = New(
	CodeCaptureFailed,
	"escrow",
	"Payment capture was not confirmed by the gateway",
	http.StatusBadGateway,
)

// ErrBadWebhookSignature - подпись события от шлюза не сошлась
var ErrBadWebhookSignature = New(
	CodeBadSignature,
	"webhook",
	"Webhook signature verification failed",
	http.StatusBadRequest,
)

// --- Кампании и задачи ---

// ErrCampaignNotDraft - авторизация оплаты возможна только для draft-кампании
var ErrCampaignNotDraft = ErrInvalidState("campaign", "Campaign is not in draft status")

// ErrNoCreatorAssigned - кампанию без назначенного креатора нельзя финансировать
var ErrNoCreatorAssigned = ErrInvalidState("campaign", "Campaign has no creator assigned")

// ErrCampaignNotActive - операция возможна только для активной кампании
var ErrCampaignNotActive = ErrInvalidState("campaign", "Campaign is not active")

// ErrCampaignNotCompleted - выплаты возможны только по завершенной кампании
var ErrCampaignNotCompleted = ErrInvalidState("campaign", "Campaign is not completed")

// ErrCampaignFull - набор участников уже закрыт
var ErrCampaignFull = ErrInvalidState("campaign", "Campaign has reached its participant target")

// ErrTaskAlreadyDecided - задача уже прошла валидацию, повторная невозможна
var ErrTaskAlreadyDecided = ErrInvalidState("submission", "Task submission has already been decided")

// ErrTaskNotSubmitted - ревью возможно только для задач в статусе submitted
var ErrTaskNotSubmitted = ErrInvalidState("review", "Task is not awaiting review")

// ErrAlreadyJoined - задача для пары (кампания, участник) уже существует
var ErrAlreadyJoined = New(
	CodeAlreadyExists,
	"campaign",
	"Participant has already joined this campaign",
	http.StatusConflict,
)
