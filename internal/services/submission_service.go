package services

import (
	"encoding/json"
	"math"
	"math/rand"
	"strings"
	"time"

	"crowdtask_backend/internal/logger"
	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/repositories"
	"crowdtask_backend/internal/services/dto"
	"crowdtask_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Параметры пайплайна валидации сабмишенов
const (
	// Допуск к номинальному минимуму времени: 60% терпит честную
	// вариативность, но режет явно торопливые сабмишены
	minElapsedFraction = 0.6

	gibberishRunLength  = 6  // подряд одинаковых символов
	minAnswerRuneCount  = 10 // минимальная длина осмысленного ответа
	duplicateCheckLen   = 20 // ответы короче не сравниваются на дубликаты
	duplicateContainLen = 30 // containment-матч только для длинных строк

	spotCheckProbability = 0.10
)

// Веса итогового quality score
const (
	weightClientScore = 0.50
	weightTime        = 0.20
	weightText        = 0.15
	weightDistinct    = 0.15
)

// Сообщения пользователю по категориям отклонения.
// Наружу всегда уходит человекочитаемый текст, не внутренняя ошибка.
var rejectionMessages = map[string]string{
	models.RejectionDuplicate:  "Your answers closely match another submission for this campaign.",
	models.RejectionTooFast:    "Please take more time to thoughtfully answer each question.",
	models.RejectionGibberish:  "Please provide meaningful, detailed answers to each question.",
	models.RejectionLowQuality: "Your submission did not meet the quality bar for this campaign.",
}

const acceptedMessage = "Submission accepted. Thank you for your work!"

// SubmissionService - валидатор сабмишенов. Каждая задача проходит
// валидацию строго один раз: in_progress -> submitted | rejected.
type SubmissionService interface {
	Submit(db *gorm.DB, taskID, callerID string, req *dto.SubmitTaskRequest) (*dto.SubmitTaskResponse, error)
	GetTask(db *gorm.DB, taskID, callerID string) (*dto.TaskResponse, error)
	ListParticipantTasks(db *gorm.DB, participantID string, limit, offset int) ([]dto.TaskResponse, error)
}

type submissionService struct {
	taskRepo      repositories.TaskRepository
	campaignRepo  repositories.CampaignRepository
	profileRepo   repositories.ProfileRepository
	notifications NotificationService

	// Инжектируются в тестах для детерминизма
	now       func() time.Time
	randFloat func() float64
}

func NewSubmissionService(
	taskRepo repositories.TaskRepository,
	campaignRepo repositories.CampaignRepository,
	profileRepo repositories.ProfileRepository,
	notifications NotificationService,
) SubmissionService {
	return &submissionService{
		taskRepo:      taskRepo,
		campaignRepo:  campaignRepo,
		profileRepo:   profileRepo,
		notifications: notifications,
		now:           time.Now,
		randFloat:     rand.Float64,
	}
}

func (s *submissionService) Submit(db *gorm.DB, taskID, callerID string, req *dto.SubmitTaskRequest) (*dto.SubmitTaskResponse, error) {
	task, err := s.taskRepo.FindByID(db, taskID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}

	if task.ParticipantID != callerID {
		return nil, apperrors.NewForbiddenError("Task belongs to another participant")
	}
	if task.IsDecided() {
		return nil, apperrors.ErrTaskAlreadyDecided
	}

	campaign, err := s.campaignRepo.FindByID(db, task.CampaignID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}

	// Время считается от серверного старта задачи: клиентским часам
	// в одиночку не доверяем
	submittedAt := s.now()
	serverElapsed := int(submittedAt.Sub(task.StartedAt).Seconds())
	timeOk := float64(serverElapsed) >= minElapsedFraction*float64(campaign.TaskMinSeconds)

	textOk := allResponsesMeaningful(req.Responses)

	duplicate, err := s.isDuplicate(db, task, req.Responses)
	if err != nil {
		return nil, err
	}

	clientPassed := true
	clientScore := 0.0
	var clientFlags []string
	if req.ClientQuality != nil {
		if req.ClientQuality.Passed != nil {
			clientPassed = *req.ClientQuality.Passed
		}
		if req.ClientQuality.Score != nil {
			clientScore = clampUnit(*req.ClientQuality.Score)
		}
		clientFlags = req.ClientQuality.Flags
	}

	// Конъюнкция всех четырех сигналов: любой единичный провал отклоняет
	accepted := clientPassed && timeOk && textOk && !duplicate

	score := qualityScore(clientScore, timeOk, textOk, duplicate)

	category, message := verdictOutcome(accepted, duplicate, timeOk, textOk, clientFlags)

	var payoutAmount int64
	status := models.TaskStatusRejected
	if accepted {
		status = models.TaskStatusSubmitted
		payoutAmount = campaign.PerTaskPaise
	}

	// Spot-check только для принятых работ, равномерная выборка
	spotCheck := accepted && s.randFloat() < spotCheckProbability

	responsesJSON, err := json.Marshal(req.Responses)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	verdict := repositories.TaskVerdict{
		Status:            status,
		Responses:         datatypes.JSON(responsesJSON),
		TimeSpentSeconds:  serverElapsed,
		SubmittedAt:       submittedAt,
		QualityScore:      score,
		RejectionCategory: category,
		RejectionReason:   message,
		PayoutAmountPaise: payoutAmount,
		SpotCheck:         spotCheck,
	}
	if accepted {
		verdict.RejectionCategory = ""
		verdict.RejectionReason = ""
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		applied, err := s.taskRepo.ApplyVerdict(tx, task.ID, verdict)
		if err != nil {
			return err
		}
		if !applied {
			// Параллельный сабмит успел первым
			return apperrors.ErrTaskAlreadyDecided
		}

		if _, err := s.profileRepo.ApplyVerdict(tx, task.ParticipantID, accepted); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifySubmissionResult(db, task, accepted, message)

	return &dto.SubmitTaskResponse{
		Accepted:     accepted,
		Reason:       category,
		Message:      message,
		QualityScore: score,
	}, nil
}

func (s *submissionService) GetTask(db *gorm.DB, taskID, callerID string) (*dto.TaskResponse, error) {
	task, err := s.taskRepo.FindByID(db, taskID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}
	if task.ParticipantID != callerID {
		return nil, apperrors.NewForbiddenError("Task belongs to another participant")
	}
	return dto.NewTaskResponse(task), nil
}

func (s *submissionService) ListParticipantTasks(db *gorm.DB, participantID string, limit, offset int) ([]dto.TaskResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	tasks, err := s.taskRepo.FindByParticipant(db, participantID, limit, offset)
	if err != nil {
		return nil, err
	}

	resp := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, *dto.NewTaskResponse(&tasks[i]))
	}
	return resp, nil
}

// isDuplicate сравнивает длинные ответы с одноименными полями других задач
// кампании в статусах submitted/approved/paid (занятые ответы).
// Матч: точное равенство без учета регистра и краевых пробелов, либо
// containment, когда контейнер длиннее duplicateContainLen.
func (s *submissionService) isDuplicate(db *gorm.DB, task *models.Task, responses map[string]string) (bool, error) {
	candidates := make(map[string]string)
	for field, value := range responses {
		norm := normalizeAnswer(value)
		// Пороги длины считаются в рунах, как и остальные эвристики
		if len([]rune(norm)) > duplicateCheckLen {
			candidates[field] = norm
		}
	}
	if len(candidates) == 0 {
		return false, nil
	}

	others, err := s.taskRepo.FindAnsweredByCampaign(db, task.CampaignID, task.ID)
	if err != nil {
		return false, err
	}

	for i := range others {
		if len(others[i].Responses) == 0 {
			continue
		}
		var otherResponses map[string]string
		if err := json.Unmarshal(others[i].Responses, &otherResponses); err != nil {
			logger.WithError(err).Warn("Skipping task with unreadable responses", "task_id", others[i].ID)
			continue
		}

		for field, norm := range candidates {
			otherNorm := normalizeAnswer(otherResponses[field])
			if otherNorm == "" {
				continue
			}
			if norm == otherNorm {
				return true, nil
			}
			if len([]rune(norm)) > duplicateContainLen && strings.Contains(norm, otherNorm) {
				return true, nil
			}
			if len([]rune(otherNorm)) > duplicateContainLen && strings.Contains(otherNorm, norm) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *submissionService) notifySubmissionResult(db *gorm.DB, task *models.Task, accepted bool, message string) {
	title := "Submission accepted"
	if !accepted {
		title = "Submission rejected"
	}
	s.notifications.Emit(db, task.ParticipantID,
		repositories.NotificationTypeSubmissionResult,
		title,
		message,
		map[string]interface{}{"campaign_id": task.CampaignID, "task_id": task.ID, "accepted": accepted})
}

// allResponsesMeaningful - текстовая эвристика: каждый строковый ответ
// без рун-повторов (gibberish) и не короче минимальной длины.
func allResponsesMeaningful(responses map[string]string) bool {
	for _, value := range responses {
		if hasCharacterRun(value, gibberishRunLength) {
			return false
		}
		if len([]rune(strings.TrimSpace(value))) < minAnswerRuneCount {
			return false
		}
	}
	return true
}

func hasCharacterRun(s string, runLength int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run >= runLength {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func qualityScore(clientScore float64, timeOk, textOk, duplicate bool) int {
	total := weightClientScore * clientScore
	if timeOk {
		total += weightTime
	}
	if textOk {
		total += weightText
	}
	if !duplicate {
		total += weightDistinct
	}
	return int(math.Round(100 * total))
}

// verdictOutcome выбирает категорию отклонения по приоритету
// (самая специфичная причина наружу) и сообщение пользователю.
func verdictOutcome(accepted, duplicate, timeOk, textOk bool, clientFlags []string) (string, string) {
	if accepted {
		return "", acceptedMessage
	}

	switch {
	case duplicate:
		return models.RejectionDuplicate, rejectionMessages[models.RejectionDuplicate]
	case !timeOk:
		return models.RejectionTooFast, rejectionMessages[models.RejectionTooFast]
	case !textOk:
		return models.RejectionGibberish, rejectionMessages[models.RejectionGibberish]
	case len(clientFlags) > 0:
		return clientFlags[0], "Your submission was flagged by quality checks: " + clientFlags[0] + "."
	default:
		return models.RejectionLowQuality, rejectionMessages[models.RejectionLowQuality]
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
