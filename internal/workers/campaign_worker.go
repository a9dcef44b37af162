package workers

import (
	"context"
	"time"

	"crowdtask_backend/internal/logger"
	"crowdtask_backend/internal/repositories"
	"crowdtask_backend/internal/services"

	"gorm.io/gorm"
)

// CampaignWorker закрывает кампании, набравшие целевое число участников.
type CampaignWorker struct {
	db              *gorm.DB
	campaignRepo    repositories.CampaignRepository
	campaignService services.CampaignService
	interval        time.Duration
}

func NewCampaignWorker(db *gorm.DB, campaignService services.CampaignService) *CampaignWorker {
	return &CampaignWorker{
		db:              db,
		campaignRepo:    repositories.NewCampaignRepository(),
		campaignService: campaignService,
		interval:        1 * time.Minute,
	}
}

// Start запускает фоновые задачи для кампаний
func (w *CampaignWorker) Start(ctx context.Context) {
	go w.autoCompleteCampaigns(ctx)
}

// autoCompleteCampaigns переводит заполненные активные кампании в completed.
// CAS внутри CompleteCampaign делает гонку с оператором безопасной.
func (w *CampaignWorker) autoCompleteCampaigns(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Campaign worker stopped")
			return
		case <-ticker.C:
			w.completeFullCampaigns()
		}
	}
}

func (w *CampaignWorker) completeFullCampaigns() {
	campaigns, err := w.campaignRepo.FindFull(w.db)
	if err != nil {
		logger.WorkerLog("campaign_worker", "find_full_campaigns", err)
		return
	}

	for _, campaign := range campaigns {
		if _, err := w.campaignService.CompleteCampaign(w.db, campaign.ID); err != nil {
			logger.WorkerLog("campaign_worker", "complete_campaign", err)
			continue
		}
		logger.Info("Campaign auto-completed", "campaign_id", campaign.ID)
	}
}
