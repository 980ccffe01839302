package services

import (
	"context"
	"log"
	"time"

	"cat-game-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskService struct {
	DB     *gorm.DB
	Ledger *Ledger
}

func NewTaskService(db *gorm.DB, ledger *Ledger) *TaskService {
	return &TaskService{DB: db, Ledger: ledger}
}

// TaskView is one task as the player sees it.
type TaskView struct {
	TaskID      string `json:"task_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Reward      int64  `json:"reward"`
	Icon        string `json:"icon"`
	Link        string `json:"link"`
	IsCompleted bool   `json:"is_completed"`
}

type ToggleResult struct {
	TaskView
	Rewarded int64 `json:"rewarded"`
	Balance  int64 `json:"balance"`
}

// List returns every task with the caller's completion state, creating the
// missing completion rows on the way.
func (s *TaskService) List(ctx context.Context, profileID string) ([]TaskView, error) {
	db := s.DB.WithContext(ctx)

	var tasks []models.Task
	if err := db.Find(&tasks).Error; err != nil {
		return nil, err
	}
	if len(tasks) > 0 {
		rows := make([]models.TaskCompletion, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, models.TaskCompletion{ProfileID: profileID, TaskID: t.ID})
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return nil, err
		}
	}

	var completions []models.TaskCompletion
	if err := db.Joins("Task").
		Where("task_completions.profile_id = ?", profileID).
		Order("task_completions.is_completed DESC").
		Order(`"Task"."name"`).
		Find(&completions).Error; err != nil {
		return nil, err
	}

	views := make([]TaskView, 0, len(completions))
	for _, c := range completions {
		views = append(views, taskView(&c.Task, c.IsCompleted))
	}
	return views, nil
}

// Toggle sets the completion flag to completed. Setting the state the task
// already has changes nothing, so a retried request is safe. The first
// completion pays the reward; unmarking never refunds and re-marking never
// pays again.
func (s *TaskService) Toggle(ctx context.Context, profileID, taskID string, completed bool) (*ToggleResult, error) {
	if err := checkID("task_id", taskID); err != nil {
		return nil, err
	}

	var result ToggleResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", taskID).
			First(&task).Error; err != nil {
			return notFoundAs(err, NotFound("task"))
		}

		completion := models.TaskCompletion{ProfileID: profileID, TaskID: task.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&completion).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("profile_id = ? AND task_id = ?", profileID, task.ID).
			First(&completion).Error; err != nil {
			return err
		}

		changed := completion.IsCompleted != completed
		updates := map[string]any{"is_completed": completed}

		var rewarded int64
		if changed && completed && completion.RewardedAt == nil {
			if task.MaxUsers != nil {
				var paid int64
				if err := tx.Model(&models.TaskCompletion{}).
					Where("task_id = ? AND rewarded_at IS NOT NULL", task.ID).
					Count(&paid).Error; err != nil {
					return err
				}
				if paid >= int64(*task.MaxUsers) {
					return ErrTaskLimitReached
				}
			}
			updates["rewarded_at"] = time.Now()
			rewarded = task.Reward
		}

		if changed {
			if err := tx.Model(&completion).Updates(updates).Error; err != nil {
				return err
			}
		}

		balance, err := s.Ledger.Payout(tx, profileID, rewarded, models.LedgerReasonTask)
		if err != nil {
			return err
		}
		if rewarded > 0 {
			log.Printf("✅ [TASK] profile %s completed %q, +%d", profileID, task.Name, rewarded)
		}

		result = ToggleResult{TaskView: taskView(&task, completed), Rewarded: rewarded, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func taskView(t *models.Task, completed bool) TaskView {
	return TaskView{
		TaskID:      t.ID,
		Name:        t.Name,
		Description: t.Description,
		Reward:      t.Reward,
		Icon:        t.Icon,
		Link:        t.Link,
		IsCompleted: completed,
	}
}
