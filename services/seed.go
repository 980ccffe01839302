package services

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"os"

	"cat-game-backend/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed seed_defaults.yaml
var defaultSeed []byte

type SeedData struct {
	DailyRewards []struct {
		Day    int   `yaml:"day"`
		Amount int64 `yaml:"amount"`
	} `yaml:"daily_rewards"`
	Referral *struct {
		RewardForActivation int64 `yaml:"reward_for_activation"`
	} `yaml:"referral"`
	Rules []struct {
		Category string `yaml:"category"`
		Icon     string `yaml:"icon"`
		Text     string `yaml:"text"`
	} `yaml:"rules"`
	Tasks []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Reward      int64  `yaml:"reward"`
		Icon        string `yaml:"icon"`
		Link        string `yaml:"link"`
		MaxUsers    *int   `yaml:"max_users"`
	} `yaml:"tasks"`
	Quiz []struct {
		Question string   `yaml:"question"`
		Answers  []string `yaml:"answers"`
		Correct  int      `yaml:"correct"`
		Reward   int64    `yaml:"reward"`
	} `yaml:"quiz"`
	AdsgramBlocks []string `yaml:"adsgram_blocks"`
}

// ParseSeed decodes a seed document and checks the values that the schema
// cannot.
func ParseSeed(data []byte) (*SeedData, error) {
	var seed SeedData
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	for _, d := range seed.DailyRewards {
		if d.Day < 1 || d.Day > models.MaxDailyRewardDay {
			return nil, fmt.Errorf("invalid seed file: daily reward day %d out of range", d.Day)
		}
	}
	for _, q := range seed.Quiz {
		if len(q.Answers) == 0 {
			return nil, fmt.Errorf("invalid seed file: question %q has no answers", q.Question)
		}
	}
	return &seed, nil
}

// Seed loads the built-in defaults and then the optional extra file.
func Seed(ctx context.Context, db *gorm.DB, extraFile string) error {
	docs := [][]byte{defaultSeed}
	if extraFile != "" {
		data, err := os.ReadFile(extraFile)
		if err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}
		docs = append(docs, data)
	}

	for _, doc := range docs {
		seed, err := ParseSeed(doc)
		if err != nil {
			return err
		}
		if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return applySeed(tx, seed)
		}); err != nil {
			return err
		}
	}
	log.Println("🌱 Seed data applied")
	return nil
}

func applySeed(tx *gorm.DB, seed *SeedData) error {
	for _, d := range seed.DailyRewards {
		row := models.DailyReward{DayNumber: d.Day, RewardAmount: d.Amount}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day_number"}},
			DoNothing: true,
		}).Create(&row).Error; err != nil {
			return err
		}
	}

	if seed.Referral != nil {
		var cfg models.ReferralProgramConfig
		if err := tx.Attrs(models.ReferralProgramConfig{RewardForActivation: seed.Referral.RewardForActivation}).
			FirstOrCreate(&cfg).Error; err != nil {
			return err
		}
	}

	for _, r := range seed.Rules {
		row := models.RuleCategory{Category: r.Category, Icon: r.Icon, RuleText: r.Text}
		if err := tx.Where(models.RuleCategory{Category: r.Category}).FirstOrCreate(&row).Error; err != nil {
			return err
		}
	}

	for _, t := range seed.Tasks {
		row := models.Task{Name: t.Name, Description: t.Description, Reward: t.Reward, Icon: t.Icon, Link: t.Link, MaxUsers: t.MaxUsers}
		if err := tx.Where(models.Task{Name: t.Name}).FirstOrCreate(&row).Error; err != nil {
			return err
		}
	}

	for _, q := range seed.Quiz {
		row := models.QuizQuestion{QuestionText: q.Question, Answers: q.Answers, CorrectAnswerIndex: q.Correct, Reward: q.Reward}
		if err := tx.Where(models.QuizQuestion{QuestionText: q.Question}).FirstOrCreate(&row).Error; err != nil {
			return err
		}
	}

	for _, id := range seed.AdsgramBlocks {
		row := models.AdsgramBlock{BlockID: id, IsActive: true}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "block_id"}},
			DoNothing: true,
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
