package services

import (
	"context"
	"strings"

	"cat-game-backend/models"

	"gorm.io/gorm"
)

const (
	defaultQuizCount = 5
	maxQuizCount     = 20
)

type QuizService struct {
	DB     *gorm.DB
	Ledger *Ledger
}

func NewQuizService(db *gorm.DB, ledger *Ledger) *QuizService {
	return &QuizService{DB: db, Ledger: ledger}
}

// QuestionView hides the correct answer from the client.
type QuestionView struct {
	ID           string   `json:"id"`
	QuestionText string   `json:"question_text"`
	Answers      []string `json:"answers"`
	Reward       int64    `json:"reward"`
}

type QuizAnswer struct {
	QuestionID     string `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
}

type QuizSubmission struct {
	Mode    string       `json:"mode"`
	Answers []QuizAnswer `json:"answers"`
}

type QuizResult struct {
	Mode           string `json:"mode"`
	CorrectAnswers int    `json:"correct_answers"`
	TotalQuestions int    `json:"total_questions"`
	Reward         int64  `json:"reward"`
	Balance        int64  `json:"balance"`
}

// Latest returns the most recently added question.
func (s *QuizService) Latest(ctx context.Context) (*QuestionView, error) {
	var q models.QuizQuestion
	if err := s.DB.WithContext(ctx).Order("created_at DESC").First(&q).Error; err != nil {
		return nil, notFoundAs(err, NotFound("quiz question"))
	}
	v := questionView(&q)
	return &v, nil
}

// ClampQuizCount applies the default and the upper bound to a requested count.
func ClampQuizCount(n int) int {
	switch {
	case n <= 0:
		return defaultQuizCount
	case n > maxQuizCount:
		return maxQuizCount
	}
	return n
}

func (s *QuizService) Random(ctx context.Context, count int) ([]QuestionView, error) {
	var questions []models.QuizQuestion
	if err := s.DB.WithContext(ctx).
		Order("RANDOM()").
		Limit(ClampQuizCount(count)).
		Find(&questions).Error; err != nil {
		return nil, err
	}
	views := make([]QuestionView, 0, len(questions))
	for i := range questions {
		views = append(views, questionView(&questions[i]))
	}
	return views, nil
}

// ScoreQuiz grades answers against questions keyed by id. A question
// answered more than once counts only for its first answer; unknown ids
// count as wrong.
func ScoreQuiz(questions map[string]models.QuizQuestion, answers []QuizAnswer) (correct, total int, reward int64) {
	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		if seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		total++

		q, ok := questions[a.QuestionID]
		if !ok {
			continue
		}
		want, ok := q.CorrectAnswer()
		if ok && strings.TrimSpace(a.SelectedAnswer) == strings.TrimSpace(want) {
			correct++
			reward += q.Reward
		}
	}
	return correct, total, reward
}

// Submit grades a submission, records the attempt and credits the reward.
func (s *QuizService) Submit(ctx context.Context, profileID string, sub QuizSubmission) (*QuizResult, error) {
	if len(sub.Answers) == 0 {
		return nil, Validation("answers are required")
	}
	mode := strings.TrimSpace(sub.Mode)
	if mode == "" {
		mode = "quiz"
	}

	ids := make([]string, 0, len(sub.Answers))
	for _, a := range sub.Answers {
		if a.QuestionID == "" {
			return nil, Validation("question_id is required")
		}
		if err := checkID("question_id", a.QuestionID); err != nil {
			return nil, err
		}
		ids = append(ids, a.QuestionID)
	}

	var result QuizResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var questions []models.QuizQuestion
		if err := tx.Where("id IN ?", ids).Find(&questions).Error; err != nil {
			return err
		}
		byID := make(map[string]models.QuizQuestion, len(questions))
		for _, q := range questions {
			byID[q.ID] = q
		}

		correct, total, reward := ScoreQuiz(byID, sub.Answers)
		attempt := models.QuizAttempt{
			ProfileID:      profileID,
			Mode:           mode,
			CorrectAnswers: correct,
			TotalQuestions: total,
			Reward:         reward,
		}
		if err := tx.Create(&attempt).Error; err != nil {
			return err
		}

		balance, err := s.Ledger.Payout(tx, profileID, reward, models.LedgerReasonQuiz)
		if err != nil {
			return err
		}
		result = QuizResult{Mode: mode, CorrectAnswers: correct, TotalQuestions: total, Reward: reward, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// History lists the caller's quiz attempts, newest first.
func (s *QuizService) History(ctx context.Context, profileID string) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	err := s.DB.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Find(&attempts).Error
	return attempts, err
}

func questionView(q *models.QuizQuestion) QuestionView {
	return QuestionView{ID: q.ID, QuestionText: q.QuestionText, Answers: q.Answers, Reward: q.Reward}
}
