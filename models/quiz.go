package models

type QuizQuestion struct {
	ID                 string   `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	QuestionText       string   `gorm:"type:text;not null" json:"question_text"`
	Answers            []string `gorm:"type:jsonb;serializer:json" json:"answers"`
	CorrectAnswerIndex int      `gorm:"not null;default:0" json:"correct_answer_index"`
	Reward             int64    `gorm:"not null;default:0" json:"reward"`

	Timestamps
}

// CorrectAnswer falls back to the first answer when the stored index is out of range.
func (q *QuizQuestion) CorrectAnswer() (string, bool) {
	if len(q.Answers) == 0 {
		return "", false
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Answers) {
		return q.Answers[0], true
	}
	return q.Answers[q.CorrectAnswerIndex], true
}

type QuizAttempt struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProfileID      string `gorm:"type:uuid;index;not null" json:"profile_id"`
	Mode           string `gorm:"size:32;not null;default:'quiz'" json:"mode"`
	CorrectAnswers int    `gorm:"not null;default:0" json:"correct_answers"`
	TotalQuestions int    `gorm:"not null;default:0" json:"total_questions"`
	Reward         int64  `gorm:"not null;default:0" json:"reward"`

	Timestamps
}
