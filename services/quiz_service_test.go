package services

import (
	"context"
	"errors"
	"testing"

	"cat-game-backend/models"
)

func TestScoreQuiz(t *testing.T) {
	questions := map[string]models.QuizQuestion{
		"q1": {ID: "q1", Answers: []string{"Meow", "Woof"}, CorrectAnswerIndex: 0, Reward: 10},
		"q2": {ID: "q2", Answers: []string{"Red", "Blue"}, CorrectAnswerIndex: 1, Reward: 20},
		"q3": {ID: "q3", Answers: []string{"Fallback", "Other"}, CorrectAnswerIndex: 9, Reward: 5},
	}

	tests := []struct {
		name        string
		answers     []QuizAnswer
		wantCorrect int
		wantTotal   int
		wantReward  int64
	}{
		{
			name:        "all correct",
			answers:     []QuizAnswer{{"q1", "Meow"}, {"q2", "Blue"}},
			wantCorrect: 2, wantTotal: 2, wantReward: 30,
		},
		{
			name:        "selected text is trimmed",
			answers:     []QuizAnswer{{"q1", "  Meow "}},
			wantCorrect: 1, wantTotal: 1, wantReward: 10,
		},
		{
			name:        "duplicate question counts once",
			answers:     []QuizAnswer{{"q1", "Meow"}, {"q1", "Meow"}, {"q1", "Woof"}},
			wantCorrect: 1, wantTotal: 1, wantReward: 10,
		},
		{
			name:        "out of range index falls back to first answer",
			answers:     []QuizAnswer{{"q3", "Fallback"}},
			wantCorrect: 1, wantTotal: 1, wantReward: 5,
		},
		{
			name:        "unknown question is wrong",
			answers:     []QuizAnswer{{"missing", "Meow"}, {"q2", "Red"}},
			wantCorrect: 0, wantTotal: 2, wantReward: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correct, total, reward := ScoreQuiz(questions, tt.answers)
			if correct != tt.wantCorrect || total != tt.wantTotal || reward != tt.wantReward {
				t.Errorf("got (%d, %d, %d), want (%d, %d, %d)",
					correct, total, reward, tt.wantCorrect, tt.wantTotal, tt.wantReward)
			}
		})
	}
}

func TestClampQuizCount(t *testing.T) {
	tests := map[int]int{-1: 5, 0: 5, 1: 1, 7: 7, 20: 20, 21: 20, 1000: 20}
	for in, want := range tests {
		if got := ClampQuizCount(in); got != want {
			t.Errorf("ClampQuizCount(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestQuizSubmit_RejectsBadInput(t *testing.T) {
	const validID = "3f1d2c4b-8a6e-4b7d-9c05-1e2f3a4b5c6d"

	tests := []struct {
		name    string
		answers []QuizAnswer
	}{
		{"no answers", nil},
		{"missing question id", []QuizAnswer{{SelectedAnswer: "Meow"}}},
		{"non-uuid question id", []QuizAnswer{{QuestionID: "42", SelectedAnswer: "Meow"}}},
		{"one bad id among good ones", []QuizAnswer{
			{QuestionID: validID, SelectedAnswer: "Meow"},
			{QuestionID: "q2", SelectedAnswer: "Blue"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			svc := NewQuizService(db, NewLedger(db))

			_, err := svc.Submit(context.Background(), "p1", QuizSubmission{Answers: tt.answers})
			var appErr *Error
			if !errors.As(err, &appErr) || appErr.Kind != KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unexpected queries: %v", err)
			}
		})
	}
}
