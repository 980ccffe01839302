package models

// All lists every table, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Profile{},
		&ReferralProgramConfig{},
		&CoinTransaction{},
		&PromoCode{},
		&PromoCodeRedemption{},
		&Task{},
		&TaskCompletion{},
		&QuizQuestion{},
		&QuizAttempt{},
		&SimulationConfig{},
		&SimulationRewardClaim{},
		&AdReward{},
		&DailyReward{},
		&DailyRewardClaim{},
		&Failure{},
		&FailureRun{},
		&FailureBan{},
		&ScoreEntry{},
		&AdsgramAssignment{},
		&AdsgramBlock{},
		&RuleCategory{},
		&AdvertisementButton{},
		&AdvertisementClaim{},
		&FrontendConfig{},
		&FailureWebhookEvent{},
	}
}
