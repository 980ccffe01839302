package services

import (
	"context"
	"errors"
	"log"
	"maps"
	"strconv"
	"strings"
	"time"

	"cat-game-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingAssignmentID = errors.New("response has no assignment id")

// AdsgramService tracks ad-view assignments handed out by the ad network.
type AdsgramService struct {
	DB                 *gorm.DB
	Client             AdsgramClient
	DefaultPlacementID string
	now                func() time.Time
}

func NewAdsgramService(db *gorm.DB, client AdsgramClient, defaultPlacementID string) *AdsgramService {
	return &AdsgramService{DB: db, Client: client, DefaultPlacementID: defaultPlacementID, now: time.Now}
}

// adsgramUserID is the id the ad network knows the player by: the Telegram
// id when linked, the profile id otherwise.
func (s *AdsgramService) adsgramUserID(db *gorm.DB, profileID string) (string, error) {
	var profile models.Profile
	if err := db.Select("id", "telegram_id").Where("id = ?", profileID).First(&profile).Error; err != nil {
		return "", notFoundAs(err, ErrProfileNotFound)
	}
	if profile.TelegramID != nil {
		return strconv.FormatInt(*profile.TelegramID, 10), nil
	}
	return profile.ID, nil
}

// Request asks the ad network for a new assignment and stores it as requested.
func (s *AdsgramService) Request(ctx context.Context, profileID, placementID string) (*models.AdsgramAssignment, error) {
	db := s.DB.WithContext(ctx)

	placementID = strings.TrimSpace(placementID)
	if placementID == "" {
		placementID = s.DefaultPlacementID
	}

	userID, err := s.adsgramUserID(db, profileID)
	if err != nil {
		return nil, err
	}

	payload, err := s.Client.RequestAssignment(ctx, userID, placementID)
	if err != nil {
		return nil, err
	}
	externalID := payload.AssignmentID()
	if externalID == "" {
		return nil, &IntegrationError{Service: adsgramService, Err: errMissingAssignmentID}
	}

	var assignment models.AdsgramAssignment
	err = db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("external_assignment_id = ?", externalID).
			First(&assignment).Error
		if err == nil {
			if assignment.ProfileID != profileID {
				return Conflict("assignment belongs to another profile")
			}
			assignment.Status = models.AdsgramStatusRequested
			assignment.PlacementID = placementID
			assignment.Payload = payload
			assignment.CompletedAt = nil
			return tx.Model(&assignment).
				Select("status", "placement_id", "payload", "completed_at").
				Updates(&assignment).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		assignment = models.AdsgramAssignment{
			ProfileID:            profileID,
			ExternalAssignmentID: externalID,
			PlacementID:          placementID,
			Status:               models.AdsgramStatusRequested,
			Payload:              payload,
		}
		// A concurrent request for the same id won the insert.
		return duplicateAs(tx.Create(&assignment).Error, ErrAssignmentRace)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📺 [ADSGRAM] profile %s got assignment %s (placement=%s)", profileID, externalID, placementID)
	return &assignment, nil
}

// Complete confirms a watched ad with the network. A failed confirmation is
// stored on the assignment before the error is returned.
func (s *AdsgramService) Complete(ctx context.Context, profileID, assignmentID string, extra map[string]any) (*models.AdsgramAssignment, error) {
	assignmentID = strings.TrimSpace(assignmentID)
	if assignmentID == "" {
		return nil, Validation("assignment_id is required")
	}
	db := s.DB.WithContext(ctx)

	userID, err := s.adsgramUserID(db, profileID)
	if err != nil {
		return nil, err
	}

	var (
		assignment models.AdsgramAssignment
		confirmErr error
	)
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("external_assignment_id = ?", assignmentID).
			First(&assignment).Error; err != nil {
			return notFoundAs(err, NotFound("ad assignment"))
		}
		if assignment.ProfileID != profileID {
			return Forbidden("assignment belongs to another profile")
		}
		if assignment.Status == models.AdsgramStatusCompleted {
			return nil
		}

		merged := make(map[string]any, len(assignment.Payload)+len(extra))
		maps.Copy(merged, assignment.Payload)
		maps.Copy(merged, extra)

		confirmation, err := s.Client.ConfirmAssignment(ctx, assignmentID, userID)
		if err != nil {
			confirmErr = err
			merged["error"] = err.Error()
			assignment.Status = models.AdsgramStatusFailed
			assignment.Payload = merged
			return tx.Model(&assignment).Select("status", "payload").Updates(&assignment).Error
		}

		maps.Copy(merged, confirmation)
		delete(merged, "error")
		now := s.now()
		assignment.Status = models.AdsgramStatusCompleted
		assignment.Payload = merged
		assignment.CompletedAt = &now
		return tx.Model(&assignment).Select("status", "payload", "completed_at").Updates(&assignment).Error
	})
	if err != nil {
		return nil, err
	}
	if confirmErr != nil {
		log.Printf("❌ [ADSGRAM] confirmation of %s failed: %v", assignmentID, confirmErr)
		return nil, confirmErr
	}
	return &assignment, nil
}

// ActiveBlock returns the ad block the client should render.
func (s *AdsgramService) ActiveBlock(ctx context.Context) (*models.AdsgramBlock, error) {
	var block models.AdsgramBlock
	if err := s.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id").
		First(&block).Error; err != nil {
		return nil, notFoundAs(err, NotFound("active ad block"))
	}
	return &block, nil
}

// ExpireStale marks assignments that stayed requested longer than olderThan as failed.
func (s *AdsgramService) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)
	res := s.DB.WithContext(ctx).
		Model(&models.AdsgramAssignment{}).
		Where("status = ? AND created_at < ?", models.AdsgramStatusRequested, cutoff).
		Update("status", models.AdsgramStatusFailed)
	return res.RowsAffected, res.Error
}
