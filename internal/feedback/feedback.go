// Package feedback stores the post-wizard satisfaction survey.
package feedback

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"card-program-wizard/internal/common/auth"
	"card-program-wizard/internal/common/database"
	"card-program-wizard/internal/common/errors"
	"card-program-wizard/internal/common/ids"
	"card-program-wizard/internal/common/logger"
	"card-program-wizard/internal/notify"
)

type Submission struct {
	SatisfactionRating    int                    `json:"satisfactionRating"`
	EaseOfUseRating       *int                   `json:"easeOfUseRating,omitempty"`
	WouldRecommend        *bool                  `json:"wouldRecommend,omitempty"`
	MostHelpfulFeature    string                 `json:"mostHelpfulFeature,omitempty"`
	IssuesEncountered     []string               `json:"issuesEncountered,omitempty"`
	Comments              string                 `json:"comments,omitempty"`
	WizardVariant         string                 `json:"wizardVariant,omitempty"`
	ProgramType           string                 `json:"programType,omitempty"`
	FundingModel          string                 `json:"fundingModel,omitempty"`
	CardCount             *int                   `json:"cardCount,omitempty"`
	ConfigurationID       string                 `json:"configurationId,omitempty"`
	SessionID             string                 `json:"sessionId,omitempty"`
	ABTestData            map[string]interface{} `json:"abTestData,omitempty"`
	TimeToCompleteSeconds *int                   `json:"timeToCompleteSeconds,omitempty"`
}

// UserResolver maps a bearer token to the caller's identity.
type UserResolver interface {
	UserInfo(ctx context.Context, accessToken string) (*auth.UserInfo, error)
}

type Service struct {
	pg       *database.PostgresClient
	users    UserResolver
	notifier notify.Notifier
	logger   logger.Logger
	now      func() time.Time
}

// NewService wires the feedback store. pg may be nil, in which case Submit
// reports that the database is not configured; users may be nil to skip
// token resolution.
func NewService(pg *database.PostgresClient, users UserResolver, notifier notify.Notifier, log logger.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		pg:       pg,
		users:    users,
		notifier: notifier,
		logger:   logger.ForComponent(log, "feedback"),
		now:      time.Now,
	}
}

func validRating(r int) bool {
	return r >= 1 && r <= 5
}

// Submit validates and stores one survey answer and returns its id.
func (s *Service) Submit(ctx context.Context, bearerToken string, sub Submission) (string, error) {
	if !validRating(sub.SatisfactionRating) {
		return "", errors.NewValidationFailedError("Invalid satisfaction rating. Must be between 1 and 5.", "satisfactionRating")
	}
	if sub.EaseOfUseRating != nil && !validRating(*sub.EaseOfUseRating) {
		return "", errors.NewValidationFailedError("Invalid ease of use rating. Must be between 1 and 5.", "easeOfUseRating")
	}
	if s.pg == nil {
		return "", errors.NewDatabaseNotConfiguredError()
	}

	userID := s.resolveUser(ctx, bearerToken)
	now := s.now().UTC()
	sessionID := sub.SessionID
	if sessionID == "" {
		sessionID = ids.AnonymousSession(now)
	}

	abTestData := sub.ABTestData
	if abTestData == nil {
		abTestData = map[string]interface{}{}
	}
	abJSON, err := json.Marshal(abTestData)
	if err != nil {
		return "", errors.NewValidationFailedError("Invalid abTestData", err.Error())
	}
	issues := sub.IssuesEncountered
	if issues == nil {
		issues = []string{}
	}

	feedbackID := uuid.New().String()
	_, err = s.pg.DB.ExecContext(ctx, `
		INSERT INTO user_feedback (
			id, user_id, session_id, configuration_id, satisfaction_rating,
			ease_of_use_rating, would_recommend, most_helpful_feature, issues_encountered,
			comments, wizard_variant, program_type, funding_model, card_count,
			ab_test_data, time_to_complete_seconds, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		feedbackID, nullString(userID), sessionID, nullString(sub.ConfigurationID), sub.SatisfactionRating,
		sub.EaseOfUseRating, sub.WouldRecommend, nullString(sub.MostHelpfulFeature), pq.Array(issues),
		nullString(sub.Comments), nullString(sub.WizardVariant), nullString(sub.ProgramType),
		nullString(sub.FundingModel), sub.CardCount, abJSON, sub.TimeToCompleteSeconds, now,
	)
	if err != nil {
		return "", errors.NewDatabaseInsertFailedError(err)
	}

	s.logger.Info("feedback saved", map[string]interface{}{
		"feedbackId":         feedbackID,
		"satisfactionRating": sub.SatisfactionRating,
		"wizardVariant":      sub.WizardVariant,
		"authenticated":      userID != "",
	})

	err = s.notifier.FeedbackReceived(ctx, notify.FeedbackEvent{
		FeedbackID:         feedbackID,
		SatisfactionRating: sub.SatisfactionRating,
		EaseOfUseRating:    sub.EaseOfUseRating,
		Comments:           sub.Comments,
		UserID:             userID,
		SessionID:          sessionID,
	})
	if err != nil {
		s.logger.Warn("feedback notification failed", map[string]interface{}{
			"feedbackId": feedbackID,
			"error":      err.Error(),
		})
	}
	return feedbackID, nil
}

// resolveUser returns the token subject, or "" when there is no token or it
// cannot be resolved.
func (s *Service) resolveUser(ctx context.Context, token string) string {
	if s.users == nil || token == "" {
		return ""
	}
	info, err := s.users.UserInfo(ctx, token)
	if err != nil {
		s.logger.Debug("bearer token not resolved, storing feedback anonymously", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}
	return info.Subject
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
