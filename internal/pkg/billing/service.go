package billing

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/FormFox/internal/pkg/validation"
)

// Service provides provider-neutral billing synchronization and reconciliation.
type Service struct {
	repo          Repository
	plans         PlanMapper
	webhookSecret string
}

type Option func(*Service)

// WithWebhookSecret enables signature enforcement for webhook deliveries.
func WithWebhookSecret(secret string) Option {
	return func(s *Service) { s.webhookSecret = strings.TrimSpace(secret) }
}

func WithPlanMapper(m PlanMapper) Option {
	return func(s *Service) { s.plans = m }
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, plans: NewPlanMapper("", string(entitlements.PlanPro))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, opts ...Option) *Service {
	return NewService(NewRepository(db), opts...)
}

// SignatureEnforced reports whether unsigned deliveries are rejected.
func (s *Service) SignatureEnforced() bool {
	return s.webhookSecret != ""
}

// SyncSubscription upserts provider subscription data and reconciles user plan.
func (s *Service) SyncSubscription(ctx context.Context, in NormalizedSubscription) (*models.BillingSubscription, string, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if in.UserID == 0 || provider == "" || strings.TrimSpace(in.ProviderSubscriptionID) == "" {
		return nil, "", errors.New("user_id, provider and provider_subscription_id are required")
	}

	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status == "" {
		status = models.BillingStatusActive
	}

	sub := &models.BillingSubscription{
		UserID:                 in.UserID,
		Provider:               provider,
		ProviderSubscriptionID: strings.TrimSpace(in.ProviderSubscriptionID),
		ProviderCustomerID:     strings.TrimSpace(in.ProviderCustomerID),
		ProviderPlanRef:        strings.TrimSpace(in.ProviderPlanRef),
		InternalPlan:           string(s.plans.Resolve(in.ProviderPlanRef)),
		Status:                 status,
		RawPayloadJSON:         in.RawPayloadJSON,
	}
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return nil, "", err
	}

	effectivePlan, err := s.ReconcileUserPlan(ctx, in.UserID)
	if err != nil {
		return sub, "", err
	}
	return sub, effectivePlan, nil
}

// ReconcileUserPlan computes and writes the best effective plan for a user.
func (s *Service) ReconcileUserPlan(ctx context.Context, userID uint) (string, error) {
	if userID == 0 {
		return "", errors.New("user_id is required")
	}

	subs, err := s.repo.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	best := string(entitlements.ResolvePlan(subs))

	us, err := s.repo.GetOrCreateUserSettings(ctx, userID)
	if err != nil {
		return "", err
	}
	if string(entitlements.ParsePlan(us.Plan)) == best {
		return best, nil
	}
	us.Plan = best
	if err := s.repo.SaveUserSettings(ctx, us); err != nil {
		return "", err
	}
	return best, nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(ctx, event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(ctx, webhookEventID, errMsg)
}

// ParseWebhookPayload decodes and validates a delivery body.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	p.SubjectEmail = models.NormalizeEmail(p.SubjectEmail)
	if err := validation.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	return &p, nil
}

// HandleWebhook records a delivery and applies its subscription status.
// Deliveries with a bad signature are rejected before anything is stored, so
// they cannot claim the event id of a genuine delivery. A stored event counts
// as a duplicate only once it was processed without error; failed deliveries
// run again when the provider retries them.
// The returned error is only set for infrastructure failures.
func (s *Service) HandleWebhook(ctx context.Context, d WebhookDelivery) (WebhookOutcome, error) {
	signatureValid := false
	if s.SignatureEnforced() {
		signatureValid = VerifyWebhookSignature(d.Body, d.SignatureHeader, s.webhookSecret)
		if !signatureValid {
			log.Warn("[Billing] Rejected webhook delivery with an invalid signature")
			return OutcomeInvalidSignature, nil
		}
	}

	payload, parseErr := ParseWebhookPayload(d.Body)
	eventType := ""
	if payload != nil {
		eventType = payload.EventName
	}

	created, stored, err := s.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderDefault,
		ProviderEventID: d.EventID,
		EventType:       eventType,
		PayloadJSON:     string(d.Body),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		return "", fmt.Errorf("record webhook event: %w", err)
	}
	if !created {
		if stored.Completed() {
			return OutcomeDuplicate, nil
		}
		log.Infof("[Billing] Retrying webhook event %d after an earlier failure", stored.ID)
	}

	if !s.SignatureEnforced() {
		log.Warnf("[Billing] Webhook event %d accepted without signature verification (BILLING_WEBHOOK_SECRET unset)", stored.ID)
	}

	if parseErr != nil {
		s.markProcessed(ctx, stored.ID, parseErr)
		return OutcomeInvalidPayload, nil
	}

	status, ok := EventStatus(payload.EventName, payload.Status)
	if !ok {
		s.markProcessed(ctx, stored.ID, nil)
		return OutcomeIgnored, nil
	}

	userID, err := s.repo.FindUserIDByEmail(ctx, payload.SubjectEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.markProcessed(ctx, stored.ID, errors.New("no local account for subject"))
			return OutcomeIgnored, nil
		}
		s.markProcessed(ctx, stored.ID, err)
		return "", fmt.Errorf("lookup webhook subject: %w", err)
	}

	_, plan, syncErr := s.SyncSubscription(ctx, NormalizedSubscription{
		UserID:                 userID,
		Provider:               models.BillingProviderDefault,
		ProviderSubscriptionID: payload.SubscriptionID,
		ProviderCustomerID:     payload.CustomerID,
		ProviderPlanRef:        payload.PlanRef,
		Status:                 status,
		RawPayloadJSON:         string(d.Body),
	})
	s.markProcessed(ctx, stored.ID, syncErr)
	if syncErr != nil {
		return "", fmt.Errorf("sync subscription: %w", syncErr)
	}

	log.Infof("[Billing] Subscription %s for user %d is %s, effective plan %s", payload.SubscriptionID, userID, status, plan)
	return OutcomeProcessed, nil
}

func (s *Service) markProcessed(ctx context.Context, id uint, processingErr error) {
	if err := s.MarkWebhookProcessed(ctx, id, processingErr); err != nil {
		log.Errorf("[Billing] Failed to mark webhook event %d processed: %v", id, err)
	}
}
