package billing

// WebhookPayload is the body sent by the billing provider. Only the fields
// needed to flip a subscription status are read; the rest is stored raw.
type WebhookPayload struct {
	EventName      string `json:"eventName" validate:"required,max=100"`
	SubjectEmail   string `json:"subjectEmail" validate:"required,email,max=200"`
	SubscriptionID string `json:"subscriptionId" validate:"required,max=191"`
	CustomerID     string `json:"customerId" validate:"max=191"`
	Status         string `json:"status,omitempty" validate:"max=32"`
	PlanRef        string `json:"planRef,omitempty" validate:"max=191"`
}

// NormalizedSubscription is the provider-agnostic shape used by the billing
// service when syncing external subscription state into local tables.
type NormalizedSubscription struct {
	UserID                 uint
	Provider               string
	ProviderSubscriptionID string
	ProviderCustomerID     string
	ProviderPlanRef        string
	Status                 string
	RawPayloadJSON         string
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// WebhookOutcome tells the HTTP layer how a webhook delivery was handled.
type WebhookOutcome string

const (
	OutcomeProcessed        WebhookOutcome = "processed"
	OutcomeDuplicate        WebhookOutcome = "duplicate"
	OutcomeIgnored          WebhookOutcome = "ignored"
	OutcomeInvalidSignature WebhookOutcome = "invalid_signature"
	OutcomeInvalidPayload   WebhookOutcome = "invalid_payload"
)

// WebhookDelivery is one inbound webhook request.
type WebhookDelivery struct {
	Body            []byte
	EventID         string
	SignatureHeader string
}
