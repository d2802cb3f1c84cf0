package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SyncReport summarizes one push run over the unsynced confirmation backlog.
type SyncReport struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
}

// SyncService pushes unsynced confirmations to the external hotel pricing
// API and flips synced=true on success. Retry applies only to the push call,
// never to the confirmations themselves.
type SyncService interface {
	PushConfirmed(ctx context.Context) (*SyncReport, error)
}

// SyncOptions configures the push target and retry policy. Zero values fall
// back to the defaults: 3 attempts, 500ms initial backoff doubling up to 8s.
type SyncOptions struct {
	BaseURL        string
	APIKey         string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Client         *http.Client
}

type syncService struct {
	store          ConfirmationStore
	baseURL        string
	apiKey         string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	client         *http.Client
	log            *logrus.Logger
}

// NewSyncService constructs the confirmation push job.
func NewSyncService(store ConfirmationStore, opts SyncOptions, log *logrus.Logger) SyncService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 8 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 15 * time.Second}
	}
	return &syncService{
		store:          store,
		baseURL:        opts.BaseURL,
		apiKey:         opts.APIKey,
		maxAttempts:    opts.MaxAttempts,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		client:         opts.Client,
		log:            log,
	}
}

// PushConfirmed pushes every unsynced confirmation. A confirmation that
// exhausts its retries stays unsynced and is picked up by the next run; the
// batch itself never fails because of one bad confirmation.
func (s *syncService) PushConfirmed(ctx context.Context) (*SyncReport, error) {
	pending, err := s.store.ListUnsynced(ctx)
	if err != nil {
		return nil, fmt.Errorf("load unsynced confirmations: %w", err)
	}

	report := &SyncReport{Pending: len(pending)}
	s.log.WithField("pending", len(pending)).Info("pushing confirmations to hotel API")

	for _, pc := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if !s.pushWithRetry(ctx, pc) {
			report.Failed++
			s.log.WithFields(logrus.Fields{
				"confirmation_id": pc.ID,
				"product_id":      pc.ProductID,
			}).Error("failed to sync confirmation")
			continue
		}
		if err := s.store.MarkSynced(ctx, pc.ID); err != nil {
			report.Failed++
			s.log.WithField("confirmation_id", pc.ID).WithError(err).
				Error("pushed confirmation but could not mark it synced")
			continue
		}
		report.Synced++
		s.log.WithFields(logrus.Fields{
			"confirmation_id": pc.ID,
			"product_id":      pc.ProductID,
		}).Info("synced confirmation")
	}
	return report, nil
}

// pushWithRetry attempts the push up to maxAttempts times with exponential
// backoff (doubling from initialBackoff, capped at maxBackoff). Transport
// errors and non-2xx responses back off the same way. Context cancellation
// aborts the remaining retries for this confirmation.
func (s *syncService) pushWithRetry(ctx context.Context, pc PriceConfirmation) bool {
	backoff := s.initialBackoff
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		ok, err := s.callHotelAPI(ctx, pc)
		if ok {
			return true
		}
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"confirmation_id": pc.ID,
				"attempt":         attempt,
			}).WithError(err).Warn("confirmation push attempt failed")
		}
		if attempt == s.maxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false
		}
		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
	return false
}

type confirmationPayload struct {
	ProductID   string           `json:"productId"`
	Action      string           `json:"action"`
	Price       *decimal.Decimal `json:"price"`
	Currency    string           `json:"currency"`
	UserID      string           `json:"userId"`
	ConfirmedAt string           `json:"confirmedAt"`
}

func (s *syncService) callHotelAPI(ctx context.Context, pc PriceConfirmation) (bool, error) {
	payload := confirmationPayload{
		ProductID:   pc.ProductID,
		Action:      string(pc.Action),
		Price:       pc.ConfirmedValue,
		Currency:    pc.Currency,
		UserID:      pc.UserID,
		ConfirmedAt: pc.ConfirmedAt.Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("encode confirmation %d: %w", pc.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/prices/confirm", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("push confirmation %d: %w", pc.ID, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
