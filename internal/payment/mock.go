package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/google/uuid"
)

// MockProcessor simulates a payment provider. It backs mobile money, which
// has no real integration yet, and is used in tests.
type MockProcessor struct {
	name   string
	config *MockConfig

	mu   sync.Mutex
	rand *rand.Rand

	transactions sync.Map
}

// MockConfig holds configuration for the mock processor
type MockConfig struct {
	// SuccessRate is the probability of a successful payment (0.0 to 1.0)
	SuccessRate float64

	// Delay is the simulated processing time
	Delay time.Duration

	// FailureReasons is a list of possible failure reasons
	FailureReasons []string
}

// DefaultMockConfig returns default configuration
func DefaultMockConfig() *MockConfig {
	return &MockConfig{
		SuccessRate: 0.9,
		Delay:       200 * time.Millisecond,
		FailureReasons: []string{
			"insufficient_funds",
			"wallet_not_found",
			"transaction_timeout",
			"processing_error",
		},
	}
}

type mockTransaction struct {
	BookingID int64
	Amount    float64
	Status    string
}

// NewMockProcessor creates a mock processor. A nil source seeds from the clock.
func NewMockProcessor(name string, config *MockConfig, source rand.Source) *MockProcessor {
	if config == nil {
		config = DefaultMockConfig()
	}
	if config.SuccessRate < 0 {
		config.SuccessRate = 0
	}
	if config.SuccessRate > 1 {
		config.SuccessRate = 1
	}
	if source == nil {
		source = rand.NewSource(time.Now().UnixNano())
	}

	return &MockProcessor{
		name:   name,
		config: config,
		rand:   rand.New(source),
	}
}

func (p *MockProcessor) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("charge request is required")
	}

	if p.config.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.config.Delay):
		}
	}

	transactionID := fmt.Sprintf("%s_txn_%s", p.name, uuid.New().String()[:8])

	p.mu.Lock()
	success := p.rand.Float64() < p.config.SuccessRate
	reason := "payment_failed"
	if !success && len(p.config.FailureReasons) > 0 {
		reason = p.config.FailureReasons[p.rand.Intn(len(p.config.FailureReasons))]
	}
	p.mu.Unlock()

	resp := &ChargeResponse{TransactionID: transactionID}
	if !success {
		resp.Status = models.PaymentStatusFailed
		resp.FailureReason = reason
		resp.FailureCode = reason
		return resp, nil
	}

	resp.Success = true
	resp.Status = models.PaymentStatusPaid
	p.transactions.Store(transactionID, &mockTransaction{
		BookingID: req.BookingID,
		Amount:    req.Amount,
		Status:    "completed",
	})
	return resp, nil
}

func (p *MockProcessor) Refund(ctx context.Context, transactionID string, amount float64) error {
	if transactionID == "" {
		return fmt.Errorf("transaction ID is required")
	}

	txn, ok := p.transactions.Load(transactionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
	}
	p.transactions.Store(transactionID, &mockTransaction{
		BookingID: txn.(*mockTransaction).BookingID,
		Amount:    txn.(*mockTransaction).Amount - amount,
		Status:    "refunded",
	})
	return nil
}

func (p *MockProcessor) Name() string {
	return p.name
}
