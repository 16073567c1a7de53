package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/databayt/mkan-sub001/internal/models"
)

var (
	ErrUnsupportedMethod   = errors.New("unsupported payment method")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Processor charges a booking through one payment channel
type Processor interface {
	// Charge attempts the payment. A declined payment is reported through
	// the response; an error means the attempt itself could not be made.
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error)

	// Name returns the processor name
	Name() string
}

// Refunder is implemented by processors that can give money back
type Refunder interface {
	Refund(ctx context.Context, transactionID string, amount float64) error
}

// ChargeRequest represents a charge for one booking
type ChargeRequest struct {
	BookingID   int64
	Reference   string
	Amount      float64
	Currency    string
	Method      models.PaymentMethod
	Description string
	Metadata    map[string]string
}

// ChargeResponse represents the outcome of a charge
type ChargeResponse struct {
	Success       bool
	Status        models.PaymentStatus
	TransactionID string
	FailureReason string
	FailureCode   string
}

// Registry maps payment methods to their processors
type Registry struct {
	mu         sync.RWMutex
	processors map[models.PaymentMethod]Processor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{processors: make(map[models.PaymentMethod]Processor)}
}

// Register binds a processor to a payment method, replacing any previous one
func (r *Registry) Register(method models.PaymentMethod, p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[method] = p
}

// Get returns the processor of a payment method
func (r *Registry) Get(method models.PaymentMethod) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.processors[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
	return p, nil
}

// Methods lists the payment methods that have a processor
func (r *Registry) Methods() []models.PaymentMethod {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var methods []models.PaymentMethod
	for _, m := range models.PaymentMethods {
		if _, ok := r.processors[m]; ok {
			methods = append(methods, m)
		}
	}
	return methods
}
