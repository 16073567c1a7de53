package payment

import (
	"context"
	"fmt"

	"github.com/databayt/mkan-sub001/internal/models"
)

// CashProcessor accepts cash-on-arrival bookings. Nothing is collected at
// booking time; the fare is due when the passenger boards.
type CashProcessor struct{}

func NewCashProcessor() *CashProcessor {
	return &CashProcessor{}
}

func (p *CashProcessor) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("charge request is required")
	}
	return &ChargeResponse{
		Success:       true,
		Status:        models.PaymentStatusDueOnBoarding,
		TransactionID: fmt.Sprintf("cash_%d", req.BookingID),
	}, nil
}

func (p *CashProcessor) Name() string {
	return "cash"
}
