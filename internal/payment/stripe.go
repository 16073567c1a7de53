package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
)

// StripeProcessor charges card payments through Stripe payment intents
type StripeProcessor struct {
	config *StripeConfig
}

// StripeConfig holds configuration for the Stripe processor
type StripeConfig struct {
	SecretKey string
	// PaymentMethodID, when set, confirms the intent immediately with that
	// payment method (e.g. pm_card_visa in test mode)
	PaymentMethodID string
}

// NewStripeProcessor creates a new Stripe processor
func NewStripeProcessor(config *StripeConfig) (*StripeProcessor, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	stripe.Key = config.SecretKey

	return &StripeProcessor{config: config}, nil
}

// toMinorUnits converts an amount to the smallest currency unit
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (p *StripeProcessor) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("charge request is required")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
		Metadata: map[string]string{
			"booking_id":        strconv.FormatInt(req.BookingID, 10),
			"booking_reference": req.Reference,
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if p.config.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(p.config.PaymentMethodID)
		params.Confirm = stripe.Bool(true)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		// a declined card comes back as an API error; report it as a decline
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return &ChargeResponse{
				Success:       false,
				Status:        models.PaymentStatusFailed,
				FailureReason: stripeErr.Msg,
				FailureCode:   string(stripeErr.Code),
			}, nil
		}
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	resp := &ChargeResponse{TransactionID: pi.ID}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		resp.Success = true
		resp.Status = models.PaymentStatusPaid
	case stripe.PaymentIntentStatusRequiresPaymentMethod,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresAction:
		resp.Status = models.PaymentStatusFailed
		resp.FailureReason = "payment requires further action"
		resp.FailureCode = string(pi.Status)
	case stripe.PaymentIntentStatusCanceled:
		resp.Status = models.PaymentStatusFailed
		resp.FailureReason = "payment canceled"
		resp.FailureCode = "canceled"
	default:
		resp.Status = models.PaymentStatusFailed
		resp.FailureReason = fmt.Sprintf("unexpected status: %s", pi.Status)
	}

	return resp, nil
}

// Refund gives back amount of a captured payment intent
func (p *StripeProcessor) Refund(ctx context.Context, transactionID string, amount float64) error {
	if transactionID == "" {
		return fmt.Errorf("transaction ID is required")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(transactionID),
		Amount:        stripe.Int64(toMinorUnits(amount)),
	}
	params.Context = ctx

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

func (p *StripeProcessor) Name() string {
	return "stripe"
}
