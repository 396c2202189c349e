package squaregw

import (
	"context"
	"fmt"

	"github.com/angelmondragon/marketplace-payments/pkg/square"
)

// SquarePayment is the part of a Square payment or refund the adapter reads.
type SquarePayment struct {
	ID     string
	Status string
}

// SquarePaymentsClient defines the subset of Square calls the adapter relies on.
type SquarePaymentsClient interface {
	Create(ctx context.Context, params square.PaymentCreateParams) (*SquarePayment, error)
	Complete(ctx context.Context, paymentID string) (*SquarePayment, error)
	Cancel(ctx context.Context, paymentID string) (*SquarePayment, error)
	Get(ctx context.Context, paymentID string) (*SquarePayment, error)
	Refund(ctx context.Context, params square.RefundParams) (*SquarePayment, error)
}

// NewSquareClient wraps the shared pkg/square client.
func NewSquareClient(client *square.Client) SquarePaymentsClient {
	return &squarePaymentsClient{square: client}
}

type squarePaymentsClient struct {
	square *square.Client
}

func (c *squarePaymentsClient) Create(ctx context.Context, params square.PaymentCreateParams) (*SquarePayment, error) {
	if c.square == nil {
		return nil, fmt.Errorf("square client required")
	}
	payment, err := c.square.CreatePayment(ctx, params)
	if err != nil {
		return nil, err
	}
	return &SquarePayment{ID: square.PaymentID(payment), Status: square.PaymentStatus(payment)}, nil
}

func (c *squarePaymentsClient) Complete(ctx context.Context, paymentID string) (*SquarePayment, error) {
	if c.square == nil {
		return nil, fmt.Errorf("square client required")
	}
	payment, err := c.square.CompletePayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return &SquarePayment{ID: square.PaymentID(payment), Status: square.PaymentStatus(payment)}, nil
}

func (c *squarePaymentsClient) Cancel(ctx context.Context, paymentID string) (*SquarePayment, error) {
	if c.square == nil {
		return nil, fmt.Errorf("square client required")
	}
	payment, err := c.square.CancelPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return &SquarePayment{ID: square.PaymentID(payment), Status: square.PaymentStatus(payment)}, nil
}

func (c *squarePaymentsClient) Get(ctx context.Context, paymentID string) (*SquarePayment, error) {
	if c.square == nil {
		return nil, fmt.Errorf("square client required")
	}
	payment, err := c.square.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return &SquarePayment{ID: square.PaymentID(payment), Status: square.PaymentStatus(payment)}, nil
}

func (c *squarePaymentsClient) Refund(ctx context.Context, params square.RefundParams) (*SquarePayment, error) {
	if c.square == nil {
		return nil, fmt.Errorf("square client required")
	}
	refund, err := c.square.RefundPayment(ctx, params)
	if err != nil {
		return nil, err
	}
	return &SquarePayment{ID: square.RefundID(refund), Status: square.RefundStatus(refund)}, nil
}
