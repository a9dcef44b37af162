package app

import (
	"context"
	"fmt"

	"crowdtask_backend/internal/payments"

	"github.com/google/uuid"
)

// MockEmailProvider используется для тестов и локальной разработки.
type MockEmailProvider struct{}

func (m *MockEmailProvider) Send(to, subject, body string) error { return nil }

// MockGateway имитирует платежный шлюз: авторизация сразу считается
// подтвержденной. Используется, когда ключи шлюза не настроены.
type MockGateway struct{}

func (g *MockGateway) Authorize(ctx context.Context, amountPaise int64, currency string, metadata map[string]string) (*payments.Authorization, error) {
	ref := "order_mock_" + uuid.NewString()
	return &payments.Authorization{
		Ref:          ref,
		ClientSecret: "secret_" + ref,
		State:        payments.AuthStateAuthorized,
		AmountPaise:  amountPaise,
	}, nil
}

func (g *MockGateway) Capture(ctx context.Context, ref string, amountPaise int64) (*payments.CaptureResult, error) {
	return &payments.CaptureResult{
		Ref:           ref,
		State:         payments.AuthStateCaptured,
		CapturedPaise: amountPaise,
	}, nil
}

func (g *MockGateway) Retrieve(ctx context.Context, ref string) (*payments.Authorization, error) {
	return &payments.Authorization{
		Ref:   ref,
		State: payments.AuthStateAuthorized,
	}, nil
}

func (g *MockGateway) Transfer(ctx context.Context, amountPaise int64, destination string, metadata map[string]string) (*payments.TransferResult, error) {
	if destination == "" {
		return nil, fmt.Errorf("mock gateway: empty transfer destination")
	}
	return &payments.TransferResult{
		Ref:         "trf_mock_" + uuid.NewString(),
		AmountPaise: amountPaise,
	}, nil
}
