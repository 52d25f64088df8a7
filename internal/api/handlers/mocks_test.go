package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/claudio-nehemia/MoeyProject-sub001/internal/models"
)

// MockPaymentService is a testify mock of services.IPaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) StepsFor(ctx context.Context, kontrakID primitive.ObjectID) ([]models.StepView, error) {
	args := m.Called(ctx, kontrakID)
	if views, ok := args.Get(0).([]models.StepView); ok {
		return views, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentService) Summary(ctx context.Context, kontrakID primitive.ObjectID) (*models.PaymentSummary, error) {
	args := m.Called(ctx, kontrakID)
	if summary, ok := args.Get(0).(*models.PaymentSummary); ok {
		return summary, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentService) GenerateInvoice(ctx context.Context, kontrakID primitive.ObjectID, step int) (*models.Invoice, error) {
	args := m.Called(ctx, kontrakID, step)
	if invoice, ok := args.Get(0).(*models.Invoice); ok {
		return invoice, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentService) RecordPmResponse(ctx context.Context, invoiceID primitive.ObjectID, actor string) error {
	args := m.Called(ctx, invoiceID, actor)
	return args.Error(0)
}

func (m *MockPaymentService) RecordClientResponse(ctx context.Context, invoiceID primitive.ObjectID, actor string) error {
	args := m.Called(ctx, invoiceID, actor)
	return args.Error(0)
}

func (m *MockPaymentService) UploadProof(ctx context.Context, invoiceID primitive.ObjectID, proofURI string) (*models.Invoice, error) {
	args := m.Called(ctx, invoiceID, proofURI)
	if invoice, ok := args.Get(0).(*models.Invoice); ok {
		return invoice, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentService) Cancel(ctx context.Context, invoiceID primitive.ObjectID) error {
	args := m.Called(ctx, invoiceID)
	return args.Error(0)
}

func (m *MockPaymentService) AttachBastPhoto(ctx context.Context, kontrakID primitive.ObjectID, photoURI string) error {
	args := m.Called(ctx, kontrakID, photoURI)
	return args.Error(0)
}

func (m *MockPaymentService) MarkCommitmentFeePaid(ctx context.Context, kontrakID primitive.ObjectID, proofURI, actor string) error {
	args := m.Called(ctx, kontrakID, proofURI, actor)
	return args.Error(0)
}

// MockTerminService is a testify mock of services.ITerminService.
type MockTerminService struct {
	mock.Mock
}

func (m *MockTerminService) List(ctx context.Context) ([]models.Termin, error) {
	args := m.Called(ctx)
	if termins, ok := args.Get(0).([]models.Termin); ok {
		return termins, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTerminService) FindByID(ctx context.Context, terminID primitive.ObjectID) (*models.Termin, error) {
	args := m.Called(ctx, terminID)
	if termin, ok := args.Get(0).(*models.Termin); ok {
		return termin, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTerminService) Create(ctx context.Context, kodeTipe, namaTipe, deskripsi string, tahapan []models.TahapanStep) (*models.Termin, error) {
	args := m.Called(ctx, kodeTipe, namaTipe, deskripsi, tahapan)
	if termin, ok := args.Get(0).(*models.Termin); ok {
		return termin, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTerminService) Update(ctx context.Context, terminID primitive.ObjectID, namaTipe, deskripsi string, tahapan []models.TahapanStep) (*models.Termin, error) {
	args := m.Called(ctx, terminID, namaTipe, deskripsi, tahapan)
	if termin, ok := args.Get(0).(*models.Termin); ok {
		return termin, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockS3Storage is a testify mock of storage.IS3Storage.
type MockS3Storage struct {
	mock.Mock
}

func (m *MockS3Storage) GeneratePresignedPutURL(ctx context.Context, kontrakID, purpose, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, kontrakID, purpose, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockS3Storage) ObjectURI(objectKey string) string {
	args := m.Called(objectKey)
	return args.String(0)
}
