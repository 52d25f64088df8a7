package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/claudio-nehemia/MoeyProject-sub001/internal/config"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/db"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/models"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/tasks"
)

// IPaymentService is the staged contract payment engine: it derives step
// views on every read and is the only writer of invoice rows.
type IPaymentService interface {
	StepsFor(ctx context.Context, kontrakID primitive.ObjectID) ([]models.StepView, error)
	Summary(ctx context.Context, kontrakID primitive.ObjectID) (*models.PaymentSummary, error)
	GenerateInvoice(ctx context.Context, kontrakID primitive.ObjectID, step int) (*models.Invoice, error)
	RecordPmResponse(ctx context.Context, invoiceID primitive.ObjectID, actor string) error
	RecordClientResponse(ctx context.Context, invoiceID primitive.ObjectID, actor string) error
	UploadProof(ctx context.Context, invoiceID primitive.ObjectID, proofURI string) (*models.Invoice, error)
	Cancel(ctx context.Context, invoiceID primitive.ObjectID) error
	AttachBastPhoto(ctx context.Context, kontrakID primitive.ObjectID, photoURI string) error
	MarkCommitmentFeePaid(ctx context.Context, kontrakID primitive.ObjectID, proofURI, actor string) error
}

// IAsynqClient is the slice of asynq.Client the payment service needs.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// invoiceNumberAttempts bounds how often GenerateInvoice retries when a
// concurrent generate claims the number it just computed.
const invoiceNumberAttempts = 3

// paymentService implements IPaymentService.
type paymentService struct {
	db            *mongo.Database
	cfg           *config.Config
	terminService ITerminService
	taskClient    IAsynqClient // nil disables background fact propagation
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(database *mongo.Database, cfg *config.Config, terminService ITerminService, taskClient IAsynqClient) IPaymentService {
	return &paymentService{
		db:            database,
		cfg:           cfg,
		terminService: terminService,
		taskClient:    taskClient,
	}
}

// paymentState is everything the resolver needs, loaded in one go.
type paymentState struct {
	kontrak  *models.Kontrak
	termin   *models.Termin
	invoices []models.Invoice
}

func (s *paymentService) loadState(ctx context.Context, kontrakID primitive.ObjectID) (*paymentState, error) {
	var kontrak models.Kontrak
	err := s.db.Collection(db.KontraksCollection).FindOne(ctx, bson.M{"_id": kontrakID}).Decode(&kontrak)
	if err != nil {
		return nil, err
	}

	termin, err := s.terminService.FindByID(ctx, kontrak.TerminID)
	if err != nil {
		return nil, fmt.Errorf("failed to load termin %s for kontrak %s: %w",
			kontrak.TerminID.Hex(), kontrakID.Hex(), err)
	}

	cursor, err := s.db.Collection(db.InvoicesCollection).Find(ctx,
		bson.M{"kontrak_id": kontrakID},
		options.Find().SetSort(bson.D{{Key: "termin_step", Value: 1}, {Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices for kontrak %s: %w", kontrakID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var invoices []models.Invoice
	if err = cursor.All(ctx, &invoices); err != nil {
		return nil, fmt.Errorf("failed to decode invoices: %w", err)
	}

	return &paymentState{kontrak: &kontrak, termin: termin, invoices: invoices}, nil
}

// StepsFor recomputes all step views for a contract from current rows.
func (s *paymentService) StepsFor(ctx context.Context, kontrakID primitive.ObjectID) ([]models.StepView, error) {
	state, err := s.loadState(ctx, kontrakID)
	if err != nil {
		return nil, err
	}
	return ResolveSteps(state.kontrak, state.termin, state.invoices), nil
}

// Summary projects the contract-level payment totals.
func (s *paymentService) Summary(ctx context.Context, kontrakID primitive.ObjectID) (*models.PaymentSummary, error) {
	state, err := s.loadState(ctx, kontrakID)
	if err != nil {
		return nil, err
	}
	summary := ProjectSummary(state.kontrak, state.termin, state.invoices)
	return &summary, nil
}

// GenerateInvoice creates the pending invoice for a payable step. Idempotent
// under races: the partial unique index on (kontrak_id, termin_step) ensures
// two concurrent calls yield exactly one invoice, the loser getting
// ErrInvoiceAlreadyExists.
func (s *paymentService) GenerateInvoice(ctx context.Context, kontrakID primitive.ObjectID, step int) (*models.Invoice, error) {
	state, err := s.loadState(ctx, kontrakID)
	if err != nil {
		return nil, err
	}

	views := ResolveSteps(state.kontrak, state.termin, state.invoices)
	view := FindStepView(views, step)
	if view == nil {
		return nil, fmt.Errorf("%w: kontrak %s has no termin step %d", ErrStepNotPayable, kontrakID.Hex(), step)
	}
	if !view.CanPay {
		if view.Invoice != nil && view.Invoice.Active() {
			return nil, fmt.Errorf("%w: step %d is %s", ErrInvoiceAlreadyExists, step, view.Status)
		}
		reason := view.LockedReason
		if reason == "" {
			reason = string(view.Status)
		}
		return nil, fmt.Errorf("%w: step %d: %s", ErrStepNotPayable, step, reason)
	}

	now := time.Now().UTC()
	for attempt := 0; attempt < invoiceNumberAttempts; attempt++ {
		invoiceNumber, err := s.nextInvoiceNumber(ctx, now)
		if err != nil {
			return nil, err
		}

		invoice := &models.Invoice{
			Base:             models.NewBase(),
			KontrakID:        kontrakID,
			InvoiceNumber:    invoiceNumber,
			TerminStep:       step,
			TerminText:       view.Text,
			TerminPersentase: view.Persentase,
			TotalAmount:      view.Nominal,
			Status:           models.InvoiceStatusPending,
			CreatedAt:        now,
		}

		_, err = s.db.Collection(db.InvoicesCollection).InsertOne(ctx, invoice)
		if err == nil {
			return invoice, nil
		}
		if db.DuplicateKeyOnIndex(err, db.UniqInvoiceNumberIndex) {
			// A concurrent generate took this number; re-read the sequence.
			continue
		}
		if db.IsDuplicateKeyError(err) {
			// Lost the race against a concurrent generate for the same step.
			return nil, fmt.Errorf("%w: step %d", ErrInvoiceAlreadyExists, step)
		}
		return nil, fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil, fmt.Errorf("failed to allocate an invoice number after %d attempts", invoiceNumberAttempts)
}

// nextInvoiceNumber produces INV/YYYY/MM/NNNN, a per-month sequence derived
// from the highest existing number of the month.
func (s *paymentService) nextInvoiceNumber(ctx context.Context, now time.Time) (string, error) {
	prefix := fmt.Sprintf("%s/%s", s.cfg.InvoiceNumberPrefix, now.Format("2006/01"))

	var last models.Invoice
	err := s.db.Collection(db.InvoicesCollection).FindOne(ctx,
		bson.M{"invoice_number": bson.M{"$regex": "^" + prefix + "/"}},
		options.FindOne().SetSort(bson.D{{Key: "invoice_number", Value: -1}}),
	).Decode(&last)

	sequence := 1
	switch err {
	case nil:
		var n int
		if _, scanErr := fmt.Sscanf(last.InvoiceNumber, prefix+"/%04d", &n); scanErr == nil {
			sequence = n + 1
		}
	case mongo.ErrNoDocuments:
		// First invoice of the month.
	default:
		return "", fmt.Errorf("failed to look up last invoice number: %w", err)
	}

	return fmt.Sprintf("%s/%04d", prefix, sequence), nil
}

func (s *paymentService) findInvoice(ctx context.Context, invoiceID primitive.ObjectID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.Collection(db.InvoicesCollection).FindOne(ctx, bson.M{"_id": invoiceID}).Decode(&invoice)
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// RecordPmResponse records the Kepala Marketing response on the first-step
// invoice. Rejected on repeat rather than silently absorbed, so stale clients
// learn they are out of date.
func (s *paymentService) RecordPmResponse(ctx context.Context, invoiceID primitive.ObjectID, actor string) error {
	invoice, err := s.findInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.TerminStep != 1 {
		return fmt.Errorf("%w: PM response applies to the first termin step only", ErrInvalidTransition)
	}
	if invoice.Status != models.InvoiceStatusPending {
		return fmt.Errorf("%w: invoice %s is %s", ErrInvalidTransition, invoice.InvoiceNumber, invoice.Status)
	}
	if invoice.PmResponseAt != nil {
		return fmt.Errorf("%w: PM response already recorded", ErrInvalidTransition)
	}

	update := bson.M{"$set": bson.M{
		"pm_response_time": time.Now().UTC(),
		"pm_response_by":   actor,
	}}
	// Guard on the field still being unset so two concurrent responses
	// cannot both win.
	result, err := s.db.Collection(db.InvoicesCollection).UpdateOne(ctx,
		bson.M{"_id": invoiceID, "pm_response_time": nil}, update)
	if err != nil {
		return fmt.Errorf("failed to record PM response: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: PM response already recorded", ErrInvalidTransition)
	}
	return nil
}

// RecordClientResponse records the client response on the first-step invoice.
// Requires the PM response first.
func (s *paymentService) RecordClientResponse(ctx context.Context, invoiceID primitive.ObjectID, actor string) error {
	invoice, err := s.findInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.TerminStep != 1 {
		return fmt.Errorf("%w: client response applies to the first termin step only", ErrInvalidTransition)
	}
	if invoice.Status != models.InvoiceStatusPending {
		return fmt.Errorf("%w: invoice %s is %s", ErrInvalidTransition, invoice.InvoiceNumber, invoice.Status)
	}
	if invoice.PmResponseAt == nil {
		return fmt.Errorf("%w: PM response must be recorded first", ErrMissingApproval)
	}
	if invoice.ClientResponseAt != nil {
		return fmt.Errorf("%w: client response already recorded", ErrInvalidTransition)
	}

	update := bson.M{"$set": bson.M{
		"response_time": time.Now().UTC(),
		"response_by":   actor,
	}}
	result, err := s.db.Collection(db.InvoicesCollection).UpdateOne(ctx,
		bson.M{"_id": invoiceID, "response_time": nil}, update)
	if err != nil {
		return fmt.Errorf("failed to record client response: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: client response already recorded", ErrInvalidTransition)
	}
	return nil
}

// UploadProof attaches the bukti bayar and flips the invoice pending -> paid.
// This is the single state change that unlocks the next step on the next
// read. The "step paid" fact is propagated to the task tracker via a
// background task, never synchronously.
func (s *paymentService) UploadProof(ctx context.Context, invoiceID primitive.ObjectID, proofURI string) (*models.Invoice, error) {
	invoice, err := s.findInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoiceStatusPending {
		return nil, fmt.Errorf("%w: cannot upload proof on a %s invoice", ErrInvalidTransition, invoice.Status)
	}
	if invoice.TerminStep == 1 && invoice.ClientResponseAt == nil {
		return nil, fmt.Errorf("%w: client response required before proof upload on the first step", ErrMissingApproval)
	}

	paidAt := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"bukti_bayar": proofURI,
		"status":      models.InvoiceStatusPaid,
		"paid_at":     paidAt,
	}}
	result, err := s.db.Collection(db.InvoicesCollection).UpdateOne(ctx,
		bson.M{"_id": invoiceID, "status": models.InvoiceStatusPending}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: invoice is no longer pending", ErrInvalidTransition)
	}

	invoice.BuktiBayar = proofURI
	invoice.Status = models.InvoiceStatusPaid
	invoice.PaidAt = &paidAt

	s.publishStepPaid(ctx, invoice)
	s.publishProofNormalize(ctx, invoice)
	return invoice, nil
}

// publishStepPaid enqueues the step-paid fact for the task tracker. Best
// effort: the payment itself is already durable, the tracker catches up.
func (s *paymentService) publishStepPaid(ctx context.Context, invoice *models.Invoice) {
	if s.taskClient == nil {
		return
	}
	task, err := tasks.NewStepPaidTask(invoice.KontrakID.Hex(), invoice.TerminStep, invoice.TerminText)
	if err != nil {
		log.Printf("Failed to build step-paid task for invoice %s: %v", invoice.InvoiceNumber, err)
		return
	}
	if _, err := s.taskClient.EnqueueContext(ctx, task); err != nil {
		log.Printf("Failed to enqueue step-paid task for invoice %s: %v", invoice.InvoiceNumber, err)
	}
}

// publishProofNormalize enqueues the proof-photo normalization job when the
// proof lives in our S3 bucket. Foreign URIs are stored as given.
func (s *paymentService) publishProofNormalize(ctx context.Context, invoice *models.Invoice) {
	if s.taskClient == nil || s.cfg.FileBaseS3URL == "" {
		return
	}
	base := strings.TrimRight(s.cfg.FileBaseS3URL, "/") + "/"
	if !strings.HasPrefix(invoice.BuktiBayar, base) {
		return
	}
	s3Key := strings.TrimPrefix(invoice.BuktiBayar, base)
	task, err := tasks.NewProofImageTask(s3Key, invoice.ID.Hex())
	if err != nil {
		log.Printf("Failed to build proof normalize task for invoice %s: %v", invoice.InvoiceNumber, err)
		return
	}
	if _, err := s.taskClient.EnqueueContext(ctx, task, asynq.Queue("low")); err != nil {
		log.Printf("Failed to enqueue proof normalize task for invoice %s: %v", invoice.InvoiceNumber, err)
	}
}

// Cancel voids a pending invoice. Terminal; the freed step becomes
// re-generatable on the next read.
func (s *paymentService) Cancel(ctx context.Context, invoiceID primitive.ObjectID) error {
	invoice, err := s.findInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.Status != models.InvoiceStatusPending {
		return fmt.Errorf("%w: cannot cancel a %s invoice", ErrInvalidTransition, invoice.Status)
	}

	result, err := s.db.Collection(db.InvoicesCollection).UpdateOne(ctx,
		bson.M{"_id": invoiceID, "status": models.InvoiceStatusPending},
		bson.M{"$set": bson.M{"status": models.InvoiceStatusCancelled}})
	if err != nil {
		return fmt.Errorf("failed to cancel invoice: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: invoice is no longer pending", ErrInvalidTransition)
	}
	return nil
}

// AttachBastPhoto records the handover certificate on the contract, gating
// the final termin step open. Contract-level, not per-invoice.
func (s *paymentService) AttachBastPhoto(ctx context.Context, kontrakID primitive.ObjectID, photoURI string) error {
	var kontrak models.Kontrak
	err := s.db.Collection(db.KontraksCollection).FindOne(ctx, bson.M{"_id": kontrakID}).Decode(&kontrak)
	if err != nil {
		return err
	}
	if kontrak.HasBast {
		return fmt.Errorf("%w: BAST already recorded for kontrak %s", ErrInvalidTransition, kontrakID.Hex())
	}

	now := time.Now().UTC()
	bastNumber := fmt.Sprintf("%s/%d/%05d", s.cfg.BastNumberPrefix, now.Year(), kontrakID.Timestamp().Unix()%100000)

	result, err := s.db.Collection(db.KontraksCollection).UpdateOne(ctx,
		bson.M{"_id": kontrakID, "has_bast": false},
		bson.M{"$set": bson.M{
			"has_bast":    true,
			"bast_number": bastNumber,
			"bast_date":   now,
			"bast_foto":   photoURI,
		}})
	if err != nil {
		return fmt.Errorf("failed to attach BAST: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: BAST already recorded for kontrak %s", ErrInvalidTransition, kontrakID.Hex())
	}
	return nil
}

// MarkCommitmentFeePaid is the external commitment-fee flow flipping the
// step-1 precondition.
func (s *paymentService) MarkCommitmentFeePaid(ctx context.Context, kontrakID primitive.ObjectID, proofURI, actor string) error {
	var kontrak models.Kontrak
	err := s.db.Collection(db.KontraksCollection).FindOne(ctx, bson.M{"_id": kontrakID}).Decode(&kontrak)
	if err != nil {
		return err
	}
	if kontrak.CommitmentFee.Paid {
		return fmt.Errorf("%w: commitment fee already paid for kontrak %s", ErrInvalidTransition, kontrakID.Hex())
	}

	result, err := s.db.Collection(db.KontraksCollection).UpdateOne(ctx,
		bson.M{"_id": kontrakID, "commitment_fee.paid": false},
		bson.M{"$set": bson.M{
			"commitment_fee.paid":        true,
			"commitment_fee.proof_uri":   proofURI,
			"commitment_fee.paid_at":     time.Now().UTC(),
			"commitment_fee.response_by": actor,
		}})
	if err != nil {
		return fmt.Errorf("failed to mark commitment fee paid: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: commitment fee already paid for kontrak %s", ErrInvalidTransition, kontrakID.Hex())
	}
	return nil
}
