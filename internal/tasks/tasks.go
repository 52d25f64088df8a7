package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder for image.Decode
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/claudio-nehemia/MoeyProject-sub001/internal/config"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/db"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/email"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/models"
)

// Task types handled by the background worker.
const (
	TypeStepPaid          = "payment:step:paid"
	TypeProofImageProcess = "payment:proof:normalize"
	TypeDeadlineScan      = "kontrak:deadline:scan"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// StepPaidPayload carries the "termin step paid" fact to the task tracker.
type StepPaidPayload struct {
	KontrakID string `json:"kontrak_id"`
	Step      int    `json:"step"`
	Tahap     string `json:"tahap"`
}

// NewStepPaidTask builds the task the payment service enqueues after a proof
// upload flips an invoice to paid.
func NewStepPaidTask(kontrakID string, step int, tahap string) (*asynq.Task, error) {
	payload, err := json.Marshal(StepPaidPayload{KontrakID: kontrakID, Step: step, Tahap: tahap})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal step-paid payload: %w", err)
	}
	return asynq.NewTask(TypeStepPaid, payload), nil
}

// ProofImagePayload identifies an uploaded proof photo to normalize.
type ProofImagePayload struct {
	S3Key     string `json:"s3_key"`
	InvoiceID string `json:"invoice_id"`
}

// NewProofImageTask builds the proof-photo normalization task.
func NewProofImageTask(s3Key, invoiceID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ProofImagePayload{S3Key: s3Key, InvoiceID: invoiceID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal proof image payload: %w", err)
	}
	return asynq.NewTask(TypeProofImageProcess, payload), nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	db          *mongo.Database
	emailSender email.Sender
	s3Client    *s3.Client
}

func NewTaskProcessor(cfg *config.Config, database *mongo.Database, emailSender email.Sender, s3Client *s3.Client) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		db:          database,
		emailSender: emailSender,
		s3Client:    s3Client,
	}
}

// SetupServer configures and returns an Asynq server with all handlers
// registered. The caller runs it.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				fmt.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v\n", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeStepPaid, processor.HandleStepPaidTask)
	mux.HandleFunc(TypeProofImageProcess, processor.HandleProofImageTask)
	mux.HandleFunc(TypeDeadlineScan, processor.HandleDeadlineScanTask)
	fmt.Println("Registered background task handlers (payment facts, image normalization, deadline scan).")

	return srv, mux
}

// SetupScheduler returns an Asynq scheduler that fires the periodic deadline
// scan. Run alongside the task server in bg mode.
func SetupScheduler(rdb *redis.Client, cfg *config.Config) (*asynq.Scheduler, error) {
	schedulerOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	scheduler := asynq.NewScheduler(schedulerOpt, nil)

	interval := cfg.ReminderInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	_, err := scheduler.Register(fmt.Sprintf("@every %s", interval), asynq.NewTask(TypeDeadlineScan, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to register deadline scan schedule: %w", err)
	}
	return scheduler, nil
}

// --- Task Handlers ---

// HandleStepPaidTask marks the matching task-tracker row selesai. The payment
// row is already durable; this only lets the tracker catch up, so a missing
// row is not an error.
func (p *TaskProcessor) HandleStepPaidTask(ctx context.Context, t *asynq.Task) error {
	var payload StepPaidPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal step-paid payload: %v: %w", err, asynq.SkipRetry)
	}

	kontrakID, err := primitive.ObjectIDFromHex(payload.KontrakID)
	if err != nil {
		return fmt.Errorf("invalid kontrak ID in step-paid payload: %w", asynq.SkipRetry)
	}

	now := time.Now().UTC()
	result, err := p.db.Collection(db.TaskResponsesCollection).UpdateMany(ctx,
		bson.M{
			"kontrak_id": kontrakID,
			"tahap":      payload.Tahap,
			"status":     bson.M{"$ne": models.TaskStatusSelesai},
		},
		bson.M{"$set": bson.M{
			"status":        models.TaskStatusSelesai,
			"response_time": now,
		}})
	if err != nil {
		return fmt.Errorf("failed to mark task responses selesai: %w", err)
	}

	log.Printf("Step-paid fact processed: kontrak=%s step=%d tahap=%q (%d tracker rows updated)",
		payload.KontrakID, payload.Step, payload.Tahap, result.ModifiedCount)
	return nil
}

// HandleDeadlineScanTask emails a reminder digest for contracts approaching
// their end date. Read-only with respect to payment state.
func (p *TaskProcessor) HandleDeadlineScanTask(ctx context.Context, t *asynq.Task) error {
	if p.cfg.FinanceEmail == "" {
		log.Println("Deadline scan skipped: FINANCE_EMAIL not configured.")
		return nil
	}

	now := time.Now().UTC()
	horizon := now.AddDate(0, 0, p.cfg.DeadlineWarningDays)
	cursor, err := p.db.Collection(db.KontraksCollection).Find(ctx, bson.M{
		"tanggal_selesai": bson.M{"$lte": horizon},
	})
	if err != nil {
		return fmt.Errorf("failed to query kontraks for deadline scan: %w", err)
	}
	defer cursor.Close(ctx)

	var kontraks []models.Kontrak
	if err = cursor.All(ctx, &kontraks); err != nil {
		return fmt.Errorf("failed to decode kontraks: %w", err)
	}

	var body bytes.Buffer
	count := 0
	for i := range kontraks {
		k := &kontraks[i]
		status := k.DeadlineStatus(now, p.cfg.DeadlineUrgentDays, p.cfg.DeadlineWarningDays)
		if status == models.DeadlineNormal || status == models.DeadlineUnknown {
			continue
		}
		sisa := k.SisaHari(now)
		fmt.Fprintf(&body, "- %s: %s (%d hari)\n", k.NamaProject, status, *sisa)
		count++
	}

	if count == 0 {
		log.Println("Deadline scan: nothing approaching.")
		return nil
	}

	subject := fmt.Sprintf("[%s] %d kontrak mendekati deadline", p.cfg.AppName, count)
	message := buildPlainEmail(p.cfg.SmtpFromAddress, p.cfg.FinanceEmail, subject, body.String())
	if err := p.emailSender.Send(ctx, []string{p.cfg.FinanceEmail}, subject, message); err != nil {
		return fmt.Errorf("failed to send deadline reminder email: %w", err)
	}

	log.Printf("Deadline scan: reminder sent for %d kontrak(s).", count)
	return nil
}

// HandleProofImageTask normalizes an uploaded proof photo: oversized images
// are resized and re-encoded as JPEG in place.
func (p *TaskProcessor) HandleProofImageTask(ctx context.Context, t *asynq.Task) error {
	var payload ProofImagePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal proof image payload: %v: %w", err, asynq.SkipRetry)
	}

	getObjectOutput, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.AwsS3Bucket),
		Key:    aws.String(payload.S3Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Printf("Proof object %s not found, upload may have failed.", payload.S3Key)
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download proof image: %w", err)
	}
	defer getObjectOutput.Body.Close()

	img, format, err := image.Decode(getObjectOutput.Body)
	if err != nil {
		// PDFs and other non-image proofs pass through untouched.
		log.Printf("Proof %s is not a decodable image (%v), leaving as-is.", payload.S3Key, err)
		return nil
	}

	maxDim := p.cfg.ImageMaxDimension
	var objectSize int64
	if getObjectOutput.ContentLength != nil {
		objectSize = *getObjectOutput.ContentLength
	}
	if !normalizationNeeded(img.Bounds(), maxDim, objectSize, int64(p.cfg.ImageMaxSizeMB)<<20) {
		return nil
	}

	log.Printf("Normalizing proof %s (format=%s, %dx%d, %d bytes)", payload.S3Key, format,
		img.Bounds().Dx(), img.Bounds().Dy(), objectSize)
	resized := resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to re-encode proof image: %w", err)
	}

	_, err = p.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.AwsS3Bucket),
		Key:         aws.String(payload.S3Key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload normalized proof image: %w", err)
	}
	return nil
}

// normalizationNeeded reports whether a proof image must be re-encoded:
// either a dimension exceeds maxDim, or the stored object exceeds maxBytes
// (bloated camera uploads within dimension bounds still get the JPEG pass).
// A non-positive maxBytes disables the size check.
func normalizationNeeded(bounds image.Rectangle, maxDim int, size, maxBytes int64) bool {
	if bounds.Dx() > maxDim || bounds.Dy() > maxDim {
		return true
	}
	return maxBytes > 0 && size > maxBytes
}

// buildPlainEmail assembles a minimal RFC-style plain text message.
func buildPlainEmail(from, to, subject, body string) []byte {
	var sb bytes.Buffer
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")
	return sb.Bytes()
}
