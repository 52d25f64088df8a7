package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/claudio-nehemia/MoeyProject-sub001/internal/db"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/models"
)

// ITerminService manages termin templates (reference data).
type ITerminService interface {
	List(ctx context.Context) ([]models.Termin, error)
	FindByID(ctx context.Context, terminID primitive.ObjectID) (*models.Termin, error)
	Create(ctx context.Context, kodeTipe, namaTipe, deskripsi string, tahapan []models.TahapanStep) (*models.Termin, error)
	Update(ctx context.Context, terminID primitive.ObjectID, namaTipe, deskripsi string, tahapan []models.TahapanStep) (*models.Termin, error)
}

// terminService implements ITerminService.
type terminService struct {
	db *mongo.Database
}

// NewTerminService creates a new TerminService.
func NewTerminService(database *mongo.Database) ITerminService {
	return &terminService{db: database}
}

func (s *terminService) List(ctx context.Context) ([]models.Termin, error) {
	cursor, err := s.db.Collection(db.TerminsCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "kode_tipe", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query termins: %w", err)
	}
	defer cursor.Close(ctx)

	var termins []models.Termin
	if err = cursor.All(ctx, &termins); err != nil {
		return nil, fmt.Errorf("failed to decode termins: %w", err)
	}
	return termins, nil
}

func (s *terminService) FindByID(ctx context.Context, terminID primitive.ObjectID) (*models.Termin, error) {
	var termin models.Termin
	err := s.db.Collection(db.TerminsCollection).FindOne(ctx, bson.M{"_id": terminID}).Decode(&termin)
	if err != nil {
		return nil, err
	}
	return &termin, nil
}

func (s *terminService) Create(ctx context.Context, kodeTipe, namaTipe, deskripsi string, tahapan []models.TahapanStep) (*models.Termin, error) {
	normalized, err := normalizeTahapan(tahapan)
	if err != nil {
		return nil, err
	}

	termin := &models.Termin{
		Base:      models.NewBase(),
		KodeTipe:  kodeTipe,
		NamaTipe:  namaTipe,
		Deskripsi: deskripsi,
		Tahapan:   normalized,
	}

	_, err = s.db.Collection(db.TerminsCollection).InsertOne(ctx, termin)
	if err != nil {
		if db.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("termin kode_tipe %q already exists: %w", kodeTipe, err)
		}
		return nil, fmt.Errorf("failed to insert termin: %w", err)
	}
	return termin, nil
}

func (s *terminService) Update(ctx context.Context, terminID primitive.ObjectID, namaTipe, deskripsi string, tahapan []models.TahapanStep) (*models.Termin, error) {
	normalized, err := normalizeTahapan(tahapan)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{
		"nama_tipe":  namaTipe,
		"deskripsi":  deskripsi,
		"tahapan":    normalized,
		"updated_at": time.Now().UTC(),
	}}
	result, err := s.db.Collection(db.TerminsCollection).UpdateOne(ctx, bson.M{"_id": terminID}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update termin %s: %w", terminID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return s.FindByID(ctx, terminID)
}

// normalizeTahapan renumbers steps 1..N in the given order and enforces the
// authoring-time invariant that percentages sum to 100.
func normalizeTahapan(tahapan []models.TahapanStep) ([]models.TahapanStep, error) {
	if len(tahapan) == 0 {
		return nil, fmt.Errorf("%w: no steps given", ErrInvalidTahapan)
	}

	out := make([]models.TahapanStep, len(tahapan))
	sum := 0.0
	for i, tahap := range tahapan {
		if tahap.Persentase < 0 {
			return nil, fmt.Errorf("%w: step %d has negative percentage", ErrInvalidTahapan, i+1)
		}
		out[i] = models.TahapanStep{
			Step:       i + 1,
			Text:       tahap.Text,
			Persentase: tahap.Persentase,
		}
		if out[i].Text == "" {
			out[i].Text = fmt.Sprintf("Tahap %d", i+1)
		}
		sum += tahap.Persentase
	}

	if math.Abs(sum-100) > 0.001 {
		return nil, fmt.Errorf("%w: got %.2f", ErrInvalidTahapan, sum)
	}
	return out, nil
}
