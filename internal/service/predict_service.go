package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"receiptai/internal/classifier"
	"receiptai/internal/domain"
	"receiptai/internal/extract"
	"receiptai/internal/imagesource"
	"receiptai/internal/modelstore"
	"receiptai/internal/port"
	"receiptai/internal/textnorm"
)

// ImageResolver turns an image reference into document bytes.
type ImageResolver interface {
	Resolve(ctx context.Context, ref imagesource.Ref) (*imagesource.Image, error)
}

// LatestModel serves the current model version of the classifier task.
type LatestModel interface {
	Get(ctx context.Context) (*modelstore.Loaded, error)
}

// Hint carries caller-supplied values that feed the classifier document.
type Hint struct {
	Vendor        string `json:"vendor,omitempty"`
	Amount        string `json:"amount,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

// PredictInput is the DTO for predict requests.
type PredictInput struct {
	DocID       string `json:"doc_id"`
	ImageURL    string `json:"image_url"`
	ImageBase64 string `json:"image_base64"`
	Hint        *Hint  `json:"hint"`
}

// ExtractInput is the DTO for extracting fields from OCR text.
type ExtractInput struct {
	DocID string `json:"doc_id"`
	Text  string `json:"text" binding:"required"`
	Hint  *Hint  `json:"hint"`
}

// Extraction is the structured view of one document.
type Extraction struct {
	RawText       string          `json:"raw_text"`
	OCREngine     string          `json:"ocr_engine,omitempty"`
	OCRConfidence float64         `json:"ocr_confidence,omitempty"`
	Fields        extract.Summary `json:"fields"`
	Candidates    extract.Record  `json:"candidates"`
}

// CategoryResult is the predicted category with ranked alternatives.
type CategoryResult struct {
	Pred         string              `json:"pred"`
	Score        float64             `json:"score"`
	Alternatives []classifier.Scored `json:"alternatives"`
}

// PredictResult is returned by Predict and Extract.
type PredictResult struct {
	DocID        string         `json:"doc_id"`
	ReceiptID    string         `json:"receipt_id,omitempty"`
	Extracted    Extraction     `json:"extracted"`
	Category     CategoryResult `json:"category"`
	ModelVersion string         `json:"model_version,omitempty"`
}

// PredictService defines the receipt analysis contract.
type PredictService interface {
	Predict(ctx context.Context, input PredictInput) (*PredictResult, error)
	Extract(ctx context.Context, input ExtractInput) (*PredictResult, error)
}

// PredictConfig holds the settings of the predict pipeline.
type PredictConfig struct {
	Language      string
	ArchiveBucket string
	Location      *time.Location
}

type predictService struct {
	resolver   ImageResolver
	recognizer port.Recognizer
	model      LatestModel
	records    port.RecordStore
	archive    port.ObjectStorage
	cfg        PredictConfig
	log        *zap.Logger
	now        func() time.Time
}

// NewPredictService creates a new PredictService implementation. archive may
// be nil, which disables archiving of uploaded images.
func NewPredictService(
	resolver ImageResolver,
	recognizer port.Recognizer,
	model LatestModel,
	records port.RecordStore,
	archive port.ObjectStorage,
	cfg PredictConfig,
	logger *zap.Logger,
) PredictService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &predictService{
		resolver:   resolver,
		recognizer: recognizer,
		model:      model,
		records:    records,
		archive:    archive,
		cfg:        cfg,
		log:        logger,
		now:        time.Now,
	}
}

// predictedCategory is a prediction plus the version that produced it.
type predictedCategory struct {
	classifier.Prediction
	ModelVersion string
}

func (s *predictService) Predict(ctx context.Context, input PredictInput) (*PredictResult, error) {
	ref := imagesource.Ref{URL: input.ImageURL, Base64: input.ImageBase64}
	if strings.TrimSpace(ref.URL) == "" && strings.TrimSpace(ref.Base64) == "" {
		return nil, domain.ErrMissingImage
	}
	docID := strings.TrimSpace(input.DocID)
	if docID == "" {
		docID = NewDocID(s.now().In(s.cfg.Location))
	}

	img, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolving image: %w", err)
	}

	out, err := s.recognizer.Recognize(ctx, port.RecognizeInput{
		Data:        img.Data,
		ContentType: img.ContentType,
		Language:    s.cfg.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return nil, fmt.Errorf("recognizing text: engine %s returned no text: %w", out.Engine, domain.ErrDecode)
	}

	rec, result, pred, err := s.analyze(ctx, docID, out.Text, input.Hint)
	if err != nil {
		return nil, err
	}
	result.Extracted.OCREngine = out.Engine
	result.Extracted.OCRConfidence = out.Confidence

	imageURL := img.Origin
	if input.ImageBase64 != "" {
		imageURL = s.archiveUpload(ctx, docID, img)
	}

	fields := receiptFields(docID, imageURL, result.Extracted.RawText, rec, pred)
	result.ReceiptID = s.upsertReceipt(ctx, docID, fields)

	s.log.Info("predictService.Predict: receipt analyzed",
		zap.String("doc_id", docID),
		zap.String("engine", out.Engine),
		zap.String("category", pred.Label),
		zap.Float64("score", pred.Score),
		zap.Bool("fallback", pred.Fallback))
	return result, nil
}

func (s *predictService) Extract(ctx context.Context, input ExtractInput) (*PredictResult, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, fmt.Errorf("text is required: %w", domain.ErrInvalidInput)
	}
	_, result, _, err := s.analyze(ctx, strings.TrimSpace(input.DocID), input.Text, input.Hint)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// analyze normalizes raw text, extracts fields and classifies the document.
func (s *predictService) analyze(ctx context.Context, docID, raw string, hint *Hint) (extract.Record, *PredictResult, predictedCategory, error) {
	text := textnorm.Parse(raw)
	rec := extract.ExtractAll(text)

	pred, err := s.classify(ctx, text, rec, hint)
	if err != nil {
		return extract.Record{}, nil, predictedCategory{}, err
	}

	return rec, &PredictResult{
		DocID: docID,
		Extracted: Extraction{
			RawText:    text.Text,
			Fields:     rec.Summarize(),
			Candidates: rec,
		},
		Category: CategoryResult{
			Pred:         pred.Label,
			Score:        pred.Score,
			Alternatives: pred.Alternatives,
		},
		ModelVersion: pred.ModelVersion,
	}, pred, nil
}

// classify predicts with the latest model. A task that was never trained, or
// whose latest record has no blob, gets the fallback prediction.
func (s *predictService) classify(ctx context.Context, text textnorm.OCRText, rec extract.Record, hint *Hint) (predictedCategory, error) {
	loaded, err := s.model.Get(ctx)
	if err != nil {
		return predictedCategory{}, fmt.Errorf("loading model: %w", err)
	}

	doc := classifier.Document{Text: text.Text, Vendor: rec.Vendor.Value(), Payment: rec.PaymentMethod.Value()}
	if rec.Amount.Found() {
		doc.Amount = strconv.FormatInt(rec.Amount.Value(), 10)
	}
	if hint != nil {
		doc.Vendor = firstNonEmpty(hint.Vendor, doc.Vendor)
		doc.Amount = firstNonEmpty(hint.Amount, doc.Amount)
		doc.Payment = firstNonEmpty(hint.PaymentMethod, doc.Payment)
	}

	var (
		m       *classifier.Model
		version string
	)
	if loaded != nil && loaded.Model != nil {
		m = loaded.Model
		version = loaded.Version.Name
	}
	return predictedCategory{Prediction: classifier.Predict(doc, m), ModelVersion: version}, nil
}

// upsertReceipt updates the Receipt with docID or creates it. Failures are
// logged; the prediction is still returned to the caller.
func (s *predictService) upsertReceipt(ctx context.Context, docID string, fields map[string]any) string {
	existing, err := findReceiptByDocID(ctx, s.records, docID)
	if err != nil {
		s.log.Warn("predictService.upsertReceipt: lookup failed",
			zap.String("doc_id", docID), zap.Error(err))
		return ""
	}
	if existing != nil {
		if _, err := s.records.Update(ctx, domain.TypeReceipt, existing.ID, fields); err != nil {
			s.log.Warn("predictService.upsertReceipt: update failed",
				zap.String("doc_id", docID), zap.String("id", existing.ID), zap.Error(err))
		}
		return existing.ID
	}
	created, err := s.records.Create(ctx, domain.TypeReceipt, fields)
	if err != nil {
		s.log.Warn("predictService.upsertReceipt: create failed",
			zap.String("doc_id", docID), zap.Error(err))
		return ""
	}
	return created.ID
}

// archiveUpload stores an inline upload in the archive bucket and returns its
// s3:// URL, or "" when archiving is off or fails.
func (s *predictService) archiveUpload(ctx context.Context, docID string, img *imagesource.Image) string {
	if s.archive == nil || s.cfg.ArchiveBucket == "" {
		return ""
	}
	ext := ""
	if m := mimetype.Lookup(img.ContentType); m != nil {
		ext = m.Extension()
	}
	key := fmt.Sprintf("receipts/%s/%s%s", s.now().In(s.cfg.Location).Format("2006/01"), docID, ext)
	_, err := s.archive.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.ArchiveBucket,
		Key:         key,
		Body:        bytes.NewReader(img.Data),
		ContentType: img.ContentType,
		Size:        int64(len(img.Data)),
	})
	if err != nil {
		s.log.Warn("predictService.archiveUpload: upload failed",
			zap.String("doc_id", docID), zap.String("key", key), zap.Error(err))
		return ""
	}
	return "s3://" + s.cfg.ArchiveBucket + "/" + key
}

// NewDocID returns r_<yyyymmdd>_<6 hex> for a receipt received at t.
func NewDocID(t time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("r_%s_%x", t.Format("20060102"), id[:3])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
