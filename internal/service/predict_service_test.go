package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"receiptai/internal/classifier"
	"receiptai/internal/domain"
	"receiptai/internal/imagesource"
	"receiptai/internal/modelstore"
	"receiptai/internal/port"
	"receiptai/internal/recordstore/memory"
	"receiptai/internal/service"
	"receiptai/mocks"
)

const sampleReceipt = `デンキチ
2025-10-10
標準税率 10%
合計 ¥36,990
T1234567890123
埼玉県川口市栄町3-2-1
お支払い方法: クレジット`

type stubResolver struct {
	img   *imagesource.Image
	err   error
	calls int
}

func (s *stubResolver) Resolve(_ context.Context, _ imagesource.Ref) (*imagesource.Image, error) {
	s.calls++
	return s.img, s.err
}

type predictDeps struct {
	records    port.RecordStore
	models     *modelstore.Store
	recognizer *mocks.MockRecognizer
	resolver   *stubResolver
	archive    port.ObjectStorage
	bucket     string
}

func newPredictDeps() *predictDeps {
	return &predictDeps{
		records:    memory.New(),
		models:     modelstore.New(memory.New()),
		recognizer: new(mocks.MockRecognizer),
		resolver: &stubResolver{img: &imagesource.Image{
			Data: []byte("png-bytes"), ContentType: "image/png", Origin: "base64",
		}},
	}
}

func (d *predictDeps) service() service.PredictService {
	cache := modelstore.NewLatestCache(d.models, domain.DefaultTask)
	return service.NewPredictService(d.resolver, d.recognizer, cache, d.records, d.archive,
		service.PredictConfig{Language: "jpn+eng", ArchiveBucket: d.bucket}, nil)
}

func (d *predictDeps) recognizes(text string) {
	d.recognizer.On("Recognize", mock.Anything, port.RecognizeInput{
		Data: []byte("png-bytes"), ContentType: "image/png", Language: "jpn+eng",
	}).Return(&port.RecognizeOutput{Text: text, Engine: "tesseract", Confidence: 0.9}, nil)
}

func receipts(t *testing.T, records port.RecordStore) []port.Record {
	t.Helper()
	page, err := records.Search(context.Background(), domain.TypeReceipt, port.SearchQuery{})
	require.NoError(t, err)
	return page.Results
}

func TestPredictService_Predict(t *testing.T) {
	ctx := context.Background()

	t.Run("missing_image", func(t *testing.T) {
		d := newPredictDeps()
		_, err := d.service().Predict(ctx, service.PredictInput{DocID: "r_1"})
		assert.ErrorIs(t, err, domain.ErrMissingImage)
		assert.Zero(t, d.resolver.calls)
		d.recognizer.AssertNotCalled(t, "Recognize", mock.Anything, mock.Anything)
	})

	t.Run("fallback_without_model", func(t *testing.T) {
		d := newPredictDeps()
		d.recognizes(sampleReceipt)

		res, err := d.service().Predict(ctx, service.PredictInput{ImageBase64: "cG5nLWJ5dGVz"})
		require.NoError(t, err)

		assert.Regexp(t, `^r_\d{8}_[0-9a-f]{6}$`, res.DocID)
		assert.Equal(t, domain.CategoryOfficeSupply, res.Category.Pred)
		assert.Equal(t, 0.5, res.Category.Score)
		assert.Len(t, res.Category.Alternatives, 2)
		assert.Empty(t, res.ModelVersion)
		assert.Equal(t, "デンキチ", res.Extracted.Fields.Vendor.Value)
		assert.Equal(t, int64(36990), res.Extracted.Fields.Amount.Value)
		assert.Equal(t, "tesseract", res.Extracted.OCREngine)
		assert.NotEmpty(t, res.ReceiptID)

		stored := receipts(t, d.records)
		require.Len(t, stored, 1)
		rec := stored[0]
		assert.Equal(t, res.ReceiptID, rec.ID)
		assert.Equal(t, res.DocID, rec.String("doc_id"))
		assert.Equal(t, "predicted", rec.String("status"))
		assert.Equal(t, "2025-10-10", rec.String("date"))
		assert.EqualValues(t, 36990, rec.Fields["total"])
		assert.Equal(t, 0.1, rec.Fields["tax"])
		assert.Equal(t, domain.CategoryOfficeSupply, rec.String("pred_category"))
		assert.NotContains(t, rec.Fields, "image_url")
	})

	t.Run("upserts_by_doc_id", func(t *testing.T) {
		d := newPredictDeps()
		d.recognizes(sampleReceipt)
		svc := d.service()

		first, err := svc.Predict(ctx, service.PredictInput{DocID: "r_20251010_abcdef", ImageURL: "https://example.com/a.png"})
		require.NoError(t, err)
		second, err := svc.Predict(ctx, service.PredictInput{DocID: "r_20251010_abcdef", ImageURL: "https://example.com/a.png"})
		require.NoError(t, err)

		assert.Equal(t, first.ReceiptID, second.ReceiptID)
		assert.Len(t, receipts(t, d.records), 1)
	})

	t.Run("uses_latest_model", func(t *testing.T) {
		d := newPredictDeps()
		d.recognizes(sampleReceipt)
		m, _ := classifier.PartialTrain(nil, []classifier.Sample{
			{Text: "デンキチ 家電 クレジット", Label: "消耗品費"},
			{Text: "タクシー 乗車 現金", Label: "旅費交通費"},
		}, classifier.TrainOptions{})
		saved, err := d.models.Save(ctx, domain.DefaultTask, "", m, nil)
		require.NoError(t, err)

		res, err := d.service().Predict(ctx, service.PredictInput{ImageURL: "https://example.com/a.png"})
		require.NoError(t, err)

		assert.Equal(t, saved.Version.Name, res.ModelVersion)
		assert.Contains(t, m.Classes(), res.Category.Pred)
		assert.Len(t, res.Category.Alternatives, 2)
		assert.Equal(t, saved.Version.Name, receipts(t, d.records)[0].String("model_version"))
	})

	t.Run("empty_ocr_text", func(t *testing.T) {
		d := newPredictDeps()
		d.recognizes("  \n ")
		_, err := d.service().Predict(ctx, service.PredictInput{ImageURL: "https://example.com/a.png"})
		assert.ErrorIs(t, err, domain.ErrDecode)
		assert.Empty(t, receipts(t, d.records))
	})

	t.Run("resolver_error", func(t *testing.T) {
		d := newPredictDeps()
		d.resolver.err = fmt.Errorf("imagesource.Resolve: %w", domain.ErrFetch)
		_, err := d.service().Predict(ctx, service.PredictInput{ImageURL: "https://example.com/a.png"})
		assert.ErrorIs(t, err, domain.ErrFetch)
	})

	t.Run("recognizer_timeout", func(t *testing.T) {
		d := newPredictDeps()
		d.recognizer.On("Recognize", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("ocr: %w", domain.ErrTimeout))
		_, err := d.service().Predict(ctx, service.PredictInput{ImageURL: "https://example.com/a.png"})
		assert.ErrorIs(t, err, domain.ErrTimeout)
	})

	t.Run("model_store_error", func(t *testing.T) {
		d := newPredictDeps()
		d.recognizes(sampleReceipt)
		broken := new(mocks.MockRecordStore)
		broken.On("Search", mock.Anything, domain.TypeModelVersion, mock.Anything).
			Return(nil, fmt.Errorf("bubble: %w", domain.ErrService))
		d.models = modelstore.New(broken)

		_, err := d.service().Predict(ctx, service.PredictInput{ImageURL: "https://example.com/a.png"})
		assert.ErrorIs(t, err, domain.ErrStore)
	})

	t.Run("receipt_store_failure_is_not_fatal", func(t *testing.T) {
		d := newPredictDeps()
		d.recognizes(sampleReceipt)
		broken := new(mocks.MockRecordStore)
		broken.On("Search", mock.Anything, domain.TypeReceipt, mock.Anything).
			Return(nil, errors.New("connection refused"))
		d.records = broken

		res, err := d.service().Predict(ctx, service.PredictInput{DocID: "r_1", ImageURL: "https://example.com/a.png"})
		require.NoError(t, err)
		assert.Equal(t, "r_1", res.DocID)
		assert.Empty(t, res.ReceiptID)
		broken.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("archives_uploads", func(t *testing.T) {
		d := newPredictDeps()
		d.recognizes(sampleReceipt)
		archive := new(mocks.MockObjectStorage)
		archive.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
			return in.Bucket == "archive" &&
				strings.HasPrefix(in.Key, "receipts/") &&
				strings.HasSuffix(in.Key, "/r_1.png") &&
				in.ContentType == "image/png" &&
				in.Size == int64(len("png-bytes"))
		})).Return(&port.UploadOutput{}, nil)
		d.archive = archive
		d.bucket = "archive"

		_, err := d.service().Predict(ctx, service.PredictInput{DocID: "r_1", ImageBase64: "cG5nLWJ5dGVz"})
		require.NoError(t, err)

		archive.AssertExpectations(t)
		url := receipts(t, d.records)[0].String("image_url")
		assert.True(t, strings.HasPrefix(url, "s3://archive/receipts/"), url)
	})

	t.Run("archive_failure_is_not_fatal", func(t *testing.T) {
		d := newPredictDeps()
		d.recognizes(sampleReceipt)
		archive := new(mocks.MockObjectStorage)
		archive.On("Upload", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("s3: %w", domain.ErrService))
		d.archive = archive
		d.bucket = "archive"

		res, err := d.service().Predict(ctx, service.PredictInput{DocID: "r_1", ImageBase64: "cG5nLWJ5dGVz"})
		require.NoError(t, err)
		assert.NotEmpty(t, res.ReceiptID)
		assert.NotContains(t, receipts(t, d.records)[0].Fields, "image_url")
	})
}

func TestPredictService_Extract(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts_without_persisting", func(t *testing.T) {
		d := newPredictDeps()
		res, err := d.service().Extract(ctx, service.ExtractInput{Text: sampleReceipt})
		require.NoError(t, err)

		assert.Equal(t, "T1234567890123", res.Extracted.Fields.InvoiceNumber.Value)
		assert.Equal(t, "クレジット", res.Extracted.Candidates.PaymentMethod.Value())
		assert.Equal(t, domain.CategoryOfficeSupply, res.Category.Pred)
		assert.Empty(t, res.ReceiptID)
		assert.Empty(t, receipts(t, d.records))
		d.recognizer.AssertNotCalled(t, "Recognize", mock.Anything, mock.Anything)
	})

	t.Run("empty_text", func(t *testing.T) {
		d := newPredictDeps()
		_, err := d.service().Extract(ctx, service.ExtractInput{Text: " "})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestNewDocID(t *testing.T) {
	now := mustParse(t, "2025-10-10T09:00:00+09:00")
	a := service.NewDocID(now)
	b := service.NewDocID(now)
	assert.Regexp(t, `^r_20251010_[0-9a-f]{6}$`, a)
	assert.NotEqual(t, a, b)
}
