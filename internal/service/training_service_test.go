package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"receiptai/internal/classifier"
	"receiptai/internal/domain"
	"receiptai/internal/modelstore"
	"receiptai/internal/port"
	"receiptai/internal/recordstore/memory"
	"receiptai/internal/service"
	"receiptai/mocks"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func intPtr(n int) *int { return &n }

type trainDeps struct {
	clock   time.Time
	records *memory.Store
	models  *modelstore.Store
	cache   *modelstore.LatestCache
}

func newTrainDeps(t *testing.T) *trainDeps {
	d := &trainDeps{clock: mustParse(t, "2025-10-01T00:00:00Z")}
	d.records = memory.New(memory.WithClock(func() time.Time { return d.clock }))
	d.models = modelstore.New(d.records)
	d.cache = modelstore.NewLatestCache(d.models, domain.DefaultTask)
	return d
}

func (d *trainDeps) service(minSamples int) service.TrainingService {
	return service.NewTrainingService(d.records, d.models, d.cache, service.TrainingConfig{
		Task:       domain.DefaultTask,
		MinSamples: minSamples,
		PageSize:   2,
	}, nil)
}

func (d *trainDeps) feedback(t *testing.T, at string, fields map[string]any) {
	t.Helper()
	d.clock = mustParse(t, at)
	_, err := d.records.Create(context.Background(), domain.TypeFeedback, fields)
	require.NoError(t, err)
}

func (d *trainDeps) seed(t *testing.T) {
	d.feedback(t, "2025-10-01T00:00:00Z", map[string]any{"raw_text": "タクシー 乗車 現金", "category_correct": "旅費交通費"})
	d.feedback(t, "2025-10-02T00:00:00Z", map[string]any{"raw_text": "コピー用紙 ボールペン", "category_correct": "事務用品費"})
	d.feedback(t, "2025-10-03T00:00:00Z", map[string]any{"raw_text": "会議 お茶 弁当", "category_correct": "会議費", "total_correct": 1200})
}

func TestTrainingService_Train(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes_model", func(t *testing.T) {
		d := newTrainDeps(t)
		d.seed(t)

		res, err := d.service(1).Train(ctx, service.TrainInput{})
		require.NoError(t, err)

		assert.True(t, res.OK)
		assert.Equal(t, 3, res.Collected)
		assert.True(t, strings.HasPrefix(res.ModelVersion, "sgd-tfidf-"), res.ModelVersion)
		assert.NotEmpty(t, res.ModelID)
		assert.Equal(t, 3, res.Metrics["n"])
		assert.Equal(t, []any{"事務用品費", "会議費", "旅費交通費"}, res.Metrics["classes"])

		cached, err := d.cache.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, cached)
		assert.Equal(t, res.ModelID, cached.Version.ID)
	})

	t.Run("warm_start_keeps_classes", func(t *testing.T) {
		d := newTrainDeps(t)
		d.seed(t)
		svc := d.service(1)

		_, err := svc.Train(ctx, service.TrainInput{})
		require.NoError(t, err)

		d.feedback(t, "2025-10-05T00:00:00Z", map[string]any{"raw_text": "電球 乾電池", "category_correct": "消耗品費"})
		res, err := svc.Train(ctx, service.TrainInput{Since: "2025-10-04T00:00:00Z"})
		require.NoError(t, err)
		require.True(t, res.OK)
		assert.Equal(t, 1, res.Collected)

		loaded, err := d.models.Load(ctx, domain.DefaultTask)
		require.NoError(t, err)
		assert.Equal(t, []string{"事務用品費", "会議費", "旅費交通費", "消耗品費"}, loaded.Model.Classes())
		assert.Equal(t, res.ModelID, loaded.Version.ID)
	})

	t.Run("since_filters_feedback", func(t *testing.T) {
		d := newTrainDeps(t)
		d.seed(t)

		res, err := d.service(10).Train(ctx, service.TrainInput{Since: "2025-10-02T00:00:00Z"})
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.Equal(t, service.ReasonNotEnoughSamples, res.Reason)
		assert.Equal(t, 2, res.Collected)
	})

	t.Run("request_min_samples_overrides_config", func(t *testing.T) {
		d := newTrainDeps(t)
		d.seed(t)

		res, err := d.service(1).Train(ctx, service.TrainInput{MinSamples: intPtr(4)})
		require.NoError(t, err)
		assert.Equal(t, service.ReasonNotEnoughSamples, res.Reason)
		assert.Equal(t, 3, res.Collected)
	})

	t.Run("empty_batch_is_skipped", func(t *testing.T) {
		d := newTrainDeps(t)

		res, err := d.service(0).Train(ctx, service.TrainInput{})
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.Equal(t, service.ReasonTrainingSkipped, res.Reason)

		loaded, err := d.models.Load(ctx, domain.DefaultTask)
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("invalid_since", func(t *testing.T) {
		d := newTrainDeps(t)
		_, err := d.service(1).Train(ctx, service.TrainInput{Since: "yesterday"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("latest_without_blob", func(t *testing.T) {
		d := newTrainDeps(t)
		d.seed(t)
		_, err := d.records.Create(ctx, domain.TypeModelVersion, map[string]any{
			"task": domain.DefaultTask, "is_latest": true, "name": "broken",
		})
		require.NoError(t, err)

		_, err = d.service(1).Train(ctx, service.TrainInput{})
		assert.ErrorIs(t, err, domain.ErrStore)
	})

	t.Run("first_page_failure", func(t *testing.T) {
		records := new(mocks.MockRecordStore)
		records.On("Search", mock.Anything, domain.TypeFeedback, mock.Anything).
			Return(nil, fmt.Errorf("bubble: %w", domain.ErrTimeout))
		svc := service.NewTrainingService(records, modelstore.New(memory.New()), nil, service.TrainingConfig{}, nil)

		_, err := svc.Train(ctx, service.TrainInput{})
		assert.ErrorIs(t, err, domain.ErrTimeout)
	})

	t.Run("later_page_failure_trains_on_collected", func(t *testing.T) {
		records := new(mocks.MockRecordStore)
		records.On("Search", mock.Anything, domain.TypeFeedback, mock.MatchedBy(func(q port.SearchQuery) bool {
			return q.Cursor == ""
		})).Return(&port.SearchPage{
			Results: []port.Record{{ID: "f1", Fields: map[string]any{"raw_text": "タクシー", "category_correct": "旅費交通費"}}},
			Cursor:  "1",
		}, nil)
		records.On("Search", mock.Anything, domain.TypeFeedback, mock.MatchedBy(func(q port.SearchQuery) bool {
			return q.Cursor == "1"
		})).Return(nil, fmt.Errorf("bubble: %w", domain.ErrService))
		svc := service.NewTrainingService(records, modelstore.New(memory.New()), nil, service.TrainingConfig{MinSamples: 1}, nil)

		res, err := svc.Train(ctx, service.TrainInput{})
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.Equal(t, 1, res.Collected)
	})
}

func TestSampleFromFeedback(t *testing.T) {
	t.Run("raw_text_and_hints", func(t *testing.T) {
		s := service.SampleFromFeedback(domain.Feedback{
			RawText: "ローソン", CategoryCorrect: "会議費", VendorCorrect: "ローソン", TotalCorrect: "580", PaymentMethod: "現金",
		})
		assert.Equal(t, classifier.Sample{Text: "ローソン", Vendor: "ローソン", Amount: "580", Payment: "現金", Label: "会議費"}, s)
	})

	t.Run("category_stands_in_for_text", func(t *testing.T) {
		s := service.SampleFromFeedback(domain.Feedback{CategoryCorrect: "雑費"})
		assert.Equal(t, "雑費", s.Text)
		assert.Equal(t, "雑費", s.Label)
	})

	t.Run("missing_label", func(t *testing.T) {
		s := service.SampleFromFeedback(domain.Feedback{RawText: "???"})
		assert.Equal(t, domain.CategoryUncategorized, s.Label)
	})
}

func TestParseSince(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"empty", "", time.Time{}},
		{"utc_z", "2025-10-10T00:00:00Z", time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)},
		{"offset", "2025-10-10T09:00:00+09:00", time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)},
		{"no_zone", "2025-10-10T12:30:00", time.Date(2025, 10, 10, 12, 30, 0, 0, time.UTC)},
		{"date_only", "2025-10-10", time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.ParseSince(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := service.ParseSince("10/10/2025")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
