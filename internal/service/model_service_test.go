package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiptai/internal/classifier"
	"receiptai/internal/domain"
	"receiptai/internal/modelstore"
	"receiptai/internal/recordstore/memory"
	"receiptai/internal/service"
)

func TestModelService(t *testing.T) {
	ctx := context.Background()
	models := modelstore.New(memory.New())
	cache := modelstore.NewLatestCache(models, domain.DefaultTask)
	svc := service.NewModelService(models, cache, "")

	info, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.False(t, info.Loaded)
	assert.Nil(t, info.Version)

	m, _ := classifier.PartialTrain(nil, []classifier.Sample{
		{Text: "タクシー", Label: "旅費交通費"},
		{Text: "コピー用紙", Label: "事務用品費"},
	}, classifier.TrainOptions{})
	first, err := models.Save(ctx, domain.DefaultTask, "v1", m, map[string]any{"n": 2})
	require.NoError(t, err)
	second, err := models.Save(ctx, domain.DefaultTask, "v2", m, map[string]any{"n": 2})
	require.NoError(t, err)

	info, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.False(t, info.Loaded, "cache still holds the empty entry")

	info, err = svc.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, info.Loaded)
	assert.Equal(t, second.Version.ID, info.Version.ID)
	assert.Equal(t, []string{"事務用品費", "旅費交通費"}, info.Classes)

	versions, err := svc.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "v2", versions[0].Name)
	assert.True(t, versions[0].IsLatest)
	assert.Equal(t, first.Version.ID, versions[1].ID)
	assert.False(t, versions[1].IsLatest)
}
