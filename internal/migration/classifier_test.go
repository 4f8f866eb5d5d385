package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmtools/brz2moe/internal/models"
)

func TestClassify(t *testing.T) {
	t.Run("filters non migratable types", func(t *testing.T) {
		result := Classify([]models.CampaignRef{
			{ID: "c1", Name: "Welcome", Type: models.TypeEmail},
			{ID: "c2", Name: "Promo", Type: models.TypePush},
			{ID: "c3", Name: "Homepage", Type: models.TypeBanner},
		})

		require.Len(t, result.Ordered, 2)
		assert.Equal(t, "c1", result.Ordered[0].ID)
		assert.Equal(t, "c2", result.Ordered[1].ID)
		require.Len(t, result.DroppedTypes, 1)
		assert.Equal(t, "c3", result.DroppedTypes[0].ID)
	})

	t.Run("type drops are informational not errors", func(t *testing.T) {
		result := Classify([]models.CampaignRef{
			{ID: "c1", Name: "Homepage", Type: models.TypeBanner},
		})

		require.NotEmpty(t, result.Events)
		assert.Equal(t, LevelInfo, result.Events[0].Level)
		assert.Contains(t, result.Events[0].Message, "banner")
	})

	t.Run("deduplicates by id name and type with first occurrence winning", func(t *testing.T) {
		result := Classify([]models.CampaignRef{
			{ID: "c1", Name: "Welcome", Type: models.TypeEmail, VariationCount: 2},
			{ID: "c1", Name: "Welcome", Type: models.TypeEmail, VariationCount: 5},
		})

		require.Len(t, result.Ordered, 1)
		assert.Equal(t, 2, result.Ordered[0].VariationCount)
		require.Len(t, result.DroppedDuplicates, 1)

		var sawWarning bool
		for _, e := range result.Events {
			if e.Level == LevelWarning {
				sawWarning = true
				assert.Contains(t, e.Message, "duplicate")
			}
		}
		assert.True(t, sawWarning)
	})

	t.Run("same id with different type is not a duplicate", func(t *testing.T) {
		result := Classify([]models.CampaignRef{
			{ID: "c1", Name: "Welcome", Type: models.TypeEmail},
			{ID: "c1", Name: "Welcome", Type: models.TypePush},
		})

		assert.Len(t, result.Ordered, 2)
		assert.Empty(t, result.DroppedDuplicates)
	})

	t.Run("emits per channel counts with multi folded into push", func(t *testing.T) {
		result := Classify([]models.CampaignRef{
			{ID: "c1", Type: models.TypeEmail},
			{ID: "c2", Type: models.TypeMulti},
			{ID: "c3", Type: models.TypePush},
			{ID: "c4", Type: models.TypeSMS},
		})

		messages := make([]string, 0, len(result.Events))
		for _, e := range result.Events {
			messages = append(messages, e.Message)
		}
		assert.Contains(t, messages, "Email campaigns: 1")
		assert.Contains(t, messages, "Push campaigns: 2")
		assert.Contains(t, messages, "SMS campaigns: 1")
	})

	t.Run("preserves input order", func(t *testing.T) {
		result := Classify([]models.CampaignRef{
			{ID: "s1", Type: models.TypeSMS},
			{ID: "e1", Type: models.TypeEmail},
			{ID: "p1", Type: models.TypePush},
		})

		require.Len(t, result.Ordered, 3)
		assert.Equal(t, "s1", result.Ordered[0].ID)
		assert.Equal(t, "e1", result.Ordered[1].ID)
		assert.Equal(t, "p1", result.Ordered[2].ID)
	})

	t.Run("does not mutate its input", func(t *testing.T) {
		input := []models.CampaignRef{
			{ID: "c1", Type: models.TypeEmail},
			{ID: "c2", Type: models.TypeBanner},
		}
		Classify(input)

		assert.Equal(t, "c1", input[0].ID)
		assert.Equal(t, models.TypeBanner, input[1].Type)
	})
}
