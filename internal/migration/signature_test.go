package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crmtools/brz2moe/internal/models"
)

func refsFromIDs(ids ...string) []models.CampaignRef {
	refs := make([]models.CampaignRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, models.CampaignRef{ID: id, Type: models.TypeEmail})
	}
	return refs
}

func TestSignature(t *testing.T) {
	t.Run("is order independent", func(t *testing.T) {
		assert.Equal(t,
			Signature(refsFromIDs("a", "b", "c")),
			Signature(refsFromIDs("c", "b", "a")))
	})

	t.Run("differs when the set differs", func(t *testing.T) {
		assert.NotEqual(t,
			Signature(refsFromIDs("a", "b")),
			Signature(refsFromIDs("a", "b", "c")))
	})

	t.Run("ignores metadata beyond ids", func(t *testing.T) {
		a := []models.CampaignRef{{ID: "x", Name: "One", Type: models.TypeEmail}}
		b := []models.CampaignRef{{ID: "x", Name: "Renamed", Type: models.TypeSMS}}
		assert.Equal(t, Signature(a), Signature(b))
	})

	t.Run("collapses duplicate ids", func(t *testing.T) {
		assert.Equal(t,
			Signature(refsFromIDs("a", "a", "b")),
			Signature(refsFromIDs("a", "b")))
	})
}

func TestSortedIDs(t *testing.T) {
	ids := SortedIDs(refsFromIDs("c", "a", "b", "a", ""))
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
