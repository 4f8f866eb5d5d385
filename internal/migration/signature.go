package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/crmtools/brz2moe/internal/models"
)

// Signature derives the batch's idempotency key from its campaign-id set.
// It is order-independent and ignores everything but the ids, so two
// selections of the same campaigns collide regardless of ordering or
// metadata.
func Signature(campaigns []models.CampaignRef) string {
	ids := SortedIDs(campaigns)
	sum := sha256.Sum256([]byte(strings.Join(ids, "\n")))
	return hex.EncodeToString(sum[:])
}

// SortedIDs returns the sorted, deduplicated campaign-id set.
func SortedIDs(campaigns []models.CampaignRef) []string {
	seen := make(map[string]bool, len(campaigns))
	ids := make([]string, 0, len(campaigns))
	for _, c := range campaigns {
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	return ids
}
