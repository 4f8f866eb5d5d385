package migration

import (
	"fmt"

	"github.com/crmtools/brz2moe/internal/models"
)

// ClassifyResult partitions a selection into the work list and the items
// dropped before execution.
type ClassifyResult struct {
	// Ordered is the migratable work list, input order preserved.
	Ordered []models.CampaignRef
	// DroppedDuplicates are later occurrences of an (id, name, type) key
	// already seen; the first occurrence wins.
	DroppedDuplicates []models.CampaignRef
	// DroppedTypes are campaigns whose type cannot be migrated.
	DroppedTypes []models.CampaignRef
	// Events carries the classification log entries for the caller to
	// record. Classify itself performs no I/O.
	Events []Event
}

// Classify filters non-migratable campaign types and removes duplicate
// entries from a selection. It is a pure function.
func Classify(campaigns []models.CampaignRef) ClassifyResult {
	result := ClassifyResult{}
	seen := make(map[string]bool, len(campaigns))
	perType := make(map[models.CampaignType]int)

	for _, campaign := range campaigns {
		if !campaign.Type.Migratable() {
			result.DroppedTypes = append(result.DroppedTypes, campaign)
			result.Events = append(result.Events, event(LevelInfo,
				fmt.Sprintf("Skipping %q: %s campaigns cannot be migrated", campaign.Name, campaign.Type)))
			continue
		}

		if seen[campaign.Key()] {
			result.DroppedDuplicates = append(result.DroppedDuplicates, campaign)
			result.Events = append(result.Events, event(LevelWarning,
				fmt.Sprintf("Dropping duplicate selection of %q (%s)", campaign.Name, campaign.ID)))
			continue
		}
		seen[campaign.Key()] = true

		result.Ordered = append(result.Ordered, campaign)
		perType[normalizeChannel(campaign.Type)]++
	}

	// Per-channel counts are reporting only; processing keeps input order.
	for _, channel := range []models.CampaignType{models.TypeEmail, models.TypePush, models.TypeSMS} {
		result.Events = append(result.Events, event(LevelInfo,
			fmt.Sprintf("%s campaigns: %d", channelLabel(channel), perType[channel])))
	}

	return result
}

// normalizeChannel folds multi-channel campaigns into the push channel for
// reporting, mirroring how dispatch routes them.
func normalizeChannel(t models.CampaignType) models.CampaignType {
	if t == models.TypeMulti {
		return models.TypePush
	}
	return t
}

func channelLabel(t models.CampaignType) string {
	switch t {
	case models.TypeEmail:
		return "Email"
	case models.TypePush:
		return "Push"
	case models.TypeSMS:
		return "SMS"
	default:
		return string(t)
	}
}

func event(level EventLevel, message string) Event {
	return Event{Level: level, Message: message}
}
