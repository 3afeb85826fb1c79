package placement

import "online-admission/models"

// IndexNumbers returns the candidate index numbers of drafts in order.
func IndexNumbers(drafts []models.Student) []string {
	out := make([]string, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, d.IndexNumber)
	}
	return out
}

// FilterDuplicates drops drafts whose index number is already stored or
// appeared earlier in the same batch. Order is preserved. Drafts without an
// index number are kept so the commit stage rejects each of them.
func FilterDuplicates(drafts []models.Student, existing map[string]struct{}) []models.Student {
	seen := make(map[string]struct{}, len(drafts))
	kept := make([]models.Student, 0, len(drafts))
	for _, d := range drafts {
		if d.IndexNumber == "" {
			kept = append(kept, d)
			continue
		}
		if _, ok := existing[d.IndexNumber]; ok {
			continue
		}
		if _, ok := seen[d.IndexNumber]; ok {
			continue
		}
		seen[d.IndexNumber] = struct{}{}
		kept = append(kept, d)
	}
	return kept
}
