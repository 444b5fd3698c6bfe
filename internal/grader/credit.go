package grader

// credit is the single partial-credit policy: the share of matched parts.
func credit(matched, total int) float64 {
	if total <= 0 || matched <= 0 {
		return 0
	}
	if matched >= total {
		return 1
	}
	return float64(matched) / float64(total)
}
