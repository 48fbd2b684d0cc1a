package pipeline

// Summary counts outcomes of a run. Succeeded, Partial and Failed add up to Total.
type Summary struct {
	Total     int
	Succeeded int
	// Partial counts records that were created but are missing overflow blocks
	Partial int
	Failed  int
	// FallbackMetadata counts outcomes, successful or not, whose metadata is the fallback
	FallbackMetadata int
}

func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch {
		case o.Succeeded():
			s.Succeeded++
		case o.Partial():
			s.Partial++
		default:
			s.Failed++
		}
		if o.MetadataErr != nil {
			s.FallbackMetadata++
		}
	}
	return s
}

// OK reports whether every pair was persisted completely
func (s Summary) OK() bool {
	return s.Succeeded == s.Total
}
