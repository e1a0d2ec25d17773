package arena

import "fmt"

// FitMode selects among free blocks that satisfy a size request.
type FitMode uint8

const (
	// FirstFit takes the lowest-addressed qualifying block.
	FirstFit FitMode = iota

	// BestFit takes the qualifying block of minimum size; ties break toward
	// the lowest address.
	BestFit

	// WorstFit takes the qualifying block of maximum size; ties break toward
	// the lowest address.
	WorstFit
)

func (m FitMode) String() string {
	switch m {
	case FirstFit:
		return "first"
	case BestFit:
		return "best"
	case WorstFit:
		return "worst"
	default:
		return fmt.Sprintf("FitMode(%d)", uint8(m))
	}
}

// ParseFitMode converts a textual mode name ("first", "best", "worst") into
// a FitMode.
func ParseFitMode(s string) (FitMode, error) {
	switch s {
	case "first":
		return FirstFit, nil
	case "best":
		return BestFit, nil
	case "worst":
		return WorstFit, nil
	default:
		return 0, fmt.Errorf("arena: unknown fit mode %q", s)
	}
}

// Better reports whether candidate size a beats current champion size b
// under mode m. Walks visit blocks in ascending address order and call
// Better with strict comparison, so ties keep the earlier (lower-addressed)
// block.
func (m FitMode) Better(a, b int) bool {
	switch m {
	case BestFit:
		return a < b
	case WorstFit:
		return a > b
	default:
		return false
	}
}
