package validation

import (
	"fmt"
	"time"

	"github.com/dkhydro/hydrosim/internal/models"
)

// EpisodeSpan computes the wall-clock time one episode covers: the step
// resolution unit times frequency times steps. The resolution enum is
// closed, so an unknown value is a programming defect, not a user error.
func EpisodeSpan(resolution models.StepResolution, frequency, steps int) (time.Duration, error) {
	n := time.Duration(frequency * steps)

	switch resolution {
	case models.ResolutionDay:
		return n * 24 * time.Hour, nil
	case models.ResolutionWeek:
		return n * 7 * 24 * time.Hour, nil
	case models.ResolutionHour:
		return n * time.Hour, nil
	default:
		return 0, fmt.Errorf("unhandled step resolution: %q", resolution)
	}
}
