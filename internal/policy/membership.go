package policy

import (
	"errors"
	"fmt"

	"github.com/yukikurage/periodical/internal/constants"
	"github.com/yukikurage/periodical/internal/models"
)

// ErrWriterLimitReached matches any WriterLimitError.
var ErrWriterLimitReached = errors.New("writer limit reached")

// WriterLimitError reports that an organization has no content writer seat left.
type WriterLimitError struct {
	Max int
}

func (e *WriterLimitError) Error() string {
	return fmt.Sprintf("Organization has reached maximum limit of %d content writers", e.Max)
}

func (e *WriterLimitError) Is(target error) bool {
	return target == ErrWriterLimitReached
}

// WriterCap returns the writer limit for a plan. A positive override wins.
func WriterCap(plan models.PlanType, override int) int {
	if override > 0 {
		return override
	}
	switch plan {
	case models.PlanPremium:
		return constants.PremiumMaxWriters
	case models.PlanEnterprise:
		return constants.EnterpriseMaxWriters
	default:
		return constants.FreeMaxWriters
	}
}

// CheckWriterCapacity fails when activeWriters already fills max.
func CheckWriterCapacity(activeWriters int64, max int) error {
	if activeWriters >= int64(max) {
		return &WriterLimitError{Max: max}
	}
	return nil
}
