package opt

import (
	"fmt"

	"github.com/ColtMcG1/Mainstage/internal/ir"
)

// MaxSweeps bounds the fixed-point optimizer loop. Exceeding it is a
// recoverable error rather than a panic: the caller may fall back to the
// unoptimized module.
const MaxSweeps = 16

// SweepLimitError reports that the pipeline did not reach a fixed point
// within MaxSweeps sweeps.
type SweepLimitError struct {
	Sweeps int
}

func (e *SweepLimitError) Error() string {
	return fmt.Sprintf("opt: did not converge within %d sweeps", e.Sweeps)
}

// Optimize runs const-fold, const-propagate, const-canonicalize, and DCE
// repeatedly until a full sweep changes nothing, verifying module integrity
// after every sweep.
func Optimize(m *ir.Module) error {
	for sweep := 0; sweep < MaxSweeps; sweep++ {
		changed := false
		changed = ConstFold(m) || changed
		changed = ConstPropagate(m) || changed
		changed = ConstCanonicalize(m) || changed
		changed = DCE(m) || changed

		if err := Verify(m); err != nil {
			return err
		}
		if !changed {
			return nil
		}
	}
	return &SweepLimitError{Sweeps: MaxSweeps}
}
