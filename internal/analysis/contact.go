package analysis

import "github.com/go-gl/mathgl/mgl64"

// ContactSchedule summarises when each contact carried load.
type ContactSchedule struct {
	// DutyFactor is the fraction of samples with normal load above the
	// threshold.
	DutyFactor []float64
	// Touchdowns counts unloaded to loaded transitions. A contact loaded in
	// the first sample counts as one touchdown.
	Touchdowns []int
}

// Schedule classifies every sample of forces, indexed [sample][contact], by
// whether the vertical component exceeds threshold newtons.
func Schedule(forces [][]mgl64.Vec3, threshold float64) ContactSchedule {
	if len(forces) == 0 {
		return ContactSchedule{}
	}
	n := len(forces[0])
	s := ContactSchedule{DutyFactor: make([]float64, n), Touchdowns: make([]int, n)}
	loaded := make([]bool, n)
	for _, sample := range forces {
		for i := 0; i < n && i < len(sample); i++ {
			on := sample[i][2] > threshold
			if on {
				s.DutyFactor[i]++
				if !loaded[i] {
					s.Touchdowns[i]++
				}
			}
			loaded[i] = on
		}
	}
	for i := range s.DutyFactor {
		s.DutyFactor[i] /= float64(len(forces))
	}
	return s
}
