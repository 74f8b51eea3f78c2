package indicators

import (
	"fmt"

	"swing-trader/internal/models"
)

// VolumeZScore calculates the volume z-score: how many standard
// deviations today's volume sits from its trailing mean.
type VolumeZScore struct {
	period int
}

// NewVolumeZScore creates a new volume z-score indicator.
func NewVolumeZScore(period int) *VolumeZScore {
	return &VolumeZScore{period: period}
}

func (v *VolumeZScore) Name() string {
	return fmt.Sprintf("VolZ_%d", v.period)
}

func (v *VolumeZScore) Period() int {
	return v.period
}

func (v *VolumeZScore) Calculate(bars []models.DailyBar) ([]float64, error) {
	if v.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(bars) < v.period {
		return nil, ErrInsufficientData
	}

	n := len(bars)
	result := make([]float64, n)
	vols := volumes(bars)

	for i := v.period - 1; i < n; i++ {
		window := vols[i-v.period+1 : i+1]
		m := mean(window)
		sd := stdDev(window)
		if sd == 0 {
			result[i] = 0
			continue
		}
		result[i] = (vols[i] - m) / sd
	}

	return result, nil
}
