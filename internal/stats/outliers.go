package stats

import (
	"fmt"
	"math"
)

// Outlier detection methods accepted by OutlierMask.
const (
	MethodIQR    = "iqr"
	MethodZScore = "zscore"
)

// OutlierMask flags outliers in values using the named method.
// "iqr" marks values outside Q1-1.5*IQR .. Q3+1.5*IQR; "zscore" marks
// values more than 3 standard deviations from the mean. An unknown
// method is rejected immediately.
func OutlierMask(values []float64, method string) ([]bool, error) {
	mask := make([]bool, len(values))

	switch method {
	case MethodIQR:
		lowerBound, upperBound := OutliersBounds(values)
		for i, v := range values {
			mask[i] = v < lowerBound || v > upperBound
		}

	case MethodZScore:
		for i, z := range ZScore(values) {
			mask[i] = math.Abs(z) > 3
		}

	default:
		return nil, fmt.Errorf("unknown outlier detection method: %s", method)
	}

	return mask, nil
}
