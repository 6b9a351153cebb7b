package stats

// Percentile calculates the p-th percentile (0-100)
// Uses linear interpolation between closest ranks
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}

	return Quantile(values, p/100.0)
}

// OutliersBounds calculates the lower and upper bounds for outliers using IQR method
// Outliers are values < Q1 - 1.5*IQR or > Q3 + 1.5*IQR
func OutliersBounds(values []float64) (lowerBound, upperBound float64) {
	q1 := Quantile(values, 0.25)
	q3 := Quantile(values, 0.75)
	iqr := q3 - q1

	lowerBound = q1 - 1.5*iqr
	upperBound = q3 + 1.5*iqr

	return
}

// Winsorize replaces extreme values with less extreme values
// lower, upper: percentiles (0-100) to winsorize at
func Winsorize(values []float64, lower, upper float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	lowerVal := Percentile(values, lower)
	upperVal := Percentile(values, upper)

	result := make([]float64, len(values))
	for i, v := range values {
		if v < lowerVal {
			result[i] = lowerVal
		} else if v > upperVal {
			result[i] = upperVal
		} else {
			result[i] = v
		}
	}

	return result
}
