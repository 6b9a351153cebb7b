package stats

import (
	"testing"
)

func TestPercentile(t *testing.T) {
	t.Parallel()

	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1) // 1..100
	}

	if got := Percentile(values, 99); !almostEqual(got, 99.01, 1e-9) {
		t.Errorf("Percentile(99) = %v, want 99.01", got)
	}
	if got := Percentile(values, 50); !almostEqual(got, 50.5, 1e-9) {
		t.Errorf("Percentile(50) = %v, want 50.5", got)
	}
	if got := Percentile(values, 0); got != 1 {
		t.Errorf("Percentile(0) = %v, want 1", got)
	}
	if got := Percentile(values, 100); got != 100 {
		t.Errorf("Percentile(100) = %v, want 100", got)
	}
}

func TestWinsorize(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 3, 4, 100}
	result := Winsorize(values, 0, 80)

	upper := Percentile(values, 80)
	for i, v := range result {
		if v > upper {
			t.Errorf("result[%d] = %v exceeds upper cap %v", i, v, upper)
		}
	}
	// Untouched values pass through.
	if result[0] != 1 || result[1] != 2 {
		t.Errorf("low values modified: %v", result)
	}
	// Capped values equal the percentile exactly.
	if result[4] != upper {
		t.Errorf("result[4] = %v, want cap %v", result[4], upper)
	}
}

func TestOutlierMask(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 2, 3, 2, 3, 1, 2, 100}

	mask, err := OutlierMask(values, MethodIQR)
	if err != nil {
		t.Fatalf("OutlierMask(iqr) error: %v", err)
	}
	if !mask[len(mask)-1] {
		t.Error("iqr method missed the obvious outlier")
	}
	for i := 0; i < len(mask)-1; i++ {
		if mask[i] {
			t.Errorf("iqr method flagged normal value at %d", i)
		}
	}

	if _, err := OutlierMask(values, "mahalanobis"); err == nil {
		t.Error("expected error for unknown method")
	}
}
