package forecast

import (
	"math"
	"testing"

	"finboard/internal/models"
	"finboard/internal/services/normalize"
)

func makeSet(rows ...models.RawRecord) *models.TransactionSet {
	return normalize.Records(rows)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildCategorySeriesGlobalSequence(t *testing.T) {
	// Groceries is present in all three months, Dining Out skips the
	// middle one. The skipped month still occupies index 2 globally,
	// so Dining Out's second point sits at sequence 3.
	set := makeSet(
		models.RawRecord{Date: "2024-01-10", Category: "Groceries", Amount: "100"},
		models.RawRecord{Date: "2024-01-15", Category: "Groceries", Amount: "50"},
		models.RawRecord{Date: "2024-02-10", Category: "Groceries", Amount: "200"},
		models.RawRecord{Date: "2024-03-10", Category: "Groceries", Amount: "300"},
		models.RawRecord{Date: "2024-01-20", Category: "Dining Out", Amount: "40"},
		models.RawRecord{Date: "2024-03-20", Category: "Dining Out", Amount: "60"},
	)

	series := BuildCategorySeries(set)
	groceries, ok := series["Groceries"]
	if !ok {
		t.Fatal("Groceries series missing")
	}
	if len(groceries.Points) != 3 {
		t.Fatalf("Groceries points = %d, want 3", len(groceries.Points))
	}
	if groceries.Points[0].Amount != 150 {
		t.Errorf("January amount = %v, want 150 (two rows summed)", groceries.Points[0].Amount)
	}
	for i, want := range []int{1, 2, 3} {
		if groceries.Points[i].Sequence != want {
			t.Errorf("Groceries sequence[%d] = %d, want %d", i, groceries.Points[i].Sequence, want)
		}
	}

	dining, ok := series["Dining Out"]
	if !ok {
		t.Fatal("Dining Out series missing")
	}
	if got := []int{dining.Points[0].Sequence, dining.Points[1].Sequence}; got[0] != 1 || got[1] != 3 {
		t.Errorf("Dining Out sequences = %v, want [1 3]", got)
	}
}

func TestBuildCategorySeriesEligibility(t *testing.T) {
	set := makeSet(
		models.RawRecord{Date: "2024-01-10", Category: "Groceries", Amount: "100"},
		models.RawRecord{Date: "2024-02-10", Category: "Groceries", Amount: "200"},
		// One month only: dropped.
		models.RawRecord{Date: "2024-01-05", Category: "Rent", Amount: "900"},
		// Non-spending rows never enter a series.
		models.RawRecord{Date: "2024-01-01", Category: "Income", Amount: "3000"},
		models.RawRecord{Date: "2024-02-01", Category: "Income", Amount: "3000"},
		models.RawRecord{Date: "2024-01-02", Category: "Savings", Amount: "500"},
		models.RawRecord{Date: "2024-02-02", Category: "Savings", Amount: "500"},
		models.RawRecord{Date: "2024-01-03", Category: "", Amount: "10"},
		models.RawRecord{Date: "2024-01-04", Category: "Groceries", Amount: "-25"},
	)

	series := BuildCategorySeries(set)
	if len(series) != 1 {
		t.Fatalf("series count = %d, want 1 (only Groceries eligible)", len(series))
	}
	if _, ok := series["Groceries"]; !ok {
		t.Error("Groceries series missing")
	}
}

func TestFitPerfectLine(t *testing.T) {
	series := models.CategorySeries{
		Category: "Groceries",
		Points: []models.SeriesPoint{
			{Sequence: 1, Amount: 100},
			{Sequence: 2, Amount: 200},
			{Sequence: 3, Amount: 300},
		},
	}

	fit := Fit(series)
	if !almostEqual(fit.Slope, 100) {
		t.Errorf("Slope = %v, want 100", fit.Slope)
	}
	if !almostEqual(fit.Intercept, 0) {
		t.Errorf("Intercept = %v, want 0", fit.Intercept)
	}
	if !almostEqual(fit.MSE, 0) {
		t.Errorf("MSE = %v, want 0", fit.MSE)
	}
	if got := Predict(4, fit); !almostEqual(got, 400) {
		t.Errorf("Predict(4) = %v, want 400", got)
	}
}

func TestFitDegenerate(t *testing.T) {
	t.Run("single point", func(t *testing.T) {
		fit := Fit(models.CategorySeries{Points: []models.SeriesPoint{{Sequence: 1, Amount: 250}}})
		if fit.Slope != 0 || !almostEqual(fit.Intercept, 250) {
			t.Errorf("fit = %+v, want slope 0 intercept 250", fit)
		}
	})

	t.Run("empty", func(t *testing.T) {
		fit := Fit(models.CategorySeries{})
		if fit.Slope != 0 || fit.Intercept != 0 || fit.MSE != 0 {
			t.Errorf("fit = %+v, want zero value", fit)
		}
	})

	t.Run("identical x", func(t *testing.T) {
		fit := Fit(models.CategorySeries{Points: []models.SeriesPoint{
			{Sequence: 2, Amount: 100},
			{Sequence: 2, Amount: 300},
		}})
		if fit.Slope != 0 || !almostEqual(fit.Intercept, 200) {
			t.Errorf("fit = %+v, want slope 0 intercept mean(200)", fit)
		}
	})
}

func TestPredictClampsAtZero(t *testing.T) {
	fit := models.RegressionFit{Slope: -50, Intercept: 10}
	if got := Predict(5, fit); got != 0 {
		t.Errorf("Predict(5) = %v, want 0 (negative projection clamped)", got)
	}
}

func TestForecastAllSharedNextSequence(t *testing.T) {
	seriesMap := map[string]models.CategorySeries{
		"Groceries": {
			Category: "Groceries",
			Points: []models.SeriesPoint{
				{Sequence: 1, Amount: 100},
				{Sequence: 2, Amount: 200},
				{Sequence: 3, Amount: 300},
			},
		},
		// Last point at sequence 2, but the global next index is 4.
		"Dining Out": {
			Category: "Dining Out",
			Points: []models.SeriesPoint{
				{Sequence: 1, Amount: 50},
				{Sequence: 2, Amount: 50},
			},
		},
	}

	report := ForecastAll(seriesMap)
	if len(report.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(report.Rows))
	}
	if report.Rows[0].Category != "Dining Out" || report.Rows[1].Category != "Groceries" {
		t.Errorf("row order = [%s %s], want alphabetical", report.Rows[0].Category, report.Rows[1].Category)
	}

	var groceries, dining models.CategoryForecast
	for _, row := range report.Rows {
		switch row.Category {
		case "Groceries":
			groceries = row
		case "Dining Out":
			dining = row
		}
	}
	if !almostEqual(groceries.NextMonth, 400) {
		t.Errorf("Groceries NextMonth = %v, want 400", groceries.NextMonth)
	}
	// Flat series: every future month predicts 50, at sequence 4 too.
	if !almostEqual(dining.NextMonth, 50) {
		t.Errorf("Dining Out NextMonth = %v, want 50", dining.NextMonth)
	}
	if !almostEqual(dining.NextTwelve, 600) {
		t.Errorf("Dining Out NextTwelve = %v, want 600", dining.NextTwelve)
	}
	// Groceries: sequences 4..15 at 100/step = 100*(4+...+15) = 11400.
	if !almostEqual(groceries.NextTwelve, 11400) {
		t.Errorf("Groceries NextTwelve = %v, want 11400", groceries.NextTwelve)
	}
	if !almostEqual(report.TotalNextMonth, 450) {
		t.Errorf("TotalNextMonth = %v, want 450", report.TotalNextMonth)
	}
	if !almostEqual(report.TotalNextTwelve, 12000) {
		t.Errorf("TotalNextTwelve = %v, want 12000", report.TotalNextTwelve)
	}
}

func TestForecastAllEmpty(t *testing.T) {
	report := ForecastAll(nil)
	if len(report.Rows) != 0 || report.TotalNextMonth != 0 || report.TotalNextTwelve != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
}
