package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wonny/demandcast/internal/backtest"
	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/ensemble"
)

// ArtifactWriter 실행 산출물 파일 기록기
// 쓰기는 항상 전체 덮어쓰기다: 추가 모드 없음, 부분 산출물은 신뢰 불가
type ArtifactWriter struct {
	dir string
}

// NewArtifactWriter creates a writer rooted at the run's output directory
func NewArtifactWriter(outputsDir, slug string) (*ArtifactWriter, error) {
	dir := filepath.Join(outputsDir, slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return &ArtifactWriter{dir: dir}, nil
}

// Dir returns the run's output directory
func (w *ArtifactWriter) Dir() string { return w.dir }

// Path returns the absolute-ish path of a named artifact
func (w *ArtifactWriter) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteDailyForecast writes the final per-day forecast CSV
func (w *ArtifactWriter) WriteDailyForecast(name string, records []contracts.ForecastRecord) error {
	header := []string{"ds", "p50", "p80", "p90", "is_closed", "open_minutes",
		"calibration_scale", "adjustment_multiplier", "adjustment_log"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Date.Format(contracts.DateFormat),
			formatFloat(r.P50),
			formatFloat(r.P80),
			formatFloat(r.P90),
			strconv.FormatBool(r.Closed),
			strconv.Itoa(r.OpenMinutes),
			formatFloat(r.CalibrationScale),
			formatFloat(r.AdjustmentMultiplier),
			r.AdjustmentLog,
		})
	}
	return w.writeCSV(name, header, rows)
}

// WriteWeights writes the flat ensemble weight table
func (w *ArtifactWriter) WriteWeights(name string, weights ensemble.Weights) error {
	header := []string{"horizon_bucket", "model_name", "weight"}
	var rows [][]string
	for _, row := range weights.Flatten() {
		rows = append(rows, []string{string(row.Bucket), row.Model, formatFloat(row.Weight)})
	}
	return w.writeCSV(name, header, rows)
}

// WriteSpikePriors writes the learned uplift multipliers
func (w *ArtifactWriter) WriteSpikePriors(name string, priors map[string]contracts.SpikeUpliftPrior, order []string) error {
	header := []string{"spike_flag", "uplift_multiplier", "confidence", "n_obs", "baseline_method"}
	var rows [][]string
	for _, flag := range order {
		p, ok := priors[flag]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			p.Flag,
			formatFloat(p.Multiplier),
			string(p.Confidence),
			strconv.Itoa(p.NObs),
			string(p.BaselineMethod),
		})
	}
	return w.writeCSV(name, header, rows)
}

// WriteCalibrationLog writes the per-day calibration audit trail
func (w *ArtifactWriter) WriteCalibrationLog(name string, entries []contracts.CalibrationLogEntry) error {
	header := []string{"ds", "month", "is_excluded",
		"p50_before", "p80_before", "p90_before",
		"p50_after", "p80_after", "p90_after", "calibration_scale"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Date.Format(contracts.DateFormat),
			strconv.Itoa(e.Month),
			strconv.FormatBool(e.Excluded),
			formatFloat(e.P50Before), formatFloat(e.P80Before), formatFloat(e.P90Before),
			formatFloat(e.P50After), formatFloat(e.P80After), formatFloat(e.P90After),
			formatFloat(e.Scale),
		})
	}
	return w.writeCSV(name, header, rows)
}

// WriteMonthlyScales writes the monthly calibration summary
func (w *ArtifactWriter) WriteMonthlyScales(name string, scales []contracts.MonthlyCalibrationScale) error {
	header := []string{"month", "baseline_year", "forecast_year",
		"baseline_month_total", "target_month_total",
		"nonspike_before", "nonspike_after", "spike_total", "achieved_total", "scale"}
	rows := make([][]string, 0, len(scales))
	for _, s := range scales {
		rows = append(rows, []string{
			strconv.Itoa(s.Month),
			strconv.Itoa(s.BaselineYear),
			strconv.Itoa(s.ForecastYear),
			formatFloat(s.BaselineMonthTotal),
			formatFloat(s.TargetMonthTotal),
			formatFloat(s.NonSpikeBefore),
			formatFloat(s.NonSpikeAfter),
			formatFloat(s.SpikeTotal),
			formatFloat(s.AchievedTotal),
			formatFloat(s.Scale),
		})
	}
	return w.writeCSV(name, header, rows)
}

// WriteMetrics writes the per-model, per-bucket backtest metrics
func (w *ArtifactWriter) WriteMetrics(name string, metrics []backtest.ModelBucketMetric) error {
	header := []string{"model_name", "horizon_bucket", "n", "wmape", "rmse", "bias"}
	rows := make([][]string, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, []string{
			m.Model, string(m.Bucket), strconv.Itoa(m.N),
			formatFloat(m.WMAPE), formatFloat(m.RMSE), formatFloat(m.Bias),
		})
	}
	return w.writeCSV(name, header, rows)
}

// WriteRollups writes the operational cycle rollups as JSON
func (w *ArtifactWriter) WriteRollups(name string, rollups Rollups) error {
	return w.writeJSON(name, rollups)
}

// WriteRunLog writes the run metadata record as JSON
func (w *ArtifactWriter) WriteRunLog(name string, runLog *RunLog) error {
	return w.writeJSON(name, runLog)
}

func (w *ArtifactWriter) writeCSV(name string, header []string, rows [][]string) error {
	f, err := os.Create(w.Path(name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write %s row: %w", name, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", name, err)
	}
	return f.Sync()
}

func (w *ArtifactWriter) writeJSON(name string, v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(w.Path(name), payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
