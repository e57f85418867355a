package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/pkg/config"
)

// RunLog 자기 서술적 감사 아티팩트 (실행 1회당 1개)
// 출력 경로는 프로젝트 루트 상대 경로로만 기록한다 (머신 간 이식성)
type RunLog struct {
	RunID             string            `json:"run_id"`
	CreatedAt         time.Time         `json:"created_at"`
	GitCommit         string            `json:"git_commit"`
	ConfigFingerprint string            `json:"config_fingerprint"`
	WindowStart       string            `json:"window_start"`
	WindowEnd         string            `json:"window_end"`
	WindowSlug        string            `json:"window_slug"`
	DataThrough       string            `json:"data_through"`
	AnnualP50Total    decimal.Decimal   `json:"annual_p50_total"`
	AnnualP80Total    decimal.Decimal   `json:"annual_p80_total"`
	AnnualP90Total    decimal.Decimal   `json:"annual_p90_total"`
	SpikeAdjustedDays int               `json:"spike_adjusted_days"`
	CalibrationMode   string            `json:"calibration_mode"`
	OutputPaths       map[string]string `json:"output_paths"`
}

// BuildRunLog assembles the run metadata record
func BuildRunLog(
	cfg *config.Config,
	window contracts.ForecastWindow,
	records []contracts.ForecastRecord,
	history []contracts.SalesObservation,
	calibrationMode string,
	projectRoot string,
	outputPaths map[string]string,
) (*RunLog, error) {
	fingerprint, err := configFingerprint(cfg)
	if err != nil {
		return nil, fmt.Errorf("config fingerprint: %w", err)
	}

	log := &RunLog{
		RunID:             uuid.NewString(),
		CreatedAt:         time.Now().UTC(),
		GitCommit:         gitCommit(projectRoot),
		ConfigFingerprint: fingerprint,
		WindowStart:       window.Start.Format(contracts.DateFormat),
		WindowEnd:         window.End.Format(contracts.DateFormat),
		WindowSlug:        window.Slug(),
		CalibrationMode:   calibrationMode,
		OutputPaths:       make(map[string]string, len(outputPaths)),
	}

	if maxDate := contracts.HistoryMaxDate(history); !maxDate.IsZero() {
		log.DataThrough = maxDate.Format(contracts.DateFormat)
	}

	for _, r := range records {
		log.AnnualP50Total = log.AnnualP50Total.Add(decimal.NewFromFloat(r.P50))
		log.AnnualP80Total = log.AnnualP80Total.Add(decimal.NewFromFloat(r.P80))
		log.AnnualP90Total = log.AnnualP90Total.Add(decimal.NewFromFloat(r.P90))
		if r.AdjustmentMultiplier != 1.0 {
			log.SpikeAdjustedDays++
		}
	}

	for name, path := range outputPaths {
		rel, err := relativeToRoot(projectRoot, path)
		if err != nil {
			return nil, err
		}
		log.OutputPaths[name] = rel
	}

	return log, nil
}

// configFingerprint hashes the resolved configuration
// 같은 설정으로 돌린 두 실행은 같은 지문을 갖는다
func configFingerprint(cfg *config.Config) (string, error) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// gitCommit resolves the source revision, "unknown" when unavailable
func gitCommit(projectRoot string) string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = projectRoot
	out, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

// relativeToRoot converts an output path to a project-root-relative one
func relativeToRoot(projectRoot, path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(path), nil
	}
	rel, err := filepath.Rel(projectRoot, path)
	if err != nil {
		return "", fmt.Errorf("relativize output path %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}
