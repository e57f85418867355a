package salesdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/demandcast/internal/contracts"
)

// 외부 CSV의 컬럼 철자 허용 범위
// 스키마 정규화는 이 경계에서만 일어난다 — 내부 로직은 표준 필드만 본다
var (
	overrideDateColumns = []string{"ds", "target_date", "date"}
	overrideP50Columns  = []string{"p50", "yhat_p50", "yhat"}
	overrideP80Columns  = []string{"p80", "yhat_p80"}
	overrideP90Columns  = []string{"p90", "yhat_p90"}
)

// LoadOverrides reads operator demand overrides from a CSV file
// 파일이 없으면 nil을 반환한다 (오버라이드는 선택 입력)
func LoadOverrides(path string) ([]contracts.DemandOverride, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open overrides file: %w", err)
	}
	defer f.Close()

	return parseOverrides(f)
}

func parseOverrides(r io.Reader) ([]contracts.DemandOverride, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read overrides header: %w", err)
	}

	dateIdx := findColumn(header, overrideDateColumns)
	if dateIdx < 0 {
		return nil, fmt.Errorf("overrides CSV missing date column (tried %s)", strings.Join(overrideDateColumns, ", "))
	}
	p50Idx := findColumn(header, overrideP50Columns)
	p80Idx := findColumn(header, overrideP80Columns)
	p90Idx := findColumn(header, overrideP90Columns)

	var overrides []contracts.DemandOverride
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read overrides line %d: %w", line, err)
		}

		date, err := time.Parse(contracts.DateFormat, strings.TrimSpace(record[dateIdx]))
		if err != nil {
			return nil, fmt.Errorf("overrides line %d: invalid date %q: %w", line, record[dateIdx], err)
		}

		ov := contracts.DemandOverride{Date: contracts.Day(date)}
		if ov.P50, err = parseOptionalFloat(record, p50Idx); err != nil {
			return nil, fmt.Errorf("overrides line %d: %w", line, err)
		}
		if ov.P80, err = parseOptionalFloat(record, p80Idx); err != nil {
			return nil, fmt.Errorf("overrides line %d: %w", line, err)
		}
		if ov.P90, err = parseOptionalFloat(record, p90Idx); err != nil {
			return nil, fmt.Errorf("overrides line %d: %w", line, err)
		}

		overrides = append(overrides, ov)
	}

	return overrides, nil
}

func findColumn(header []string, candidates []string) int {
	for _, candidate := range candidates {
		for i, col := range header {
			if strings.EqualFold(strings.TrimSpace(col), candidate) {
				return i
			}
		}
	}
	return -1
}

func parseOptionalFloat(record []string, idx int) (*float64, error) {
	if idx < 0 || idx >= len(record) {
		return nil, nil
	}
	raw := strings.TrimSpace(record[idx])
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid numeric value %q", raw)
	}
	return &v, nil
}
