package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/slothmock/SlothFinanceTracker/internal/domain"
)

// csvHeader is the canonical column set. Total Value is derived on read and
// never stored.
var csvHeader = []string{
	"Date", "Source", "Pool",
	"T1 Amount", "T2 Amount",
	"T1 Value", "T2 Value",
	"Fees",
}

// CSVStore keeps positions in a header-first CSV file, created empty on first
// use.
type CSVStore struct {
	path string
}

// NewCSVStore creates a store at path. The file is not touched until the
// first Load or Append.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Load reads every position. Rows that fail to parse are logged and skipped,
// not fatal. A missing file is created with the header and yields an empty
// ledger.
func (s *CSVStore) Load(ctx context.Context) ([]domain.DefiPosition, error) {
	if err := s.ensureFile(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[name] = i
	}

	positions := make([]domain.DefiPosition, 0, len(records)-1)
	for i, row := range records[1:] {
		position, err := parseRow(columns, row)
		if err != nil {
			log.Warn().Err(err).Int("row", i+2).Str("path", s.path).
				Msg("skipping invalid ledger row")
			continue
		}
		positions = append(positions, position)
	}
	return positions, nil
}

// Append adds one position, creating the file with its header first if
// needed. The derived total is recomputed before write so an inconsistent
// caller value never reaches disk.
func (s *CSVStore) Append(ctx context.Context, position domain.DefiPosition) error {
	if err := s.ensureFile(); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}
	defer f.Close()

	position.Normalize()
	writer := csv.NewWriter(f)
	if err := writer.Write([]string{
		position.Date,
		position.Source,
		position.Pool,
		formatAmount(position.T1Amount),
		formatAmount(position.T2Amount),
		formatAmount(position.T1Value),
		formatAmount(position.T2Value),
		formatAmount(position.Fees),
	}); err != nil {
		return fmt.Errorf("write ledger row: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}
	return nil
}

func (s *CSVStore) ensureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

func parseRow(columns map[string]int, row []string) (domain.DefiPosition, error) {
	get := func(name string) (string, error) {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return "", fmt.Errorf("missing column %q", name)
		}
		return row[idx], nil
	}
	num := func(name string) (float64, error) {
		raw, err := get(name)
		if err != nil {
			return 0, err
		}
		val, err := domain.ParseAmount(raw)
		if err != nil {
			return 0, fmt.Errorf("column %q: %w", name, err)
		}
		return val, nil
	}

	var position domain.DefiPosition
	var err error
	if position.Date, err = get("Date"); err != nil {
		return domain.DefiPosition{}, err
	}
	if position.Source, err = get("Source"); err != nil {
		return domain.DefiPosition{}, err
	}
	if position.Pool, err = get("Pool"); err != nil {
		return domain.DefiPosition{}, err
	}
	if position.T1Amount, err = num("T1 Amount"); err != nil {
		return domain.DefiPosition{}, err
	}
	if position.T2Amount, err = num("T2 Amount"); err != nil {
		return domain.DefiPosition{}, err
	}
	if position.T1Value, err = num("T1 Value"); err != nil {
		return domain.DefiPosition{}, err
	}
	if position.T2Value, err = num("T2 Value"); err != nil {
		return domain.DefiPosition{}, err
	}
	if position.Fees, err = num("Fees"); err != nil {
		return domain.DefiPosition{}, err
	}
	position.Normalize()
	return position, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
