package engine

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eziosantori/cbot-farm/internal/model"
)

// Dataset identifies one on-disk bar file under the ingested data root,
// laid out as <root>/<market>/<symbol>/<timeframe>/<file>.csv.
type Dataset struct {
	Path      string
	Market    string
	Symbol    string
	Timeframe string
}

// FindDataset walks the data root and returns the lexicographically last
// CSV matching the filters, which is the most recent ingest. Empty filters
// match everything. The second return is false when nothing matches; the
// simulator turns that into its "no dataset found" sentinel.
func FindDataset(dataRoot string, markets, symbols, timeframes []string) (Dataset, bool) {
	var matches []Dataset

	marketDirs, err := os.ReadDir(dataRoot)
	if err != nil {
		return Dataset{}, false
	}
	for _, m := range marketDirs {
		if !m.IsDir() || !matchFilter(m.Name(), markets) {
			continue
		}
		symbolDirs, err := os.ReadDir(filepath.Join(dataRoot, m.Name()))
		if err != nil {
			continue
		}
		for _, s := range symbolDirs {
			if !s.IsDir() || !matchFilter(s.Name(), symbols) {
				continue
			}
			tfDirs, err := os.ReadDir(filepath.Join(dataRoot, m.Name(), s.Name()))
			if err != nil {
				continue
			}
			for _, tf := range tfDirs {
				if !tf.IsDir() || !matchFilter(tf.Name(), timeframes) {
					continue
				}
				dir := filepath.Join(dataRoot, m.Name(), s.Name(), tf.Name())
				files, err := os.ReadDir(dir)
				if err != nil {
					continue
				}
				for _, f := range files {
					if f.IsDir() || !strings.HasSuffix(f.Name(), ".csv") {
						continue
					}
					matches = append(matches, Dataset{
						Path:      filepath.Join(dir, f.Name()),
						Market:    m.Name(),
						Symbol:    s.Name(),
						Timeframe: tf.Name(),
					})
				}
			}
		}
	}

	if len(matches) == 0 {
		return Dataset{}, false
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Path < matches[j].Path })
	return matches[len(matches)-1], true
}

func matchFilter(value string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if strings.EqualFold(f, value) {
			return true
		}
	}
	return false
}

// LoadCSVBars reads a dataset file with columns timestamp (unix seconds),
// open, high, low, close. Malformed rows are skipped silently.
func LoadCSVBars(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var bars []model.Bar
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		bar, ok := parseBarRow(row, col)
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseBarRow(row []string, col map[string]int) (model.Bar, bool) {
	field := func(name string) (string, bool) {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[idx]), true
	}

	tsText, ok := field("timestamp")
	if !ok {
		return model.Bar{}, false
	}
	ts, err := strconv.ParseInt(tsText, 10, 64)
	if err != nil {
		return model.Bar{}, false
	}

	prices := make([]float64, 4)
	for i, name := range []string{"open", "high", "low", "close"} {
		text, ok := field(name)
		if !ok {
			return model.Bar{}, false
		}
		d, err := decimal.NewFromString(text)
		if err != nil {
			return model.Bar{}, false
		}
		prices[i] = d.InexactFloat64()
	}

	return model.Bar{
		Timestamp: ts,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
	}, true
}
