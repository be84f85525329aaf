package repository

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// PriceRepository provides the most recent bid/ask price of an asset at or
// before a given timestamp. NaN signals that no price is available, which
// happens when the timestamp predates the first bar for the asset or the
// asset is unknown.
type PriceRepository interface {
	GetLatestBidPrice(date time.Time, symbol string) float64
	GetLatestAskPrice(date time.Time, symbol string) float64
}

// DailyBar is a single end-of-day price bar.
type DailyBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// InMemoryPriceRepository holds daily bars per symbol, sorted ascending by
// date. Interday OHLCV data carries no spread, so bid and ask both resolve
// to the close of the latest bar at or before the queried timestamp.
type InMemoryPriceRepository struct {
	bars map[string][]DailyBar
}

func NewInMemoryPriceRepository() *InMemoryPriceRepository {
	return &InMemoryPriceRepository{bars: map[string][]DailyBar{}}
}

// AddBars registers bars for a symbol, replacing any previous set.
func (r *InMemoryPriceRepository) AddBars(symbol string, bars []DailyBar) {
	copied := make([]DailyBar, len(bars))
	copy(copied, bars)
	sort.Slice(copied, func(i, j int) bool {
		return copied[i].Date.Before(copied[j].Date)
	})
	r.bars[symbol] = copied
}

func (r *InMemoryPriceRepository) Symbols() []string {
	symbols := make([]string, 0, len(r.bars))
	for symbol := range r.bars {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func (r *InMemoryPriceRepository) GetLatestBidPrice(date time.Time, symbol string) float64 {
	return r.latestClose(date, symbol)
}

func (r *InMemoryPriceRepository) GetLatestAskPrice(date time.Time, symbol string) float64 {
	return r.latestClose(date, symbol)
}

func (r *InMemoryPriceRepository) latestClose(date time.Time, symbol string) float64 {
	bars, ok := r.bars[symbol]
	if !ok || len(bars) == 0 {
		return math.NaN()
	}
	// First bar strictly after the queried date; the bar before it is the
	// latest usable one.
	idx := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.After(date)
	})
	if idx == 0 {
		return math.NaN()
	}
	return bars[idx-1].Close
}

type dailyBarCSVRow struct {
	Date     string  `csv:"Date"`
	Open     float64 `csv:"Open"`
	High     float64 `csv:"High"`
	Low      float64 `csv:"Low"`
	Close    float64 `csv:"Close"`
	AdjClose float64 `csv:"Adj Close"`
	Volume   int64   `csv:"Volume"`
}

const csvDateLayout = "2006-01-02"

// LoadDailyBarCSVDir builds a price repository from a directory of
// Yahoo-style daily bar CSV files, one file per asset, where the filename
// stem is the asset symbol. When adjustPrices is set the adjusted close is
// used as the close, folding dividends and splits into the price series.
func LoadDailyBarCSVDir(dir string, adjustPrices bool) (*InMemoryPriceRepository, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list csv files in %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no csv files found in %s", dir)
	}

	repo := NewInMemoryPriceRepository()
	for _, path := range paths {
		symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), ".csv"))
		bars, err := loadDailyBarCSV(path, adjustPrices)
		if err != nil {
			return nil, fmt.Errorf("failed to load bars for %s: %w", symbol, err)
		}
		repo.AddBars(symbol, bars)
	}
	return repo, nil
}

func loadDailyBarCSV(path string, adjustPrices bool) ([]DailyBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows := []*dailyBarCSVRow{}
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	bars := make([]DailyBar, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(csvDateLayout, row.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse bar date %q: %w", row.Date, err)
		}
		closePrice := row.Close
		if adjustPrices {
			closePrice = row.AdjClose
		}
		bars = append(bars, DailyBar{
			Date:   date,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  closePrice,
			Volume: row.Volume,
		})
	}
	return bars, nil
}
