package repository

import (
	"sort"
	"time"
)

// UniverseRepository provides the set of tradable asset symbols at a given
// point in time.
type UniverseRepository interface {
	GetAssets(date time.Time) []string
}

// StaticUniverse is a universe whose composition never changes.
type StaticUniverse struct {
	symbols []string
}

func NewStaticUniverse(symbols []string) *StaticUniverse {
	copied := make([]string, len(symbols))
	copy(copied, symbols)
	sort.Strings(copied)
	return &StaticUniverse{symbols: copied}
}

func (u *StaticUniverse) GetAssets(date time.Time) []string {
	assets := make([]string, len(u.symbols))
	copy(assets, u.symbols)
	return assets
}

// DynamicUniverse admits each asset once the queried date reaches its entry
// date. Removal of assets is not supported.
type DynamicUniverse struct {
	entryDates map[string]time.Time
}

func NewDynamicUniverse(entryDates map[string]time.Time) *DynamicUniverse {
	copied := make(map[string]time.Time, len(entryDates))
	for symbol, date := range entryDates {
		copied[symbol] = date
	}
	return &DynamicUniverse{entryDates: copied}
}

func (u *DynamicUniverse) GetAssets(date time.Time) []string {
	assets := []string{}
	for symbol, entryDate := range u.entryDates {
		if !date.Before(entryDate) {
			assets = append(assets, symbol)
		}
	}
	sort.Strings(assets)
	return assets
}
