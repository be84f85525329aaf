package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"allocator/internal/util"

	"gopkg.in/yaml.v3"
)

// BacktestConfig is the yaml surface of the cmd runner. SignalWeights is
// the fixed alpha forecast per symbol; long/short postures flow from
// GrossLeverage, long-only ones from CashBufferPercentage.
type BacktestConfig struct {
	StartDate            string             `yaml:"start_date"`
	EndDate              string             `yaml:"end_date"`
	InitialCash          float64            `yaml:"initial_cash"`
	SignalWeights        map[string]float64 `yaml:"signal_weights"`
	LongShort            bool               `yaml:"long_short"`
	CashBufferPercentage float64            `yaml:"cash_buffer_percentage"`
	GrossLeverage        float64            `yaml:"gross_leverage"`
	Schedule             string             `yaml:"schedule"` // buy_and_hold, daily, weekly, end_of_month
	RebalanceWeekday     string             `yaml:"rebalance_weekday"`
	PreMarket            bool               `yaml:"pre_market"`
	CSVDir               string             `yaml:"csv_dir"`
	AdjustPrices         bool               `yaml:"adjust_prices"`
	CommissionPct        float64            `yaml:"commission_pct"`
	TaxPct               float64            `yaml:"tax_pct"`
	DryRun               bool               `yaml:"dry_run"`
	RiskFreeRate         float64            `yaml:"risk_free_rate"`
}

func LoadBacktestConfig(path string) (*BacktestConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg := &BacktestConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *BacktestConfig) validate() error {
	if _, err := util.ParseDate(c.StartDate); err != nil {
		return fmt.Errorf("bad start_date %q: %w", c.StartDate, err)
	}
	if _, err := util.ParseDate(c.EndDate); err != nil {
		return fmt.Errorf("bad end_date %q: %w", c.EndDate, err)
	}
	if c.InitialCash <= 0 {
		return fmt.Errorf("initial_cash must be positive, got %v", c.InitialCash)
	}
	if len(c.SignalWeights) == 0 {
		return fmt.Errorf("signal_weights must not be empty")
	}
	if c.CSVDir == "" {
		return fmt.Errorf("csv_dir must be set")
	}
	switch c.Schedule {
	case "buy_and_hold", "daily", "weekly", "end_of_month":
	default:
		return fmt.Errorf("unknown schedule %q", c.Schedule)
	}
	if c.Schedule == "weekly" {
		if _, err := c.weekday(); err != nil {
			return err
		}
	}
	return nil
}

func (c *BacktestConfig) startTime() time.Time {
	t, _ := util.ParseDate(c.StartDate)
	return t
}

func (c *BacktestConfig) endTime() time.Time {
	t, _ := util.ParseDate(c.EndDate)
	return t
}

func (c *BacktestConfig) weekday() (time.Weekday, error) {
	weekdays := map[string]time.Weekday{
		"mon": time.Monday,
		"tue": time.Tuesday,
		"wed": time.Wednesday,
		"thu": time.Thursday,
		"fri": time.Friday,
	}
	weekday, ok := weekdays[strings.ToLower(c.RebalanceWeekday)]
	if !ok {
		return 0, fmt.Errorf("rebalance_weekday %q is not a valid business weekday", c.RebalanceWeekday)
	}
	return weekday, nil
}

func (c *BacktestConfig) schedule() ([]time.Time, error) {
	switch c.Schedule {
	case "buy_and_hold":
		return BuyAndHoldSchedule(c.startTime(), c.PreMarket), nil
	case "daily":
		return DailySchedule(c.startTime(), c.endTime(), c.PreMarket), nil
	case "weekly":
		weekday, err := c.weekday()
		if err != nil {
			return nil, err
		}
		return WeeklySchedule(c.startTime(), c.endTime(), weekday, c.PreMarket)
	case "end_of_month":
		return EndOfMonthSchedule(c.startTime(), c.endTime(), c.PreMarket), nil
	}
	return nil, fmt.Errorf("unknown schedule %q", c.Schedule)
}
