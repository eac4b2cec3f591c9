package config

import (
	"backsim/types"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

const (
	SizingFixedSize  = "fixed_size"
	SizingFixedValue = "fixed_value"

	StrategyDonchian  = "donchian"
	StrategyCrossover = "crossover"
)

// Config holds all CLI configuration.
type Config struct {
	// Data
	BarsCSV     []string
	DatabaseURL string
	Symbols     []string
	StartDate   time.Time // zero means unbounded
	EndDate     time.Time // zero means unbounded
	Interval    types.Interval

	// Venue
	InitialCash   decimal.Decimal
	Commission    decimal.Decimal
	CommissionMin *decimal.Decimal
	CommissionMax *decimal.Decimal
	Slippage      decimal.Decimal

	// Orders
	Sizing        string
	OrderSize     int64
	OrderValue    decimal.Decimal
	OrderLifetime *int // nil retries forever
	LimitOffset   *decimal.Decimal
	StopOffset    *decimal.Decimal

	// Fleet
	SharedPortfolio bool
	AbortOnFailure  bool

	// Strategy Parameters
	Strategy       string
	SMAFast        int
	SMASlow        int
	DonchianPeriod int

	// Output
	RiskFreeRate decimal.Decimal
	ReportCSV    string
	Progress     bool
	LogLevel     logrus.Level
}

// LoadConfig loads configuration from environment variables. The given .env
// files are loaded first; with none, a .env in the working directory is used
// when present.
func LoadConfig(files ...string) (*Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	} else {
		// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
		_ = godotenv.Load()
	}

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Data
	cfg.BarsCSV = getEnvAsList("BARS_CSV")
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.Symbols = getEnvAsList("SYMBOLS")
	if len(cfg.BarsCSV) == 0 && cfg.DatabaseURL == "" {
		errs = append(errs, "one of BARS_CSV or DATABASE_URL must be set")
	}
	if len(cfg.BarsCSV) == 0 && cfg.DatabaseURL != "" && len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must be set when reading from DATABASE_URL")
	}

	cfg.StartDate, err = getEnvAsDate("START_DATE")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid START_DATE: %v", err))
	}
	cfg.EndDate, err = getEnvAsDate("END_DATE")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid END_DATE: %v", err))
	}
	if !cfg.StartDate.IsZero() && !cfg.EndDate.IsZero() && cfg.EndDate.Before(cfg.StartDate) {
		errs = append(errs, "END_DATE must not be before START_DATE")
	}

	cfg.Interval, err = types.ParseInterval(getEnv("INTERVAL", string(types.Day)))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INTERVAL: %v", err))
	}

	// Venue
	cfg.InitialCash, err = getEnvAsDecimalRequired("INITIAL_CASH", decimal.NewFromInt(10000))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_CASH: %v", err))
	} else if !cfg.InitialCash.IsPositive() {
		errs = append(errs, "INITIAL_CASH must be positive")
	}

	cfg.Commission, err = getEnvAsDecimalRequired("COMMISSION", decimal.NewFromFloat(0.001))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid COMMISSION: %v", err))
	} else if cfg.Commission.IsNegative() {
		errs = append(errs, "COMMISSION cannot be negative")
	}
	cfg.CommissionMin, err = getEnvAsDecimalOptional("COMMISSION_MIN")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid COMMISSION_MIN: %v", err))
	}
	cfg.CommissionMax, err = getEnvAsDecimalOptional("COMMISSION_MAX")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid COMMISSION_MAX: %v", err))
	}
	if cfg.CommissionMin != nil && cfg.CommissionMax != nil && cfg.CommissionMax.LessThan(*cfg.CommissionMin) {
		errs = append(errs, "COMMISSION_MAX must not be less than COMMISSION_MIN")
	}

	cfg.Slippage, err = getEnvAsDecimalRequired("SLIPPAGE", decimal.Zero)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SLIPPAGE: %v", err))
	} else if cfg.Slippage.IsNegative() {
		errs = append(errs, "SLIPPAGE cannot be negative")
	}

	// Orders
	cfg.Sizing = getEnv("SIZING", SizingFixedSize)
	switch cfg.Sizing {
	case SizingFixedSize, SizingFixedValue:
	default:
		errs = append(errs, fmt.Sprintf("SIZING must be %s or %s", SizingFixedSize, SizingFixedValue))
	}

	size, err := getEnvAsIntRequired("ORDER_SIZE", 100)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ORDER_SIZE: %v", err))
	} else if size <= 0 {
		errs = append(errs, "ORDER_SIZE must be positive")
	}
	cfg.OrderSize = int64(size)

	cfg.OrderValue, err = getEnvAsDecimalRequired("ORDER_VALUE", decimal.NewFromInt(1000))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ORDER_VALUE: %v", err))
	} else if !cfg.OrderValue.IsPositive() {
		errs = append(errs, "ORDER_VALUE must be positive")
	}

	if v := os.Getenv("ORDER_LIFETIME"); v != "" {
		lifetime, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid ORDER_LIFETIME: %v", err))
		} else if lifetime < 0 {
			errs = append(errs, "ORDER_LIFETIME cannot be negative")
		} else {
			cfg.OrderLifetime = &lifetime
		}
	}

	cfg.LimitOffset, err = getEnvAsDecimalOptional("LIMIT_OFFSET")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LIMIT_OFFSET: %v", err))
	}
	cfg.StopOffset, err = getEnvAsDecimalOptional("STOP_OFFSET")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_OFFSET: %v", err))
	}
	if cfg.StopOffset != nil && cfg.LimitOffset == nil {
		errs = append(errs, "STOP_OFFSET requires LIMIT_OFFSET")
	}

	// Fleet
	cfg.SharedPortfolio = getEnvAsBool("SHARED_PORTFOLIO", true)
	cfg.AbortOnFailure = getEnvAsBool("ABORT_ON_FAILURE", false)

	// Strategy Parameters
	cfg.Strategy = getEnv("STRATEGY", StrategyCrossover)
	switch cfg.Strategy {
	case StrategyDonchian, StrategyCrossover:
	default:
		errs = append(errs, fmt.Sprintf("STRATEGY must be %s or %s", StrategyDonchian, StrategyCrossover))
	}
	cfg.SMAFast = getEnvAsInt("SMA_FAST", 5)
	cfg.SMASlow = getEnvAsInt("SMA_SLOW", 20)
	cfg.DonchianPeriod = getEnvAsInt("DONCHIAN_PERIOD", 20)
	if cfg.SMAFast <= 0 || cfg.SMASlow <= 0 || cfg.DonchianPeriod <= 0 {
		errs = append(errs, "strategy periods must be positive")
	}
	if cfg.SMAFast >= cfg.SMASlow {
		errs = append(errs, "SMA_FAST must be less than SMA_SLOW")
	}

	// Output
	cfg.RiskFreeRate, err = getEnvAsDecimalRequired("RISK_FREE_RATE", decimal.Zero)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RISK_FREE_RATE: %v", err))
	}
	cfg.ReportCSV = getEnv("REPORT_CSV", "")
	cfg.Progress = getEnvAsBool("PROGRESS", true)

	cfg.LogLevel, err = logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LOG_LEVEL: %v", err))
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsDecimalRequired(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsDecimalOptional(key string) (*decimal.Decimal, error) {
	if os.Getenv(key) == "" {
		return nil, nil
	}
	value, err := getEnvAsDecimalRequired(key, decimal.Zero)
	if err != nil {
		return nil, err
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("%s cannot be negative", key)
	}
	return &value, nil
}

func getEnvAsDate(key string) (time.Time, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, valueStr)
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
