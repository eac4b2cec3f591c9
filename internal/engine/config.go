package engine

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type PortfolioConfig struct {
	initialCash decimal.Decimal
}

func NewPortfolioConfig(initialCash decimal.Decimal) *PortfolioConfig {
	return &PortfolioConfig{
		initialCash: initialCash,
	}
}

type BrokerConfig struct {
	commission CommissionModel
	slippage   SlippageModel
}

// NewBrokerConfig builds a venue config. A nil slippage model fills at the bar open.
func NewBrokerConfig(commission CommissionModel, slippage SlippageModel) *BrokerConfig {
	if commission == nil {
		commission = RatioCommission{Rate: decimal.Zero}
	}
	return &BrokerConfig{
		commission: commission,
		slippage:   slippage,
	}
}

// OrderConfig shapes the orders an allocator emits.
type OrderConfig struct {
	lifetime    *int
	limitOffset decimal.Decimal
	stopOffset  decimal.Decimal
	log         logrus.FieldLogger
}

func NewOrderConfig() *OrderConfig {
	return &OrderConfig{
		limitOffset: decimal.Zero,
		stopOffset:  decimal.Zero,
		log:         logrus.StandardLogger(),
	}
}

// WithLifetime caps the number of bars an unsatisfied order is retried.
func (c *OrderConfig) WithLifetime(lifetime int) *OrderConfig {
	c.lifetime = &lifetime
	return c
}

// WithLimitOffsets turns emitted orders into limit orders priced off the last close.
// Buys are limited at close*(1-limit), sells at close*(1+limit) with an optional
// stop at close*(1-stop).
func (c *OrderConfig) WithLimitOffsets(limit, stop decimal.Decimal) *OrderConfig {
	c.limitOffset = limit
	c.stopOffset = stop
	return c
}

func (c *OrderConfig) WithLogger(log logrus.FieldLogger) *OrderConfig {
	c.log = log
	return c
}

type ReportingConfig struct {
	sharpeRiskFreeRate decimal.Decimal
	writeFills         bool
	filePath           string
}

func NewReportingConfig(sharpeRiskFreeRate decimal.Decimal, writeFills bool, filePath string) *ReportingConfig {
	return &ReportingConfig{
		sharpeRiskFreeRate: sharpeRiskFreeRate,
		writeFills:         writeFills,
		filePath:           filePath,
	}
}

type FleetConfig struct {
	abortOnFailure bool
}

// NewFleetConfig controls failure handling. With abortOnFailure the first failing
// loop cancels its siblings; otherwise they run to completion.
func NewFleetConfig(abortOnFailure bool) *FleetConfig {
	return &FleetConfig{
		abortOnFailure: abortOnFailure,
	}
}
