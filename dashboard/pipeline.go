// Package dashboard turns a dataset snapshot and a filter selection into the
// tables behind the sales, products and customers tabs.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"thelook/api/analytics"
	"thelook/api/dataset"
)

// SnapshotProvider hands out the current dataset snapshot.
type SnapshotProvider interface {
	Get(ctx context.Context) (*dataset.Snapshot, error)
}

// Options tunes report building.
type Options struct {
	PurchaseEventType string
	Policy            analytics.AttributionPolicy
	TopN              int
}

type SalesTab struct {
	KPI            analytics.SalesKPI                `json:"kpi"`
	Monthly        []analytics.MonthlySales          `json:"monthly"`
	Countries      []analytics.CountrySales          `json:"countries"`
	TopCountries   []analytics.CountrySales          `json:"top_countries"`
	TrafficSources []analytics.ValueCount            `json:"traffic_sources"`
	Conversion     []analytics.ChannelConversionStat `json:"conversion"`
}

type ProductsTab struct {
	KPI              analytics.ProductKPI        `json:"kpi"`
	Monthly          []analytics.MonthlyProducts `json:"monthly"`
	OrdersByCategory []analytics.ValueCount      `json:"orders_by_category"`
	SalesByCategory  []analytics.CategorySales   `json:"sales_by_category"`
	TopByQuantity    []analytics.ProductSummary  `json:"top_by_quantity"`
	TopByProfit      []analytics.ProductSummary  `json:"top_by_profit"`
}

type CustomersTab struct {
	Segments            []analytics.ValueCount   `json:"segments"`
	OneTimeBuyers       []analytics.ValueCount   `json:"one_time_buyers"`
	AgeGroups           []analytics.ValueCount   `json:"age_groups"`
	Genders             []analytics.ValueCount   `json:"genders"`
	SegmentAverages     []analytics.GroupAverage `json:"segment_averages"`
	OneTimeBuyerAverage []analytics.GroupAverage `json:"one_time_buyer_averages"`
}

// Report holds every tab for one filter selection over one snapshot.
type Report struct {
	Filter         analytics.Filter `json:"filter"`
	DatasetVersion uint64           `json:"dataset_version"`
	GeneratedAt    time.Time        `json:"generated_at"`
	Sales          SalesTab         `json:"sales"`
	Products       ProductsTab      `json:"products"`
	Customers      CustomersTab     `json:"customers"`
}

// Build computes a report. It is a pure function of its inputs apart from
// the GeneratedAt stamp.
func Build(snap *dataset.Snapshot, filter analytics.Filter, opts Options) (*Report, error) {
	orders := filter.Orders(snap.Orders)
	events := filter.Events(snap.Events)

	conversion, err := analytics.ChannelConversion(events, analytics.SessionOptions{
		PurchaseEventType: opts.PurchaseEventType,
		Policy:            opts.Policy,
	})
	if err != nil {
		return nil, fmt.Errorf("conversion by channel: %w", err)
	}

	countries := analytics.SalesByCountry(orders)
	products := analytics.ProductSummaries(orders)

	return &Report{
		Filter:         filter,
		DatasetVersion: snap.Version,
		GeneratedAt:    time.Now().UTC(),
		Sales: SalesTab{
			KPI:            analytics.SalesKPIs(orders),
			Monthly:        analytics.MonthlySalesTrend(orders),
			Countries:      countries,
			TopCountries:   analytics.TopCountries(countries, opts.TopN),
			TrafficSources: analytics.TrafficSourceShare(events),
			Conversion:     conversion,
		},
		Products: ProductsTab{
			KPI:              analytics.ProductKPIs(orders),
			Monthly:          analytics.MonthlyProductTrend(orders),
			OrdersByCategory: analytics.OrdersByCategory(orders),
			SalesByCategory:  analytics.SalesByCategory(orders),
			TopByQuantity:    analytics.TopProductsByQuantity(products, opts.TopN),
			TopByProfit:      analytics.TopProductsByProfit(products, opts.TopN),
		},
		Customers: CustomersTab{
			Segments:            analytics.CountBy(orders, analytics.Segment),
			OneTimeBuyers:       analytics.CountBy(orders, analytics.OneTimeBuyer),
			AgeGroups:           analytics.CountBy(orders, analytics.AgeGroup),
			Genders:             analytics.CountBy(orders, analytics.Gender),
			SegmentAverages:     analytics.AveragesBy(orders, analytics.Segment),
			OneTimeBuyerAverage: analytics.AveragesBy(orders, analytics.OneTimeBuyer),
		},
	}, nil
}

// Filters lists the selectable values of the current snapshot.
type Filters struct {
	Years       []string `json:"years"`
	Departments []string `json:"departments"`
}

// Pipeline rebuilds the report when the filter selection or the dataset
// version changes and otherwise serves the last report.
type Pipeline struct {
	provider SnapshotProvider
	opts     Options
	logger   *logrus.Logger

	mu      sync.Mutex
	lastKey string
	last    *Report
	runs    int
}

func NewPipeline(provider SnapshotProvider, opts Options, logger *logrus.Logger) *Pipeline {
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	return &Pipeline{provider: provider, opts: opts, logger: logger}
}

// Filters returns the year choices ("All" first, then newest year first) and
// the department choices of the current snapshot.
func (p *Pipeline) Filters(ctx context.Context) (*Filters, error) {
	snap, err := p.provider.Get(ctx)
	if err != nil {
		return nil, err
	}
	years := []string{analytics.AllYears}
	for _, y := range analytics.AvailableYears(snap.Orders) {
		years = append(years, fmt.Sprint(y))
	}
	return &Filters{Years: years, Departments: analytics.AvailableDepartments(snap.Orders)}, nil
}

// Report returns the report for filter, recomputing only on change.
func (p *Pipeline) Report(ctx context.Context, filter analytics.Filter) (*Report, error) {
	snap, err := p.provider.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := filter.Validate(analytics.AvailableDepartments(snap.Orders)); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s@%d", filter.Key(), snap.Version)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != nil && p.lastKey == key {
		return p.last, nil
	}

	start := time.Now()
	report, err := Build(snap, filter, p.opts)
	if err != nil {
		return nil, err
	}
	p.last, p.lastKey = report, key
	p.runs++

	p.logger.WithFields(logrus.Fields{
		"filter":  filter.Key(),
		"version": snap.Version,
		"took":    time.Since(start).String(),
	}).Debug("Dashboard report rebuilt")
	return report, nil
}

// Runs reports how many times the pipeline has rebuilt a report.
func (p *Pipeline) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}
