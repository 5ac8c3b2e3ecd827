package analytics

import (
	"sort"

	"thelook/api/models"
)

var countryAliases = map[string]string{
	"Brasil":      "Brazil",
	"Deutschland": "Germany",
	"España":      "Spain",
}

// NormalizeCountry maps local-language country names to their English form.
func NormalizeCountry(name string) string {
	if en, ok := countryAliases[name]; ok {
		return en
	}
	return name
}

// SalesKPI is the headline of the sales tab.
type SalesKPI struct {
	TotalSales        float64 `json:"total_sales"`
	TotalProfit       float64 `json:"total_profit"`
	Orders            int     `json:"orders"`
	AverageOrderValue Ratio   `json:"average_order_value"`
}

// SalesKPIs sums sales and profit. AOV is total sales over distinct orders.
func SalesKPIs(orders []models.Order) SalesKPI {
	var kpi SalesKPI
	ids := make(stringSet)
	for _, o := range orders {
		kpi.TotalSales += o.TotalSales
		kpi.TotalProfit += o.TotalProfit
		ids.add(o.OrderID)
	}
	kpi.Orders = len(ids)
	kpi.AverageOrderValue = Divide(kpi.TotalSales, float64(kpi.Orders)).Round(2)
	return kpi
}

// MonthlySales is one point of the sales and profit trend.
type MonthlySales struct {
	Month       int     `json:"month"`
	MonthName   string  `json:"month_name"`
	TotalSales  float64 `json:"total_sales"`
	TotalProfit float64 `json:"total_profit"`
}

// MonthlySalesTrend sums sales and profit per calendar month across the
// selected years, ordered January to December. Orders without a month are
// left out.
func MonthlySalesTrend(orders []models.Order) []MonthlySales {
	byMonth := make(map[int]*MonthlySales)
	for _, o := range orders {
		if o.Month < 1 || o.Month > 12 {
			continue
		}
		m, ok := byMonth[o.Month]
		if !ok {
			m = &MonthlySales{Month: o.Month, MonthName: o.MonthName}
			byMonth[o.Month] = m
		}
		m.TotalSales += o.TotalSales
		m.TotalProfit += o.TotalProfit
	}
	out := make([]MonthlySales, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// CountrySales is the geographic breakdown of one country.
type CountrySales struct {
	Country           string  `json:"country"`
	TotalSales        float64 `json:"total_sales"`
	TotalProfit       float64 `json:"total_profit"`
	Items             int     `json:"items"`
	Customers         int     `json:"customers"`
	Orders            int     `json:"orders"`
	AverageOrderValue Ratio   `json:"average_order_value"`
	ProfitPerCustomer Ratio   `json:"profit_per_customer"`
}

// SalesByCountry aggregates orders per normalized country name, sorted by name.
func SalesByCountry(orders []models.Order) []CountrySales {
	type acc struct {
		row    CountrySales
		users  stringSet
		orders stringSet
	}
	byCountry := make(map[string]*acc)
	for _, o := range orders {
		name := NormalizeCountry(o.Country)
		if name == "" {
			continue
		}
		a, ok := byCountry[name]
		if !ok {
			a = &acc{row: CountrySales{Country: name}, users: make(stringSet), orders: make(stringSet)}
			byCountry[name] = a
		}
		a.row.TotalSales += o.TotalSales
		a.row.TotalProfit += o.TotalProfit
		a.row.Items += o.NumOfItem
		a.users.add(o.UserID)
		a.orders.add(o.OrderID)
	}

	out := make([]CountrySales, 0, len(byCountry))
	for _, a := range byCountry {
		r := a.row
		r.Customers = len(a.users)
		r.Orders = len(a.orders)
		r.AverageOrderValue = Divide(r.TotalSales, float64(r.Orders)).Round(2)
		r.ProfitPerCustomer = Divide(r.TotalProfit, float64(r.Customers)).Round(2)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Country < out[j].Country })
	return out
}

// TopCountries returns the n countries with the highest sales.
func TopCountries(countries []CountrySales, n int) []CountrySales {
	out := append([]CountrySales(nil), countries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalSales > out[j].TotalSales })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
