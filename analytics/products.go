package analytics

import (
	"sort"

	"thelook/api/models"
)

// ProductKPI is the headline of the products tab.
type ProductKPI struct {
	TotalOrders   int `json:"total_orders"`
	TotalQuantity int `json:"total_quantity"`
}

func ProductKPIs(orders []models.Order) ProductKPI {
	ids := make(stringSet)
	var kpi ProductKPI
	for _, o := range orders {
		ids.add(o.OrderID)
		kpi.TotalQuantity += o.NumOfItem
	}
	kpi.TotalOrders = len(ids)
	return kpi
}

// MonthlyProducts is one point of the orders and quantity trend.
type MonthlyProducts struct {
	Month         int    `json:"month"`
	MonthName     string `json:"month_name"`
	TotalOrders   int    `json:"total_orders"`
	TotalQuantity int    `json:"total_quantity"`
}

// MonthlyProductTrend counts distinct orders and sums quantity per calendar month.
func MonthlyProductTrend(orders []models.Order) []MonthlyProducts {
	type acc struct {
		row MonthlyProducts
		ids stringSet
	}
	byMonth := make(map[int]*acc)
	for _, o := range orders {
		if o.Month < 1 || o.Month > 12 {
			continue
		}
		a, ok := byMonth[o.Month]
		if !ok {
			a = &acc{row: MonthlyProducts{Month: o.Month, MonthName: o.MonthName}, ids: make(stringSet)}
			byMonth[o.Month] = a
		}
		a.ids.add(o.OrderID)
		a.row.TotalQuantity += o.NumOfItem
	}
	out := make([]MonthlyProducts, 0, len(byMonth))
	for _, a := range byMonth {
		a.row.TotalOrders = len(a.ids)
		out = append(out, a.row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// OrdersByCategory counts order rows per product category.
func OrdersByCategory(orders []models.Order) []ValueCount {
	values := make([]string, 0, len(orders))
	for _, o := range orders {
		values = append(values, o.Category)
	}
	return CountValues(values)
}

// CategorySales holds summed sales and profit of one category.
type CategorySales struct {
	Category    string  `json:"category"`
	TotalSales  float64 `json:"total_sales"`
	TotalProfit float64 `json:"total_profit"`
}

// SalesByCategory sums sales and profit per category, sorted by name.
func SalesByCategory(orders []models.Order) []CategorySales {
	byCategory := make(map[string]*CategorySales)
	for _, o := range orders {
		if o.Category == "" {
			continue
		}
		c, ok := byCategory[o.Category]
		if !ok {
			c = &CategorySales{Category: o.Category}
			byCategory[o.Category] = c
		}
		c.TotalSales += o.TotalSales
		c.TotalProfit += o.TotalProfit
	}
	out := make([]CategorySales, 0, len(byCategory))
	for _, c := range byCategory {
		c.TotalSales = Round(c.TotalSales, 2)
		c.TotalProfit = Round(c.TotalProfit, 2)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// ProductSummary is one row of the product tables.
type ProductSummary struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	QuantitySold int     `json:"quantity_sold"`
	TotalSales   float64 `json:"total_sales"`
	TotalProfit  float64 `json:"total_profit"`
}

// ProductSummaries aggregates per product name. The category is the one of
// the product's first order; money columns are rounded to cents.
func ProductSummaries(orders []models.Order) []ProductSummary {
	byName := make(map[string]*ProductSummary)
	var names []string
	for _, o := range orders {
		if o.Name == "" {
			continue
		}
		p, ok := byName[o.Name]
		if !ok {
			p = &ProductSummary{Name: o.Name, Category: o.Category}
			byName[o.Name] = p
			names = append(names, o.Name)
		}
		p.QuantitySold += o.NumOfItem
		p.TotalSales += o.TotalSales
		p.TotalProfit += o.TotalProfit
	}
	sort.Strings(names)
	out := make([]ProductSummary, 0, len(names))
	for _, n := range names {
		p := byName[n]
		p.TotalSales = Round(p.TotalSales, 2)
		p.TotalProfit = Round(p.TotalProfit, 2)
		out = append(out, *p)
	}
	return out
}

// TopProductsByQuantity returns the n best-selling products by units.
func TopProductsByQuantity(products []ProductSummary, n int) []ProductSummary {
	return topProducts(products, n, func(a, b ProductSummary) bool { return a.QuantitySold > b.QuantitySold })
}

// TopProductsByProfit returns the n most profitable products.
func TopProductsByProfit(products []ProductSummary, n int) []ProductSummary {
	return topProducts(products, n, func(a, b ProductSummary) bool { return a.TotalProfit > b.TotalProfit })
}

func topProducts(products []ProductSummary, n int, less func(a, b ProductSummary) bool) []ProductSummary {
	out := append([]ProductSummary(nil), products...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
