package analytics

import (
	"sort"
	"strconv"

	"thelook/api/models"
)

// CountBy counts order rows per non-empty key.
func CountBy(orders []models.Order, key func(models.Order) string) []ValueCount {
	values := make([]string, 0, len(orders))
	for _, o := range orders {
		values = append(values, key(o))
	}
	return CountValues(values)
}

func Segment(o models.Order) string  { return o.Segment }
func AgeGroup(o models.Order) string { return o.AgeGroup }
func Gender(o models.Order) string   { return o.Gender }

// OneTimeBuyer renders the flag as "true"/"false", empty when unknown.
func OneTimeBuyer(o models.Order) string {
	if o.OneTimeBuyer == nil {
		return ""
	}
	return strconv.FormatBool(*o.OneTimeBuyer)
}

// GroupAverage is the mean sales and profit per order row of one group.
type GroupAverage struct {
	Group         string `json:"group"`
	AverageSales  Ratio  `json:"average_sales"`
	AverageProfit Ratio  `json:"average_profit"`
	Orders        int    `json:"orders"`
}

// AveragesBy groups order rows by key and computes mean sales, mean profit
// and distinct orders. Rows with an empty key are left out. Sorted by group.
func AveragesBy(orders []models.Order, key func(models.Order) string) []GroupAverage {
	type acc struct {
		rows          int
		sales, profit float64
		ids           stringSet
	}
	groups := make(map[string]*acc)
	for _, o := range orders {
		k := key(o)
		if k == "" {
			continue
		}
		a, ok := groups[k]
		if !ok {
			a = &acc{ids: make(stringSet)}
			groups[k] = a
		}
		a.rows++
		a.sales += o.TotalSales
		a.profit += o.TotalProfit
		a.ids.add(o.OrderID)
	}
	out := make([]GroupAverage, 0, len(groups))
	for k, a := range groups {
		out = append(out, GroupAverage{
			Group:         k,
			AverageSales:  Divide(a.sales, float64(a.rows)).Round(2),
			AverageProfit: Divide(a.profit, float64(a.rows)).Round(2),
			Orders:        len(a.ids),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}
