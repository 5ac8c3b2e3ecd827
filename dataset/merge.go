package dataset

import (
	"strconv"

	"thelook/api/models"
)

type customerKey struct {
	userID, name, ageGroup, gender, totalSales string
}

func keyOf(userID, name, ageGroup, gender string, totalSales float64) customerKey {
	return customerKey{
		userID:     userID,
		name:       name,
		ageGroup:   ageGroup,
		gender:     gender,
		totalSales: strconv.FormatFloat(totalSales, 'f', -1, 64),
	}
}

// Merge left-joins customer segmentation onto orders by user id, customer
// name, age group, gender and total sales. The first matching customer row
// wins; orders without a match keep an empty segment.
func Merge(orders []models.Order, customers []models.Customer) []models.Order {
	byKey := make(map[customerKey]models.Customer, len(customers))
	for _, c := range customers {
		k := keyOf(c.UserID, c.CustomerName, c.AgeGroup, c.Gender, c.TotalSales)
		if _, ok := byKey[k]; !ok {
			byKey[k] = c
		}
	}

	out := make([]models.Order, len(orders))
	for i, o := range orders {
		if c, ok := byKey[keyOf(o.UserID, o.CustomerName, o.AgeGroup, o.Gender, o.TotalSales)]; ok {
			o.Segment = c.Segment
			o.OneTimeBuyer = c.OneTimeBuyer
		}
		out[i] = o
	}
	return out
}
