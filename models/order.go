package models

// Order is one row of the processed order fact table. Segment and
// OneTimeBuyer are filled from the customer segmentation table when a
// matching customer row exists.
type Order struct {
	UserID       string  `json:"user_id"`
	OrderID      string  `json:"order_id"`
	CustomerName string  `json:"customer_name"`
	AgeGroup     string  `json:"age_group"`
	Gender       string  `json:"gender"`
	Country      string  `json:"country"`
	Department   string  `json:"department"`
	Category     string  `json:"category"`
	Name         string  `json:"name"`
	NumOfItem    int     `json:"num_of_item"`
	TotalSales   float64 `json:"total_sales"`
	TotalProfit  float64 `json:"total_profit"`
	Year         int     `json:"year"`
	Month        int     `json:"month"`
	MonthName    string  `json:"month_name"`
	Segment      string  `json:"segment,omitempty"`
	OneTimeBuyer *bool   `json:"is_one_time_buyer,omitempty"`
}

// Customer is one row of the customer segmentation table.
type Customer struct {
	UserID       string
	CustomerName string
	AgeGroup     string
	Gender       string
	TotalSales   float64
	Segment      string
	OneTimeBuyer *bool
}
