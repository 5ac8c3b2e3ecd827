package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"thelook/api/models"
)

// OrderStore reads the processed order and customer segmentation tables
// from Postgres.
type OrderStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewOrderStore(db *sql.DB, logger *logrus.Logger) *OrderStore {
	return &OrderStore{db: db, logger: logger}
}

// LoadOrders reads every processed order row.
func (s *OrderStore) LoadOrders(ctx context.Context) ([]models.Order, error) {
	query := `
		SELECT user_id::text, order_id::text, COALESCE("customer name", ''), COALESCE(age_group, ''),
			COALESCE(gender, ''), COALESCE(country, ''), COALESCE(department, ''), COALESCE(category, ''),
			COALESCE(name, ''), COALESCE(num_of_item, 0), COALESCE(total_sales, 0), COALESCE(total_profit, 0),
			COALESCE(year, 0), COALESCE(month, 0), COALESCE(month_name, '')
		FROM processed_order
		ORDER BY order_id;
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query processed orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(
			&o.UserID, &o.OrderID, &o.CustomerName, &o.AgeGroup,
			&o.Gender, &o.Country, &o.Department, &o.Category,
			&o.Name, &o.NumOfItem, &o.TotalSales, &o.TotalProfit,
			&o.Year, &o.Month, &o.MonthName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan processed order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating processed orders: %w", err)
	}

	s.logger.WithField("count", len(orders)).Debug("Loaded processed orders")
	return orders, nil
}

// LoadCustomers reads every customer segmentation row.
func (s *OrderStore) LoadCustomers(ctx context.Context) ([]models.Customer, error) {
	query := `
		SELECT user_id::text, COALESCE("customer name", ''), COALESCE(age_group, ''), COALESCE(gender, ''),
			COALESCE(total_sales, 0), COALESCE(segment, ''), is_one_time_buyer
		FROM customer_segmentation
		ORDER BY user_id;
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query customer segmentation: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var (
			c       models.Customer
			oneTime sql.NullBool
		)
		if err := rows.Scan(&c.UserID, &c.CustomerName, &c.AgeGroup, &c.Gender, &c.TotalSales, &c.Segment, &oneTime); err != nil {
			return nil, fmt.Errorf("failed to scan customer segmentation: %w", err)
		}
		if oneTime.Valid {
			v := oneTime.Bool
			c.OneTimeBuyer = &v
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customer segmentation: %w", err)
	}

	s.logger.WithField("count", len(customers)).Debug("Loaded customer segmentation")
	return customers, nil
}
