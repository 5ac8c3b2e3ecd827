package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"thelook/api/models"
)

// FileSource reads orders and customers from two sheets of an xlsx workbook
// and events from a CSV file.
type FileSource struct {
	WorkbookPath   string
	OrdersSheet    string
	CustomersSheet string
	EventsPath     string
}

func (s *FileSource) Load(ctx context.Context) (*Tables, error) {
	wb, err := excelize.OpenFile(s.WorkbookPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", s.WorkbookPath, err)
	}
	defer wb.Close()

	orderRows, err := wb.GetRows(s.OrdersSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", s.OrdersSheet, err)
	}
	orders, err := ParseOrders(s.OrdersSheet, orderRows)
	if err != nil {
		return nil, err
	}

	customerRows, err := wb.GetRows(s.CustomersSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", s.CustomersSheet, err)
	}
	customers, err := ParseCustomers(s.CustomersSheet, customerRows)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.EventsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}
	defer f.Close()
	events, err := ReadEventsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.EventsPath, err)
	}

	return &Tables{Orders: orders, Customers: customers, Events: events}, nil
}

// ReadEventsCSV parses an event log. Rows keep file order; malformed
// created_at values become nil.
func ReadEventsCSV(r io.Reader) ([]models.Event, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv read: %w", err)
	}
	return ParseEvents("events", records)
}

// ParseOrders maps processed_order records (header first) to orders.
func ParseOrders(name string, records [][]string) ([]models.Order, error) {
	t, err := newTable(name, records, orderColumns)
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0, len(t.rows))
	for _, row := range t.rows {
		if isBlank(row) {
			continue
		}
		orders = append(orders, models.Order{
			UserID:       ID(t.get(row, "user_id")),
			OrderID:      ID(t.get(row, "order_id")),
			CustomerName: t.get(row, "customer name"),
			AgeGroup:     t.get(row, "age_group"),
			Gender:       t.get(row, "gender"),
			Country:      t.get(row, "country"),
			Department:   t.get(row, "department"),
			Category:     t.get(row, "category"),
			Name:         t.get(row, "name"),
			NumOfItem:    t.int(row, "num_of_item"),
			TotalSales:   t.float(row, "total_sales"),
			TotalProfit:  t.float(row, "total_profit"),
			Year:         t.int(row, "year"),
			Month:        t.int(row, "month"),
			MonthName:    t.get(row, "month_name"),
		})
	}
	return orders, nil
}

// ParseCustomers maps customer_segmentation records (header first) to customers.
func ParseCustomers(name string, records [][]string) ([]models.Customer, error) {
	t, err := newTable(name, records, customerColumns)
	if err != nil {
		return nil, err
	}
	customers := make([]models.Customer, 0, len(t.rows))
	for _, row := range t.rows {
		if isBlank(row) {
			continue
		}
		customers = append(customers, models.Customer{
			UserID:       ID(t.get(row, "user_id")),
			CustomerName: t.get(row, "customer name"),
			AgeGroup:     t.get(row, "age_group"),
			Gender:       t.get(row, "gender"),
			TotalSales:   t.float(row, "total_sales"),
			Segment:      t.get(row, "segment"),
			OneTimeBuyer: t.bool(row, "is_one_time_buyer"),
		})
	}
	return customers, nil
}

// ParseEvents maps event log records (header first) to events.
func ParseEvents(name string, records [][]string) ([]models.Event, error) {
	t, err := newTable(name, records, eventColumns)
	if err != nil {
		return nil, err
	}
	events := make([]models.Event, 0, len(t.rows))
	for _, row := range t.rows {
		if isBlank(row) {
			continue
		}
		events = append(events, models.Event{
			EventID:       ID(t.get(row, "id")),
			UserID:        ID(t.get(row, "user_id")),
			SessionID:     t.get(row, "session_id"),
			EventType:     t.get(row, "event_type"),
			TrafficSource: t.get(row, "traffic_source"),
			URI:           t.get(row, "uri"),
			CreatedAt:     ParseTimestamp(t.get(row, "created_at")),
		})
	}
	return events, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
