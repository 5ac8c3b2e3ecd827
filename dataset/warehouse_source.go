package dataset

import (
	"context"
	"fmt"

	"thelook/api/models"
)

// OrderReader reads the order fact and customer segmentation tables.
type OrderReader interface {
	LoadOrders(ctx context.Context) ([]models.Order, error)
	LoadCustomers(ctx context.Context) ([]models.Customer, error)
}

// EventReader reads the raw event log in ingestion order.
type EventReader interface {
	LoadEvents(ctx context.Context) ([]models.Event, error)
}

// WarehouseSource reads orders and customers from the relational store and
// events from the event store.
type WarehouseSource struct {
	Orders OrderReader
	Events EventReader
}

func (s *WarehouseSource) Load(ctx context.Context) (*Tables, error) {
	orders, err := s.Orders.LoadOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	customers, err := s.Orders.LoadCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	events, err := s.Events.LoadEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return &Tables{Orders: orders, Customers: customers, Events: events}, nil
}
