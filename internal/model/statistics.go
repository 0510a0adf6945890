package model

import "time"

// EventStatistics aggregates sales for one event.  Rows are updated
// inside the pending-order transaction using the Version column as an
// optimistic guard, so concurrent writers cannot silently overwrite
// each other.
//
// Fields:
//  EventID         – event the row aggregates.
//  TicketsSold     – total tickets across orders.
//  SalesGrossCents – sum of order subtotals.
//  SalesNetCents   – sum of order totals after discounts.
//  DiscountCents   – sum of discounts granted.
//  OrdersCreated   – number of orders written.
//  Version         – optimistic concurrency column.
//  UpdatedAt       – last update timestamp.
type EventStatistics struct {
	EventID         uint64    // event_statistics.event_id
	TicketsSold     int64     // event_statistics.tickets_sold
	SalesGrossCents int64     // event_statistics.sales_total_gross
	SalesNetCents   int64     // event_statistics.sales_total_net
	DiscountCents   int64     // event_statistics.total_discount
	OrdersCreated   int64     // event_statistics.orders_created
	Version         uint32    // event_statistics.version
	UpdatedAt       time.Time // event_statistics.updated_at
}

// EventDailyStatistics is the per-day breakdown of EventStatistics,
// keyed by event and calendar date the order was written.
type EventDailyStatistics struct {
	EventID         uint64    // event_daily_statistics.event_id
	Date            time.Time // event_daily_statistics.date (date only)
	TicketsSold     int64     // event_daily_statistics.tickets_sold
	SalesGrossCents int64     // event_daily_statistics.sales_total_gross
	SalesNetCents   int64     // event_daily_statistics.sales_total_net
	DiscountCents   int64     // event_daily_statistics.total_discount
	OrdersCreated   int64     // event_daily_statistics.orders_created
	Version         uint32    // event_daily_statistics.version
}
