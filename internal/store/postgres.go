package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"fleetroute/internal/model"
	"fleetroute/internal/predict"
)

// jsonb round-trips slice values through jsonb columns.
func jsonbEnc(v any) ([]byte, error) { return json.Marshal(v) }

func jsonbDec(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// Postgres is the production Store. Plans are stored as JSONB documents;
// the relational tables carry what queries need to filter on.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(url string) (*Postgres, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// MigrateDir applies every *.sql file in dir in lexical order. Files are
// expected to be idempotent (CREATE TABLE IF NOT EXISTS and the like).
func (p *Postgres) MigrateDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		sqlBytes, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := p.db.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// SeedStores inserts the built-in depot registry if absent.
func (p *Postgres) SeedStores(ctx context.Context) error {
	for _, s := range seedStores {
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO stores (id, lat, lon, capacity)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING`,
			s.ID, s.Location.Lat, s.Location.Lon, s.Capacity)
		if err != nil {
			return fmt.Errorf("seed store %s: %w", s.ID, err)
		}
	}
	return nil
}

func (p *Postgres) GetStore(ctx context.Context, id string) (model.StoreInfo, error) {
	var s model.StoreInfo
	err := p.db.QueryRowContext(ctx,
		`SELECT id, lat, lon, capacity FROM stores WHERE id = $1`, id).
		Scan(&s.ID, &s.Location.Lat, &s.Location.Lon, &s.Capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StoreInfo{}, ErrUnknownStore
	}
	if err != nil {
		return model.StoreInfo{}, fmt.Errorf("get store: %w", err)
	}
	return s, nil
}

func (p *Postgres) ListStores(ctx context.Context) ([]model.StoreInfo, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, lat, lon, capacity FROM stores ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()
	var out []model.StoreInfo
	for rows.Next() {
		var s model.StoreInfo
		if err := rows.Scan(&s.ID, &s.Location.Lat, &s.Location.Lon, &s.Capacity); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateOrders(ctx context.Context, orders []model.Order) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, o := range orders {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		if o.Status == "" {
			o.Status = "pending"
		}
		items, err := jsonbEnc(o.Items)
		if err != nil {
			return fmt.Errorf("encode order items: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO orders (id, store_id, lat, lon, items, priority, placed_at, prep_time_min, delivery_window, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			o.ID, o.StoreID, o.Customer.Lat, o.Customer.Lon, items,
			int(o.Priority), o.PlacedAt, o.PrepTimeMin, o.Window, o.Status)
		if err != nil {
			return fmt.Errorf("insert order %s: %w", o.ID, err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) PendingOrders(ctx context.Context, storeID string) ([]model.Order, error) {
	if _, err := p.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, store_id, lat, lon, items, priority, placed_at, prep_time_min, delivery_window, status
		FROM orders WHERE store_id = $1 AND status = 'pending'
		ORDER BY placed_at`, storeID)
	if err != nil {
		return nil, fmt.Errorf("pending orders: %w", err)
	}
	defer rows.Close()
	var out []model.Order
	for rows.Next() {
		var o model.Order
		var prio int
		var items []byte
		if err := rows.Scan(&o.ID, &o.StoreID, &o.Customer.Lat, &o.Customer.Lon,
			&items, &prio, &o.PlacedAt, &o.PrepTimeMin, &o.Window, &o.Status); err != nil {
			return nil, err
		}
		if err := jsonbDec(items, &o.Items); err != nil {
			return nil, fmt.Errorf("decode order items: %w", err)
		}
		o.Priority = model.Priority(prio)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkOrdersPlanned(ctx context.Context, orderIDs []string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	args := make([]any, len(orderIDs))
	ph := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE orders SET status = 'planned' WHERE id IN (`+strings.Join(ph, ", ")+`)`, args...)
	return err
}

func (p *Postgres) SalesHistory(ctx context.Context, storeID string, days int) ([]predict.SalesRecord, error) {
	if _, err := p.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 30
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT store_id, product, day, orders FROM sales_history
		WHERE store_id = $1 ORDER BY day DESC LIMIT $2`, storeID, days)
	if err != nil {
		return nil, fmt.Errorf("sales history: %w", err)
	}
	defer rows.Close()
	var out []predict.SalesRecord
	for rows.Next() {
		var r predict.SalesRecord
		if err := rows.Scan(&r.StoreID, &r.Product, &r.Day, &r.Orders); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	// Oldest first, matching the in-memory layout.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func (p *Postgres) AppendSales(ctx context.Context, rec predict.SalesRecord) error {
	if _, err := p.GetStore(ctx, rec.StoreID); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO sales_history (store_id, product, day, orders) VALUES ($1, $2, $3, $4)
		ON CONFLICT (store_id, product, day) DO UPDATE SET orders = EXCLUDED.orders`,
		rec.StoreID, rec.Product, rec.Day, rec.Orders)
	return err
}

func (p *Postgres) SavePlan(ctx context.Context, plan model.Plan) error {
	doc, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO plans (id, store_id, created_at, doc) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`,
		plan.ID, plan.StoreID, plan.CreatedAt, doc)
	return err
}

func (p *Postgres) GetPlan(ctx context.Context, id string) (model.Plan, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM plans WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Plan{}, ErrNotFound
	}
	if err != nil {
		return model.Plan{}, fmt.Errorf("get plan: %w", err)
	}
	var plan model.Plan
	if err := json.Unmarshal(doc, &plan); err != nil {
		return model.Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	return plan, nil
}

func (p *Postgres) ListPlans(ctx context.Context, storeID string, limit int) ([]model.Plan, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT doc FROM plans ORDER BY created_at DESC LIMIT $1`
	args := []any{limit}
	if storeID != "" {
		query = `SELECT doc FROM plans WHERE store_id = $2 ORDER BY created_at DESC LIMIT $1`
		args = append(args, storeID)
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()
	var out []model.Plan
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var plan model.Plan
		if err := json.Unmarshal(doc, &plan); err != nil {
			return nil, fmt.Errorf("decode plan: %w", err)
		}
		out = append(out, plan)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateSubscription(ctx context.Context, sub model.Subscription) (model.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	events, err := jsonbEnc(sub.Events)
	if err != nil {
		return model.Subscription{}, fmt.Errorf("encode subscription events: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, url, events, secret) VALUES ($1, $2, $3, $4)`,
		sub.ID, sub.URL, events, sub.Secret)
	if err != nil {
		return model.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	return p.querySubscriptions(ctx, `SELECT id, url, events, secret FROM subscriptions ORDER BY id`)
}

func (p *Postgres) SubscriptionsForEvent(ctx context.Context, event string) ([]model.Subscription, error) {
	return p.querySubscriptions(ctx, `
		SELECT id, url, events, secret FROM subscriptions
		WHERE events ? $1 OR events ? '*' ORDER BY id`, event)
}

func (p *Postgres) querySubscriptions(ctx context.Context, query string, args ...any) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()
	var out []model.Subscription
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
			return nil, err
		}
		if err := jsonbDec(events, &s.Events); err != nil {
			return nil, fmt.Errorf("decode subscription events: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, d WebhookDelivery) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = "pending"
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(d.Payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO webhook_deliveries (id, event, url, secret, payload, attempts, next_attempt, status, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.ID, d.Event, d.URL, d.Secret, payload, d.Attempts, d.NextAttempt, d.Status, d.LastError, d.CreatedAt)
	return err
}

func (p *Postgres) DueWebhookDeliveries(ctx context.Context, now time.Time, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, event, url, secret, payload, attempts, next_attempt, status, last_error, created_at
		FROM webhook_deliveries
		WHERE status = 'pending' AND next_attempt <= $1
		ORDER BY next_attempt LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("due webhook deliveries: %w", err)
	}
	defer rows.Close()
	return scanDeliveries(rows)
}

func (p *Postgres) MarkWebhookDelivered(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status = 'delivered' WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	status := "pending"
	if next.IsZero() {
		status = "failed"
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE webhook_deliveries
		SET attempts = $2, next_attempt = $3, status = $4, last_error = $5
		WHERE id = $1`, id, attempts, next, status, lastErr)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, event, url, secret, payload, attempts, next_attempt, status, last_error, created_at
		FROM webhook_deliveries ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list webhook deliveries: %w", err)
	}
	defer rows.Close()
	return scanDeliveries(rows)
}

func scanDeliveries(rows *sql.Rows) ([]WebhookDelivery, error) {
	var out []WebhookDelivery
	for rows.Next() {
		var d WebhookDelivery
		var payload []byte
		if err := rows.Scan(&d.ID, &d.Event, &d.URL, &d.Secret, &payload,
			&d.Attempts, &d.NextAttempt, &d.Status, &d.LastError, &d.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &d.Payload); err != nil {
				return nil, fmt.Errorf("decode webhook payload: %w", err)
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
