package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourstack/hourstack/internal/domain"
	"github.com/hourstack/hourstack/internal/domain/client"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const clientColumns = `id, name, plan_code, hours_monthly, hours_used_month, cycle_start, payment_customer_ref, created_at, updated_at`

// --- Clients ---

func (s *Store) ListClients(ctx context.Context) ([]client.Client, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []client.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *Store) GetClient(ctx context.Context, id string) (*client.Client, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)

	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get client %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get client %s: %w", id, err)
	}
	return &c, nil
}

func (s *Store) GetClientByCustomerRef(ctx context.Context, ref string) (*client.Client, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE payment_customer_ref = $1`, ref)

	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get client by customer ref: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get client by customer ref: %w", err)
	}
	return &c, nil
}

func (s *Store) CreateClient(ctx context.Context, req client.CreateRequest) (*client.Client, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO clients (name, plan_code, hours_monthly, cycle_start, payment_customer_ref)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		 RETURNING `+clientColumns,
		req.Name, req.PlanCode, req.HoursMonthly, req.CycleStart, req.PaymentCustomerRef)

	c, err := scanClient(row)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", translateErr(err))
	}
	return &c, nil
}

func (s *Store) SetClientPlan(ctx context.Context, id, planCode string, hoursMonthly float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE clients SET plan_code = $2, hours_monthly = $3, updated_at = now() WHERE id = $1`,
		id, planCode, hoursMonthly)
	if err != nil {
		return fmt.Errorf("set client plan %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set client plan %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) ResetClientCycle(ctx context.Context, id string, day time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE clients SET hours_used_month = 0, cycle_start = $2, updated_at = now() WHERE id = $1`,
		id, day)
	if err != nil {
		return fmt.Errorf("reset client cycle %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reset client cycle %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) ResetDueCycles(ctx context.Context, day time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE clients SET hours_used_month = 0, cycle_start = $1, updated_at = now()
		 WHERE cycle_start <= $1
		 RETURNING id`, day)
	if err != nil {
		return nil, fmt.Errorf("reset due cycles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("reset due cycles scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
