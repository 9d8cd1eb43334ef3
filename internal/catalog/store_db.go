package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// PostgresStore is the catalog backend for deployments that outgrow the
// single-file substrate. Media references are stored as JSON columns.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

const productColumns = `
	id, name, source_cost_usd, converted_cost_etb, agent_fee_etb,
	margin_etb, final_price_etb, status, category, size, color,
	description, images, videos, created_at
`

func (s *PostgresStore) List(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+productColumns+`
			FROM products
			ORDER BY created_at DESC, id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 32)
		for rows.Next() {
			p, err := scanProduct(rows.Scan)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Product, bool, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, `
			SELECT `+productColumns+`
			FROM products
			WHERE id = $1
		`, id)
		var err error
		p, err = scanProduct(row.Scan)
		return err
	})

	if err == sql.ErrNoRows {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, p Product) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return err
	}
	videos, err := json.Marshal(p.Videos)
	if err != nil {
		return err
	}

	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO products (`+productColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				source_cost_usd = EXCLUDED.source_cost_usd,
				converted_cost_etb = EXCLUDED.converted_cost_etb,
				agent_fee_etb = EXCLUDED.agent_fee_etb,
				margin_etb = EXCLUDED.margin_etb,
				final_price_etb = EXCLUDED.final_price_etb,
				status = EXCLUDED.status,
				category = EXCLUDED.category,
				size = EXCLUDED.size,
				color = EXCLUDED.color,
				description = EXCLUDED.description,
				images = EXCLUDED.images,
				videos = EXCLUDED.videos
		`, p.ID, p.Name, p.SourceCostUSD, p.ConvertedCostETB, p.AgentFeeETB,
			p.MarginETB, p.FinalPriceETB, string(p.Status), p.Category, p.Size,
			p.Color, p.Description, images, videos, p.CreatedAt)
		return err
	})
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	var found bool

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		found = n > 0
		return err
	})
	return found, err
}

func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM products`)
		return err
	})
}

func (s *PostgresStore) ReplaceAll(ctx context.Context, ps []Product) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return err
	}
	for _, p := range ps {
		images, err := json.Marshal(p.Images)
		if err != nil {
			return err
		}
		videos, err := json.Marshal(p.Videos)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO products (`+productColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`, p.ID, p.Name, p.SourceCostUSD, p.ConvertedCostETB, p.AgentFeeETB,
			p.MarginETB, p.FinalPriceETB, string(p.Status), p.Category, p.Size,
			p.Color, p.Description, images, videos, p.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanProduct(scan func(dest ...any) error) (Product, error) {
	var (
		p      Product
		status string
		images []byte
		videos []byte
	)
	err := scan(&p.ID, &p.Name, &p.SourceCostUSD, &p.ConvertedCostETB,
		&p.AgentFeeETB, &p.MarginETB, &p.FinalPriceETB, &status, &p.Category,
		&p.Size, &p.Color, &p.Description, &images, &videos, &p.CreatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Status = Status(status)

	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return Product{}, err
		}
	}
	if len(videos) > 0 {
		if err := json.Unmarshal(videos, &p.Videos); err != nil {
			return Product{}, err
		}
	}
	return p, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
