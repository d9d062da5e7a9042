package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/mosaicgrove/storefront/internal/domain"
	"github.com/mosaicgrove/storefront/internal/matcher"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresRepository keeps cart lines in cart_items and wishlist entries in
// wishlist_items. The product snapshot is stored as JSONB.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(ctx context.Context, cred *Credentials) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.PingContext(ctx); e2 != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	return &PostgresRepository{db: db}, nil
}

func NewPostgresRepositoryFromDB(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *PostgresRepository) LoadCart(ctx context.Context, userID string) ([]domain.CartLine, error) {
	query := `SELECT id, product, quantity, selected_variations, selected_weight
	          FROM cart_items WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var (
			line          domain.CartLine
			productJSON   []byte
			variationJSON []byte
			weight        sql.NullFloat64
		)
		if err := rows.Scan(&line.ID, &productJSON, &line.Quantity, &variationJSON, &weight); err != nil {
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		if err := json.Unmarshal(productJSON, &line.Product); err != nil {
			return nil, fmt.Errorf("unmarshal cart item product: %w", err)
		}
		if len(variationJSON) > 0 {
			if err := json.Unmarshal(variationJSON, &line.Variation); err != nil {
				return nil, fmt.Errorf("unmarshal cart item variations: %w", err)
			}
			line.Variation = domain.CloneVariation(line.Variation)
		}
		if weight.Valid {
			line.Weight = domain.Weight(weight.Float64)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}

func (r *PostgresRepository) LoadWishlist(ctx context.Context, userID string) ([]domain.WishlistEntry, error) {
	query := `SELECT product FROM wishlist_items WHERE user_id = $1 ORDER BY created_at, product_id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query wishlist items: %w", err)
	}
	defer rows.Close()

	var entries []domain.WishlistEntry
	for rows.Next() {
		var productJSON []byte
		if err := rows.Scan(&productJSON); err != nil {
			return nil, fmt.Errorf("scan wishlist row: %w", err)
		}
		var entry domain.WishlistEntry
		if err := json.Unmarshal(productJSON, &entry.Product); err != nil {
			return nil, fmt.Errorf("unmarshal wishlist product: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

func (r *PostgresRepository) UpsertLine(ctx context.Context, userID string, line domain.CartLine) error {
	productJSON, err := json.Marshal(line.Product)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	var variations any
	if len(line.Variation) > 0 {
		b, err := json.Marshal(line.Variation)
		if err != nil {
			return fmt.Errorf("failed to marshal variations: %w", err)
		}
		variations = string(b)
	}
	var weight any
	if line.Weight != nil {
		weight = *line.Weight
	}

	query := `INSERT INTO cart_items (id, user_id, product_id, config_key, product, quantity, selected_variations, selected_weight, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	          ON CONFLICT (user_id, product_id, config_key)
	          DO UPDATE SET quantity = EXCLUDED.quantity, product = EXCLUDED.product, updated_at = NOW()`

	_, err = r.db.ExecContext(ctx, query,
		line.ID,
		userID,
		string(domain.CanonicalID(line.ProductID())),
		matcher.Key(line.Variation, line.Weight),
		string(productJSON),
		line.Quantity,
		variations,
		weight)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteLine(ctx context.Context, userID string, line domain.CartLine) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2 AND config_key = $3`
	_, err := r.db.ExecContext(ctx, query,
		userID,
		string(domain.CanonicalID(line.ProductID())),
		matcher.Key(line.Variation, line.Weight))
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteProductLines(ctx context.Context, userID string, productID domain.ProductID) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, string(domain.CanonicalID(productID))); err != nil {
		return fmt.Errorf("delete product cart items: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteCart(ctx context.Context, userID string) error {
	query := `DELETE FROM cart_items WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AddWishlistEntry(ctx context.Context, userID string, entry domain.WishlistEntry) error {
	productJSON, err := json.Marshal(entry.Product)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	query := `INSERT INTO wishlist_items (user_id, product_id, product, created_at)
	          VALUES ($1, $2, $3, NOW())
	          ON CONFLICT (user_id, product_id) DO NOTHING`

	_, err = r.db.ExecContext(ctx, query, userID, string(domain.CanonicalID(entry.ProductID())), string(productJSON))
	if err != nil {
		return fmt.Errorf("insert wishlist item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveWishlistEntry(ctx context.Context, userID string, productID domain.ProductID) error {
	query := `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, string(domain.CanonicalID(productID))); err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
