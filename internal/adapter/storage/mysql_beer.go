package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/beer-orders/internal/core/domain"
	"github.com/rl1809/beer-orders/internal/port"
)

const beerColumns = `id, version, beer_name, beer_style, upc, quantity_on_hand, price, created_date, update_date`

func scanBeer(row rowScanner) (domain.Beer, error) {
	var b domain.Beer
	err := row.Scan(&b.ID, &b.Version, &b.BeerName, &b.BeerStyle, &b.UPC,
		&b.QuantityOnHand, &b.Price, &b.CreatedDate, &b.UpdateDate)
	return b, err
}

func (m *MySQLAdapter) CreateBeer(ctx context.Context, beer *domain.Beer) error {
	now := m.nowFunc()
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO beers (version, beer_name, beer_style, upc, quantity_on_hand, price, created_date, update_date)
		VALUES (0, ?, ?, ?, ?, ?, ?, ?)`,
		beer.BeerName, beer.BeerStyle, beer.UPC, beer.QuantityOnHand, beer.Price, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert beer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("beer id: %w", err)
	}

	beer.ID = id
	beer.Version = 0
	beer.CreatedDate = now
	beer.UpdateDate = now
	return nil
}

func (m *MySQLAdapter) GetBeer(ctx context.Context, id int64) (*domain.Beer, error) {
	b, err := scanBeer(m.db.QueryRowContext(ctx, `
		SELECT `+beerColumns+`
		FROM beers WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query beer: %w", err)
	}
	return &b, nil
}

func (m *MySQLAdapter) ListBeers(ctx context.Context) ([]domain.Beer, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+beerColumns+` FROM beers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query beers: %w", err)
	}
	defer rows.Close()

	beers := []domain.Beer{}
	for rows.Next() {
		b, err := scanBeer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan beer: %w", err)
		}
		beers = append(beers, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate beers: %w", err)
	}
	return beers, nil
}

func (m *MySQLAdapter) UpdateBeer(ctx context.Context, beer *domain.Beer) error {
	now := m.nowFunc()
	result, err := m.db.ExecContext(ctx, `
		UPDATE beers
		SET beer_name = ?, beer_style = ?, upc = ?, quantity_on_hand = ?, price = ?,
			version = version + 1, update_date = ?
		WHERE id = ? AND version = ?`,
		beer.BeerName, beer.BeerStyle, beer.UPC, beer.QuantityOnHand, beer.Price,
		now, beer.ID, beer.Version,
	)
	if err != nil {
		return fmt.Errorf("update beer: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update beer: %w", err)
	}
	if rows == 0 {
		return port.ErrOptimisticLock
	}

	beer.Version++
	beer.UpdateDate = now
	return nil
}

func (m *MySQLAdapter) DeleteBeer(ctx context.Context, id int64) (bool, error) {
	result, err := m.db.ExecContext(ctx, `DELETE FROM beers WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete beer: %w", translateMySQLError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete beer: %w", err)
	}
	return rows > 0, nil
}
