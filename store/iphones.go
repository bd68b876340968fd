package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const iphoneColumns = "id, name, model, price, storage, color, image, created_at, updated_at"

// ListAll returns the full catalog ordered by ascending id.
func (db *DB) ListAll(ctx context.Context) ([]Iphone, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+iphoneColumns+`
		FROM iphones
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Iphone{}
	for rows.Next() {
		var it Iphone
		if err := rows.Scan(&it.ID, &it.Name, &it.Model, &it.Price,
			&it.Storage, &it.Color, &it.Image, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Create inserts a new item and returns it with its store-assigned id.
func (db *DB) Create(ctx context.Context, fields IphoneFields) (*Iphone, error) {
	now := time.Now().UTC()

	var it Iphone
	err := db.pool.QueryRow(ctx, `
		INSERT INTO iphones (name, model, price, storage, color, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING `+iphoneColumns+`
	`, fields.Name, fields.Model, fields.Price, fields.Storage, fields.Color, fields.Image, now).
		Scan(&it.ID, &it.Name, &it.Model, &it.Price,
			&it.Storage, &it.Color, &it.Image, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// FindByID returns the item with the given id, or ErrNotFound.
func (db *DB) FindByID(ctx context.Context, id int64) (*Iphone, error) {
	var it Iphone
	err := db.pool.QueryRow(ctx, `
		SELECT `+iphoneColumns+`
		FROM iphones
		WHERE id = $1
	`, id).Scan(&it.ID, &it.Name, &it.Model, &it.Price,
		&it.Storage, &it.Color, &it.Image, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Update applies the non-nil fields to an existing item and returns the
// refreshed record, or ErrNotFound.
func (db *DB) Update(ctx context.Context, id int64, fields IphoneUpdate) (*Iphone, error) {
	set := []string{"updated_at = $2"}
	args := []any{id, time.Now().UTC()}

	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if fields.Name != nil {
		add("name", *fields.Name)
	}
	if fields.Model != nil {
		add("model", *fields.Model)
	}
	if fields.Price != nil {
		add("price", *fields.Price)
	}
	if fields.Storage != nil {
		add("storage", *fields.Storage)
	}
	if fields.Color != nil {
		add("color", *fields.Color)
	}
	if fields.Image != nil {
		add("image", *fields.Image)
	}

	query := "UPDATE iphones SET "
	for i, s := range set {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += " WHERE id = $1 RETURNING " + iphoneColumns

	var it Iphone
	err := db.pool.QueryRow(ctx, query, args...).
		Scan(&it.ID, &it.Name, &it.Model, &it.Price,
			&it.Storage, &it.Color, &it.Image, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Delete removes the item with the given id, or returns ErrNotFound.
func (db *DB) Delete(ctx context.Context, id int64) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM iphones WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
