package cardvault

import (
	"context"
	"database/sql"
	"errors"

	"attendvault/internal/store"
)

// Repository persists business cards.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

const cardColumns = `id, name, company, job_title, card_number, email, phone_number, website, address, raw_text, image_url`

func scanCard(row interface{ Scan(...any) error }) (Card, error) {
	var c Card
	var name, company, title, number, email, phone, website, address, raw, image sql.NullString
	if err := row.Scan(&c.ID, &name, &company, &title, &number, &email, &phone, &website, &address, &raw, &image); err != nil {
		return Card{}, err
	}
	c.Name = nullable(name)
	c.Company = nullable(company)
	c.JobTitle = nullable(title)
	c.CardNumber = nullable(number)
	c.Email = nullable(email)
	c.PhoneNumber = nullable(phone)
	c.Website = nullable(website)
	c.Address = nullable(address)
	c.RawText = nullable(raw)
	c.ImageURL = nullable(image)
	return c, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return ptr(s.String)
}

// Upsert stores c keyed on card_number and sets its ID. When a card with the
// same number exists, non-null values in c replace the stored ones.
func (r *Repository) Upsert(ctx context.Context, c *Card) error {
	return r.db.Client.QueryRowContext(ctx, r.db.Rebind(`
		INSERT INTO business_cards (name, company, job_title, card_number, email, phone_number, website, address, raw_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (card_number) DO UPDATE SET
			name = COALESCE(excluded.name, business_cards.name),
			company = COALESCE(excluded.company, business_cards.company),
			job_title = COALESCE(excluded.job_title, business_cards.job_title),
			email = COALESCE(excluded.email, business_cards.email),
			phone_number = COALESCE(excluded.phone_number, business_cards.phone_number),
			website = COALESCE(excluded.website, business_cards.website),
			address = COALESCE(excluded.address, business_cards.address),
			raw_text = COALESCE(excluded.raw_text, business_cards.raw_text)
		RETURNING id
	`), c.Name, c.Company, c.JobTitle, c.CardNumber, c.Email, c.PhoneNumber, c.Website, c.Address, c.RawText).Scan(&c.ID)
}

// List returns every card in insertion order.
func (r *Repository) List(ctx context.Context) ([]Card, error) {
	rows, err := r.db.Client.QueryContext(ctx, `SELECT `+cardColumns+` FROM business_cards ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// Get returns nil when the card does not exist.
func (r *Repository) Get(ctx context.Context, id int64) (*Card, error) {
	row := r.db.Client.QueryRowContext(ctx, r.db.Rebind(`SELECT `+cardColumns+` FROM business_cards WHERE id = ?`), id)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Update overwrites the non-null fields of c on card id. It reports whether
// the card exists.
func (r *Repository) Update(ctx context.Context, id int64, c Card) (bool, error) {
	res, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`
		UPDATE business_cards SET
			name = COALESCE(?, name),
			company = COALESCE(?, company),
			job_title = COALESCE(?, job_title),
			card_number = COALESCE(?, card_number),
			email = COALESCE(?, email),
			phone_number = COALESCE(?, phone_number),
			website = COALESCE(?, website),
			address = COALESCE(?, address),
			raw_text = COALESCE(?, raw_text)
		WHERE id = ?
	`), c.Name, c.Company, c.JobTitle, c.CardNumber, c.Email, c.PhoneNumber, c.Website, c.Address, c.RawText, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes card id and reports whether it existed.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`DELETE FROM business_cards WHERE id = ?`), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetImageURL records where the card's original image was archived.
func (r *Repository) SetImageURL(ctx context.Context, id int64, url string) error {
	_, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`UPDATE business_cards SET image_url = ? WHERE id = ?`), url, id)
	return err
}
