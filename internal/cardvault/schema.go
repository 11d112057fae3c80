package cardvault

import "attendvault/internal/store"

// Schema is the business card table. card_number is unique but nullable, so
// cards without a number never collide.
var Schema = store.Schema{
	SQLite: `
CREATE TABLE IF NOT EXISTS business_cards (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT,
	company TEXT,
	job_title TEXT,
	card_number TEXT UNIQUE,
	email TEXT,
	phone_number TEXT,
	address TEXT,
	website TEXT,
	raw_text TEXT,
	image_url TEXT
);
`,
	Postgres: `
CREATE TABLE IF NOT EXISTS business_cards (
	id BIGSERIAL PRIMARY KEY,
	name TEXT,
	company TEXT,
	job_title TEXT,
	card_number TEXT UNIQUE,
	email TEXT,
	phone_number TEXT,
	address TEXT,
	website TEXT,
	raw_text TEXT,
	image_url TEXT
);
`,
}
