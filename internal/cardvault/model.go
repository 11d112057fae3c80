package cardvault

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Fields are the contact details pulled out of a card. A nil field was not
// found (or, on update, is left unchanged).
type Fields struct {
	Name        *string `json:"name"`
	Company     *string `json:"company"`
	JobTitle    *string `json:"job_title"`
	CardNumber  *string `json:"card_number"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phone_number"`
	Website     *string `json:"website"`
	Address     *string `json:"address"`
}

// Card is a stored business card.
type Card struct {
	ID int64 `json:"id,omitempty"`
	Fields
	RawText  *string `json:"raw_text"`
	ImageURL *string `json:"image_url,omitempty"`
}

// UnmarshalJSON accepts card_number as a JSON string or number and keeps it
// as text.
func (c *Card) UnmarshalJSON(b []byte) error {
	type plain Card
	aux := struct {
		*plain
		CardNumber json.RawMessage `json:"card_number"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	n, err := cardNumber(aux.CardNumber)
	if err != nil {
		return err
	}
	c.CardNumber = n
	return nil
}

func cardNumber(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("card_number: %w", err)
		}
		return &s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("card_number must be a string or number: %w", err)
	}
	return ptr(n.String()), nil
}

var (
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrUnreadableImage = errors.New("image could not be decoded")
	ErrNotFound        = errors.New("card not found")
	ErrCardNumberTaken = errors.New("card number already stored")
)

func ptr(s string) *string { return &s }
