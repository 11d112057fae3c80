package cardvault

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"attendvault/internal/logger"
	"attendvault/internal/store"
)

// maxOCRDimension bounds the longer side of the image sent to OCR.
const maxOCRDimension = 2000

// Recognizer turns an image into text.
type Recognizer interface {
	Recognize(ctx context.Context, image io.Reader, filename string) (string, error)
}

// ImageSink receives the original upload of a stored card for archival.
type ImageSink interface {
	Submit(ctx context.Context, cardID int64, filename string, data []byte) error
}

// Store is the persistence the service needs.
type Store interface {
	Upsert(ctx context.Context, c *Card) error
	List(ctx context.Context) ([]Card, error)
	Get(ctx context.Context, id int64) (*Card, error)
	Update(ctx context.Context, id int64, c Card) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Service extracts, stores and edits business cards.
type Service struct {
	repo Store
	ocr  Recognizer
	sink ImageSink
}

// NewService wires the card service. sink may be nil when archival is off.
func NewService(repo Store, ocr Recognizer, sink ImageSink) *Service {
	return &Service{repo: repo, ocr: ocr, sink: sink}
}

// ScanResult is the extracted card. DBError is set when the card could not
// be stored; the extracted fields are still returned.
type ScanResult struct {
	Card
	DBError string `json:"db_error,omitempty"`
}

// Scan runs OCR on an uploaded card image, extracts its fields and upserts
// the card. The extension is checked before the image is read.
func (s *Service) Scan(ctx context.Context, filename string, upload io.Reader) (ScanResult, error) {
	if !AllowedFile(filename) {
		return ScanResult{}, ErrUnsupportedType
	}
	data, err := io.ReadAll(upload)
	if err != nil {
		return ScanResult{}, fmt.Errorf("read upload: %w", err)
	}
	prepared, err := prepare(data)
	if err != nil {
		return ScanResult{}, err
	}
	text, err := s.ocr.Recognize(ctx, bytes.NewReader(prepared), "card.png")
	if err != nil {
		return ScanResult{}, fmt.Errorf("ocr: %w", err)
	}

	log := logger.FromContext(ctx)
	res := ScanResult{Card: Card{Fields: Extract(text), RawText: ptr(text)}}
	if err := s.repo.Upsert(ctx, &res.Card); err != nil {
		log.Warn("store scanned card", zap.Error(err))
		res.DBError = err.Error()
		return res, nil
	}
	if s.sink != nil {
		if err := s.sink.Submit(ctx, res.ID, filename, data); err != nil {
			log.Warn("submit card image", zap.Int64("card_id", res.ID), zap.Error(err))
		}
	}
	return res, nil
}

// prepare decodes the upload, applies EXIF orientation, converts it to
// grayscale and shrinks it to fit maxOCRDimension, returning a PNG.
func prepare(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	out := imaging.Fit(imaging.Grayscale(img), maxOCRDimension, maxOCRDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Save upserts a card submitted directly, keyed on its card number.
func (s *Service) Save(ctx context.Context, c Card) (Card, error) {
	c.ID = 0
	c.ImageURL = nil
	if err := s.repo.Upsert(ctx, &c); err != nil {
		return Card{}, fmt.Errorf("save card: %w", err)
	}
	return c, nil
}

// List returns every stored card.
func (s *Service) List(ctx context.Context) ([]Card, error) {
	return s.repo.List(ctx)
}

// Get returns card id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (Card, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Card{}, fmt.Errorf("get card: %w", err)
	}
	if c == nil {
		return Card{}, ErrNotFound
	}
	return *c, nil
}

// Update applies the non-nil fields of patch to card id.
func (s *Service) Update(ctx context.Context, id int64, patch Card) (Card, error) {
	found, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Card{}, ErrCardNumberTaken
		}
		return Card{}, fmt.Errorf("update card: %w", err)
	}
	if !found {
		return Card{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes card id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if !found {
		return ErrNotFound
	}
	return nil
}
