package cardvault

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendvault/internal/store"
)

const cardText = "Jane Doe\nCompany: Acme Corp\n12345678\njane.doe@acme.com\n"

type fakeRecognizer struct {
	text  string
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(_ context.Context, image io.Reader, _ string) (string, error) {
	f.calls++
	if _, err := io.Copy(io.Discard, image); err != nil {
		return "", err
	}
	return f.text, f.err
}

type submission struct {
	cardID   int64
	filename string
	data     []byte
}

type fakeSink struct {
	got []submission
}

func (f *fakeSink) Submit(_ context.Context, cardID int64, filename string, data []byte) error {
	f.got = append(f.got, submission{cardID, filename, data})
	return nil
}

type brokenStore struct {
	Store
}

func (brokenStore) Upsert(context.Context, *Card) error {
	return errors.New("database is locked")
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "cards.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx, Schema))
	return NewRepository(db)
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(40, 20, color.White)
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestScanRejectsTypeBeforeOCR(t *testing.T) {
	ocr := &fakeRecognizer{text: cardText}
	svc := NewService(newTestRepo(t), ocr, nil)

	_, err := svc.Scan(context.Background(), "card.bmp", bytes.NewReader(pngImage(t)))
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Zero(t, ocr.calls)
}

func TestScanRejectsUndecodableImage(t *testing.T) {
	ocr := &fakeRecognizer{text: cardText}
	svc := NewService(newTestRepo(t), ocr, nil)

	_, err := svc.Scan(context.Background(), "card.png", strings.NewReader("not an image"))
	assert.ErrorIs(t, err, ErrUnreadableImage)
	assert.Zero(t, ocr.calls)
}

func TestScanStoresAndArchives(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	sink := &fakeSink{}
	svc := NewService(repo, &fakeRecognizer{text: cardText}, sink)
	upload := pngImage(t)

	res, err := svc.Scan(ctx, "card.PNG", bytes.NewReader(upload))
	require.NoError(t, err)
	assert.Empty(t, res.DBError)
	require.NotZero(t, res.ID)
	assert.Equal(t, "Jane Doe", *res.Name)
	assert.Equal(t, cardText, *res.RawText)

	stored, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "12345678", *stored.CardNumber)

	require.Len(t, sink.got, 1)
	assert.Equal(t, res.ID, sink.got[0].cardID)
	assert.Equal(t, "card.PNG", sink.got[0].filename)
	assert.Equal(t, upload, sink.got[0].data)
}

func TestScanReportsDBErrorInline(t *testing.T) {
	sink := &fakeSink{}
	svc := NewService(brokenStore{}, &fakeRecognizer{text: cardText}, sink)

	res, err := svc.Scan(context.Background(), "card.jpg", bytes.NewReader(pngImage(t)))
	require.NoError(t, err)
	assert.Equal(t, "database is locked", res.DBError)
	assert.Equal(t, "jane.doe@acme.com", *res.Email)
	assert.Empty(t, sink.got)
}

func TestScanOCRFailure(t *testing.T) {
	svc := NewService(newTestRepo(t), &fakeRecognizer{err: errors.New("tesseract crashed")}, nil)
	_, err := svc.Scan(context.Background(), "card.gif", bytes.NewReader(pngImage(t)))
	assert.ErrorContains(t, err, "tesseract crashed")
}

func TestPrepareBoundsImage(t *testing.T) {
	big := imaging.New(3000, 1500, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, big, imaging.JPEG))

	out, err := prepare(buf.Bytes())
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 2000, img.Bounds().Dx())
	assert.Equal(t, 1000, img.Bounds().Dy())
}

func TestUpsertKeepsStoredValues(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewService(repo, nil, nil)

	first, err := svc.Save(ctx, Card{Fields: Fields{CardNumber: ptr("12345678"), Email: ptr("jane@acme.com"), Name: ptr("Jane")}})
	require.NoError(t, err)
	second, err := svc.Save(ctx, Card{Fields: Fields{CardNumber: ptr("12345678"), Name: ptr("Jane Doe")}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", *got.Name)
	assert.Equal(t, "jane@acme.com", *got.Email)

	_, err = svc.Save(ctx, Card{Fields: Fields{Name: ptr("No Number")}})
	require.NoError(t, err)
	_, err = svc.Save(ctx, Card{Fields: Fields{Name: ptr("Also No Number")}})
	require.NoError(t, err)

	cards, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cards, 3)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestRepo(t), nil, nil)

	a, err := svc.Save(ctx, Card{Fields: Fields{CardNumber: ptr("11111111"), Company: ptr("Acme")}})
	require.NoError(t, err)
	b, err := svc.Save(ctx, Card{Fields: Fields{CardNumber: ptr("22222222")}})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, a.ID, Card{Fields: Fields{JobTitle: ptr("CTO")}})
	require.NoError(t, err)
	assert.Equal(t, "CTO", *updated.JobTitle)
	assert.Equal(t, "Acme", *updated.Company)

	_, err = svc.Update(ctx, b.ID, Card{Fields: Fields{CardNumber: ptr("11111111")}})
	assert.ErrorIs(t, err, ErrCardNumberTaken)

	_, err = svc.Update(ctx, 999, Card{Fields: Fields{Name: ptr("Ghost")}})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), ErrNotFound)
	_, err = svc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetImageURL(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	c := Card{Fields: Fields{Name: ptr("Jane")}}
	require.NoError(t, repo.Upsert(ctx, &c))
	require.NoError(t, repo.SetImageURL(ctx, c.ID, "https://res.cloudinary.com/demo/card.png"))

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "https://res.cloudinary.com/demo/card.png", *got.ImageURL)
}
