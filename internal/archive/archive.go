package archive

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"attendvault/internal/cloudinary"
	"attendvault/internal/logger"
	"attendvault/internal/metrics"
	"attendvault/internal/queue"
)

// MessageType tags card image jobs on the queue.
const MessageType = "card_image"

// Job asks for the original image of a stored card to be archived.
type Job struct {
	CardID   int64  `json:"card_id"`
	Filename string `json:"filename"`
	DataURL  string `json:"data_url"`
}

// Publisher puts card images on the archive queue.
type Publisher struct {
	q queue.Queue
}

// NewPublisher creates a publisher on q.
func NewPublisher(q queue.Queue) *Publisher {
	return &Publisher{q: q}
}

// Submit queues data as the image of card cardID.
func (p *Publisher) Submit(ctx context.Context, cardID int64, filename string, data []byte) error {
	body, err := json.Marshal(Job{
		CardID:   cardID,
		Filename: filename,
		DataURL:  "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return err
	}
	return p.q.Publish(ctx, queue.Message{Type: MessageType, Body: body})
}

// Uploader stores an image and returns where it lives.
type Uploader interface {
	UploadDataURL(ctx context.Context, dataURL, publicID string) (*cloudinary.UploadResult, error)
}

// CardStore records the archived image location of a card.
type CardStore interface {
	SetImageURL(ctx context.Context, id int64, url string) error
}

// Archiver uploads queued card images and links them to their cards.
type Archiver struct {
	up    Uploader
	cards CardStore
}

// NewArchiver creates an archiver.
func NewArchiver(up Uploader, cards CardStore) *Archiver {
	return &Archiver{up: up, cards: cards}
}

// Run handles messages until msgs is closed. Failed jobs are logged and
// dropped.
func (a *Archiver) Run(ctx context.Context, msgs <-chan queue.Message) {
	for msg := range msgs {
		if msg.Type != MessageType {
			continue
		}
		if err := a.Handle(ctx, msg.Body); err != nil {
			metrics.ArchiveUploads.WithLabelValues("failed").Inc()
			logger.LogError("archive card image", err)
			continue
		}
		metrics.ArchiveUploads.WithLabelValues("ok").Inc()
	}
}

// Handle processes one encoded Job.
func (a *Archiver) Handle(ctx context.Context, body []byte) error {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode job: %w", err)
	}
	if job.CardID <= 0 || job.DataURL == "" {
		return fmt.Errorf("incomplete job for card %d", job.CardID)
	}

	publicID := fmt.Sprintf("card-%d-%s", job.CardID, uuid.NewString())
	res, err := a.up.UploadDataURL(ctx, job.DataURL, publicID)
	if err != nil {
		return fmt.Errorf("upload card %d: %w", job.CardID, err)
	}
	if err := a.cards.SetImageURL(ctx, job.CardID, res.SecureURL); err != nil {
		return fmt.Errorf("store image url of card %d: %w", job.CardID, err)
	}
	logger.LogInfo("card image archived", zap.Int64("card_id", job.CardID), zap.String("url", res.SecureURL))
	return nil
}
