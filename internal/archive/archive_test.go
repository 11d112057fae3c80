package archive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendvault/internal/cloudinary"
	"attendvault/internal/queue"
)

type fakeUploader struct {
	dataURLs  []string
	publicIDs []string
	err       error
}

func (f *fakeUploader) UploadDataURL(_ context.Context, dataURL, publicID string) (*cloudinary.UploadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.dataURLs = append(f.dataURLs, dataURL)
	f.publicIDs = append(f.publicIDs, publicID)
	return &cloudinary.UploadResult{PublicID: publicID, SecureURL: "https://cdn.example/" + publicID}, nil
}

type fakeCards struct {
	urls map[int64]string
	done chan struct{}
}

func (f *fakeCards) SetImageURL(_ context.Context, id int64, url string) error {
	f.urls[id] = url
	if f.done != nil {
		f.done <- struct{}{}
	}
	return nil
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestPublishAndArchive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(4)
	up := &fakeUploader{}
	cards := &fakeCards{urls: map[int64]string{}, done: make(chan struct{}, 1)}

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	go NewArchiver(up, cards).Run(ctx, msgs)

	require.NoError(t, q.Publish(ctx, queue.Message{Type: "other", Body: []byte("ignored")}))
	require.NoError(t, NewPublisher(q).Submit(ctx, 7, "card.png", pngHeader))

	select {
	case <-cards.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job not archived")
	}

	require.Len(t, up.dataURLs, 1)
	assert.True(t, strings.HasPrefix(up.dataURLs[0], "data:image/png;base64,"))
	assert.True(t, strings.HasPrefix(up.publicIDs[0], "card-7-"))
	assert.Equal(t, "https://cdn.example/"+up.publicIDs[0], cards.urls[7])
}

func TestHandleErrors(t *testing.T) {
	ctx := context.Background()
	cards := &fakeCards{urls: map[int64]string{}}

	a := NewArchiver(&fakeUploader{}, cards)
	assert.ErrorContains(t, a.Handle(ctx, []byte("{")), "decode job")
	assert.ErrorContains(t, a.Handle(ctx, []byte(`{"card_id":0,"data_url":"data:x"}`)), "incomplete job")

	failing := NewArchiver(&fakeUploader{err: errors.New("cloudinary down")}, cards)
	err := failing.Handle(ctx, []byte(`{"card_id":3,"filename":"a.png","data_url":"data:image/png;base64,AA=="}`))
	assert.ErrorContains(t, err, "cloudinary down")
	assert.Empty(t, cards.urls)
}
