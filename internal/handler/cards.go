package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendvault/internal/cardvault"
	"attendvault/internal/logger"
	"attendvault/internal/metrics"
)

var cardFields = []string{"name", "company", "job_title", "card_number", "email", "phone_number", "website", "address"}

type cardHandler struct {
	svc       *cardvault.Service
	maxUpload int64
}

func (h *cardHandler) index(c *gin.Context) {
	cards, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{"cards": cards, "fields": cardFields})
}

func (h *cardHandler) ocr(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	res, err := h.svc.Scan(c.Request.Context(), fh.Filename, f)
	if errors.Is(err, cardvault.ErrUnsupportedType) {
		metrics.CardScans.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed"})
		return
	}
	if err != nil {
		metrics.CardScans.WithLabelValues("failed").Inc()
		logger.FromContext(c.Request.Context()).Error("card scan failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if res.DBError != "" {
		metrics.CardScans.WithLabelValues("db_error").Inc()
	} else {
		metrics.CardScans.WithLabelValues("stored").Inc()
	}
	c.JSON(http.StatusOK, res)
}

func (h *cardHandler) save(c *gin.Context) {
	var card cardvault.Card
	if err := c.ShouldBindJSON(&card); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	saved, err := h.svc.Save(c.Request.Context(), card)
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("save card", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Card saved to database.", "id": saved.ID})
}

func (h *cardHandler) list(c *gin.Context) {
	cards, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

func cardID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return 0, false
	}
	return id, true
}

func (h *cardHandler) respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cardvault.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
	case errors.Is(err, cardvault.ErrCardNumberTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "card number already stored"})
	default:
		logger.FromContext(c.Request.Context()).Error("card request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *cardHandler) get(c *gin.Context) {
	id, ok := cardID(c)
	if !ok {
		return
	}
	card, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *cardHandler) update(c *gin.Context) {
	id, ok := cardID(c)
	if !ok {
		return
	}
	var patch cardvault.Card
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	card, err := h.svc.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *cardHandler) delete(c *gin.Context) {
	id, ok := cardID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
