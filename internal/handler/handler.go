package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"galleryupload/internal/domain"
	"galleryupload/internal/session"
)

type Handler struct {
	session *session.Session
	log     *zap.Logger
}

func NewHandler(session *session.Session, log *zap.Logger) *Handler {
	return &Handler{
		session: session,
		log:     log,
	}
}

type tokenRequest struct {
	Token *string `json:"token" binding:"required"`
}

func (h *Handler) GetToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"token": h.session.Token()})
}

func (h *Handler) SetToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body must be {\"token\": \"...\"}"})
		return
	}

	h.session.SetToken(*req.Token)
	c.JSON(http.StatusOK, gin.H{"token": *req.Token})
}

func (h *Handler) PickImages(c *gin.Context) {
	images, err := h.session.Pick(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to pick images", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to pick images"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Picked " + strconv.Itoa(len(images)) + " image(s)",
		"images":  images,
	})
}

func (h *Handler) ListImages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"images": h.session.Images()})
}

func (h *Handler) UploadImages(c *gin.Context) {
	// A started run finishes every image even if the client goes away.
	entries, err := h.session.Upload(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		if errors.Is(err, domain.ErrUploadInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "Upload already in progress"})
			return
		}
		h.log.Error("Failed to upload images", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload images"})
		return
	}

	failed := 0
	for _, e := range entries {
		if !e.Succeeded() {
			failed++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"uploaded": len(entries) - failed,
		"failed":   failed,
		"logs":     entries,
	})
}

func (h *Handler) GetProgress(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"progress":  h.session.Progress(),
		"uploading": h.session.Uploading(),
	})
}

func (h *Handler) ListLogs(c *gin.Context) {
	logs := h.session.Logs()
	c.JSON(http.StatusOK, gin.H{
		"logs":     logs.Entries(),
		"expanded": logs.Expanded(),
	})
}

func (h *Handler) ClearLogs(c *gin.Context) {
	h.session.Logs().Clear()
	c.JSON(http.StatusOK, gin.H{"message": "Logs cleared"})
}

func (h *Handler) ToggleLog(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	logs := h.session.Logs()
	if err != nil || index < 0 || index >= logs.Len() {
		c.JSON(http.StatusNotFound, gin.H{"error": "No log entry at that index"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"expanded": logs.ToggleExpand(index)})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
