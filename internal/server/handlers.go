package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/screenbin/screenbin/internal/ingest"
	"github.com/screenbin/screenbin/internal/logger"
	"github.com/screenbin/screenbin/internal/store"
	"github.com/screenbin/screenbin/internal/transcode"
)

var videoListExtensions = []string{".mp4", ".webm", ".mov", ".avi", ".mkv"}
var imageListExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}

// recentImagesLimit caps the screenshot gallery at the most recent uploads.
const recentImagesLimit = 6

// handleUploadVideo accepts a multipart video upload plus an optional prompt
// label and commits it through the ingestor.
func (s *Server) handleUploadVideo(c *gin.Context) {
	s.handleUpload(c, "video", ingest.KindVideo)
}

// handleUploadScreenshot accepts a multipart screenshot upload
func (s *Server) handleUploadScreenshot(c *gin.Context) {
	s.handleUpload(c, "screenshot", ingest.KindScreenshot)
}

func (s *Server) handleUpload(c *gin.Context, field string, kind ingest.Kind) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": fmt.Sprintf("missing %s file", field)})
		return
	}

	if fileHeader.Size > s.cfg.Storage.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "upload too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "failed to read upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "failed to read upload"})
		return
	}

	label := c.PostForm("prompt")

	rec, err := s.ingestor.Ingest(c.Request.Context(), data, kind, label)
	if err != nil {
		logger.Error("%s upload failed: %v", kind, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": fmt.Sprintf("%s upload failed", kind)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   fmt.Sprintf("%s saved successfully", kind),
		"filename":  rec.Filename,
		"slug":      rec.Slug,
		"viewUrl":   "/watch/" + rec.Slug,
		"expiresAt": rec.ExpiresAt,
	})
}

// handleGetBySlug returns the recording metadata for a slug. Expired
// recordings are indistinguishable from missing ones.
func (s *Server) handleGetBySlug(c *gin.Context) {
	slug := c.Param("slug")

	rec, err := s.records.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Video not found or expired"})
			return
		}
		logger.Error("Slug lookup failed for %s: %v", slug, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "video": rec})
}

// handlePlayback streams a playable file for a stored blob, transparently
// converting containers the browser cannot play.
func (s *Server) handlePlayback(c *gin.Context) {
	filename := c.Param("filename")

	path, err := s.cache.ResolveForPlayback(c.Request.Context(), filename)
	if err != nil {
		if errors.Is(err, transcode.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}
		logger.Error("Playback resolution failed for %s: %v", filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve file"})
		return
	}

	c.File(path)
}

// handleListVideos lists stored video blobs, newest first
func (s *Server) handleListVideos(c *gin.Context) {
	names, err := s.blobs.ListByExtensions(videoListExtensions, 0, true)
	if err != nil {
		logger.Error("Failed to list videos: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch videos"})
		return
	}

	videos := make([]string, 0, len(names))
	for _, name := range names {
		if transcode.IsConvertedSibling(name) {
			continue
		}
		videos = append(videos, name)
	}

	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// handleListImages lists the most recent screenshot blobs, oldest first
func (s *Server) handleListImages(c *gin.Context) {
	names, err := s.blobs.ListByExtensions(imageListExtensions, 0, false)
	if err != nil {
		logger.Error("Failed to list images: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch images"})
		return
	}

	images := make([]string, 0, len(names))
	for _, name := range names {
		if ingest.IsThumbSibling(name) {
			continue
		}
		images = append(images, name)
	}

	if len(images) > recentImagesLimit {
		images = images[len(images)-recentImagesLimit:]
	}

	c.JSON(http.StatusOK, gin.H{"images": images})
}

// handleHealth reports liveness plus record count and content-root disk usage
func (s *Server) handleHealth(c *gin.Context) {
	count, err := s.records.Count()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}

	resp := gin.H{
		"status":     "ok",
		"recordings": count,
	}

	if usage, err := disk.Usage(s.blobs.Root()); err == nil {
		resp["disk"] = gin.H{
			"total_bytes": usage.Total,
			"free_bytes":  usage.Free,
			"used_pct":    usage.UsedPercent,
		}
	}

	c.JSON(http.StatusOK, resp)
}

// handleIndex serves the recorder page
func (s *Server) handleIndex(c *gin.Context) {
	c.File(filepath.Join(s.cfg.Server.PublicDir, "index.html"))
}

// handleWatchPage serves the playback page; the page itself resolves the
// slug through the API.
func (s *Server) handleWatchPage(c *gin.Context) {
	c.File(filepath.Join(s.cfg.Server.PublicDir, "watch-video.html"))
}
