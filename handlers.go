package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ocrweb/models"
	"ocrweb/pkg/ocr"
	"ocrweb/pkg/storage"
)

// multipart framing allowance on top of the file size limit
const formOverhead = 1 << 20

func (s *server) routes(r *gin.Engine) {
	r.MaxMultipartMemory = s.maxUpload()
	r.Use(requestID())
	r.GET("/healthz", s.healthHandler)
	r.POST("/upload", s.limitBody(), s.uploadHandler)
	r.GET("/download/:filename", s.downloadHandler)

	api := r.Group("/api")
	if s.cfg.JWTSecret != "" {
		api.Use(jwtAuthMiddleware([]byte(s.cfg.JWTSecret)))
	}
	api.POST("/ocr", s.limitBody(), s.apiOCRHandler)
	api.GET("/services", s.servicesHandler)
	api.GET("/history", s.historyHandler)
}

func (s *server) maxUpload() int64 {
	mb := s.cfg.MaxUploadMB
	if mb <= 0 {
		mb = 16
	}
	return mb << 20
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// limitBody rejects oversized uploads before the multipart form is parsed.
func (s *server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := s.maxUpload() + formOverhead
		if c.Request.ContentLength > limit {
			s.tooLarge(c)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

func (s *server) tooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
		"success": false,
		"error":   fmt.Sprintf("file too large, max %d MB", s.maxUpload()>>20),
	})
}

func (s *server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "history": s.db != nil})
}

// outcome is one finished recognition.
type outcome struct {
	file    ocr.File
	service *service
	result  ocr.Result
	amount  string
	rec     *models.Recognition
}

// recognize reads the uploaded file, runs the selected backend and extracts
// the amount. It writes the error response itself and returns false when the
// request cannot be served.
func (s *server) recognize(c *gin.Context, selector, source string) (*outcome, bool) {
	reqID := c.GetString("request_id")
	log := s.log.WithFields(logrus.Fields{"request_id": reqID, "source": source})

	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.tooLarge(c)
			return nil, false
		}
		fail(c, http.StatusBadRequest, "no file uploaded")
		return nil, false
	}
	name := filepath.Base(fh.Filename)
	if fh.Filename == "" || name == "." {
		fail(c, http.StatusBadRequest, "no file selected")
		return nil, false
	}
	if fh.Size > s.maxUpload() {
		s.tooLarge(c)
		return nil, false
	}
	if fh.Size == 0 {
		fail(c, http.StatusBadRequest, "uploaded file is empty")
		return nil, false
	}
	if !ocr.Supported(name) {
		fail(c, http.StatusBadRequest, "unsupported file format, supported: "+strings.Join(ocr.Extensions, ", "))
		return nil, false
	}
	svc, ok := s.services.lookup(selector)
	if !ok || !svc.Configured {
		fail(c, http.StatusBadRequest, fmt.Sprintf("OCR service %q is not configured", selector))
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "cannot read uploaded file")
		return nil, false
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		fail(c, http.StatusBadRequest, "cannot read uploaded file")
		return nil, false
	}
	file := ocr.File{Name: name, Data: data}
	log.WithFields(logrus.Fields{"file": name, "backend": svc.Key, "bytes": len(data)}).Info("recognition requested")

	start := time.Now()
	res, err := s.proc.Process(c.Request.Context(), file, svc.backend)
	rec := &models.Recognition{
		RequestID:  reqID,
		FileName:   name,
		Backend:    svc.Key,
		Source:     source,
		DurationMs: time.Since(start).Milliseconds(),
		Amount:     ocr.NotFound,
	}
	if err != nil {
		status, msg := errorResponse(err)
		log.WithError(err).Warnf("recognition failed (%d)", status)
		rec.Failed = true
		rec.FailedReason = truncate(err.Error(), 255)
		recordRecognition(s.db, rec)
		fail(c, status, msg)
		return nil, false
	}

	out := &outcome{file: file, service: svc, result: res, amount: s.extractor.Extract(res.Texts()), rec: rec}
	rec.Pages = res.Pages
	rec.LineCount = res.LineCount()
	rec.Amount = out.amount
	log.WithFields(logrus.Fields{"lines": rec.LineCount, "amount": out.amount}).Info("recognition finished")
	return out, true
}

// finish stores the history row once the result file, if any, is known.
func (s *server) finish(out *outcome, resultFile string) {
	out.rec.ResultFile = resultFile
	recordRecognition(s.db, out.rec)
}

func (s *server) uploadHandler(c *gin.Context) {
	out, ok := s.recognize(c, c.DefaultPostForm("ocr_service", "local"), "web")
	if !ok {
		return
	}
	if out.result.Empty() {
		s.finish(out, "")
		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"text":           "",
			"message":        "no text recognized",
			"download_file":  nil,
			"invoice_amount": ocr.NotFound,
		})
		return
	}
	saved := s.saveResult(c, out)
	s.finish(out, saved)
	var download any
	if saved != "" {
		download = saved
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"text":           out.result.Text(),
		"message":        fmt.Sprintf("recognized %d lines", out.result.LineCount()),
		"download_file":  download,
		"invoice_amount": out.amount,
	})
}

func (s *server) apiOCRHandler(c *gin.Context) {
	out, ok := s.recognize(c, c.DefaultPostForm("ocr_service", "1"), "api")
	if !ok {
		return
	}
	data := gin.H{
		"text":           out.result.Text(),
		"lines":          out.result.Texts(),
		"line_count":     out.result.LineCount(),
		"invoice_amount": out.amount,
		"ocr_service":    out.service.Name,
	}
	var saved string
	if save, _ := strconv.ParseBool(c.DefaultPostForm("save_result", "false")); save && !out.result.Empty() {
		if saved = s.saveResult(c, out); saved != "" {
			data["download_file"] = saved
		}
	}
	s.finish(out, saved)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// saveResult writes the result file; a failure is logged and the response
// goes out without a download link.
func (s *server) saveResult(c *gin.Context, out *outcome) string {
	name, err := s.results.Save(out.file.Name, out.result.Text())
	if err != nil {
		s.log.WithError(err).WithField("request_id", c.GetString("request_id")).Error("saving result file failed")
		return ""
	}
	return name
}

func (s *server) downloadHandler(c *gin.Context) {
	name := c.Param("filename")
	path, err := s.results.Open(name)
	if errors.Is(err, storage.ErrNotFound) {
		fail(c, http.StatusNotFound, "file does not exist")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "download failed")
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.FileAttachment(path, name)
}

func (s *server) servicesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s.services.list})
}

func (s *server) historyHandler(c *gin.Context) {
	if s.db == nil {
		fail(c, http.StatusServiceUnavailable, "history is disabled")
		return
	}
	limit := historyLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v < historyLimit {
		limit = v
	}
	items, err := recentRecognitions(s.db, c.Query("backend"), limit)
	if err != nil {
		s.log.WithError(err).Error("history query failed")
		fail(c, http.StatusInternalServerError, "query failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// errorResponse maps a processing error to its status and a short message.
func errorResponse(err error) (int, string) {
	switch ocr.KindOf(err) {
	case ocr.ErrUnsupportedFormat:
		return http.StatusBadRequest, "unsupported file format, supported: " + strings.Join(ocr.Extensions, ", ")
	case ocr.ErrDocumentFormat:
		return http.StatusUnprocessableEntity, "the file could not be read as an image or PDF"
	case ocr.ErrBackendTimeout:
		return http.StatusGatewayTimeout, "OCR service timed out, please retry later"
	case ocr.ErrBackendNetwork:
		return http.StatusBadGateway, "OCR service unreachable"
	case ocr.ErrEngineUnavailable:
		return http.StatusInternalServerError, "local OCR engine unavailable"
	}
	return http.StatusInternalServerError, "recognition failed: " + truncate(err.Error(), 200)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
