package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	anomalydomain "github.com/fintelhq/fintel/internal/anomaly/domain"
	obslogger "github.com/fintelhq/fintel/internal/observability/logger"
	"go.uber.org/zap"
)

// maxUploadBytes bounds one uploaded document.
const maxUploadBytes = 25 << 20

func (s *Server) uploadInvoice(c *gin.Context) {
	ctx := c.Request.Context()

	if s.uploadLimiter.Enabled() {
		result, err := s.uploadLimiter.AllowClient(ctx, c.ClientIP())
		if err != nil {
			obslogger.FromContext(ctx).Warn("upload limiter unavailable", zap.Error(err))
		} else if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "required", "a document file is required"))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		AbortWithError(c, newValidationError("file", "too_large", "document exceeds the upload size limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, newValidationError("file", "unreadable", "document could not be read"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		AbortWithError(c, newValidationError("file", "unreadable", "document could not be read"))
		return
	}

	if s.uploadLimiter.Enabled() {
		token, ok, lockErr := s.uploadLimiter.TryLockDocument(ctx, content)
		if lockErr != nil {
			obslogger.FromContext(ctx).Warn("upload lock unavailable", zap.Error(lockErr))
		} else if !ok {
			AbortWithError(c, ErrRateLimited)
			return
		} else {
			defer func() {
				_ = s.uploadLimiter.ReleaseDocument(ctx, content, token)
			}()
		}
	}

	result, err := s.processingSvc.ProcessUpload(ctx, fileHeader.Filename, content)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) invoiceHistory(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 50)
	entries, err := s.dashboardSvc.History(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": entries})
}

func (s *Server) listVendors(c *gin.Context) {
	vendors, err := s.dashboardSvc.Vendors(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": vendors})
}

func (s *Server) listAnomalies(c *gin.Context) {
	severity, err := parseSeverity(c.Query("severity"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit := parseLimit(c.Query("limit"), 50)

	anomalies, err := s.dashboardSvc.Anomalies(c.Request.Context(), severity, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"anomalies": anomalies})
}

func (s *Server) dashboardStats(c *gin.Context) {
	stats, err := s.dashboardSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) anomalyTrends(c *gin.Context) {
	days := parseLimit(c.Query("days"), 0)
	trends, err := s.dashboardSvc.AnomalyTrends(c.Request.Context(), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trends": trends})
}

func parseLimit(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

func parseSeverity(raw string) (anomalydomain.Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case string(anomalydomain.SeverityHigh):
		return anomalydomain.SeverityHigh, nil
	case string(anomalydomain.SeverityMedium):
		return anomalydomain.SeverityMedium, nil
	case string(anomalydomain.SeverityLow):
		return anomalydomain.SeverityLow, nil
	default:
		return "", newValidationError("severity", "invalid", "severity must be HIGH, MEDIUM or LOW")
	}
}
