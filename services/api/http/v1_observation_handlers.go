package http

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/printobs/printobs/internal/frost"
	"github.com/printobs/printobs/internal/obs"
	"github.com/printobs/printobs/internal/report"
	"github.com/printobs/printobs/internal/timerange"
)

// handleV1Observations fetches, reconciles and sorts observations for a station
// GET /api/v1/observations/:alias?start=&end=&delta=&extra_margin=&version=&typeids=&format=json|text&show=
func (s *Server) handleV1Observations(c *gin.Context) {
	alias := c.Param("alias")

	in := timerange.Input{
		Start: c.Query("start"),
		End:   c.Query("end"),
	}
	if deltaStr := c.Query("delta"); deltaStr != "" {
		hours, err := strconv.Atoi(deltaStr)
		if err != nil || hours <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delta"})
			return
		}
		in.Delta = time.Duration(hours) * time.Hour
	}
	if marginStr := c.Query("extra_margin"); marginStr != "" {
		val, err := strconv.ParseBool(marginStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid extra_margin parameter"})
			return
		}
		in.ExtraMargin = val
	}

	version := s.cfg.APIVersion
	if versionStr := c.Query("version"); versionStr != "" {
		v, err := frost.ParseVersion(versionStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		version = v
	}

	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "text" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid format (use json or text)"})
		return
	}

	show, err := report.ParseShow(c.Query("show"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ObservationTimeout)
	defer cancel()

	res, err := s.obs.Run(ctx, obs.Query{
		Station: alias,
		Range:   in,
		Version: version,
		TypeIDs: c.Query("typeids"),
	}, s.now())
	if err != nil {
		status := obs.Status(err)
		if status >= http.StatusInternalServerError {
			s.logger.Warn("observation request failed", zap.String("station", alias), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if format == "text" {
		var buf bytes.Buffer
		if err := s.formatter.Write(&buf, res.Table, res.Station.Alias, show); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"station": res.Station,
			"table":   res.Table,
		},
		"meta": gin.H{
			"start":        res.Interval.Start.Format(time.RFC3339),
			"end":          res.Interval.End.Format(time.RFC3339),
			"version":      res.Response.Version,
			"rows":         len(res.Table.Time),
			"columns":      res.Table.Keys(),
			"generated_at": s.now().UTC().Format(time.RFC3339),
		},
	})
}
