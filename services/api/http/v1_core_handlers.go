package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/printobs/printobs/internal/catalog"
)

// handleV1ListStations returns the station catalog in listing order
// GET /api/v1/core/stations
func (s *Server) handleV1ListStations(c *gin.Context) {
	stations := s.obs.Stations().All()

	c.JSON(http.StatusOK, gin.H{
		"data": stations,
		"meta": gin.H{
			"count": len(stations),
		},
	})
}

// handleV1GetStation returns one station
// GET /api/v1/core/stations/:alias
func (s *Server) handleV1GetStation(c *gin.Context) {
	alias := c.Param("alias")
	if alias == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "station alias is required"})
		return
	}

	station, err := s.obs.Stations().Lookup(alias)
	if errors.Is(err, catalog.ErrStationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": station,
	})
}

// handleV1ListVariables returns the variable catalog in catalog order
// GET /api/v1/core/variables
func (s *Server) handleV1ListVariables(c *gin.Context) {
	vars := s.obs.Variables().All()

	c.JSON(http.StatusOK, gin.H{
		"data": vars,
		"meta": gin.H{
			"count": len(vars),
		},
	})
}
