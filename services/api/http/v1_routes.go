package http

// registerV1Routes sets up the v1 API structure
// Groups: /api/v1/core, /api/v1/observations
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware()) // Add X-API-Version: v1 header

	// Core endpoints - station and variable catalogs
	core := v1.Group("/core")
	{
		core.GET("/stations", s.handleV1ListStations)
		core.GET("/stations/:alias", s.handleV1GetStation)
		core.GET("/variables", s.handleV1ListVariables)
	}

	// Observation endpoints - one Frost round trip per request
	observations := v1.Group("/observations")
	{
		observations.GET("/:alias", s.handleV1Observations)
	}
}
