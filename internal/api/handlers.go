package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "articles-publisher"})
}

// autoPublish answers 200 with the report even when single articles failed;
// only a run that could not execute is a 5xx.
func (s *Server) autoPublish(c *gin.Context) {
	if s.deps.AutoPublisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auto-publish is not configured"})
		return
	}
	report, err := s.deps.AutoPublisher.Run(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) dedup(c *gin.Context) {
	if s.deps.Dedup == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dedup is not configured"})
		return
	}
	report, err := s.deps.Dedup.Reconcile(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) getPublication(c *gin.Context) {
	pub, err := s.deps.Publications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPublicationView(pub))
}

func (s *Server) retryPublication(c *gin.Context) {
	pub, err := s.deps.Publications.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPublicationView(pub))
}

func (s *Server) cancelPublication(c *gin.Context) {
	pub, err := s.deps.Publications.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPublicationView(pub))
}

func (s *Server) deletePublication(c *gin.Context) {
	if err := s.deps.Publications.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) retryGeneration(c *gin.Context) {
	attempt, err := s.deps.Generations.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newGenerationView(attempt))
}
