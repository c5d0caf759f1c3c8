package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kutbudev/promptvault/internal/facade"
)

// handleRPC runs one façade request. Operation failures travel inside the
// envelope with status 200; only an unreadable body is a 400.
func (s *Server) handleRPC(c *gin.Context) {
	var req facade.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := s.facade.Handle(c.Request.Context(), req)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleOperations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operations": s.facade.Operations()})
}
