package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"whiteboard/internal/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Board clients are not browsers; any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// BoardSummary is one entry of GET /api/boards.
type BoardSummary struct {
	Name     string `json:"name"`
	Users    int    `json:"users"`
	Commands int    `json:"commands"`
}

// Handler returns the HTTP front: the websocket endpoint and a small
// read-only API over the authority.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)

	r.GET(transport.WSPath, s.handleWebSocket)

	api := r.Group("/api")
	api.GET("/boards", s.handleBoards)
	api.GET("/boards/:name", s.handleExport)
	api.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.metrics.Snapshot())
	})
	return r
}

func (s *Server) logRequests(c *gin.Context) {
	c.Next()
	s.logger.Debug("%s %s → %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
}

func (s *Server) handleWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade: %v", err)
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()
	s.ServeConn(transport.NewWSConn(ws, s.opts.WriteTimeout))
}

func (s *Server) handleBoards(c *gin.Context) {
	names := s.auth.Boards()
	out := make([]BoardSummary, 0, len(names))
	for _, name := range names {
		e, ok := s.auth.Export(name)
		if !ok {
			continue
		}
		out = append(out, BoardSummary{Name: name, Users: len(e.Users), Commands: len(e.Commands)})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleExport(c *gin.Context) {
	tc, ok := TranscoderFor(c.Query("format"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or cbor"})
		return
	}
	e, ok := s.auth.Export(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such board"})
		return
	}
	data, err := tc.Encode(e)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, tc.ContentType(), data)
}
