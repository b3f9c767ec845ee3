package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"kbchat/internal/port"
	"kbchat/internal/usecase"
)

// Server exposes the chat and admin APIs over HTTP.
type Server struct {
	chat   *usecase.ChatUseCase
	ingest *usecase.IngestUseCase
	docs   port.DocumentStore
	status StatusInfo
	logger *log.Logger
}

// StatusInfo is the static part of the kb-status report.
type StatusInfo struct {
	EmbeddingModel  string `json:"embeddingModel"`
	GenerationModel string `json:"generationModel"`
	VectorProvider  string `json:"vectorProvider"`
}

func New(chat *usecase.ChatUseCase, ingest *usecase.IngestUseCase, docs port.DocumentStore, status StatusInfo) *Server {
	return &Server{
		chat:   chat,
		ingest: ingest,
		docs:   docs,
		status: status,
		logger: log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}
}

// Echo builds the configured echo instance. Split out from Run so
// handler tests can drive it directly.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	api := e.Group("/api")

	ch := &ChatHandler{Chat: s.chat}
	ch.Register(api.Group("/chat"))

	ah := &AdminHandler{Ingest: s.ingest, Docs: s.docs, Status: s.status}
	ah.Register(api.Group("/admin"))

	return e
}

func (s *Server) Run(addr string) error {
	return s.Echo().Start(addr)
}
