package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"kbchat/internal/adapter/chunker"
	"kbchat/internal/domain"
	"kbchat/internal/port"
	"kbchat/internal/usecase"
)

type AdminHandler struct {
	Ingest *usecase.IngestUseCase
	Docs   port.DocumentStore
	Status StatusInfo
}

func (h *AdminHandler) Register(g *echo.Group) {
	g.POST("/documents", h.upload)
	g.GET("/documents", h.list)
	g.DELETE("/documents/:id", h.delete)
	g.PUT("/documents/:id/sections/:title", h.updateSection)
	g.GET("/kb-status", h.kbStatus)
}

type uploadRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// upload accepts either a multipart file (.md or .txt) or a JSON body
// with pre-extracted text. Markdown is split on headings, plain text on
// paragraphs. Anything else, raw PDF bytes included, is rejected: text
// must be extracted before upload.
func (h *AdminHandler) upload(c echo.Context) error {
	replace := c.QueryParam("replace") != "false"

	if file, err := c.FormFile("file"); err == nil {
		return h.uploadFile(c, file, replace)
	}

	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title required")
	}

	docID := chunker.Slug(req.Title)
	result, err := h.Ingest.ProcessDocument(c.Request().Context(), docID, req.Title, req.Content, chunker.SplitParagraphs, replace)
	if err != nil {
		return ingestError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *AdminHandler) uploadFile(c echo.Context, file *multipart.FileHeader, replace bool) error {
	var policy chunker.SplitPolicy
	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".md", ".markdown":
		policy = chunker.SplitHeadings
	case ".txt":
		policy = chunker.SplitParagraphs
	default:
		return echo.NewHTTPError(http.StatusBadRequest, usecase.ErrUnsupportedFormat.Error())
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	title := file.Filename
	stem := strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	docID := chunker.Slug(stem)

	result, err := h.Ingest.ProcessDocument(c.Request().Context(), docID, title, string(data), policy, replace)
	if err != nil {
		return ingestError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *AdminHandler) list(c echo.Context) error {
	docs, err := h.Docs.List()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	return c.JSON(http.StatusOK, docs)
}

func (h *AdminHandler) delete(c echo.Context) error {
	docID := c.Param("id")
	deleted, err := h.Ingest.DeleteDocument(c.Request().Context(), docID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"documentId": docID,
		"deleted":    deleted,
	})
}

type updateSectionRequest struct {
	Content string `json:"content"`
}

func (h *AdminHandler) updateSection(c echo.Context) error {
	docID := c.Param("id")
	title, err := url.PathUnescape(c.Param("title"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid section title")
	}

	var req updateSectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	refs, err := h.Ingest.UpdateSection(c.Request().Context(), docID, title, req.Content)
	if err != nil {
		return ingestError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"documentId": docID,
		"sections":   refs,
	})
}

func (h *AdminHandler) kbStatus(c echo.Context) error {
	docs, err := h.Docs.List()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	totalChunks := 0
	langSet := map[string]bool{}
	var lastUpdated time.Time
	for _, d := range docs {
		totalChunks += d.ChunkCount
		if d.Language != "" {
			langSet[d.Language] = true
		}
		if d.UpdatedAt.After(lastUpdated) {
			lastUpdated = d.UpdatedAt
		}
	}
	languages := make([]string, 0, len(langSet))
	for lang := range langSet {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	status := map[string]interface{}{
		"documents":       len(docs),
		"chunks":          totalChunks,
		"languages":       languages,
		"embeddingModel":  h.Status.EmbeddingModel,
		"generationModel": h.Status.GenerationModel,
		"vectorProvider":  h.Status.VectorProvider,
	}
	if !lastUpdated.IsZero() {
		status["lastUpdated"] = lastUpdated
	}
	return c.JSON(http.StatusOK, status)
}

func ingestError(err error) error {
	if errors.Is(err, usecase.ErrEmptyDocument) || errors.Is(err, usecase.ErrUnsupportedFormat) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
