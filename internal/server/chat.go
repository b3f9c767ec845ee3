package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"kbchat/internal/usecase"
)

type ChatHandler struct {
	Chat *usecase.ChatUseCase
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("", h.chat)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (h *ChatHandler) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.Chat.Answer(c.Request().Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyQuery) {
			return echo.NewHTTPError(http.StatusBadRequest, "message required")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
