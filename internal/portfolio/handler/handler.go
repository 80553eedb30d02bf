package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/utsingh/portfolio-api/internal/portfolio"
	"github.com/utsingh/portfolio-api/internal/portfolio/repository"
	"github.com/utsingh/portfolio-api/internal/portfolio/service"
)

// Handler serves the portfolio document over HTTP.
type Handler struct {
	svc service.Service
	// exposeErrors adds the underlying error text to 5xx/4xx envelopes.
	exposeErrors bool
}

func NewHandler(svc service.Service, isProduction bool) *Handler {
	return &Handler{svc: svc, exposeErrors: !isProduction}
}

// RegisterPortfolioRoutes mounts the portfolio endpoints under /api/portfolio.
func RegisterPortfolioRoutes(r gin.IRouter, svc service.Service, isProduction bool) {
	h := NewHandler(svc, isProduction)
	g := r.Group("/api/portfolio")
	g.GET("", h.GetAll)
	g.PUT("", h.ReplaceAll)
	g.GET("/:section", h.GetSection)
	g.PUT("/:section", h.ReplaceSection)
	g.POST("/:section/:arrayField", h.AddItem)
	g.PUT("/:section/:arrayField/:itemId", h.ReplaceItem)
	g.DELETE("/:section/:arrayField/:itemId", h.RemoveItem)
}

func (h *Handler) GetAll(c *gin.Context) {
	data, err := h.svc.GetAll(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "Error fetching portfolio data", err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) ReplaceAll(c *gin.Context) {
	data, err := readObject(c)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "Portfolio data must be a JSON object", err)
		return
	}
	res, err := h.svc.ReplaceAll(c.Request.Context(), data)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "Error updating portfolio data", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetSection(c *gin.Context) {
	section := c.Param("section")
	v, err := h.svc.GetSection(c.Request.Context(), section)
	if err != nil {
		h.sectionError(c, section, fmt.Sprintf("Error fetching %s data", section), err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) ReplaceSection(c *gin.Context) {
	section := c.Param("section")
	value, err := readValue(c)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "Request body must be valid JSON", err)
		return
	}
	res, err := h.svc.ReplaceSection(c.Request.Context(), section, value)
	if err != nil {
		h.sectionError(c, section, fmt.Sprintf("Error updating %s data", section), err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AddItem(c *gin.Context) {
	section, field := c.Param("section"), c.Param("arrayField")
	item, err := readObject(c)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "Item must be a JSON object", err)
		return
	}
	res, err := h.svc.AddItem(c.Request.Context(), section, field, item)
	if err != nil {
		switch {
		case errors.Is(err, portfolio.ErrInvalidTarget):
			h.fail(c, http.StatusBadRequest, "Invalid section or array field", err)
		case errors.Is(err, repository.ErrNotArray):
			h.fail(c, http.StatusConflict, fmt.Sprintf("%s.%s is not an array", section, field), err)
		default:
			h.fail(c, http.StatusInternalServerError, fmt.Sprintf("Error adding item to %s.%s", section, field), err)
		}
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) RemoveItem(c *gin.Context) {
	section, field, id := c.Param("section"), c.Param("arrayField"), c.Param("itemId")
	res, err := h.svc.RemoveItem(c.Request.Context(), section, field, id)
	if err != nil {
		switch {
		case errors.Is(err, portfolio.ErrInvalidTarget):
			h.fail(c, http.StatusBadRequest, "Invalid section or array field", err)
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Item not found"})
		default:
			h.fail(c, http.StatusInternalServerError, fmt.Sprintf("Error deleting item from %s.%s", section, field), err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": res.Success, "message": res.Message})
}

func (h *Handler) ReplaceItem(c *gin.Context) {
	section, field, id := c.Param("section"), c.Param("arrayField"), c.Param("itemId")
	item, err := readObject(c)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "Item must be a JSON object", err)
		return
	}
	res, err := h.svc.ReplaceItem(c.Request.Context(), section, field, id, item)
	if err != nil {
		switch {
		case errors.Is(err, portfolio.ErrInvalidTarget):
			h.fail(c, http.StatusBadRequest, "Invalid section or array field", err)
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Item not found"})
		default:
			h.fail(c, http.StatusInternalServerError, fmt.Sprintf("Error updating item in %s.%s", section, field), err)
		}
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) sectionError(c *gin.Context, section, msg string, err error) {
	switch {
	case errors.Is(err, portfolio.ErrInvalidTarget):
		h.fail(c, http.StatusBadRequest, "Invalid section name", err)
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("Section '%s' not found", section)})
	default:
		h.fail(c, http.StatusInternalServerError, msg, err)
	}
}

// fail writes the {message, error} envelope; error is omitted in production.
func (h *Handler) fail(c *gin.Context, status int, msg string, err error) {
	body := gin.H{"message": msg}
	if h.exposeErrors && err != nil {
		body["error"] = err.Error()
	}
	c.JSON(status, body)
}

// readValue decodes any JSON value. An empty body reads as {}.
func readValue(c *gin.Context) (interface{}, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

func readObject(c *gin.Context) (map[string]interface{}, error) {
	v, err := readValue(c)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", v)
	}
	return m, nil
}
