package handlers

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"studyhub/apperrors"
	"studyhub/services"
)

// Paging holds the page size limits of list endpoints.
type Paging struct {
	DefaultSize int
	MaxSize     int
}

type paginationMeta struct {
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Count    int     `json:"count"`
}

type pageResponse struct {
	Pagination paginationMeta `json:"pagination"`
	Data       interface{}    `json:"data"`
}

// parse reads page and page_size (or size) from the query string.
func (p Paging) parse(c *gin.Context) (services.Page, error) {
	page := services.Page{Number: 1, Size: p.DefaultSize}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, apperrors.Validation("page", "invalid page %q", raw)
		}
		page.Number = n
	}
	raw := c.Query("page_size")
	if raw == "" {
		raw = c.Query("size")
	}
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, apperrors.Validation("page_size", "invalid page size %q", raw)
		}
		page.Size = n
	}
	if p.MaxSize > 0 && page.Size > p.MaxSize {
		page.Size = p.MaxSize
	}
	return page, nil
}

func pageLink(c *gin.Context, number int) *string {
	u := url.URL{Scheme: "http", Host: c.Request.Host, Path: c.Request.URL.Path}
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}
	q := c.Request.URL.Query()
	q.Set("page", strconv.Itoa(number))
	u.RawQuery = q.Encode()
	link := u.String()
	return &link
}

func paginated[T any](c *gin.Context, result services.PageResult[T]) pageResponse {
	meta := paginationMeta{Count: result.Pages()}
	if result.HasNext() {
		meta.Next = pageLink(c, result.Page.Number+1)
	}
	if result.HasPrevious() {
		meta.Previous = pageLink(c, result.Page.Number-1)
	}
	return pageResponse{Pagination: meta, Data: result.Items}
}
