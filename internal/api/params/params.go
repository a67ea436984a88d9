// Package params parses the path and query parameters shared by the list and
// detail routes.
package params

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bugtracker/bugtracker/internal/api/respond"
	"github.com/bugtracker/bugtracker/internal/db/models"
)

// ID returns path parameter name when it is a well-formed UUID. Anything
// else cannot name a record, so it writes a 404 and returns false.
func ID(c *gin.Context, name, what string) (string, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		respond.NotFound(c, fmt.Sprintf("%s %s not found", what, raw))
		return "", false
	}
	return id.String(), true
}

// Page reads pageSize and pageNumber. Missing or unparsable values fall back
// to defaultSize and the first page.
func Page(c *gin.Context, defaultSize int) models.Page {
	size, _ := strconv.Atoi(c.Query("pageSize"))
	number, _ := strconv.Atoi(c.Query("pageNumber"))
	return models.NewPage(size, number, defaultSize)
}

// Int reads an optional non-negative integer query parameter.
func Int(c *gin.Context, name string) (*int, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return &n, nil
}

// Bool reads an optional boolean query parameter.
func Bool(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", name)
	}
	return &b, nil
}

// Time reads an optional RFC 3339 timestamp or YYYY-MM-DD date. A bare date
// is taken as midnight UTC.
func Time(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp or a YYYY-MM-DD date", name)
	}
	return &t, nil
}

// Pagination renders the paging block returned alongside list results.
func Pagination(p models.Page, total int) gin.H {
	return gin.H{
		"pageNumber": p.Number,
		"pageSize":   p.Size,
		"total":      total,
	}
}
