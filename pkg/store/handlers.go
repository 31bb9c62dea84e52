package store

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type JSONRow struct {
	ID          uint                   `json:"id"`
	Source      string                 `json:"source"`
	CollectedAt string                 `json:"collected_at"`
	Raw         map[string]interface{} `json:"raw"`
}

type RowsResponse struct {
	Rows  []JSONRow `json:"rows"`
	Error string    `json:"error,omitempty"`
}

type PointerResponse struct {
	Source  string `json:"source"`
	Pointer string `json:"pointer,omitempty"`
	Found   bool   `json:"found"`
	Error   string `json:"error,omitempty"`
}

func dbRowToJSONRow(r Row) JSONRow {
	// Convert the RAW field to a JSON object
	var rawAsJSON map[string]interface{}
	err := json.Unmarshal(r.Raw, &rawAsJSON)
	if err != nil {
		rawAsJSON = map[string]interface{}{"error": err.Error()}
	}

	return JSONRow{
		ID:          r.ID,
		Source:      r.Source,
		CollectedAt: r.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		Raw:         rawAsJSON,
	}
}

// HandleGetRows handles the GET /rows endpoint
func (s *Store) HandleGetRows(c echo.Context) error {
	// limit - Number of rows to return (default=100, max=1000)
	limitParam := c.QueryParam("limit")

	resp := RowsResponse{}

	limit := 100
	if limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil {
			resp.Error = fmt.Sprintf("invalid limit: %s", err)
			return c.JSON(http.StatusBadRequest, resp)
		}
		limit = parsed
	}

	if limit < 1 || limit > 1000 {
		resp.Error = "limit must be between 1 and 1000"
		return c.JSON(http.StatusBadRequest, resp)
	}

	rows, err := s.RecentRows(c.Request().Context(), limit)
	if err != nil {
		resp.Error = fmt.Sprintf("failed to load rows: %s", err)
		return c.JSON(http.StatusInternalServerError, resp)
	}

	resp.Rows = make([]JSONRow, 0, len(rows))
	for _, row := range rows {
		resp.Rows = append(resp.Rows, dbRowToJSONRow(row))
	}

	return c.JSON(http.StatusOK, resp)
}

// HandleGetPointer handles the GET /pointer endpoint
func (s *Store) HandleGetPointer(c echo.Context) error {
	resp := PointerResponse{Source: s.source}

	value, found, err := s.GetPointer(c.Request().Context())
	if err != nil {
		resp.Error = fmt.Sprintf("failed to load pointer: %s", err)
		return c.JSON(http.StatusInternalServerError, resp)
	}

	resp.Pointer = value
	resp.Found = found

	return c.JSON(http.StatusOK, resp)
}
