// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// DatasetHandler handles upload and query operations on datasets
type DatasetHandler interface {
	HandleUpload(c echo.Context) error
	HandleLatest(c echo.Context) error
	HandleHistory(c echo.Context) error
	HandleGetDataset(c echo.Context) error
	HandleDatasetPDF(c echo.Context) error
}

// EventStreamHandler serves live dataset events
type EventStreamHandler interface {
	HandleWebSocket(c echo.Context) error
}
