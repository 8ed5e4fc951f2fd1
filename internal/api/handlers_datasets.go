// handlers_datasets.go - Upload, query and report handlers
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/chemequip/backend/internal/events"
	"github.com/chemequip/backend/internal/models"
	"github.com/chemequip/backend/internal/parser"
	"github.com/chemequip/backend/internal/report"
	"github.com/chemequip/backend/internal/storage"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// DatasetHandlerImpl implements the DatasetHandler interface
type DatasetHandlerImpl struct {
	store     storage.DatasetStore
	publisher events.Publisher
	renderer  *report.Renderer
	logger    *slog.Logger
}

// NewDatasetHandler creates a new dataset handler instance
func NewDatasetHandler(store storage.DatasetStore, publisher events.Publisher, renderer *report.Renderer, logger *slog.Logger) DatasetHandler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if renderer == nil {
		renderer = report.NewRenderer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetHandlerImpl{
		store:     store,
		publisher: publisher,
		renderer:  renderer,
		logger:    logger.With("component", "datasets"),
	}
}

// HandleUpload validates a multipart CSV upload, stores it with its summary
// and prunes the history in the same step.
func (h *DatasetHandlerImpl) HandleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError(DetailFileRequired)
	}

	src, err := file.Open()
	if err != nil {
		return uploadError(&parser.UnreadableFileError{Err: err})
	}
	defer src.Close()

	table, err := parser.ReadEquipmentCSV(src)
	if err != nil {
		h.logger.Info("upload rejected", "file", file.Filename, "reason", err.Error())
		return uploadError(err)
	}

	ctx := c.Request().Context()
	ds, pruned, err := h.store.Insert(ctx, models.NewDataset{
		FileName: file.Filename,
		Summary:  parser.Summarize(table),
		Columns:  table.Columns,
		Data:     table.Rows,
	})
	if err != nil {
		return NewInternalError(fmt.Errorf("storing %s: %w", file.Filename, err))
	}
	attrs := []any{"id", ds.ID, "file", ds.FileName, "rows", ds.Summary.TotalEquipment, "pruned", pruned}
	if u := CurrentUser(c); u != nil {
		attrs = append(attrs, "user", u.Username)
	}
	h.logger.Info("upload accepted", attrs...)

	if err := h.publisher.Publish(ctx, events.Created(ds, pruned)); err != nil {
		h.logger.Warn("publishing dataset event failed", "id", ds.ID, "error", err)
	}

	return respond(c, http.StatusCreated, ds)
}

// HandleLatest returns the newest dataset with its rows
func (h *DatasetHandlerImpl) HandleLatest(c echo.Context) error {
	ds, err := h.store.Latest(c.Request().Context())
	if errors.Is(err, storage.ErrNotFound) {
		return NewNotFoundError(DetailNoDatasets)
	}
	if err != nil {
		return NewInternalError(err)
	}
	return respond(c, http.StatusOK, ds)
}

// HandleHistory returns up to five dataset summaries, newest first.
// An optional ?limit= narrows the list further.
func (h *DatasetHandlerImpl) HandleHistory(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return NewBadRequestError("limit must be a positive integer")
		}
		limit = n
	}

	history, err := h.store.History(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError(err)
	}
	return respond(c, http.StatusOK, history)
}

// HandleGetDataset returns one dataset by id
func (h *DatasetHandlerImpl) HandleGetDataset(c echo.Context) error {
	ds, err := h.lookup(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, ds)
}

// HandleDatasetPDF renders the dataset report as a PDF attachment
func (h *DatasetHandlerImpl) HandleDatasetPDF(c echo.Context) error {
	ds, err := h.lookup(c)
	if err != nil {
		return err
	}

	pdf, err := h.renderer.Render(ds)
	if err != nil {
		return NewInternalError(fmt.Errorf("rendering report for %s: %w", ds.ID, err))
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", report.Filename(ds.FileName)))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// lookup resolves the :id path parameter. Ids that are not UUIDs can never
// match a record and are reported the same way as unknown ones.
func (h *DatasetHandlerImpl) lookup(c echo.Context) (*models.Dataset, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, NewNotFoundError(DetailDatasetNotFound)
	}

	ds, err := h.store.Get(c.Request().Context(), id.String())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, NewNotFoundError(DetailDatasetNotFound)
	}
	if err != nil {
		return nil, NewInternalError(err)
	}
	return ds, nil
}
