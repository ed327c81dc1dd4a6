package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/opskpi/backend/internal/dataset"
	"github.com/opskpi/backend/internal/kpi"
	"github.com/opskpi/backend/internal/metrics"
	"github.com/opskpi/backend/internal/store"
	"github.com/opskpi/backend/internal/synopsis"
	"github.com/opskpi/backend/pkg/logger"
)

type DatasetHandler struct {
	session *store.Session
}

func NewDatasetHandler(session *store.Session) *DatasetHandler {
	return &DatasetHandler{session: session}
}

// GetKPIs serves the card aggregates of the current table.
func (h *DatasetHandler) GetKPIs(c *fiber.Ctx) error {
	t := h.session.Table()

	resp := fiber.Map{
		"rows":  t.Len(),
		"cards": kpi.Compute(t),
	}
	if t.Len() > 0 {
		start, end := t.DateRange()
		resp["start"] = start.Format("2006-01-02")
		resp["end"] = end.Format("2006-01-02")
	}

	return c.JSON(resp)
}

// GetTimeseries serves per-column value arrays aligned to the date axis,
// with nulls for missing cells, for the trend charts.
func (h *DatasetHandler) GetTimeseries(c *fiber.Ctx) error {
	t := h.session.Table()

	dates := make([]string, 0, t.Len())
	series := make(map[string][]*float64, len(t.Columns))
	for _, col := range t.Columns {
		series[col] = make([]*float64, 0, t.Len())
	}

	for _, row := range t.Rows {
		dates = append(dates, row.Date.Format("2006-01-02"))
		for _, col := range t.Columns {
			if v, ok := row.Values[col]; ok {
				v := v
				series[col] = append(series[col], &v)
			} else {
				series[col] = append(series[col], nil)
			}
		}
	}

	return c.JSON(fiber.Map{
		"dates":  dates,
		"series": series,
	})
}

// GetSynopsis serves the rendered synopsis block. This is the exact text the
// ask pipeline grounds its prompt on.
func (h *DatasetHandler) GetSynopsis(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"synopsis": synopsis.Build(h.session.Table()).Render(),
	})
}

// UploadDataset replaces the current table from a multipart CSV upload. On
// any failure the previous table stays installed.
func (h *DatasetHandler) UploadDataset(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Attach a CSV file under the \"file\" form field.",
		})
	}

	f, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded file", zap.Error(err))
		metrics.DatasetUploads.WithLabelValues("error").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not read the uploaded file.",
		})
	}
	defer f.Close()

	t, err := dataset.Load(f)
	if err != nil {
		var formatErr *dataset.FormatError
		if errors.As(err, &formatErr) {
			logger.Warn("Rejected dataset upload",
				zap.String("filename", fileHeader.Filename),
				zap.String("reason", formatErr.Reason),
			)
			metrics.DatasetUploads.WithLabelValues("format_error").Inc()
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": formatErr.Error(),
			})
		}
		logger.Error("Failed to load dataset", zap.Error(err))
		metrics.DatasetUploads.WithLabelValues("error").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load the uploaded file.",
		})
	}

	h.session.Replace(t)
	metrics.DatasetUploads.WithLabelValues("ok").Inc()
	metrics.DatasetRows.Set(float64(t.Len()))

	logger.Info("Dataset replaced",
		zap.String("filename", fileHeader.Filename),
		zap.Int("rows", t.Len()),
		zap.Strings("columns", t.Columns),
	)

	return c.JSON(fiber.Map{
		"message": "Dataset loaded",
		"rows":    t.Len(),
		"columns": t.Columns,
	})
}
