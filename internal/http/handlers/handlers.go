package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/disputeflow/backend/internal/ai"
	"github.com/disputeflow/backend/internal/db"
	"github.com/disputeflow/backend/internal/models"
	"github.com/disputeflow/backend/internal/service"
)

type Handler struct {
	Store     *db.Store
	Pipeline  *service.Pipeline
	Assistant ai.Assistant
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
}

type ImportSummary struct {
	Disputes struct {
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
	} `json:"disputes"`
	Transactions struct {
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
	} `json:"transactions"`
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Import CSV data
// @Description Upload disputes and transactions CSV files
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param disputes formData file true "disputes.csv"
// @Param transactions formData file true "transactions.csv"
// @Success 200 {object} ImportSummary
// @Failure 400 {object} map[string]any
// @Router /api/import [post]
func (h *Handler) Import(c *gin.Context) {
	disputesFile, err := c.FormFile("disputes")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "disputes file required", nil)
		return
	}
	txnsFile, err := c.FormFile("transactions")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "transactions file required", nil)
		return
	}
	if !validateExt(disputesFile.Filename) || !validateExt(txnsFile.Filename) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "all files must be .csv", nil)
		return
	}

	disputes, err := parseDisputesCSV(disputesFile)
	if err != nil {
		writeMalformed(c, err)
		return
	}
	txns, err := parseTransactionsCSV(txnsFile)
	if err != nil {
		writeMalformed(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.Store.ResetData(ctx); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to reset tables", err.Error())
		return
	}

	summary := ImportSummary{}
	summary.Disputes.Parsed = len(disputes)
	summary.Transactions.Parsed = len(txns)

	inserted, err := h.Store.InsertDisputes(ctx, disputes)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert disputes", err.Error())
		return
	}
	summary.Disputes.Inserted = int(inserted)

	inserted, err = h.Store.InsertTransactions(ctx, txns)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert transactions", err.Error())
		return
	}
	summary.Transactions.Inserted = int(inserted)

	c.JSON(http.StatusOK, summary)
}

// @Summary Classify the imported batch
// @Tags process
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/process [post]
func (h *Handler) Process(c *gin.Context) {
	ctx := c.Request.Context()

	runID, err := h.Store.CreateRun(ctx, "RUNNING")
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to create run")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create run", err.Error())
		return
	}

	disputes, err := h.Store.GetDisputesForProcessing(ctx)
	if err != nil {
		h.finishRun(ctx, runID, "FAILED", nil)
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load disputes", err.Error())
		return
	}
	txns, err := h.Store.GetTransactions(ctx)
	if err != nil {
		h.finishRun(ctx, runID, "FAILED", nil)
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load transactions", err.Error())
		return
	}

	result, err := h.Pipeline.Run(ctx, disputes, txns)
	if err != nil {
		h.finishRun(ctx, runID, "FAILED", nil)
		var malformed *service.MalformedInputError
		if errors.As(err, &malformed) {
			writeError(c, http.StatusBadRequest, "MALFORMED_INPUT", malformed.Message, malformed.Details)
			return
		}
		h.Logger.Error().Err(err).Msg("processing failed")
		writeError(c, http.StatusInternalServerError, "PROCESSING_ERROR", "Processing failed", err.Error())
		return
	}

	err = h.Store.WithTx(ctx, func(tx pgx.Tx) error {
		for _, cls := range result.Classifications {
			if err := h.Store.UpsertClassification(ctx, tx, cls); err != nil {
				return err
			}
		}
		for _, res := range result.Resolutions {
			if err := h.Store.UpsertResolution(ctx, tx, res); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.finishRun(ctx, runID, "FAILED", nil)
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to persist results", err.Error())
		return
	}

	b, _ := json.Marshal(result.Summary)
	h.finishRun(ctx, runID, "SUCCESS", b)

	c.JSON(http.StatusOK, gin.H{
		"summary": result.Summary,
		"skipped": result.Skipped,
	})
}

func (h *Handler) finishRun(ctx context.Context, runID string, status string, summary []byte) {
	if err := h.Store.FinishRun(ctx, runID, status, summary); err != nil {
		h.Logger.Error().Err(err).Msg("failed to finish run")
	}
}

// @Summary Latest run
// @Tags runs
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	result, err := h.Store.GetLatestRun(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ClassificationsList(c *gin.Context) {
	items, err := h.Store.ListClassifications(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list classifications", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) ResolutionsList(c *gin.Context) {
	items, err := h.Store.ListResolutions(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list resolutions", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) DisputesList(c *gin.Context) {
	items, err := h.Store.ListJoined(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list disputes", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

var allowedStatuses = map[string]bool{
	models.StatusNew:      true,
	models.StatusInReview: true,
	models.StatusResolved: true,
	models.StatusClosed:   true,
}

// UpdateStatus mutates the workflow status of a classified dispute. This is
// the only field an external caller may edit after a run.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id := c.Param("id")
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	if !allowedStatuses[req.Status] {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR",
			fmt.Sprintf("status must be one of: %s, %s, %s, %s",
				models.StatusNew, models.StatusInReview, models.StatusResolved, models.StatusClosed), nil)
		return
	}

	if err := h.Store.UpdateDisputeStatus(c.Request.Context(), id, req.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Dispute not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update status", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type ChatRequest struct {
	Message string           `json:"message" validate:"required"`
	History []ai.ChatMessage `json:"history"`
}

// @Summary Ask the assistant about the processed dispute table
// @Tags assistant
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/assistant/chat [post]
func (h *Handler) AssistantChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	rows, err := h.Store.ListJoined(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load dispute table", err.Error())
		return
	}

	answer, err := h.Assistant.Ask(c.Request.Context(), renderTable(rows), req.Message, req.History)
	if err != nil {
		var rateErr ai.RateLimitError
		if errors.As(err, &rateErr) {
			writeError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Assistant is rate limited, try again shortly", rateErr.Error())
			return
		}
		h.Logger.Warn().Err(err).Msg("assistant unavailable")
		writeError(c, http.StatusServiceUnavailable, "ASSISTANT_UNAVAILABLE",
			"The assistant is unavailable right now. The classification results above are unaffected.", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

const maxAssistantRows = 200

// renderTable flattens the joined result table into tab-separated text for
// the assistant's context window.
func renderTable(rows []map[string]any) string {
	var b strings.Builder
	b.WriteString("dispute_id\tdescription\tpredicted_category\tconfidence\tstatus\tsuggested_action\n")
	for i, row := range rows {
		if i >= maxAssistantRows {
			fmt.Fprintf(&b, "... %d more rows omitted\n", len(rows)-maxAssistantRows)
			break
		}
		fmt.Fprintf(&b, "%v\t%v\t%v\t%v\t%v\t%v\n",
			row["dispute_id"], row["description"], deref(row["predicted_category"]),
			deref(row["confidence"]), deref(row["status"]), deref(row["suggested_action"]))
	}
	return b.String()
}

func deref(v any) any {
	switch t := v.(type) {
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case *float64:
		if t == nil {
			return ""
		}
		return *t
	default:
		return v
	}
}

func writeMalformed(c *gin.Context, err error) {
	var malformed *service.MalformedInputError
	if errors.As(err, &malformed) {
		writeError(c, http.StatusBadRequest, "MALFORMED_INPUT", malformed.Message, malformed.Details)
		return
	}
	writeError(c, http.StatusBadRequest, "MALFORMED_INPUT", err.Error(), nil)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func validateExt(name string) bool {
	return strings.ToLower(filepath.Ext(name)) == ".csv"
}
