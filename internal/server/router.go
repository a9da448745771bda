package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mfitchett/tally/internal/common"
	"github.com/mfitchett/tally/internal/engine"
	"github.com/mfitchett/tally/internal/importer"
	"github.com/mfitchett/tally/internal/model"
	"github.com/mfitchett/tally/internal/service"
)

// NewRouter builds the HTTP surface over the import and classification
// pipeline: import, review, classify, approve, train, plus operational
// endpoints.
func NewRouter(storage service.Storage, eng *engine.Engine, imp *importer.Importer, metrics *Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Get("/healthz", healthzHandler(storage))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/import", importHandler(imp, metrics, logger))

		r.Get("/transactions", listTransactionsHandler(storage, logger))
		r.Get("/transactions/review", reviewTransactionsHandler(storage, logger))
		r.Get("/transactions/{id}", getTransactionHandler(storage, logger))
		r.Post("/transactions/{id}/classify", classifyHandler(eng, metrics, logger))
		r.Put("/transactions/{id}/category", setCategoryHandler(eng, metrics, logger))
		r.Post("/transactions/{id}/approve", approveHandler(eng, metrics, logger))

		r.Get("/categories", listCategoriesHandler(storage, logger))
		r.Post("/categories", createCategoryHandler(storage, logger))

		r.Post("/train", trainHandler(eng, metrics, logger))
	})

	return r
}

func healthzHandler(storage service.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := storage.GetCategories(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func importHandler(imp *importer.Importer, metrics *Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CSV            string `json:"csv"`
			SkipDuplicates *bool  `json:"skipDuplicates,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CSV == "" {
			writeError(w, http.StatusBadRequest, "csv is required")
			return
		}

		skipDuplicates := true
		if req.SkipDuplicates != nil {
			skipDuplicates = *req.SkipDuplicates
		}

		result := imp.ImportCSV(r.Context(), req.CSV, skipDuplicates)
		metrics.RecordImport(result.ImportedCount, result.DuplicateCount, result.ErrorCount)
		logger.Info("import finished",
			"batch_id", result.BatchID,
			"imported", result.ImportedCount,
			"duplicates", result.DuplicateCount,
			"errors", result.ErrorCount,
		)

		writeJSON(w, http.StatusOK, toImportResultDTO(result))
	}
}

func listTransactionsHandler(storage service.Storage, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if statusParam := r.URL.Query().Get("status"); statusParam != "" {
			status, err := statusFromWire(statusParam)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			txns, err := storage.GetTransactionsByStatus(ctx, status)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"transactions": toTransactionDTOs(txns)})
			return
		}

		filter := service.TransactionFilter{}
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			filter.Limit = n
		}
		if v := r.URL.Query().Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
				return
			}
			filter.Offset = n
		}

		txns, err := storage.GetTransactions(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": toTransactionDTOs(txns)})
	}
}

// reviewTransactionsHandler returns everything awaiting a human decision:
// unclassified transactions plus pending suggestions.
func reviewTransactionsHandler(storage service.Storage, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		unclassified, err := storage.GetTransactionsByStatus(ctx, model.StatusUnclassified)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		pending, err := storage.GetTransactionsByStatus(ctx, model.StatusPending)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		txns := make([]model.Transaction, 0, len(unclassified)+len(pending))
		txns = append(txns, unclassified...)
		txns = append(txns, pending...)
		writeJSON(w, http.StatusOK, map[string]any{"transactions": toTransactionDTOs(txns)})
	}
}

func getTransactionHandler(storage service.Storage, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		txn, err := storage.GetTransactionByID(r.Context(), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, toTransactionDTO(txn))
	}
}

func classifyHandler(eng *engine.Engine, metrics *Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		result, err := eng.ClassifyTransaction(r.Context(), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if result.ShouldAutoApprove {
			metrics.RecordClassification(string(model.MethodAuto))
		}
		logger.Info("classified transaction",
			"transaction_id", id,
			"category_id", result.SuggestedCategoryID,
			"confidence", result.Confidence,
			"auto_approved", result.ShouldAutoApprove,
		)
		writeJSON(w, http.StatusOK, toClassificationResultDTO(result))
	}
}

func setCategoryHandler(eng *engine.Engine, metrics *Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		var req struct {
			CategoryID int64 `json:"categoryId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CategoryID <= 0 {
			writeError(w, http.StatusBadRequest, "categoryId is required")
			return
		}
		txn, err := eng.ManualClassify(r.Context(), id, req.CategoryID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		metrics.RecordClassification(string(model.MethodManual))
		writeJSON(w, http.StatusOK, toTransactionDTO(txn))
	}
}

func approveHandler(eng *engine.Engine, metrics *Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		txn, err := eng.ApproveClassification(r.Context(), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		metrics.RecordClassification(string(model.MethodAccepted))
		writeJSON(w, http.StatusOK, toTransactionDTO(txn))
	}
}

func listCategoriesHandler(storage service.Storage, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := storage.GetCategories(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		dtos := make([]categoryDTO, 0, len(categories))
		for i := range categories {
			dtos = append(dtos, toCategoryDTO(&categories[i]))
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": dtos})
	}
}

func createCategoryHandler(storage service.Storage, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name         string `json:"name"`
			Description  string `json:"description,omitempty"`
			CategoryType string `json:"categoryType,omitempty"`
			Color        string `json:"color,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		kind, err := categoryTypeFromWire(req.CategoryType)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		category, err := storage.CreateCategory(r.Context(), req.Name, req.Description, kind, req.Color)
		if err != nil {
			if errors.Is(err, common.ErrDuplicateEntry) {
				writeError(w, http.StatusConflict, "category already exists")
				return
			}
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, toCategoryDTO(category))
	}
}

func trainHandler(eng *engine.Engine, metrics *Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := eng.TrainModel(r.Context()); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		metrics.RecordTraining()
		logger.Info("model trained")
		writeJSON(w, http.StatusOK, map[string]bool{"trained": true})
	}
}
