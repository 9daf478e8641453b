package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dvloznov/momo-tracker/internal/api/middleware"
	"github.com/dvloznov/momo-tracker/internal/domain"
	"github.com/dvloznov/momo-tracker/internal/events"
	"github.com/dvloznov/momo-tracker/internal/logger"
	"github.com/dvloznov/momo-tracker/internal/store"
)

// maxBodyBytes caps POST/PUT payloads.
const maxBodyBytes = 1 << 20

var errInvalidJSON = errors.New("invalid JSON")

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	store  store.Store
	events events.Emitter
	strict bool
}

// NewTransactionsHandler creates a new transactions handler. With strict
// set, payload keys outside the transaction schema are rejected. Handlers
// log through the request-scoped logger in the context.
func NewTransactionsHandler(s store.Store, emitter events.Emitter, strict bool) *TransactionsHandler {
	if emitter == nil {
		emitter = events.Discard
	}
	return &TransactionsHandler{
		store:  s,
		events: emitter,
		strict: strict,
	}
}

// ListTransactions handles GET /transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.store.List(r.Context())
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	middleware.WriteData(w, http.StatusOK, transactions)
}

// GetTransaction handles GET /transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	tx, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, r, id, err, "Failed to get transaction")
		return
	}

	middleware.WriteData(w, http.StatusOK, tx)
}

// CreateTransaction handles POST /transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := domain.CheckRequired(fields); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Missing required fields: %v", domain.RequiredFields))
		return
	}

	patch, err := domain.DecodePatch(fields, h.strict)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.store.Add(r.Context(), domain.NewTransaction(patch))
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to create transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create transaction")
		return
	}

	log := logger.FromContext(r.Context())
	log.Info().Int64("transaction_id", created.ID).Str("type", created.Type).Msg("Transaction created")
	h.events.Emit(events.New(events.TypeCreated, created))

	middleware.WriteData(w, http.StatusCreated, created)
}

// UpdateTransaction handles PUT /transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	fields, err := readFields(w, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	patch, err := domain.DecodePatch(fields, h.strict)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		h.writeStoreError(w, r, id, err, "Failed to update transaction")
		return
	}

	log := logger.FromContext(r.Context())
	log.Info().Int64("transaction_id", id).Msg("Transaction updated")
	h.events.Emit(events.New(events.TypeUpdated, updated))

	middleware.WriteData(w, http.StatusOK, updated)
}

// DeleteTransaction handles DELETE /transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, r, id, err, "Failed to delete transaction")
		return
	}

	log := logger.FromContext(r.Context())
	log.Info().Int64("transaction_id", id).Msg("Transaction deleted")
	h.events.Emit(events.New(events.TypeDeleted, deleted))

	middleware.WriteData(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Transaction %d deleted", id),
		"deleted": deleted,
	})
}

func (h *TransactionsHandler) writeStoreError(w http.ResponseWriter, r *http.Request, id int64, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, fmt.Sprintf("Transaction %d not found", id))
		return
	}
	log := logger.FromContext(r.Context())
	log.Error().Err(err).Int64("transaction_id", id).Msg(msg)
	middleware.WriteError(w, http.StatusInternalServerError, msg)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction ID")
		return 0, false
	}
	return id, true
}

// readFields decodes the body as a single JSON object. A literal null
// decodes to an empty map.
func readFields(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidJSON, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}
