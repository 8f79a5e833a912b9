// Package handlers implements the HTTP endpoint handlers.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/internal/dashboard"
	"github.com/arthasutra/backend/internal/importer"
	"github.com/arthasutra/backend/pkg/logger"
)

// PortfolioHandler handles portfolio endpoints.
type PortfolioHandler struct {
	portfolios contracts.PortfolioRepository
	composer   *dashboard.Composer
	importer   *importer.Service
	refresher  func()
	logger     *logger.Logger
}

// NewPortfolioHandler builds the handler. onImport runs after a successful
// holdings import; pass nil when no feed needs notifying.
func NewPortfolioHandler(
	portfolios contracts.PortfolioRepository,
	composer *dashboard.Composer,
	importerSvc *importer.Service,
	onImport func(),
	log *logger.Logger,
) *PortfolioHandler {
	if onImport == nil {
		onImport = func() {}
	}
	return &PortfolioHandler{
		portfolios: portfolios,
		composer:   composer,
		importer:   importerSvc,
		refresher:  onImport,
		logger:     log,
	}
}

// CreatePortfolioRequest is the body of POST /portfolios.
type CreatePortfolioRequest struct {
	Name    string `json:"name"`
	BaseCcy string `json:"base_ccy"`
	TZ      string `json:"tz"`
}

// Create handles POST /portfolios.
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.BaseCcy == "" {
		req.BaseCcy = "INR"
	}
	if req.TZ == "" {
		req.TZ = "Asia/Kolkata"
	}

	pf := &contracts.Portfolio{Name: req.Name, BaseCcy: req.BaseCcy, TZ: req.TZ}
	if err := h.portfolios.Create(r.Context(), pf); err != nil {
		h.logger.WithError(err).Error("Failed to create portfolio")
		respondError(w, http.StatusInternalServerError, "Failed to create portfolio")
		return
	}

	respondJSON(w, http.StatusCreated, pf)
}

// List handles GET /portfolios.
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.portfolios.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list portfolios")
		respondError(w, http.StatusInternalServerError, "Failed to list portfolios")
		return
	}
	if portfolios == nil {
		portfolios = []*contracts.Portfolio{}
	}

	respondJSON(w, http.StatusOK, portfolios)
}

// Delete handles DELETE /portfolios/{id}.
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	if err := h.portfolios.Delete(r.Context(), id); err != nil {
		h.logger.WithError(err).Error("Failed to delete portfolio")
		respondError(w, http.StatusInternalServerError, "Failed to delete portfolio")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ImportCSV handles POST /portfolios/{id}/import-csv. The holdings file
// arrives as the multipart field "file", or as the raw request body.
func (h *PortfolioHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	pf, err := h.portfolios.GetByID(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load portfolio")
		respondError(w, http.StatusInternalServerError, "Failed to load portfolio")
		return
	}
	if pf == nil {
		respondError(w, http.StatusNotFound, "Portfolio not found")
		return
	}

	body, err := uploadedFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing CSV payload")
		return
	}
	defer body.Close()

	rows, err := importer.ParseHoldingsCSV(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Malformed CSV: "+err.Error())
		return
	}

	count, err := h.importer.ApplyHoldings(r.Context(), id, rows)
	if err != nil {
		h.logger.WithError(err).Error("Failed to apply holdings import")
		respondError(w, http.StatusInternalServerError, "Failed to import holdings")
		return
	}

	h.refresher()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"rows":   count,
	})
}

// Positions handles GET /portfolios/{id}/positions.
func (h *PortfolioHandler) Positions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	pf, err := h.portfolios.GetByID(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load portfolio")
		respondError(w, http.StatusInternalServerError, "Failed to load portfolio")
		return
	}
	if pf == nil {
		respondError(w, http.StatusNotFound, "Portfolio not found")
		return
	}

	positions, err := h.composer.Positions(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute positions")
		respondError(w, http.StatusInternalServerError, "Failed to compute positions")
		return
	}

	respondJSON(w, http.StatusOK, positions)
}

// Dashboard handles GET /portfolios/{id}/dashboard.
func (h *PortfolioHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	resp, err := h.composer.Compose(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compose dashboard")
		respondError(w, http.StatusInternalServerError, "Failed to compose dashboard")
		return
	}
	if resp == nil {
		respondError(w, http.StatusNotFound, "Portfolio not found")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *PortfolioHandler) portfolioID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid portfolio id")
		return 0, false
	}
	return id, true
}

// uploadedFile returns the CSV payload of an import request.
func uploadedFile(r *http.Request) (io.ReadCloser, error) {
	if file, _, err := r.FormFile("file"); err == nil {
		return file, nil
	}
	if r.Body == nil {
		return nil, http.ErrMissingFile
	}
	return r.Body, nil
}
