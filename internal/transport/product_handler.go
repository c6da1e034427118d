package transport

import (
	"context"
	"errors"
	"net/http"

	"veritag/internal/artifact"
	"veritag/internal/domain"
	"veritag/internal/middleware"
	"veritag/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// statusClientClosedRequest reports a verification the caller abandoned
// before the chain confirmed anything.
const statusClientClosedRequest = 499

// RegisterProductRequest represents the registration request payload
type RegisterProductRequest struct {
	ID           string  `json:"id"`
	Name         string  `json:"name" validate:"required"`
	Manufacturer string  `json:"manufacturer" validate:"required"`
	Description  string  `json:"description"`
	Price        float64 `json:"price" validate:"gte=0"`
	Category     string  `json:"category"`
	Backend      string  `json:"backend" validate:"omitempty,oneof=local chain"`
}

// VerifyRequest carries the decoded code string presented by a consumer. The
// code arrives already decoded (camera, file upload or manual entry); it is
// treated as an opaque ledger key.
type VerifyRequest struct {
	Code    string `json:"code" validate:"required"`
	Backend string `json:"backend" validate:"omitempty,oneof=local chain"`
}

// RegisterProductResponse is the registration response. ArtifactError is set
// when the record was stored but its scannable artifact could not be
// rendered; the artifact endpoint offers the retry.
type RegisterProductResponse struct {
	Product       *domain.Product `json:"product"`
	ArtifactError string          `json:"artifact_error,omitempty"`
}

// ProductHandler handles HTTP requests for registration and verification
type ProductHandler struct {
	productService      service.ProductService
	verificationService service.VerificationService
	logger              *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, verificationService service.VerificationService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService:      productService,
		verificationService: verificationService,
		logger:              logger,
	}
}

// RegisterRoutes registers all product and verification routes. The verify
// endpoint is public (optionally rate limited); registration and the
// manufacturer listing require an authenticated manufacturer.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler, rateLimitMiddleware func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			if rateLimitMiddleware != nil {
				r.Use(rateLimitMiddleware)
			}
			r.Post("/verify", h.Verify)
		})
		r.Get("/stats", h.Stats)

		// Manufacturer routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireManufacturer(h.logger))
			r.Post("/products", h.Register)
			r.Get("/products", h.List)
			r.Post("/products/{key}/artifact", h.RegenerateArtifact)
		})
	})
}

// Register handles product registration on the selected backend
func (h *ProductHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attrs := domain.Attributes{
		ID:           req.ID,
		Name:         req.Name,
		Manufacturer: req.Manufacturer,
		Description:  req.Description,
		Price:        req.Price,
		Category:     req.Category,
	}

	product, err := h.productService.Register(r.Context(), attrs, backendMode(req.Backend))
	if err != nil && !errors.Is(err, artifact.ErrArtifact) {
		h.logger.Error("Registration failed", zap.Error(err))

		switch {
		case errors.Is(err, domain.ErrNameRequired),
			errors.Is(err, domain.ErrManufacturerRequired),
			errors.Is(err, domain.ErrNegativePrice):
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrRegistration):
			// The caller is always told which backend failed; chain failures
			// are never silently downgraded to a local registration.
			middleware.RespondWithError(w, http.StatusBadGateway, err.Error())
		default:
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to register product")
		}
		return
	}

	response := RegisterProductResponse{Product: product}
	if err != nil {
		response.ArtifactError = "artifact generation failed, retry via the artifact endpoint"
	}

	h.logger.Info("Product registered",
		zap.String("key", product.LedgerKey),
		zap.String("backend", string(backendMode(req.Backend))),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, response)
}

// Verify handles a consumer presenting a ledger key
func (h *ProductHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Verify validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.verificationService.Verify(r.Context(), req.Code, backendMode(req.Backend))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			middleware.RespondWithError(w, statusClientClosedRequest, "verification cancelled")
			return
		}

		h.logger.Error("Verification failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to verify product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// List handles the manufacturer's product listing
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	mode := backendMode(r.URL.Query().Get("backend"))

	products, err := h.productService.List(r.Context(), mode)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadGateway, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    len(products),
	})
}

// Stats handles the analytics totals
func (h *ProductHandler) Stats(w http.ResponseWriter, r *http.Request) {
	mode := backendMode(r.URL.Query().Get("backend"))

	stats, err := h.productService.Stats(r.Context(), mode)
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadGateway, "failed to get stats")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, stats)
}

// RegenerateArtifact re-renders the scannable artifact for a stored record
func (h *ProductHandler) RegenerateArtifact(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	product, err := h.productService.RegenerateArtifact(r.Context(), key)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}

		h.logger.Error("Artifact regeneration failed", zap.String("key", key), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to generate artifact")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// backendMode defaults to the local backend when the caller does not name
// one; request validation has already restricted the value set.
func backendMode(s string) domain.BackendMode {
	if s == "" {
		return domain.BackendLocal
	}
	return domain.BackendMode(s)
}
