package handler

import (
	"net/http"

	"github.com/dieselroute/dieselroute/internal/api/models"
	"github.com/dieselroute/dieselroute/internal/api/response"
	"github.com/dieselroute/dieselroute/internal/features"
)

// TaxonomySource exposes the taxonomy estimate requests are validated against.
type TaxonomySource interface {
	Taxonomy() *features.Taxonomy
}

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct {
	source TaxonomySource
}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler(source TaxonomySource) *MetadataHandler {
	return &MetadataHandler{source: source}
}

// GetTaxonomy handles GET /v1/metadata/taxonomy.
func (h *MetadataHandler) GetTaxonomy(w http.ResponseWriter, r *http.Request) {
	tax := h.source.Taxonomy()

	depots := make([]models.Depot, 0, len(tax.Depots()))
	for i, name := range tax.Depots() {
		depots = append(depots, models.Depot{Name: name, Code: i})
	}

	response.JSON(w, r, http.StatusOK, models.Taxonomy{
		Depots:          depots,
		Vehicles:        tax.LiveVehicles(),
		ModelVehicles:   tax.ModelVehicles(),
		DispatchWindows: tax.DispatchWindows(),
		Features:        tax.Names(),
	})
}
