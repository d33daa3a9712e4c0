package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trackmed/internal/app"
	"trackmed/internal/domain/medication"
)

// MedicationHandler serves the medication CRUD and report endpoints.
type MedicationHandler struct {
	medService    *app.MedicationService
	reportService *app.ReportService
}

func NewMedicationHandler(medService *app.MedicationService, reportService *app.ReportService) *MedicationHandler {
	return &MedicationHandler{medService: medService, reportService: reportService}
}

type medicationRequest struct {
	Name     string              `json:"name" binding:"required"`
	DrugInfo medication.DrugInfo `json:"drugInfo" binding:"required"`
}

// updateMedicationRequest leaves both fields optional; the service
// rejects a request that specifies neither.
type updateMedicationRequest struct {
	Name     string              `json:"name"`
	DrugInfo medication.DrugInfo `json:"drugInfo"`
}

type medicationResponse struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	DrugInfo  medication.DrugInfo `json:"drugInfo"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

func toMedicationResponse(med *medication.Medication) medicationResponse {
	return medicationResponse{
		ID:        med.ID,
		Name:      med.Name,
		DrugInfo:  med.DrugInfo,
		CreatedAt: med.CreatedAt,
		UpdatedAt: med.UpdatedAt,
	}
}

func (h *MedicationHandler) Create(c *gin.Context) {
	var req medicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	med, err := h.medService.Create(c.Request.Context(), currentUser(c), req.Name, req.DrugInfo)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toMedicationResponse(med))
}

func (h *MedicationHandler) List(c *gin.Context) {
	meds, err := h.medService.List(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]medicationResponse, 0, len(meds))
	for _, med := range meds {
		out = append(out, toMedicationResponse(med))
	}
	c.JSON(http.StatusOK, out)
}

func (h *MedicationHandler) Get(c *gin.Context) {
	medID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medication id"})
		return
	}

	med, err := h.medService.Get(c.Request.Context(), currentUser(c), medID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMedicationResponse(med))
}

func (h *MedicationHandler) Update(c *gin.Context) {
	medID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medication id"})
		return
	}

	var req updateMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	med, err := h.medService.Update(c.Request.Context(), currentUser(c), medID, req.Name, req.DrugInfo)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMedicationResponse(med))
}

func (h *MedicationHandler) Delete(c *gin.Context) {
	medID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medication id"})
		return
	}

	if err := h.medService.Delete(c.Request.Context(), currentUser(c), medID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *MedicationHandler) Report(c *gin.Context) {
	medID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medication id"})
		return
	}

	report, err := h.reportService.Generate(c.Request.Context(), currentUser(c), medID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// respondError maps application errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var validationErr *medication.ValidationError
	var collisionErr *app.SnoozeCollisionError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &collisionErr):
		c.JSON(http.StatusConflict, gin.H{"error": collisionErr.Error()})
	case errors.Is(err, app.ErrMedicationExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrInvalidLink):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrAlreadyCompleted),
		errors.Is(err, app.ErrSnoozeCrossesDay),
		errors.Is(err, app.ErrReportNotReady):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
