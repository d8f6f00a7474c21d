package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/engine"
)

// ValidatePlan проверяет план без запуска.
// POST /api/v1/plans/validate
func (h *Handler) ValidatePlan(w http.ResponseWriter, r *http.Request) {
	var req ValidatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	plan := &domain.Plan{Steps: req.Plan}
	if err := engine.Validate(plan); err != nil {
		InvalidPlan(w, err)
		return
	}

	Success(w, ValidatePlanResponse{
		Valid: true,
		Steps: plan.Size(),
	})
}

// ListCapabilities возвращает поддерживаемые capabilities и их
// действующие политики.
// GET /api/v1/capabilities
func (h *Handler) ListCapabilities(w http.ResponseWriter, r *http.Request) {
	result := make([]CapabilityResponse, 0, len(domain.Capabilities))
	for _, capability := range domain.Capabilities {
		policy := h.policies[capability]
		result = append(result, CapabilityResponse{
			Name:          capability.String(),
			MaxConcurrent: policy.MaxConcurrent,
			TimeoutSec:    policy.TimeoutSec,
		})
	}

	List(w, result, len(result))
}
