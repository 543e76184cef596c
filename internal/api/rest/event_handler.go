package rest

import (
	"errors"
	"net/http"

	"github.com/CaioWing/filedrop/internal/api/response"
	"github.com/CaioWing/filedrop/internal/domain"
	"github.com/CaioWing/filedrop/internal/service"
)

type EventHandler struct {
	eventSvc *service.EventService
}

func NewEventHandler(eventSvc *service.EventService) *EventHandler {
	return &EventHandler{eventSvc: eventSvc}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := response.ParsePagination(r)

	filter := domain.EventFilter{
		Page:    page,
		PerPage: perPage,
	}

	if v := r.URL.Query().Get("action"); v != "" {
		filter.Action = &v
	}
	if v := r.URL.Query().Get("filename"); v != "" {
		filter.Filename = &v
	}
	if v := r.URL.Query().Get("order"); v != "" {
		filter.SortOrder = v
	}

	events, total, err := h.eventSvc.List(r.Context(), filter)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		response.Error(w, http.StatusInternalServerError, "failed to list upload events")
		return
	}

	response.Paginated(w, http.StatusOK, events, page, perPage, total)
}
