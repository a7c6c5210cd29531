package user

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/staffdesk/employee-api/internal/httputil"
	"github.com/staffdesk/employee-api/internal/logging"
)

// Lister is the read side of the store the handler needs
type Lister interface {
	List(ctx context.Context) ([]User, error)
}

// Handler serves user listing endpoints
type Handler struct {
	store Lister
}

func NewHandler(store Lister) *Handler {
	return &Handler{store: store}
}

// listItem is the listing projection; password fields are never included
type listItem struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	EmployeeID string    `json:"employee_id"`
	Email      string    `json:"email"`
}

// List handles GET /users
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	users, err := h.store.List(r.Context())
	if err != nil {
		logger.Error("failed to list users", "error", err.Error())
		httputil.RespondJSON(w, map[string]string{"message": "Internal server error."}, http.StatusInternalServerError)
		return
	}

	items := make([]listItem, 0, len(users))
	for _, u := range users {
		items = append(items, listItem{
			ID:         u.ID,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			EmployeeID: u.EmployeeID,
			Email:      u.Email,
		})
	}

	httputil.RespondJSON(w, items, http.StatusOK)
}
