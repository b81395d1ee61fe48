// README: Customer profile handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridematch/internal/modules/profile"
	"ridematch/internal/types"
)

type CustomerDirectory interface {
	Customers() []profile.Customer
	Customer(id types.ID) (profile.Customer, error)
}

type CustomerHandler struct {
	profiles CustomerDirectory
}

func NewCustomerHandler(profiles CustomerDirectory) *CustomerHandler {
	return &CustomerHandler{profiles: profiles}
}

func (h *CustomerHandler) List(c *gin.Context) {
	customers := h.profiles.Customers()
	writeList(c, len(customers), customers)
}

func (h *CustomerHandler) Get(c *gin.Context) {
	cust, err := h.profiles.Customer(types.ID(c.Param("id")))
	if err != nil {
		writeMatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, cust)
}
