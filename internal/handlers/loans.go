package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libhub/internal/models"
	"libhub/internal/services"
)

func (h *Handler) rentBook(c *gin.Context) {
	bookID, ok := parseID(c)
	if !ok {
		return
	}
	loan, err := h.loans.Rent(c.Request.Context(), currentUser(c), bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (h *Handler) returnLoan(c *gin.Context) {
	loanID, ok := parseID(c)
	if !ok {
		return
	}
	loan, err := h.loans.Return(c.Request.Context(), currentUser(c), loanID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (h *Handler) listLoans(c *gin.Context) {
	var f services.LoanFilter
	if status := c.Query("status"); status != "" {
		f.Status = models.LoanStatus(status)
		if !f.Status.Valid() {
			badRequest(c, "invalid status")
			return
		}
	}
	var ok bool
	if f.UserID, ok = parseQueryID(c, "user"); !ok {
		return
	}
	if f.BookID, ok = parseQueryID(c, "book"); !ok {
		return
	}

	loans, err := h.loans.ListLoans(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

func (h *Handler) loanStats(c *gin.Context) {
	stats, err := h.loans.RentalStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
