package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"libhub/internal/auth"
	"libhub/internal/models"
	"libhub/internal/registry"
	"libhub/internal/services"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Catalog  services.CatalogService
	Accounts services.AccountService
	Loans    services.LoanService
	Export   services.ExportService
	Registry *registry.Registry
	Tokens   *auth.TokenIssuer

	LoginRatePerSecond float64
	LoginRateBurst     int
}

type Handler struct {
	catalog  services.CatalogService
	accounts services.AccountService
	loans    services.LoanService
	export   services.ExportService
	registry *registry.Registry
	tokens   *auth.TokenIssuer
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := &Handler{
		catalog:  d.Catalog,
		accounts: d.Accounts,
		loans:    d.Loans,
		export:   d.Export,
		registry: d.Registry,
		tokens:   d.Tokens,
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", h.authenticate)
	staff := api.Group("", requireStaff)

	// Account endpoints
	api.POST("/auth/register", h.register)
	api.POST("/auth/login", rateLimit(d.LoginRatePerSecond, d.LoginRateBurst), h.login)
	api.GET("/me", requireAuth, h.me)
	staff.GET("/users", h.listUsers)
	staff.PATCH("/users/:id/activate", h.setActive(true))
	staff.PATCH("/users/:id/deactivate", h.setActive(false))

	// Catalog endpoints
	mountCRUD(api, staff, crud[services.LanguageInput, models.Language]{
		kind:   registry.KindLanguages,
		create: h.catalog.CreateLanguage,
		update: h.catalog.UpdateLanguage,
		get:    h.catalog.GetLanguage,
		list:   listHandler(h.catalog.ListLanguages),
	})
	mountCRUD(api, staff, crud[services.PublisherInput, models.Publisher]{
		kind:   registry.KindPublishers,
		create: h.catalog.CreatePublisher,
		update: h.catalog.UpdatePublisher,
		get:    h.catalog.GetPublisher,
		list:   listHandler(h.catalog.ListPublishers),
	})
	mountCRUD(api, staff, crud[services.GenreInput, models.Genre]{
		kind:   registry.KindGenres,
		create: h.catalog.CreateGenre,
		update: h.catalog.UpdateGenre,
		get:    h.catalog.GetGenre,
		list:   listHandler(h.catalog.ListGenres),
	})
	mountCRUD(api, staff, crud[services.AuthorInput, models.Author]{
		kind:   registry.KindAuthors,
		create: h.catalog.CreateAuthor,
		update: h.catalog.UpdateAuthor,
		get:    h.catalog.GetAuthor,
		list:   listHandler(h.catalog.ListAuthors),
	})
	mountCRUD(api, staff, crud[services.BookInput, models.Book]{
		kind:   registry.KindBooks,
		create: h.catalog.CreateBook,
		update: h.catalog.UpdateBook,
		get:    h.catalog.GetBook,
		list:   h.listBooks,
	})
	for _, kind := range h.registry.DeletableKinds() {
		base := "/" + string(kind)
		staff.DELETE(base+"/:id", h.softDeleteOne(kind))
		staff.PATCH(base+"/delete-multiple", h.bulkSetDeleted(kind, true))
		staff.PATCH(base+"/restore-multiple", h.bulkSetDeleted(kind, false))
	}

	// Loan endpoints
	api.POST("/books/:id/rent", h.rentBook)
	api.POST("/loans/:id/return", h.returnLoan)
	staff.GET("/loans", h.listLoans)
	staff.GET("/loans/stats", h.loanStats)

	staff.GET("/export/:kind", h.exportCSV)
}

// ─── Generic catalog routes ───────────────────────────────────────────────────

type crud[In any, Out any] struct {
	kind   registry.Kind
	create func(context.Context, In) (*Out, error)
	update func(context.Context, uuid.UUID, In) (*Out, error)
	get    func(context.Context, uuid.UUID) (*Out, error)
	list   gin.HandlerFunc
}

func mountCRUD[In any, Out any](public, staff *gin.RouterGroup, r crud[In, Out]) {
	base := "/" + string(r.kind)
	public.GET(base, r.list)
	public.GET(base+"/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		out, err := r.get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})
	staff.POST(base, func(c *gin.Context) {
		var in In
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		out, err := r.create(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, out)
	})
	staff.PUT(base+"/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var in In
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		out, err := r.update(c.Request.Context(), id, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})
}

func listHandler[T any](list func(context.Context) ([]T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := list(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// parseQueryID reads an optional uuid query parameter.
func parseQueryID(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, "invalid "+name+" id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) listBooks(c *gin.Context) {
	var f services.BookFilter
	var ok bool
	if f.GenreID, ok = parseQueryID(c, "genre"); !ok {
		return
	}
	if f.AuthorID, ok = parseQueryID(c, "author"); !ok {
		return
	}
	if f.LanguageID, ok = parseQueryID(c, "language"); !ok {
		return
	}
	f.Title = c.Query("title")

	books, err := h.catalog.ListBooks(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// ─── Soft delete ──────────────────────────────────────────────────────────────

type idsRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

func (h *Handler) softDeleteOne(kind registry.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		n, err := h.catalog.SoftDelete(c.Request.Context(), kind, []uuid.UUID{id})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": n})
	}
}

func (h *Handler) bulkSetDeleted(kind registry.Kind, deleted bool) gin.HandlerFunc {
	apply := h.catalog.Restore
	if deleted {
		apply = h.catalog.SoftDelete
	}
	return func(c *gin.Context) {
		var req idsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		n, err := apply(c.Request.Context(), kind, req.IDs)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": n})
	}
}
