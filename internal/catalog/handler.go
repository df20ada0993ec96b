package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service, g auth.Guards) {
	h := &Handler{svc: svc}

	// 一覧・詳細は誰でも見られる
	r.GET("/books", h.ListBooks)
	r.GET("/books/:id", h.GetBook)

	// 登録は在庫管理権限
	r.POST("/books", auth.Then(g.ManageInventory, h.AddBook)...)
	r.POST("/books/bulk", auth.Then(g.ManageInventory, h.AddBooksBulk)...)
}

// ListBooks godoc
// @Summary  List books
// @Tags     books
// @Produce  json
// @Param    category   query string false "category"
// @Param    author     query string false "author"
// @Param    available  query bool   false "only books with (or without) copies left"
// @Success  200 {array}  BookResponse
// @Failure  400 {object} apierr.errorDTO
// @Router   /books [get]
func (h *Handler) ListBooks(c *gin.Context) {
	var f BookFilter
	if v := c.Query("category"); v != "" {
		f.Category = &v
	}
	if v := c.Query("author"); v != "" {
		f.Author = &v
	}
	if v := c.Query("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "available must be true or false"))
			return
		}
		f.Available = &b
	}

	res, err := h.svc.ListBooks(c.Request.Context(), f)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetBook godoc
// @Summary  Get a book
// @Tags     books
// @Produce  json
// @Param    id  path int true "book id"
// @Success  200 {object} BookResponse
// @Failure  404 {object} apierr.errorDTO
// @Router   /books/{id} [get]
func (h *Handler) GetBook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid book id"))
		return
	}

	res, err := h.svc.GetBook(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// AddBook godoc
// @Summary   Add a book
// @Tags      books
// @Accept    json
// @Produce   json
// @Param     book body CreateBookRequest true "book"
// @Success   201 {object} BookResponse
// @Failure   400 {object} apierr.errorDTO
// @Failure   403 {object} apierr.errorDTO
// @Security  BearerAuth
// @Router    /books [post]
func (h *Handler) AddBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.AddBook(c.Request.Context(), req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.Header("Location", "/books/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

// AddBooksBulk godoc
// @Summary   Add books in one all-or-nothing batch
// @Tags      books
// @Accept    json
// @Produce   json
// @Param     books body BulkCreateBooksRequest true "books"
// @Success   201 {array}  BookResponse
// @Failure   400 {object} apierr.errorDTO
// @Security  BearerAuth
// @Router    /books/bulk [post]
func (h *Handler) AddBooksBulk(c *gin.Context) {
	var req BulkCreateBooksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}

	res, err := h.svc.AddBooksBulk(c.Request.Context(), req.Books)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}
