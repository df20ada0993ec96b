package lending

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

	// 1. 貸出・返却
	r.POST("/books/:id/borrow", auth.Then(g.Authenticated, h.BorrowBook)...)
	r.POST("/books/:id/return", auth.Then(g.Authenticated, h.ReturnBook)...)

	// 2. 貸出記録
	r.GET("/borrowed_books", auth.Then(g.Authenticated, h.ListBorrowedBooks)...)
	r.GET("/borrowed_books/summary_db", auth.Then(g.ViewAllLoans, h.GetBorrowSummary)...)
	r.GET("/borrowed_books/:borrow_ulid", auth.Then(g.Authenticated, h.GetBorrowRecord)...)
}

// ---------- helpers ----------

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

// user_id はクエリで指定。省略時はトークンの本人
func (h *Handler) actingUser(c *gin.Context) (int64, bool) {
	p, authed := auth.PrincipalFrom(c)

	v := c.Query("user_id")
	if v == "" {
		if !authed {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "user_id is required"))
			return 0, false
		}
		return p.UserID, true
	}

	userID, ok := parseID(v)
	if !ok {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid user_id"))
		return 0, false
	}
	if authed && !auth.CanActFor(p, userID) {
		c.JSON(http.StatusForbidden, apierr.Body(apierr.CodeForbidden, "cannot act for another user"))
		return 0, false
	}
	return userID, true
}

// ---------- handlers ----------

// BorrowBook godoc
// @Summary   Borrow one copy of a book
// @Tags      lending
// @Produce   json
// @Param     id       path  int true  "book id"
// @Param     user_id  query int false "defaults to the caller"
// @Success   201 {object} BorrowRecordResponse
// @Failure   400 {object} apierr.errorDTO
// @Failure   404 {object} apierr.errorDTO
// @Failure   409 {object} apierr.errorDTO
// @Security  BearerAuth
// @Router    /books/{id}/borrow [post]
func (h *Handler) BorrowBook(c *gin.Context) {
	bookID, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid book id"))
		return
	}
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}

	res, err := h.svc.BorrowBook(c.Request.Context(), bookID, userID)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.Header("Location", "/borrowed_books/"+res.BorrowULID)
	c.JSON(http.StatusCreated, res)
}

// ReturnBook godoc
// @Summary   Return a borrowed book
// @Tags      lending
// @Produce   json
// @Param     id       path  int true  "book id"
// @Param     user_id  query int false "defaults to the caller"
// @Success   200 {object} BorrowRecordResponse
// @Failure   400 {object} apierr.errorDTO
// @Failure   404 {object} apierr.errorDTO
// @Failure   409 {object} apierr.errorDTO
// @Security  BearerAuth
// @Router    /books/{id}/return [post]
func (h *Handler) ReturnBook(c *gin.Context) {
	bookID, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid book id"))
		return
	}
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}

	res, err := h.svc.ReturnBook(c.Request.Context(), bookID, userID)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListBorrowedBooks godoc
// @Summary   List borrow records
// @Tags      lending
// @Produce   json
// @Param     user_id  query int  false "user id"
// @Param     book_id  query int  false "book id"
// @Param     active   query bool false "only active (or returned) records"
// @Success   200 {array}  BorrowRecordResponse
// @Failure   400 {object} apierr.errorDTO
// @Security  BearerAuth
// @Router    /borrowed_books [get]
func (h *Handler) ListBorrowedBooks(c *gin.Context) {
	var f BorrowFilter
	if v := c.Query("user_id"); v != "" {
		id, ok := parseID(v)
		if !ok {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid user_id"))
			return
		}
		f.UserID = &id
	}
	if v := c.Query("book_id"); v != "" {
		id, ok := parseID(v)
		if !ok {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid book_id"))
			return
		}
		f.BookID = &id
	}
	if v := c.Query("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "active must be true or false"))
			return
		}
		f.Active = &b
	}

	// admin 以外は自分の記録だけ
	if p, ok := auth.PrincipalFrom(c); ok && !auth.CanViewAllLoans(p.Role) {
		if f.UserID != nil && *f.UserID != p.UserID {
			c.JSON(http.StatusForbidden, apierr.Body(apierr.CodeForbidden, "cannot view another user's loans"))
			return
		}
		f.UserID = &p.UserID
	}

	res, err := h.svc.ListBorrowedBooks(c.Request.Context(), f)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetBorrowRecord godoc
// @Summary   Get a borrow record
// @Tags      lending
// @Produce   json
// @Param     borrow_ulid path string true "borrow ULID"
// @Success   200 {object} BorrowRecordResponse
// @Failure   404 {object} apierr.errorDTO
// @Security  BearerAuth
// @Router    /borrowed_books/{borrow_ulid} [get]
func (h *Handler) GetBorrowRecord(c *gin.Context) {
	res, err := h.svc.GetBorrowRecord(c.Request.Context(), c.Param("borrow_ulid"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	if p, ok := auth.PrincipalFrom(c); ok && !auth.CanActFor(p, res.UserID) {
		c.JSON(http.StatusForbidden, apierr.Body(apierr.CodeForbidden, "cannot view another user's loans"))
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetBorrowSummary godoc
// @Summary   Borrow counts per user
// @Tags      lending
// @Produce   json
// @Success   200 {array} SummaryResponse
// @Security  BearerAuth
// @Router    /borrowed_books/summary_db [get]
func (h *Handler) GetBorrowSummary(c *gin.Context) {
	res, err := h.svc.GetBorrowSummary(c.Request.Context())
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
