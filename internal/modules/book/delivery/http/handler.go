package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pkujx.cn/library/internal/modules/book/dto"
	bookService "pkujx.cn/library/internal/modules/book/service"
	"pkujx.cn/library/pkg/apperror"
	"pkujx.cn/library/pkg/response"
	"pkujx.cn/library/pkg/validator"
)

type BookHandler struct {
	bookService bookService.BookService
}

func NewBookHandler(bookService bookService.BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

func isbnParam(c *gin.Context) (string, error) {
	isbn := strings.TrimSpace(c.Param("isbn"))
	if isbn == "" {
		return "", apperror.Validation("ISBN is required")
	}
	return isbn, nil
}

func (h *BookHandler) AddBook(c *gin.Context) {
	var input dto.AddBookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	book, err := h.bookService.AddBook(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusCreated, gin.H{"message": "Book added successfully", "book": book})
}

func (h *BookHandler) EditBook(c *gin.Context) {
	isbn, err := isbnParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var input dto.EditBookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	book, changed, err := h.bookService.EditBook(c.Request.Context(), isbn, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !changed {
		response.Unchanged(c, gin.H{"book": book})
		return
	}

	response.OK(c, http.StatusOK, gin.H{"changed": true, "message": "Book updated successfully", "book": book})
}

func (h *BookHandler) DeleteBook(c *gin.Context) {
	var input dto.DeleteBookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	if err := h.bookService.DeleteBook(c.Request.Context(), input.ISBN); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Book deleted successfully")
}

func (h *BookHandler) SearchBooks(c *gin.Context) {
	var query dto.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	books, meta, err := h.bookService.Search(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, books, meta)
}

func (h *BookHandler) GetBook(c *gin.Context) {
	isbn, err := isbnParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	book, err := h.bookService.GetBook(c.Request.Context(), isbn)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"book": book})
}

func (h *BookHandler) BorrowBook(c *gin.Context) {
	var input dto.BorrowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	record, err := h.bookService.Borrow(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusCreated, gin.H{"message": "Book borrowed successfully", "record": record})
}

func (h *BookHandler) ReturnBook(c *gin.Context) {
	var input dto.ReturnInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	record, err := h.bookService.Return(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"message": "Book returned successfully", "record": record})
}

func (h *BookHandler) ManageBooks(c *gin.Context) {
	var query dto.ManageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Fail(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	data, meta, err := h.bookService.Manage(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, data, meta)
}
