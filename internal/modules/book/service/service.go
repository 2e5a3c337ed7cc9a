package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/book/dto"
	"pkujx.cn/library/internal/modules/book/repository"
	"pkujx.cn/library/pkg/apperror"
	commonDto "pkujx.cn/library/pkg/dto"
)

const (
	msgBookNotFound       = "Book not found"
	msgAvailableOverTotal = "Available copies cannot exceed total copies."
)

type BookService interface {
	AddBook(ctx context.Context, input dto.AddBookInput) (*entity.Book, error)
	EditBook(ctx context.Context, isbn string, input dto.EditBookInput) (*entity.Book, bool, error)
	DeleteBook(ctx context.Context, isbn string) error
	Search(ctx context.Context, query dto.SearchQuery) ([]entity.Book, commonDto.PaginationMeta, error)
	GetBook(ctx context.Context, isbn string) (*entity.Book, error)
	Borrow(ctx context.Context, input dto.BorrowInput) (*entity.BorrowRecord, error)
	Return(ctx context.Context, input dto.ReturnInput) (*entity.BorrowRecord, error)
	Manage(ctx context.Context, query dto.ManageQuery) (any, commonDto.PaginationMeta, error)
}

type bookService struct {
	repo         repository.BookRepository
	borrowPeriod time.Duration
	now          func() time.Time
}

func NewBookService(repo repository.BookRepository, borrowPeriod time.Duration) BookService {
	return &bookService{repo: repo, borrowPeriod: borrowPeriod, now: time.Now}
}

func (s *bookService) AddBook(ctx context.Context, input dto.AddBookInput) (*entity.Book, error) {
	isbn := strings.TrimSpace(input.ISBN)
	title := strings.TrimSpace(input.Title)
	author := strings.TrimSpace(input.Author)
	if isbn == "" || title == "" || author == "" {
		return nil, apperror.Validation("ISBN, title and author are required")
	}

	total := 1
	if input.TotalCopies != nil {
		total = *input.TotalCopies
	}
	if total < 1 {
		return nil, apperror.Validation("Total copies must be at least 1")
	}

	available := total
	if input.AvailableCopies != nil {
		available = *input.AvailableCopies
	}
	if available < 0 {
		return nil, apperror.Validation("Available copies cannot be negative")
	}
	if available > total {
		return nil, apperror.Validation(msgAvailableOverTotal)
	}

	if input.PublicationDate != "" {
		if _, err := time.Parse("2006-01-02", input.PublicationDate); err != nil {
			return nil, apperror.Validation("Publication date must be formatted as YYYY-MM-DD")
		}
	}

	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = "available"
	}

	book := &entity.Book{
		ISBN:            isbn,
		Title:           title,
		Author:          author,
		Publisher:       strings.TrimSpace(input.Publisher),
		PublicationDate: input.PublicationDate,
		CategoryID:      input.CategoryID,
		TotalCopies:     total,
		AvailableCopies: available,
		Status:          status,
	}
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, apperror.FromDB(err, msgBookNotFound, "A book with this ISBN already exists")
	}
	return book, nil
}

func (s *bookService) EditBook(ctx context.Context, isbn string, input dto.EditBookInput) (*entity.Book, bool, error) {
	if input.TotalCopies != nil && *input.TotalCopies < 0 {
		return nil, false, apperror.Validation("Total copies cannot be negative")
	}
	if input.AvailableCopies != nil && *input.AvailableCopies < 0 {
		return nil, false, apperror.Validation("Available copies cannot be negative")
	}
	if input.PublicationDate != nil && *input.PublicationDate != "" {
		if _, err := time.Parse("2006-01-02", *input.PublicationDate); err != nil {
			return nil, false, apperror.Validation("Publication date must be formatted as YYYY-MM-DD")
		}
	}

	book, changed, err := s.repo.Edit(ctx, isbn, func(current *entity.Book) (map[string]any, error) {
		updates := make(map[string]any)

		setString := func(column string, value *string, stored string) {
			if value == nil {
				return
			}
			if v := strings.TrimSpace(*value); v != stored {
				updates[column] = v
			}
		}
		setString("title", input.Title, current.Title)
		setString("author", input.Author, current.Author)
		setString("publisher", input.Publisher, current.Publisher)
		setString("publication_date", input.PublicationDate, current.PublicationDate)
		setString("status", input.Status, current.Status)

		if input.CategoryID != nil && (current.CategoryID == nil || *current.CategoryID != *input.CategoryID) {
			updates["category_id"] = *input.CategoryID
		}

		total := current.TotalCopies
		if input.TotalCopies != nil {
			total = *input.TotalCopies
		}
		available := current.AvailableCopies
		if input.AvailableCopies != nil {
			available = *input.AvailableCopies
		}
		if available > total {
			return nil, apperror.Validation(msgAvailableOverTotal)
		}

		if total != current.TotalCopies {
			updates["total_copies"] = total
		}
		if available != current.AvailableCopies {
			updates["available_copies"] = available
		}
		return updates, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, false, apperror.NotFound(msgBookNotFound)
		}
		return nil, false, apperror.FromDB(err, msgBookNotFound, "Book update conflicts with existing data")
	}
	return book, changed, nil
}

func (s *bookService) DeleteBook(ctx context.Context, isbn string) error {
	isbn = strings.TrimSpace(isbn)
	if _, err := s.repo.FindByISBN(ctx, isbn); err != nil {
		return apperror.FromDB(err, msgBookNotFound, "")
	}

	if err := s.repo.Delete(ctx, isbn); err != nil {
		switch {
		case errors.Is(err, repository.ErrBookHasOpenBorrow):
			return apperror.Conflict("Cannot delete book: it is currently borrowed")
		case errors.Is(err, repository.ErrBookNotFound):
			return apperror.NotFound(msgBookNotFound)
		default:
			return apperror.Internal(err)
		}
	}
	return nil
}

func (s *bookService) Search(ctx context.Context, query dto.SearchQuery) ([]entity.Book, commonDto.PaginationMeta, error) {
	page := query.PageQuery
	page.Normalize()

	books, total, err := s.repo.Search(ctx, repository.BookFilter{
		Query:      query.Query,
		CategoryID: query.CategoryID,
		Offset:     page.Offset(),
		Limit:      page.Limit,
	})
	if err != nil {
		return nil, commonDto.PaginationMeta{}, apperror.Internal(err)
	}
	return books, commonDto.NewPaginationMeta(page, total), nil
}

func (s *bookService) GetBook(ctx context.Context, isbn string) (*entity.Book, error) {
	book, err := s.repo.FindByISBN(ctx, isbn)
	if err != nil {
		return nil, apperror.FromDB(err, msgBookNotFound, "")
	}
	return book, nil
}

// ParseDueDate accepts RFC 3339 timestamps or plain dates. A plain date means
// the end of that day in UTC.
func ParseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(24*time.Hour - time.Second), nil
}

func (s *bookService) Borrow(ctx context.Context, input dto.BorrowInput) (*entity.BorrowRecord, error) {
	now := s.now()

	due := now.Add(s.borrowPeriod)
	if input.DueDate != "" {
		parsed, err := ParseDueDate(input.DueDate)
		if err != nil {
			return nil, apperror.Validation("Due date must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		if !parsed.After(now) {
			return nil, apperror.Validation("Due date must be in the future")
		}
		due = parsed
	}

	record := &entity.BorrowRecord{
		ISBN:       strings.TrimSpace(input.ISBN),
		UserID:     input.UserID,
		BorrowDate: now,
		DueDate:    due,
	}
	if err := s.repo.Borrow(ctx, record); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, apperror.NotFound("User not found")
		case errors.Is(err, repository.ErrBookNotFound):
			return nil, apperror.NotFound(msgBookNotFound)
		case errors.Is(err, repository.ErrAlreadyBorrowed):
			return nil, apperror.Conflict("User has already borrowed this book")
		case errors.Is(err, repository.ErrNoCopiesAvailable):
			return nil, apperror.Conflict("No available copies of this book")
		default:
			return nil, apperror.Internal(err)
		}
	}
	return record, nil
}

func (s *bookService) Return(ctx context.Context, input dto.ReturnInput) (*entity.BorrowRecord, error) {
	record, err := s.repo.Return(ctx, strings.TrimSpace(input.ISBN), input.UserID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNoOpenBorrow) {
			return nil, apperror.NotFound("No active borrow record found for this user and book")
		}
		return nil, apperror.Internal(err)
	}
	return record, nil
}

func (s *bookService) Manage(ctx context.Context, query dto.ManageQuery) (any, commonDto.PaginationMeta, error) {
	page := query.PageQuery
	page.Normalize()

	switch query.Action {
	case dto.ActionBorrowedRecords:
		rows, total, err := s.repo.ListOpenBorrows(ctx, nil, page.Offset(), page.Limit)
		if err != nil {
			return nil, commonDto.PaginationMeta{}, apperror.Internal(err)
		}
		return rows, commonDto.NewPaginationMeta(page, total), nil

	case dto.ActionOverdue:
		now := s.now()
		rows, total, err := s.repo.ListOpenBorrows(ctx, &now, page.Offset(), page.Limit)
		if err != nil {
			return nil, commonDto.PaginationMeta{}, apperror.Internal(err)
		}
		for i := range rows {
			rows[i].DaysOverdue = DaysOverdue(rows[i].DueDate, now)
		}
		return rows, commonDto.NewPaginationMeta(page, total), nil

	case dto.ActionBookStatus:
		rows, total, err := s.repo.ListBookStatus(ctx, page.Offset(), page.Limit)
		if err != nil {
			return nil, commonDto.PaginationMeta{}, apperror.Internal(err)
		}
		return rows, commonDto.NewPaginationMeta(page, total), nil

	default:
		return nil, commonDto.PaginationMeta{}, apperror.Validation("Invalid action: must be one of borrowed_records, overdue, book_status")
	}
}

// DaysOverdue counts whole days past due, at least 1 once due has passed.
func DaysOverdue(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	if days := int(now.Sub(due).Hours() / 24); days > 1 {
		return days
	}
	return 1
}
