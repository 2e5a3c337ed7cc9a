package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/book/dto"
	"pkujx.cn/library/pkg/database"
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrAlreadyBorrowed   = errors.New("user already borrowed this book")
	ErrNoCopiesAvailable = errors.New("no copies available")
	ErrNoOpenBorrow      = errors.New("no open borrow record")
	ErrBookHasOpenBorrow = errors.New("book has unreturned copies")
)

// EditFunc receives the locked row and returns the columns to write.
type EditFunc func(book *entity.Book) (map[string]any, error)

type BookFilter struct {
	Query      string
	CategoryID *uint
	Offset     int
	Limit      int
}

type BookRepository interface {
	Create(ctx context.Context, book *entity.Book) error
	FindByISBN(ctx context.Context, isbn string) (*entity.Book, error)
	Search(ctx context.Context, filter BookFilter) ([]entity.Book, int64, error)
	// Edit reports whether any column was written.
	Edit(ctx context.Context, isbn string, fn EditFunc) (*entity.Book, bool, error)
	Delete(ctx context.Context, isbn string) error
	Borrow(ctx context.Context, record *entity.BorrowRecord) error
	Return(ctx context.Context, isbn string, userID uint, at time.Time) (*entity.BorrowRecord, error)
	ListOpenBorrows(ctx context.Context, dueBefore *time.Time, offset, limit int) ([]dto.BorrowedRecordRow, int64, error)
	ListBookStatus(ctx context.Context, offset, limit int) ([]dto.BookStatusRow, int64, error)
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, book *entity.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

func (r *bookRepository) FindByISBN(ctx context.Context, isbn string) (*entity.Book, error) {
	var book entity.Book
	if err := r.db.WithContext(ctx).Where("isbn = ?", isbn).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) Search(ctx context.Context, filter BookFilter) ([]entity.Book, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Book{})

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(isbn) LIKE ? OR LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(publisher) LIKE ?",
			like, like, like, like,
		)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	books := make([]entity.Book, 0)
	if err := query.Order("title ASC").Offset(filter.Offset).Limit(filter.Limit).Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *bookRepository) Edit(ctx context.Context, isbn string, fn EditFunc) (*entity.Book, bool, error) {
	var book entity.Book
	changed := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.ForUpdate(tx).Where("isbn = ?", isbn).First(&book).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		updates, err := fn(&book)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}

		updates["updated_at"] = time.Now()
		if err := tx.Model(&entity.Book{}).Where("isbn = ?", isbn).Updates(updates).Error; err != nil {
			return err
		}
		changed = true
		return tx.Where("isbn = ?", isbn).First(&book).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &book, changed, nil
}

func (r *bookRepository) Delete(ctx context.Context, isbn string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&entity.BorrowRecord{}).
			Where("isbn = ? AND returned = ?", isbn, false).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrBookHasOpenBorrow
		}

		if err := tx.Where("isbn = ?", isbn).Delete(&entity.BorrowRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.BlogPost{}).Where("book_isbn = ?", isbn).
			Updates(map[string]any{"book_isbn": nil, "book_title": nil}).Error; err != nil {
			return err
		}

		res := tx.Where("isbn = ?", isbn).Delete(&entity.Book{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBookNotFound
		}
		return nil
	})
}

func (r *bookRepository) Borrow(ctx context.Context, record *entity.BorrowRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users int64
		if err := tx.Model(&entity.User{}).Where("id = ?", record.UserID).Count(&users).Error; err != nil {
			return err
		}
		if users == 0 {
			return ErrUserNotFound
		}

		var books int64
		if err := tx.Model(&entity.Book{}).Where("isbn = ?", record.ISBN).Count(&books).Error; err != nil {
			return err
		}
		if books == 0 {
			return ErrBookNotFound
		}

		var open int64
		if err := tx.Model(&entity.BorrowRecord{}).
			Where("isbn = ? AND user_id = ? AND returned = ?", record.ISBN, record.UserID, false).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrAlreadyBorrowed
		}

		res := tx.Model(&entity.Book{}).
			Where("isbn = ? AND available_copies > 0", record.ISBN).
			Updates(map[string]any{
				"available_copies": gorm.Expr("available_copies - 1"),
				"updated_at":       time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoCopiesAvailable
		}

		record.Returned = false
		return tx.Create(record).Error
	})
}

func (r *bookRepository) Return(ctx context.Context, isbn string, userID uint, at time.Time) (*entity.BorrowRecord, error) {
	var record entity.BorrowRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var records []entity.BorrowRecord
		if err := database.ForUpdate(tx).
			Where("isbn = ? AND user_id = ? AND returned = ?", isbn, userID, false).
			Order("borrow_date ASC").
			Limit(1).
			Find(&records).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return ErrNoOpenBorrow
		}
		record = records[0]

		res := tx.Model(&entity.BorrowRecord{}).
			Where("id = ? AND returned = ?", record.ID, false).
			Updates(map[string]any{"returned": true, "return_date": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoOpenBorrow
		}
		record.Returned = true
		record.ReturnDate = &at

		return tx.Model(&entity.Book{}).
			Where("isbn = ? AND available_copies < total_copies", isbn).
			Updates(map[string]any{
				"available_copies": gorm.Expr("available_copies + 1"),
				"updated_at":       time.Now(),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *bookRepository) ListOpenBorrows(ctx context.Context, dueBefore *time.Time, offset, limit int) ([]dto.BorrowedRecordRow, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Table("borrow_records AS br").Where("br.returned = ?", false)
		if dueBefore != nil {
			q = q.Where("br.due_date < ?", *dueBefore)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := make([]dto.BorrowedRecordRow, 0)
	err := base().
		Select("br.id, br.isbn, COALESCE(b.title, '') AS title, br.user_id, " +
			"COALESCE(u.username, '') AS username, COALESCE(u.email, '') AS email, br.borrow_date, br.due_date").
		Joins("LEFT JOIN books b ON b.isbn = br.isbn").
		Joins("LEFT JOIN users u ON u.id = br.user_id").
		Order("br.due_date ASC").
		Offset(offset).Limit(limit).
		Scan(&rows).Error
	return rows, total, err
}

func (r *bookRepository) ListBookStatus(ctx context.Context, offset, limit int) ([]dto.BookStatusRow, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := make([]dto.BookStatusRow, 0)
	err := r.db.WithContext(ctx).Model(&entity.Book{}).
		Select("isbn, title, author, COALESCE(status, '') AS status, total_copies, available_copies, " +
			"total_copies - available_copies AS borrowed").
		Order("title ASC").
		Offset(offset).Limit(limit).
		Scan(&rows).Error
	return rows, total, err
}
