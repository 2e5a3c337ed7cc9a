package dto

type Dashboard struct {
	Users struct {
		Total  int64            `json:"total"`
		ByRole map[string]int64 `json:"by_role"`
	} `json:"users"`
	Books struct {
		Titles          int64 `json:"titles"`
		TotalCopies     int64 `json:"total_copies"`
		AvailableCopies int64 `json:"available_copies"`
	} `json:"books"`
	Borrows struct {
		Open    int64 `json:"open"`
		Overdue int64 `json:"overdue"`
	} `json:"borrows"`
	Blog struct {
		PostsByStatus map[string]int64 `json:"posts_by_status"`
		Topics        int64            `json:"topics"`
		Likes         int64            `json:"likes"`
	} `json:"blog"`
}

type TopBorrowersQuery struct {
	Days  int `form:"days" binding:"omitempty,min=1,max=365"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

type TopBorrower struct {
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	BorrowCount int64  `json:"borrow_count"`
}
