package entity

// Session is a server-issued login. Expiry is an absolute wall-clock instant in
// milliseconds since the Unix epoch; rows past it are inert.
type Session struct {
	ID        string `gorm:"primaryKey;size:64" json:"id"`
	UserID    uint   `gorm:"index;not null" json:"user_id"`
	Email     string `gorm:"size:100;not null" json:"email"`
	Username  string `gorm:"size:50;not null" json:"username"`
	Role      string `gorm:"size:20;not null" json:"role"`
	Expiry    int64  `gorm:"index;not null" json:"expiry"`
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"`
}
