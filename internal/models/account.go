package models

// Account represents a registered account in the database. An account owns
// exactly one portfolio; deleting the account deletes the portfolio and its
// holdings with it.
type Account struct {
	Base
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	Portfolio *Portfolio `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"portfolio,omitempty"`
}
