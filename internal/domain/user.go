package domain

// User is an editorial user account. Only the fields the revisions view
// displays are modelled here.
type User struct {
	ID          uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Username    string `gorm:"column:username;type:varchar(60);uniqueIndex" json:"username"`
	DisplayName string `gorm:"column:display_name;type:varchar(250)" json:"display_name"`
	Level       int    `gorm:"column:level" json:"level"`
}

// TableName returns the table name for User
func (User) TableName() string { return "users" }
