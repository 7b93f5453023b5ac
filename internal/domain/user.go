// internal/domain/user.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"talos-store/internal/util"
)

// UserTable is the table users are stored in. "user" is reserved in
// PostgreSQL, so the plural is used on every driver.
const UserTable = "users"

// User represents a registered user.
type User struct {
	ID         string     `db:"id" json:"id"`               // UUID string, primary key
	UserName   string     `db:"user_name" json:"user_name"` // Unique user name
	Password   string     `db:"password" json:"-"`          // bcrypt hash, never sent to clients
	Sex        string     `db:"sex" json:"sex"`
	Age        uint32     `db:"age" json:"age"`
	Phone      string     `db:"phone" json:"phone"`
	Email      string     `db:"email" json:"email"`
	CreateTime time.Time  `db:"create_time" json:"create_time"`           // Timestamp of creation
	UpdateTime *time.Time `db:"update_time" json:"update_time,omitempty"` // nil until the first update
}

// TableName binds User to its table.
func (User) TableName() string { return UserTable }

// Registration is the payload accepted when a user signs up.
type Registration struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
	Sex      string `json:"sex"`
	Age      uint32 `json:"age"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

// Profile carries the user-editable fields of an update.
type Profile struct {
	Sex   string `json:"sex"`
	Age   uint32 `json:"age"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Now returns the current UTC time truncated to whole seconds, the precision
// the store keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// NewUserFromRegistration validates req and builds a new User with a fresh ID.
// The password is copied as given; hashing is the caller's concern.
func NewUserFromRegistration(req Registration) (*User, error) {
	name := strings.TrimSpace(req.UserName)
	if name == "" {
		return nil, fmt.Errorf("%w: user name is required", util.ErrInvalidInput)
	}
	if req.Password == "" {
		return nil, fmt.Errorf("%w: password is required", util.ErrInvalidInput)
	}
	return &User{
		ID:         uuid.NewString(),
		UserName:   name,
		Password:   req.Password,
		Sex:        req.Sex,
		Age:        req.Age,
		Phone:      req.Phone,
		Email:      req.Email,
		CreateTime: Now(),
	}, nil
}

// ApplyProfile overwrites the editable fields and stamps the update time.
func (u *User) ApplyProfile(p Profile) {
	u.Sex = p.Sex
	u.Age = p.Age
	u.Phone = p.Phone
	u.Email = p.Email
	u.Touch()
}

// Touch records now as the last update time.
func (u *User) Touch() {
	now := Now()
	u.UpdateTime = &now
}
