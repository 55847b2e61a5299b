package entity

import "time"

// Audit carries the creation and last-modification stamps shared by
// users and addresses. The application layer stamps them at write time.
type Audit struct {
	CreatedDate      time.Time `json:"createdDate"`
	CreatedBy        string    `json:"createdBy,omitempty" binding:"omitempty,max=50"`
	LastModifiedDate time.Time `json:"lastModifiedDate"`
	LastModifiedBy   string    `json:"lastModifiedBy,omitempty" binding:"omitempty,max=50"`
}

// StampCreated sets both the creation and modification stamps.
func (a *Audit) StampCreated(actor string, at time.Time) {
	a.CreatedDate = at
	a.CreatedBy = actor
	a.StampModified(actor, at)
}

// StampModified sets the last-modification stamps.
func (a *Audit) StampModified(actor string, at time.Time) {
	a.LastModifiedDate = at
	a.LastModifiedBy = actor
}

// User is associated with any number of addresses and owns its notes.
type User struct {
	ID         int    `json:"id"`
	FirstName  string `json:"firstName" binding:"required,min=2,max=50"`
	MiddleName string `json:"middleName,omitempty" binding:"omitempty,min=1,max=50"`
	LastName   string `json:"lastName" binding:"required,min=2,max=50"`
	Email      string `json:"email,omitempty" binding:"omitempty,min=3,max=150"`
	Phone      string `json:"phone,omitempty" binding:"omitempty,min=7,max=20"`
	Audit

	Addresses []Address  `json:"addresses,omitempty" binding:"-"`
	Notes     []UserNote `json:"notes,omitempty" binding:"-"`
}

// UserNote is a free-text note owned by a user.
type UserNote struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Note   string `json:"note" binding:"required,max=1024"`
}
