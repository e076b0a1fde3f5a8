package models

// Parent is a guardian contact.
type Parent struct {
	ParentID    string `db:"parent_id" json:"parent_id"`
	Name        Text   `db:"name" json:"name" validate:"omitempty,max=200"`
	PhoneNumber Text   `db:"phone_number" json:"phone_number" validate:"omitempty,max=40"`
	Email       Text   `db:"email" json:"email" validate:"omitempty,email"`
	Address     Text   `db:"address" json:"address"`
}

func (p *Parent) Key() string       { return p.ParentID }
func (p *Parent) SetKey(key string) { p.ParentID = key }
