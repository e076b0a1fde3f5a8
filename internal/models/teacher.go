package models

// Teacher is a member of staff, optionally linked to the class they lead.
type Teacher struct {
	TeacherID   string `db:"teacher_id" json:"teacher_id"`
	Name        Text   `db:"name" json:"name" validate:"omitempty,max=200"`
	Email       Text   `db:"email" json:"email" validate:"omitempty,email"`
	PhoneNumber Text   `db:"phone_number" json:"phone_number" validate:"omitempty,max=40"`
	ClassID     Text   `db:"class_id" json:"class_id"`
}

func (t *Teacher) Key() string       { return t.TeacherID }
func (t *Teacher) SetKey(key string) { t.TeacherID = key }
