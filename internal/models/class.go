package models

// Class is a teaching group. GradeLevel is stored as text.
type Class struct {
	ClassID    string `db:"class_id" json:"class_id"`
	ClassName  Text   `db:"class_name" json:"class_name" validate:"omitempty,max=200"`
	GradeLevel Text   `db:"grade_level" json:"grade_level" validate:"omitempty,max=20"`
	TeacherID  Text   `db:"teacher_id" json:"teacher_id"`
	RoomNumber Text   `db:"room_number" json:"room_number"`
	Schedule   Text   `db:"schedule" json:"schedule"`
}

func (c *Class) Key() string       { return c.ClassID }
func (c *Class) SetKey(key string) { c.ClassID = key }
