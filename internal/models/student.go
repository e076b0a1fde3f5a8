package models

// Student is a learner enrolled in the program. ParentID and TeacherID are
// advisory references; the warehouse does not enforce them.
type Student struct {
	StudentID   string `db:"student_id" json:"student_id"`
	FirstName   Text   `db:"first_name" json:"first_name" validate:"omitempty,max=100"`
	LastName    Text   `db:"last_name" json:"last_name" validate:"omitempty,max=100"`
	DateOfBirth Date   `db:"date_of_birth" json:"date_of_birth"`
	Gender      Text   `db:"gender" json:"gender" validate:"omitempty,max=20"`
	Address     Text   `db:"address" json:"address"`
	ParentID    Text   `db:"parent_id" json:"parent_id"`
	TeacherID   Text   `db:"teacher_id" json:"teacher_id"`
}

func (s *Student) Key() string       { return s.StudentID }
func (s *Student) SetKey(key string) { s.StudentID = key }
