package models

// Assessment is one scored evaluation of a student.
type Assessment struct {
	AssessmentID    string  `db:"assessment_id" json:"assessment_id"`
	StudentID       Text    `db:"student_id" json:"student_id"`
	AssessmentName  Text    `db:"assessment_name" json:"assessment_name" validate:"omitempty,max=200"`
	AssessmentDate  Date    `db:"assessment_date" json:"assessment_date"`
	AssessmentScore Decimal `db:"assessment_score" json:"assessment_score" validate:"omitempty,gte=0"`
	AssessmentNotes Text    `db:"assessment_notes" json:"assessment_notes"`
}

func (a *Assessment) Key() string       { return a.AssessmentID }
func (a *Assessment) SetKey(key string) { a.AssessmentID = key }
