package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2012, 3, 4, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2012-03-04", "2012/3/4", "03/04/2012", "3/4/2012", "03-04-12", "2012-03-04 10:11:12", "2012-03-04T00:00:00Z", "4 Mar 2012", "20120304", "40972"} {
		got, ok := ParseDate(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	day := time.Date(2015, 3, 14, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"14/03/2015", "14/3/2015", "14-Mar-15", "14-Mar-2015", "3/14/2015"} {
		got, ok := ParseDate(in)
		require.True(t, ok, in)
		assert.Equal(t, day, got, in)
	}

	for _, in := range []string{"", "13/40/2020", "not a date", "2020-02-30"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, in)
	}
}

func TestNumberText(t *testing.T) {
	cases := map[string]string{
		"5.0":         "5",
		"8.0012345E9": "8001234500",
		"0123":        "0123",
		"555-1234":    "555-1234",
		"5.5":         "5.5",
		" 7 ":         "7",
	}
	for in, want := range cases {
		assert.Equal(t, want, NumberText(in), in)
	}
}

func TestStudentJSONRoundTrip(t *testing.T) {
	var s Student
	require.NoError(t, json.Unmarshal([]byte(`{"student_id":"S001","first_name":"O'Brien","date_of_birth":"2012-03-04","gender":null,"address":""}`), &s))

	assert.Equal(t, "S001", s.Key())
	assert.Equal(t, NewText("O'Brien"), s.FirstName)
	assert.Equal(t, "2012-03-04", s.DateOfBirth.String())
	assert.False(t, s.Gender.Valid)
	assert.Equal(t, NewText(""), s.Address)
	assert.False(t, s.TeacherID.Valid)

	out, err := json.Marshal(&s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"student_id":"S001","first_name":"O'Brien","last_name":null,"date_of_birth":"2012-03-04","gender":null,"address":"","parent_id":null,"teacher_id":null}`, string(out))
}

func TestTextAcceptsNumbers(t *testing.T) {
	var p Parent
	require.NoError(t, json.Unmarshal([]byte(`{"phone_number": 5551234.0}`), &p))
	assert.Equal(t, NewText("5551234"), p.PhoneNumber)
}

func TestDecimalAcceptsStrings(t *testing.T) {
	var a Assessment
	require.NoError(t, json.Unmarshal([]byte(`{"assessment_score":"87.5","assessment_date":""}`), &a))
	assert.Equal(t, NewDecimal(87.5), a.AssessmentScore)
	assert.False(t, a.AssessmentDate.Valid)

	assert.Error(t, json.Unmarshal([]byte(`{"assessment_score":"high"}`), &a))
}

func TestDateRejectsGarbage(t *testing.T) {
	var s Student
	assert.Error(t, json.Unmarshal([]byte(`{"date_of_birth":"13/40/2020"}`), &s))
}

func TestScanAndValue(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2012, 3, 4, 15, 0, 0, 0, time.UTC)))
	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2012-03-04", v)

	var n Decimal
	require.NoError(t, n.Scan([]byte("91.25")))
	assert.Equal(t, 91.25, n.Float64)

	var txt Text
	require.NoError(t, txt.Scan(nil))
	v, err = txt.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRegisteredValidators(t *testing.T) {
	validate := validator.New()
	RegisterValidators(validate)

	assert.NoError(t, validate.Struct(&Parent{Email: NewText("dana@example.com")}))
	assert.NoError(t, validate.Struct(&Parent{}))
	assert.Error(t, validate.Struct(&Parent{Email: NewText("not-an-email")}))
	assert.Error(t, validate.Struct(&Assessment{AssessmentScore: NewDecimal(-1)}))
}
