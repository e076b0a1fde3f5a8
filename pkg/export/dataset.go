package export

import (
	"fmt"
	"time"
)

// Dataset is a rectangular table ready for rendering.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// FromRecords flattens column-keyed records into a Dataset, keeping the
// order given by headers. Missing and nil values render as empty cells.
func FromRecords(title string, headers []string, records []map[string]interface{}) Dataset {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := make([]string, len(headers))
		for i, header := range headers {
			row[i] = formatCell(record[header])
		}
		rows = append(rows, row)
	}
	return Dataset{Title: title, Headers: headers, Rows: rows}
}

func formatCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (d Dataset) validate(kind string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", kind)
	}
	return nil
}
