// Package registry maps logical entity names to their warehouse tables.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/special-ed-api/internal/models"
	appErrors "github.com/noah-isme/special-ed-api/pkg/errors"
)

// Locator addresses one warehouse table.
type Locator struct {
	Namespace string `json:"namespace"`
	Table     string `json:"table"`
}

// String renders the locator as namespace.table.
func (l Locator) String() string {
	return l.Namespace + "." + l.Table
}

// Entity describes one logical entity and how its rows are keyed.
// IDPrefix starts every generated key ("S" for S001). Columns are in display
// order. DateColumns are normalised to calendar dates on upload and
// TextColumns are forced to text.
type Entity struct {
	Name        string
	Locator     Locator
	KeyColumn   string
	IDPrefix    string
	Columns     []string
	DateColumns []string
	TextColumns []string
	newRecord   func() models.Record
}

// NewRecord returns an empty typed record for the entity.
func (e Entity) NewRecord() models.Record {
	return e.newRecord()
}

// Registry is an immutable lookup of the known entities.
type Registry struct {
	entities map[string]Entity
}

const (
	Student    = "student"
	Parent     = "parent"
	Teacher    = "teacher"
	Class      = "class"
	Assessment = "assessment"
)

var defaultNamespaces = map[string]string{
	Student:    "groups",
	Parent:     "groups",
	Teacher:    "groups",
	Class:      "groups",
	Assessment: "assessment",
}

// New builds the registry. namespaces overrides the default namespace per
// entity; empty values keep the default.
func New(namespaces map[string]string) *Registry {
	namespace := func(name string) string {
		if ns := strings.TrimSpace(namespaces[name]); ns != "" {
			return ns
		}
		return defaultNamespaces[name]
	}

	entities := []Entity{
		{
			Name:        Student,
			KeyColumn:   "student_id",
			IDPrefix:    "S",
			Columns:     []string{"student_id", "first_name", "last_name", "date_of_birth", "gender", "address", "parent_id", "teacher_id"},
			DateColumns: []string{"date_of_birth"},
			newRecord:   func() models.Record { return &models.Student{} },
		},
		{
			Name:        Parent,
			KeyColumn:   "parent_id",
			IDPrefix:    "P",
			Columns:     []string{"parent_id", "name", "phone_number", "email", "address"},
			TextColumns: []string{"phone_number"},
			newRecord:   func() models.Record { return &models.Parent{} },
		},
		{
			Name:        Teacher,
			KeyColumn:   "teacher_id",
			IDPrefix:    "T",
			Columns:     []string{"teacher_id", "name", "email", "phone_number", "class_id"},
			TextColumns: []string{"phone_number"},
			newRecord:   func() models.Record { return &models.Teacher{} },
		},
		{
			Name:        Class,
			KeyColumn:   "class_id",
			IDPrefix:    "C",
			Columns:     []string{"class_id", "class_name", "grade_level", "teacher_id", "room_number", "schedule"},
			TextColumns: []string{"grade_level"},
			newRecord:   func() models.Record { return &models.Class{} },
		},
		{
			Name:        Assessment,
			KeyColumn:   "assessment_id",
			IDPrefix:    "A",
			Columns:     []string{"assessment_id", "student_id", "assessment_name", "assessment_date", "assessment_score", "assessment_notes"},
			DateColumns: []string{"assessment_date"},
			newRecord:   func() models.Record { return &models.Assessment{} },
		},
	}

	r := &Registry{entities: make(map[string]Entity, len(entities))}
	for _, e := range entities {
		e.Locator = Locator{Namespace: namespace(e.Name), Table: e.Name}
		r.entities[e.Name] = e
	}
	return r
}

// Lookup returns the entity registered under name.
func (r *Registry) Lookup(name string) (Entity, error) {
	entity, ok := r.entities[name]
	if !ok {
		return Entity{}, appErrors.Clone(appErrors.ErrUnknownEntity, fmt.Sprintf("unknown entity %q", name))
	}
	return entity, nil
}

// Resolve maps an entity name to its table locator.
func (r *Registry) Resolve(name string) (Locator, error) {
	entity, err := r.Lookup(name)
	if err != nil {
		return Locator{}, err
	}
	return entity.Locator, nil
}

// Names returns the registered entity names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
