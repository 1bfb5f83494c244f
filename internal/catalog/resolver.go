package catalog

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a template the caller depends on is missing.
var ErrNotFound = errors.New("not found")

// TemplateResolver maps (plan, slot, side) to a template id.
type TemplateResolver interface {
	Resolve(plan, slot string, side Side) (uint, error)
}

// Resolver looks templates up by their natural key through db. Soft-deleted
// templates are treated as missing. It holds no cache, so it always sees
// writes made earlier in the same transaction.
type Resolver struct {
	db *Database
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: NewDatabase(db)}
}

var _ TemplateResolver = (*Resolver)(nil)

func (r *Resolver) Resolve(plan, slot string, side Side) (uint, error) {
	name := TemplateName(side, slot, plan)
	template, err := r.db.GetLiveTemplateByName(name)
	if err != nil {
		return 0, fmt.Errorf("resolve template %q: %w", name, err)
	}
	if template == nil {
		return 0, fmt.Errorf("template %q: %w", name, ErrNotFound)
	}
	return template.TradeTemplateID, nil
}

// Slot identifies one (plan, time) pair of the catalog.
type Slot struct {
	Plan string
	Time string
}

// MissingTemplates returns, for each slot lacking either side, the names of
// the absent templates. An empty result means full coverage.
func (r *Resolver) MissingTemplates(slots []Slot) ([]string, error) {
	names := make([]string, 0, len(slots)*len(Sides))
	for _, s := range slots {
		for _, side := range Sides {
			names = append(names, TemplateName(side, s.Time, s.Plan))
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	ids, err := r.db.GetTemplateIDsByNames(names)
	if err != nil {
		return nil, fmt.Errorf("check template coverage: %w", err)
	}

	var missing []string
	for _, name := range names {
		if _, ok := ids[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
