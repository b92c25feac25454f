package patient

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

type sortKey struct {
	field string
	key   func(*Patient) float64
}

// sortKeys lists the sortable fields in the order they are advertised.
var sortKeys = []sortKey{
	{"height", func(p *Patient) float64 { return p.Height }},
	{"weight", func(p *Patient) float64 { return p.Weight }},
	{"bmi", func(p *Patient) float64 { return p.BMI() }},
}

// Service implements the patient operations on top of a snapshot
// repository. Every call loads the full collection; writes save it back.
type Service struct {
	repo PatientRepository
	// writeMu makes load-modify-save of Create and Update one critical
	// section. Readers see the last saved snapshot.
	writeMu sync.Mutex
}

func NewService(repo PatientRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ViewAll(ctx context.Context) (*Collection, error) {
	c, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("view patients: %w", err)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Patient, error) {
	c, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", id, err)
	}
	p, ok := c.Get(id)
	if !ok {
		return nil, fmt.Errorf("get patient %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// Count returns the number of stored patients. It doubles as a store probe.
func (s *Service) Count(ctx context.Context) (int, error) {
	c, err := s.repo.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return c.Len(), nil
}

// Sort returns all patients ordered by height, weight or bmi. The ascending
// sort is stable over collection order; desc is its exact reverse.
func (s *Service) Sort(ctx context.Context, field, order string) ([]*Patient, error) {
	idx := slices.IndexFunc(sortKeys, func(k sortKey) bool { return k.field == field })
	if idx < 0 {
		return nil, &InvalidArgumentError{
			Param: "sort_by",
			Msg:   "Invalid field select from ['height', 'weight', 'bmi']",
		}
	}
	if order == "" {
		order = OrderAsc
	}
	if order != OrderAsc && order != OrderDesc {
		return nil, &InvalidArgumentError{
			Param: "order",
			Msg:   "Invalid order select between asc or desc",
		}
	}

	c, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("sort patients: %w", err)
	}

	key := sortKeys[idx].key
	items := c.All()
	slices.SortStableFunc(items, func(a, b *Patient) int {
		return cmp.Compare(key(a), key(b))
	})
	if order == OrderDesc {
		slices.Reverse(items)
	}
	return items, nil
}

// Create validates p and appends it. An existing id is a conflict and leaves
// the stored collection untouched.
func (s *Service) Create(ctx context.Context, p *Patient) (*Patient, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	c, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("create patient %s: %w", p.ID, err)
	}
	if c.Has(p.ID) {
		return nil, fmt.Errorf("create patient %s: %w", p.ID, ErrConflict)
	}
	created := *p
	c.Put(&created)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("create patient %s: %w", p.ID, err)
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("create patient %s: %w", p.ID, err)
	}
	return &created, nil
}

// Update merges a partial body into an existing record. Only supplied fields
// change, and each is checked on its own; the merged record is not
// re-validated as a whole.
func (s *Service) Update(ctx context.Context, id string, raw []byte) (*Patient, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	c, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("update patient %s: %w", id, err)
	}
	existing, ok := c.Get(id)
	if !ok {
		return nil, fmt.Errorf("update patient %s: %w", id, ErrNotFound)
	}

	upd, err := ParseUpdate(raw)
	if err != nil {
		return nil, err
	}

	merged := *existing
	upd.Apply(&merged)
	c.Put(&merged)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("update patient %s: %w", id, err)
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("update patient %s: %w", id, err)
	}
	return &merged, nil
}
