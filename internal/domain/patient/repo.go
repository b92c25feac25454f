package patient

import "context"

// PatientRepository persists the whole collection as one snapshot. Save
// replaces everything previously stored.
type PatientRepository interface {
	Load(ctx context.Context) (*Collection, error)
	Save(ctx context.Context, c *Collection) error
}
