package patient

// PatientUpdate is a partial record. A nil field was not supplied and leaves
// the stored value untouched.
type PatientUpdate struct {
	Name   *string  `json:"name,omitempty"`
	City   *string  `json:"city,omitempty"`
	Gender *string  `json:"gender,omitempty"`
	Age    *int     `json:"age,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
}

// ParseUpdate decodes a partial body. Each supplied field must satisfy the
// same rule as on a full record; an explicit null is rejected. Unknown keys,
// including "id", are ignored.
func ParseUpdate(raw []byte) (*PatientUpdate, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	probe := &Patient{}
	set := make(map[string]bool)
	var issues []Issue
	for _, f := range mutableFields {
		v, ok := obj[f.name]
		if !ok {
			continue
		}
		if is := decodeValue(f, v, probe.fieldPtr(f.name)); is != nil {
			issues = append(issues, *is)
			continue
		}
		set[f.name] = true
	}

	// Validate the supplied values against the full-record rules, ignoring
	// complaints about fields the probe left at zero.
	for _, is := range checkStruct(probe) {
		if set[is.Field()] {
			issues = append(issues, is)
		}
	}
	if len(issues) > 0 {
		sortIssues(issues)
		return nil, &ValidationError{Issues: issues}
	}

	u := &PatientUpdate{}
	if set["name"] {
		u.Name = &probe.Name
	}
	if set["city"] {
		u.City = &probe.City
	}
	if set["gender"] {
		u.Gender = &probe.Gender
	}
	if set["age"] {
		u.Age = &probe.Age
	}
	if set["height"] {
		u.Height = &probe.Height
	}
	if set["weight"] {
		u.Weight = &probe.Weight
	}
	return u, nil
}

// Fields returns the supplied field names in canonical order.
func (u *PatientUpdate) Fields() []string {
	var out []string
	for _, f := range mutableFields {
		if u.IsSet(f.name) {
			out = append(out, f.name)
		}
	}
	return out
}

// IsSet reports whether the field was present in the request.
func (u *PatientUpdate) IsSet(field string) bool {
	switch field {
	case "name":
		return u.Name != nil
	case "city":
		return u.City != nil
	case "gender":
		return u.Gender != nil
	case "age":
		return u.Age != nil
	case "height":
		return u.Height != nil
	case "weight":
		return u.Weight != nil
	}
	return false
}

// Apply overwrites exactly the supplied fields of p.
func (u *PatientUpdate) Apply(p *Patient) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.City != nil {
		p.City = *u.City
	}
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	if u.Age != nil {
		p.Age = *u.Age
	}
	if u.Height != nil {
		p.Height = *u.Height
	}
	if u.Weight != nil {
		p.Weight = *u.Weight
	}
}
