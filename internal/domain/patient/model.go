package patient

import "math"

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOthers = "others"
)

// Verdict is the weight category derived from a BMI value.
type Verdict string

const (
	VerdictUnderweight Verdict = "Underweight"
	VerdictNormal      Verdict = "Normal"
	VerdictObese       Verdict = "Obese"
)

// Patient is a stored patient record. ID is the collection key and is not
// repeated inside the persisted value.
type Patient struct {
	ID     string  `json:"id" validate:"min=1,path_segment"`
	Name   string  `json:"name" validate:"min=1"`
	City   string  `json:"city" validate:"min=1"`
	Gender string  `json:"gender" validate:"oneof=male female others"`
	Age    int     `json:"age" validate:"gt=0,lte=18"`
	Height float64 `json:"height" validate:"gt=0"`
	Weight float64 `json:"weight" validate:"gt=0"`
}

// BMI returns weight / height². It is the sort key and the value the
// verdict bands apply to.
func (p *Patient) BMI() float64 {
	if p.Height <= 0 {
		return 0
	}
	return p.Weight / (p.Height * p.Height)
}

// roundBMI is the reported precision of bmi in views.
func roundBMI(bmi float64) float64 {
	return math.Round(bmi*100) / 100
}

// Verdict classifies the unrounded BMI.
func (p *Patient) Verdict() Verdict {
	return VerdictFor(p.BMI())
}

// VerdictFor maps a BMI value onto its category. Lower bounds are inclusive.
func VerdictFor(bmi float64) Verdict {
	switch {
	case bmi < 18.5:
		return VerdictUnderweight
	case bmi < 25:
		return VerdictNormal
	default:
		return VerdictObese
	}
}

// Derive computes the derived fields of a record. They are never stored.
func Derive(p *Patient) (float64, Verdict) {
	bmi := p.BMI()
	return bmi, VerdictFor(bmi)
}

// View is the serialized form of a patient: stored fields plus derived ones.
// ID is only populated where the key is not already carried by the
// enclosing object.
type View struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	City    string  `json:"city"`
	Gender  string  `json:"gender"`
	Age     int     `json:"age"`
	Height  float64 `json:"height"`
	Weight  float64 `json:"weight"`
	BMI     float64 `json:"bmi"`
	Verdict Verdict `json:"verdict"`
}

func (p *Patient) View() View {
	bmi, verdict := Derive(p)
	return View{
		Name:    p.Name,
		City:    p.City,
		Gender:  p.Gender,
		Age:     p.Age,
		Height:  p.Height,
		Weight:  p.Weight,
		BMI:     roundBMI(bmi),
		Verdict: verdict,
	}
}

// storedRecord is the on-disk shape of a patient, keyed externally by id.
type storedRecord struct {
	Name   string  `json:"name"`
	City   string  `json:"city"`
	Gender string  `json:"gender"`
	Age    int     `json:"age"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
}

func toStored(p *Patient) storedRecord {
	return storedRecord{
		Name:   p.Name,
		City:   p.City,
		Gender: p.Gender,
		Age:    p.Age,
		Height: p.Height,
		Weight: p.Weight,
	}
}

func (r storedRecord) patient(id string) *Patient {
	return &Patient{
		ID:     id,
		Name:   r.Name,
		City:   r.City,
		Gender: r.Gender,
		Age:    r.Age,
		Height: r.Height,
		Weight: r.Weight,
	}
}
