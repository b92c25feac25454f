package patient

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

const orderedDoc = `{
    "P003": {"name": "Zara", "city": "Delhi", "gender": "female", "age": 12, "height": 1.5, "weight": 40},
    "P001": {"name": "John", "city": "Pune", "gender": "male", "age": 17, "height": 1.85, "weight": 70},
    "P002": {"name": "Asha", "city": "Goa", "gender": "others", "age": 9, "height": 1.3, "weight": 30}
}`

func TestCollection_UnmarshalKeepsOrder(t *testing.T) {
	c := NewCollection()
	if err := json.Unmarshal([]byte(orderedDoc), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(c.IDs(), []string{"P003", "P001", "P002"}) {
		t.Errorf("unexpected order %v", c.IDs())
	}
	p, ok := c.Get("P001")
	if !ok {
		t.Fatal("expected P001")
	}
	if !reflect.DeepEqual(p, validPatient()) {
		t.Errorf("expected %+v, got %+v", validPatient(), p)
	}
}

func TestCollection_MarshalRoundTrip(t *testing.T) {
	c := NewCollection()
	if err := json.Unmarshal([]byte(orderedDoc), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(out)
	if !(strings.Index(s, `"P003"`) < strings.Index(s, `"P001"`) && strings.Index(s, `"P001"`) < strings.Index(s, `"P002"`)) {
		t.Errorf("order not preserved: %s", s)
	}
	for _, banned := range []string{`"id"`, `"bmi"`, `"verdict"`} {
		if strings.Contains(s, banned) {
			t.Errorf("persisted layout must not contain %s: %s", banned, s)
		}
	}
}

func TestCollection_PutReplacesInPlace(t *testing.T) {
	c := NewCollection()
	c.Put(&Patient{ID: "A"})
	c.Put(&Patient{ID: "B"})
	c.Put(&Patient{ID: "A", Name: "changed"})
	if !reflect.DeepEqual(c.IDs(), []string{"A", "B"}) {
		t.Errorf("unexpected order %v", c.IDs())
	}
	p, _ := c.Get("A")
	if p.Name != "changed" {
		t.Errorf("expected replaced record, got %+v", p)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2, got %d", c.Len())
	}
}

func TestCollection_CloneIsIndependent(t *testing.T) {
	c := NewCollection()
	c.Put(validPatient())
	cp := c.Clone()
	p, _ := cp.Get("P001")
	p.Weight = 1
	cp.Put(&Patient{ID: "P002"})

	orig, _ := c.Get("P001")
	if orig.Weight != 70 {
		t.Errorf("clone mutation leaked: %+v", orig)
	}
	if c.Has("P002") {
		t.Error("clone insert leaked")
	}
}

func TestCollection_NullAndEmpty(t *testing.T) {
	for _, doc := range []string{`null`, `{}`} {
		c := NewCollection()
		c.Put(validPatient())
		if err := json.Unmarshal([]byte(doc), c); err != nil {
			t.Fatalf("%s: unexpected error: %v", doc, err)
		}
		if c.Len() != 0 {
			t.Errorf("%s: expected empty collection, got %d", doc, c.Len())
		}
	}
}

func TestCollection_UnmarshalRejectsArray(t *testing.T) {
	c := NewCollection()
	if err := json.Unmarshal([]byte(`[1]`), c); err == nil {
		t.Fatal("expected error for array document")
	}
}

func TestCollection_WithDerived(t *testing.T) {
	c := NewCollection()
	c.Put(validPatient())
	out, err := json.Marshal(c.WithDerived())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got map[string]map[string]interface{}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := got["P001"]
	if rec["bmi"] != 20.45 {
		t.Errorf("expected bmi 20.45, got %v", rec["bmi"])
	}
	if rec["verdict"] != "Normal" {
		t.Errorf("expected Normal, got %v", rec["verdict"])
	}
	if _, ok := rec["id"]; ok {
		t.Error("expected no id inside values")
	}
}
