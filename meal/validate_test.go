package meal

import "testing"

func TestConcretePortion(t *testing.T) {
	tests := map[string]bool{
		"150g":              true,
		"1 cup":             true,
		"1 slice (~120g)":   true,
		"medium slice":      true,
		"two large eggs":    true,
		"half a plate":      true,
		"330 ml":            true,
		"some":              false,
		"a bit":             false,
		"a portion":         false,
		"a serving":         false,
		"portion":           false,
		"":                  false,
		"   ":               false,
		"a little of sauce": false,
	}
	for portion, expect := range tests {
		if got := ConcretePortion(portion); got != expect {
			t.Errorf("%q: expect %v, got %v", portion, expect, got)
		}
	}
}

func TestValidatorRules(t *testing.T) {
	v := NewValidator()
	ok := identifiedItem{Name: "Rice", Portion: "1 cup"}
	if err := v.Struct(ok); err != nil {
		t.Errorf("expect valid item, got %v", err)
	}
	for _, item := range []identifiedItem{
		{Name: "", Portion: "1 cup"},
		{Name: "  ", Portion: "1 cup"},
		{Name: "Rice", Portion: "some"},
	} {
		if err := v.Struct(item); err == nil {
			t.Errorf("expect %+v rejected", item)
		}
	}
}
