package schema

import "testing"

func TestStringify(t *testing.T) {
	type Item struct {
		Base
		Name    string `json:"name"`
		Portion string `json:"portion,omitempty"`
	}
	tests := []struct {
		name   string
		input  Schema
		expect string
	}{
		{name: "string", input: String("plain text"), expect: "plain text"},
		{name: "string pointer", input: NewString("pointer text"), expect: "pointer text"},
		{name: "struct", input: Item{Name: "Apple"}, expect: `{"name":"Apple"}`},
		{name: "struct pointer", input: &Item{Name: "Rice", Portion: "1 cup"}, expect: `{"name":"Rice","portion":"1 cup"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stringify(tt.input); got != tt.expect {
				t.Errorf("expect %s, got %s", tt.expect, got)
			}
		})
	}
}

func TestBaseAttachement(t *testing.T) {
	type Input struct {
		Base
		Text string `json:"text"`
	}
	in := new(Input)
	if in.Attachement().HasImages() {
		t.Fatal("expect no attachement on a fresh schema")
	}
	in.SetAttachement(NewImageAttachement([]byte{0xff, 0xd8}, "image/jpeg"))
	att := in.Attachement()
	if !att.HasImages() {
		t.Fatal("expect image attachement")
	}
	if att.Images[0].MimeType != "image/jpeg" {
		t.Errorf("expect image/jpeg, got %s", att.Images[0].MimeType)
	}
	if got := Stringify(in); got != `{"text":""}` {
		t.Errorf("attachement must not leak into message text, got %s", got)
	}
}
