package cot

import (
	"strings"
	"testing"

	"github.com/bububa/meal-agents/components/systemprompt"
)

func TestGenerate(t *testing.T) {
	g := New(
		WithBackground([]string{"- You are an expert food analyst."}),
		WithSteps([]string{"- Identify every item."}),
		WithContextProviders(systemprompt.NewStaticContext("Portion rules", "- Use grams.")),
	)
	prompt := g.Generate()
	for _, expect := range []string{
		"# IDENTITY and PURPOSE\n- You are an expert food analyst.",
		"# INTERNAL ASSISTANT STEPS\n- Identify every item.",
		"# OUTPUT INSTRUCTIONS\n- Always respond using the proper JSON schema.",
		"## Portion rules\n- Use grams.",
	} {
		if !strings.Contains(prompt, expect) {
			t.Errorf("expect prompt to contain %q, got:\n%s", expect, prompt)
		}
	}
	if strings.Index(prompt, "IDENTITY") > strings.Index(prompt, "OUTPUT INSTRUCTIONS") {
		t.Error("expect identity section before output instructions")
	}
}

func TestContextProviders(t *testing.T) {
	g := New()
	g.AddContextProviders(systemprompt.NewStaticContext("a", "1"), systemprompt.NewStaticContext("b", "2"))
	g.AddContextProviders(systemprompt.NewStaticContext("a", "dup"))
	if n := len(g.ContextProviders()); n != 2 {
		t.Fatalf("expect 2 providers, got %d", n)
	}
	g.RemoveContextProviders("a")
	if _, err := g.ContextProvider("a"); err == nil {
		t.Error("expect provider a removed")
	}
	if p, err := g.ContextProvider("b"); err != nil || p.Info() != "2" {
		t.Errorf("expect provider b kept, got %v %v", p, err)
	}
}

func TestGenerateExample(t *testing.T) {
	g := New(WithExample(`{"items": []}`))
	if prompt := g.Generate(); !strings.Contains(prompt, "# OUTPUT EXAMPLE\n{\"items\": []}") {
		t.Errorf("expect example section, got:\n%s", prompt)
	}
}
