package prompts

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/thoth/internal/errs"
	"github.com/kalambet/thoth/internal/storage"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewCatalog(s)
}

func customCount(t *testing.T, c *Catalog) int {
	t.Helper()
	all, err := c.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	n := 0
	for _, tpl := range all {
		if tpl.Origin == OriginCustom {
			n++
		}
	}
	return n
}

func TestBuiltins_Valid(t *testing.T) {
	seen := make(map[string]bool)
	for _, b := range Builtins() {
		if err := Validate(b.Body); err != nil {
			t.Errorf("built-in %s: %v", b.ID, err)
		}
		if b.Origin != OriginBuiltin {
			t.Errorf("built-in %s origin = %q", b.ID, b.Origin)
		}
		if seen[b.ID] {
			t.Errorf("duplicate built-in id %s", b.ID)
		}
		seen[b.ID] = true
	}
}

func TestBuiltins_ReturnsCopy(t *testing.T) {
	b := Builtins()
	b[0].Body = "mutated {text}"
	if Builtins()[0].Body == "mutated {text}" {
		t.Error("Builtins() exposed the internal slice")
	}
}

func TestListAll_BuiltinsFirstThenCustomByCreation(t *testing.T) {
	c := newTestCatalog(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, label := range []string{"Zulu", "Alpha", "Mike"} {
		if _, err := c.SaveCustom(label, "Do it: {text}", ContextFlags{}); err != nil {
			t.Fatalf("SaveCustom(%s): %v", label, err)
		}
	}

	all, err := c.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}

	builtinIDs := []string{FixGrammar, MakeProfessional, MakeCasual, Simplify, Summarise, Expand, PirateSpeak, ClipboardAware}
	if len(all) != len(builtinIDs)+3 {
		t.Fatalf("got %d templates, want %d", len(all), len(builtinIDs)+3)
	}
	for i, id := range builtinIDs {
		if all[i].ID != id {
			t.Errorf("all[%d].ID = %q, want %q", i, all[i].ID, id)
		}
	}
	for i, label := range []string{"Zulu", "Alpha", "Mike"} {
		got := all[len(builtinIDs)+i]
		if got.Label != label || got.Origin != OriginCustom {
			t.Errorf("custom[%d] = %s/%s, want %s/custom", i, got.Label, got.Origin, label)
		}
	}
}

func TestListAll_NilStore(t *testing.T) {
	c := NewCatalog(nil)
	all, err := c.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != len(Builtins()) {
		t.Errorf("got %d templates, want built-ins only", len(all))
	}
}

func TestResolve_Builtin(t *testing.T) {
	c := newTestCatalog(t)
	tpl, err := c.Resolve(FixGrammar)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tpl.Label != "Fix Grammar" || !strings.HasSuffix(tpl.Body, "{text}") {
		t.Errorf("Resolve(fix-grammar) = %+v", tpl)
	}
}

func TestResolve_Unknown(t *testing.T) {
	c := newTestCatalog(t)
	for _, id := range []string{"no-such-prompt", "", "  "} {
		_, err := c.Resolve(id)
		if !errors.Is(err, errs.ErrPromptNotFound) {
			t.Errorf("Resolve(%q) err = %v, want PromptNotFound", id, err)
		}
	}
}

func TestSaveCustom_ResolveRoundTrip(t *testing.T) {
	c := newTestCatalog(t)

	bodies := []string{
		"Translate to French:\n\n{text}",
		"  leading and trailing whitespace {text}  \n",
		"unicode ✓ — {text} ñ",
	}
	for i, body := range bodies {
		saved, err := c.SaveCustom("label "+string(rune('A'+i)), body, ContextFlags{Selection: true})
		if err != nil {
			t.Fatalf("SaveCustom: %v", err)
		}
		if saved.ID == "" {
			t.Fatal("SaveCustom returned empty id")
		}

		got, err := c.Resolve(saved.ID)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", saved.ID, err)
		}
		if got.Body != body {
			t.Errorf("body = %q, want %q", got.Body, body)
		}
		if !got.Context.Selection || got.Context.Clipboard {
			t.Errorf("context = %+v, want selection only", got.Context)
		}
		if got.Origin != OriginCustom {
			t.Errorf("origin = %q, want custom", got.Origin)
		}
	}
}

func TestSaveCustom_InvalidTemplate(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		name  string
		label string
		body  string
	}{
		{"no marker", "A", "Fix grammar please"},
		{"two markers", "B", "{text} and {text}"},
		{"wrong marker", "C", "Fix: {input}"},
		{"blank label", "   ", "Fix: {text}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := customCount(t, c)
			_, err := c.SaveCustom(tt.label, tt.body, ContextFlags{})
			if !errors.Is(err, errs.ErrInvalidTemplate) {
				t.Fatalf("err = %v, want InvalidTemplate", err)
			}
			if after := customCount(t, c); after != before {
				t.Errorf("custom count changed %d -> %d", before, after)
			}
		})
	}
}

func TestSaveCustom_DuplicateLabel(t *testing.T) {
	c := newTestCatalog(t)

	if _, err := c.SaveCustom("Haiku", "Haiku: {text}", ContextFlags{}); err != nil {
		t.Fatalf("first SaveCustom: %v", err)
	}
	_, err := c.SaveCustom(" Haiku ", "Another haiku: {text}", ContextFlags{})
	if !errors.Is(err, errs.ErrDuplicateLabel) {
		t.Fatalf("err = %v, want DuplicateLabel", err)
	}
	if n := customCount(t, c); n != 1 {
		t.Errorf("custom count = %d, want 1", n)
	}

	// Labels are case-sensitive.
	if _, err := c.SaveCustom("haiku", "haiku: {text}", ContextFlags{}); err != nil {
		t.Errorf("SaveCustom(haiku): %v", err)
	}
}

func TestDeleteCustom(t *testing.T) {
	c := newTestCatalog(t)

	saved, err := c.SaveCustom("Temp", "Temp: {text}", ContextFlags{})
	if err != nil {
		t.Fatalf("SaveCustom: %v", err)
	}
	if err := c.DeleteCustom(saved.ID); err != nil {
		t.Fatalf("DeleteCustom: %v", err)
	}
	if _, err := c.Resolve(saved.ID); !errors.Is(err, errs.ErrPromptNotFound) {
		t.Errorf("Resolve after delete err = %v, want PromptNotFound", err)
	}
	if err := c.DeleteCustom(saved.ID); !errors.Is(err, errs.ErrPromptNotFound) {
		t.Errorf("second delete err = %v, want PromptNotFound", err)
	}
}

func TestDeleteCustom_BuiltinImmutable(t *testing.T) {
	c := newTestCatalog(t)

	for _, b := range Builtins() {
		err := c.DeleteCustom(b.ID)
		if !errors.Is(err, errs.ErrImmutableTemplate) {
			t.Errorf("DeleteCustom(%s) err = %v, want ImmutableTemplate", b.ID, err)
		}
		if _, err := c.Resolve(b.ID); err != nil {
			t.Errorf("Resolve(%s) after delete attempt: %v", b.ID, err)
		}
	}
}

func TestInline(t *testing.T) {
	tpl, err := Inline("Shout: {text}", ContextFlags{Clipboard: true})
	if err != nil {
		t.Fatalf("Inline: %v", err)
	}
	if tpl.Origin != OriginInline || !tpl.Context.Clipboard {
		t.Errorf("Inline = %+v", tpl)
	}
	if _, err := Inline("no marker", ContextFlags{}); !errors.Is(err, errs.ErrInvalidTemplate) {
		t.Errorf("Inline without marker err = %v, want InvalidTemplate", err)
	}
}

func TestImportLegacy(t *testing.T) {
	c := newTestCatalog(t)
	if _, err := c.SaveCustom("Existing", "Existing: {text}", ContextFlags{}); err != nil {
		t.Fatalf("SaveCustom: %v", err)
	}

	legacy := `[
		{"id": "fix-grammar", "name": "Fix Grammar", "template": "Fix: {text}", "isBuiltin": true},
		{"id": "custom-1", "name": "Haiku", "template": "Haiku: {text}", "isBuiltin": false},
		{"id": "custom-2", "name": "Broken", "template": "no marker here", "isBuiltin": false},
		{"id": "custom-3", "name": "Existing", "template": "Dup: {text}", "isBuiltin": false}
	]`

	res, err := c.ImportLegacy(strings.NewReader(legacy))
	if err != nil {
		t.Fatalf("ImportLegacy: %v", err)
	}
	if len(res.Imported) != 1 || res.Imported[0].Label != "Haiku" {
		t.Errorf("imported = %+v, want [Haiku]", res.Imported)
	}
	wantSkipped := map[string]string{
		"Fix Grammar": "built-in",
		"Broken":      errs.InvalidTemplate.String(),
		"Existing":    errs.DuplicateLabel.String(),
	}
	for label, reason := range wantSkipped {
		if res.Skipped[label] != reason {
			t.Errorf("skipped[%s] = %q, want %q", label, res.Skipped[label], reason)
		}
	}
}

func TestImportLegacy_BadJSON(t *testing.T) {
	c := newTestCatalog(t)
	if _, err := c.ImportLegacy(strings.NewReader("{not an array")); err == nil {
		t.Fatal("expected decode error")
	}
}
