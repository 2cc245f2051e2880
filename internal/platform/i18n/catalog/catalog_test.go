package catalog

import (
	"testing"
	"testing/fstest"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func TestLoadEmbeddedHasExpectedLocales(t *testing.T) {
	bundle, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded catalogs: %v", err)
	}
	if !bundle.HasLocale(BaseLocale) || !bundle.HasLocale("pt-BR") {
		t.Fatalf("locales = %v", bundle.Locales())
	}
	if got := len(bundle.NamespaceMessages("en", "notification")); got == 0 {
		t.Fatal("expected en notification messages")
	}
	if got := len(bundle.NamespaceMessages("pt-BR", "error")); got == 0 {
		t.Fatal("expected pt-BR error messages")
	}
}

func TestEmbeddedLocalesAreComplete(t *testing.T) {
	bundle := Default()
	for _, locale := range bundle.Locales() {
		if missing := bundle.MissingKeys(locale); len(missing) > 0 {
			t.Errorf("locale %s is missing %v", locale, missing)
		}
	}
}

func TestLoadFromFSRejectsKeyOutsideNamespace(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en/error.yaml": {Data: []byte(`locale: "en"
namespace: "error"
messages:
  "notification.bad": "nope"
`)},
	}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected namespace prefix error")
	}
}

func TestLoadFromFSRejectsDuplicateKeysAcrossNamespaces(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en/mail.yaml": {Data: []byte(`locale: "en"
namespace: "mail"
messages:
  "mail.footer.text": "one"
`)},
		"locales/en/mail.footer.yaml": {Data: []byte(`locale: "en"
namespace: "mail.footer"
messages:
  "mail.footer.text": "two"
`)},
	}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestLoadFromFSRejectsMismatchedLocale(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en/error.yaml": {Data: []byte(`locale: "pt-BR"
namespace: "error"
messages:
  "error.x": "x"
`)},
	}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected locale mismatch error")
	}
}

func TestLoadFromFSRequiresBaseLocale(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/pt-BR/error.yaml": {Data: []byte(`locale: "pt-BR"
namespace: "error"
messages:
  "error.x": "x"
`)},
	}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected missing base locale error")
	}
}

func TestLoadFromFSRejectsInvalidYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en/error.yaml": {Data: []byte("locale: [unterminated\n")},
	}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMessageFallsBackToBaseLocale(t *testing.T) {
	bundle := Default()
	value, ok := bundle.Message("fr-FR", "error.unknown")
	if !ok || value != "Something went wrong." {
		t.Fatalf("message = %q, %v", value, ok)
	}
	if _, ok := bundle.Message("en", "error.nope"); ok {
		t.Fatal("expected unknown key to miss")
	}
}

func TestMatch(t *testing.T) {
	bundle := Default()
	tests := []struct {
		in   language.Tag
		want language.Tag
	}{
		{in: language.English, want: language.English},
		{in: language.MustParse("pt-BR"), want: language.MustParse("pt-BR")},
		{in: language.Japanese, want: language.English},
	}
	for _, tt := range tests {
		if got := bundle.Match(tt.in); got != tt.want {
			t.Errorf("Match(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRegisterPublishesMessages(t *testing.T) {
	p := message.NewPrinter(language.MustParse("pt-BR"))
	if got := p.Sprintf("error.token_already_used"); got != "Este link de entrevista já foi usado." {
		t.Fatalf("pt-BR message = %q", got)
	}
	p = message.NewPrinter(language.English)
	if got := p.Sprintf("notification.rejection.subject", "Backend Engineer"); got != "Update on your Backend Engineer application" {
		t.Fatalf("en message = %q", got)
	}
}
