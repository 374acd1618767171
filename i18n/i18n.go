// Package i18n loads gettext message catalogs for use by template helpers.
//
// Catalogs are PO files named by locale, one per file:
//
//	msgs/en.po
//	msgs/es.po
//	msgs/pt_BR.po
//
// Messages are looked up by msgid.  Locales fall back through decreasing
// specificity ("pt-BR" tries pt_BR, then pt) when no exact catalog exists.
package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/gettext/po"
	"golang.org/x/text/language"
)

// Provider holds the message bundles of every loaded locale.
type Provider struct {
	bundles map[string]*Bundle
}

// Dir loads every *.po file in dirname, keyed by the file's base name.
func Dir(dirname string) (*Provider, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}
	prov := &Provider{bundles: make(map[string]*Bundle)}
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".po") {
			continue
		}
		locale := strings.TrimSuffix(name, ".po")
		f, err := os.Open(filepath.Join(dirname, name))
		if err != nil {
			return nil, err
		}
		pofile, err := po.Parse(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", name, err)
		}
		prov.bundles[locale] = newBundle(locale, pofile)
	}
	return prov, nil
}

// Bundle returns the catalog for locale, trying fallbacks of decreasing
// specificity when there is no exact match.  It returns nil when nothing
// matches.
func (p *Provider) Bundle(locale string) *Bundle {
	if b, ok := p.bundles[normalize(locale)]; ok {
		return b
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil
	}
	for _, fb := range fallbacks(tag) {
		if b, ok := p.bundles[normalize(fb.String())]; ok {
			return b
		}
	}
	return nil
}

// Locales returns the loaded locale names.
func (p *Provider) Locales() []string {
	out := make([]string, 0, len(p.bundles))
	for locale := range p.bundles {
		out = append(out, locale)
	}
	return out
}

// Bundle is the message catalog of a single locale.
type Bundle struct {
	locale    string
	singular  map[string]string
	plural    map[string][]string
	pluralize po.PluralSelector
}

func newBundle(locale string, file po.File) *Bundle {
	pluralize := file.Pluralize
	if pluralize == nil {
		pluralize = po.PluralSelectorForLanguage(locale)
	}
	b := &Bundle{
		locale:    locale,
		singular:  make(map[string]string),
		plural:    make(map[string][]string),
		pluralize: pluralize,
	}
	for _, msg := range file.Messages {
		if msg.Id == "" || len(msg.Str) == 0 {
			continue
		}
		b.singular[msg.Id] = msg.Str[0]
		if msg.IdPlural != "" {
			b.plural[msg.Id] = msg.Str
		}
	}
	return b
}

// Locale returns the catalog's locale name.
func (b *Bundle) Locale() string { return b.locale }

// Get returns the translation of id, or id itself when untranslated.
func (b *Bundle) Get(id string) string {
	if s, ok := b.singular[id]; ok && s != "" {
		return s
	}
	return id
}

// GetN returns the plural form of id appropriate for n, falling back to the
// untranslated singular or plural msgid.
func (b *Bundle) GetN(id, idPlural string, n int) string {
	if forms, ok := b.plural[id]; ok && b.pluralize != nil {
		if i := b.pluralize(n); i >= 0 && i < len(forms) && forms[i] != "" {
			return forms[i]
		}
	}
	if n == 1 {
		return b.Get(id)
	}
	return idPlural
}

// normalize maps BCP 47 spellings onto PO file naming ("pt-BR" → "pt_BR").
func normalize(locale string) string {
	return strings.Replace(locale, "-", "_", 1)
}

// fallbacks returns substitute tags ordered by decreasing specificity.
func fallbacks(tag language.Tag) []language.Tag {
	var result []language.Tag
	lang, script, region := tag.Raw()
	// An unspecified region comes back as ZZ, and script similarly.
	if region.String() != "ZZ" {
		if t, err := language.Compose(lang, script, region); err == nil {
			result = append(result, t)
		}
	}
	if script.String() != "Zzzz" {
		if t, err := language.Compose(lang, script); err == nil {
			result = append(result, t)
		}
	}
	if t, err := language.Compose(lang); err == nil {
		result = append(result, t)
	}
	return result
}
