package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localizedata embed.FS

const (
	En = "en"
	Ru = "ru"
)

// Languages lists every bundled translation
var Languages = []string{En, Ru}

type Localizer interface {
	GetLocale() string
	MustLocalize(id string) string
	MustLocalizeWithTemplate(id string, fields ...string) string
}

type localizer struct {
	locale string
	*i18n.Localizer
}

// NewLocalizer loads the bundled translations for locale. Unknown locales
// fall back to English.
func NewLocalizer(locale string) (Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, lang := range Languages {
		file := fmt.Sprintf("locales/%s.json", lang)
		data, err := localizedata.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load translation data: %s", file)
		}
		if _, err := bundle.ParseMessageFileBytes(data, lang+".json"); err != nil {
			return nil, fmt.Errorf("failed to parse translation data %s: %w", file, err)
		}
	}

	return &localizer{
		locale:    locale,
		Localizer: i18n.NewLocalizer(bundle, locale, En),
	}, nil
}

func (l *localizer) GetLocale() string {
	return l.locale
}

func (l *localizer) MustLocalize(id string) string {
	return l.Localizer.MustLocalize(&i18n.LocalizeConfig{MessageID: id})
}

// MustLocalizeWithTemplate fills {{.f1}}, {{.f2}}, ... with fields in order
func (l *localizer) MustLocalizeWithTemplate(id string, fields ...string) string {
	td := make(map[string]interface{}, len(fields))
	for i, f := range fields {
		td["f"+strconv.Itoa(i+1)] = f
	}

	return l.Localizer.MustLocalize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: td,
	})
}
