// Package messages holds the user-facing strings shown by presenters and
// prompts, with a small translator contract so hosts can plug their own
// catalogs.
package messages

import (
	"errors"
	"fmt"
	"strings"
)

// Message keys.
const (
	KeySaveFailed      = "save.failed"
	KeySaved           = "save.done"
	KeyNetworkFailed   = "network.failed"
	KeyRequiredFields  = "validation.required_fields"
	KeyFieldRequired   = "validation.field_required"
	KeyThanksTitle     = "confirm.title"
	KeyThanksBody      = "confirm.body"
	KeySubmitPrompt    = "submit.prompt"
	KeyRedirecting     = "confirm.redirect"
	KeyRangeOutOfBound = "validation.range"
)

// DefaultLocale is used when a locale has no catalog or lacks a key.
const DefaultLocale = "en"

// ErrMissingTranslation is reported when neither the locale nor the default
// catalog carries a key.
var ErrMissingTranslation = errors.New("messages: missing translation")

// Translator resolves a key for a locale. Args are applied with fmt verbs.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler picks the string used when translation fails.
type MissingTranslationHandler func(locale, key string, err error) string

// Catalog is an in-memory Translator keyed by locale then message key.
type Catalog map[string]map[string]string

var builtin = Catalog{
	"en": {
		KeySaveFailed:      "Save failed",
		KeySaved:           "Saved!",
		KeyNetworkFailed:   "Network error. Check your internet connection.",
		KeyRequiredFields:  "Please fill in all required fields (*)",
		KeyFieldRequired:   "This field is required",
		KeyThanksTitle:     "Thank you!",
		KeyThanksBody:      "Your answers have been recorded.",
		KeySubmitPrompt:    "Submit your answers?",
		KeyRedirecting:     "Continue at %s",
		KeyRangeOutOfBound: "value must be between %s and %s",
	},
	"ru": {
		KeySaveFailed:      "Ошибка сохранения",
		KeySaved:           "Сохранено!",
		KeyNetworkFailed:   "Сетевая ошибка. Проверьте подключение к интернету.",
		KeyRequiredFields:  "Пожалуйста, заполните все обязательные поля (*)",
		KeyFieldRequired:   "Заполните это поле",
		KeyThanksTitle:     "Спасибо!",
		KeyThanksBody:      "Ваши ответы записаны.",
		KeySubmitPrompt:    "Отправить ответы?",
		KeyRedirecting:     "Продолжить: %s",
		KeyRangeOutOfBound: "значение должно быть от %s до %s",
	},
}

// Builtin returns a copy of the shipped catalog (en, ru).
func Builtin() Catalog {
	out := make(Catalog, len(builtin))
	for locale, entries := range builtin {
		copied := make(map[string]string, len(entries))
		for k, v := range entries {
			copied[k] = v
		}
		out[locale] = copied
	}
	return out
}

// Translate implements Translator, falling back to DefaultLocale.
func (c Catalog) Translate(locale, key string, args ...any) (string, error) {
	for _, candidate := range localeChain(locale) {
		if msg, ok := c[candidate][key]; ok && strings.TrimSpace(msg) != "" {
			if len(args) > 0 {
				return fmt.Sprintf(msg, args...), nil
			}
			return msg, nil
		}
	}
	return "", fmt.Errorf("%w: %s/%s", ErrMissingTranslation, locale, key)
}

// Localizer binds a Translator to a locale.
type Localizer struct {
	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler
}

// New returns a Localizer over the builtin catalog.
func New(locale string) Localizer {
	return Localizer{Locale: locale, Translator: Builtin()}
}

// T resolves key. Failures go through OnMissing, then fall back to the key.
func (l Localizer) T(key string, args ...any) string {
	t := l.Translator
	if t == nil {
		t = builtin
	}
	msg, err := t.Translate(l.Locale, key, args...)
	if err == nil && strings.TrimSpace(msg) != "" {
		return msg
	}
	if l.OnMissing != nil {
		return l.OnMissing(l.Locale, key, err)
	}
	return key
}

// localeChain yields "pt-BR" -> ["pt-BR", "pt", "en"].
func localeChain(locale string) []string {
	locale = strings.TrimSpace(locale)
	var chain []string
	if locale != "" {
		chain = append(chain, locale)
		if base, _, found := strings.Cut(locale, "-"); found && base != "" {
			chain = append(chain, base)
		}
	}
	if locale != DefaultLocale {
		chain = append(chain, DefaultLocale)
	}
	return chain
}
