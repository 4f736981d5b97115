// Package i18n, client'a giden insan-okur metinleri bağlantının diline çevirir.
//
// Wire code'ları (pkg.Code*) dil bağımsızdır; sadece message alanları
// yerelleştirilir. Dil handshake'te bir kez çözülür:
//
//  1. ?lang= query parametresi
//
//  2. Accept-Language header'ı
//
//  3. DefaultLanguage
//
//     loc := i18n.NewLocalizer(i18n.Resolve(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language")))
//     loc.ErrorMessage("voice_locked", 600) // "... 10 minute(s)."
package i18n

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/akinalp/voxgate/pkg/logger"
)

// SupportedLanguages, locales/ altında <lang>.json dosyası olan diller.
// İlk eleman varsayılandır.
var SupportedLanguages = []string{"en", "tr"}

// DefaultLanguage, eşleşme olmadığında kullanılan dil.
const DefaultLanguage = "en"

var matcher = language.NewMatcher([]language.Tag{language.English, language.Turkish})

// translations: lang → "errors.rate_limited" gibi düz key → metin.
// Load'dan sonra sadece okunur.
var (
	translations map[string]map[string]string
	loadOnce     sync.Once
	loadErr      error
)

// Load, her desteklenen dil için <lang>.json dosyasını okur. Sadece ilk
// çağrı etkilidir; sonraki çağrılar ilk sonucun error'ını döner.
func Load(localesFS fs.FS) error {
	loadOnce.Do(func() {
		log := logger.For("i18n")
		loaded := make(map[string]map[string]string, len(SupportedLanguages))

		for _, lang := range SupportedLanguages {
			flat, err := readLocale(localesFS, lang+".json")
			if err != nil {
				loadErr = err
				return
			}
			loaded[lang] = flat
			log.Debug().Str("lang", lang).Int("keys", len(flat)).Msg("translations loaded")
		}
		translations = loaded
	})
	return loadErr
}

func readLocale(localesFS fs.FS, name string) (map[string]string, error) {
	data, err := fs.ReadFile(localesFS, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", name, err)
	}

	var nested map[string]any
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("failed to parse translation file %s: %w", name, err)
	}

	flat := make(map[string]string)
	flatten("", nested, flat)
	return flat, nil
}

// flatten: {"errors": {"forbidden": "..."}} → {"errors.forbidden": "..."}
func flatten(prefix string, src map[string]any, dst map[string]string) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			dst[key] = val
		case map[string]any:
			flatten(key, val, dst)
		}
	}
}

// Localizer, tek bir dile bağlı çevirici. Her WS bağlantısı bir tane taşır.
type Localizer struct {
	lang string
}

// NewLocalizer, desteklenmeyen dilde DefaultLanguage'a düşer.
func NewLocalizer(lang string) *Localizer {
	if !slices.Contains(SupportedLanguages, lang) {
		lang = DefaultLanguage
	}
	return &Localizer{lang: lang}
}

// Lang, localizer'ın dil kodu.
func (l *Localizer) Lang() string {
	return l.lang
}

// T, key'in çevirisini döner: önce kendi dili, sonra DefaultLanguage,
// ikisinde de yoksa key'in kendisi.
func (l *Localizer) T(key string) string {
	if msg, ok := translations[l.lang][key]; ok {
		return msg
	}
	if msg, ok := translations[DefaultLanguage][key]; ok {
		return msg
	}
	return key
}

// TWithParams, çevirideki {{name}} yer tutucularını doldurur.
func (l *Localizer) TWithParams(key string, params map[string]string) string {
	msg := l.T(key)
	if len(params) == 0 || !strings.Contains(msg, "{{") {
		return msg
	}

	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// ErrorMessage, wire error code'unun mesajı; {{retry}} kalan süreyle dolar.
func (l *Localizer) ErrorMessage(code string, retryAfter int) string {
	return l.TWithParams("errors."+code, map[string]string{
		"retry": l.duration(retryAfter),
	})
}

func (l *Localizer) duration(seconds int) string {
	minutes := seconds >= 60
	n := seconds
	if minutes {
		n = seconds / 60
	}

	unit := map[bool]map[string]string{
		true:  {"en": "minute(s)", "tr": "dakika"},
		false: {"en": "second(s)", "tr": "saniye"},
	}[minutes][l.lang]
	return strconv.Itoa(n) + " " + unit
}

// Resolve, açık tercih (?lang=) desteklenen bir dilse onu, değilse
// Accept-Language ile eşleşen dili döner.
func Resolve(explicit, acceptLanguage string) string {
	if lang := strings.ToLower(strings.TrimSpace(explicit)); slices.Contains(SupportedLanguages, lang) {
		return lang
	}
	return DetectLanguage(acceptLanguage)
}

// DetectLanguage, Accept-Language header'ını ("tr-TR,tr;q=0.9,en;q=0.8")
// q ağırlıklarına göre desteklenen dillerle eşleştirir.
func DetectLanguage(acceptLanguage string) string {
	if acceptLanguage == "" {
		return DefaultLanguage
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}

	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLanguage
	}
	return SupportedLanguages[idx]
}
