// Package i18n holds the portal's English and Chinese strings.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

const (
	English = "en"
	Chinese = "zh"
)

// Cookie holds the language chosen by the user.
const Cookie = "language"

// Languages lists the supported languages with their display names.
var Languages = []struct{ Code, Name string }{
	{English, "English"},
	{Chinese, "中文"},
}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Chinese})

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	_, ok := catalogs[lang]
	return ok
}

// Negotiate picks the language from the cookie value, then the
// Accept-Language header, then English.
func Negotiate(cookie, acceptLanguage string) string {
	if Supported(cookie) {
		return cookie
	}
	if acceptLanguage == "" {
		return English
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return English
	}
	return Languages[idx].Code
}

// T returns the message for key in lang with {name} placeholders replaced
// from params. A key missing in lang falls back to English, then to the key.
func T(lang, key string, params map[string]any) string {
	msg, ok := catalogs[lang][key]
	if !ok {
		if msg, ok = catalogs[English][key]; !ok {
			return key
		}
	}
	if len(params) == 0 {
		return msg
	}
	pairs := make([]string, 0, 2*len(params))
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// Pairs turns alternating name, value arguments into T params. It backs the
// template function, where maps are awkward to build.
func Pairs(kv ...any) map[string]any {
	if len(kv) < 2 {
		return nil
	}
	params := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		params[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return params
}
