package importer

import (
	"fmt"
	"strings"
)

// DefaultLanguage is the language of internal names and untranslated records.
const DefaultLanguage = "eng"

// Legacy two-letter language codes to ISO 639-3.
var languageCodes = map[string]string{
	"ar": "ara",
	"ch": "zho",
	"cs": "ces",
	"de": "deu",
	"el": "ell",
	"en": "eng",
	"es": "spa",
	"fa": "fas",
	"fr": "fra",
	"he": "heb",
	"hr": "hrv",
	"hu": "hun",
	"it": "ita",
	"ja": "jpn",
	"pt": "por",
	"ru": "rus",
	"se": "swe",
	"si": "slv",
	"tr": "tur",
	"zh": "zho",
}

// Legacy two-letter country codes to ISO 3166-1 alpha-3. Several legacy codes
// differ from ISO alpha-2 (uk, ab, sw, ...); pd and ww are placeholders
// without a real country.
var countryCodes = map[string]string{
	"ab": "alb", "ag": "arg", "al": "aus", "at": "aut", "az": "aze",
	"be": "bel", "bg": "bgd", "bh": "bhr", "bl": "blr", "br": "bra",
	"bs": "bih", "bu": "bgr", "ca": "can", "ch": "chn", "co": "com",
	"cy": "cyp", "cz": "cze", "de": "deu", "dj": "dji", "dn": "dnk",
	"dz": "dza", "eg": "egy", "es": "esp", "et": "est", "fn": "fin",
	"fr": "fra", "ge": "geo", "gr": "grc", "hr": "hrv", "hu": "hun",
	"ia": "irn", "iq": "irq", "is": "isr", "ix": "ita", "jo": "jor",
	"jp": "jpn", "lb": "lbn", "ln": "ltu", "lt": "lva", "lx": "lux",
	"ly": "lby", "ma": "mar", "mc": "mkd", "md": "mda", "ml": "mlt",
	"mn": "mne", "mt": "mrt", "nt": "nld", "on": "omn", "pa": "pse",
	"pd": "zzzpd", "pl": "pol", "pt": "prt", "px": "pse", "qt": "qat",
	"rm": "rou", "ro": "rou", "ru": "rus", "sa": "sau", "sb": "srb",
	"sd": "sdn", "sf": "zaf", "sl": "svk", "so": "som", "sw": "che",
	"sy": "syr", "tn": "tun", "tr": "tur", "uc": "ukr", "uk": "gbr",
	"va": "vat", "ww": "zzzww", "ym": "yem",
}

func mapCode(codes map[string]string, kind, legacy string) (string, error) {
	code := strings.ToLower(strings.TrimSpace(legacy))
	if mapped, ok := codes[code]; ok {
		return mapped, nil
	}
	// already converted values pass through
	for _, v := range codes {
		if v == code {
			return code, nil
		}
	}
	return "", fmt.Errorf("unknown %s code %q", kind, legacy)
}

// LanguageID maps a legacy language code to the target language id.
func LanguageID(legacy string) (string, error) {
	return mapCode(languageCodes, "language", legacy)
}

// CountryID maps a legacy country code to the target country id.
func CountryID(legacy string) (string, error) {
	return mapCode(countryCodes, "country", legacy)
}
