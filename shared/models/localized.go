package models

// Locales supported by the public site
var Locales = []string{"ru", "kk", "en"}

// Localized holds one text value per supported locale. It is stored inline,
// e.g. a field tagged embeddedPrefix:title_ maps to title_ru, title_kk, title_en.
type Localized struct {
	Ru string `json:"ru" gorm:"type:text"`
	Kk string `json:"kk" gorm:"type:text"`
	En string `json:"en" gorm:"type:text"`
}

// Get returns the value for locale, falling back to Russian
func (l Localized) Get(locale string) string {
	switch locale {
	case "kk":
		if l.Kk != "" {
			return l.Kk
		}
	case "en":
		if l.En != "" {
			return l.En
		}
	}
	return l.Ru
}

// IsEmpty reports whether no locale has a value
func (l Localized) IsEmpty() bool {
	return l.Ru == "" && l.Kk == "" && l.En == ""
}
