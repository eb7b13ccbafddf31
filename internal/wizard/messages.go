package wizard

import "github.com/vitebski/dataset-wizard/pkg/models"

// DefaultMessages holds the English text for the codes raised by the lookups
var DefaultMessages = map[string]string{
	models.ErrCodeConnection: "Could not connect to the data source",
	models.ErrCodeLookup:     "The data source rejected the request",
	models.ErrCodeTimeout:    "The data source did not answer in time",
}

// MapTranslator translates codes from a fixed table and echoes unknown codes
type MapTranslator map[string]string

func (t MapTranslator) Translate(code string) string {
	if msg, ok := t[code]; ok {
		return msg
	}
	return code
}
