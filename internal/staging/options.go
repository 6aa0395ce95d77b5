package staging

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultLanguage    = "eng"
	DefaultPageSize    = "A4"
	DefaultOrientation = "portrait"

	SplitRange      = "range"
	SplitIndividual = "individual"
	SplitAll        = "all"
)

// Options are the non-file request fields the gateway understands.
type Options struct {
	Language    string `validate:"omitempty,max=32,ocrlang"`
	Pages       string `validate:"omitempty,max=512"`
	SplitMode   string `validate:"omitempty,oneof=range individual all"`
	PageSize    string `validate:"omitempty,oneof=A3 A4 A5 Letter Legal"`
	Orientation string `validate:"omitempty,oneof=portrait landscape"`
}

var (
	validate   = newValidator()
	langFormat = regexp.MustCompile(`^[A-Za-z0-9+_]+$`)

	// form field name to Options field name
	optionFields = map[string]string{
		"language":    "Language",
		"pages":       "Pages",
		"split_mode":  "SplitMode",
		"page_size":   "PageSize",
		"orientation": "Orientation",
	}

	pageSizes = map[string]string{
		"a3":     "A3",
		"a4":     "A4",
		"a5":     "A5",
		"letter": "Letter",
		"legal":  "Legal",
	}
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ocrlang", func(fl validator.FieldLevel) bool {
		return langFormat.MatchString(fl.Field().String())
	})
	return v
}

// ParseOptions reads options from the request field map and fills defaults.
// SplitMode stays empty when not given so it is not forwarded.
func ParseOptions(fields map[string]string) Options {
	get := func(k string) string { return strings.TrimSpace(fields[k]) }

	o := Options{
		Language:    get("language"),
		Pages:       get("pages"),
		SplitMode:   strings.ToLower(get("split_mode")),
		PageSize:    get("page_size"),
		Orientation: strings.ToLower(get("orientation")),
	}
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	if o.PageSize == "" {
		o.PageSize = DefaultPageSize
	} else if canon, ok := pageSizes[strings.ToLower(o.PageSize)]; ok {
		o.PageSize = canon
	}
	if o.Orientation == "" {
		o.Orientation = DefaultOrientation
	}
	return o
}

// EffectiveSplitMode is SplitMode with the default applied.
func (o Options) EffectiveSplitMode() string {
	if o.SplitMode == "" {
		return SplitRange
	}
	return o.SplitMode
}

// Validate returns a *ValidationError describing the first bad field. When
// fields are given only those form fields are checked, otherwise all are.
func (o Options) Validate(fields ...string) error {
	var err error
	if len(fields) == 0 {
		err = validate.Struct(o)
	} else {
		names := make([]string, 0, len(fields))
		for _, f := range fields {
			if name, ok := optionFields[f]; ok {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			return nil
		}
		err = validate.StructPartial(o, names...)
	}
	if err != nil {
		return Invalid(optionErrorMessage(err))
	}
	return nil
}

func optionErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, ve := range verrs {
			switch ve.Field() {
			case "Language":
				return "Invalid language code"
			case "Pages":
				return "Pages parameter is too long"
			case "SplitMode":
				return "Invalid split_mode. Supported values: range, individual, all"
			case "PageSize":
				return "Invalid page_size. Supported values: A3, A4, A5, Letter, Legal"
			case "Orientation":
				return "Invalid orientation. Supported values: portrait, landscape"
			}
		}
	}
	return "Invalid request"
}
