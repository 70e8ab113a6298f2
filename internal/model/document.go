package model

import (
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// Document is the editorial extracted from a fetched page.
type Document struct {
	Title    string `json:"title" validate:"required"`
	Outlet   Outlet `json:"outlet,omitempty" validate:"omitempty,max=200"`
	Date     string `json:"date,omitempty" validate:"omitempty,pubdate"`
	Language string `json:"language,omitempty" validate:"omitempty,max=64"`
	Lede     string `json:"lede" validate:"required"`
	Body     string `json:"body" validate:"required"`
}

// pubDatePattern matches the DD/MM-YYYY format requested from the extractor.
var pubDatePattern = regexp.MustCompile(`^\d{2}/\d{2}-\d{4}$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func documentValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("pubdate", func(fl validator.FieldLevel) bool {
			return pubDatePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks the document against its schema constraints.
func (d *Document) Validate() error {
	if d == nil {
		return eris.New("model: nil document")
	}
	if err := documentValidator().Struct(d); err != nil {
		return eris.Wrap(err, "model: invalid document")
	}
	return nil
}

// Markdown renders the document as a heading, an emphasized lede and the body.
// This is the form passed to text-generation prompts.
func (d *Document) Markdown() string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(d.Title)

	var meta []string
	if d.Outlet != "" {
		meta = append(meta, string(d.Outlet))
	}
	if d.Date != "" {
		meta = append(meta, d.Date)
	}
	if len(meta) > 0 || d.Language != "" {
		b.WriteString(" (")
		b.WriteString(strings.Join(meta, ", "))
		if d.Language != "" {
			if len(meta) > 0 {
				b.WriteString(" - ")
			}
			b.WriteString(d.Language)
		}
		b.WriteString(")")
	}

	b.WriteString("\n\n**")
	b.WriteString(d.Lede)
	b.WriteString("**\n\n")
	b.WriteString(d.Body)
	return b.String()
}
