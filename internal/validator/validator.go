// Package validator wires go-playground/validator into Gin's binding layer
// and renders validation failures as field → message maps in English.
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	setupOnce sync.Once
	trans     ut.Translator
)

// Setup registers JSON tag names and English translations on the binding
// engine. Safe to call more than once; only the first call does work.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			return
		}

		// Error messages should name the JSON field the client sent, not
		// the Go struct field.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if tag == "-" {
				return ""
			}
			return tag
		})

		locale := en.New()
		trans, _ = ut.New(locale, locale).GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, trans)
	})
}

// Bind decodes and validates the JSON request body into dst. It returns nil
// on success, or a field → message map describing what failed.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var verr govalidator.ValidationErrors
	if errors.As(err, &verr) {
		fields := make(map[string]string, len(verr))
		for _, fe := range verr {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Syntax errors and type mismatches have no field to blame.
	return map[string]string{"detail": err.Error()}
}
