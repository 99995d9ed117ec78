package upstream

import (
	"reflect"
	"time"

	"github.com/busline/busline/pkg/util"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if number, ok := field.Interface().(Number); ok {
			return number.Pointer()
		}
		return nil
	}, Number{})

	v.RegisterValidation("clocktime", func(fl validator.FieldLevel) bool {
		_, err := util.ParseClockTime(fl.Field().String())
		return err == nil
	})

	v.RegisterValidation("rfc3339", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339, fl.Field().String())
		return err == nil
	})

	return v
}

// Validate drops every record failing validation, returning the survivors and how many were dropped
func Validate[T any](kind string, records []T) ([]T, int) {
	valid := make([]T, 0, len(records))
	invalid := 0

	for i := range records {
		if err := validate.Struct(records[i]); err != nil {
			log.Warn().Err(err).Str("kind", kind).Int("index", i).Msg("Skipping invalid upstream record")
			invalid++
			continue
		}

		valid = append(valid, records[i])
	}

	return valid, invalid
}
