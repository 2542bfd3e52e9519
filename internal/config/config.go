package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/caarlos0/env/v11"
)

// validatable is implemented by config sections that check their own values
// after parsing.
type validatable interface {
	Validate() error
}

// New reads configuration from environment variables into a struct of type T
// and validates it. T is either a single section or a struct whose fields are
// sections; every value implementing Validate is checked.
func New[T any]() (T, error) {
	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := validate(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func validate(cfg any) error {
	if v, ok := cfg.(validatable); ok {
		return v.Validate()
	}

	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Struct {
		return nil
	}

	var errs []error
	for i := range rv.NumField() {
		field := rv.Field(i)
		if !field.CanInterface() {
			continue
		}
		if v, ok := field.Interface().(validatable); ok {
			if err := v.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", rv.Type().Field(i).Name, err))
			}
		}
	}

	return errors.Join(errs...)
}
