package dataaggregator

import (
	"context"
	"errors"
	"reflect"

	"github.com/rs/zerolog/log"
)

var ErrNoMatchingSource = errors.New("failed to find a matching Data Source for type")

type Aggregator struct {
	Sources []DataSource
}

var GlobalAggregator Aggregator

func (a *Aggregator) RegisterSource(source DataSource) {
	a.Sources = append(a.Sources, source)

	log.Debug().Str("name", source.GetName()).Msg("Registering new Data Source")
}

// Lookup asks the global aggregator for a T matching the query
func Lookup[T any](ctx context.Context, query any) (T, error) {
	return LookupWith[T](ctx, &GlobalAggregator, query)
}

// LookupWith returns the answer of the first registered source that supports T
func LookupWith[T any](ctx context.Context, aggregator *Aggregator, query any) (T, error) {
	var empty T

	lookupType := reflect.TypeOf(*new(T))
	if lookupType.Kind() == reflect.Pointer {
		lookupType = lookupType.Elem()
	}

	for _, source := range aggregator.Sources {
		matches := false

		for _, supportedType := range source.Supports() {
			if lookupType == supportedType {
				matches = true
				break
			}
		}

		if !matches {
			continue
		}

		returnValue, returnError := source.Lookup(ctx, query)

		if returnValue == nil {
			return empty, returnError
		}

		typed, ok := returnValue.(T)
		if !ok {
			return empty, ErrNoMatchingSource
		}

		return typed, returnError
	}

	return empty, ErrNoMatchingSource
}
