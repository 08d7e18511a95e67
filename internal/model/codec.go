package model

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// timeLayouts are tried in order when a timestamp arrives as a string, which
// is how the Postgres backend and JSON clients carry them.
var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func stringToTimeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("invalid timestamp %q", s)
}

func newDecoder(out interface{}, strict bool) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: !strict,
		ErrorUnused:      strict,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(stringToTimeHook),
	})
}

// decodeFields decodes stored fields into out. Stored documents are decoded
// leniently: numbers may arrive as float64 or int64 depending on the backend,
// and arrays as []interface{}.
func decodeFields(fields map[string]interface{}, out interface{}) error {
	dec, err := newDecoder(out, false)
	if err != nil {
		return err
	}
	if err := dec.Decode(fields); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// decodeStrict decodes client-supplied fields, rejecting unknown keys and
// values of the wrong type.
func decodeStrict(fields map[string]interface{}, out interface{}) error {
	dec, err := newDecoder(out, true)
	if err != nil {
		return err
	}
	return dec.Decode(fields)
}

func stringSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

func optionalTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}
