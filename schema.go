package vecrag

import (
	"fmt"
	"reflect"
	"strings"
)

const tagKey = "vecrag"

// schemaMeta holds parsed struct tag metadata, cached per TypedIndex.
type schemaMeta struct {
	typ     reflect.Type
	idIdx   int
	textIdx int
}

// parseSchema reflects on T and finds the id and text fields.
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("vecrag: type parameter is an interface")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("vecrag: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, idIdx: -1, textIdx: -1}
	for i := range t.NumField() {
		f := t.Field(i)
		tag := strings.TrimSpace(f.Tag.Get(tagKey))
		if tag == "" || tag == "-" {
			continue
		}
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
	}

	if meta.idIdx == -1 {
		return nil, fmt.Errorf("vecrag: no field with `vecrag:\"id\"` tag in %s", t)
	}
	if meta.textIdx == -1 {
		return nil, fmt.Errorf("vecrag: no field with `vecrag:\"text\"` tag in %s", t)
	}
	return meta, nil
}

func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string) error {
	switch tag {
	case "id":
		if meta.idIdx != -1 {
			return fmt.Errorf("vecrag: duplicate id tag on field %s", f.Name)
		}
		switch f.Type.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		default:
			return fmt.Errorf("vecrag: id field %s must be an integer, got %s", f.Name, f.Type)
		}
		meta.idIdx = idx
	case "text":
		if meta.textIdx != -1 {
			return fmt.Errorf("vecrag: duplicate text tag on field %s", f.Name)
		}
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("vecrag: text field %s must be a string, got %s", f.Name, f.Type)
		}
		meta.textIdx = idx
	default:
		return fmt.Errorf("vecrag: unknown tag %q on field %s", tag, f.Name)
	}
	return nil
}

// toDocument converts a typed struct to a Document.
func (m *schemaMeta) toDocument(item any) (Document, error) {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return Document{}, fmt.Errorf("vecrag: nil item")
		}
		v = v.Elem()
	}

	idv := v.Field(m.idIdx)
	var id uint64
	switch idv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if idv.Int() < 0 {
			return Document{}, fmt.Errorf("vecrag: negative id %d", idv.Int())
		}
		id = uint64(idv.Int())
	default:
		id = idv.Uint()
	}

	return Document{ID: id, Text: v.Field(m.textIdx).String()}, nil
}
