package introspect

import (
	"errors"
	"fmt"
	"reflect"
	"scopebind/internal/engine/hierarchy"
	"sort"
)

// WriteError reports a value that could not be assigned to its site.
type WriteError struct {
	Site string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Site, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer assigns resolved values through the targets produced by Inspector.
// Collection values arrive as []any and are converted to the site's slice or array
// type.
type Writer struct{}

func (Writer) WriteField(site *hierarchy.Site, value any) (err error) {
	defer recoverWrite(site.String(), &err)

	target, ok := site.Target.(FieldTarget)
	if !ok {
		return &WriteError{Site: site.String(), Err: fmt.Errorf("unsupported target %T", site.Target)}
	}
	if !target.Exported {
		return &WriteError{Site: site.String(), Err: errors.New("field is not exported")}
	}
	rv := reflect.ValueOf(site.Member)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &WriteError{Site: site.String(), Err: errors.New("member is not a non-nil pointer")}
	}
	field := rv.Elem().FieldByIndex(target.Index)
	v, err := convert(value, field.Type(), site.Collection)
	if err != nil {
		return &WriteError{Site: site.String(), Err: err}
	}
	field.Set(v)
	return nil
}

// InvokeMethod calls the method shared by sites with args in site order. A method
// returning a non-nil error as its last result fails the write.
func (Writer) InvokeMethod(sites []*hierarchy.Site, args []any) (err error) {
	if len(sites) == 0 {
		return nil
	}
	name := sites[0].String()
	defer recoverWrite(name, &err)

	if len(sites) != len(args) {
		return &WriteError{Site: name, Err: fmt.Errorf("%d sites but %d values", len(sites), len(args))}
	}
	type param struct {
		site  *hierarchy.Site
		index int
		value any
	}
	params := make([]param, 0, len(sites))
	var method string
	for i, s := range sites {
		target, ok := s.Target.(ParamTarget)
		if !ok {
			return &WriteError{Site: s.String(), Err: fmt.Errorf("unsupported target %T", s.Target)}
		}
		if target.Arity != len(sites) {
			return &WriteError{Site: s.String(), Err: fmt.Errorf("method takes %d parameters, %d resolved", target.Arity, len(sites))}
		}
		method = target.Method
		params = append(params, param{site: s, index: target.Param, value: args[i]})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].index < params[j].index })

	fn := reflect.ValueOf(sites[0].Member).MethodByName(method)
	if !fn.IsValid() {
		return &WriteError{Site: name, Err: fmt.Errorf("method %s not found", method)}
	}
	in := make([]reflect.Value, len(params))
	for i, p := range params {
		v, err := convert(p.value, fn.Type().In(i), p.site.Collection)
		if err != nil {
			return &WriteError{Site: p.site.String(), Err: err}
		}
		in[i] = v
	}
	out := fn.Call(in)
	if n := len(out); n > 0 {
		if e, ok := out[n-1].Interface().(error); ok && e != nil {
			return &WriteError{Site: name, Err: e}
		}
	}
	return nil
}

func recoverWrite(site string, err *error) {
	if rec := recover(); rec != nil {
		*err = &WriteError{Site: site, Err: fmt.Errorf("panic: %v", rec)}
	}
}

func convert(value any, t reflect.Type, collection bool) (reflect.Value, error) {
	if !collection {
		return assignable(value, t)
	}
	items, ok := value.([]any)
	if !ok {
		return reflect.Value{}, fmt.Errorf("collection value must be []any, got %T", value)
	}
	switch t.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			v, err := assignable(item, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(v)
		}
		return out, nil
	case reflect.Array:
		if len(items) > t.Len() {
			return reflect.Value{}, fmt.Errorf("%d values do not fit %s", len(items), t)
		}
		out := reflect.New(t).Elem()
		for i, item := range items {
			v, err := assignable(item, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(v)
		}
		return out, nil
	default:
		return reflect.Value{}, fmt.Errorf("cannot assign a collection to %s", t)
	}
}

func assignable(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(value)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("cannot assign %s to %s", v.Type(), t)
	}
	return v, nil
}
