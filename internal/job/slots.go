package job

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/me/gokite/pkg/model"
)

var (
	contextType  = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	viewType     = reflect.TypeOf(model.View{})
	viewListType = reflect.TypeOf([]model.View(nil))
	streamType   = reflect.TypeOf((*model.Stream)(nil)).Elem()
)

// Method is the derived description of a job type's Run method.
type Method struct {
	JobType reflect.Type
	// ArgType is the argument struct type; ArgPtr is true when Run takes
	// a pointer to it.
	ArgType reflect.Type
	ArgPtr  bool
	// Slots are in field declaration order.
	Slots []model.JobParameterSlot

	fields [][]int
}

// Slot returns the slot bound to name.
func (m *Method) Slot(name string) (model.JobParameterSlot, bool) {
	for _, s := range m.Slots {
		if s.BindingName == name {
			return s, true
		}
	}
	return model.JobParameterSlot{}, false
}

type describeResult struct {
	m   *Method
	err error
}

// methods caches Describe results per job type.
var methods sync.Map // reflect.Type -> describeResult

// Describe returns the slot table of job's type. The table is computed once
// per type.
func Describe(job any) (*Method, error) {
	if job == nil {
		return nil, model.BindingError("describe job", "job is nil")
	}
	return DescribeType(reflect.TypeOf(job))
}

// DescribeType is Describe for a reflect.Type.
func DescribeType(t reflect.Type) (*Method, error) {
	if r, ok := methods.Load(t); ok {
		res := r.(describeResult)
		return res.m, res.err
	}
	m, err := describe(t)
	r, _ := methods.LoadOrStore(t, describeResult{m: m, err: err})
	res := r.(describeResult)
	return res.m, res.err
}

func describe(t reflect.Type) (*Method, error) {
	op := "describe " + t.String()
	run, ok := t.MethodByName("Run")
	if !ok {
		return nil, model.BindingError(op, "no Run method")
	}
	ft := run.Type // includes the receiver
	if ft.NumIn() != 3 || ft.In(1) != contextType || ft.NumOut() != 1 || ft.Out(0) != errorType {
		return nil, model.BindingError(op, "Run must have signature func(context.Context, Args) error, got %v", ft)
	}

	m := &Method{JobType: t, ArgType: ft.In(2)}
	if m.ArgType.Kind() == reflect.Pointer {
		m.ArgType = m.ArgType.Elem()
		m.ArgPtr = true
	}
	if m.ArgType.Kind() != reflect.Struct {
		return nil, model.BindingError(op, "Run argument must be a struct or pointer to struct, got %v", ft.In(2))
	}

	seen := make(map[string]string)
	for i := 0; i < m.ArgType.NumField(); i++ {
		f := m.ArgType.Field(i)
		slot, err := parseSlot(f)
		if err != nil {
			return nil, model.BindingError(op, "field %s: %v", f.Name, err)
		}
		if prev, dup := seen[slot.BindingName]; dup {
			return nil, model.BindingError(op, "fields %s and %s both bind %q", prev, f.Name, slot.BindingName)
		}
		seen[slot.BindingName] = f.Name
		m.Slots = append(m.Slots, slot)
		m.fields = append(m.fields, f.Index)
	}
	return m, nil
}

func parseSlot(f reflect.StructField) (model.JobParameterSlot, error) {
	if !f.IsExported() {
		return model.JobParameterSlot{}, fmt.Errorf("unexported fields cannot be bound")
	}
	tag, ok := f.Tag.Lookup("view")
	if !ok {
		return model.JobParameterSlot{}, fmt.Errorf("missing view tag")
	}
	name, dirText, ok := strings.Cut(tag, ",")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return model.JobParameterSlot{}, fmt.Errorf("view tag %q must be \"<binding>,in|out\"", tag)
	}
	dir, err := model.ParseDirection(dirText)
	if err != nil {
		return model.JobParameterSlot{}, err
	}

	slot := model.JobParameterSlot{
		BindingName: name,
		Direction:   dir,
		RecordType:  f.Tag.Get("record"),
		Field:       f.Name,
	}
	switch f.Type {
	case viewType:
		slot.Kind = model.SlotSingleView
	case viewListType:
		slot.Kind = model.SlotViewList
	case streamType:
		if dir != model.DirectionIn {
			return model.JobParameterSlot{}, fmt.Errorf("stream slots must be inputs")
		}
		slot.Kind = model.SlotStreamHandle
	default:
		return model.JobParameterSlot{}, fmt.Errorf("unsupported type %v (want model.View, []model.View or model.Stream)", f.Type)
	}
	return slot, nil
}
