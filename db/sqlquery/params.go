package sqlquery

import (
	"fmt"

	"hermannm.dev/enumnames"
)

// Type a bound parameter is declared with in the generated query.
type ParamKind int8

const (
	ParamUUID ParamKind = iota + 1
	ParamTimestamp
	ParamString
	ParamInt
)

var paramKindMap = enumnames.NewMap(map[ParamKind]string{
	ParamUUID:      "UUID",
	ParamTimestamp: "TIMESTAMP",
	ParamString:    "STRING",
	ParamInt:       "INT",
})

func (kind ParamKind) IsValid() bool {
	_, ok := paramKindMap.GetName(kind)
	return ok
}

func (kind ParamKind) String() string {
	return paramKindMap.GetNameOrFallback(kind, "INVALID_PARAM_KIND")
}

type Param struct {
	Name  string
	Kind  ParamKind
	Value any
	// 1-based, in bind order.
	Position int
}

// Named query parameters in the order they were first bound. Placeholders are rendered by the
// dialect the Params were created for.
type Params struct {
	dialect   Dialect
	params    []Param
	positions map[string]int
}

func NewParams(dialect Dialect) *Params {
	return &Params{dialect: dialect, positions: make(map[string]int)}
}

// Binds value under name and returns its placeholder. Binding a name again returns the
// placeholder of the first binding, so a parameter can be referenced more than once.
// Panics on an unknown kind.
func (params *Params) Bind(name string, kind ParamKind, value any) string {
	if !kind.IsValid() {
		panic(fmt.Sprintf("invalid kind %d for query parameter '%s'", kind, name))
	}

	if position, ok := params.positions[name]; ok {
		return params.dialect.Placeholder(params.params[position-1])
	}

	param := Param{Name: name, Kind: kind, Value: value, Position: len(params.params) + 1}
	params.params = append(params.params, param)
	params.positions[name] = param.Position

	return params.dialect.Placeholder(param)
}

func (params *Params) Lookup(name string) (Param, bool) {
	position, ok := params.positions[name]
	if !ok {
		return Param{}, false
	}
	return params.params[position-1], true
}

func (params *Params) List() []Param {
	list := make([]Param, len(params.params))
	copy(list, params.params)
	return list
}

// Parameter values in bind order, for drivers with positional arguments.
func (params *Params) Values() []any {
	values := make([]any, len(params.params))
	for i, param := range params.params {
		values[i] = param.Value
	}
	return values
}

func (params *Params) Len() int {
	return len(params.params)
}
