package db

import (
	"hermannm.dev/enumnames"
	"hermannm.dev/wrap"
)

// Comparison applied by a dimension filter. The zero value is treated as OperatorEquals.
type Operator int8

const (
	OperatorEquals Operator = iota + 1
	OperatorNotEquals
	// Case-sensitive substring match.
	OperatorContains
)

var operatorMap = enumnames.NewMap(map[Operator]string{
	OperatorEquals:    "eq",
	OperatorNotEquals: "neq",
	OperatorContains:  "c",
})

func ParseOperator(name string) (Operator, error) {
	for _, operator := range []Operator{OperatorEquals, OperatorNotEquals, OperatorContains} {
		if operator.String() == name {
			return operator, nil
		}
	}

	return 0, wrap.Errorf(ErrInvalidOperator, "unrecognized operator '%s'", name)
}

func (operator Operator) IsValid() bool {
	_, ok := operatorMap.GetName(operator)
	return ok
}

func (operator Operator) String() string {
	return operatorMap.GetNameOrFallback(operator, "INVALID_OPERATOR")
}

func (operator Operator) MarshalJSON() ([]byte, error) {
	return operatorMap.MarshalToNameJSON(operator)
}

func (operator *Operator) UnmarshalJSON(bytes []byte) error {
	return operatorMap.UnmarshalFromNameJSON(bytes, operator)
}
