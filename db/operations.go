package db

import "hermannm.dev/enumnames"

// A named analytics query, implemented once per backend.
type Operation int8

const (
	OperationAggregateStats Operation = iota + 1
	OperationLinkClickStats
	OperationStatsByDay
	OperationClickCounts
)

var operationMap = enumnames.NewMap(map[Operation]string{
	OperationAggregateStats: "aggregateStats",
	OperationLinkClickStats: "linkClickStats",
	OperationStatsByDay:     "statsByDay",
	OperationClickCounts:    "clickCounts",
})

func (operation Operation) IsValid() bool {
	_, ok := operationMap.GetName(operation)
	return ok
}

func (operation Operation) String() string {
	return operationMap.GetNameOrFallback(operation, "INVALID_OPERATION")
}

func (operation Operation) MarshalJSON() ([]byte, error) {
	return operationMap.MarshalToNameJSON(operation)
}

func (operation *Operation) UnmarshalJSON(bytes []byte) error {
	return operationMap.UnmarshalFromNameJSON(bytes, operation)
}
