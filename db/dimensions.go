package db

import (
	"hermannm.dev/enumnames"
	"hermannm.dev/wrap"
)

// An event or session attribute that results can be filtered by. The set is closed: every
// dimension maps to a fixed physical column, so no caller-supplied text ever becomes an
// identifier in generated queries.
type Dimension int8

const (
	DimensionURL Dimension = iota + 1
	DimensionReferrer
	DimensionTitle
	DimensionQuery
	DimensionHost
	DimensionEvent
	DimensionTag
	DimensionOS
	DimensionBrowser
	DimensionDevice
	DimensionScreen
	DimensionLanguage
	DimensionCountry
	DimensionRegion
	DimensionCity
)

var dimensionMap = enumnames.NewMap(map[Dimension]string{
	DimensionURL:      "url",
	DimensionReferrer: "referrer",
	DimensionTitle:    "title",
	DimensionQuery:    "query",
	DimensionHost:     "host",
	DimensionEvent:    "event",
	DimensionTag:      "tag",
	DimensionOS:       "os",
	DimensionBrowser:  "browser",
	DimensionDevice:   "device",
	DimensionScreen:   "screen",
	DimensionLanguage: "language",
	DimensionCountry:  "country",
	DimensionRegion:   "region",
	DimensionCity:     "city",
})

type dimensionColumn struct {
	name string
	// Session-scoped columns live on the session table in normalized schemas.
	sessionScoped bool
}

var dimensionColumns = map[Dimension]dimensionColumn{
	DimensionURL:      {name: "url_path"},
	DimensionReferrer: {name: "referrer_domain"},
	DimensionTitle:    {name: "page_title"},
	DimensionQuery:    {name: "url_query"},
	DimensionHost:     {name: "hostname"},
	DimensionEvent:    {name: "event_name"},
	DimensionTag:      {name: "tag"},
	DimensionOS:       {name: "os", sessionScoped: true},
	DimensionBrowser:  {name: "browser", sessionScoped: true},
	DimensionDevice:   {name: "device", sessionScoped: true},
	DimensionScreen:   {name: "screen", sessionScoped: true},
	DimensionLanguage: {name: "language", sessionScoped: true},
	DimensionCountry:  {name: "country", sessionScoped: true},
	DimensionRegion:   {name: "subdivision1", sessionScoped: true},
	DimensionCity:     {name: "city", sessionScoped: true},
}

// All dimensions, in declaration order.
var Dimensions = []Dimension{
	DimensionURL,
	DimensionReferrer,
	DimensionTitle,
	DimensionQuery,
	DimensionHost,
	DimensionEvent,
	DimensionTag,
	DimensionOS,
	DimensionBrowser,
	DimensionDevice,
	DimensionScreen,
	DimensionLanguage,
	DimensionCountry,
	DimensionRegion,
	DimensionCity,
}

func ParseDimension(name string) (Dimension, error) {
	for _, dimension := range Dimensions {
		if dimension.String() == name {
			return dimension, nil
		}
	}

	return 0, wrap.Errorf(ErrUnknownDimension, "'%s'", name)
}

// Returns the physical column for the dimension, or ErrUnknownDimension if it is outside the
// dimension table.
func (dimension Dimension) Column() (name string, sessionScoped bool, err error) {
	column, ok := dimensionColumns[dimension]
	if !ok {
		return "", false, wrap.Errorf(ErrUnknownDimension, "dimension value %d", dimension)
	}

	return column.name, column.sessionScoped, nil
}

func (dimension Dimension) IsSessionScoped() bool {
	return dimensionColumns[dimension].sessionScoped
}

func (dimension Dimension) IsValid() bool {
	_, ok := dimensionMap.GetName(dimension)
	return ok
}

func (dimension Dimension) String() string {
	return dimensionMap.GetNameOrFallback(dimension, "INVALID_DIMENSION")
}

func (dimension Dimension) MarshalJSON() ([]byte, error) {
	return dimensionMap.MarshalToNameJSON(dimension)
}

func (dimension *Dimension) UnmarshalJSON(bytes []byte) error {
	return dimensionMap.UnmarshalFromNameJSON(bytes, dimension)
}
