package db

import (
	"strconv"

	"hermannm.dev/enumnames"
	"hermannm.dev/wrap"
)

// Stored in the event_type column of website events. The zero value means no restriction.
type EventType int8

const (
	EventTypePageView    EventType = 1
	EventTypeCustomEvent EventType = 2
)

var eventTypeMap = enumnames.NewMap(map[EventType]string{
	EventTypePageView:    "pageView",
	EventTypeCustomEvent: "customEvent",
})

// Accepts both the name and the stored integer value of an event type.
func ParseEventType(value string) (EventType, error) {
	for _, eventType := range []EventType{EventTypePageView, EventTypeCustomEvent} {
		if eventType.String() == value || strconv.Itoa(int(eventType)) == value {
			return eventType, nil
		}
	}

	return 0, wrap.Errorf(ErrInvalidEventType, "unrecognized event type '%s'", value)
}

func (eventType EventType) IsValid() bool {
	_, ok := eventTypeMap.GetName(eventType)
	return ok
}

func (eventType EventType) String() string {
	return eventTypeMap.GetNameOrFallback(eventType, "INVALID_EVENT_TYPE")
}

func (eventType EventType) MarshalJSON() ([]byte, error) {
	return eventTypeMap.MarshalToNameJSON(eventType)
}

func (eventType *EventType) UnmarshalJSON(bytes []byte) error {
	return eventTypeMap.UnmarshalFromNameJSON(bytes, eventType)
}

// Custom event names counted as link clicks.
const (
	EventNameCustomLinkClick = "Custom Link Click"
	EventNameSocialLinkClick = "Social Link Click"
)

var LinkClickEventNames = []string{EventNameSocialLinkClick, EventNameCustomLinkClick}

// Key in event data under which link click events store the clicked URL.
const LinkURLDataKey = "link_url"
