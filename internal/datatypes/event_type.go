// Package datatypes defines shared types for events published by the idea services.
package datatypes

// EventType represents an idea lifecycle event as an enum.
// Use String() to get the string representation for logs and metrics.
type EventType uint16

// Event type constants; string form is given in eventTypeMap.
const (
	IdeaCreated EventType = iota
	IdeaImported
	IdeaEmbedded
	IdeaDeleted
)

// eventTypeMap maps string representations to EventType enums.
// This is the single source of truth for valid event type strings.
var eventTypeMap = map[string]EventType{
	"idea.created":  IdeaCreated,
	"idea.imported": IdeaImported,
	"idea.embedded": IdeaEmbedded,
	"idea.deleted":  IdeaDeleted,
}

// reverseEventTypeMap maps EventType enums to string representations.
// Built at init time from eventTypeMap for O(1) lookups.
var reverseEventTypeMap map[EventType]string

func init() {
	reverseEventTypeMap = make(map[EventType]string, len(eventTypeMap))
	for str, eventType := range eventTypeMap {
		reverseEventTypeMap[eventType] = str
	}
}

// String returns the string representation of an EventType.
// Returns empty string for invalid event types.
func (et EventType) String() string {
	str, ok := reverseEventTypeMap[et]
	if !ok {
		return ""
	}

	return str
}

// GetAllEventTypes returns all valid event type strings.
// The order is not guaranteed (map iteration order).
func GetAllEventTypes() []string {
	types := make([]string, 0, len(eventTypeMap))
	for k := range eventTypeMap {
		types = append(types, k)
	}

	return types
}

// IsValidEventType checks if an event type string is valid.
func IsValidEventType(eventType string) bool {
	_, ok := eventTypeMap[eventType]

	return ok
}

