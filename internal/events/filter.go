package events

import "github.com/kimhons/lumina-ai-sub002/pkg/api"

// Filter decides whether a subscriber receives an event
type Filter func(*api.Event) bool

// FilterInstance matches events belonging to one workflow instance
func FilterInstance(id api.InstanceID) Filter {
	return func(ev *api.Event) bool {
		return ev.InstanceID == id
	}
}

// FilterTypes matches events of any of the given types
func FilterTypes(types ...api.EventType) Filter {
	match := make(map[api.EventType]struct{}, len(types))
	for _, t := range types {
		match[t] = struct{}{}
	}
	return func(ev *api.Event) bool {
		_, ok := match[ev.Type]
		return ok
	}
}

// AndFilters matches only events accepted by every given filter
func AndFilters(filters ...Filter) Filter {
	return func(ev *api.Event) bool {
		for _, f := range filters {
			if !f(ev) {
				return false
			}
		}
		return true
	}
}
