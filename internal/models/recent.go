// ABOUTME: Helpers for ordered location lists
// ABOUTME: Implements the bounded most-recently-used recent list

package models

// RecentCapacity is the maximum number of entries kept in the recent list.
const RecentCapacity = 5

// PushRecent returns a new list with loc at index 0, any earlier entry with the
// same ID removed, truncated to RecentCapacity. The input slice is not modified.
func PushRecent(list []SavedLocation, loc SavedLocation) []SavedLocation {
	out := make([]SavedLocation, 0, RecentCapacity)
	out = append(out, loc)
	for _, existing := range list {
		if existing.ID == loc.ID {
			continue
		}
		if len(out) == RecentCapacity {
			break
		}
		out = append(out, existing)
	}
	return out
}

// IndexByID returns the index of the entry with the given ID, or -1.
func IndexByID(list []SavedLocation, id int64) int {
	for i, loc := range list {
		if loc.ID == id {
			return i
		}
	}
	return -1
}

// RemoveByID returns a copy of list without the entry for id and whether one was removed.
func RemoveByID(list []SavedLocation, id int64) ([]SavedLocation, bool) {
	idx := IndexByID(list, id)
	if idx < 0 {
		return CloneLocations(list), false
	}
	out := make([]SavedLocation, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	return out, true
}

// CloneLocations returns a shallow copy of list that never aliases it.
func CloneLocations(list []SavedLocation) []SavedLocation {
	out := make([]SavedLocation, len(list))
	copy(out, list)
	return out
}
