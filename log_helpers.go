package main

// shortSID returns a truncated session id for logging (first 8 chars).
// Example: "550e8400-e29b-41d4-a716-446655440000" -> "550e8400"
func shortSID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
