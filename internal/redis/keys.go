package redisx

import "fmt"

const ns = "gigbook:v1"

// KeyProfileCalendar holds one profile's projected events for a month.
func KeyProfileCalendar(profileID int64, year, month int) string {
	return fmt.Sprintf("%s:profile:%d:calendar:%04d-%02d", ns, profileID, year, month)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdempotency(scope string, profileID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:%s:%d:%s", ns, scope, profileID, idemKey)
}

func ChannelUserNotifications(userID int64) string {
	return fmt.Sprintf("%s:notifications:user:%d", ns, userID)
}
