package checkin

import "github.com/futuretech6/youth-zhejiang-check-in/internal/models"

// coalesce prefers the remote value whenever the remote sent one (null is the
// only "absent"), then the configured default. The bool is false when neither
// side supplied a value.
func coalesce(remote *models.FlexString, fallback string) (string, bool) {
	if remote != nil {
		return remote.Value, true
	}
	if fallback != "" {
		return fallback, true
	}
	return "", false
}
