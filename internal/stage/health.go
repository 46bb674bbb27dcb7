package stage

import "errors"

// Health summarizes the readiness of a pipeline stage before a run starts.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// HealthFromError maps a readiness probe result to a Health record.
func HealthFromError(name string, err error) Health {
	if err == nil {
		return Healthy(name)
	}
	return Unhealthy(name, err.Error())
}

// FirstUnhealthy returns the first stage that is not ready, if any.
func FirstUnhealthy(checks []Health) (Health, bool) {
	for _, h := range checks {
		if !h.Ready {
			return h, true
		}
	}
	return Health{}, false
}

// ErrNotReady is returned by runners refusing to start on failed health checks.
var ErrNotReady = errors.New("stage not ready")
