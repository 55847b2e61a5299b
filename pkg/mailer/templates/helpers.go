package templates

import (
	"time"
)

// Option pattern
type Option func(*AlertData)

func WithRequestID(id string) Option { return func(d *AlertData) { d.RequestID = id } }
func WithRoute(route string) Option  { return func(d *AlertData) { d.Route = route } }
func WithTime(t time.Time) Option {
	return func(d *AlertData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04:05 MST")
	}
}
func WithProperties(props map[string]string) Option {
	return func(d *AlertData) { d.Properties = props }
}

// NewExceptionAlertData builds the data of an exception alert email.
func NewExceptionAlertData(appName, env, message string, opts ...Option) map[string]any {
	d := AlertData{AppName: appName, Environment: env, Message: message}
	for _, o := range opts {
		o(&d)
	}
	return ToMap(d)
}
