package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	TypeException     = "exception"
	TypeTrace         = "trace"
	TypeRequest       = "request"
	TypeEntityChanged = "entity.changed"
)

// Event is the message published to the events queue.
type Event struct {
	Type       string            `json:"type"`
	Time       time.Time         `json:"time"`
	Name       string            `json:"name,omitempty"`
	Message    string            `json:"message,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	User       string            `json:"user,omitempty"`
	Status     int               `json:"status,omitempty"`
	DurationMS int64             `json:"duration_ms,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	ArchiveURL string            `json:"archive_url,omitempty"`

	Entity    string          `json:"entity,omitempty"`
	Operation string          `json:"operation,omitempty"`
	EntityID  int             `json:"entity_id,omitempty"`
	Document  json.RawMessage `json:"document,omitempty"`
}

// Publisher is satisfied by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Archiver stores captured request bodies and returns their location.
type Archiver interface {
	Archive(ctx context.Context, name, contentType string, body []byte) (string, error)
}

// Request describes one tracked request.
type Request struct {
	Name        string
	RequestID   string
	User        string
	Status      int
	Duration    time.Duration
	Body        []byte
	ContentType string
}

// Tracker logs telemetry through logrus and forwards it to the events queue.
// A nil Tracker is a no-op.
type Tracker struct {
	Logger    *logrus.Logger
	Publisher Publisher
	Archiver  Archiver
	Now       func() time.Time
}

func NewTracker(logger *logrus.Logger, pub Publisher, arch Archiver) *Tracker {
	return &Tracker{Logger: logger, Publisher: pub, Archiver: arch, Now: time.Now}
}

func (t *Tracker) now() time.Time {
	if t.Now == nil {
		return time.Now().UTC()
	}
	return t.Now().UTC()
}

func (t *Tracker) publish(ctx context.Context, ev Event) {
	if t.Publisher == nil {
		return
	}
	if err := t.Publisher.PublishJSON(ctx, ev); err != nil && t.Logger != nil {
		t.Logger.WithError(err).WithField("type", ev.Type).Warn("publish telemetry failed")
	}
}

func (t *Tracker) TrackException(ctx context.Context, err error, props map[string]string) {
	if t == nil || err == nil {
		return
	}
	ev := Event{Type: TypeException, Time: t.now(), Message: err.Error(), Properties: props, RequestID: props["request_id"]}
	if t.Logger != nil {
		t.Logger.WithError(err).WithFields(fields(props)).Error("exception")
	}
	t.publish(ctx, ev)
}

func (t *Tracker) TrackTrace(ctx context.Context, msg string, props map[string]string) {
	if t == nil {
		return
	}
	if t.Logger != nil {
		t.Logger.WithFields(fields(props)).Info(msg)
	}
	t.publish(ctx, Event{Type: TypeTrace, Time: t.now(), Message: msg, Properties: props})
}

// TrackRequest records a request. A captured body is archived when an
// Archiver is configured.
func (t *Tracker) TrackRequest(ctx context.Context, r Request) {
	if t == nil {
		return
	}
	ev := Event{
		Type:       TypeRequest,
		Time:       t.now(),
		Name:       r.Name,
		RequestID:  r.RequestID,
		User:       r.User,
		Status:     r.Status,
		DurationMS: r.Duration.Milliseconds(),
	}
	if len(r.Body) > 0 {
		if t.Archiver != nil {
			name := ev.Time.Format("2006/01/02/") + r.RequestID
			url, err := t.Archiver.Archive(ctx, name, r.ContentType, r.Body)
			if err != nil && t.Logger != nil {
				t.Logger.WithError(err).WithField("request_id", r.RequestID).Warn("archive request body failed")
			}
			ev.ArchiveURL = url
		} else {
			ev.Properties = map[string]string{"body": string(r.Body)}
		}
	}
	if t.Logger != nil {
		t.Logger.WithFields(logrus.Fields{
			"name":        r.Name,
			"request_id":  r.RequestID,
			"user":        r.User,
			"status":      r.Status,
			"duration_ms": ev.DurationMS,
		}).Info("request")
	}
	t.publish(ctx, ev)
}

// EntityChanged publishes an entity write for search indexing.
func (t *Tracker) EntityChanged(ctx context.Context, entity, op string, id int, doc any) {
	if t == nil {
		return
	}
	ev := Event{Type: TypeEntityChanged, Time: t.now(), Entity: entity, Operation: op, EntityID: id}
	if doc != nil {
		b, err := json.Marshal(doc)
		if err != nil {
			if t.Logger != nil {
				t.Logger.WithError(err).WithField("entity", entity).Warn("marshal entity document failed")
			}
			return
		}
		ev.Document = b
	}
	t.publish(ctx, ev)
}

func fields(props map[string]string) logrus.Fields {
	f := make(logrus.Fields, len(props))
	for k, v := range props {
		f[k] = v
	}
	return f
}
