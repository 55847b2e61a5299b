package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-odata-api/config"
	"github.com/oksasatya/go-odata-api/internal/application"
	"github.com/oksasatya/go-odata-api/pkg/helpers"
	"github.com/oksasatya/go-odata-api/pkg/mailer"
	mailtpl "github.com/oksasatya/go-odata-api/pkg/mailer/templates"
	"github.com/oksasatya/go-odata-api/pkg/telemetry"
)

// errBadMessage marks deliveries that can never be processed.
var errBadMessage = errors.New("bad message")

// indexer is satisfied by application.SearchService.
type indexer interface {
	Apply(ctx context.Context, kind, op string, id int, doc json.RawMessage) error
}

type worker struct {
	Search  indexer
	Mailer  mailer.Sender
	AlertTo string
	AppName string
	Env     string
	Logger  *logrus.Logger
}

// handle processes one event body. A non-nil error other than errBadMessage
// asks for a redelivery.
func (w *worker) handle(ctx context.Context, body []byte) error {
	var ev telemetry.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return errBadMessage
	}
	switch ev.Type {
	case telemetry.TypeEntityChanged:
		if w.Search == nil {
			return nil
		}
		if ev.EntityID == 0 {
			return errBadMessage
		}
		return w.Search.Apply(ctx, strings.ToLower(ev.Entity), ev.Operation, ev.EntityID, ev.Document)
	case telemetry.TypeException:
		if w.Mailer == nil || w.AlertTo == "" {
			return nil
		}
		job := mailer.EmailJob{
			To:       w.AlertTo,
			Template: mailtpl.ExceptionAlert,
			Data: mailtpl.NewExceptionAlertData(w.AppName, w.Env, ev.Message,
				mailtpl.WithRequestID(ev.RequestID),
				mailtpl.WithRoute(ev.Properties["route"]),
				mailtpl.WithTime(ev.Time),
				mailtpl.WithProperties(ev.Properties),
			),
		}
		c, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return mailer.SendJob(c, w.Mailer, job)
	}
	return nil
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-events", cfg.Env)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQEventsQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}

	w := &worker{AppName: cfg.AppName, Env: cfg.Env, AlertTo: cfg.AlertEmailTo, Logger: logger}
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Fatal("failed to init elasticsearch")
		}
		ictx, icancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := helpers.EnsureIndices(ictx, es, cfg.ESUsersIndex, cfg.ESAddressesIndex); err != nil {
			logger.WithError(err).Warn("search indexes not ensured")
		}
		icancel()
		w.Search = application.NewSearchService(es, cfg.ESUsersIndex, cfg.ESAddressesIndex, logger)
	}
	if cfg.MailSendEnabled {
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
			logger.Fatal("Mailgun not configured")
		}
		w.Mailer = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	} else {
		logger.Info("MAIL_SEND_ENABLED=false; exception alerts are not emailed")
	}

	rabbit, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEventsQueue)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to rabbitmq")
	}
	defer rabbit.Close()

	msgs, err := rabbit.Consume(16)
	if err != nil {
		logger.WithError(err).Fatal("consume failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			w.deliver(ctx, msg)
		}
	}()

	logger.WithField("queue", cfg.RabbitMQEventsQueue).Info("event worker listening")
	<-stop
	logger.Info("shutting down...")
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

func (w *worker) deliver(ctx context.Context, msg amqp.Delivery) {
	err := w.handle(ctx, msg.Body)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, errBadMessage):
		w.Logger.WithField("message_id", msg.MessageId).Warn("dropping malformed event")
		_ = msg.Nack(false, false)
	default:
		helpers.LogError(w.Logger, "event failed", err, logrus.Fields{"message_id": msg.MessageId, "requeue": !msg.Redelivered})
		_ = msg.Nack(false, !msg.Redelivered)
	}
}
