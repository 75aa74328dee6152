package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/reach-identity/config"
	"github.com/oksasatya/reach-identity/internal/infrastructure/notify"
	"github.com/oksasatya/reach-identity/pkg/helpers"
	"github.com/oksasatya/reach-identity/pkg/mailer"
	"github.com/oksasatya/reach-identity/pkg/sms"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-notify-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; notify worker disabled (no email or SMS will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" || cfg.RabbitMQSMSQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		log.Fatal("Mailgun not configured")
	}
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromPhone == "" {
		log.Fatal("Twilio not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	w := &notify.Worker{
		Mail: mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender),
		SMS:  sms.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromPhone),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for queue, handle := range map[string]func(context.Context, []byte) error{
		cfg.RabbitMQEmailQueue: w.HandleEmail,
		cfg.RabbitMQSMSQueue:   w.HandleSMS,
	} {
		if err := helpers.DeclareQueue(ch, queue); err != nil {
			log.Fatalf("queue declare %s: %v", queue, err)
		}
		msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			log.Fatalf("consume %s: %v", queue, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			consume(ctx, logger, queue, msgs, handle)
		}()
		logger.WithField("queue", queue).Info("notify worker listening")
	}

	<-ctx.Done()
	logger.Info("shutting down...")
	_ = ch.Close()
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

// consume acks delivered jobs, drops poison messages and requeues transient failures.
func consume(ctx context.Context, logger *logrus.Logger, queue string, msgs <-chan amqp.Delivery, handle func(context.Context, []byte) error) {
	for msg := range msgs {
		c, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := handle(c, msg.Body)
		cancel()
		switch {
		case err == nil:
			_ = msg.Ack(false)
		case errors.Is(err, notify.ErrPoisonMessage):
			logger.WithError(err).WithField("queue", queue).Warn("dropping bad message")
			_ = msg.Nack(false, false)
		default:
			logger.WithError(err).WithField("queue", queue).Warn("send failed; requeueing")
			_ = msg.Nack(false, true)
		}
	}
}
