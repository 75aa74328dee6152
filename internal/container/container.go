package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/oksasatya/reach-identity/config"
	"github.com/oksasatya/reach-identity/pkg/helpers"
	"github.com/oksasatya/reach-identity/pkg/mailer"
	"github.com/oksasatya/reach-identity/pkg/sms"
)

// app-level container to share constructed components across packages.
// The router wires modules from these singletons; nil means "not configured".

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	mongoClient *mongo.Client
	redisClient *redis.Client
	registry    *prometheus.Registry

	mailgunClient *mailer.Mailgun
	twilioClient  *sms.Twilio
	rabbitPub     *helpers.RabbitPublisher
	esClient      *elasticsearch.Client
)

func SetConfig(c *config.Config)              { cfg = c }
func GetConfig() *config.Config               { return cfg }
func SetLogger(l *logrus.Logger)              { logger = l }
func GetLogger() *logrus.Logger               { return logger }
func SetPGPool(p *pgxpool.Pool)               { pgPool = p }
func GetPGPool() *pgxpool.Pool                { return pgPool }
func SetMongo(c *mongo.Client)                { mongoClient = c }
func GetMongo() *mongo.Client                 { return mongoClient }
func SetRedis(r *redis.Client)                { redisClient = r }
func GetRedis() *redis.Client                 { return redisClient }
func SetRegistry(r *prometheus.Registry)      { registry = r }
func GetRegistry() *prometheus.Registry       { return registry }
func SetMailgun(m *mailer.Mailgun)            { mailgunClient = m }
func GetMailgun() *mailer.Mailgun             { return mailgunClient }
func SetTwilio(t *sms.Twilio)                 { twilioClient = t }
func GetTwilio() *sms.Twilio                  { return twilioClient }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }

// Reset clears every singleton. Tests only.
func Reset() {
	cfg, logger, pgPool, mongoClient, redisClient, registry = nil, nil, nil, nil, nil, nil
	mailgunClient, twilioClient, rabbitPub, esClient = nil, nil, nil, nil
}
