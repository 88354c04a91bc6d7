// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package main

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"github.com/griddeck/griddeck/access"
	"github.com/griddeck/griddeck/audit"
	"github.com/griddeck/griddeck/core/logger"
	"github.com/griddeck/griddeck/gateway"
	"github.com/griddeck/griddeck/prefs"
)

// Service holds the configuration for this service. All credentials come
// from the environment; there are no built-in defaults for any of them.
type Service struct {
	Port     string `env:"PORT,default=:3000" description:"the address to listen on"`
	LogLevel string `env:"LOG_LEVEL,default=info" description:"the log level"`

	BaserowURL string `env:"BASEROW_URL,required" description:"the API base URL of the tabular-data service"`
	// comma separated, addressed by index through X-Baserow-Token-Index
	BaserowTokens string `env:"BASEROW_TOKENS,required" description:"comma separated database API tokens"`

	JWTEmail    string `env:"BASEROW_JWT_EMAIL,default=" description:"service account email for JWT routes"`
	JWTPassword string `env:"BASEROW_JWT_PASSWORD,default=" description:"service account password for JWT routes"`

	CookieName    string `env:"SESSION_COOKIE,default=jwt" description:"the session cookie name"`
	SessionSecret string `env:"SESSION_SECRET,default=" description:"HMAC secret for local session validation"`
	ValidateURL   string `env:"SESSION_VALIDATE_URL,default=" description:"remote session validation endpoint"`
	ValidateAuth  string `env:"SESSION_VALIDATE_AUTHORIZATION,default=" description:"authorization header for the validation endpoint"`
	LoginURL      string `env:"LOGIN_URL,default=" description:"the external login page"`

	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=" description:"comma separated origins for credentialed CORS"`

	Postgres       string `env:"POSTGRES,default=" description:"the connection string for the Postgres DB"`
	PostgresSchema string `env:"POSTGRES_SCHEMA,default=griddeck" description:"the database schema"`
	PrefsFolder    string `env:"PREFS_FOLDER,default=" description:"base folder for the filesystem preference store"`

	S3Bucket    string `env:"PREFS_S3_BUCKET,default=" description:"S3 bucket for the preference store"`
	S3Region    string `env:"PREFS_S3_REGION,default=" description:"S3 region for the preference store"`
	S3AccessID  string `env:"PREFS_S3_ACCESS_ID,default=" description:"S3 access id"`
	S3AccessKey string `env:"PREFS_S3_ACCESS_KEY,default=" description:"S3 access key"`
	S3KeyPrefix string `env:"PREFS_S3_KEY_PREFIX,default=" description:"key prefix inside the bucket"`

	KafkaBrokers string `env:"KAFKA_BROKERS,default=" description:"comma separated Kafka brokers for audit events"`
	KafkaTopic   string `env:"KAFKA_AUDIT_TOPIC,default=row_audit" description:"the Kafka topic for audit events"`

	SQSQueueURL  string `env:"SQS_AUDIT_QUEUE_URL,default=" description:"SQS queue URL for audit events"`
	SQSRegion    string `env:"SQS_REGION,default=" description:"SQS region"`
	SQSAccessID  string `env:"SQS_ACCESS_ID,default=" description:"SQS access id"`
	SQSAccessKey string `env:"SQS_ACCESS_KEY,default=" description:"SQS access key"`
}

func main() {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}

	level, err := logrus.ParseLevel(service.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.InitLogger(level)

	router := mux.NewRouter()
	gw := gateway.New(&gateway.Builder{
		Router:         router,
		BaseURL:        service.BaserowURL,
		Tokens:         splitList(service.BaserowTokens),
		JWTEmail:       service.JWTEmail,
		JWTPassword:    service.JWTPassword,
		CookieName:     service.CookieName,
		Verifier:       verifier(service),
		LoginURL:       service.LoginURL,
		AllowedOrigins: splitList(service.AllowedOrigins),
		PrefsStore:     prefsStore(service),
		Notifier:       notifier(service),
	})

	logger.Default().Infoln("listen on port", service.Port)
	logger.Default().Fatal(http.ListenAndServe(service.Port, gw.Handler()))
}

func verifier(service *Service) access.Verifier {
	if service.ValidateURL != "" {
		return access.RemoteVerifier{
			ValidateURL:   service.ValidateURL,
			Authorization: service.ValidateAuth,
		}
	}
	if service.SessionSecret != "" {
		return access.JWTVerifier{Secret: []byte(service.SessionSecret)}
	}
	return nil
}

func prefsStore(service *Service) prefs.Store {
	switch {
	case service.Postgres != "":
		db, err := prefs.OpenWithSchema(service.Postgres, service.PostgresSchema)
		if err != nil {
			panic(err)
		}
		store, err := prefs.NewPostgresStore(db, "gateway")
		if err != nil {
			panic(err)
		}
		return store
	case service.S3Bucket != "":
		store, err := prefs.NewS3Store(prefs.S3Configuration{
			AWSBucketName: service.S3Bucket,
			AWSRegion:     service.S3Region,
			AccessID:      service.S3AccessID,
			AccessKey:     service.S3AccessKey,
			KeyPrefix:     service.S3KeyPrefix,
		})
		if err != nil {
			panic(err)
		}
		return store
	case service.PrefsFolder != "":
		store, err := prefs.NewFilesystemStore(service.PrefsFolder)
		if err != nil {
			panic(err)
		}
		return store
	}
	return nil
}

func notifier(service *Service) audit.Notifier {
	if service.KafkaBrokers != "" {
		return audit.NewKafkaNotifier(splitList(service.KafkaBrokers), service.KafkaTopic)
	}
	if service.SQSQueueURL != "" {
		n, err := audit.NewSQSNotifier(audit.SQSConfiguration{
			QueueURL:  service.SQSQueueURL,
			AWSRegion: service.SQSRegion,
			AccessID:  service.SQSAccessID,
			AccessKey: service.SQSAccessKey,
		})
		if err != nil {
			panic(err)
		}
		return n
	}
	return nil
}

func splitList(value string) []string {
	var result []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
