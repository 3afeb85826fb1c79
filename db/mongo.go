package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"online-admission/config"
	"online-admission/logger"
)

// Collection names of the document store.
const (
	CollSchools    = "schools"
	CollAdmissions = "admissions"
	CollPrograms   = "programs"
	CollStudents   = "students"
	CollLogs       = "logs"
	CollPayments   = "payments"
)

var Mongo *mongo.Database

// InitMongo connects to MONGO_URI and ensures the indexes the admission
// collections rely on.
func InitMongo(ctx context.Context) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.AppConfig.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging mongo: %w", err)
	}

	Mongo = client.Database(config.AppConfig.MongoDatabase)
	if err := EnsureIndexes(ctx, Mongo); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("Connected to mongo database %s", config.AppConfig.MongoDatabase)
	return client, nil
}

func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	unique := func(keys ...string) mongo.IndexModel {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return mongo.IndexModel{Keys: d, Options: options.Index().SetUnique(true)}
	}

	indexes := map[string][]mongo.IndexModel{
		CollSchools:    {unique("school_id")},
		CollAdmissions: {unique("school_id")},
		CollPrograms:   {unique("school_id", "program_id")},
		CollStudents: {
			unique("school_id", "index_number"),
			unique("school_id", "admission_number"),
		},
		CollLogs: {{Keys: bson.D{{Key: "school_id", Value: 1}, {Key: "timestamp", Value: -1}}}},
		CollPayments: {unique("order_id")},
	}

	for coll, models := range indexes {
		if _, err := database.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("error creating %s indexes: %w", coll, err)
		}
	}
	return nil
}
