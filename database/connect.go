package database

import (
	"cardhub/config"
	"cardhub/dto/model"
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var MongoClient *mongo.Client

func ConnectDB() {
	var err error

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		config.Config("DB_HOST", "localhost"),
		config.Config("DB_USER", ""),
		config.Config("DB_PASSWORD", ""),
		config.Config("DB_NAME", "cardhub"),
		config.Config("DB_PORT", "5432"),
		config.Config("DB_SSLMODE", "disable"))

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		panic("failed to connect to database")
	}

	sqlDB, err := DB.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(config.ConfigInt("DB_MAX_OPEN_CONNS", 25))
		sqlDB.SetMaxIdleConns(config.ConfigInt("DB_MAX_IDLE_CONNS", 5))
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	fmt.Println("Connection Opened to Database")

	err = DB.AutoMigrate(&model.Card{}, &model.ActivationLog{})
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	fmt.Println("Database Migrated")
}

// SetupMongoDB connects when MONGODB_URI is set and reports whether it did.
func SetupMongoDB() bool {
	uri := config.Config("MONGODB_URI", "")
	if uri == "" {
		log.Println("MONGODB_URI not set, raw response audit disabled")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	MongoClient, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		panic("failed to connect to MongoDB")
	}
	if err := MongoClient.Ping(ctx, nil); err != nil {
		log.Printf("MongoDB ping failed: %v", err)
	}

	log.Println("Connected to MongoDB")
	return true
}

func GetCollection(databaseName, collectionName string) *mongo.Collection {
	return MongoClient.Database(databaseName).Collection(collectionName)
}

func Close() {
	if MongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := MongoClient.Disconnect(ctx); err != nil {
			log.Printf("MongoDB disconnect: %v", err)
		}
	}
	if RedisClient != nil {
		RedisClient.Close()
	}
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
