package db

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fasal/globals"
)

var (
	UserCollection         *mongo.Collection
	JobsCollection         *mongo.Collection
	ApplicationsCollection *mongo.Collection
	WorkersCollection      *mongo.Collection
	Client                 *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	var err error
	Client, err = mongo.Connect(globals.Ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	database := Client.Database("fasaldb")
	UserCollection = database.Collection("users")
	JobsCollection = database.Collection("jobs")
	ApplicationsCollection = database.Collection("applications")
	WorkersCollection = database.Collection("workers")
}
