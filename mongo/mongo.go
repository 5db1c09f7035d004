package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	log "github.com/sirupsen/logrus"
)

const (
	CollectionElections    = "elections"
	CollectionVoters       = "voters"
	CollectionPositions    = "positions"
	CollectionCandidates   = "candidates"
	CollectionVotes        = "votes"
	CollectionActivityLogs = "activitylogs"
)

var Client *mongo.Client
var Database *mongo.Database
var Ctx = context.TODO()

var ErrNoDocuments = mongo.ErrNoDocuments

// Setup connects to mongodb and ensures indexes. Called once from main so
// that importing this package for its document types has no side effects.
func Setup(uri, db string) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(Ctx, clientOptions)
	if err != nil {
		panic(err)
	}

	err = client.Ping(Ctx, nil)
	if err != nil {
		panic(err)
	}

	Client = client
	Database = client.Database(db)

	_, err = Database.Collection(CollectionVoters).Indexes().CreateMany(Ctx, []mongo.IndexModel{
		{Keys: bson.M{"voter_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "election_id", Value: 1}, {Key: "has_voted", Value: 1}}},
	})
	if err != nil {
		log.Errorf("mongodb, err=%v", err)
	}

	_, err = Database.Collection(CollectionVotes).Indexes().CreateMany(Ctx, []mongo.IndexModel{
		{Keys: bson.M{"election_id": 1}},
		{Keys: bson.M{"voter": 1}},
	})
	if err != nil {
		log.Errorf("mongodb, err=%v", err)
	}

	_, err = Database.Collection(CollectionElections).Indexes().CreateOne(Ctx, mongo.IndexModel{
		Keys: bson.M{"is_current": 1},
	})
	if err != nil {
		log.Errorf("mongodb, err=%v", err)
	}
}
