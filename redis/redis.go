package redis

import (
	"context"

	"github.com/go-redis/redis/v8"
)

var Ctx = context.Background()

var Client *redis.Client

// Setup connects the shared redis client. Called once from main.
func Setup(uri string) {
	options, err := redis.ParseURL(uri)
	if err != nil {
		panic(err)
	}

	Client = redis.NewClient(options)
}

type Message = redis.Message

const ErrNil = redis.Nil

type StringCmd = redis.StringCmd

type Pipeliner = redis.Pipeliner

type StringStringMapCmd = redis.StringStringMapCmd

type PubSub = redis.PubSub
