package voting

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"

	"github.com/campuselect/api.vote.campuselect.dev/mongo"
	"github.com/campuselect/api.vote.campuselect.dev/redis"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CountersKey is the redis hash of live per-candidate counters for an
// election, keyed by "<position>:<candidate>" reference pairs.
func CountersKey(electionID string) string {
	return fmt.Sprintf("election:votes:%s:candidates", electionID)
}

// EventChannel carries committed vote events for the live results feed.
func EventChannel(electionID string) string {
	return fmt.Sprintf("events:election:vote:%s", electionID)
}

// VoteEvent is the pub/sub payload for one committed selection.
type VoteEvent struct {
	Position  string `json:"position"`
	Candidate string `json:"candidate"`
}

type redisPublisher struct{}

func NewRedisPublisher() Publisher {
	return redisPublisher{}
}

// PublishVotes bumps the live counters and notifies feed subscribers in a
// single pipeline. Errors are logged, the committed ballot stands either
// way.
func (redisPublisher) PublishVotes(ctx context.Context, electionID string, votes []mongo.Vote) {
	if len(votes) == 0 {
		return
	}

	pipe := redis.Client.Pipeline()

	events := make([]VoteEvent, len(votes))
	for i, v := range votes {
		events[i] = VoteEvent{Position: v.Position, Candidate: v.Candidate}
		pipe.HIncrBy(ctx, CountersKey(electionID), v.Position+":"+v.Candidate, 1)
	}

	payload, err := json.MarshalToString(events)
	if err != nil {
		log.Errorf("json, err=%v", err)
	} else {
		pipe.Publish(ctx, EventChannel(electionID), payload)
	}

	if _, err = pipe.Exec(ctx); err != nil {
		log.Errorf("vote-pipe, err=%v", err)
	}
}
