package rest

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/campuselect/api.vote.campuselect.dev/election"
	"github.com/campuselect/api.vote.campuselect.dev/redis"
	"github.com/campuselect/api.vote.campuselect.dev/utils"
	"github.com/campuselect/api.vote.campuselect.dev/voting"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type liveMessage struct {
	Type     string             `json:"type"`
	Counters map[string]string  `json:"counters,omitempty"`
	Votes    []voting.VoteEvent `json:"votes,omitempty"`
}

// liveGate resolves the current election before the websocket upgrade so
// a missing election is still an ordinary 404.
func liveGate(elections *election.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.SendStatus(426)
		}
		current, err := elections.Current(c.Context())
		if err != nil {
			return apiError(c, err)
		}
		c.Locals("election_id", current.ID.Hex())
		return c.Next()
	}
}

// liveFeed streams committed vote events for the current election. Each
// connection gets the current counters once, then every vote event as it
// commits, with a HEARTBEAT every 60s.
func liveFeed() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		electionID, _ := c.Locals("election_id").(string)
		if electionID == "" {
			return
		}
		sessionID := uuid.NewString()

		sub := redis.Client.Subscribe(redis.Ctx, voting.EventChannel(electionID))
		defer sub.Close()

		mtx := &sync.Mutex{}
		closeChan := make(chan struct{})

		write := func(data []byte) error {
			mtx.Lock()
			defer mtx.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		counters, err := redis.Client.HGetAll(context.Background(), voting.CountersKey(electionID)).Result()
		if err != nil && err != redis.ErrNil {
			log.Errorf("redis, err=%v", err)
		} else {
			data, err := json.Marshal(liveMessage{Type: "counters", Counters: counters})
			if err != nil {
				log.Errorf("json, err=%v", err)
			} else if err = write(data); err != nil {
				return
			}
		}

		go func() {
			ch := sub.Channel()
			for {
				select {
				case <-closeChan:
					return
				case msg, ok := <-ch:
					if !ok {
						return
					}
					votes := []voting.VoteEvent{}
					if err := json.UnmarshalFromString(msg.Payload, &votes); err != nil {
						log.Errorf("json, err=%v", err)
						continue
					}
					data, err := json.Marshal(liveMessage{Type: "votes", Votes: votes})
					if err != nil {
						log.Errorf("json, err=%v", err)
						continue
					}
					if err = write(data); err != nil {
						return
					}
				}
			}
		}()

		go func() {
			for {
				select {
				case <-time.After(60 * time.Second):
					if err := write(utils.S2B("HEARTBEAT")); err != nil {
						return
					}
				case <-closeChan:
					return
				}
			}
		}()

		log.Debugf("live feed connected, session=%s election=%s", sessionID, electionID)
		defer close(closeChan)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	})
}
