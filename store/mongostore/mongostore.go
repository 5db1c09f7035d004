package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campuselect/api.vote.campuselect.dev/mongo"
	"github.com/campuselect/api.vote.campuselect.dev/store"
)

// Store implements every store port on top of mongodb.
type Store struct {
	client *mongodrv.Client
	db     *mongodrv.Database
}

func New(client *mongodrv.Client, db *mongodrv.Database) *Store {
	return &Store{client: client, db: db}
}

func (s *Store) elections() *mongodrv.Collection  { return s.db.Collection(mongo.CollectionElections) }
func (s *Store) voters() *mongodrv.Collection     { return s.db.Collection(mongo.CollectionVoters) }
func (s *Store) votes() *mongodrv.Collection      { return s.db.Collection(mongo.CollectionVotes) }
func (s *Store) positions() *mongodrv.Collection  { return s.db.Collection(mongo.CollectionPositions) }
func (s *Store) candidates() *mongodrv.Collection { return s.db.Collection(mongo.CollectionCandidates) }

func (s *Store) Current(ctx context.Context) (*mongo.Election, error) {
	election := &mongo.Election{}
	err := s.elections().FindOne(ctx, bson.M{"is_current": true}).Decode(election)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return election, nil
}

func (s *Store) ByID(ctx context.Context, id primitive.ObjectID) (*mongo.Election, error) {
	election := &mongo.Election{}
	err := s.elections().FindOne(ctx, bson.M{"_id": id}).Decode(election)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return election, nil
}

// SetCurrent runs the clear and the set inside one transaction so there is
// no window where zero or two elections are current.
func (s *Store) SetCurrent(ctx context.Context, id primitive.ObjectID) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongodrv.SessionContext) (interface{}, error) {
		res, err := s.elections().UpdateByID(sessCtx, id, bson.M{"$set": bson.M{"is_current": true}})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, store.ErrNotFound
		}
		_, err = s.elections().UpdateMany(sessCtx,
			bson.M{"_id": bson.M{"$ne": id}, "is_current": true},
			bson.M{"$set": bson.M{"is_current": false}},
		)
		return nil, err
	})
	return err
}

func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool, status string) (*mongo.Election, error) {
	election := &mongo.Election{}
	err := s.elections().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_active": active, "status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(election)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return election, nil
}

func (s *Store) SetResultsPublished(ctx context.Context, id primitive.ObjectID, published bool) (*mongo.Election, error) {
	election := &mongo.Election{}
	err := s.elections().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"results_published": published}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(election)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return election, nil
}

func (s *Store) ByVoterID(ctx context.Context, voterID string) (*mongo.Voter, error) {
	voter := &mongo.Voter{}
	err := s.voters().FindOne(ctx, bson.M{"voter_id": voterID}).Decode(voter)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return voter, nil
}

// ClaimBallot commits the conditional has_voted flip, the vote rows and
// the voted_count increment in one transaction. The update filter on
// has_voted=false is the double-vote gate; a concurrent claim for the same
// voter matches zero documents and aborts with ErrAlreadyVoted.
func (s *Store) ClaimBallot(ctx context.Context, claim store.Claim) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongodrv.SessionContext) (interface{}, error) {
		res, err := s.voters().UpdateOne(sessCtx,
			bson.M{"voter_id": claim.VoterID, "has_voted": false},
			bson.M{"$set": bson.M{
				"has_voted":  true,
				"voted_at":   claim.VotedAt,
				"vote_token": claim.Token,
			}},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, store.ErrAlreadyVoted
		}

		if len(claim.Votes) > 0 {
			docs := make([]interface{}, len(claim.Votes))
			for i := range claim.Votes {
				docs[i] = claim.Votes[i]
			}
			if _, err = s.votes().InsertMany(sessCtx, docs); err != nil {
				return nil, err
			}
		}

		_, err = s.elections().UpdateByID(sessCtx, claim.ElectionID,
			bson.M{"$inc": bson.M{"voted_count": 1}})
		return nil, err
	})
	return err
}

func (s *Store) CountByElection(ctx context.Context, electionID primitive.ObjectID) (int64, int64, error) {
	total, err := s.voters().CountDocuments(ctx, bson.M{"election_id": electionID})
	if err != nil {
		return 0, 0, err
	}
	voted, err := s.voters().CountDocuments(ctx, bson.M{"election_id": electionID, "has_voted": true})
	if err != nil {
		return 0, 0, err
	}
	return total, voted, nil
}

func (s *Store) ListVoted(ctx context.Context, electionID primitive.ObjectID, filter store.VoterFilter) ([]mongo.Voter, error) {
	query := bson.M{"election_id": electionID, "has_voted": true}
	if filter.Class != "" {
		query["class"] = filter.Class
	}
	if filter.From != nil || filter.To != nil {
		voted := bson.M{}
		if filter.From != nil {
			voted["$gte"] = *filter.From
		}
		if filter.To != nil {
			voted["$lte"] = *filter.To
		}
		query["voted_at"] = voted
	}

	cursor, err := s.voters().Find(ctx, query, options.Find().SetSort(bson.M{"voted_at": 1}))
	if err != nil {
		return nil, err
	}
	voters := []mongo.Voter{}
	if err = cursor.All(ctx, &voters); err != nil {
		return nil, err
	}
	return voters, nil
}

func (s *Store) ByElection(ctx context.Context, electionID primitive.ObjectID) ([]mongo.Vote, error) {
	cursor, err := s.votes().Find(ctx, bson.M{"election_id": electionID})
	if err != nil {
		return nil, err
	}
	votes := []mongo.Vote{}
	if err = cursor.All(ctx, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}

func (s *Store) Positions(ctx context.Context) ([]mongo.Position, error) {
	cursor, err := s.positions().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"priority": 1}))
	if err != nil {
		return nil, err
	}
	positions := []mongo.Position{}
	if err = cursor.All(ctx, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// Candidates sorts by _id, which preserves registration order.
func (s *Store) Candidates(ctx context.Context) ([]mongo.Candidate, error) {
	cursor, err := s.candidates().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	candidates := []mongo.Candidate{}
	if err = cursor.All(ctx, &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (s *Store) InsertActivityLog(ctx context.Context, entry mongo.ActivityLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := s.db.Collection(mongo.CollectionActivityLogs).InsertOne(ctx, entry)
	return err
}
