package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const subscribersCollection = "newsletter_subscribers"

type Subscriber struct {
	Email      string    `bson:"email"`
	Token      string    `bson:"token"`
	Subscribed bool      `bson:"subscribed"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

// SubscribersStore keeps newsletter subscriptions. The token is the
// single-use value embedded in subscribe/unsubscribe links.
type SubscribersStore struct {
	conn *Connector
}

func NewSubscribersStore(conn *Connector) *SubscribersStore {
	return &SubscribersStore{conn: conn}
}

func (s *SubscribersStore) Subscribe(ctx context.Context, email, token string) error {
	coll, err := s.conn.Collection("", subscribersCollection)
	if err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	_, err = coll.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$set": Subscriber{
			Email:      email,
			Token:      token,
			Subscribed: true,
			UpdatedAt:  time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert subscriber: %w", err)
	}
	return nil
}

// Unsubscribe reports false when no subscription matched email and token.
func (s *SubscribersStore) Unsubscribe(ctx context.Context, email, token, nextToken string) (bool, error) {
	coll, err := s.conn.Collection("", subscribersCollection)
	if err != nil {
		return false, err
	}
	res, err := coll.UpdateOne(ctx,
		bson.M{"email": strings.ToLower(strings.TrimSpace(email)), "token": token},
		bson.M{"$set": bson.M{
			"subscribed": false,
			"token":      nextToken,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("update subscriber: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// Resubscribe reactivates an unsubscribed address holding token, the value
// carried by the link in the unsubscription email, and rotates it.
func (s *SubscribersStore) Resubscribe(ctx context.Context, email, token, nextToken string) (bool, error) {
	coll, err := s.conn.Collection("", subscribersCollection)
	if err != nil {
		return false, err
	}
	res, err := coll.UpdateOne(ctx,
		bson.M{"email": strings.ToLower(strings.TrimSpace(email)), "token": token, "subscribed": false},
		bson.M{"$set": bson.M{
			"subscribed": true,
			"token":      nextToken,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("update subscriber: %w", err)
	}
	return res.MatchedCount > 0, nil
}
