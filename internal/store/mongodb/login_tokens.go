package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"gxshared/internal/domain"
)

const loginTokensCollection = "login_tokens"

type LoginToken struct {
	Token     string     `bson:"token"`
	Email     string     `bson:"email"`
	Purpose   string     `bson:"purpose"`
	ExpiresAt time.Time  `bson:"expires_at"`
	UsedAt    *time.Time `bson:"used_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at"`
}

// LoginTokensStore issues and redeems magic link tokens. A token is valid
// once, for one purpose, until it expires.
type LoginTokensStore struct {
	conn *Connector
	now  func() time.Time
}

func NewLoginTokensStore(conn *Connector) *LoginTokensStore {
	return &LoginTokensStore{conn: conn, now: time.Now}
}

func (s *LoginTokensStore) Issue(ctx context.Context, email, purpose string, ttl time.Duration) (string, error) {
	coll, err := s.conn.Collection("", loginTokensCollection)
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	tok := LoginToken{
		Token:     uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if _, err := coll.InsertOne(ctx, tok); err != nil {
		return "", fmt.Errorf("insert login token: %w", err)
	}
	return tok.Token, nil
}

// Redeem marks the token used and returns its email. Unknown, expired and
// already used tokens return domain.ErrNotFound.
func (s *LoginTokensStore) Redeem(ctx context.Context, token, purpose string) (string, error) {
	coll, err := s.conn.Collection("", loginTokensCollection)
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	var tok LoginToken
	err = coll.FindOneAndUpdate(ctx,
		bson.M{
			"token":      token,
			"purpose":    purpose,
			"used_at":    bson.M{"$exists": false},
			"expires_at": bson.M{"$gt": now},
		},
		bson.M{"$set": bson.M{"used_at": now}},
	).Decode(&tok)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redeem login token: %w", err)
	}
	return tok.Email, nil
}
