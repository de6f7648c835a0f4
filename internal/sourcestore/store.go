package sourcestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names in the legacy database.
const (
	colCommunities = "communities"
	colUsers       = "users"
	colChannels    = "channels"
	colMessages    = "messages"
)

// Store reads the legacy MongoDB database.
type Store struct {
	db *mongo.Database
}

// Open connects to the source store. The returned close function disconnects
// the underlying client.
func Open(ctx context.Context, uri, database string) (*Store, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	return &Store{db: client.Database(database)}, client.Disconnect, nil
}

// NewStore wraps an existing database handle.
func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

type communityDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	Name          string             `bson:"name"`
	Slug          string             `bson:"slug"`
	Owner         primitive.ObjectID `bson:"owner"`
	UsersList     []memberRef        `bson:"usersList"`
	Tags          []string           `bson:"tags"`
	Lore          string             `bson:"lore"`
	Mantras       string             `bson:"mantras"`
	ProfileURL    string             `bson:"profileUrl"`
	BackgroundURL string             `bson:"backgroundUrl"`
	Private       bool               `bson:"private"`
	CreatedAt     time.Time          `bson:"createdAt"`
}

type memberRef struct {
	UserID primitive.ObjectID `bson:"userId"`
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	FirstName string             `bson:"firstName"`
	LastName  string             `bson:"lastName"`
	Email     string             `bson:"email"`
	Phone     string             `bson:"phone"`
	AvatarURL string             `bson:"avatarUrl"`
	CoverURL  string             `bson:"coverUrl"`
	Bio       string             `bson:"bio"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type channelDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	CommunityID primitive.ObjectID `bson:"communityId"`
	UserID      primitive.ObjectID `bson:"userId"`
}

type messageDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	ChannelID primitive.ObjectID `bson:"channelId"`
	SenderID  primitive.ObjectID `bson:"senderId"`
	Text      string             `bson:"text"`
	CreatedAt time.Time          `bson:"createdAt"`
	Sender    []userDoc          `bson:"sender"`
}

// Community loads one community document, or ErrNotFound.
func (s *Store) Community(ctx context.Context, id string) (Community, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return Community{}, err
	}
	var doc communityDoc
	err = s.db.Collection(colCommunities).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Community{}, ErrNotFound
	}
	if err != nil {
		return Community{}, fmt.Errorf("load community %s: %w", id, err)
	}
	return toCommunity(doc), nil
}

// UsersByIDs batch-loads user documents. Unknown ids are silently skipped.
func (s *Store) UsersByIDs(ctx context.Context, ids []string) ([]User, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := parseObjectID(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}
	if len(oids) == 0 {
		return nil, nil
	}
	cursor, err := s.db.Collection(colUsers).Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []User
	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, toUser(doc))
	}
	return users, cursor.Err()
}

// ChannelForMember resolves the community-scoped channel for one user.
// Returns nil when the member has no channel (and no error).
func (s *Store) ChannelForMember(ctx context.Context, communityID, userID string) (*Channel, error) {
	communityOID, err := parseObjectID(communityID)
	if err != nil {
		return nil, err
	}
	userOID, err := parseObjectID(userID)
	if err != nil {
		return nil, err
	}
	var doc channelDoc
	err = s.db.Collection(colChannels).FindOne(ctx, bson.M{
		"communityId": communityOID,
		"userId":      userOID,
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load channel: %w", err)
	}
	return &Channel{
		ID:          doc.ID.Hex(),
		CommunityID: doc.CommunityID.Hex(),
		UserID:      doc.UserID.Hex(),
	}, nil
}

// MessagesForChannel returns up to MessageLimit most-recent messages in the
// channel with sender display data joined, optionally filtered by text.
func (s *Store) MessagesForChannel(ctx context.Context, channelID, textFilter string) ([]Message, error) {
	oid, err := parseObjectID(channelID)
	if err != nil {
		return nil, err
	}
	match := bson.M{"channelId": oid}
	if strings.TrimSpace(textFilter) != "" {
		match["text"] = bson.M{"$regex": textFilter, "$options": "i"}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$limit", Value: MessageLimit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         colUsers,
			"localField":   "senderId",
			"foreignField": "_id",
			"as":           "sender",
		}}},
	}
	cursor, err := s.db.Collection(colMessages).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []Message
	for cursor.Next(ctx) {
		var doc messageDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		messages = append(messages, toMessage(doc))
	}
	return messages, cursor.Err()
}

func toCommunity(doc communityDoc) Community {
	userIDs := make([]string, 0, len(doc.UsersList))
	for _, ref := range doc.UsersList {
		if !ref.UserID.IsZero() {
			userIDs = append(userIDs, ref.UserID.Hex())
		}
	}
	return Community{
		ID:            doc.ID.Hex(),
		Name:          doc.Name,
		Slug:          doc.Slug,
		OwnerID:       doc.Owner.Hex(),
		UserIDs:       userIDs,
		Tags:          doc.Tags,
		Lore:          doc.Lore,
		Mantras:       doc.Mantras,
		ProfileURL:    doc.ProfileURL,
		BackgroundURL: doc.BackgroundURL,
		Private:       doc.Private,
		CreatedAt:     doc.CreatedAt,
	}
}

func toUser(doc userDoc) User {
	return User{
		ID:        doc.ID.Hex(),
		FirstName: doc.FirstName,
		LastName:  doc.LastName,
		Email:     doc.Email,
		Phone:     doc.Phone,
		AvatarURL: doc.AvatarURL,
		CoverURL:  doc.CoverURL,
		Bio:       doc.Bio,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func toMessage(doc messageDoc) Message {
	msg := Message{
		ID:        doc.ID.Hex(),
		ChannelID: doc.ChannelID.Hex(),
		SenderID:  doc.SenderID.Hex(),
		Text:      doc.Text,
		CreatedAt: doc.CreatedAt,
	}
	if len(doc.Sender) > 0 {
		sender := doc.Sender[0]
		msg.SenderName = strings.TrimSpace(sender.FirstName + " " + sender.LastName)
		msg.SenderAvatar = sender.AvatarURL
	}
	return msg
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.ObjectID{}, fmt.Errorf("invalid source id %q: %w", id, err)
	}
	return oid, nil
}
