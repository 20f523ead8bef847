package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomchat/internal/database"
	"roomchat/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messagesCollection = "messages"

// messageDocument embeds the sender's display fields so history loads do not
// need a lookup.
type messageDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	SenderID     string             `bson:"senderId"`
	SenderName   string             `bson:"senderName"`
	SenderAvatar string             `bson:"senderAvatar,omitempty"`
	Room         *string            `bson:"room,omitempty"`
	RecipientID  *string            `bson:"recipientId,omitempty"`
	IsPrivate    bool               `bson:"isPrivate"`
	Content      string             `bson:"content"`
	CreatedAt    time.Time          `bson:"createdAt"`
	ReadBy       []readByDocument   `bson:"readBy"`
}

type readByDocument struct {
	UserID string    `bson:"userId"`
	ReadAt time.Time `bson:"readAt"`
}

type MessageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(db *database.MongoDB) *MessageRepository {
	return &MessageRepository{coll: db.DB.Collection(messagesCollection)}
}

// EnsureIndexes creates the indexes used by history queries.
func (r *MessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "room", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}
	return nil
}

func (r *MessageRepository) SaveMessage(ctx context.Context, msg *models.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	doc := fromModel(msg)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to save message: %w", err)
	}

	msg.ID = doc.ID.Hex()
	return msg.ID, nil
}

// LoadRecent returns up to limit room messages, oldest first.
func (r *MessageRepository) LoadRecent(ctx context.Context, room string, limit int) ([]*models.Message, error) {
	messages, err := r.findLatest(ctx, bson.M{"room": room, "isPrivate": false}, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages for room %s: %w", room, err)
	}
	return messages, nil
}

// FindPrivateMessages returns up to limit messages exchanged between two
// users, oldest first.
func (r *MessageRepository) FindPrivateMessages(ctx context.Context, userID, otherID string, limit int) ([]*models.Message, error) {
	filter := bson.M{
		"isPrivate": true,
		"$or": bson.A{
			bson.M{"senderId": userID, "recipientId": otherID},
			bson.M{"senderId": otherID, "recipientId": userID},
		},
	}
	messages, err := r.findLatest(ctx, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load private messages: %w", err)
	}
	return messages, nil
}

// findLatest loads the newest limit matches and returns them oldest first.
func (r *MessageRepository) findLatest(ctx context.Context, filter bson.M, limit int) ([]*models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []messageDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	messages := make([]*models.Message, len(docs))
	for i, doc := range docs {
		messages[len(docs)-1-i] = doc.toModel()
	}
	return messages, nil
}

func (r *MessageRepository) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrMessageNotFound
	}

	var doc messageDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return doc.toModel(), nil
}

// AppendReadBy pushes a read-by entry unless the user already has one.
func (r *MessageRepository) AppendReadBy(ctx context.Context, messageID, userID string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return models.ErrMessageNotFound
	}

	filter := bson.M{"_id": oid, "readBy.userId": bson.M{"$ne": userID}}
	update := bson.M{"$push": bson.M{"readBy": readByDocument{UserID: userID, ReadAt: at}}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to append read receipt: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to check message %s: %w", messageID, err)
	}
	if n == 0 {
		return models.ErrMessageNotFound
	}
	return nil
}

func fromModel(msg *models.Message) messageDocument {
	doc := messageDocument{
		SenderID:     msg.SenderID,
		SenderName:   msg.Sender.Username,
		SenderAvatar: msg.Sender.Avatar,
		Room:         msg.Room,
		RecipientID:  msg.RecipientID,
		IsPrivate:    msg.IsPrivate,
		Content:      msg.Content,
		CreatedAt:    msg.CreatedAt.UTC(),
		ReadBy:       make([]readByDocument, 0, len(msg.ReadBy)),
	}
	for _, rb := range msg.ReadBy {
		doc.ReadBy = append(doc.ReadBy, readByDocument{UserID: rb.UserID, ReadAt: rb.ReadAt})
	}
	return doc
}

func (d messageDocument) toModel() *models.Message {
	msg := &models.Message{
		ID:          d.ID.Hex(),
		SenderID:    d.SenderID,
		Room:        d.Room,
		RecipientID: d.RecipientID,
		IsPrivate:   d.IsPrivate,
		Content:     d.Content,
		CreatedAt:   d.CreatedAt,
		Sender: models.User{
			ID:       d.SenderID,
			Username: d.SenderName,
			Avatar:   d.SenderAvatar,
		},
		ReadBy: make([]models.ReadReceipt, 0, len(d.ReadBy)),
	}
	for _, rb := range d.ReadBy {
		msg.ReadBy = append(msg.ReadBy, models.ReadReceipt{
			MessageID: msg.ID,
			UserID:    rb.UserID,
			ReadAt:    rb.ReadAt,
		})
	}
	return msg
}
