package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zentriq68-boop/Lumio-Chat-App/internal/models"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) Create(ctx context.Context, chat *models.Chat) error {
	query := `
		INSERT INTO chats (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	chat.ID = uuid.New()

	return r.pool.QueryRow(ctx, query, chat.ID, chat.UserID, chat.Title).Scan(&chat.CreatedAt)
}

func (r *ChatRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	chat := &models.Chat{}
	query := `SELECT id, user_id, title, created_at FROM chats WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (r *ChatRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	query := `SELECT id, user_id, title, created_at FROM chats WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func (r *ChatRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM chats WHERE id = $1", id)
	return err
}

func (r *ChatRepo) SaveMessage(ctx context.Context, msg *models.Message) error {
	imagesJSON, err := json.Marshal(msg.Images)
	if err != nil {
		return fmt.Errorf("failed to marshal message images: %w", err)
	}

	query := `
		INSERT INTO messages (id, chat_id, role, text, images)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	msg.ID = uuid.New()

	return r.pool.QueryRow(ctx, query, msg.ID, msg.ChatID, msg.Role, msg.Text, imagesJSON).Scan(&msg.CreatedAt)
}

func (r *ChatRepo) ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	query := `SELECT id, chat_id, role, text, images, created_at
		FROM messages WHERE chat_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		var imagesJSON []byte
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Text, &imagesJSON, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if len(imagesJSON) > 0 {
			if err := json.Unmarshal(imagesJSON, &msg.Images); err != nil {
				return nil, fmt.Errorf("failed to unmarshal message images: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
